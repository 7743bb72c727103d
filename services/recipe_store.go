package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

// BackRefName is the symlink placed in every cooked project directory.
const BackRefName = ".furnace.recipe.yml"

const recipeExt = ".yml"

var safeNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// confUnsafeChars cannot appear in a project path, it is written unescaped into nginx and apache configs.
const confUnsafeChars = " \t\r\n;\"'{}#"

/**
 * RecipeStore 配方存储
 * @property {string} dir - Directory of recipe records
 * @property {string} tld - Top level domain used for default sites
 * @description
 * - One YAML file per recipe, named after the recipe
 * - The project directory gets a symlink back to its record
 */
type RecipeStore struct {
	dir      string
	tld      string
	validate *validator.Validate
}

func newRecipeValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("safename", func(fl validator.FieldLevel) bool {
		return safeNameRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		path := fl.Field().String()
		return filepath.IsAbs(path) && !strings.ContainsAny(path, confUnsafeChars)
	})
	return v
}

func NewRecipeStore(paths config.Paths, tld string) *RecipeStore {
	return &RecipeStore{
		dir:      paths.RecipesDir,
		tld:      tld,
		validate: newRecipeValidator(),
	}
}

// RecordPath is the YAML file of recipe name.
func (s *RecipeStore) RecordPath(name string) string {
	return filepath.Join(s.dir, name+recipeExt)
}

// BackRefPath is the back-reference symlink inside a project directory.
func BackRefPath(projectDir string) string {
	return filepath.Join(projectDir, BackRefName)
}

// ValidName reports whether name can be used as a recipe name.
func ValidName(name string) bool {
	return safeNameRe.MatchString(name)
}

func (s *RecipeStore) normalize(r *models.Recipe) error {
	if r.Path != "" {
		r.Path = filepath.Clean(r.Path)
	}
	r.ApplyDefaults(s.tld)
	if err := s.validate.Struct(r); err != nil {
		return fmt.Errorf("invalid recipe %q: %w", r.Name, err)
	}
	return nil
}

/**
 * Create or overwrite a recipe
 * @param {*models.Recipe} r - Recipe to persist, defaults are filled in place
 * @returns {error} Returns models.ErrConflict if another recipe owns the same path
 * @description
 * - The record is replaced atomically
 * - Re-putting an identical recipe leaves the record byte-identical
 * - A recipe moved to another directory loses its old back-reference
 * - Back-reference creation failure is only a warning
 */
func (s *RecipeStore) Put(r *models.Recipe) error {
	if err := s.normalize(r); err != nil {
		return err
	}
	owner, err := s.GetByPath(r.Path)
	if err != nil {
		return err
	}
	if owner != nil && owner.Name != r.Name {
		return fmt.Errorf("%w: %s is already cooked as recipe %q", models.ErrConflict, r.Path, owner.Name)
	}
	old, err := s.Get(r.Name)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	record := s.RecordPath(r.Name)
	if err := utils.WriteFileAtomic(record, data, 0644); err != nil {
		return models.IOError("write", record, err)
	}
	if old != nil && old.Path != r.Path {
		s.removeBackRef(old.Path, record)
	}
	s.linkBackRef(r.Path, record)
	return nil
}

/**
 * Rename a recipe, possibly changing its other fields too
 * @param {string} from - Current recipe name
 * @param {*models.Recipe} r - Recipe under its new name, defaults are filled in place
 * @returns {error} Returns models.ErrConflict if the new name or the path belongs to another recipe
 * @description
 * - The new record is written before the old one is removed
 * - An invalid recipe leaves the old record untouched
 */
func (s *RecipeStore) Rename(from string, r *models.Recipe) error {
	if err := s.normalize(r); err != nil {
		return err
	}
	if r.Name == from {
		return s.Put(r)
	}
	old, err := s.Get(from)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("%w: recipe %q", models.ErrNotFound, from)
	}
	other, err := s.Get(r.Name)
	if err != nil {
		return err
	}
	if other != nil {
		return fmt.Errorf("%w: recipe %q already serves %s", models.ErrConflict, r.Name, other.Path)
	}
	owner, err := s.GetByPath(r.Path)
	if err != nil {
		return err
	}
	if owner != nil && owner.Name != from {
		return fmt.Errorf("%w: %s is already cooked as recipe %q", models.ErrConflict, r.Path, owner.Name)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	record := s.RecordPath(r.Name)
	if err := utils.WriteFileAtomic(record, data, 0644); err != nil {
		return models.IOError("write", record, err)
	}
	oldRecord := s.RecordPath(from)
	if err := utils.RemoveIfExists(oldRecord); err != nil {
		utils.RemoveIfExists(record)
		return models.IOError("remove", oldRecord, err)
	}
	if old.Path != r.Path {
		s.removeBackRef(old.Path, oldRecord)
	}
	s.linkBackRef(r.Path, record)
	return nil
}

func (s *RecipeStore) linkBackRef(projectDir, record string) {
	if fi, err := os.Stat(projectDir); err != nil || !fi.IsDir() {
		logger.Warnf("Project directory %s does not exist, back-reference skipped", projectDir)
		return
	}
	if err := utils.ReplaceSymlink(record, BackRefPath(projectDir)); err != nil {
		logger.Warnf("Failed to link %s: %v", BackRefPath(projectDir), err)
	}
}

// removeBackRef deletes the back-reference only when it points at record.
func (s *RecipeStore) removeBackRef(projectDir, record string) {
	link := BackRefPath(projectDir)
	target, err := os.Readlink(link)
	if err != nil {
		return
	}
	if target != record {
		logger.Warnf("Back-reference %s points to %s, left in place", link, target)
		return
	}
	if err := os.Remove(link); err != nil {
		logger.Warnf("Failed to remove %s: %v", link, err)
	}
}

func (s *RecipeStore) load(file string) (*models.Recipe, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var r models.Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	r.ApplyDefaults(s.tld)
	return &r, nil
}

/**
 * Get a recipe by name
 * @param {string} name - Recipe name
 * @returns {*models.Recipe} Returns nil when no record exists
 * @returns {error} Returns error if the record exists but cannot be read
 */
func (s *RecipeStore) Get(name string) (*models.Recipe, error) {
	if !ValidName(name) {
		return nil, nil
	}
	r, err := s.load(s.RecordPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, models.IOError("read", s.RecordPath(name), err)
	}
	return r, nil
}

// GetByPath finds the recipe owning a project directory.
func (s *RecipeStore) GetByPath(path string) (*models.Recipe, error) {
	path = filepath.Clean(path)
	recipes, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		if recipes[i].Path == path {
			return &recipes[i], nil
		}
	}
	return nil, nil
}

/**
 * List all recipes
 * @returns {[]models.Recipe} Returns recipes sorted by name
 * @returns {error} Returns error if the recipe directory cannot be read
 * @description
 * - Unreadable records are skipped with a warning
 */
func (s *RecipeStore) List() ([]models.Recipe, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Recipe{}, nil
	}
	if err != nil {
		return nil, models.IOError("list", s.dir, err)
	}
	recipes := []models.Recipe{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recipeExt) {
			continue
		}
		r, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			logger.Warnf("Skip recipe record %s: %v", e.Name(), err)
			continue
		}
		recipes = append(recipes, *r)
	}
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].Name < recipes[j].Name
	})
	return recipes, nil
}

/**
 * Find the recipe of a project directory
 * @param {string} dir - Project directory
 * @returns {*models.Recipe} Returns nil if the directory is not cooked
 * @description
 * - The store lookup by path wins over the back-reference
 * - A back-reference whose record names another path is ignored
 */
func (s *RecipeStore) ResolveDir(dir string) (*models.Recipe, error) {
	dir = filepath.Clean(dir)
	r, err := s.GetByPath(dir)
	if err != nil || r != nil {
		return r, err
	}
	target, err := os.Readlink(BackRefPath(dir))
	if err != nil {
		return nil, nil
	}
	name := strings.TrimSuffix(filepath.Base(target), recipeExt)
	r, err = s.Get(name)
	if err != nil || r == nil {
		return nil, err
	}
	if r.Path != dir {
		logger.Warnf("Back-reference in %s names recipe %q of %s, ignored", dir, name, r.Path)
		return nil, nil
	}
	return r, nil
}

/**
 * Remove a recipe
 * @param {string} name - Recipe name
 * @returns {*models.Recipe} Returns the removed recipe, nil if it did not exist
 * @returns {error} Returns error if the record cannot be deleted
 */
func (s *RecipeStore) Remove(name string) (*models.Recipe, error) {
	r, err := s.Get(name)
	if err != nil || r == nil {
		return nil, err
	}
	record := s.RecordPath(name)
	s.removeBackRef(r.Path, record)
	if err := utils.RemoveIfExists(record); err != nil {
		return nil, models.IOError("remove", record, err)
	}
	return r, nil
}
