package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"furnace/internal/models"
	"furnace/internal/utils"
)

/**
 * WebService is one pluggable web server backend
 * @description
 * - WriteConf renders and atomically replaces the recipe's config file
 * - ReadConf returns nil when the recipe has no config on disk
 * - RestoreConf puts back what ReadConf returned, nil removes the file
 * - Validate, Start and Reload fail with *models.ToolError carrying the tool output
 * - Stop on a stopped server is a no-op
 */
type WebService interface {
	Kind() models.BackendKind
	DetectInstalled() bool
	WriteConf(recipe models.Recipe, socketPath string) error
	ReadConf(name string) ([]byte, error)
	RestoreConf(name string, prev []byte) error
	RemoveConf(name string) error
	ConfPath(name string) string
	Validate(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reload(ctx context.Context) error
	IsRunning() bool
}

// SortedKinds returns the backend kinds of m in a stable order.
func SortedKinds[T any](m map[models.BackendKind]T) []models.BackendKind {
	kinds := make([]models.BackendKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// writeRendered creates the config and log directories then replaces path with text.
func writeRendered(path, logsDir, text string) error {
	for _, dir := range []string{filepath.Dir(path), logsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return models.IOError("mkdir", dir, err)
		}
	}
	if err := utils.WriteFileAtomic(path, []byte(text), 0644); err != nil {
		return models.IOError("write", path, err)
	}
	return nil
}

func readConf(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, models.IOError("read", path, err)
	}
	return data, nil
}

// portConflict maps bind failures to models.ErrResourceUnavailable, other errors pass through.
func portConflict(kind models.BackendKind, port int, err error) error {
	var te *models.ToolError
	if errors.As(err, &te) && utils.IsAddrInUse(te.Output) {
		return fmt.Errorf("%w: %s cannot bind port %d: %w", models.ErrResourceUnavailable, kind, port, err)
	}
	return err
}
