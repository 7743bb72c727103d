package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

/**
 * Replace a file atomically
 * @param {string} path - Target file
 * @param {[]byte} data - New content
 * @param {os.FileMode} perm - File mode
 * @returns {error} Returns error if the parent directory or temp file cannot be written
 * @description
 * - Readers see either the old or the new content, never a partial file
 * - On failure the previous file is left untouched
 */
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomicwriter.WriteFile(path, data, perm)
}

// PathExists reports whether path exists (a dangling symlink counts).
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// RemoveIfExists removes path, an absent path is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

/**
 * Point link at target, replacing whatever link is there
 * @param {string} target - Symlink target
 * @param {string} link - Symlink path
 * @returns {error} Returns error if link exists and is not a symlink, or cannot be created
 */
func ReplaceSymlink(target, link string) error {
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return &fs.PathError{Op: "symlink", Path: link, Err: fs.ErrExist}
		}
		if cur, err := os.Readlink(link); err == nil && cur == target {
			return nil
		}
		if err := os.Remove(link); err != nil {
			return err
		}
	}
	return os.Symlink(target, link)
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
