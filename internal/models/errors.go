package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrExternalTool        = errors.New("external tool failure")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrIO                  = errors.New("io failure")
	ErrHomeUnavailable     = errors.New("home directory unavailable")
)

/**
 * ToolError is returned when an external program exits non-zero
 * @property {string} tool - Program name, e.g. nginx
 * @property {[]string} args - Arguments passed to the program
 * @property {int} exitCode - Exit status
 * @property {string} output - Raw diagnostic text (stderr, else stdout)
 */
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s exited with status %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ToolError) Is(target error) bool {
	return target == ErrExternalTool
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IOError tags err as a filesystem failure on path.
func IOError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
