package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"furnace/internal/logger"
	"furnace/internal/models"
)

// CommandRunner abstracts external program execution so backends can be tested without binaries.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
	LookPath(name string) (string, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debugf("Executing command: %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), nil
	}
	return stdout.Bytes(), stderr.Bytes(), ToolFailure(name, args, stdout.Bytes(), stderr.Bytes(), err)
}

func (r ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

/**
 * Convert a failed command into a *models.ToolError
 * @param {string} name - Program name
 * @param {[]string} args - Program arguments
 * @param {[]byte} stdout - Captured standard output
 * @param {[]byte} stderr - Captured standard error
 * @param {error} err - Error returned by exec
 * @returns {error} Returns *models.ToolError carrying the raw diagnostic text
 * @description
 * - Output is stderr when not empty, stdout otherwise
 * - A program that cannot be found gets exit code 127
 */
func ToolFailure(name string, args []string, stdout, stderr []byte, err error) error {
	code := 1
	var exitErr *exec.ExitError
	var execErr *exec.Error
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if errors.As(err, &execErr) {
		code = 127
	}
	output := strings.TrimSpace(string(stderr))
	if output == "" {
		output = strings.TrimSpace(string(stdout))
	}
	if output == "" && err != nil {
		output = err.Error()
	}
	return &models.ToolError{
		Tool:     name,
		Args:     args,
		ExitCode: code,
		Output:   output,
		Err:      err,
	}
}

/**
 * Expand a command line template and split it into program and arguments
 * @param {string} command - Command line, may contain text/template actions
 * @param {interface{}} data - Template data
 * @returns {string} Returns the program name
 * @returns {[]string} Returns the arguments
 * @returns {error} Returns error if the template is invalid or empty
 * @example
 * name, args, err := GetCommandLine("brew install php@{{.Version}}", data)
 */
func GetCommandLine(command string, data interface{}) (string, []string, error) {
	cmdTemplate, err := template.New("command").Option("missingkey=error").Parse(command)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse command template: %w", err)
	}

	var cmdBuf bytes.Buffer
	if err := cmdTemplate.Execute(&cmdBuf, data); err != nil {
		return "", nil, fmt.Errorf("failed to execute command template: %w", err)
	}
	fields := strings.Fields(cmdBuf.String())
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command line")
	}
	return fields[0], fields[1:], nil
}

// CommandString renders a command line for logs.
func CommandString(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
