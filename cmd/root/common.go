package root

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/rpc"
	"furnace/internal/utils"
	"furnace/services"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

/**
 * Build the reconciler used by a CLI command
 * @returns {config.Paths} Resolved state tree
 * @returns {*services.Reconciler} Reconciler over the real backends
 * @returns {error} Returns models.ErrHomeUnavailable or a config error
 */
func NewReconciler() (config.Paths, *services.Reconciler, error) {
	paths, cfg, err := config.Load()
	if err != nil {
		return paths, nil, err
	}
	return paths, services.NewDefaultReconciler(paths, cfg), nil
}

/**
 * Run an environment-wide operation (serve/stop/restart)
 * @param {string} op - Operation name, also the API route
 * @param {func} local - Runs the operation in this process
 * @returns {error} Returns the joined failures of the report
 * @description
 * - When `furnace server` answers on ~/.furnace/furnace.sock the operation is sent to it,
 *   so it is serialized with the API callers
 * - --local always runs in this process
 */
func RunOperation(op string, local func(*services.Reconciler) *services.Report) error {
	paths, rec, err := NewReconciler()
	if err != nil {
		return err
	}
	defer Finish(paths)
	if !Local && rpc.ServerRunning(paths.Root) {
		_, cfg, err := config.Load()
		if err != nil {
			return err
		}
		rep, err := forward(paths.Root, cfg.Server.Secret, op)
		if err != nil {
			return err
		}
		return PrintReport(rep)
	}
	return PrintReport(local(rec))
}

type remoteReport struct {
	Operation string   `json:"operation"`
	Actions   []string `json:"actions"`
	Warnings  []string `json:"warnings"`
	Errors    []string `json:"errors"`
}

func forward(root, secret, op string) (*services.Report, error) {
	logger.Infof("Forwarding %s to furnace server", op)
	hc := rpc.DefaultHTTPConfig(root)
	if secret != "" {
		token, err := utils.IssueToken(secret, "cli", time.Minute)
		if err != nil {
			return nil, err
		}
		hc.Token = token
	}
	client := rpc.NewHTTPClient(hc)
	defer client.Close()

	resp, err := client.Post("/furnace/api/v1/"+op, nil)
	if err != nil {
		return nil, fmt.Errorf("furnace server: %w", err)
	}
	var rr remoteReport
	if err := json.Unmarshal(resp.Body, &rr); err != nil || rr.Operation == "" {
		return nil, fmt.Errorf("furnace server: %s %s", op, resp.Error)
	}
	rep := &services.Report{Operation: rr.Operation, Actions: rr.Actions, Warnings: rr.Warnings}
	for _, e := range rr.Errors {
		rep.Errors = append(rep.Errors, errors.New(e))
	}
	return rep, nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorize(f *os.File, color, s string) string {
	if !IsTerminal(f) {
		return s
	}
	return color + s + colorReset
}

/**
 * Print a report and convert it to the command result
 * @param {*services.Report} rep - Report of a reconcile operation
 * @returns {error} Returns the joined failures, nil on success
 * @description
 * - Actions go to stdout, warnings and errors to stderr
 * - Colors are only used on a terminal
 */
func PrintReport(rep *services.Report) error {
	printReport(os.Stdout, os.Stderr, rep)
	return rep.Err()
}

func printReport(out, errOut *os.File, rep *services.Report) {
	writeLines(out, colorize(out, colorGreen, "✓ "), rep.Actions)
	writeLines(errOut, colorize(errOut, colorYellow, "! "), rep.Warnings)
	for _, e := range rep.Errors {
		fmt.Fprintf(errOut, "%s%v\n", colorize(errOut, colorRed, "✗ "), e)
	}
}

func writeLines(w io.Writer, prefix string, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(w, "%s%s\n", prefix, l)
	}
}

// Finish dumps the metrics textfile, a failure only gets logged.
func Finish(paths config.Paths) {
	if paths.MetricsDir == "" {
		return
	}
	if err := services.DumpMetrics(paths.MetricsDir); err != nil {
		logger.Warnf("Metrics dump failed: %v", err)
	}
}
