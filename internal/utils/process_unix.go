//go:build unix

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"furnace/internal/logger"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	err := unix.Kill(pid, 0)
	if err == nil || err == unix.EPERM {
		return true, nil
	}
	return false, fmt.Errorf("process with PID %d is not running: %v", pid, err)
}

/**
 * Stop a process gracefully with SIGQUIT first, then SIGKILL if needed
 * @param {int} pid - Process ID to stop
 * @param {string} procName - Process name for logging
 * @param {time.Duration} grace - How long to wait for a graceful exit
 * @returns {error} Returns error if the process could not be signalled
 * @description
 * - SIGQUIT lets php-fpm and nginx finish in-flight requests
 * - A process already gone counts as stopped
 */
func TerminateProcess(pid int, procName string, grace time.Duration) error {
	if err := unix.Kill(pid, unix.SIGQUIT); err != nil {
		if err == unix.ESRCH {
			return nil
		}
		return fmt.Errorf("failed to signal %s (PID: %d): %v", procName, pid, err)
	}
	if WaitExit(pid, grace) {
		logger.Infof("Process %s (PID: %d) terminated gracefully", procName, pid)
		return nil
	}

	logger.Warnf("Graceful termination failed, force killing process %s (PID: %d)", procName, pid)
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGKILL); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("failed to kill process %s (PID: %d): %v", procName, pid, err)
	}
	return nil
}
