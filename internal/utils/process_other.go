//go:build !unix

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// SetNewPG 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	_, err := os.FindProcess(pid)
	return err == nil, err
}

// TerminateProcess kills pid; graceful signals are not available on this platform.
func TerminateProcess(pid int, procName string, grace time.Duration) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Kill(); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("failed to kill process %s (PID: %d): %v", procName, pid, err)
	}
	return nil
}
