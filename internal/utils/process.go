package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

/**
 * Read a pid file
 * @param {string} path - Pid file path
 * @returns {int} Returns the pid, 0 when the file is absent
 * @returns {error} Returns error if the file exists but does not hold a pid
 */
func ReadPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// WritePidFile records pid in path.
func WritePidFile(path string, pid int) error {
	return WriteFileAtomic(path, []byte(strconv.Itoa(pid)+"\n"), 0644)
}

/**
 * Check the process recorded in a pid file
 * @param {string} path - Pid file path
 * @returns {int} Returns the pid if the process is alive, 0 otherwise
 * @description
 * - A pid file pointing to a dead process is stale and gets removed
 * - A malformed pid file is removed as well
 */
func LivePid(path string) int {
	pid, err := ReadPidFile(path)
	if err != nil {
		os.Remove(path)
		return 0
	}
	if pid == 0 {
		return 0
	}
	running, _ := IsProcessRunning(pid)
	if !running {
		os.Remove(path)
		return 0
	}
	return pid
}

// WaitExit polls until pid is gone or timeout expires.
func WaitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if running, _ := IsProcessRunning(pid); !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
