package utils

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// CheckPortConnectable reports whether something accepts TCP connections on localhost:port.
func CheckPortConnectable(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

/**
 * Connect-probe a unix domain socket
 * @param {string} path - Socket file path
 * @param {time.Duration} timeout - Dial timeout
 * @returns {bool} Returns true if a listener accepted the connection
 * @description
 * - A socket file left behind by a crashed process fails this probe
 */
func ProbeUnixSocket(path string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// IsAddrInUse recognizes the bind failures printed by nginx and apache.
func IsAddrInUse(output string) bool {
	return strings.Contains(output, "Address already in use") ||
		strings.Contains(output, "bind() to") && strings.Contains(output, "failed") ||
		strings.Contains(output, "could not bind to address")
}
