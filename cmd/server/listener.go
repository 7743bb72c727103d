package server

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"furnace/internal/logger"
	"furnace/internal/rpc"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Test if the system supports Unix socket network type
 * @returns {bool} Returns true if Unix socket is supported, false otherwise
 * @description
 * - Non-windows systems always support it
 * - On windows a temporary socket is created and removed again
 */
func IsUnixSocketSupported() bool {
	if runtime.GOOS != "windows" {
		return true
	}
	testSocketPath := filepath.Join(os.TempDir(), "furnace_test_unix_socket.sock")
	os.Remove(testSocketPath)

	listener, err := net.Listen("unix", testSocketPath)
	if err != nil {
		return false
	}
	listener.Close()
	os.Remove(testSocketPath)
	return true
}

/**
 * Compute the addresses `furnace server` listens on
 * @param {string} address - TCP address from server.address, empty disables TCP
 * @param {string} root - furnace state root, holds furnace.sock
 * @returns {[]ListenAddr} TCP first, then the unix socket when supported
 */
func ListenAddrs(address, root string) []ListenAddr {
	var addrs []ListenAddr
	if address != "" {
		addrs = append(addrs, ListenAddr{Network: "tcp", Address: address})
	}
	if IsUnixSocketSupported() {
		addrs = append(addrs, ListenAddr{Network: "unix", Address: rpc.SocketPath(root)})
	}
	return addrs
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener Address
 * @returns {[]net.Listener} Array of created listeners
 * @returns {error} Joined errors of the listeners that could not be created
 * @description
 * - A stale socket file left by a previous run is removed first
 * - The socket is only accessible to the current user
 * - Listeners that fail are skipped, the others are still returned
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener
	var errs []error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				errs = append(errs, err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(addr.Address), 0755); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			errs = append(errs, err)
			continue
		}
		if addr.Network == "unix" {
			os.Chmod(addr.Address, 0600)
		}
		listeners = append(listeners, l)
	}
	return listeners, errors.Join(errs...)
}
