package server

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAddrs(t *testing.T) {
	addrs := ListenAddrs("127.0.0.1:0", "/tmp/furnace-root")
	require.NotEmpty(t, addrs)
	assert.Equal(t, ListenAddr{Network: "tcp", Address: "127.0.0.1:0"}, addrs[0])
	if runtime.GOOS != "windows" {
		require.Len(t, addrs, 2)
		assert.Equal(t, "/tmp/furnace-root/furnace.sock", addrs[1].Address)
	}

	assert.Len(t, ListenAddrs("", "/tmp/furnace-root"), len(addrs)-1)
}

func TestCreateListenersReplacesStaleSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets")
	}
	// unix socket paths are length limited, keep it short
	dir, err := os.MkdirTemp("", "fn")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "f.sock")
	require.NoError(t, os.WriteFile(sock, nil, 0644))

	listeners, err := CreateListeners([]ListenAddr{
		{Network: "tcp", Address: "127.0.0.1:0"},
		{Network: "unix", Address: sock},
	})
	require.NoError(t, err)
	require.Len(t, listeners, 2)
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	conn.Close()
}

func TestCreateListenersReportsFailures(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	listeners, err := CreateListeners([]ListenAddr{{Network: "tcp", Address: busy.Addr().String()}})
	assert.Error(t, err)
	assert.Empty(t, listeners)
}
