package utils

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnace/internal/models"
)

func TestGetCommandLine(t *testing.T) {
	name, args, err := GetCommandLine("brew install php@{{.Version}}", map[string]string{"Version": "8.3"})
	require.NoError(t, err)
	assert.Equal(t, "brew", name)
	assert.Equal(t, []string{"install", "php@8.3"}, args)

	_, _, err = GetCommandLine("   ", nil)
	assert.Error(t, err)

	_, _, err = GetCommandLine("x {{.Missing}}", map[string]string{})
	assert.Error(t, err)
}

func TestExecRunnerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	_, _, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternalTool))

	var te *models.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.ExitCode)
	assert.Equal(t, "broken", te.Output)
}

func TestExecRunnerMissingProgram(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "furnace-definitely-missing-binary")
	var te *models.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 127, te.ExitCode)
}

func TestIsAddrInUse(t *testing.T) {
	assert.True(t, IsAddrInUse("nginx: [emerg] bind() to 0.0.0.0:80 failed (98: Address already in use)"))
	assert.True(t, IsAddrInUse("(98)Address already in use: AH00072: make_sock: could not bind to address [::]:80"))
	assert.False(t, IsAddrInUse("syntax is ok"))
}
