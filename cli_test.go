package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level=error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSettingsCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	out, err := runCLI(t, "settings", "list", "--app-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "AUTO_BIO=yes\nPRESENCE=🚀 BWM-MD Connected\n", out)

	out, err = runCLI(t, "settings", "set", "--app-dir", dir, "presence", "be", "right", "back")
	require.NoError(t, err)
	assert.Equal(t, "PRESENCE=be right back\n", out)

	out, err = runCLI(t, "settings", "get", "--app-dir", dir, "PRESENCE")
	require.NoError(t, err)
	assert.Equal(t, "be right back\n", out)

	out, err = runCLI(t, "settings", "get", "--app-dir", dir, "MODE", "public")
	require.NoError(t, err)
	assert.Equal(t, "public\n", out)

	_, err = runCLI(t, "settings", "get", "--app-dir", dir, "MODE")
	assert.ErrorContains(t, err, "MODE is not set")
}

func TestSettingsCommands_BotNameFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	out, err := runCLI(t, "settings", "get", "--app-dir", dir, "--bot-name", "Leo", "PRESENCE")
	require.NoError(t, err)
	assert.Equal(t, "🚀 Leo Connected\n", out)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := runCLI(t, "settings", "list", "--app-dir", t.TempDir(), "--bio-policy", "weighted")
	assert.Error(t, err)
}
