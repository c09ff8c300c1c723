package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
account: "acct-cli"
owner:   "aa11"
owners: [
	{slot: 1, credential: "bb22"},
]
orders: [
	{interval: 60, max_executions: 2, start_time: 0, payload: "cafe"},
]
setup_time: 5
`

const invalidManifest = `
account: "acct-cli"
owner:   "aa11"
owners: [
	{slot: 0, credential: "bb22"},
]
orders: [
	{interval: -1, max_executions: 2, start_time: 0},
]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "account.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCommandValidManifest(t *testing.T) {
	path := writeManifest(t, validManifest)

	out, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "account acct-cli, 2 owners, 1 orders")
}

func TestValidateCommandValidManifestJSON(t *testing.T) {
	path := writeManifest(t, validManifest)

	out, err := executeCommand(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var result ValidateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateCommandInvalidManifest(t *testing.T) {
	path := writeManifest(t, invalidManifest)

	out, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "is invalid")
	assert.Contains(t, out, "E203")
	assert.Contains(t, out, "E206")
}

func TestValidateCommandInvalidManifestJSON(t *testing.T) {
	path := writeManifest(t, invalidManifest)

	out, err := executeCommand(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
}

func TestValidateCommandMissingFile(t *testing.T) {
	_, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommandCompileError(t *testing.T) {
	path := writeManifest(t, `owner: "aa11"`)

	_, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "account")
}
