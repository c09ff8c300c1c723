package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorMessage(t *testing.T) {
	err := NewExitError(ExitFailure, "scenarios failed")
	assert.Equal(t, "scenarios failed", err.Error())

	wrapped := WrapExitError(ExitCommandError, "open database", errors.New("no such file"))
	assert.Equal(t, "open database: no such file", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "no such file")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "diverged"))))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad flag"))))
}

func TestFormatterSuccessJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"operations": 4}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4), data["operations"])
}

func TestFormatterFailJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Fail("validation_failed", "2 errors", []string{"a", "b"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_failed", resp.Error.Code)
	assert.Equal(t, "2 errors", resp.Error.Message)
}

func TestFormatterFailText(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Fail("replay_diverged", "journal diverged", "3 operations"))

	out := buf.String()
	assert.Contains(t, out, "Error [replay_diverged]: journal diverged")
	assert.Contains(t, out, "Details: 3 operations")
}

func TestVerboseLogRouting(t *testing.T) {
	out := new(bytes.Buffer)
	diag := new(bytes.Buffer)

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}
	f.VerboseLog("loaded %d scenarios", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 2 scenarios\n", diag.String())

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("should not appear")
	assert.Empty(t, out.String())
}
