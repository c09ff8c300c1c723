package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdersCommandListsJournaledOrders(t *testing.T) {
	db := applyValidManifest(t)

	out, err := executeCommand(t, "orders", "--db", db, "--account", "acct-cli", "--now", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders for account acct-cli (now=10):")
	assert.Contains(t, out, "#1  interval=60  executions=0/2  start=0  last=0  state=armed")
}

func TestOrdersCommandJSONOutput(t *testing.T) {
	db := applyValidManifest(t)

	out, err := executeCommand(t, "orders", "--db", db, "--account", "acct-cli", "--format", "json")
	require.NoError(t, err)

	var result OrdersResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "acct-cli", result.Account)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, int64(1), result.Orders[0].ID)
	assert.Equal(t, int64(60), result.Orders[0].Interval)
	assert.Equal(t, "cafe", result.Orders[0].Payload)
}

func TestOrdersCommandUnknownAccount(t *testing.T) {
	db := applyValidManifest(t)

	out, err := executeCommand(t, "orders", "--db", db, "--account", "acct-other")
	require.NoError(t, err)
	assert.Contains(t, out, "No orders for account acct-other.")
}

func TestOrdersCommandMissingDatabase(t *testing.T) {
	_, err := executeCommand(t, "orders", "--db", filepath.Join(t.TempDir(), "nope.db"), "--account", "acct-cli")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
