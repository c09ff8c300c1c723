package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/keel/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testOperation(seq int64) core.Operation {
	args := core.Object{"order_id": core.Int(1)}
	return core.Operation{
		ID:             core.MustOperationID("tok-1", "0xabc", "scheduler.fire", args, 0, seq),
		Token:          "tok-1",
		Account:        "0xabc",
		Kind:           "scheduler.fire",
		Args:           args,
		OpTime:         0,
		Seq:            seq,
		SchemaVersion:  core.SchemaVersion,
		RuntimeVersion: core.RuntimeVersion,
	}
}

func testOutcome(op core.Operation, seq int64) core.Outcome {
	result := core.Object{"order_id": core.Int(1)}
	return core.Outcome{
		ID:          core.MustOutcomeID(op.ID, "ok", result, seq),
		OperationID: op.ID,
		Case:        "ok",
		Result:      result,
		Seq:         seq,
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var version int
	require.NoError(t, s2.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOperationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op := testOperation(1)
	require.NoError(t, s.WriteOperation(ctx, op))

	got, err := s.ReadOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestWriteOperationIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op := testOperation(1)
	require.NoError(t, s.WriteOperation(ctx, op))
	require.NoError(t, s.WriteOperation(ctx, op), "duplicate write is a no-op")

	ops, err := s.ReadAllOperations(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestOutcomeUniquePerOperation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op := testOperation(1)
	require.NoError(t, s.WriteOperation(ctx, op))

	out := testOutcome(op, 2)
	require.NoError(t, s.WriteOutcome(ctx, out))

	// A second, different outcome for the same operation is silently
	// dropped by the UNIQUE(operation_id) constraint.
	second := core.Outcome{
		ID:          core.MustOutcomeID(op.ID, "invalid_execution", core.Object{}, 3),
		OperationID: op.ID,
		Case:        "invalid_execution",
		Result:      core.Object{},
		Seq:         3,
	}
	require.NoError(t, s.WriteOutcome(ctx, second))

	got, err := s.ReadOutcomeForOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Case)
}

func TestOutcomeRequiresOperation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	orphan := core.Outcome{
		ID:          core.MustOutcomeID("no-such-operation", "ok", core.Object{}, 1),
		OperationID: "no-such-operation",
		Case:        "ok",
		Result:      core.Object{},
		Seq:         1,
	}
	assert.Error(t, s.WriteOutcome(ctx, orphan), "foreign key must reject orphan outcomes")
}

func TestWriteFiringIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := core.Firing{Account: "0xabc", OrderID: 1, Seq: 5}

	id1, inserted, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)
	assert.True(t, inserted)

	id2, inserted, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate firing must not insert")
	assert.Equal(t, id1, id2, "existing row id is returned")

	has, err := s.HasFiring(ctx, "0xabc", 1, 5)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestReadAllOperationsDeterministicOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of seq order; reads must come back seq-ordered.
	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.WriteOperation(ctx, testOperation(seq)))
	}

	ops, err := s.ReadAllOperations(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, int64(1), ops[0].Seq)
	assert.Equal(t, int64(2), ops[1].Seq)
	assert.Equal(t, int64(3), ops[2].Seq)
}

func TestReadAccountOperationsScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	opA := testOperation(1)
	opB := testOperation(2)
	opB.Account = "0xother"
	opB.ID = core.MustOperationID(opB.Token, opB.Account, opB.Kind, opB.Args, opB.OpTime, opB.Seq)
	require.NoError(t, s.WriteOperation(ctx, opA))
	require.NoError(t, s.WriteOperation(ctx, opB))

	ops, err := s.ReadAccountOperations(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, core.Account("0xabc"), ops[0].Account)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Account{"0xabc", "0xother"}, accounts)
}

func TestWriteResolvedAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op := testOperation(1)
	out := testOutcome(op, 2)
	firings := []core.Firing{{Account: op.Account, OrderID: 1, Seq: 2}}

	require.NoError(t, s.WriteResolvedAtomic(ctx, op, out, firings))
	// A replayed write of the same triple is fully idempotent.
	require.NoError(t, s.WriteResolvedAtomic(ctx, op, out, firings))

	ops, err := s.ReadAllOperations(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	fs, err := s.ReadAccountFirings(ctx, op.Account)
	require.NoError(t, err)
	assert.Equal(t, firings, fs)

	pending, err := s.PendingOperations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPendingOperations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op1 := testOperation(1)
	op2 := testOperation(2)
	require.NoError(t, s.WriteOperation(ctx, op1))
	require.NoError(t, s.WriteOperation(ctx, op2))
	require.NoError(t, s.WriteOutcome(ctx, testOutcome(op1, 3)))

	pending, err := s.PendingOperations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, op2.ID, pending[0].ID)
}

func TestLastSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq, "empty journal starts at 0")

	op := testOperation(1)
	require.NoError(t, s.WriteOperation(ctx, op))
	require.NoError(t, s.WriteOutcome(ctx, testOutcome(op, 4)))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
}

func TestReadOperationNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ReadOperation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
