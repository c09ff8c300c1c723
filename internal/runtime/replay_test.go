package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/testutil"
)

// seedJournal runs a representative session: one order created and fired,
// one owner set installed and extended.
func seedJournal(t *testing.T, tr *testRuntime) {
	t.Helper()
	ctx := context.Background()

	tr.executor.Actions = []core.Action{{To: "vault", Value: 7, Data: []byte{0x01}}}

	tr.rt.Submit(Request{Account: "acct-1", Kind: KindSchedulerCreate, Args: createOrderArgs(60, 5, 0), OpTime: 0})
	tr.rt.Submit(Request{Account: "acct-1", Kind: KindSchedulerFire, Args: core.Object{"order_id": core.Int(1)}, OpTime: 10})
	tr.rt.Submit(Request{Account: "acct-1", Kind: KindOwnersInstall, Args: core.Object{"owner": core.String("aa11")}, OpTime: 11})
	tr.rt.Submit(Request{Account: "acct-1", Kind: KindOwnersAddOwner, Args: core.Object{"slot": core.Int(1), "owner": core.String("bb22")}, OpTime: 12})
	tr.rt.Submit(Request{Account: "acct-1", Kind: KindSchedulerFire, Args: core.Object{"order_id": core.Int(1)}, OpTime: 100})
	require.NoError(t, tr.rt.Drain(ctx))
}

func TestReplayConvergesAndRebuildsState(t *testing.T) {
	tr := newTestRuntime(t)
	seedJournal(t, tr)
	ctx := context.Background()

	report, state, err := Replay(ctx, tr.store, testutil.StubVerifier{})
	require.NoError(t, err)
	assert.True(t, report.Converged())
	assert.Equal(t, 5, report.Operations)
	assert.Zero(t, report.Pending)

	order, ok := state.Scheduler.Get("acct-1", 1)
	require.True(t, ok)
	assert.Equal(t, int64(1), order.ExecutionsCompleted)
	assert.Equal(t, int64(10), order.LastExecutionTime)

	assert.Equal(t, uint32(2), state.Owners.OwnerCount("acct-1"))
	assert.Equal(t, core.Credential{0xbb, 0x22}, state.Owners.Owner("acct-1", 1))
}

func TestReplaySecondFireSeesFirstFireState(t *testing.T) {
	// The second fire at op_time 100 was journaled as invalid_execution:
	// after the fire at 10 the order became due at 70, and 100 is past
	// the lateness bound. Replay must reproduce the rejection, which only
	// happens if the first fire mutated the rebuilt order.
	tr := newTestRuntime(t)
	seedJournal(t, tr)
	ctx := context.Background()

	outs, err := tr.store.ReadAllOutcomes(ctx)
	require.NoError(t, err)
	require.Len(t, outs, 5)
	require.Equal(t, CaseInvalidExecution, outs[4].Case)

	report, _, err := Replay(ctx, tr.store, testutil.StubVerifier{})
	require.NoError(t, err)
	assert.True(t, report.Converged())
}

func TestReplayDetectsTamperedOutcome(t *testing.T) {
	tr := newTestRuntime(t)
	ctx := context.Background()

	// Journal an operation whose recorded outcome disagrees with what
	// dispatch produces: a first create always yields order id 1.
	args := createOrderArgs(60, 5, 0)
	op := core.Operation{
		ID:             core.MustOperationID("t1", "acct-1", KindSchedulerCreate, args, 0, 1),
		Token:          "t1",
		Account:        "acct-1",
		Kind:           KindSchedulerCreate,
		Args:           args,
		OpTime:         0,
		Seq:            1,
		SchemaVersion:  core.SchemaVersion,
		RuntimeVersion: core.RuntimeVersion,
	}
	require.NoError(t, tr.store.WriteOperation(ctx, op))

	forged := core.Object{"order_id": core.Int(999)}
	out := core.Outcome{
		ID:          core.MustOutcomeID(op.ID, CaseOK, forged, 2),
		OperationID: op.ID,
		Case:        CaseOK,
		Result:      forged,
		Seq:         2,
	}
	require.NoError(t, tr.store.WriteOutcome(ctx, out))

	report, _, err := Replay(ctx, tr.store, testutil.StubVerifier{})
	require.NoError(t, err)
	assert.False(t, report.Converged())
	require.Len(t, report.Divergences, 1)
	assert.Equal(t, op.ID, report.Divergences[0].OperationID)
	assert.NotEqual(t, report.Divergences[0].Journaled, report.Divergences[0].Replayed)
}

func TestReplaySkipsPendingOperations(t *testing.T) {
	tr := newTestRuntime(t)
	ctx := context.Background()

	args := core.Object{"order_id": core.Int(1)}
	op := core.Operation{
		ID:             core.MustOperationID("t1", "acct-1", KindSchedulerFire, args, 0, 1),
		Token:          "t1",
		Account:        "acct-1",
		Kind:           KindSchedulerFire,
		Args:           args,
		OpTime:         0,
		Seq:            1,
		SchemaVersion:  core.SchemaVersion,
		RuntimeVersion: core.RuntimeVersion,
	}
	require.NoError(t, tr.store.WriteOperation(ctx, op))

	report, _, err := Replay(ctx, tr.store, testutil.StubVerifier{})
	require.NoError(t, err)
	assert.True(t, report.Converged())
	assert.Zero(t, report.Operations)
	assert.Equal(t, 1, report.Pending)
}

func TestReplayVerifierMustMatchJournal(t *testing.T) {
	tr := newTestRuntime(t)
	ctx := context.Background()

	tr.rt.Submit(Request{Account: "acct-1", Kind: KindOwnersInstall, Args: core.Object{"owner": core.String("aa11")}, OpTime: 0})
	tr.rt.Submit(Request{
		Account: "acct-1",
		Kind:    KindOwnersAuthorize,
		Args: core.Object{
			"slot":      core.Int(0),
			"message":   core.String("00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"),
			"signature": core.String("aa11"),
		},
		OpTime: 1,
	})
	require.NoError(t, tr.rt.Drain(ctx))

	report, _, err := Replay(ctx, tr.store, testutil.StubVerifier{})
	require.NoError(t, err)
	assert.True(t, report.Converged())

	// The Ed25519 default rejects the stub signature, so the authorize
	// outcome diverges.
	report, _, err = Replay(ctx, tr.store, nil)
	require.NoError(t, err)
	assert.False(t, report.Converged())
	require.Len(t, report.Divergences, 1)
	assert.Equal(t, KindOwnersAuthorize, report.Divergences[0].Kind)
}

func TestResumeClockContinuesSequence(t *testing.T) {
	tr := newTestRuntime(t)
	seedJournal(t, tr)
	ctx := context.Background()

	last, err := tr.store.LastSeq(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), last)

	clock, err := ResumeClock(ctx, tr.store)
	require.NoError(t, err)
	assert.Equal(t, int64(11), clock.Next())
}
