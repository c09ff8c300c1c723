package runtime

import (
	"context"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/ownable"
	"github.com/hallgrim/keel/internal/scheduler"
	"github.com/hallgrim/keel/internal/store"
)

// Replay rebuilds module state from a journal and verifies convergence.
//
// Replay is structural, not a special mode: every journaled operation is
// re-dispatched through the same dispatcher the live runtime uses, in
// seq order, against fresh module state. The journaled outcome of each
// operation is then compared byte-for-byte (canonical JSON) against the
// re-dispatched one. A healthy journal converges; any divergence means
// the journal was produced by different code or was tampered with.
//
// Executor results are data, not computation: the actions a fire
// produced were journaled in its outcome, so replay feeds them back
// through a journalExecutor rather than calling out to live
// infrastructure.

// journalExecutor replays recorded executor results. Before each fire
// operation is re-dispatched, the replay loop loads the actions from the
// journaled outcome; the scheduler then sees exactly what it saw live.
type journalExecutor struct {
	actions []core.Action
}

func (j *journalExecutor) Execute(_ context.Context, _ core.Account, _ core.Payload) ([]core.Action, error) {
	return j.actions, nil
}

// Divergence records one operation whose replayed outcome differs from
// the journaled one.
type Divergence struct {
	OperationID string
	Kind        string
	Journaled   string // canonical JSON: {"case":...,"result":...}
	Replayed    string
}

// ReplayReport summarizes a replay pass.
type ReplayReport struct {
	Operations  int // journaled operations re-dispatched
	Pending     int // operations with no outcome, skipped
	Divergences []Divergence
}

// Converged reports whether every replayed outcome matched the journal.
func (r *ReplayReport) Converged() bool {
	return len(r.Divergences) == 0
}

// State is the module state rebuilt by a replay pass. The CLI inspection
// commands read from it; it is safe to use after Replay returns.
type State struct {
	Scheduler *scheduler.Scheduler
	Owners    *ownable.Registry
}

// Replay re-dispatches the full journal in seq order against fresh
// module state.
//
// verifier may be nil, in which case the Ed25519 default is used. It
// must match the verifier the journal was produced with or signature
// checks will diverge.
func Replay(ctx context.Context, st *store.Store, verifier ownable.Verifier) (*ReplayReport, *State, error) {
	if verifier == nil {
		verifier = ownable.Ed25519Verifier{}
	}

	exec := &journalExecutor{}
	state := &State{
		Scheduler: scheduler.New(exec),
		Owners:    ownable.New(verifier),
	}
	d := &dispatcher{sched: state.Scheduler, owners: state.Owners}

	ops, err := st.ReadAllOperations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read operations: %w", err)
	}

	report := &ReplayReport{}
	for _, op := range ops {
		journaled, err := st.ReadOutcomeForOperation(ctx, op.ID)
		if store.IsNotFound(err) {
			// Dispatch failed live before an outcome was journaled.
			// There is nothing to converge against; leave state as the
			// live runtime left it (unchanged) and move on.
			report.Pending++
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read outcome for %s: %w", op.ID, err)
		}

		exec.actions = nil
		if op.Kind == KindSchedulerFire && journaled.Case == CaseOK {
			actionsVal, ok := journaled.Result["actions"]
			if !ok {
				return nil, nil, fmt.Errorf("fire outcome %s: missing actions", journaled.ID)
			}
			actions, err := decodeActions(actionsVal)
			if err != nil {
				return nil, nil, fmt.Errorf("fire outcome %s: %w", journaled.ID, err)
			}
			exec.actions = actions
		}

		replayedCase, replayedResult, _, err := d.dispatch(ctx, op.Account, op.Kind, op.Args, op.OpTime)
		if err != nil {
			return nil, nil, fmt.Errorf("re-dispatch %s: %w", op.ID, err)
		}

		report.Operations++

		want, err := outcomeFingerprint(journaled.Case, journaled.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("fingerprint journaled outcome %s: %w", journaled.ID, err)
		}
		got, err := outcomeFingerprint(replayedCase, replayedResult)
		if err != nil {
			return nil, nil, fmt.Errorf("fingerprint replayed outcome for %s: %w", op.ID, err)
		}

		if want != got {
			report.Divergences = append(report.Divergences, Divergence{
				OperationID: op.ID,
				Kind:        op.Kind,
				Journaled:   want,
				Replayed:    got,
			})
		}
	}

	return report, state, nil
}

// outcomeFingerprint canonicalizes a case and result pair for
// byte-for-byte comparison.
func outcomeFingerprint(outputCase string, result core.Object) (string, error) {
	if result == nil {
		result = core.Object{}
	}
	b, err := core.MarshalCanonical(core.Object{
		"case":   core.String(outputCase),
		"result": result,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ResumeClock returns a logical clock positioned after the highest seq
// in the journal, for a runtime resuming against an existing store.
func ResumeClock(ctx context.Context, st *store.Store) (*Clock, error) {
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("last seq: %w", err)
	}
	return NewClockAt(last), nil
}
