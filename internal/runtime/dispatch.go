package runtime

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/ownable"
	"github.com/hallgrim/keel/internal/scheduler"
)

// Operation kinds routed by the dispatcher. The prefix names the module,
// the suffix the entry point it maps to.
const (
	KindSchedulerCreate     = "scheduler.create"
	KindSchedulerRemove     = "scheduler.remove"
	KindSchedulerIsEligible = "scheduler.isEligible"
	KindSchedulerFire       = "scheduler.fire"
	KindSchedulerClearAll   = "scheduler.clearAll"

	KindOwnersInstall          = "owners.install"
	KindOwnersUninstall        = "owners.uninstall"
	KindOwnersIsInitialized    = "owners.isInitialized"
	KindOwnersAddOwner         = "owners.addOwner"
	KindOwnersRemoveOwner      = "owners.removeOwner"
	KindOwnersAuthorize        = "owners.authorize"
	KindOwnersValidateOp       = "owners.validateOperation"
	KindOwnersValidateMsg      = "owners.validateMessageSignature"
)

// Outcome cases. Domain rejections are journaled cases, never Go errors;
// only infrastructure failures (executor call, storage) surface as errors.
const (
	CaseOK                 = "ok"
	CaseInvalidExecution   = "invalid_execution"
	CaseOwnerExists        = "owner_exists"
	CaseAlreadyInitialized = "already_initialized"
	CaseNotInitialized     = "not_initialized"
	CaseBadArgs            = "bad_args"
	CaseUnknownKind        = "unknown_kind"
)

// dispatcher routes a journaled operation to the module holding its
// state. Shared by the live runtime and replay so both produce identical
// outcomes for identical journals.
type dispatcher struct {
	sched  *scheduler.Scheduler
	owners *ownable.Registry
}

// dispatch executes one operation against module state.
//
// Returns the outcome case, the result object, and the ids of any orders
// fired. The error return is reserved for infrastructure failures; every
// domain-level rejection is encoded as a case so replay converges.
func (d *dispatcher) dispatch(ctx context.Context, account core.Account, kind string, args core.Object, opTime int64) (string, core.Object, []int64, error) {
	switch kind {
	case KindSchedulerCreate:
		interval, err := argInt(args, "interval")
		if err != nil {
			return badArgs(err)
		}
		maxExec, err := argInt(args, "max_executions")
		if err != nil {
			return badArgs(err)
		}
		startTime, err := argInt(args, "start_time")
		if err != nil {
			return badArgs(err)
		}
		payload, err := argBytes(args, "payload")
		if err != nil {
			return badArgs(err)
		}
		id := d.sched.Create(account, interval, maxExec, startTime, core.Payload(payload))
		return CaseOK, core.Object{"order_id": core.Int(id)}, nil, nil

	case KindSchedulerRemove:
		id, err := argInt(args, "order_id")
		if err != nil {
			return badArgs(err)
		}
		d.sched.Remove(account, id)
		return CaseOK, core.Object{}, nil, nil

	case KindSchedulerIsEligible:
		id, err := argInt(args, "order_id")
		if err != nil {
			return badArgs(err)
		}
		if err := d.sched.CheckEligible(account, id, opTime); err != nil {
			return invalidExecution(err)
		}
		return CaseOK, core.Object{"eligible": core.Bool(true)}, nil, nil

	case KindSchedulerFire:
		id, err := argInt(args, "order_id")
		if err != nil {
			return badArgs(err)
		}
		actions, err := d.sched.Fire(ctx, account, id, opTime)
		if err != nil {
			if scheduler.IsInvalidExecution(err) {
				return invalidExecution(err)
			}
			// Executor infrastructure failure: no state changed, not ours
			// to classify.
			return "", nil, nil, fmt.Errorf("fire order %d: %w", id, err)
		}
		result := core.Object{
			"order_id": core.Int(id),
			"actions":  encodeActions(actions),
		}
		return CaseOK, result, []int64{id}, nil

	case KindSchedulerClearAll:
		d.sched.ClearAll(account)
		return CaseOK, core.Object{}, nil, nil

	case KindOwnersInstall:
		owner, err := argBytes(args, "owner")
		if err != nil {
			return badArgs(err)
		}
		if err := d.owners.Install(account, core.Credential(owner)); err != nil {
			return ownersCase(err)
		}
		return CaseOK, core.Object{}, nil, nil

	case KindOwnersUninstall:
		if err := d.owners.Uninstall(account); err != nil {
			return ownersCase(err)
		}
		return CaseOK, core.Object{}, nil, nil

	case KindOwnersIsInitialized:
		return CaseOK, core.Object{"initialized": core.Bool(d.owners.IsInitialized(account))}, nil, nil

	case KindOwnersAddOwner:
		slot, err := argSlot(args)
		if err != nil {
			return badArgs(err)
		}
		owner, err := argBytes(args, "owner")
		if err != nil {
			return badArgs(err)
		}
		if err := d.owners.AddOwner(account, slot, core.Credential(owner)); err != nil {
			return ownersCase(err)
		}
		return CaseOK, core.Object{"slot": core.Int(int64(slot))}, nil, nil

	case KindOwnersRemoveOwner:
		slot, err := argSlot(args)
		if err != nil {
			return badArgs(err)
		}
		if err := d.owners.RemoveOwner(account, slot); err != nil {
			return ownersCase(err)
		}
		return CaseOK, core.Object{}, nil, nil

	case KindOwnersAuthorize:
		slot, err := argSlot(args)
		if err != nil {
			return badArgs(err)
		}
		message, err := argDigest(args, "message")
		if err != nil {
			return badArgs(err)
		}
		signature, err := argBytes(args, "signature")
		if err != nil {
			return badArgs(err)
		}
		ok := d.owners.Authorize(account, slot, message, signature)
		return CaseOK, core.Object{"authorized": core.Bool(ok)}, nil, nil

	case KindOwnersValidateOp:
		digest, err := argDigest(args, "digest")
		if err != nil {
			return badArgs(err)
		}
		selection, err := argBytes(args, "selection")
		if err != nil {
			return badArgs(err)
		}
		res := d.owners.ValidateOperation(account, digest, selection)
		result := core.Object{
			"sig_failed":  core.Bool(res.SigFailed),
			"valid_after": core.Int(res.ValidAfter),
			"valid_until": core.Int(res.ValidUntil),
		}
		return CaseOK, result, nil, nil

	case KindOwnersValidateMsg:
		sender, err := argString(args, "sender")
		if err != nil {
			return badArgs(err)
		}
		digest, err := argDigest(args, "digest")
		if err != nil {
			return badArgs(err)
		}
		selection, err := argBytes(args, "selection")
		if err != nil {
			return badArgs(err)
		}
		magic := d.owners.ValidateMessageSignature(account, core.Account(sender), digest, selection)
		return CaseOK, core.Object{"magic": core.String(hex.EncodeToString(magic[:]))}, nil, nil

	default:
		return CaseUnknownKind, core.Object{"kind": core.String(kind)}, nil, nil
	}
}

// badArgs encodes an argument decode failure as a journaled rejection so
// a malformed operation replays to the same outcome.
func badArgs(err error) (string, core.Object, []int64, error) {
	return CaseBadArgs, core.Object{"error": core.String(err.Error())}, nil, nil
}

// invalidExecution encodes an eligibility rejection.
func invalidExecution(err error) (string, core.Object, []int64, error) {
	reason, _ := scheduler.InvalidExecutionReason(err)
	return CaseInvalidExecution, core.Object{"reason": core.String(string(reason))}, nil, nil
}

// ownersCase classifies registry errors into outcome cases.
func ownersCase(err error) (string, core.Object, []int64, error) {
	switch {
	case errors.Is(err, ownable.ErrAlreadyInitialized):
		return CaseAlreadyInitialized, core.Object{}, nil, nil
	case errors.Is(err, ownable.ErrNotInitialized):
		return CaseNotInitialized, core.Object{}, nil, nil
	case ownable.IsOwnerExists(err):
		var oe *ownable.OwnerExistsError
		errors.As(err, &oe)
		return CaseOwnerExists, core.Object{"slot": core.Int(int64(oe.Slot))}, nil, nil
	default:
		// No other registry errors exist today; journal unrecognized
		// ones as bad args rather than dropping the outcome.
		return CaseBadArgs, core.Object{"error": core.String(err.Error())}, nil, nil
	}
}

// encodeActions serializes executor sub-actions into the result object.
func encodeActions(actions []core.Action) core.Array {
	out := make(core.Array, len(actions))
	for i, a := range actions {
		out[i] = core.Object{
			"to":    core.String(a.To),
			"value": core.Int(a.Value),
			"data":  core.String(hex.EncodeToString(a.Data)),
		}
	}
	return out
}

// decodeActions is the inverse of encodeActions, used by replay to
// reproduce journaled executor results.
func decodeActions(v core.Value) ([]core.Action, error) {
	arr, ok := v.(core.Array)
	if !ok {
		return nil, fmt.Errorf("actions: expected array, got %T", v)
	}
	out := make([]core.Action, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(core.Object)
		if !ok {
			return nil, fmt.Errorf("actions[%d]: expected object, got %T", i, elem)
		}
		to, err := argString(obj, "to")
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		value, err := argInt(obj, "value")
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		data, err := argBytes(obj, "data")
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		out = append(out, core.Action{To: core.Account(to), Value: value, Data: data})
	}
	return out, nil
}

// Argument decoding helpers. Missing or mistyped keys are caller faults
// and become bad_args outcomes, never panics.

func argInt(args core.Object, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	n, ok := v.(core.Int)
	if !ok {
		return 0, fmt.Errorf("arg %q: expected int, got %T", key, v)
	}
	return int64(n), nil
}

func argString(args core.Object, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(core.String)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, v)
	}
	return string(s), nil
}

// argBytes decodes a hex-encoded byte string arg. The empty string is a
// valid empty payload.
func argBytes(args core.Object, key string) ([]byte, error) {
	s, err := argString(args, key)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("arg %q: invalid hex: %w", key, err)
	}
	return b, nil
}

// argDigest decodes a 32-byte hex digest arg.
func argDigest(args core.Object, key string) (core.Digest, error) {
	s, err := argString(args, key)
	if err != nil {
		return core.Digest{}, err
	}
	d, err := core.DigestFromHex(s)
	if err != nil {
		return core.Digest{}, fmt.Errorf("arg %q: %w", key, err)
	}
	return d, nil
}

// argSlot decodes an owner slot arg, rejecting out-of-range values.
func argSlot(args core.Object) (uint32, error) {
	n, err := argInt(args, "slot")
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(^uint32(0)) {
		return 0, fmt.Errorf("arg \"slot\": out of range: %d", n)
	}
	return uint32(n), nil
}
