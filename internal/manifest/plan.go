package manifest

import (
	"encoding/hex"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/runtime"
)

// Plan translates a manifest into the setup operations that realize it.
//
// Ordering is fixed: install the initial owner, add extra owners in
// declaration order, then create orders in declaration order. The
// scheduler allocates order ids sequentially, so the n-th declared order
// gets id n+1.
//
// Plan does not validate; callers run Validate first.
func Plan(m *Manifest) []runtime.Request {
	reqs := make([]runtime.Request, 0, 1+len(m.ExtraOwners)+len(m.Orders))

	reqs = append(reqs, runtime.Request{
		Account: m.Account,
		Kind:    runtime.KindOwnersInstall,
		Args:    core.Object{"owner": core.String(m.Owner.Hex())},
		OpTime:  m.SetupTime,
	})

	for _, o := range m.ExtraOwners {
		reqs = append(reqs, runtime.Request{
			Account: m.Account,
			Kind:    runtime.KindOwnersAddOwner,
			Args: core.Object{
				"slot":  core.Int(int64(o.Slot)),
				"owner": core.String(o.Credential.Hex()),
			},
			OpTime: m.SetupTime,
		})
	}

	for _, o := range m.Orders {
		reqs = append(reqs, runtime.Request{
			Account: m.Account,
			Kind:    runtime.KindSchedulerCreate,
			Args: core.Object{
				"interval":       core.Int(o.Interval),
				"max_executions": core.Int(o.MaxExecutions),
				"start_time":     core.Int(o.StartTime),
				"payload":        core.String(hex.EncodeToString(o.Payload)),
			},
			OpTime: m.SetupTime,
		})
	}

	return reqs
}
