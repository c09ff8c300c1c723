package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/ownable"
	"github.com/hallgrim/keel/internal/scheduler"
	"github.com/hallgrim/keel/internal/store"
)

// Request is one account operation submitted to the runtime.
//
// OpTime is the caller-supplied logical timestamp in seconds. Modules never
// consult the wall clock; every temporal decision derives from this field.
type Request struct {
	Account core.Account
	Kind    string
	Args    core.Object
	OpTime  int64
}

// Runtime is the single-writer operation loop for a keel deployment.
//
// Requests are processed in FIFO order by exactly one goroutine. Each
// request is assigned a token and sequence number, dispatched to the
// owning module, and journaled atomically with its outcome.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run() / Drain(): must be called from exactly one goroutine
//
// All module state mutation and store writes happen inside the loop
// goroutine; that single-writer guarantee is what makes journals
// replayable.
type Runtime struct {
	store    *store.Store
	clock    *Clock
	queue    *opQueue
	tokens   TokenGenerator
	dispatch *dispatcher
	modules  []Module
	logger   *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock seeds the runtime with a pre-positioned logical clock.
// Used when resuming against an existing journal.
func WithClock(c *Clock) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithTokenGenerator overrides the UUIDv7 default. Tests use
// testutil.FixedTokenGenerator for stable journal ids.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(r *Runtime) {
		r.tokens = g
	}
}

// New creates a Runtime over the given journal store and modules.
func New(st *store.Store, sched *scheduler.Scheduler, owners *ownable.Registry, opts ...Option) *Runtime {
	r := &Runtime{
		store:    st,
		clock:    NewClock(),
		queue:    newOpQueue(),
		tokens:   UUIDv7Generator{},
		dispatch: &dispatcher{sched: sched, owners: owners},
		modules:  []Module{sched, owners},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Submit enqueues a request for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the runtime has been stopped.
func (r *Runtime) Submit(req Request) bool {
	return r.queue.Enqueue(req)
}

// Run starts the single-writer loop. Blocks until the context is
// cancelled or Stop() is called.
//
// On processing failure the error is logged with full request context and
// the loop continues. Retrying would make replay non-deterministic, so
// failed operations are left for operators to resubmit.
func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("runtime starting")

	for {
		req, ok := r.queue.TryDequeue()
		if ok {
			if err := r.process(ctx, req); err != nil {
				r.logger.Error("operation failed",
					"account", req.Account,
					"kind", req.Kind,
					"op_time", req.OpTime,
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runtime stopping: context cancelled")
			r.queue.Close()
			return ctx.Err()

		case <-r.queue.Wait():
			// Signal channel closes when the queue is closed, so this
			// case fires immediately on shutdown.
			if r.queue.Len() == 0 {
				r.logger.Info("runtime stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the runtime.
// Closes the queue, which causes Run() to return once drained.
func (r *Runtime) Stop() {
	r.queue.Close()
}

// Drain processes every queued request and returns. Used by the CLI and
// the scenario harness, where requests are submitted up front and the
// caller wants completion rather than a long-running loop.
//
// Must be called from the same goroutine that would own Run().
func (r *Runtime) Drain(ctx context.Context) error {
	for {
		req, ok := r.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := r.process(ctx, req); err != nil {
			return err
		}
	}
}

// process journals one request: assign token and sequence, dispatch to
// the owning module, journal operation plus outcome atomically.
//
// Called only from the loop goroutine.
func (r *Runtime) process(ctx context.Context, req Request) error {
	token := r.tokens.Generate()
	opSeq := r.clock.Next()

	args := req.Args
	if args == nil {
		args = core.Object{}
	}

	opID, err := core.OperationID(token, req.Account, req.Kind, args, req.OpTime, opSeq)
	if err != nil {
		return fmt.Errorf("operation id: %w", err)
	}

	op := core.Operation{
		ID:             opID,
		Token:          token,
		Account:        req.Account,
		Kind:           req.Kind,
		Args:           args,
		OpTime:         req.OpTime,
		Seq:            opSeq,
		SchemaVersion:  core.SchemaVersion,
		RuntimeVersion: core.RuntimeVersion,
	}

	r.logger.Debug("processing operation",
		"id", op.ID,
		"kind", op.Kind,
		"account", op.Account,
		"seq", op.Seq,
	)

	outputCase, result, fired, err := r.dispatch.dispatch(ctx, req.Account, req.Kind, args, req.OpTime)
	if err != nil {
		// Infrastructure failure: journal the operation alone so it is
		// visible via PendingOperations, then surface the error.
		if werr := r.store.WriteOperation(ctx, op); werr != nil {
			return fmt.Errorf("write failed operation %s: %w", op.ID, werr)
		}
		return fmt.Errorf("dispatch %s: %w", op.Kind, err)
	}

	outSeq := r.clock.Next()
	outID, err := core.OutcomeID(op.ID, outputCase, result, outSeq)
	if err != nil {
		return fmt.Errorf("outcome id: %w", err)
	}

	out := core.Outcome{
		ID:          outID,
		OperationID: op.ID,
		Case:        outputCase,
		Result:      result,
		Seq:         outSeq,
	}

	firings := make([]core.Firing, 0, len(fired))
	for _, orderID := range fired {
		firings = append(firings, core.Firing{
			Account: req.Account,
			OrderID: orderID,
			Seq:     outSeq,
		})
	}

	if err := r.store.WriteResolvedAtomic(ctx, op, out, firings); err != nil {
		return fmt.Errorf("journal operation %s: %w", op.ID, err)
	}

	r.logger.Info("operation resolved",
		"id", op.ID,
		"kind", op.Kind,
		"case", out.Case,
	)

	return nil
}
