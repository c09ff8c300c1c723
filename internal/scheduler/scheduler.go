// Package scheduler implements the per-account recurring-order engine.
//
// Each account owns an ordered collection of recurring-order records. The
// scheduler decides, given a caller-supplied time, whether a specific
// order may fire, and advances order state after firing. It never reads
// the wall clock and never interprets payloads - both belong to the
// account runtime and the external action executor.
//
// Concurrency: the scheduler relies on the runtime's single-writer
// execution model. Every entry point runs atomically to completion; no
// internal locking is needed or performed.
package scheduler

import (
	"context"
	"slices"

	"github.com/hallgrim/keel/internal/core"
)

// Executor is the external action-executor capability. Given an order's
// payload it returns zero or more sub-actions for the account runtime to
// apply. The scheduler does not interpret their content or their domain
// success beyond "call completed" before advancing its own state.
type Executor interface {
	Execute(ctx context.Context, account core.Account, payload core.Payload) ([]core.Action, error)
}

// orderBook holds one account's orders and its id counter.
type orderBook struct {
	orders map[int64]*Order
	nextID int64
}

// Scheduler stores per-account recurring orders and enforces the firing
// eligibility state machine.
type Scheduler struct {
	executor Executor
	accounts map[core.Account]*orderBook
}

// New creates a Scheduler delegating to the given action executor.
func New(executor Executor) *Scheduler {
	return &Scheduler{
		executor: executor,
		accounts: make(map[core.Account]*orderBook),
	}
}

func (s *Scheduler) book(account core.Account) *orderBook {
	b, ok := s.accounts[account]
	if !ok {
		b = &orderBook{orders: make(map[int64]*Order)}
		s.accounts[account] = b
	}
	return b
}

// Create allocates the next sequential id for the account (starting at 1)
// and stores a new order record. No validation of interval, maxExecutions
// or startTime happens here - all validity checks are deferred to
// fire-time. Returns the new order id.
func (s *Scheduler) Create(account core.Account, interval, maxExecutions, startTime int64, payload core.Payload) int64 {
	b := s.book(account)
	b.nextID++
	id := b.nextID
	b.orders[id] = &Order{
		ID:            id,
		Interval:      interval,
		MaxExecutions: maxExecutions,
		StartTime:     startTime,
		Payload:       payload,
	}
	return id
}

// Remove deletes the order if present. Idempotent: removing a
// non-existent id is a no-op, not an error. The id counter is unaffected,
// so removed ids are never reallocated.
func (s *Scheduler) Remove(account core.Account, orderID int64) {
	if b, ok := s.accounts[account]; ok {
		delete(b.orders, orderID)
	}
}

// Get returns a copy of the order, and whether it exists.
func (s *Scheduler) Get(account core.Account, orderID int64) (Order, bool) {
	b, ok := s.accounts[account]
	if !ok {
		return Order{}, false
	}
	o, ok := b.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Orders returns copies of all orders for the account, sorted by id.
func (s *Scheduler) Orders(account core.Account) []Order {
	b, ok := s.accounts[account]
	if !ok {
		return nil
	}
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	slices.SortFunc(out, func(a, b Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// CheckEligible returns nil when the order may fire at now. Otherwise it
// returns an *InvalidExecutionError carrying the blocking reason. A
// missing order reports ReasonNotFound.
func (s *Scheduler) CheckEligible(account core.Account, orderID int64, now int64) error {
	b, ok := s.accounts[account]
	if !ok {
		return &InvalidExecutionError{Account: account, OrderID: orderID, Now: now, Reason: ReasonNotFound}
	}
	o, ok := b.orders[orderID]
	if !ok {
		return &InvalidExecutionError{Account: account, OrderID: orderID, Now: now, Reason: ReasonNotFound}
	}
	if reason := o.eligibleReason(now); reason != "" {
		return &InvalidExecutionError{Account: account, OrderID: orderID, Now: now, Reason: reason}
	}
	return nil
}

// Fire executes an eligible order. Effects, in order:
//
//	(a) invoke the external executor with the order's payload
//	(b) set LastExecutionTime = now
//	(c) increment ExecutionsCompleted
//
// The eligibility guard runs first; an ineligible order fails with
// *InvalidExecutionError and no state change. An executor error also
// leaves order state untouched and is propagated as-is. Once the executor
// call completes, the state mutation is unconditional - the scheduler has
// no visibility into whether the sub-actions accomplish anything in a
// domain sense; it only tracks that the slot fired.
//
// Returns the executor's sub-actions for the runtime to apply.
func (s *Scheduler) Fire(ctx context.Context, account core.Account, orderID int64, now int64) ([]core.Action, error) {
	if err := s.CheckEligible(account, orderID, now); err != nil {
		return nil, err
	}

	// CheckEligible passed, so the book and order exist.
	o := s.accounts[account].orders[orderID]

	actions, err := s.executor.Execute(ctx, account, o.Payload)
	if err != nil {
		return nil, err
	}

	o.LastExecutionTime = now
	o.ExecutionsCompleted++
	return actions, nil
}

// ClearAll removes every order for the account and resets its id counter
// to 0, so the next Create allocates id 1 again. Used on module teardown.
func (s *Scheduler) ClearAll(account core.Account) {
	delete(s.accounts, account)
}
