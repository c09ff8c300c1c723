package store

import (
	"context"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
)

// WriteOperation inserts an operation record into the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored. Other constraint violations still return errors.
//
// Args are serialized to canonical JSON per RFC 8785 for deterministic
// replay.
func (s *Store) WriteOperation(ctx context.Context, op core.Operation) error {
	argsJSON, err := marshalObject(op.Args)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations
		(id, token, account, kind, args, op_time, seq, schema_version, runtime_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		op.ID,
		op.Token,
		string(op.Account),
		op.Kind,
		argsJSON,
		op.OpTime,
		op.Seq,
		op.SchemaVersion,
		op.RuntimeVersion,
	)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}

	return nil
}

// WriteOutcome inserts an outcome record into the journal.
// Uses ON CONFLICT DO NOTHING for idempotency. Each operation has exactly
// ONE outcome (UNIQUE constraint on operation_id), so both a duplicate
// outcome ID and a second outcome for the same operation are silently
// ignored.
//
// Note: the operation referenced by OperationID must exist (foreign key).
func (s *Store) WriteOutcome(ctx context.Context, out core.Outcome) error {
	resultJSON, err := marshalObject(out.Result)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(id, operation_id, output_case, result, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		out.ID,
		out.OperationID,
		out.Case,
		resultJSON,
		out.Seq,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	return nil
}

// WriteFiring inserts an order firing event.
// Returns the row ID and whether a new record was inserted.
//
// Uses ON CONFLICT(account, order_id, seq) DO NOTHING for event-level
// idempotency. If the firing already exists, returns the existing row ID
// and inserted=false.
func (s *Store) WriteFiring(ctx context.Context, f core.Firing) (id int64, inserted bool, err error) {
	// Transaction makes the insert-or-select pair atomic
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write firing: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO firings
		(account, order_id, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(account, order_id, seq) DO NOTHING
	`,
		string(f.Account),
		f.OrderID,
		f.Seq,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write firing: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write firing: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write firing: last insert id: %w", err)
		}
		inserted = true
	} else {
		// Conflict - row already exists, fetch the existing ID
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM firings
			WHERE account = ? AND order_id = ? AND seq = ?
		`, string(f.Account), f.OrderID, f.Seq).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write firing: select existing: %w", err)
		}
		inserted = false
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write firing: commit: %w", err)
	}

	return id, inserted, nil
}

// WriteResolvedAtomic atomically journals an operation, its outcome, and
// any firing events it produced, in a single transaction. This is the
// crash-safe variant of the non-atomic sequence WriteOperation →
// WriteOutcome → WriteFiring, used by the runtime after processing an
// operation to completion.
func (s *Store) WriteResolvedAtomic(ctx context.Context, op core.Operation, out core.Outcome, firings []core.Firing) error {
	argsJSON, err := marshalObject(op.Args)
	if err != nil {
		return fmt.Errorf("write resolved: %w", err)
	}
	resultJSON, err := marshalObject(out.Result)
	if err != nil {
		return fmt.Errorf("write resolved: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write resolved: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO operations
		(id, token, account, kind, args, op_time, seq, schema_version, runtime_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		op.ID, op.Token, string(op.Account), op.Kind, argsJSON,
		op.OpTime, op.Seq, op.SchemaVersion, op.RuntimeVersion,
	); err != nil {
		return fmt.Errorf("write resolved: operation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outcomes
		(id, operation_id, output_case, result, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		out.ID, out.OperationID, out.Case, resultJSON, out.Seq,
	); err != nil {
		return fmt.Errorf("write resolved: outcome: %w", err)
	}

	for _, f := range firings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO firings
			(account, order_id, seq)
			VALUES (?, ?, ?)
			ON CONFLICT(account, order_id, seq) DO NOTHING
		`,
			string(f.Account), f.OrderID, f.Seq,
		); err != nil {
			return fmt.Errorf("write resolved: firing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write resolved: commit: %w", err)
	}

	return nil
}

// HasFiring checks if a firing event already exists for the triple.
// Used for idempotency checks.
func (s *Store) HasFiring(ctx context.Context, account core.Account, orderID, seq int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM firings
		WHERE account = ? AND order_id = ? AND seq = ?
	`, string(account), orderID, seq).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check firing: %w", err)
	}
	return count > 0, nil
}
