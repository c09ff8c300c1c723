package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
)

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (core.Operation, error) {
	var op core.Operation
	var account, argsJSON string

	err := row.Scan(
		&op.ID, &op.Token, &account, &op.Kind, &argsJSON,
		&op.OpTime, &op.Seq, &op.SchemaVersion, &op.RuntimeVersion,
	)
	if err != nil {
		return core.Operation{}, err
	}

	op.Account = core.Account(account)
	op.Args, err = unmarshalObject(argsJSON)
	if err != nil {
		return core.Operation{}, fmt.Errorf("scan operation %s: %w", op.ID, err)
	}
	return op, nil
}

func scanOutcome(row scanner) (core.Outcome, error) {
	var out core.Outcome
	var resultJSON string

	err := row.Scan(&out.ID, &out.OperationID, &out.Case, &resultJSON, &out.Seq)
	if err != nil {
		return core.Outcome{}, err
	}

	out.Result, err = unmarshalObject(resultJSON)
	if err != nil {
		return core.Outcome{}, fmt.Errorf("scan outcome %s: %w", out.ID, err)
	}
	return out, nil
}

const operationColumns = `id, token, account, kind, args, op_time, seq, schema_version, runtime_version`

// ReadAllOperations returns every operation in deterministic journal
// order: ORDER BY seq ASC, id COLLATE BINARY ASC. Used for replay.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadAllOperations(ctx context.Context) ([]core.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all operations: %w", err)
	}
	defer rows.Close()

	operations := []core.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return operations, nil
}

// ReadAccountOperations returns all operations for one account in
// deterministic journal order.
func (s *Store) ReadAccountOperations(ctx context.Context, account core.Account) ([]core.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE account = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, string(account))
	if err != nil {
		return nil, fmt.Errorf("query account operations: %w", err)
	}
	defer rows.Close()

	operations := []core.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return operations, nil
}

// ReadOperation retrieves a single operation by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadOperation(ctx context.Context, id string) (core.Operation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE id = ?
	`, id)
	return scanOperation(row)
}

// ReadOutcomeForOperation retrieves the outcome resolving an operation.
// Returns sql.ErrNoRows if the operation has no outcome yet.
func (s *Store) ReadOutcomeForOperation(ctx context.Context, operationID string) (core.Outcome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operation_id, output_case, result, seq
		FROM outcomes
		WHERE operation_id = ?
	`, operationID)
	return scanOutcome(row)
}

// ReadAllOutcomes returns every outcome in deterministic journal order.
func (s *Store) ReadAllOutcomes(ctx context.Context) ([]core.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation_id, output_case, result, seq
		FROM outcomes
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []core.Outcome{}
	for rows.Next() {
		out, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// ReadAccountFirings returns the firing events for one account, ordered
// by seq then row id (row ids are assigned in insertion order, giving a
// stable tiebreak for equal seq).
func (s *Store) ReadAccountFirings(ctx context.Context, account core.Account) ([]core.Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, order_id, seq
		FROM firings
		WHERE account = ?
		ORDER BY seq ASC, id ASC
	`, string(account))
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []core.Firing{}
	for rows.Next() {
		var f core.Firing
		var acct string
		if err := rows.Scan(&acct, &f.OrderID, &f.Seq); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.Account = core.Account(acct)
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// PendingOperations returns operations that have no outcome yet, in
// deterministic journal order. Used by recovery to find work that was
// journaled but never resolved.
func (s *Store) PendingOperations(ctx context.Context) ([]core.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.token, o.account, o.kind, o.args, o.op_time, o.seq,
		       o.schema_version, o.runtime_version
		FROM operations o
		LEFT JOIN outcomes r ON o.id = r.operation_id
		WHERE r.id IS NULL
		ORDER BY o.seq ASC, o.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending operations: %w", err)
	}
	defer rows.Close()

	operations := []core.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending operations: %w", err)
	}
	return operations, nil
}

// LastSeq returns the highest seq number used anywhere in the journal.
// Used to resume the logical clock from the correct position.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(v) FROM (
			SELECT COALESCE(MAX(seq), 0) AS v FROM operations
			UNION ALL
			SELECT COALESCE(MAX(seq), 0) FROM outcomes
			UNION ALL
			SELECT COALESCE(MAX(seq), 0) FROM firings
		)
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// ListAccounts returns all distinct accounts in the journal, ordered
// alphabetically. Used by inspection commands.
func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT account FROM operations
		ORDER BY account
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, core.Account(a))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// IsNotFound reports whether the error is the store's "no such row" error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
