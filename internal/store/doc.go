// Package store provides SQLite-backed durable storage for the keel journal.
//
// The store implements an append-only log with:
//   - Operations: runtime operation records
//   - Outcomes: operation outcome records (exactly one per operation)
//   - Firings: order firing events (with event-level idempotency)
//
// # Critical Patterns
//
// Idempotent writes
//   - Content-addressed IDs with ON CONFLICT DO NOTHING
//   - UNIQUE(account, order_id, seq) on firings prevents duplicate events
//
// Logical identity and time
//   - All ordering uses seq INTEGER (logical clock), NEVER wall time
//   - op_time is caller-supplied data, not an ordering key
//
// Deterministic query results
//   - All queries MUST include: ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Ensures identical results across replays
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All content-addressed IDs are computed via functions in internal/core/hash.go
// using RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
