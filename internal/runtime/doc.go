// Package runtime hosts the account-extension modules behind a
// single-writer operation loop.
//
// Callers submit Requests from any goroutine; one loop goroutine assigns
// each a correlation token and logical sequence number, dispatches it to
// the owning module, and journals the operation together with its
// outcome in a single SQLite transaction. Domain rejections are journaled
// outcome cases, so replaying a journal against fresh module state
// reproduces it byte for byte (see Replay).
package runtime
