// Package harness provides a conformance testing framework for keel
// account modules.
//
// Scenarios are YAML documents that submit operations to a real runtime
// over a fresh in-memory journal, then assert on the journaled trace and
// the final module state. Nothing is manufactured: every outcome in the
// trace was produced by dispatching the operation through the same code
// path production uses.
//
// Determinism comes from three substitutions:
//   - a fixed correlation token (testutil.FixedTokenGenerator)
//   - the stub executor, which returns scripted actions
//   - the stub verifier, which accepts a signature iff it byte-equals
//     the owner credential
//
// With those in place the same scenario always produces a byte-identical
// trace, which is what makes golden-file comparison (golden.go) viable.
package harness
