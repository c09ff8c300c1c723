// Package core provides the foundational types for keel.
//
// This package contains type definitions and pure transforms only. All
// other internal packages import core; core imports nothing internal.
// This keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Logical clocks (seq) order the journal; operation time is a separate
//     caller-supplied int64 and never read from the wall clock here
package core
