package scheduler

import "github.com/hallgrim/keel/internal/core"

// Module identity exposed to the account runtime.

// ModuleID returns the stable module identifier.
func (s *Scheduler) ModuleID() string { return "keel.scheduler" }

// ModuleVersion returns the module version.
func (s *Scheduler) ModuleVersion() string { return "1.0.0" }

// ModuleType classifies the scheduler as an executor-type module: it
// produces sub-actions for the runtime to apply.
func (s *Scheduler) ModuleType() core.ModuleType { return core.ModuleTypeExecutor }
