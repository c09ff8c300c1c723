package ownable

import "github.com/hallgrim/keel/internal/core"

// Module identity exposed to the account runtime.

// ModuleID returns the stable module identifier.
func (r *Registry) ModuleID() string { return "keel.ownable" }

// ModuleVersion returns the module version.
func (r *Registry) ModuleVersion() string { return "1.0.0" }

// ModuleType classifies the registry as a validator-type module: it
// answers authorization questions and never produces actions.
func (r *Registry) ModuleType() core.ModuleType { return core.ModuleTypeValidator }
