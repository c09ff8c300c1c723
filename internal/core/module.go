package core

// ModuleType classifies an account-extension module by the role it plays
// in the account runtime.
type ModuleType int

const (
	// ModuleTypeValidator modules answer authorization questions.
	ModuleTypeValidator ModuleType = 1

	// ModuleTypeExecutor modules produce actions for the runtime to apply.
	ModuleTypeExecutor ModuleType = 2
)

// String returns the module type name.
func (t ModuleType) String() string {
	switch t {
	case ModuleTypeValidator:
		return "validator"
	case ModuleTypeExecutor:
		return "executor"
	default:
		return "unknown"
	}
}
