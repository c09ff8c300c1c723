package runtime

import "github.com/hallgrim/keel/internal/core"

// Module is the introspection surface every account-extension module
// exposes to the runtime: stable identity, version, and type
// classification.
type Module interface {
	ModuleID() string
	ModuleVersion() string
	ModuleType() core.ModuleType
}

// ModuleInfo is the serializable description of an installed module.
type ModuleInfo struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Type    string `json:"type"`
}

// describeModule builds the ModuleInfo for a module.
func describeModule(m Module) ModuleInfo {
	return ModuleInfo{
		ID:      m.ModuleID(),
		Version: m.ModuleVersion(),
		Type:    m.ModuleType().String(),
	}
}

// Modules returns descriptions of the modules this runtime hosts, in
// registration order.
func (r *Runtime) Modules() []ModuleInfo {
	out := make([]ModuleInfo, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, describeModule(m))
	}
	return out
}
