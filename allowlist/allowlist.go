// Package allowlist implements the composable per-module permission
// spec (C1): a map from module identifier to a permission shape that
// resolves (module, function, arity) calls to Allowed or Restricted.
package allowlist

// Permission is the closed set of shapes a module entry may take.
// Any other shape is treated as Restricted by Resolve.
type Permission interface {
	isPermission()
}

// All permits every exported function on the module.
type All struct{}

func (All) isPermission() {}

// Only permits exactly the named functions.
type Only struct {
	Functions map[string]struct{}
}

func (Only) isPermission() {}

// Except permits every exported function except the named ones.
type Except struct {
	Functions map[string]struct{}
}

func (Except) isPermission() {}

// OnlyOf is a convenience constructor for Only from a variadic list.
func OnlyOf(functions ...string) Only {
	set := make(map[string]struct{}, len(functions))
	for _, f := range functions {
		set[f] = struct{}{}
	}
	return Only{Functions: set}
}

// ExceptOf is a convenience constructor for Except from a variadic list.
func ExceptOf(functions ...string) Except {
	set := make(map[string]struct{}, len(functions))
	for _, f := range functions {
		set[f] = struct{}{}
	}
	return Except{Functions: set}
}

// ModuleExports resolves whether a function name is exported by a
// module, independent of any allowlist decision. Sandbox adapters
// supply the concrete lookup (e.g. the Starlark builtin registry).
type ModuleExports func(module, function string) bool

// Decision is the outcome of resolving a single call.
type Decision struct {
	Allowed bool
	Message string
}

// Spec is a composable, builder-style allowlist: each Allow call sets
// a module's entry, and Extend records a parent spec without eagerly
// merging. Materialize() builds the merged map on demand, with
// child entries fully overriding a module's permission rather than
// unioning function sets — matching the composition contract tested by
// S-series scenarios in the originating system.
type Spec struct {
	entries map[string]Permission
	order   []string
	parent  *Spec
}

// New returns an empty, unextended spec.
func New() *Spec {
	return &Spec{entries: make(map[string]Permission)}
}

// Extend returns a new spec whose Materialize() merges base's materialized
// map with this spec's own declared entries, child winning per module.
func (s *Spec) Extend(base *Spec) *Spec {
	return &Spec{
		entries: s.cloneEntries(),
		order:   append([]string(nil), s.order...),
		parent:  base,
	}
}

func (s *Spec) cloneEntries() map[string]Permission {
	out := make(map[string]Permission, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Allow sets module's permission, appending it if new.
func (s *Spec) Allow(module string, permission Permission) *Spec {
	if _, exists := s.entries[module]; !exists {
		s.order = append(s.order, module)
	}
	s.entries[module] = permission
	return s
}

// Materialize returns the fully merged module → permission map,
// applying the parent chain first and this spec's entries last.
func (s *Spec) Materialize() map[string]Permission {
	merged := make(map[string]Permission)
	if s.parent != nil {
		for k, v := range s.parent.Materialize() {
			merged[k] = v
		}
	}
	for _, module := range s.order {
		merged[module] = s.entries[module]
	}
	return merged
}

// Resolve implements the default decision procedure of §4.1: module
// lookup, then a permission-shape-specific function check, with
// arity accepted but ignored (authorization is function-name-level).
func Resolve(spec map[string]Permission, exports ModuleExports, module, function string, arity int) Decision {
	permission, ok := spec[module]
	if !ok {
		return Decision{Allowed: false, Message: "module " + module + " is restricted"}
	}

	switch p := permission.(type) {
	case All:
		if !exports(module, function) {
			return restrictedFunction(module, function)
		}
		return Decision{Allowed: true}
	case Only:
		if _, allowed := p.Functions[function]; !allowed || !exports(module, function) {
			return restrictedFunction(module, function)
		}
		return Decision{Allowed: true}
	case Except:
		if _, denied := p.Functions[function]; denied || !exports(module, function) {
			return restrictedFunction(module, function)
		}
		return Decision{Allowed: true}
	default:
		return restrictedFunction(module, function)
	}
}

func restrictedFunction(module, function string) Decision {
	return Decision{Allowed: false, Message: "function " + module + "." + function + " is restricted"}
}
