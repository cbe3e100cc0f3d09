package allowlist

// Default builds the Default Allowlist (DA) used when an agent
// declares no allowlist spec of its own. Module names are those of the
// sandbox's builtin namespace (see package sandbox) rather than any
// host-language standard library, except that list, dict, set, tuple
// and range have no module there, and the namespace's json module has
// no entry here (so its functions are restricted by default). The
// grouping mirrors §4.1:
// arithmetic/logic/comparison, immutable containers, numeric/time/
// encoding/regex/string/binary/bitwise/math helpers, restricted
// introspection, randomness and time reading, and a single sleep
// primitive. No function that converts arbitrary input into an atom
// or symbol is ever exposed, closing the atom-table-exhaustion class
// of attack named in the source system.
func Default() *Spec {
	return New().
		Allow("math", All{}).
		Allow("string", All{}).
		Allow("bytes", All{}).
		Allow("bitwise", All{}).
		Allow("regex", All{}).
		Allow("base64", All{}).
		Allow("uri", All{}).
		Allow("time", ExceptOf("set_system_time")).
		Allow("random", All{}).
		Allow("list", All{}).
		Allow("dict", All{}).
		Allow("set", All{}).
		Allow("tuple", All{}).
		Allow("range", All{}).
		Allow("inspect", OnlyOf("to_string", "size")).
		Allow("process", OnlyOf("sleep"))
}
