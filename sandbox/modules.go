package sandbox

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"agentrt/allowlist"
)

// BuiltinModules returns the module namespace predeclared into every
// sandbox evaluation before any tool-contributed module is added.
// math, time, and json/encoding reuse go.starlark.net's own library
// modules; the remaining Default Allowlist groups (§4.1) have no
// ready-made Starlark equivalent and are implemented here as thin
// starlarkstruct.Module wrappers over Go's standard library, named the
// way the source system's default catalog names them.
func BuiltinModules() starlark.StringDict {
	return starlark.StringDict{
		"math":    starlarkmath.Module,
		"time":    starlarktime.Module,
		"json":    starlarkjson.Module,
		"string":  stringModule(),
		"bytes":   bytesModule(),
		"bitwise": bitwiseModule(),
		"base64":  base64Module(),
		"uri":     uriModule(),
		"regex":   regexModule(),
		"random":  randomModule(),
		"inspect": inspectModule(),
		"process": processModule(),
	}
}

// ModuleExports reports whether name is an exported attribute of the
// given predeclared module value. Non-HasAttrs values (plain data)
// export nothing, matching the "name must exist as an exported
// function" invariant of §4.1.
func ModuleExports(predeclared starlark.StringDict) allowlist.ModuleExports {
	return func(module, function string) bool {
		value, ok := predeclared[module]
		if !ok {
			return false
		}
		attrs, ok := value.(starlark.HasAttrs)
		if !ok {
			return false
		}
		for _, name := range attrs.AttrNames() {
			if name == function {
				return true
			}
		}
		return false
	}
}

func builtin(name string, fn func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)) starlark.Value {
	return starlark.NewBuiltin(name, fn)
}

func errWrongArgCount(name string, want, got int) error {
	return fmt.Errorf("%s: want %d positional argument(s), got %d", name, want, got)
}

func stringModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "string",
		Members: starlark.StringDict{
			"upper": builtin("string.upper", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("upper", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.String(strings.ToUpper(s)), nil
			}),
			"lower": builtin("string.lower", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("lower", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.String(strings.ToLower(s)), nil
			}),
			"split": builtin("string.split", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s, sep string
				if err := starlark.UnpackArgs("split", args, nil, "s", &s, "sep", &sep); err != nil {
					return nil, err
				}
				parts := strings.Split(s, sep)
				elems := make([]starlark.Value, len(parts))
				for i, p := range parts {
					elems[i] = starlark.String(p)
				}
				return starlark.NewList(elems), nil
			}),
			"trim": builtin("string.trim", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("trim", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.String(strings.TrimSpace(s)), nil
			}),
		},
	}
}

func bytesModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "bytes",
		Members: starlark.StringDict{
			"length": builtin("bytes.length", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("length", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.MakeInt(len(s)), nil
			}),
		},
	}
}

func bitwiseModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "bitwise",
		Members: starlark.StringDict{
			"and": builtin("bitwise.and", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var a, b int
				if err := starlark.UnpackArgs("and", args, nil, "a", &a, "b", &b); err != nil {
					return nil, err
				}
				return starlark.MakeInt(a & b), nil
			}),
			"or": builtin("bitwise.or", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var a, b int
				if err := starlark.UnpackArgs("or", args, nil, "a", &a, "b", &b); err != nil {
					return nil, err
				}
				return starlark.MakeInt(a | b), nil
			}),
			"xor": builtin("bitwise.xor", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var a, b int
				if err := starlark.UnpackArgs("xor", args, nil, "a", &a, "b", &b); err != nil {
					return nil, err
				}
				return starlark.MakeInt(a ^ b), nil
			}),
		},
	}
}

func base64Module() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "base64",
		Members: starlark.StringDict{
			"encode": builtin("base64.encode", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("encode", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.String(base64.StdEncoding.EncodeToString([]byte(s))), nil
			}),
			"decode": builtin("base64.decode", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("decode", args, nil, "s", &s); err != nil {
					return nil, err
				}
				decoded, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return nil, err
				}
				return starlark.String(decoded), nil
			}),
		},
	}
}

func uriModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "uri",
		Members: starlark.StringDict{
			"encode": builtin("uri.encode", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("encode", args, nil, "s", &s); err != nil {
					return nil, err
				}
				return starlark.String(url.QueryEscape(s)), nil
			}),
			"decode": builtin("uri.decode", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var s string
				if err := starlark.UnpackArgs("decode", args, nil, "s", &s); err != nil {
					return nil, err
				}
				decoded, err := url.QueryUnescape(s)
				if err != nil {
					return nil, err
				}
				return starlark.String(decoded), nil
			}),
		},
	}
}

func regexModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "regex",
		Members: starlark.StringDict{
			"match": builtin("regex.match", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var pattern, s string
				if err := starlark.UnpackArgs("match", args, nil, "pattern", &pattern, "s", &s); err != nil {
					return nil, err
				}
				re, err := regexp.Compile(pattern)
				if err != nil {
					return nil, err
				}
				return starlark.Bool(re.MatchString(s)), nil
			}),
		},
	}
}

func randomModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "random",
		Members: starlark.StringDict{
			"uniform": builtin("random.uniform", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				return starlark.Float(rand.Float64()), nil
			}),
		},
	}
}

func inspectModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "inspect",
		Members: starlark.StringDict{
			"to_string": builtin("inspect.to_string", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				if len(args) != 1 {
					return nil, errWrongArgCount("to_string", 1, len(args))
				}
				return starlark.String(args[0].String()), nil
			}),
			"size": builtin("inspect.size", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				if len(args) != 1 {
					return starlark.MakeInt(0), nil
				}
				if seq, ok := args[0].(starlark.Sequence); ok {
					return starlark.MakeInt(seq.Len()), nil
				}
				return starlark.MakeInt(len(args[0].String())), nil
			}),
		},
	}
}

// maxSleepMS caps a single process.sleep call. A native builtin blocks
// outside the bytecode interpreter, where Starlark's own cancellation
// checks run, so a sandbox timeout cannot interrupt a sleep in
// progress; capping the duration keeps a single call from being able
// to outlast the evaluator's own deadline on its own.
const maxSleepMS = 5000

// processModule exposes only sleep, the single process-related
// operation the default allowlist permits.
func processModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "process",
		Members: starlark.StringDict{
			"sleep": builtin("process.sleep", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
				var ms int
				if err := starlark.UnpackArgs("sleep", args, nil, "ms", &ms); err != nil {
					return nil, err
				}
				if ms < 0 {
					ms = 0
				}
				if ms > maxSleepMS {
					ms = maxSleepMS
				}
				time.Sleep(time.Duration(ms) * time.Millisecond)
				return starlark.None, nil
			}),
		},
	}
}
