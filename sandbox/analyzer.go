package sandbox

import (
	"fmt"

	"agentrt/allowlist"
	sandboxast "agentrt/ast"
)

// RestrictedError is returned by Analyze for the first violation found
// during a pre-order traversal of the AST.
type RestrictedError struct {
	Message string
}

func (e *RestrictedError) Error() string {
	return e.Message
}

// blockedPrimitives is the closed, non-extensible set of module/
// function pairs denied regardless of allowlist (§4.2). The analyzer
// refuses to let any caller append to this list at runtime — it is a
// package-level literal, not configuration.
var blockedPrimitives = map[string]struct{}{
	"apply":          {},
	"spawn":          {},
	"spawn_link":     {},
	"spawn_monitor":  {},
	"spawn_opt":      {},
	"send":           {},
	"send_nosuspend": {},
	"exit":           {},
	"halt":           {},
	"eval_string":    {},
	"compile_string": {},
}

// blockedModules is the full-module denylist irrespective of allowlist.
var blockedModules = map[string]struct{}{
	"os":           {},
	"file":         {},
	"filelib":      {},
	"filename":     {},
	"path":         {},
	"port":         {},
	"node":         {},
	"agent_proc":   {},
	"gen_server":   {},
	"supervisor":   {},
	"task":         {},
	"registry":     {},
	"dynamic_sup":  {},
	"net_tcp":      {},
	"net_udp":      {},
	"net_sctp":     {},
	"ssl":          {},
	"http_client":  {},
	"http_server":  {},
	"ssh":          {},
	"evaluator":    {},
	"parser":       {},
	"compiler":     {},
}

// Analyze walks node in pre-order and returns the first violation it
// finds, or nil if the program is authorized under spec and aliases.
// aliases maps an alias short name to the full module name it
// resolves to, as injected by the sandbox's own alias-injection step;
// spec is the materialized allowlist to authorize calls against.
func Analyze(node sandboxast.Node, spec map[string]allowlist.Permission, exports allowlist.ModuleExports, aliases map[string]string) error {
	switch n := node.(type) {
	case sandboxast.Block:
		for _, stmt := range n.Stmts {
			if err := Analyze(stmt, spec, exports, aliases); err != nil {
				return err
			}
		}
		return nil

	case sandboxast.Form:
		if n.Kind == sandboxast.FormAlias {
			return &RestrictedError{Message: "alias is not allowed in sandbox"}
		}
		return &RestrictedError{Message: string(n.Kind) + " is not allowed in sandbox"}

	case sandboxast.InjectedAlias:
		return nil

	case sandboxast.Local:
		if _, blocked := blockedPrimitives[n.Name]; blocked {
			return &RestrictedError{Message: fmt.Sprintf("function %s/%d is restricted", n.Name, len(n.Args))}
		}
		for _, arg := range n.Args {
			if err := Analyze(arg, spec, exports, aliases); err != nil {
				return err
			}
		}
		return nil

	case sandboxast.Call:
		module, err := resolveModule(n.Callee, aliases)
		if err != nil {
			return err
		}
		if _, blocked := blockedModules[module]; blocked {
			return &RestrictedError{Message: "module " + module + " is restricted"}
		}
		decision := allowlist.Resolve(spec, exports, module, n.Function, len(n.Args))
		if !decision.Allowed {
			return &RestrictedError{Message: decision.Message}
		}
		for _, arg := range n.Args {
			if err := Analyze(arg, spec, exports, aliases); err != nil {
				return err
			}
		}
		return nil

	case sandboxast.Capture:
		return analyzeCapture(n, spec, exports, aliases)

	default:
		return nil
	}
}

func analyzeCapture(c sandboxast.Capture, spec map[string]allowlist.Permission, exports allowlist.ModuleExports, aliases map[string]string) error {
	if c.Local != "" {
		if _, blocked := blockedPrimitives[c.Local]; blocked {
			return &RestrictedError{Message: fmt.Sprintf("function %s/%d is restricted", c.Local, c.Arity)}
		}
		return nil
	}

	module, err := resolveModule(c.Callee, aliases)
	if err != nil {
		return err
	}
	if _, blocked := blockedModules[module]; blocked {
		return &RestrictedError{Message: "module " + module + " is restricted"}
	}
	decision := allowlist.Resolve(spec, exports, module, c.Function, c.Arity)
	if !decision.Allowed {
		return &RestrictedError{Message: decision.Message}
	}
	return nil
}

func resolveModule(callee sandboxast.Callee, aliases map[string]string) (string, error) {
	if callee.Module != nil {
		return callee.Module.Name, nil
	}
	if len(callee.Alias) == 0 {
		return "", &RestrictedError{Message: "call has no resolvable module"}
	}
	name := callee.Alias[0]
	if full, ok := aliases[name]; ok {
		return full, nil
	}
	return name, nil
}
