// Package sandbox implements the AST analyzer (C2) and evaluator (C3):
// a parsed-and-translated Starlark program is authorized against a
// composable allowlist (package allowlist) and, if authorized,
// evaluated with a hard wall-clock deadline.
package sandbox

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"agentrt/allowlist"
)

// ErrorKind classifies a sandbox failure by the recovery policy table
// of §7.
type ErrorKind string

const (
	ErrorKindParsing    ErrorKind = "parsing"
	ErrorKindRestricted ErrorKind = "restricted"
	ErrorKindException  ErrorKind = "exception"
	ErrorKindThrow      ErrorKind = "throw"
	ErrorKindExit       ErrorKind = "exit"
	ErrorKindTimeout    ErrorKind = "timeout"
)

// Error is the uniform failure shape the executor loop dispatches on.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// HumanInputFunc services a sandboxed human_input(question, kind) call.
// It is expected to block until a human supplies (or the run is
// cancelled for) an answer. The caller (package server) owns keeping
// its own message loop responsive while this blocks, since it runs on
// the evaluation's own goroutine rather than the server's.
type HumanInputFunc func(kind, question string) (string, error)

const humanInputThreadLocal = "agentrt.human_input"

// Options bounds a single evaluation.
type Options struct {
	TimeoutMS  int
	Aliases    map[string]string
	HumanInput HumanInputFunc
}

// Result is a successful evaluation's value, already in the
// language-neutral pretty-printed form the executor feeds back to the
// LLM (§4.6's result-formatting contract).
type Result struct {
	Value    starlark.Value
	Rendered string
}

// Eval runs the full C3 pipeline: parse, alias-resolve, analyze,
// evaluate-with-timeout. modules is the predeclared namespace (see
// BuiltinModules); Eval adds the alias bindings and, when
// opts.HumanInput is set, the human module.
//
// The timeout clock pauses while a human_input call is outstanding:
// that wait is bounded by a human responding, a concern the agent
// server (C7) owns, not the sandbox's own compute deadline.
func Eval(source string, spec map[string]allowlist.Permission, modules starlark.StringDict, opts Options) (Result, error) {
	file, err := syntax.Parse("sandbox.star", source, 0)
	if err != nil {
		return Result{}, &Error{Kind: ErrorKindParsing, Message: err.Error()}
	}

	translated := TranslateFile(file)

	// The human module, when available, must be part of the namespace
	// the exports check and the allowlist see before authorization
	// runs — otherwise a descriptor that explicitly grants "human" in
	// its allowlist could never actually call it, since exports would
	// report the module as absent.
	predeclared := withAliasBindings(modules, opts.Aliases)
	if opts.HumanInput != nil {
		predeclared = withHumanModule(predeclared)
	}

	exports := ModuleExports(predeclared)
	if err := Analyze(translated, spec, exports, opts.Aliases); err != nil {
		return Result{}, &Error{Kind: ErrorKindRestricted, Message: err.Error()}
	}

	timeoutMS := opts.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}

	type outcome struct {
		values starlark.StringDict
		err    error
	}
	done := make(chan outcome, 1)
	thread := &starlark.Thread{Name: "sandbox"}
	var paused int32
	if opts.HumanInput != nil {
		thread.SetLocal(humanInputThreadLocal, pausingHumanInput(opts.HumanInput, &paused))
	}

	go func() {
		values, err := starlark.ExecFile(thread, "sandbox.star", source, predeclared)
		done <- outcome{values: values, err: err}
	}()

	remaining := time.Duration(timeoutMS) * time.Millisecond
	const tick = 50 * time.Millisecond
	for {
		select {
		case o := <-done:
			if o.err != nil {
				return Result{}, classifyEvalError(o.err)
			}
			return renderResult(o.values), nil
		case <-time.After(tick):
			if atomic.LoadInt32(&paused) == 0 {
				remaining -= tick
			}
			if remaining <= 0 {
				thread.Cancel("execution timed out")
				<-done
				return Result{}, &Error{
					Kind:    ErrorKindTimeout,
					Message: fmt.Sprintf("Execution timed out after %dms", timeoutMS),
				}
			}
		}
	}
}

func pausingHumanInput(fn HumanInputFunc, paused *int32) HumanInputFunc {
	return func(kind, question string) (string, error) {
		atomic.AddInt32(paused, 1)
		defer atomic.AddInt32(paused, -1)
		return fn(kind, question)
	}
}

func withHumanModule(modules starlark.StringDict) starlark.StringDict {
	out := make(starlark.StringDict, len(modules)+1)
	for k, v := range modules {
		out[k] = v
	}
	out["human"] = &starlarkstruct.Module{
		Name: "human",
		Members: starlark.StringDict{
			"ask":     humanInputBuiltin("ask"),
			"confirm": humanInputBuiltin("confirm"),
		},
	}
	return out
}

func humanInputBuiltin(kind string) starlark.Value {
	return builtin("human."+kind, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var question string
		if err := starlark.UnpackArgs(kind, args, kwargs, "question", &question); err != nil {
			return nil, err
		}
		fn, _ := thread.Local(humanInputThreadLocal).(HumanInputFunc)
		if fn == nil {
			return nil, fmt.Errorf("human.%s is not available in this evaluation", kind)
		}
		answer, err := fn(kind, question)
		if err != nil {
			return nil, err
		}
		return starlark.String(answer), nil
	})
}

// withAliasBindings predeclares each alias short name as a reference
// to its full module's already-predeclared value. This realizes the
// effect of §4.3 step 2 (injecting alias bindings ahead of user code)
// without literally rewriting the AST handed to the Starlark
// evaluator, since ExecFile evaluates source text rather than a tree
// this package controls; the analyzer still sees and resolves the
// alias via the same map (see Analyze's aliases parameter), so the
// two layers stay consistent.
func withAliasBindings(modules starlark.StringDict, aliases map[string]string) starlark.StringDict {
	if len(aliases) == 0 {
		return modules
	}
	out := make(starlark.StringDict, len(modules)+len(aliases))
	for k, v := range modules {
		out[k] = v
	}
	for short, full := range aliases {
		if target, ok := modules[full]; ok {
			out[short] = target
		}
	}
	return out
}

func classifyEvalError(err error) *Error {
	switch err.(type) {
	case *starlark.EvalError:
		return &Error{Kind: ErrorKindException, Message: err.Error()}
	default:
		return &Error{Kind: ErrorKindExit, Message: err.Error()}
	}
}

func renderResult(values starlark.StringDict) Result {
	result, ok := values["result"]
	if !ok {
		return Result{Value: starlark.None, Rendered: "None"}
	}
	return Result{Value: result, Rendered: Inspect(result, 4, 80)}
}
