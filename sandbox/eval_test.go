package sandbox_test

import (
	"testing"

	"agentrt/allowlist"
	"agentrt/sandbox"
)

func TestEval_ArithmeticHappyPath(t *testing.T) {
	t.Parallel()

	spec := allowlist.Default().Materialize()
	modules := sandbox.BuiltinModules()

	res, err := sandbox.Eval("result = 1 + 2", spec, modules, sandbox.Options{TimeoutMS: 1000})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Rendered != "3" {
		t.Fatalf("expected rendered result 3, got %q", res.Rendered)
	}
}

func TestEval_ParseErrorIsClassifiedAsParsing(t *testing.T) {
	t.Parallel()

	spec := allowlist.Default().Materialize()
	modules := sandbox.BuiltinModules()

	_, err := sandbox.Eval("result = (", spec, modules, sandbox.Options{TimeoutMS: 1000})
	sandboxErr, ok := err.(*sandbox.Error)
	if !ok {
		t.Fatalf("expected *sandbox.Error, got %T: %v", err, err)
	}
	if sandboxErr.Kind != sandbox.ErrorKindParsing {
		t.Fatalf("expected parsing error, got %s", sandboxErr.Kind)
	}
}

func TestEval_RestrictedModuleCallIsClassifiedAsRestricted(t *testing.T) {
	t.Parallel()

	spec := allowlist.Default().Materialize()
	modules := sandbox.BuiltinModules()

	_, err := sandbox.Eval(`result = os.read_file("/etc/passwd")`, spec, modules, sandbox.Options{TimeoutMS: 1000})
	sandboxErr, ok := err.(*sandbox.Error)
	if !ok {
		t.Fatalf("expected *sandbox.Error, got %T: %v", err, err)
	}
	if sandboxErr.Kind != sandbox.ErrorKindRestricted {
		t.Fatalf("expected restricted error, got %s", sandboxErr.Kind)
	}
}

func TestEval_HumanAskIsRestrictedWithoutExplicitGrant(t *testing.T) {
	t.Parallel()

	spec := allowlist.Default().Materialize()
	modules := sandbox.BuiltinModules()

	_, err := sandbox.Eval(`result = human.ask(question="continue?")`, spec, modules, sandbox.Options{
		TimeoutMS:  1000,
		HumanInput: func(string, string) (string, error) { return "yes", nil },
	})
	sandboxErr, ok := err.(*sandbox.Error)
	if !ok {
		t.Fatalf("expected *sandbox.Error, got %T: %v", err, err)
	}
	if sandboxErr.Kind != sandbox.ErrorKindRestricted {
		t.Fatalf("expected restricted error, got %s", sandboxErr.Kind)
	}
}

func TestEval_HumanAskSucceedsOnceGranted(t *testing.T) {
	t.Parallel()

	spec := allowlist.New().Allow("human", allowlist.OnlyOf("ask", "confirm")).Extend(allowlist.Default()).Materialize()
	modules := sandbox.BuiltinModules()

	res, err := sandbox.Eval(`result = human.ask(question="continue?")`, spec, modules, sandbox.Options{
		TimeoutMS:  1000,
		HumanInput: func(kind, question string) (string, error) { return "yes: " + question, nil },
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Rendered != "yes: continue?" {
		t.Fatalf("unexpected rendered result: %q", res.Rendered)
	}
}
