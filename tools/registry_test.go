package tools_test

import (
	"context"
	"fmt"
	"testing"

	"go.starlark.net/starlark"

	"agentrt/tools"
	"agentrt/vault"
)

func TestTool_ModuleInvokesHandlerWithKeywordArgsAndOptions(t *testing.T) {
	t.Parallel()

	v := vault.New()
	v.SetAll(map[string]map[string]any{"search": {"base_url": "https://example.test"}})

	var gotArgs map[string]any
	var gotOptions map[string]any
	tool := tools.New("search", v).Register("query", func(_ context.Context, args map[string]any, options map[string]any) (any, error) {
		gotArgs = args
		gotOptions = options
		return "ok", nil
	})

	thread := &starlark.Thread{Name: "test"}
	predeclared := starlark.StringDict{"search": tool.Module()}
	result, err := starlark.ExecFile(thread, "tool_test.star", `result = search.query(term="widgets")`, predeclared)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if result["result"].(starlark.String) != "ok" {
		t.Fatalf("unexpected result: %v", result["result"])
	}
	if gotArgs["term"] != "widgets" {
		t.Fatalf("unexpected args: %+v", gotArgs)
	}
	if gotOptions["base_url"] != "https://example.test" {
		t.Fatalf("unexpected options: %+v", gotOptions)
	}
}

func TestTool_ModuleRejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	tool := tools.New("search", nil).Register("query", func(context.Context, map[string]any, map[string]any) (any, error) {
		return nil, nil
	})

	thread := &starlark.Thread{Name: "test"}
	predeclared := starlark.StringDict{"search": tool.Module()}
	_, err := starlark.ExecFile(thread, "tool_test.star", `result = search.query("widgets")`, predeclared)
	if err == nil {
		t.Fatalf("expected error for positional argument call")
	}
}

func TestTool_ModulePropagatesHandlerError(t *testing.T) {
	t.Parallel()

	tool := tools.New("search", nil).Register("query", func(context.Context, map[string]any, map[string]any) (any, error) {
		return nil, fmt.Errorf("upstream unavailable")
	})

	thread := &starlark.Thread{Name: "test"}
	predeclared := starlark.StringDict{"search": tool.Module()}
	_, err := starlark.ExecFile(thread, "tool_test.star", `result = search.query(term="widgets")`, predeclared)
	if err == nil {
		t.Fatalf("expected handler error to propagate")
	}
}
