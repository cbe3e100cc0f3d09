package mcp_test

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	adapter "agentrt/adapters/tools/mcp"
)

type fakeLister struct {
	result *mcp.ListToolsResult
	err    error
}

func (f fakeLister) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return f.result, f.err
}

type fakeCaller struct {
	lastRequest mcp.CallToolRequest
	result      *mcp.CallToolResult
	err         error
}

func (f *fakeCaller) CallTool(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastRequest = request
	return f.result, f.err
}

func TestCatalog_ListBuildsToolAndDescriptor(t *testing.T) {
	t.Parallel()

	lister := fakeLister{result: &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{
				Name:        "files.read",
				Description: "reads a file by path",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]any{"path": map[string]any{"type": "string"}},
					Required:   []string{"path"},
				},
			},
		},
	}}
	caller := &fakeCaller{result: &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "file contents"}},
	}}

	catalog := adapter.New("fs", lister, caller, nil)
	tool, descriptor, err := catalog.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(descriptor.Functions) != 1 || descriptor.Functions[0].Name != "read" {
		t.Fatalf("unexpected descriptor functions: %+v", descriptor.Functions)
	}

	module := tool.Module()
	handler, ok := module.Members["read"]
	if !ok {
		t.Fatal("expected module to predeclare read")
	}
	_ = handler

	if caller.lastRequest.Params.Name != "" {
		t.Fatalf("expected no call yet, got %q", caller.lastRequest.Params.Name)
	}
}

func TestCatalog_ListPropagatesListError(t *testing.T) {
	t.Parallel()

	catalog := adapter.New("fs", fakeLister{err: errBoom{}}, &fakeCaller{}, nil)
	if _, _, err := catalog.List(context.Background()); err == nil {
		t.Fatal("expected an error from a failing list")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
