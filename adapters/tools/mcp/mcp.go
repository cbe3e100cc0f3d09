// Package mcp adapts a Model Context Protocol server's tool listing
// into the runtime's own tool surface (package tools): ListTools
// discovers the server's catalog, and each discovered tool's handler
// forwards to CallTool against the live connection.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"agentrt/agent"
	"agentrt/allowlist"
	localtools "agentrt/tools"
	"agentrt/vault"
)

// ToolLister is the one read needed from an MCP client connection,
// narrowed the way llm.MessagesClient narrows the Anthropic SDK.
type ToolLister interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
}

// ToolCaller is the one invocation needed from an MCP client
// connection, kept separate from ToolLister so a catalog can be built
// from a read-only snapshot without granting call access, if a caller
// wants that.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Catalog turns a live MCP connection into a sandbox module.
type Catalog struct {
	module string
	lister ToolLister
	caller ToolCaller
	vault  *vault.Vault
}

// New returns a Catalog that predeclares the server's tools under
// module, resolving per-call options from v.
func New(module string, lister ToolLister, caller ToolCaller, v *vault.Vault) *Catalog {
	return &Catalog{module: module, lister: lister, caller: caller, vault: v}
}

// List fetches the server's tool catalog and returns a sandbox tool
// built from it alongside the descriptor the prompt builder and
// allowlist need to expose it to an agent.
func (c *Catalog) List(ctx context.Context) (*localtools.Tool, agent.ToolDescriptor, error) {
	result, err := c.lister.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, agent.ToolDescriptor{}, fmt.Errorf("mcp: list tools: %w", err)
	}

	tool := localtools.New(c.module, c.vault)
	descriptor := agent.ToolDescriptor{
		Name:      c.module,
		ModuleDoc: "Tools discovered from a connected Model Context Protocol server.",
	}

	names := make([]string, 0, len(result.Tools))
	for _, remote := range result.Tools {
		name := localName(remote.Name)
		toolName := remote.Name
		tool.Register(name, func(ctx context.Context, args map[string]any, _ map[string]any) (any, error) {
			return c.call(ctx, toolName, args)
		})

		descriptor.Functions = append(descriptor.Functions, agent.FunctionDescriptor{
			Name:   name,
			Arity:  len(remote.InputSchema.Required),
			Doc:    remote.Description,
			Params: schemaParamNames(remote.InputSchema),
		})
		names = append(names, name)
	}
	descriptor.AllowlistContribution = allowlist.OnlyOf(names...)

	return tool, descriptor, nil
}

func (c *Catalog) call(ctx context.Context, toolName string, args map[string]any) (any, error) {
	request := mcp.CallToolRequest{}
	request.Params.Name = toolName
	request.Params.Arguments = args

	result, err := c.caller.CallTool(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s: %w", toolName, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp: %s reported an error: %s", toolName, renderContent(result.Content))
	}
	return renderContent(result.Content), nil
}

// renderContent flattens an MCP tool result to the text every caller
// in this codebase expects a sandbox call to resolve to, joining
// multiple content blocks with a blank line the way a transcript
// would read them in sequence.
func renderContent(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, block := range content {
		if text, ok := block.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func localName(mcpName string) string {
	if idx := strings.LastIndex(mcpName, "."); idx >= 0 {
		return mcpName[idx+1:]
	}
	return mcpName
}

func schemaParamNames(schema mcp.ToolInputSchema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	return names
}
