// Package utcp adapts a Universal Tool Calling Protocol catalog into
// the runtime's own tool surface (package tools): a search query
// against a UTCP client yields a *tools.Tool whose handlers forward
// each call to the matching remote tool's handler, plus an
// agent.ToolDescriptor so the prompt builder and allowlist can
// document and authorize it like any other tool.
package utcp

import (
	"context"
	"fmt"
	"strings"

	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	"agentrt/agent"
	"agentrt/allowlist"
	localtools "agentrt/tools"
	"agentrt/vault"
)

// Searcher is the one method this package needs from a UTCP client,
// narrowed the way llm.MessagesClient narrows the Anthropic SDK: it
// keeps the adapter's compile-time surface to exactly what it calls,
// rather than the full client interface.
type Searcher interface {
	SearchTools(query string, limit int) ([]utcptools.Tool, error)
}

// Catalog discovers UTCP tools on demand and exposes them as a single
// sandbox module.
type Catalog struct {
	module   string
	searcher Searcher
	vault    *vault.Vault
}

// New returns a Catalog that predeclares discovered tools under
// module (e.g. "utcp"), resolving per-call options from v.
func New(module string, searcher Searcher, v *vault.Vault) *Catalog {
	return &Catalog{module: module, searcher: searcher, vault: v}
}

// Discover runs query against the catalog and returns a sandbox tool
// built from the matches (bounded to limit) alongside the descriptor
// the prompt builder and allowlist need to expose it to an agent.
func (c *Catalog) Discover(ctx context.Context, query string, limit int) (*localtools.Tool, agent.ToolDescriptor, error) {
	found, err := c.searcher.SearchTools(query, limit)
	if err != nil {
		return nil, agent.ToolDescriptor{}, fmt.Errorf("utcp: search tools: %w", err)
	}

	tool := localtools.New(c.module, c.vault)
	descriptor := agent.ToolDescriptor{
		Name:      c.module,
		ModuleDoc: fmt.Sprintf("Tools discovered from the UTCP catalog for query %q.", query),
	}

	names := make([]string, 0, len(found))
	for _, remote := range found {
		name := localName(remote.Name)
		handler := remote.Handler
		tool.Register(name, func(ctx context.Context, args map[string]any, _ map[string]any) (any, error) {
			if handler == nil {
				return nil, fmt.Errorf("utcp tool %s has no handler", remote.Name)
			}
			return handler(ctx, args)
		})

		descriptor.Functions = append(descriptor.Functions, agent.FunctionDescriptor{
			Name:   name,
			Arity:  len(remote.Inputs.Required),
			Doc:    remote.Description,
			Params: schemaParamNames(remote.Inputs),
		})
		names = append(names, name)
	}
	descriptor.AllowlistContribution = allowlist.OnlyOf(names...)

	return tool, descriptor, nil
}

// localName strips a UTCP provider prefix ("provider.tool") down to
// the bare name the sandbox calls it by, since module qualification
// is already supplied by the module this catalog predeclares under.
func localName(utcpName string) string {
	if idx := strings.LastIndex(utcpName, "."); idx >= 0 {
		return utcpName[idx+1:]
	}
	return utcpName
}

func schemaParamNames(schema utcptools.ToolInputOutputSchema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	return names
}
