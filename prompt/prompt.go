// Package prompt assembles the deterministic system prompt (C9) an
// agent descriptor's tool catalog and output schema are rendered
// into. Assembly is pure string concatenation over the descriptor —
// no network or sandbox access — so the same descriptor always
// produces byte-identical output.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentrt/agent"
)

const fallbackModuleDoc = "You are an AI agent that executes tasks by generating Starlark code."

// defaultOutputSchema is the single-field contract every agent gets
// when its descriptor declares none; Build only renders an explicit
// result example when the descriptor's schema differs from this.
var defaultOutputSchema = agent.OutputSchema{
	{Name: "value", Type: agent.FieldTypeString, Required: true},
}

const codeExecutionRules = `Code execution rules:
- Code you submit runs inside a sandboxed interpreter with a restricted set of builtins and module calls; only the tools and standard functions documented above are reachable.
- Bind the value you want back in the "eval_and_continue"/"eval_and_complete" response to the variable named result, e.g. result = 1 + 2. A bare expression with no result assignment is not captured and is reported back to you as None.
- Every evaluation starts from a clean interpreter state. Nothing you bind, import, or mutate in one eval call is visible to the next; carry values forward through your own reply text instead.
- A sandbox failure (parse error, disallowed call, timeout) is reported back to you as plain text so you can correct the code and retry.
- Tool calls may have side effects. Do not assume a failed call had no effect, and do not blindly repeat a call whose outcome is unknown.
- Prefer small, direct expressions over elaborate control flow. Call tools using their module-qualified name, e.g. module.function(arg=value), with keyword arguments only.`

// Build renders the full system prompt for descriptor, in the fixed
// five-step order: moduledoc, tool documentation, response-format
// contract, code-execution rules, and optional custom instructions.
func Build(descriptor agent.AgentDescriptor) string {
	var sb strings.Builder

	writeModuleDoc(&sb, descriptor)
	writeToolDocs(&sb, descriptor)
	writeResponseFormat(&sb, descriptor.OutputSchema)
	sb.WriteString("\n")
	sb.WriteString(codeExecutionRules)

	if extra := strings.TrimSpace(descriptor.SystemPromptExtra); extra != "" {
		sb.WriteString("\n\n")
		sb.WriteString(extra)
	}
	return sb.String()
}

func writeModuleDoc(sb *strings.Builder, descriptor agent.AgentDescriptor) {
	doc := strings.TrimSpace(descriptor.ModuleDoc)
	if doc == "" {
		doc = fallbackModuleDoc
	}
	sb.WriteString(doc)
}

func writeToolDocs(sb *strings.Builder, descriptor agent.AgentDescriptor) {
	if len(descriptor.Tools) == 0 {
		return
	}
	sb.WriteString("\n\nAvailable tools:\n")
	for _, tool := range descriptor.Tools {
		var opts map[string]any
		if descriptor.ToolOptions != nil {
			opts = descriptor.ToolOptions(tool.Name)
		}
		sb.WriteString(fmt.Sprintf("\n%s: %s\n", tool.Name, tool.Describe(opts)))
		for _, fn := range tool.Functions {
			sb.WriteString(fmt.Sprintf("- %s\n", signature(tool.Name, fn)))
			if doc := strings.TrimSpace(fn.Doc); doc != "" {
				sb.WriteString(fmt.Sprintf("    %s\n", doc))
			}
		}
	}
}

func signature(toolName string, fn agent.FunctionDescriptor) string {
	return fmt.Sprintf("%s.%s(%s)", toolName, fn.Name, strings.Join(fn.Params, ", "))
}

func writeResponseFormat(sb *strings.Builder, output agent.OutputSchema) {
	sb.WriteString("\n\nRespond with a single JSON object shaped as one of the following four actions:\n")
	sb.WriteString(`- {"action": "eval_and_continue", "code": "result = <code>  # binds result, fed back to you"}` + "\n")
	sb.WriteString(`- {"action": "eval_and_complete", "code": "result = <code>  # binds result, becomes the final output"}` + "\n")
	sb.WriteString(`- {"action": "return", "result": {...}}` + " (finish immediately with this result)\n")
	sb.WriteString(`- {"action": "done"}` + " (finish with no result)\n")

	if schemaDeviatesFromDefault(output) {
		sb.WriteString("\nThe \"result\" object for \"return\" must match this shape:\n")
		sb.WriteString(renderExample(output))
		sb.WriteString("\n")
	}
}

func schemaDeviatesFromDefault(output agent.OutputSchema) bool {
	if len(output) != len(defaultOutputSchema) {
		return true
	}
	for i, field := range output {
		want := defaultOutputSchema[i]
		if field.Name != want.Name || field.Type != want.Type || field.Required != want.Required {
			return true
		}
	}
	return false
}

func renderExample(output agent.OutputSchema) string {
	example := make(map[string]any, len(output))
	for _, field := range output {
		example[field.Name] = exampleValue(field)
	}
	encoded, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", example)
	}
	return string(encoded)
}

func exampleValue(field agent.OutputField) any {
	switch field.Type {
	case agent.FieldTypeString:
		return "..."
	case agent.FieldTypeFloat:
		return 0.0
	case agent.FieldTypeInteger:
		return 0
	case agent.FieldTypeBoolean:
		return false
	case agent.FieldTypeList:
		item := agent.OutputField{Type: agent.FieldTypeString}
		if field.Item != nil {
			item = *field.Item
		}
		return []any{exampleValue(item)}
	default:
		return "..."
	}
}
