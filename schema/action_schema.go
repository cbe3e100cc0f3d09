// Package schema builds the strict JSON Schema an LLM reply must
// satisfy (C4) and validates structured replies against it.
package schema

import (
	"agentrt/agent"
)

// BuildActionSchema derives the JSON Schema document for an agent's
// output contract, per §4.4's type mapping and required-field rules.
func BuildActionSchema(output agent.OutputSchema) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"enum": []any{
					string(agent.ActionEvalAndContinue),
					string(agent.ActionEvalAndComplete),
					string(agent.ActionReturn),
					string(agent.ActionDone),
				},
			},
			"code":   map[string]any{"type": "string"},
			"result": buildResultSchema(output),
		},
		"required":             []any{"action", "code", "result"},
		"additionalProperties": false,
	}
}

func buildResultSchema(output agent.OutputSchema) map[string]any {
	properties := make(map[string]any, len(output))
	required := make([]any, 0, len(output))
	for _, field := range output {
		properties[field.Name] = fieldSchema(field)
		if field.Required {
			required = append(required, field.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldSchema(field agent.OutputField) map[string]any {
	switch field.Type {
	case agent.FieldTypeString:
		return map[string]any{"type": "string"}
	case agent.FieldTypeFloat:
		return map[string]any{"type": "number"}
	case agent.FieldTypeInteger:
		return map[string]any{"type": "integer"}
	case agent.FieldTypeBoolean:
		return map[string]any{"type": "boolean"}
	case agent.FieldTypeList:
		item := agent.OutputField{Type: agent.FieldTypeString}
		if field.Item != nil {
			item = *field.Item
		}
		return map[string]any{
			"type":  "array",
			"items": fieldSchema(item),
		}
	default:
		return map[string]any{"type": "string"}
	}
}
