package agent

import "agentrt/allowlist"

// FieldType is the closed set of primitive types an output schema
// field may declare, mirroring the type mapping the Action Schema
// builder (C4) uses to derive JSON Schema.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeFloat   FieldType = "float"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeList    FieldType = "list"
)

// OutputField describes one field of an agent's output schema. Item is
// only meaningful when Type is FieldTypeList and holds the element
// type recursively (list<list<string>> nests two levels).
type OutputField struct {
	Name     string
	Type     FieldType
	Item     *OutputField
	Required bool
}

// OutputSchema is an ordered list of fields; order is preserved end to
// end so a rendered prompt and its derived JSON Schema agree on field
// sequence.
type OutputSchema []OutputField

// AgentDescriptor is the collaborator-supplied definition of one
// agent: its prompt material, its tool catalog, its output contract,
// and the config/sandbox overrides and allowlist spec that scope what
// its sandboxed code may do.
type AgentDescriptor struct {
	ModuleDoc          string
	Tools              []ToolDescriptor
	OutputSchema       OutputSchema
	SystemPromptExtra  string
	StaticConfig       Config
	SandboxOptions     SandboxConfig
	Allowlist          *allowlist.Spec
	ToolOptions        func(tool string) map[string]any
}
