package agent

import "agentrt/allowlist"

// FunctionDescriptor documents a single callable a tool exposes into
// the sandbox namespace.
type FunctionDescriptor struct {
	Name   string
	Arity  int
	Doc    string
	Params []string
}

// ToolDescriptor is a collaborator-supplied catalog entry: prompt-facing
// metadata plus the allowlist contribution that authorizes the sandbox
// to call it. DynamicDoc and Aliases are optional hooks a tool may use
// to tailor its documentation or introduce short names per call.
type ToolDescriptor struct {
	Name                 string
	ModuleDoc            string
	Functions            []FunctionDescriptor
	AllowlistContribution allowlist.Permission

	DynamicDoc          func(opts map[string]any) (string, bool)
	Aliases             func(opts map[string]any) map[string]string
	DescriptionOverride func() string
}

// Describe returns the tool's effective prompt description:
// DescriptionOverride when set, else DynamicDoc when present and it
// yields a value, else ModuleDoc.
func (t ToolDescriptor) Describe(opts map[string]any) string {
	if t.DescriptionOverride != nil {
		return t.DescriptionOverride()
	}
	if t.DynamicDoc != nil {
		if doc, ok := t.DynamicDoc(opts); ok {
			return doc
		}
	}
	return t.ModuleDoc
}
