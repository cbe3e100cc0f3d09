package schema

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator compiles an action schema once and validates candidate
// replies against it repeatedly, avoiding a recompile per iteration.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles doc (as produced by BuildActionSchema) into a
// reusable Validator.
func NewValidator(doc map[string]any) (*Validator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("action.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("action.json")
	if err != nil {
		return nil, fmt.Errorf("compile action schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks payload (already json.Unmarshal'd into any) against
// the compiled schema.
func (v *Validator) Validate(payload any) error {
	return v.schema.Validate(payload)
}
