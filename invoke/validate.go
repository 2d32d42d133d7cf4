package invoke

import (
	"encoding/json"
	"fmt"
)

// parameterSchema is the subset of JSON Schema the invoker validates
// against: object shape, property types, and required names.
type parameterSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]propertyShape `json:"properties"`
	Required   []string                 `json:"required"`
}

type propertyShape struct {
	Type string `json:"type"`
}

// validateArgs checks the supplied arguments against the tool's declared
// parameter shape. A tool with no declared parameters accepts anything.
func validateArgs(tool string, params json.RawMessage, args map[string]any) error {
	if len(params) == 0 {
		return nil
	}

	var schema parameterSchema
	if err := json.Unmarshal(params, &schema); err != nil {
		return &ValidationError{Tool: tool, Reason: fmt.Sprintf("unreadable parameter schema: %v", err)}
	}

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return &ValidationError{Tool: tool, Reason: fmt.Sprintf("missing required argument %q", name)}
		}
	}

	for name, value := range args {
		prop, declared := schema.Properties[name]
		if !declared || prop.Type == "" {
			// Undeclared or untyped properties pass through; models
			// routinely add extras.
			continue
		}
		if !typeMatches(prop.Type, value) {
			return &ValidationError{
				Tool:   tool,
				Reason: fmt.Sprintf("argument %q should be %s", name, prop.Type),
			}
		}
	}
	return nil
}

// validateNoArgs checks whether the schema admits a call with no arguments
// at all. Used as a second validation attempt for models that emit {} for
// zero-argument tools.
func validateNoArgs(tool string, params json.RawMessage) error {
	if len(params) == 0 {
		return nil
	}
	var schema parameterSchema
	if err := json.Unmarshal(params, &schema); err != nil {
		// An unreadable schema cannot demand arguments.
		return nil
	}
	if len(schema.Required) > 0 {
		return &ValidationError{
			Tool:   tool,
			Reason: fmt.Sprintf("missing required argument %q", schema.Required[0]),
		}
	}
	return nil
}

// typeMatches maps JSON Schema primitive type names onto the dynamic types
// encoding/json produces.
func typeMatches(schemaType string, value any) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return value == nil
	}
	return true
}
