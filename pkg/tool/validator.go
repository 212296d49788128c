package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// Validator validates tool parameters before execution.
type Validator interface {
	Validate(params map[string]any, schema *JSONSchema) error
}

// DefaultValidator implements a minimal JSON Schema validator covering
// required fields and primitive type checks.
type DefaultValidator struct{}

// Validate ensures that params satisfy the provided schema.
func (DefaultValidator) Validate(params map[string]any, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	for _, field := range schema.Required {
		if _, exists := params[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	if len(schema.Properties) == 0 {
		return nil
	}

	for key, value := range params {
		propDef, ok := schema.Properties[key]
		if !ok {
			continue
		}

		expected := extractExpectedTypes(propDef)
		if len(expected) == 0 {
			continue
		}

		if err := validateAnyType(value, expected); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	return nil
}

// extractExpectedTypes reads "type" as either a single name or a union.
func extractExpectedTypes(definition any) []string {
	switch def := definition.(type) {
	case map[string]any:
		switch typ := def["type"].(type) {
		case string:
			return []string{typ}
		case []any:
			var out []string
			for _, v := range typ {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return typ
		}
	case *JSONSchema:
		if def.Type != "" {
			return []string{def.Type}
		}
	}
	return nil
}

func validateAnyType(value any, expected []string) error {
	var firstErr error
	for _, typ := range expected {
		err := validateType(value, typ)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if len(expected) > 1 {
		return fmt.Errorf("expected one of %v but got %T", expected, value)
	}
	return firstErr
}

func validateType(value any, expected string) error {
	if value == nil && expected != "null" {
		return fmt.Errorf("expected %s but got null", expected)
	}
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
