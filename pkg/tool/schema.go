package tool

// JSONSchema captures the subset of JSON Schema we require for tool validation.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// SchemaFromParameters extracts the validated subset from a tool's
// parameters object. It returns nil when there is nothing to check.
func SchemaFromParameters(params map[string]any) *JSONSchema {
	if len(params) == 0 {
		return nil
	}
	schema := &JSONSchema{}
	if typ, ok := params["type"].(string); ok {
		schema.Type = typ
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = props
	}
	switch req := params["required"].(type) {
	case []string:
		schema.Required = append(schema.Required, req...)
	case []any:
		for _, v := range req {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if schema.Type == "" && len(schema.Properties) == 0 && len(schema.Required) == 0 {
		return nil
	}
	return schema
}
