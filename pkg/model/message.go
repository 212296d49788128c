package model

// Roles understood by chat backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single conversational turn exchanged with a model.
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall
}

// ToolCall captures a tool invocation emitted by assistant messages.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Tool is the model-facing declaration of a callable function, serialised as
// {"type":"function","function":{"name":...,"description":...,"parameters":...}}.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes the function half of a Tool.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolTypeFunction is the only Tool.Type chat backends accept today.
const ToolTypeFunction = "function"
