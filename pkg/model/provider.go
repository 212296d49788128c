package model

import "context"

// Model performs chat inference against a concrete backend.
type Model interface {
	// Chat issues one non-streaming request carrying the full transcript and
	// tool set and returns the assistant reply.
	Chat(ctx context.Context, messages []Message, tools []Tool) (Message, error)
}

// Provider constructs concrete Model implementations for a specific backend
// such as Ollama.
type Provider interface {
	Name() string
	NewModel(ctx context.Context, cfg ModelConfig) (Model, error)
}

// ModelConfig captures the minimal settings required to build a Model
// instance. Headers are added to every backend request; Extra carries
// provider-specific request options.
type ModelConfig struct {
	Provider string
	Model    string
	BaseURL  string
	Headers  map[string]string
	Extra    map[string]any
}
