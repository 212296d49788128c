// Package config loads the bridge settings from defaults, dotenv files, JSON
// settings files and MCPBRIDGE_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultServerURL    = "http://localhost:8080/sse"
	DefaultProvider     = "ollama"
	DefaultModel        = "llama3.2"
	DefaultSystemPrompt = "You are a helpful assistant who can use available tools to solve problems"
	DefaultQuitToken    = "quit"
)

// Config is the complete runtime configuration.
type Config struct {
	ServerURL         string   `json:"server_url"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model"`
	OllamaHost        string   `json:"ollama_host,omitempty"`
	SystemPrompt      string   `json:"system_prompt"`
	QuitToken         string   `json:"quit_token"`
	HistoryFile       string   `json:"history_file,omitempty"`
	AutoConfirm       bool     `json:"auto_confirm"`
	ValidateArguments bool     `json:"validate_arguments"`
	InferenceTimeout  Duration `json:"inference_timeout,omitempty"`

	// OllamaOptions holds request options for the Ollama backend: sampling
	// parameters such as temperature or num_ctx, plus keep_alive and format.
	OllamaOptions map[string]any `json:"ollama_options,omitempty"`
	// OllamaHeaders are added to every request sent to the Ollama daemon.
	OllamaHeaders map[string]string `json:"ollama_headers,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ServerURL:    DefaultServerURL,
		Provider:     DefaultProvider,
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		QuitToken:    DefaultQuitToken,
	}
}

// Validate enforces minimal structural guarantees.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(c.ServerURL) == "" {
		errs = append(errs, errors.New("server_url is required"))
	}
	if strings.TrimSpace(c.Provider) == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if strings.TrimSpace(c.QuitToken) == "" {
		errs = append(errs, errors.New("quit_token is required"))
	}
	if c.InferenceTimeout < 0 {
		errs = append(errs, fmt.Errorf("inference_timeout cannot be negative: %s", time.Duration(c.InferenceTimeout)))
	}
	for key := range c.OllamaHeaders {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, errors.New("ollama_headers: header name cannot be empty"))
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Duration accepts either a Go duration string ("90s") or a number of
// seconds in JSON and environment values.
type Duration time.Duration

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration: invalid JSON: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
		return nil
	case float64:
		*d = Duration(v * float64(time.Second))
		return nil
	case string:
		parsed, err := ParseDuration(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("duration: expected string or number, got %T", raw)
	}
}

// ParseDuration reads "1m30s" style strings or plain seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	return Duration(parsed), nil
}

// ParseOptionValue decodes a command-line or environment option value. JSON
// literals keep their type (0.2, 4096, true); anything else stays a string.
func ParseOptionValue(s string) any {
	s = strings.TrimSpace(s)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
