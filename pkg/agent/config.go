package agent

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cexll/mcpbridge/pkg/session"
)

// DefaultSystemPrompt opens every transcript unless overridden.
const DefaultSystemPrompt = "You are a helpful assistant who can use available tools to solve problems"

// Config stores the settings for an Agent instance.
type Config struct {
	SystemPrompt string
	// SessionID names the transcript; a random id is used when empty.
	SessionID string
	// Timeout bounds each inference request. Zero means no limit.
	Timeout time.Duration
	// InitialHistory is appended after the system prompt.
	InitialHistory []session.Message
	Logger         *log.Logger
}

// Validate enforces minimal structural guarantees.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("agent: timeout cannot be negative: %s", c.Timeout)
	}
	for i, msg := range c.InitialHistory {
		if msg.Role == session.RoleSystem {
			return fmt.Errorf("agent: seed history entry %d: system prompt is set separately", i)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(c.SessionID) == "" {
		c.SessionID = newSessionID()
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}
