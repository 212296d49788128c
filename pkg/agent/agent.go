// Package agent keeps the conversation with the chat model: it owns the
// transcript and performs one inference per operator query.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/session"
)

// ToolSource supplies the tool set advertised on every request.
type ToolSource interface {
	List() []model.Tool
}

// Agent pairs a chat model with a transcript. Chat calls are serialised.
type Agent struct {
	mu      sync.Mutex
	model   model.Model
	tools   ToolSource
	history *session.MemorySession
	timeout time.Duration
	logger  *log.Logger
}

// rollbackCheckpoint holds the transcript as it was before the turn in
// flight.
const rollbackCheckpoint = "before-turn"

// New builds an agent whose transcript starts with the configured system
// prompt followed by any seed history.
func New(m model.Model, tools ToolSource, cfg Config) (*Agent, error) {
	if m == nil {
		return nil, errors.New("agent: model is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	history, err := session.NewMemorySession(cfg.SessionID)
	if err != nil {
		return nil, err
	}
	if err := history.Append(session.Message{Role: session.RoleSystem, Content: cfg.SystemPrompt}); err != nil {
		return nil, err
	}
	for i, msg := range cfg.InitialHistory {
		if err := history.Append(msg); err != nil {
			return nil, fmt.Errorf("agent: seed history entry %d: %w", i, err)
		}
	}
	return &Agent{
		model:   m,
		tools:   tools,
		history: history,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// SessionID identifies the transcript.
func (a *Agent) SessionID() string {
	return a.history.ID()
}

// Chat appends userMessage, runs one non-streaming inference with the whole
// transcript and tool set, and appends the assistant text. On failure the
// transcript is left as it was before the call and an *InferenceError is
// returned.
func (a *Agent) Chat(ctx context.Context, userMessage string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.history.Checkpoint(rollbackCheckpoint); err != nil {
		return nil, err
	}
	if err := a.history.Append(session.Message{Role: session.RoleUser, Content: userMessage}); err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var tools []model.Tool
	if a.tools != nil {
		tools = a.tools.List()
	}
	started := time.Now()
	reply, err := a.model.Chat(ctx, toModelMessages(a.history.Messages()), tools)
	if err != nil {
		return nil, a.fail(err)
	}
	if err := a.history.Append(session.Message{Role: session.RoleAssistant, Content: reply.Content}); err != nil {
		return nil, a.fail(err)
	}
	return &Response{
		Text:      reply.Content,
		ToolCalls: reply.ToolCalls,
		Duration:  time.Since(started),
	}, nil
}

func (a *Agent) fail(cause error) error {
	if err := a.history.Resume(rollbackCheckpoint); err != nil {
		a.logger.Printf("agent: restore history: %v", err)
	}
	ierr := &InferenceError{Kind: classifyFailure(cause), Err: cause}
	a.logger.Printf("agent: %v", ierr)
	return ierr
}

// History returns a copy of the transcript.
func (a *Agent) History() []session.Message {
	return a.history.Messages()
}

func toModelMessages(msgs []session.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, model.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

func newSessionID() string {
	return "chat-" + uuid.NewString()
}
