package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	modelpkg "github.com/cexll/mcpbridge/pkg/model"
)

const (
	chatPath = "/api/chat"
	// Matches the buffer the ollama client sizes for one response line.
	maxLineSize = 512 * 1000
)

// Ensure Model implements the model.Model interface.
var _ modelpkg.Model = (*Model)(nil)

// Model is a chat model served by an Ollama daemon.
type Model struct {
	client *http.Client
	base   *url.URL
	model  string
	opts   modelOptions
}

// chatRequest mirrors api.ChatRequest except for Tools: the adapted tool
// declarations are sent as-is so parameter schemas keep union types,
// non-string enums and nested items.
type chatRequest struct {
	Model     string          `json:"model"`
	Messages  []api.Message   `json:"messages"`
	Stream    *bool           `json:"stream,omitempty"`
	Format    json.RawMessage `json:"format,omitempty"`
	KeepAlive *api.Duration   `json:"keep_alive,omitempty"`
	Tools     []modelpkg.Tool `json:"tools,omitempty"`
	Options   map[string]any  `json:"options,omitempty"`
}

// Name returns the Ollama model tag, e.g. llama3.2.
func (m *Model) Name() string { return m.model }

// Chat performs a blocking /api/chat call with stream=false.
func (m *Model) Chat(ctx context.Context, messages []modelpkg.Message, tools []modelpkg.Tool) (modelpkg.Message, error) {
	var (
		content strings.Builder
		reply   modelpkg.Message
	)
	err := m.post(ctx, m.buildRequest(messages, tools), func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Message.Role != "" {
			reply.Role = resp.Message.Role
		}
		calls, err := convertToolCalls(resp.Message.ToolCalls)
		if err != nil {
			return err
		}
		reply.ToolCalls = append(reply.ToolCalls, calls...)
		return nil
	})
	if err != nil {
		return modelpkg.Message{}, fmt.Errorf("ollama chat %s: %w", m.model, err)
	}
	reply.Content = content.String()
	if reply.Role == "" {
		reply.Role = modelpkg.RoleAssistant
	}
	return reply, nil
}

func (m *Model) buildRequest(messages []modelpkg.Message, tools []modelpkg.Tool) *chatRequest {
	stream := false
	req := &chatRequest{
		Model:    m.model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
		Tools:    tools,
	}
	if len(m.opts.Options) > 0 {
		req.Options = m.opts.Options
	}
	if m.opts.KeepAlive != nil {
		req.KeepAlive = &api.Duration{Duration: *m.opts.KeepAlive}
	}
	if m.opts.Format != "" {
		req.Format = json.RawMessage(m.opts.Format)
	}
	return req
}

// post sends req and hands every response line to fn. Error bodies are
// reported the way the ollama client reports them.
func (m *Model) post(ctx context.Context, req *chatRequest, fn func(api.ChatResponse) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.base.JoinPath(chatPath).String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)
	lines := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++
		var errorResponse struct {
			Error string `json:"error,omitempty"`
		}
		if err := json.Unmarshal(line, &errorResponse); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return api.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorMessage: string(line)}
			}
			return fmt.Errorf("unmarshal: %w", err)
		}
		if errorResponse.Error != "" || resp.StatusCode >= http.StatusBadRequest {
			return api.StatusError{
				StatusCode:   resp.StatusCode,
				Status:       resp.Status,
				ErrorMessage: errorResponse.Error,
			}
		}
		var chunk api.ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if lines == 0 && resp.StatusCode >= http.StatusBadRequest {
		return api.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if lines == 0 {
		return errors.New("empty response")
	}
	return nil
}

func toOllamaMessages(messages []modelpkg.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, api.Message{
			Role:    strings.ToLower(strings.TrimSpace(msg.Role)),
			Content: msg.Content,
		})
	}
	return out
}

func convertToolCalls(calls []api.ToolCall) ([]modelpkg.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]modelpkg.ToolCall, 0, len(calls))
	for _, call := range calls {
		args := map[string]any{}
		raw, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("encode arguments of %s: %w", call.Function.Name, err)
		}
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("decode arguments of %s: %w", call.Function.Name, err)
			}
		}
		out = append(out, modelpkg.ToolCall{Name: call.Function.Name, Arguments: args})
	}
	return out, nil
}
