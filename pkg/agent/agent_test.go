package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/session"
)

type scriptedModel struct {
	replies []model.Message
	errs    []error
	seen    [][]model.Message
	tools   [][]model.Tool
}

func (m *scriptedModel) Chat(_ context.Context, msgs []model.Message, tools []model.Tool) (model.Message, error) {
	i := len(m.seen)
	m.seen = append(m.seen, msgs)
	m.tools = append(m.tools, tools)
	if i < len(m.errs) && m.errs[i] != nil {
		return model.Message{}, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return model.Message{Role: model.RoleAssistant, Content: fmt.Sprintf("reply %d", i)}, nil
}

type staticTools []model.Tool

func (s staticTools) List() []model.Tool { return s }

func quietConfig() Config {
	return Config{SessionID: "test-session", Logger: log.New(io.Discard, "", 0)}
}

func TestNewStartsWithSystemPrompt(t *testing.T) {
	ag, err := New(&scriptedModel{}, nil, quietConfig())
	require.NoError(t, err)
	history := ag.History()
	require.Len(t, history, 1)
	require.Equal(t, session.RoleSystem, history[0].Role)
	require.Equal(t, DefaultSystemPrompt, history[0].Content)
	require.Equal(t, "test-session", ag.SessionID())

	cfg := quietConfig()
	cfg.SessionID = ""
	cfg.SystemPrompt = "Be terse."
	cfg.InitialHistory = []session.Message{
		{Role: session.RoleUser, Content: "What can you do?"},
		{Role: session.RoleAssistant, Content: "I can list files."},
	}
	seeded, err := New(&scriptedModel{}, nil, cfg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(seeded.SessionID(), "chat-"))
	history = seeded.History()
	require.Len(t, history, 3)
	require.Equal(t, "Be terse.", history[0].Content)
	require.Equal(t, "I can list files.", history[2].Content)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, nil, quietConfig())
	require.Error(t, err)

	cfg := quietConfig()
	cfg.Timeout = -1
	_, err = New(&scriptedModel{}, nil, cfg)
	require.ErrorContains(t, err, "timeout")

	cfg = quietConfig()
	cfg.InitialHistory = []session.Message{{Role: session.RoleSystem, Content: "x"}}
	_, err = New(&scriptedModel{}, nil, cfg)
	require.ErrorContains(t, err, "system prompt")
}

func TestChatHistoryGrowsByTwoPerTurn(t *testing.T) {
	m := &scriptedModel{}
	tools := staticTools{{Type: model.ToolTypeFunction, Function: model.FunctionSpec{Name: "list_files"}}}
	ag, err := New(m, tools, quietConfig())
	require.NoError(t, err)

	for n := 1; n <= 4; n++ {
		resp, err := ag.Chat(context.Background(), fmt.Sprintf("question %d", n))
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("reply %d", n-1), resp.Text)

		history := ag.History()
		require.Len(t, history, 1+2*n)
		require.Equal(t, session.RoleSystem, history[0].Role)
		require.Equal(t, session.RoleUser, history[len(history)-2].Role)
		require.Equal(t, session.RoleAssistant, history[len(history)-1].Role)
	}

	// Each request carries the full transcript including the new user turn.
	last := m.seen[len(m.seen)-1]
	require.Len(t, last, 8)
	require.Equal(t, "question 4", last[7].Content)
	require.Equal(t, []model.Tool(tools), m.tools[0])
}

func TestChatToolCallsWithEmptyText(t *testing.T) {
	call := model.ToolCall{Name: "list_files", Arguments: map[string]any{"directory": "/tmp"}}
	m := &scriptedModel{replies: []model.Message{{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{call}}}}
	ag, err := New(m, nil, quietConfig())
	require.NoError(t, err)

	resp, err := ag.Chat(context.Background(), "list /tmp")
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	require.Equal(t, []model.ToolCall{call}, resp.ToolCalls)
	history := ag.History()
	require.Len(t, history, 3)
	require.Empty(t, history[2].Content)
}

func TestChatFailureLeavesHistoryUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind FailureKind
	}{
		{
			name:     "connection refused",
			err:      fmt.Errorf("post: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}),
			wantKind: FailureConnection,
		},
		{
			name:     "dns",
			err:      &net.DNSError{Err: "no such host", Name: "ollama"},
			wantKind: FailureConnection,
		},
		{
			name:     "model missing",
			err:      errors.New(`model "llama3.2" not found`),
			wantKind: FailureOther,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantKind: FailureOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &scriptedModel{errs: []error{nil, tt.err}}
			ag, err := New(m, nil, quietConfig())
			require.NoError(t, err)

			_, err = ag.Chat(context.Background(), "first")
			require.NoError(t, err)
			before := ag.History()

			resp, err := ag.Chat(context.Background(), "second")
			require.Nil(t, resp)
			var ierr *InferenceError
			require.ErrorAs(t, err, &ierr)
			require.Equal(t, tt.wantKind, ierr.Kind)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.wantKind == FailureConnection, IsConnectionFailure(err))
			require.Equal(t, before, ag.History())

			resp, err = ag.Chat(context.Background(), "third")
			require.NoError(t, err)
			require.Equal(t, "reply 2", resp.Text)
			require.Len(t, ag.History(), 5)
		})
	}
}
