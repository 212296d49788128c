package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cexll/mcpbridge/pkg/agent"
	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
)

type callRecord struct {
	name string
	args map[string]any
}

type stubServer struct {
	connectErr error
	listErr    error
	invokeErr  error
	toolSets   [][]adapter.ToolDescriptor
	connects   int
	closes     int
	calls      []callRecord
}

func (s *stubServer) Connect(context.Context) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connects++
	return nil
}

func (s *stubServer) ListTools(context.Context) ([]adapter.ToolDescriptor, error) {
	idx := min(s.connects-1, len(s.toolSets)-1)
	if idx < 0 {
		return nil, s.listErr
	}
	return s.toolSets[idx], s.listErr
}

func (s *stubServer) InvokeTool(_ context.Context, name string, args map[string]any) (*adapter.ToolCallResult, error) {
	s.calls = append(s.calls, callRecord{name: name, args: args})
	if s.invokeErr != nil {
		return nil, s.invokeErr
	}
	raw, _ := json.Marshal([]map[string]string{{"type": "text", "text": "file1.txt\nfile2.txt"}})
	return &adapter.ToolCallResult{Content: raw}, nil
}

func (s *stubServer) ServerInfo() adapter.ServerInfo {
	return adapter.ServerInfo{Name: "stub", Version: "1.0.0", ProtocolVersion: "2025-06-18"}
}

func (s *stubServer) Close() error {
	s.closes++
	return nil
}

type stubModel struct {
	reply model.Message
	err   error
	tools [][]model.Tool
}

func (m *stubModel) Chat(_ context.Context, _ []model.Message, tools []model.Tool) (model.Message, error) {
	m.tools = append(m.tools, tools)
	if m.err != nil {
		return model.Message{}, m.err
	}
	return m.reply, nil
}

func descriptor(name string) adapter.ToolDescriptor {
	return adapter.ToolDescriptor{
		Name:        name,
		Description: "List files in a directory.",
		Schema:      json.RawMessage(`{"type":"object","properties":{"directory":{"type":"string"}},"required":["directory"]}`),
	}
}

func newTestManager(t *testing.T, server *stubServer, m *stubModel) *Manager {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	mgr, err := NewManager(server, m, Options{Logger: logger, Agent: agent.Config{SessionID: "test"}})
	require.NoError(t, err)
	return mgr
}

func TestManagerListFilesScenario(t *testing.T) {
	server := &stubServer{toolSets: [][]adapter.ToolDescriptor{{descriptor("list_files")}}}
	call := model.ToolCall{Name: "list_files", Arguments: map[string]any{"directory": "/tmp"}}
	m := &stubModel{reply: model.Message{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{call}}}
	mgr := newTestManager(t, server, m)

	require.Equal(t, "test", mgr.SessionID())
	require.Empty(t, mgr.ServerInfo().Name)
	require.NoError(t, mgr.Connect(context.Background()))
	require.Equal(t, StateConnected, mgr.State())
	require.Len(t, mgr.Tools(), 1)
	require.Equal(t, "stub", mgr.ServerInfo().Name)

	resp, err := mgr.Query(context.Background(), "What files are in /tmp?")
	require.NoError(t, err)
	require.Equal(t, []model.ToolCall{call}, resp.ToolCalls)
	require.Equal(t, "list_files", m.tools[0][0].Function.Name)

	outcomes, err := mgr.Execute(context.Background(), resp.ToolCalls)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, "file1.txt\nfile2.txt", outcomes[0].Text())
	require.Equal(t, []callRecord{{name: "list_files", args: map[string]any{"directory": "/tmp"}}}, server.calls)
	require.Len(t, mgr.History(), 3)
}

func TestManagerUnavailableTool(t *testing.T) {
	server := &stubServer{toolSets: [][]adapter.ToolDescriptor{{descriptor("list_files")}}}
	mgr := newTestManager(t, server, &stubModel{})
	require.NoError(t, mgr.Connect(context.Background()))

	outcomes, err := mgr.Execute(context.Background(), []model.ToolCall{{Name: "weather"}})
	require.NoError(t, err)
	require.Equal(t, "Function weather is not available.", outcomes[0].Text())
	require.Empty(t, server.calls)
}

func TestManagerReconnectReplacesTools(t *testing.T) {
	server := &stubServer{toolSets: [][]adapter.ToolDescriptor{
		{descriptor("list_files"), descriptor("fetch_data")},
		{descriptor("weather")},
	}}
	mgr := newTestManager(t, server, &stubModel{})

	require.NoError(t, mgr.Connect(context.Background()))
	require.Len(t, mgr.Tools(), 2)
	require.NoError(t, mgr.Close())
	require.Equal(t, StateDisconnected, mgr.State())
	require.NoError(t, mgr.Close())
	require.Equal(t, 1, server.closes)

	require.NoError(t, mgr.Connect(context.Background()))
	tools := mgr.Tools()
	require.Len(t, tools, 1)
	require.Equal(t, "weather", tools[0].Function.Name)

	outcomes, err := mgr.Execute(context.Background(), []model.ToolCall{{Name: "list_files"}})
	require.NoError(t, err)
	require.True(t, outcomes[0].Unavailable)
}

func TestManagerConnectRules(t *testing.T) {
	server := &stubServer{connectErr: errors.New("dial tcp: refused")}
	mgr := newTestManager(t, server, &stubModel{})

	err := mgr.Connect(context.Background())
	require.ErrorContains(t, err, "refused")
	require.Equal(t, StateDisconnected, mgr.State())

	server.connectErr = nil
	server.toolSets = [][]adapter.ToolDescriptor{{descriptor("list_files")}}
	require.NoError(t, mgr.Connect(context.Background()))
	require.ErrorIs(t, mgr.Connect(context.Background()), ErrInvalidState)
}

func TestManagerPartialToolList(t *testing.T) {
	server := &stubServer{
		toolSets: [][]adapter.ToolDescriptor{{descriptor("list_files")}},
		listErr:  errors.New("bad page cursor"),
	}
	mgr := newTestManager(t, server, &stubModel{})
	require.NoError(t, mgr.Connect(context.Background()))
	require.Len(t, mgr.Tools(), 1)
}

func TestManagerListTransportFailure(t *testing.T) {
	server := &stubServer{
		toolSets: [][]adapter.ToolDescriptor{{descriptor("list_files")}},
		listErr:  fmt.Errorf("%w: %w", adapter.ErrTransport, io.EOF),
	}
	mgr := newTestManager(t, server, &stubModel{})
	err := mgr.Connect(context.Background())
	require.ErrorIs(t, err, adapter.ErrTransport)
	require.Equal(t, StateDisconnected, mgr.State())
	require.Equal(t, 1, server.closes)
}

func TestManagerRequiresConnection(t *testing.T) {
	mgr := newTestManager(t, &stubServer{}, &stubModel{})
	_, err := mgr.Query(context.Background(), "hi")
	require.ErrorIs(t, err, ErrNotConnected)
	_, err = mgr.Execute(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestManagerInferenceFailureKeepsSession(t *testing.T) {
	server := &stubServer{toolSets: [][]adapter.ToolDescriptor{{descriptor("list_files")}}}
	mgr := newTestManager(t, server, &stubModel{err: errors.New("boom")})
	require.NoError(t, mgr.Connect(context.Background()))

	resp, err := mgr.Query(context.Background(), "hi")
	require.Nil(t, resp)
	var ierr *agent.InferenceError
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, StateConnected, mgr.State())
	require.Len(t, mgr.History(), 1)
}

func TestManagerTransportFailureDuringExecuteCloses(t *testing.T) {
	server := &stubServer{
		toolSets:  [][]adapter.ToolDescriptor{{descriptor("list_files")}},
		invokeErr: fmt.Errorf("%w: %w", adapter.ErrTransport, io.ErrUnexpectedEOF),
	}
	mgr := newTestManager(t, server, &stubModel{})
	require.NoError(t, mgr.Connect(context.Background()))

	outcomes, err := mgr.Execute(context.Background(), []model.ToolCall{{Name: "list_files"}, {Name: "list_files"}})
	require.ErrorIs(t, err, adapter.ErrTransport)
	require.Len(t, outcomes, 1)
	require.Equal(t, StateDisconnected, mgr.State())
	require.Equal(t, 1, server.closes)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "disconnected", StateDisconnected.String())
	require.Equal(t, "connecting", StateConnecting.String())
	require.Equal(t, "connected", StateConnected.String())
	require.Equal(t, "closing", StateClosing.String())
	require.Equal(t, "unknown", State(42).String())
}
