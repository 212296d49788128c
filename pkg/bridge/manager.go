// Package bridge ties the tool server connection, the chat agent and the
// tool router into one session with an explicit lifecycle.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cexll/mcpbridge/pkg/agent"
	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/session"
	"github.com/cexll/mcpbridge/pkg/tool"
)

var (
	// ErrNotConnected reports a query or execution outside the Connected state.
	ErrNotConnected = errors.New("bridge: session is not connected")
	// ErrInvalidState reports a lifecycle transition that is not allowed.
	ErrInvalidState = errors.New("bridge: invalid state transition")
)

// ToolServer is the connection to the MCP tool server. *adapter.Client
// satisfies it.
type ToolServer interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]adapter.ToolDescriptor, error)
	InvokeTool(ctx context.Context, name string, args map[string]any) (*adapter.ToolCallResult, error)
	ServerInfo() adapter.ServerInfo
	Close() error
}

var _ ToolServer = (*adapter.Client)(nil)

// Options tune a Manager.
type Options struct {
	Agent agent.Config
	// ValidateArguments checks tool arguments against the advertised schema
	// before calling the server.
	ValidateArguments bool
	Logger            *log.Logger
}

// Manager owns the session state: the tool server handle, the current tool
// set and the lifecycle state. All operations are serialised, so at most one
// query or execution is in flight.
type Manager struct {
	mu       sync.Mutex
	state    State
	server   ToolServer
	registry *tool.Registry
	router   *tool.Router
	adapter  tool.Adapter
	agent    *agent.Agent
	logger   *log.Logger
}

// NewManager wires server and m into a disconnected session.
func NewManager(server ToolServer, m model.Model, opts Options) (*Manager, error) {
	if server == nil {
		return nil, errors.New("bridge: tool server is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Agent.Logger == nil {
		opts.Agent.Logger = logger
	}

	registry := tool.NewRegistry()
	ag, err := agent.New(m, registry, opts.Agent)
	if err != nil {
		return nil, err
	}
	routerOpts := []tool.RouterOption{tool.WithRouterLogger(logger)}
	if opts.ValidateArguments {
		routerOpts = append(routerOpts, tool.WithValidator(tool.DefaultValidator{}))
	}
	return &Manager{
		state:    StateDisconnected,
		server:   server,
		registry: registry,
		router:   tool.NewRouter(registry, server, routerOpts...),
		adapter:  tool.Adapter{Logger: logger},
		agent:    ag,
		logger:   logger,
	}, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Tools returns the tool set currently advertised to the model.
func (m *Manager) Tools() []model.Tool {
	return m.registry.List()
}

// SessionID identifies the conversation transcript.
func (m *Manager) SessionID() string {
	return m.agent.SessionID()
}

// ServerInfo reports what the tool server announced during the handshake.
// It is empty while disconnected.
func (m *Manager) ServerInfo() adapter.ServerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return adapter.ServerInfo{}
	}
	return m.server.ServerInfo()
}

// History returns the conversation transcript.
func (m *Manager) History() []session.Message {
	return m.agent.History()
}

// Connect opens the tool server connection and installs its tool list,
// replacing whatever set was there. It is only valid when disconnected. A
// tool list that cannot be read completely is logged and the partial set is
// used; a broken transport aborts the connect.
func (m *Manager) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDisconnected {
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, m.state)
	}
	m.state = StateConnecting

	if err := m.server.Connect(ctx); err != nil {
		m.state = StateDisconnected
		return fmt.Errorf("bridge: connect: %w", err)
	}

	descriptors, err := m.server.ListTools(ctx)
	if err != nil {
		if errors.Is(err, adapter.ErrTransport) {
			closeErr := m.closeLocked()
			return errors.Join(fmt.Errorf("bridge: list tools: %w", err), closeErr)
		}
		m.logger.Printf("bridge: list tools: %v (continuing with %d tools)", err, len(descriptors))
	}
	m.registry.Replace(m.adapter.Adapt(descriptors))
	m.state = StateConnected
	m.logger.Printf("bridge: connected with %d tools [%s]", m.registry.Len(), strings.Join(m.registry.Names(), ", "))
	return nil
}

// Close releases the connection. Closing a disconnected manager is a no-op.
// The tool set is kept so a later Connect can replace it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisconnected {
		return nil
	}
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	m.state = StateClosing
	err := m.server.Close()
	m.state = StateDisconnected
	if err != nil {
		return fmt.Errorf("bridge: close: %w", err)
	}
	return nil
}

// Query sends text to the chat agent. Inference failures come back as
// *agent.InferenceError and leave the session connected.
func (m *Manager) Query(ctx context.Context, text string) (*agent.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil, ErrNotConnected
	}
	return m.agent.Chat(ctx, text)
}

// Execute routes calls to the tool server. Per-call failures are reported on
// the outcomes. When the transport breaks the session is closed and an error
// wrapping adapter.ErrTransport is returned alongside the outcomes gathered.
func (m *Manager) Execute(ctx context.Context, calls []model.ToolCall) ([]tool.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil, ErrNotConnected
	}
	outcomes := m.router.Execute(ctx, calls)
	for _, out := range outcomes {
		if !out.Fatal {
			continue
		}
		m.logger.Printf("bridge: transport failure during %s, closing session", out.Call.Name)
		closeErr := m.closeLocked()
		return outcomes, errors.Join(fmt.Errorf("%w: %s", adapter.ErrTransport, out.Error), closeErr)
	}
	return outcomes, nil
}
