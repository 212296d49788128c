package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

const (
	defaultClientName    = "mcpbridge"
	defaultClientVersion = "dev"
)

// Client owns one connection to an MCP tool server. The zero value is not
// usable; construct with NewClient. A closed client may be connected again.
type Client struct {
	mu            sync.Mutex
	implClient    *mcpsdk.Client
	transportSpec string
	session       *mcpsdk.ClientSession
	resources     *scope
	info          ServerInfo
	logger        *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger routes client diagnostics to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithImplementation overrides the client name/version sent during initialize.
func WithImplementation(name, version string) Option {
	return func(c *Client) {
		c.implClient = mcpsdk.NewClient(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	}
}

// NewClient builds a client for the given server address. See buildTransport
// for the accepted forms.
func NewClient(spec string, opts ...Option) *Client {
	c := &Client{
		implClient:    mcpsdk.NewClient(&mcpsdk.Implementation{Name: defaultClientName, Version: defaultClientVersion}, nil),
		transportSpec: spec,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the transport and completes the initialize handshake. On
// failure everything acquired so far is released.
func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.implClient == nil {
		return errors.New("mcp adapter: nil client implementation")
	}
	if c.session != nil {
		return ErrAlreadyConnected
	}

	resources := &scope{}
	httpClient := &http.Client{}
	resources.push("transport", func() error {
		httpClient.CloseIdleConnections()
		return nil
	})

	transport, err := transportBuilder(ctx, c.transportSpec, httpClient)
	if err != nil {
		return errors.Join(fmt.Errorf("build transport: %w", err), resources.close())
	}
	session, err := c.implClient.Connect(ctx, transport, nil)
	if err != nil {
		return errors.Join(fmt.Errorf("%w: connect %s: %w", ErrTransport, c.transportSpec, err), resources.close())
	}
	resources.push("session", session.Close)

	c.session = session
	c.resources = resources
	c.info = toServerInfo(session.InitializeResult())
	c.logger.Printf("mcp: connected to %s (server %s %s, protocol %s)", c.transportSpec, c.info.Name, c.info.Version, c.info.ProtocolVersion)
	return nil
}

// ServerInfo returns the handshake details of the current connection.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// ListTools fetches the full tool list. When iteration fails part way the
// descriptors read so far are returned together with the error.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	var tools []ToolDescriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return tools, classifyError(err)
		}
		tools = append(tools, toToolDescriptor(tool))
	}
	return tools, nil
}

// InvokeTool calls name with args on the server and returns the raw result.
// A result flagged IsError by the server is not an error here.
func (c *Client) InvokeTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, classifyError(err)
	}
	return toToolCallResult(res), nil
}

// Close releases the session and then the transport. Both are attempted and
// their errors joined. Closing a disconnected client is a no-op.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil && c.resources == nil {
		return nil
	}
	err := c.resources.close()
	c.session = nil
	c.resources = nil
	c.info = ServerInfo{}
	if err != nil {
		c.logger.Printf("mcp: close %s: %v", c.transportSpec, err)
	}
	return err
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return err
}

func isTransportError(err error) bool {
	if errors.Is(err, ErrTransport) ||
		errors.Is(err, mcpsdk.ErrConnectionClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
