// Package server exposes a tool set as an MCP server over SSE and
// streamable HTTP.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	toolbuiltin "github.com/cexll/mcpbridge/pkg/tool/builtin"
)

const (
	DefaultName    = "SSE MCP Server"
	DefaultVersion = "dev"

	SSEPath        = "/sse"
	StreamablePath = "/mcp"
	HealthPath     = "/healthz"
)

// Options configure the server.
type Options struct {
	Name    string
	Version string
	Logger  *log.Logger
}

// New builds an MCP server exposing tools.
func New(tools []toolbuiltin.Definition, opts Options) *mcpsdk.Server {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: opts.Name, Version: opts.Version}, nil)
	for _, def := range tools {
		srv.AddTool(&mcpsdk.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, toolHandler(def, logger))
	}
	return srv
}

// toolHandler reports tool failures as results flagged isError, carrying the
// handler's message (e.g. "Error listing files: ...") as text. The console
// shows the same text as for a server that returns it as a plain result;
// the flag additionally counts the call as failed.
func toolHandler(def toolbuiltin.Definition, logger *log.Logger) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		out, err := def.Handler(ctx, req.Params.Arguments)
		if err != nil {
			logger.Printf("mcp server: %s: %v", def.Name, err)
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out}},
		}, nil
	}
}

// Handler routes the SSE endpoint, the streamable HTTP endpoint and a
// health check for srv.
func Handler(srv *mcpsdk.Server) http.Handler {
	getServer := func(*http.Request) *mcpsdk.Server { return srv }

	router := mux.NewRouter()
	router.Handle(SSEPath, mcpsdk.NewSSEHandler(getServer, nil))
	router.Handle(StreamablePath, mcpsdk.NewStreamableHTTPHandler(getServer, nil))
	router.HandleFunc(HealthPath, healthCheckHandler).Methods(http.MethodGet)
	return router
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
