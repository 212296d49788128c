package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type transportKind int

const (
	kindStdio transportKind = iota
	kindSSE
	kindStreamable
)

func (k transportKind) String() string {
	switch k {
	case kindStdio:
		return "stdio"
	case kindSSE:
		return "sse"
	case kindStreamable:
		return "streamable-http"
	default:
		return "unknown"
	}
}

const (
	stdioPrefix = "stdio://"
	ssePrefix   = "sse://"
)

// buildTransport turns a server address into an MCP transport.
//
//	stdio://cmd args         spawn cmd and speak over stdin/stdout
//	sse://host/path          SSE, https assumed when the scheme is omitted
//	http+sse://host/path     SSE over plain http
//	http+stream://host/path  streamable HTTP (also +http, +json, +streamable)
//	http(s)://host/path      SSE
//	anything else            treated as a stdio command line
func buildTransport(ctx context.Context, spec string, httpClient *http.Client) (mcpsdk.Transport, error) {
	kind, target, err := parseTransportSpec(spec)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindStdio:
		args := strings.Fields(target)
		if len(args) == 0 {
			return nil, fmt.Errorf("mcp adapter: stdio command is empty")
		}
		if ctx == nil {
			ctx = context.Background()
		}
		// #nosec G204 -- the command comes from operator configuration
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	case kindStreamable:
		return &mcpsdk.StreamableClientTransport{Endpoint: target, HTTPClient: httpClient}, nil
	default:
		return &mcpsdk.SSEClientTransport{Endpoint: target, HTTPClient: httpClient}, nil
	}
}

func parseTransportSpec(spec string) (transportKind, string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, "", fmt.Errorf("mcp adapter: transport spec is empty")
	}
	lowered := strings.ToLower(spec)

	if strings.HasPrefix(lowered, stdioPrefix) {
		return kindStdio, strings.TrimSpace(spec[len(stdioPrefix):]), nil
	}
	if strings.HasPrefix(lowered, ssePrefix) {
		endpoint, err := normalizeEndpoint(spec[len(ssePrefix):], true)
		if err != nil {
			return 0, "", fmt.Errorf("mcp adapter: invalid SSE endpoint: %w", err)
		}
		return kindSSE, endpoint, nil
	}

	u, err := url.Parse(spec)
	if err != nil || u.Scheme == "" {
		return kindStdio, spec, nil
	}
	base, hint, hinted := strings.Cut(strings.ToLower(u.Scheme), "+")
	if base != "http" && base != "https" {
		return kindStdio, spec, nil
	}

	kind := kindSSE
	if hinted {
		if i := strings.IndexByte(hint, '+'); i >= 0 {
			hint = hint[:i]
		}
		switch hint {
		case "sse":
		case "stream", "streamable", "http", "json":
			kind = kindStreamable
		default:
			return 0, "", fmt.Errorf("mcp adapter: unsupported HTTP transport hint %q", hint)
		}
	}
	rewritten := *u
	rewritten.Scheme = base
	endpoint, err := normalizeEndpoint(rewritten.String(), false)
	if err != nil {
		return 0, "", fmt.Errorf("mcp adapter: invalid %s endpoint: %w", kind, err)
	}
	return kind, endpoint, nil
}

func normalizeEndpoint(raw string, guessScheme bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if guessScheme && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	u.Scheme = scheme
	return u.String(), nil
}
