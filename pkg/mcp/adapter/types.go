package adapter

import (
	"encoding/json"
	"errors"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrNotConnected reports operations issued before Connect or after Close.
	ErrNotConnected = errors.New("mcp adapter: not connected")
	// ErrAlreadyConnected reports a Connect on a live client.
	ErrAlreadyConnected = errors.New("mcp adapter: already connected")
	// ErrTransport marks failures of the underlying stream. Callers treat it as
	// fatal to the session.
	ErrTransport = errors.New("mcp adapter: transport failure")
)

// ToolDescriptor is a tool as declared by the server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolCallResult is the raw payload returned by tools/call.
type ToolCallResult struct {
	Content json.RawMessage `json:"content"`
	IsError bool            `json:"isError,omitempty"`
}

// ServerInfo is what the server reported during the initialize handshake.
type ServerInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text concatenates the text items of the result. Non-text content is ignored.
func (r *ToolCallResult) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	var items []contentItem
	if err := json.Unmarshal(r.Content, &items); err != nil {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FirstText returns the first text item, mirroring how operators usually
// read single-content results.
func (r *ToolCallResult) FirstText() (string, bool) {
	if r == nil || len(r.Content) == 0 {
		return "", false
	}
	var items []contentItem
	if err := json.Unmarshal(r.Content, &items); err != nil {
		return "", false
	}
	for _, item := range items {
		if item.Type == "text" {
			return item.Text, true
		}
	}
	return "", false
}

func toToolDescriptor(tool *mcpsdk.Tool) ToolDescriptor {
	if tool == nil {
		return ToolDescriptor{}
	}
	desc := ToolDescriptor{Name: tool.Name, Description: tool.Description}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			desc.Schema = raw
		}
	}
	return desc
}

func toToolCallResult(res *mcpsdk.CallToolResult) *ToolCallResult {
	if res == nil {
		return &ToolCallResult{}
	}
	out := &ToolCallResult{IsError: res.IsError}
	if len(res.Content) > 0 {
		if raw, err := json.Marshal(res.Content); err == nil {
			out.Content = raw
		}
	}
	return out
}

func toServerInfo(res *mcpsdk.InitializeResult) ServerInfo {
	if res == nil {
		return ServerInfo{}
	}
	info := ServerInfo{ProtocolVersion: res.ProtocolVersion}
	if res.ServerInfo != nil {
		info.Name = res.ServerInfo.Name
		info.Version = res.ServerInfo.Version
	}
	return info
}
