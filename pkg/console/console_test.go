package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/cexll/mcpbridge/pkg/agent"
	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/tool"
)

func init() {
	color.NoColor = true
}

type scriptedReader struct {
	lines   []string
	prompts []string
}

func (r *scriptedReader) ReadLine(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() error { return nil }

type fakeSession struct {
	respond  func(query string) (*agent.Response, error)
	execute  func(calls []model.ToolCall) ([]tool.Outcome, error)
	queries  []string
	executed [][]model.ToolCall
	closed   int
}

func (s *fakeSession) Query(_ context.Context, text string) (*agent.Response, error) {
	s.queries = append(s.queries, text)
	if s.respond == nil {
		return &agent.Response{Text: "hello"}, nil
	}
	return s.respond(text)
}

func (s *fakeSession) Execute(_ context.Context, calls []model.ToolCall) ([]tool.Outcome, error) {
	s.executed = append(s.executed, calls)
	if s.execute == nil {
		return nil, nil
	}
	return s.execute(calls)
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

func textResult(text string) *adapter.ToolCallResult {
	raw, _ := json.Marshal([]map[string]string{{"type": "text", "text": text}})
	return &adapter.ToolCallResult{Content: raw}
}

var listFilesCall = model.ToolCall{Name: "list_files", Arguments: map[string]any{"directory": "/tmp"}}

func listFilesSession() *fakeSession {
	return &fakeSession{
		respond: func(string) (*agent.Response, error) {
			return &agent.Response{ToolCalls: []model.ToolCall{listFilesCall}}, nil
		},
		execute: func(calls []model.ToolCall) ([]tool.Outcome, error) {
			return []tool.Outcome{{Call: calls[0], Result: textResult("file1.txt\nfile2.txt")}}, nil
		},
	}
}

func run(t *testing.T, sess Session, opts Options, lines ...string) (string, *scriptedReader, error) {
	t.Helper()
	reader := &scriptedReader{lines: lines}
	var out bytes.Buffer
	err := New(sess, reader, &out, opts).Run(context.Background())
	return out.String(), reader, err
}

func TestConsoleQuitClosesSession(t *testing.T) {
	for _, token := range []string{"quit", "QUIT", "  Quit  "} {
		t.Run(token, func(t *testing.T) {
			sess := &fakeSession{}
			out, _, err := run(t, sess, Options{}, token, "never read")
			require.NoError(t, err)
			require.Equal(t, 1, sess.closed)
			require.Empty(t, sess.queries)
			require.Contains(t, out, "Type your queries or 'quit' to exit.")
		})
	}
}

func TestConsoleEOFClosesSession(t *testing.T) {
	sess := &fakeSession{}
	_, reader, err := run(t, sess, Options{QuitToken: "exit"}, "", "hi")
	require.NoError(t, err)
	require.Equal(t, 1, sess.closed)
	require.Equal(t, []string{"hi"}, sess.queries)
	require.Equal(t, queryPrompt, reader.prompts[0])
}

func TestConsolePrintsQueryReport(t *testing.T) {
	sess := &fakeSession{respond: func(q string) (*agent.Response, error) {
		return &agent.Response{Text: "Paris <capital>"}, nil
	}}
	out, reader, err := run(t, sess, Options{}, "capital of France?", "quit")
	require.NoError(t, err)
	require.Contains(t, out, "{\n  \"query\": \"capital of France?\",\n  \"message_content\": \"Paris <capital>\"\n}")
	require.Contains(t, out, "Tool Calls:\n(none)")
	require.Empty(t, sess.executed)
	for _, p := range reader.prompts {
		require.NotContains(t, p, confirmPrompt)
	}
}

func TestConsoleExecutesConfirmedToolCalls(t *testing.T) {
	sess := listFilesSession()
	out, reader, err := run(t, sess, Options{}, "What files are in /tmp?", " YES ", "quit")
	require.NoError(t, err)
	require.Equal(t, [][]model.ToolCall{{listFilesCall}}, sess.executed)
	require.Contains(t, reader.prompts, "\n"+confirmPrompt)
	require.Contains(t, out, `list_files({"directory":"/tmp"})`)
	require.Contains(t, out, "Executing tool calls...")
	require.Contains(t, out, "Tool Call Raw Output:")
	require.Contains(t, out, `{"content":[{"text":"file1.txt\nfile2.txt","type":"text"}]}`)
	require.Contains(t, out, "Tool Call Output (formatted):\nfile1.txt\nfile2.txt")
}

func TestConsoleDeclinedToolCalls(t *testing.T) {
	sess := listFilesSession()
	out, _, err := run(t, sess, Options{}, "What files are in /tmp?", "no", "quit")
	require.NoError(t, err)
	require.Empty(t, sess.executed)
	require.NotContains(t, out, "Executing tool calls...")
}

func TestConsoleAutoConfirm(t *testing.T) {
	sess := listFilesSession()
	_, reader, err := run(t, sess, Options{AutoConfirm: true}, "What files are in /tmp?", "quit")
	require.NoError(t, err)
	require.Len(t, sess.executed, 1)
	require.NotContains(t, reader.prompts, "\n"+confirmPrompt)
}

func TestConsoleErrorsDoNotStopTheLoop(t *testing.T) {
	calls := 0
	sess := &fakeSession{respond: func(q string) (*agent.Response, error) {
		calls++
		switch calls {
		case 1:
			return nil, &agent.InferenceError{Kind: agent.FailureConnection, Err: errors.New("connection refused")}
		case 2:
			panic("renderer exploded")
		default:
			return &agent.Response{Text: "fine"}, nil
		}
	}}
	out, _, err := run(t, sess, Options{}, "one", "two", "three", "quit")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, sess.queries)
	require.Contains(t, out, "Error: cannot reach inference backend: connection refused\n"+backendHint)
	require.Contains(t, out, "Error: renderer exploded")
	require.Equal(t, 1, strings.Count(out, backendHint))
	require.Contains(t, out, `"message_content": "fine"`)
	require.Equal(t, 1, sess.closed)
}

func TestConsoleToolFailuresAreShown(t *testing.T) {
	sess := listFilesSession()
	sess.execute = func(calls []model.ToolCall) ([]tool.Outcome, error) {
		return []tool.Outcome{
			{Call: calls[0], Error: tool.NotAvailableMessage("weather"), Unavailable: true},
			{Call: calls[0], Result: textResult(`{"ok":true}`)},
		}, nil
	}
	out, _, err := run(t, sess, Options{AutoConfirm: true}, "q", "quit")
	require.NoError(t, err)
	require.Contains(t, out, "Function weather is not available.")
	require.Contains(t, out, "{\n  \"ok\": true\n}")
	require.Contains(t, out, "1 of 2 tool calls failed")
}

func TestConsoleTransportFailureEndsLoop(t *testing.T) {
	sess := listFilesSession()
	sess.execute = func(calls []model.ToolCall) ([]tool.Outcome, error) {
		return []tool.Outcome{{Call: calls[0], Error: "Error executing tool calls: EOF", Fatal: true}},
			fmt.Errorf("%w: EOF", adapter.ErrTransport)
	}
	out, _, err := run(t, sess, Options{AutoConfirm: true}, "q", "never read")
	require.ErrorIs(t, err, adapter.ErrTransport)
	require.Len(t, sess.queries, 1)
	require.True(t, strings.Contains(out, "Error: mcp adapter: transport failure: EOF"))
}

func TestConsoleCancelledContext(t *testing.T) {
	sess := &fakeSession{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(sess, &scriptedReader{lines: []string{"hi"}}, io.Discard, Options{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, sess.closed)
	require.Empty(t, sess.queries)
}

func TestFormattedOutputFallbacks(t *testing.T) {
	require.Equal(t, "", formattedOutput(nil))
	image := &adapter.ToolCallResult{Content: json.RawMessage(`[{"type":"image","data":"AA=="}]`)}
	require.Equal(t, "[\n  {\n    \"type\": \"image\",\n    \"data\": \"AA==\"\n  }\n]", formattedOutput(image))
}
