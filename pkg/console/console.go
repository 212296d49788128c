// Package console runs the interactive operator loop on top of a bridge
// session.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/cexll/mcpbridge/pkg/agent"
	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/tool"
)

const (
	queryPrompt   = "Query: "
	confirmPrompt = "Do you want to execute the tool calls? (yes/no): "
	quitLabel     = "quit"
	backendHint   = "Is the Ollama daemon running? Check OLLAMA_HOST or --ollama-host."
)

var (
	statusColor = color.New(color.FgCyan)
	headerColor = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	resultColor = color.New(color.FgMagenta)

	styleToolCall = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
)

// Session is the part of bridge.Manager the console drives.
type Session interface {
	Query(ctx context.Context, text string) (*agent.Response, error)
	Execute(ctx context.Context, calls []model.ToolCall) ([]tool.Outcome, error)
	Close() error
}

// Options tune the loop.
type Options struct {
	// QuitToken ends the loop; compared case-insensitively. Defaults to "quit".
	QuitToken string
	// AutoConfirm runs tool calls without asking.
	AutoConfirm bool
}

// Console reads queries, shows model replies and, once confirmed, runs the
// requested tool calls.
type Console struct {
	session Session
	in      LineReader
	out     io.Writer
	opts    Options
}

// New builds a console writing to out.
func New(session Session, in LineReader, out io.Writer, opts Options) *Console {
	if strings.TrimSpace(opts.QuitToken) == "" {
		opts.QuitToken = quitLabel
	}
	return &Console{session: session, in: in, out: out, opts: opts}
}

type queryReport struct {
	Query          string `json:"query"`
	MessageContent string `json:"message_content"`
}

// Run loops until the quit token, end of input, cancellation or a broken
// tool server connection. The session is closed on the way out. Errors in a
// single iteration are printed and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	statusColor.Fprintln(c.out, "\nMCP Client Started!")
	fmt.Fprintf(c.out, "Type your queries or '%s' to exit.\n", c.opts.QuitToken)

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, c.session.Close())
		}
		fmt.Fprintln(c.out)
		line, err := c.in.ReadLine(queryPrompt)
		if errors.Is(err, io.EOF) {
			return c.session.Close()
		}
		if err != nil {
			return errors.Join(fmt.Errorf("read query: %w", err), c.session.Close())
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, c.opts.QuitToken) {
			return c.session.Close()
		}

		if err := c.iterate(ctx, query); err != nil {
			c.printError(err)
			if errors.Is(err, adapter.ErrTransport) {
				return err
			}
		}
	}
}

func (c *Console) iterate(ctx context.Context, query string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()

	resp, err := c.session.Query(ctx, query)
	if err != nil {
		return err
	}
	if err := c.printJSON(queryReport{Query: query, MessageContent: resp.Text}); err != nil {
		return err
	}
	c.printToolCalls(resp.ToolCalls)
	if !resp.HasToolCalls() {
		return nil
	}

	if !c.opts.AutoConfirm {
		answer, err := c.in.ReadLine("\n" + confirmPrompt)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
			return nil
		}
	}

	statusColor.Fprintln(c.out, "\nExecuting tool calls...")
	outcomes, execErr := c.session.Execute(ctx, resp.ToolCalls)
	c.printOutcomes(outcomes)
	return execErr
}

func (c *Console) printJSON(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := c.out.Write(buf.Bytes())
	return err
}

func (c *Console) printToolCalls(calls []model.ToolCall) {
	headerColor.Fprintln(c.out, "\nTool Calls:")
	if len(calls) == 0 {
		fmt.Fprintln(c.out, "(none)")
		return
	}
	boxes := lo.Map(calls, func(call model.ToolCall, _ int) string {
		return styleToolCall.Render(formatCall(call))
	})
	fmt.Fprintln(c.out, strings.Join(boxes, "\n"))
}

func (c *Console) printOutcomes(outcomes []tool.Outcome) {
	headerColor.Fprintln(c.out, "\nTool Call Raw Output:")
	for _, out := range outcomes {
		fmt.Fprintln(c.out, rawOutput(out))
	}
	headerColor.Fprintln(c.out, "\nTool Call Output (formatted):")
	for _, out := range outcomes {
		if out.Failed() {
			errorColor.Fprintln(c.out, out.Text())
			continue
		}
		resultColor.Fprintln(c.out, formattedOutput(out.Result))
	}
	if failed := lo.CountBy(outcomes, func(o tool.Outcome) bool { return o.Failed() }); failed > 0 && len(outcomes) > 1 {
		errorColor.Fprintf(c.out, "%d of %d tool calls failed\n", failed, len(outcomes))
	}
}

func (c *Console) printError(err error) {
	errorColor.Fprintf(c.out, "\nError: %v\n", err)
	if agent.IsConnectionFailure(err) {
		statusColor.Fprintln(c.out, backendHint)
	}
}

func formatCall(call model.ToolCall) string {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%s(%v)", call.Name, args)
	}
	return fmt.Sprintf("%s(%s)", call.Name, data)
}

func rawOutput(out tool.Outcome) string {
	if out.Error != "" {
		return out.Error
	}
	if out.Result == nil {
		return "{}"
	}
	data, err := json.Marshal(out.Result)
	if err != nil {
		return string(out.Result.Content)
	}
	return string(data)
}

// formattedOutput shows the first text item, indented when it holds JSON,
// and falls back to the indented content array.
func formattedOutput(res *adapter.ToolCallResult) string {
	if text, ok := res.FirstText(); ok {
		var buf bytes.Buffer
		if json.Valid([]byte(text)) && json.Indent(&buf, []byte(text), "", "  ") == nil {
			return buf.String()
		}
		return text
	}
	if res == nil || len(res.Content) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Content, "", "  "); err != nil {
		return string(res.Content)
	}
	return buf.String()
}
