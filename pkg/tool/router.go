package tool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"time"

	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
)

// Invoker forwards a tool call to the tool server.
type Invoker interface {
	InvokeTool(ctx context.Context, name string, args map[string]any) (*adapter.ToolCallResult, error)
}

// Outcome is the result of routing one tool call.
type Outcome struct {
	Call   model.ToolCall
	Result *adapter.ToolCallResult
	// Error is the operator-facing message when no result was produced.
	Error string
	// Unavailable is set when the tool is not in the current tool set.
	Unavailable bool
	// Fatal is set when the connection to the tool server broke.
	Fatal    bool
	Duration time.Duration
}

// Failed reports whether the call produced no usable result or the server
// flagged its result as an error.
func (o Outcome) Failed() bool {
	return o.Error != "" || (o.Result != nil && o.Result.IsError)
}

// Text renders the outcome for display: the error message, or the text
// content of the result.
func (o Outcome) Text() string {
	if o.Error != "" {
		return o.Error
	}
	return o.Result.Text()
}

// NotAvailableMessage is the outcome text for unknown tool names.
func NotAvailableMessage(name string) string {
	return fmt.Sprintf("Function %s is not available.", name)
}

// Router matches model tool calls against the registry and forwards them to
// the tool server.
type Router struct {
	registry  *Registry
	invoker   Invoker
	validator Validator
	logger    *log.Logger
	now       func() time.Time
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithValidator checks arguments against the tool's parameter schema before
// anything is sent to the server.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) { r.validator = v }
}

// WithRouterLogger routes diagnostics to logger.
func WithRouterLogger(logger *log.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter builds a router over registry that forwards through invoker.
func NewRouter(registry *Registry, invoker Invoker, opts ...RouterOption) *Router {
	r := &Router{
		registry: registry,
		invoker:  invoker,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute routes every call in order and returns one outcome per call.
// Failures are reported on the outcomes, never returned. Once an outcome is
// Fatal the remaining calls are not attempted.
func (r *Router) Execute(ctx context.Context, calls []model.ToolCall) []Outcome {
	outcomes := make([]Outcome, 0, len(calls))
	for _, call := range calls {
		out := r.executeOne(ctx, call)
		outcomes = append(outcomes, out)
		if out.Fatal {
			if skipped := len(calls) - len(outcomes); skipped > 0 {
				r.logger.Printf("tool: transport failed, skipping %d remaining call(s)", skipped)
			}
			break
		}
	}
	return outcomes
}

func (r *Router) executeOne(ctx context.Context, call model.ToolCall) (out Outcome) {
	out.Call = call
	out.Call.Arguments = maps.Clone(call.Arguments)
	started := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			out.Result = nil
			out.Error = fmt.Sprintf("Error executing tool calls: %v", rec)
		}
		out.Duration = r.now().Sub(started)
	}()

	if r.registry == nil {
		out.Unavailable = true
		out.Error = NotAvailableMessage(call.Name)
		return out
	}
	tool, ok := r.registry.Lookup(call.Name)
	if !ok {
		out.Unavailable = true
		out.Error = NotAvailableMessage(call.Name)
		return out
	}
	if r.validator != nil {
		if err := r.validator.Validate(call.Arguments, SchemaFromParameters(tool.Function.Parameters)); err != nil {
			out.Error = fmt.Sprintf("Error executing tool calls: invalid arguments for %s: %v", call.Name, err)
			return out
		}
	}
	if r.invoker == nil {
		out.Error = "Error executing tool calls: no tool server connection"
		return out
	}

	res, err := r.invoker.InvokeTool(ctx, call.Name, call.Arguments)
	if err != nil {
		out.Error = fmt.Sprintf("Error executing tool calls: %v", err)
		out.Fatal = errors.Is(err, adapter.ErrTransport)
		r.logger.Printf("tool: %s failed: %v", call.Name, err)
		return out
	}
	out.Result = res
	return out
}
