package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/cexll/mcpbridge/pkg/model"
)

// Response is the outcome of one successful turn.
type Response struct {
	Text      string           `json:"text"`
	ToolCalls []model.ToolCall `json:"tool_calls,omitempty"`
	Duration  time.Duration    `json:"duration"`
}

// HasToolCalls reports whether the model asked for tools.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// FailureKind classifies an inference failure.
type FailureKind int

const (
	// FailureOther covers backend errors other than reachability.
	FailureOther FailureKind = iota
	// FailureConnection means the inference backend could not be reached.
	FailureConnection
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnection:
		return "connection"
	default:
		return "inference"
	}
}

// InferenceError reports a failed turn. The transcript is unchanged when one
// is returned.
type InferenceError struct {
	Kind FailureKind
	Err  error
}

func (e *InferenceError) Error() string {
	if e.Kind == FailureConnection {
		return fmt.Sprintf("cannot reach inference backend: %v", e.Err)
	}
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IsConnectionFailure reports whether err is an InferenceError caused by an
// unreachable backend.
func IsConnectionFailure(err error) bool {
	var ierr *InferenceError
	return errors.As(err, &ierr) && ierr.Kind == FailureConnection
}

func classifyFailure(err error) FailureKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureOther
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return FailureConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureConnection
	}
	return FailureOther
}
