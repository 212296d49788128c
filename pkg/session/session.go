// Package session holds the conversation transcript the chat agent sends on
// every inference request.
package session

import "errors"

var (
	ErrInvalidSessionID      = errors.New("session: id is required")
	ErrInvalidMessage        = errors.New("session: invalid message")
	ErrInvalidCheckpointName = errors.New("session: checkpoint name is required")
	ErrCheckpointNotFound    = errors.New("session: checkpoint not found")
)
