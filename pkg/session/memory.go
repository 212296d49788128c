package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemorySession keeps the transcript in process memory. Checkpoint and
// Resume let a caller undo appends made during a failed turn. Nothing
// survives a restart.
type MemorySession struct {
	id          string
	mu          sync.RWMutex
	messages    []Message
	checkpoints map[string][]Message
	seq         uint64
	now         func() time.Time
}

// NewMemorySession constructs a MemorySession with the provided identifier.
func NewMemorySession(id string) (*MemorySession, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, ErrInvalidSessionID
	}
	return &MemorySession{
		id:          trimmed,
		messages:    make([]Message, 0, 16),
		checkpoints: make(map[string][]Message),
		now:         time.Now,
	}, nil
}

// ID returns the stable identifier for the session.
func (s *MemorySession) ID() string {
	return s.id
}

// Append adds msg to the end of the transcript. The first message must be the
// system prompt and no later message may be one.
func (s *MemorySession) Append(msg Message) error {
	role := strings.TrimSpace(msg.Role)
	if role == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidMessage)
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, role)
	}
	msg.Role = role

	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.messages) == 0
	if first && role != RoleSystem {
		return fmt.Errorf("%w: transcript must start with the system prompt", ErrInvalidMessage)
	}
	if !first && role == RoleSystem {
		return fmt.Errorf("%w: system prompt already set", ErrInvalidMessage)
	}
	s.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%06d", s.id, s.seq)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	} else {
		msg.Timestamp = msg.Timestamp.UTC()
	}
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the whole transcript.
func (s *MemorySession) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages)
}

// Len reports the number of turns.
func (s *MemorySession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Checkpoint stores a snapshot of the transcript under the provided name.
func (s *MemorySession) Checkpoint(name string) error {
	normalized, err := normalizeCheckpointName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[normalized] = cloneMessages(s.messages)
	return nil
}

// Resume replaces the current transcript with the stored checkpoint.
func (s *MemorySession) Resume(name string) error {
	normalized, err := normalizeCheckpointName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.checkpoints[normalized]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCheckpointNotFound, normalized)
	}
	s.messages = cloneMessages(snapshot)
	return nil
}

func normalizeCheckpointName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidCheckpointName
	}
	return trimmed, nil
}

func cloneMessages(src []Message) []Message {
	if len(src) == 0 {
		return nil
	}
	return append([]Message(nil), src...)
}
