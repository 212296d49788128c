package session

import (
	"slices"
	"time"
)

// Roles accepted in a transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var validRoles = []string{RoleSystem, RoleUser, RoleAssistant}

// ValidRole reports whether role may appear in a transcript.
func ValidRole(role string) bool {
	return slices.Contains(validRoles, role)
}

// Message is one conversational turn.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
