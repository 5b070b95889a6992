package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message roles. A message's role is fixed at creation and never changes.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Theme tags accepted by the store. The zero value of the preference is
// ThemeDark, matching the default appearance of the web client.
const (
	ThemeDark      = "dark"
	ThemeLight     = "light"
	ThemeMonoDark  = "mono-dark"
	ThemeMonoLight = "mono-light"
)

// ValidTheme reports whether tag is one of the known theme tags.
func ValidTheme(tag string) bool {
	switch tag {
	case ThemeDark, ThemeLight, ThemeMonoDark, ThemeMonoLight:
		return true
	}
	return false
}

// SessionNameLimit is the number of leading characters of the first topic
// used as the session's display name.
const SessionNameLimit = 20

// Message represents a single turn in a session. Assistant content is
// Markdown. All optional fields (pin flag, reactions, last-edited stamp)
// exist on every message with defaulted values, regardless of whether the
// client revision that wrote them knew about them.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Timestamp is the display-formatted creation time shown next to the
	// message. CreatedAt is the canonical instant; it drives the edit
	// window and survives serialization.
	Timestamp  string         `json:"timestamp"`
	CreatedAt  time.Time      `json:"created_at"`
	IsPinned   bool           `json:"is_pinned,omitempty"`
	Reactions  map[string]int `json:"reactions,omitempty"`
	LastEdited *time.Time     `json:"last_edited,omitempty"`
}

// NewMessage builds a message with both timestamp representations stamped
// from the same instant.
func NewMessage(role, content string, now time.Time) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: now.Format("3:04 PM"),
		CreatedAt: now,
	}
}

// Session is a named, ordered conversation thread. It exclusively owns its
// messages; storage order is insertion order (pin sorting is a display
// transform applied on read, never a mutation of this slice).
type Session struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// DeriveSessionName returns the display label for a session created from the
// given topic: the first SessionNameLimit characters (rune-safe), or a
// fallback literal for a blank topic.
func DeriveSessionName(topic string) string {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return "New Chat"
	}
	runes := []rune(trimmed)
	if len(runes) > SessionNameLimit {
		return string(runes[:SessionNameLimit])
	}
	return trimmed
}

// SnapshotVersion is the current version of the persisted session snapshot.
// The original client wrote a bare JSON array with no versioning; the
// envelope below exists so future format changes can migrate instead of
// silently discarding state.
const SnapshotVersion = 1

// SessionSnapshot is the envelope written to the persistence collaborator
// under the sessions key.
type SessionSnapshot struct {
	Version  int       `json:"version"`
	Sessions []Session `json:"sessions"`
}
