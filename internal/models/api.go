package models

import (
	"github.com/google/uuid"
)

// --- Request Structs ---

// UnlockRequest defines the expected body for the unlock endpoint.
type UnlockRequest struct {
	Passphrase string `json:"passphrase"`
}

// SubmitTopicRequest defines the body for submitting a topic to the current
// (or a freshly created) session.
type SubmitTopicRequest struct {
	Topic string `json:"topic"`
}

// EditMessageRequest defines the body for editing a user message in place.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// AddReactionRequest defines the body for reacting to a message.
type AddReactionRequest struct {
	Emoji string `json:"emoji"`
}

// ThemeRequest defines the body for updating the theme preference.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// DraftRequest defines the body for updating the composer draft.
type DraftRequest struct {
	Draft string `json:"draft"`
}

// --- Response Structs ---

// UnlockResponse defines the response body for a successful unlock.
type UnlockResponse struct {
	AccessToken string `json:"access_token"`
}

// SessionSummary is the session list entry returned by the API. Message
// bodies are omitted; the list view only needs names and counts.
type SessionSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MessageCount int       `json:"message_count"`
	Current      bool      `json:"current"`
}

// ListSessionsResponse wraps the (optionally search-filtered) session list.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// SessionResponse returns a full session after a mutation.
type SessionResponse struct {
	Session *Session `json:"session"`
}

// MessagesResponse returns the visible window of the current session's
// messages, pin-sorted for display.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	Visible  int       `json:"visible"`
}

// ThemeResponse returns the current theme preference.
type ThemeResponse struct {
	Theme string `json:"theme"`
}

// DraftResponse returns the current composer draft.
type DraftResponse struct {
	Draft string `json:"draft"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
