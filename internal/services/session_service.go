package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparkchat-backend/internal/llm"
	"sparkchat-backend/internal/models"
	"sparkchat-backend/internal/store"
)

// Persistence keys. Two logical values: the serialized session collection
// and the theme preference.
const (
	sessionsKey = "sessions"
	themeKey    = "theme"
)

const (
	// pageSize is how many messages the visible window grows by per
	// load-more request.
	pageSize = 10
	// editWindow is how long after creation a user message stays editable.
	editWindow = 5 * time.Minute
)

// ApologyMessage is the fixed assistant message shown for every completion
// failure. The underlying error is logged, never shown to the user.
const ApologyMessage = "Sorry, I ran into a problem while generating a response. Please try again."

var (
	ErrEmptyTopic        = errors.New("topic must not be empty")
	ErrNoCurrentSession  = errors.New("no session is selected")
	ErrSessionNotFound   = errors.New("session not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotUserMessage    = errors.New("only user messages can be edited")
	ErrEditWindowExpired = errors.New("edit window has expired")
	ErrRequestPending    = errors.New("a completion request is already in flight for this session")
	ErrInvalidTheme      = errors.New("unknown theme tag")
)

// SessionService is the single source of truth for chat sessions, the
// active-session pointer, the theme preference, and derived views. All
// access is serialized by an internal mutex; the completion call itself runs
// outside the lock so reads and other mutations are never blocked on the
// network.
type SessionService struct {
	mu    sync.Mutex
	store store.Store
	llm   llm.Client

	sessions  []models.Session
	currentID uuid.UUID // uuid.Nil when no session is selected
	theme     string
	draft     string
	visible   int

	// pending is the per-session request-state tag: a session with a
	// completion call in flight refuses further submissions.
	pending map[uuid.UUID]bool

	now func() time.Time
}

// NewSessionService hydrates state from the persistence collaborator and
// returns the store. Missing or malformed stored values are non-fatal: the
// service starts from empty/default state and logs a warning.
func NewSessionService(ctx context.Context, kv store.Store, client llm.Client) *SessionService {
	s := &SessionService{
		store:   kv,
		llm:     client,
		theme:   models.ThemeDark,
		visible: pageSize,
		pending: make(map[uuid.UUID]bool),
		now:     time.Now,
	}
	s.hydrate(ctx)
	return s
}

// hydrate loads the sessions and theme keys. It accepts both the current
// versioned envelope and the legacy bare-array format the browser client
// wrote.
func (s *SessionService) hydrate(ctx context.Context) {
	raw, err := s.store.Get(ctx, sessionsKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First run, nothing to load.
	case err != nil:
		log.Printf("WARN: Failed to read sessions from storage, starting empty: %v", err)
	default:
		var snap models.SessionSnapshot
		if jsonErr := json.Unmarshal([]byte(raw), &snap); jsonErr == nil && snap.Version == models.SnapshotVersion {
			s.sessions = snap.Sessions
		} else {
			// Legacy format: a bare array of sessions.
			var legacy []models.Session
			if jsonErr := json.Unmarshal([]byte(raw), &legacy); jsonErr == nil {
				s.sessions = legacy
			} else {
				log.Printf("WARN: Stored sessions are malformed, starting empty: %v", jsonErr)
			}
		}
	}

	theme, err := s.store.Get(ctx, themeKey)
	if err == nil && models.ValidTheme(theme) {
		s.theme = theme
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("WARN: Failed to read theme from storage, using default: %v", err)
	}
}

// persistSessions snapshots the full session collection. An empty collection
// is never written: hydration may not have observed stored sessions yet (for
// example when storage was briefly unreachable at startup), and an empty
// overwrite would clobber them. This is a load-order guard, not a general
// empty-state policy.
func (s *SessionService) persistSessions(ctx context.Context) {
	if len(s.sessions) == 0 {
		return
	}
	snap := models.SessionSnapshot{Version: models.SnapshotVersion, Sessions: s.sessions}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("WARN: Failed to serialize sessions: %v", err)
		return
	}
	if err := s.store.Set(ctx, sessionsKey, string(data)); err != nil {
		log.Printf("WARN: Failed to persist sessions: %v", err)
	}
}

func (s *SessionService) persistTheme(ctx context.Context) {
	if err := s.store.Set(ctx, themeKey, s.theme); err != nil {
		log.Printf("WARN: Failed to persist theme: %v", err)
	}
}

// SubmitTopic appends a user message with the submitted topic to the current
// session (creating one first if none is selected), dispatches exactly one
// completion call, and appends the assistant's reply — or the fixed apology
// message on failure — once the call settles. The user message is persisted
// before dispatch; the assistant message strictly after settlement.
func (s *SessionService) SubmitTopic(ctx context.Context, topic string) (*models.Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	s.mu.Lock()
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		id, err := uuid.NewV7()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}
		s.sessions = append(s.sessions, models.Session{
			ID:        id,
			Name:      models.DeriveSessionName(topic),
			CreatedAt: s.now(),
		})
		idx = len(s.sessions) - 1
		s.currentID = id
		s.visible = pageSize
	}
	sessionID := s.sessions[idx].ID

	if s.pending[sessionID] {
		s.mu.Unlock()
		return nil, ErrRequestPending
	}

	s.sessions[idx].Messages = append(s.sessions[idx].Messages, models.NewMessage(models.RoleUser, topic, s.now()))
	s.draft = ""
	s.pending[sessionID] = true
	s.persistSessions(ctx)
	s.mu.Unlock()

	// The only suspension point: one outstanding completion call, made
	// without holding the store lock.
	reply, err := s.llm.Complete(ctx, topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer delete(s.pending, sessionID)

	idx = s.indexOf(sessionID)
	if idx < 0 {
		// Session was deleted while the request was in flight; drop the
		// result.
		log.Printf("WARN: Session %s deleted before completion settled, discarding reply", sessionID)
		return nil, ErrSessionNotFound
	}

	content := reply
	if err != nil {
		log.Printf("WARN: Completion failed for session %s: %v", sessionID, err)
		content = ApologyMessage
	}
	s.sessions[idx].Messages = append(s.sessions[idx].Messages, models.NewMessage(models.RoleAssistant, content, s.now()))
	s.persistSessions(ctx)

	out := cloneSession(s.sessions[idx])
	return &out, nil
}

// DeleteSession removes the session with the given id. If it was the current
// session, the current-session pointer is cleared; no other session is
// auto-selected.
func (s *SessionService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	delete(s.pending, id)
	if s.currentID == id {
		s.currentID = uuid.Nil
		s.visible = pageSize
	}
	s.persistSessions(ctx)
	return nil
}

// SelectSession sets the current-session pointer, clears the draft buffer,
// and resets the visible-message cursor.
func (s *SessionService) SelectSession(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrSessionNotFound
	}
	s.currentID = id
	s.draft = ""
	s.visible = pageSize
	return nil
}

// TogglePin flips the pin flag on the message at the given position within
// the current session. Without a current session it is a silent no-op.
// Storage order is left untouched; pinned-first ordering is applied on read.
func (s *SessionService) TogglePin(ctx context.Context, messageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return nil
	}
	if messageIndex < 0 || messageIndex >= len(s.sessions[idx].Messages) {
		return ErrMessageNotFound
	}
	s.sessions[idx].Messages[messageIndex].IsPinned = !s.sessions[idx].Messages[messageIndex].IsPinned
	s.persistSessions(ctx)
	return nil
}

// EditMessage replaces the content of a user message and stamps LastEdited.
// Edits are only allowed within editWindow of the message's creation; stale
// edits fail and leave the content unchanged.
func (s *SessionService) EditMessage(ctx context.Context, messageIndex int, newContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentSession
	}
	if messageIndex < 0 || messageIndex >= len(s.sessions[idx].Messages) {
		return ErrMessageNotFound
	}
	msg := &s.sessions[idx].Messages[messageIndex]
	if msg.Role != models.RoleUser {
		return ErrNotUserMessage
	}
	now := s.now()
	if now.Sub(msg.CreatedAt) > editWindow {
		return ErrEditWindowExpired
	}
	msg.Content = newContent
	edited := now
	msg.LastEdited = &edited
	s.persistSessions(ctx)
	return nil
}

// AddReaction increments the counter for the given emoji on the message at
// the given position. Without a current session it is a silent no-op.
func (s *SessionService) AddReaction(ctx context.Context, messageIndex int, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return nil
	}
	if messageIndex < 0 || messageIndex >= len(s.sessions[idx].Messages) {
		return ErrMessageNotFound
	}
	msg := &s.sessions[idx].Messages[messageIndex]
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]int)
	}
	msg.Reactions[emoji]++
	s.persistSessions(ctx)
	return nil
}

// FilteredSessions returns sessions whose name or any message content
// contains the query, case-insensitively. An empty query matches all.
// Returned sessions are copies; mutating them does not affect the store.
func (s *SessionService) FilteredSessions(query string) []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if query == "" || sessionMatches(sess, query) {
			out = append(out, cloneSession(sess))
		}
	}
	return out
}

// VisibleMessages returns the current display window: the first N messages
// of the pin-sorted current session, where N is the visible cursor. The
// second return value is the total message count.
func (s *SessionService) VisibleMessages() ([]models.Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return nil, 0
	}
	msgs := pinSorted(s.sessions[idx].Messages)
	total := len(msgs)
	n := s.visible
	if n > total {
		n = total
	}
	return msgs[:n], total
}

// LoadMore grows the visible-message cursor by one page, capped at the
// current session's message count.
func (s *SessionService) LoadMore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return
	}
	s.visible += pageSize
	if total := len(s.sessions[idx].Messages); s.visible > total {
		s.visible = total
	}
	if s.visible < pageSize {
		s.visible = pageSize
	}
}

// CurrentSession returns a copy of the selected session, or false when none
// is selected.
func (s *SessionService) CurrentSession() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return models.Session{}, false
	}
	return cloneSession(s.sessions[idx]), true
}

// Theme returns the current theme preference.
func (s *SessionService) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme updates and persists the theme preference.
func (s *SessionService) SetTheme(ctx context.Context, tag string) error {
	if !models.ValidTheme(tag) {
		return ErrInvalidTheme
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = tag
	s.persistTheme(ctx)
	return nil
}

// Draft returns the in-memory composer draft.
func (s *SessionService) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft stores the composer draft. Drafts live only in memory; they are
// cleared by submission and session switches and never persisted.
func (s *SessionService) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// indexOf returns the position of the session with the given id, or -1.
// Callers must hold s.mu.
func (s *SessionService) indexOf(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func sessionMatches(sess models.Session, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(sess.Name), loweredQuery) {
		return true
	}
	for _, m := range sess.Messages {
		if strings.Contains(strings.ToLower(m.Content), loweredQuery) {
			return true
		}
	}
	return false
}

// pinSorted returns a copy of msgs with pinned messages moved to the front.
// The sort is stable so relative insertion order is preserved within each
// group, and the underlying slice is never reordered.
func pinSorted(msgs []models.Message) []models.Message {
	out := cloneMessages(msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsPinned && !out[j].IsPinned
	})
	return out
}

// cloneMessages deep-copies a message slice, including reaction maps, so
// callers can hold the result without racing against later mutations.
func cloneMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if r := out[i].Reactions; r != nil {
			cp := make(map[string]int, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out[i].Reactions = cp
		}
	}
	return out
}

// cloneSession deep-copies a session.
func cloneSession(sess models.Session) models.Session {
	out := sess
	out.Messages = cloneMessages(sess.Messages)
	return out
}
