package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"sparkchat-backend/internal/llm"
	"sparkchat-backend/internal/models"
	"sparkchat-backend/internal/store"
	memorystore "sparkchat-backend/internal/store/memory"
)

func newTestService(mock *llm.MockClient) (*SessionService, *memorystore.MemoryStore) {
	kv := memorystore.New()
	svc := NewSessionService(context.Background(), kv, mock)
	return svc, kv
}

func TestSubmitTopicCreatesSession(t *testing.T) {
	mock := &llm.MockClient{Reply: "Mars has two moons."}
	svc, _ := newTestService(mock)

	sess, err := svc.SubmitTopic(context.Background(), "space exploration")
	if err != nil {
		t.Fatalf("SubmitTopic failed: %v", err)
	}
	if sess.Name != "space exploration" {
		t.Fatalf("unexpected session name: %q", sess.Name)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages after settlement, got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != models.RoleUser || sess.Messages[0].Content != "space exploration" {
		t.Fatalf("unexpected user message: %+v", sess.Messages[0])
	}
	if sess.Messages[1].Role != models.RoleAssistant || sess.Messages[1].Content != "Mars has two moons." {
		t.Fatalf("unexpected assistant message: %+v", sess.Messages[1])
	}
	if len(mock.Calls) != 1 || mock.Calls[0] != "space exploration" {
		t.Fatalf("unexpected completion calls: %v", mock.Calls)
	}
}

func TestSubmitTopicDerivesTruncatedName(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	topic := "a very long topic that exceeds the limit"
	sess, err := svc.SubmitTopic(context.Background(), topic)
	if err != nil {
		t.Fatalf("SubmitTopic failed: %v", err)
	}
	if sess.Name != topic[:models.SessionNameLimit] {
		t.Fatalf("expected name %q, got %q", topic[:models.SessionNameLimit], sess.Name)
	}
	// The message keeps the full topic; only the name is truncated.
	if sess.Messages[0].Content != topic {
		t.Fatalf("user message was truncated: %q", sess.Messages[0].Content)
	}
}

func TestSubmitTopicRejectsWhitespace(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	for _, topic := range []string{"", "   ", "\n\t"} {
		if _, err := svc.SubmitTopic(context.Background(), topic); !errors.Is(err, ErrEmptyTopic) {
			t.Fatalf("topic %q: expected ErrEmptyTopic, got %v", topic, err)
		}
	}
	if len(svc.FilteredSessions("")) != 0 {
		t.Fatal("rejected submission must not create a session")
	}
	if len(mock.Calls) != 0 {
		t.Fatal("rejected submission must not dispatch a completion call")
	}
}

func TestSubmitTopicAppendsToCurrentSession(t *testing.T) {
	mock := &llm.MockClient{Reply: "first"}
	svc, _ := newTestService(mock)

	if _, err := svc.SubmitTopic(context.Background(), "first topic"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	mock.Reply = "second"
	sess, err := svc.SubmitTopic(context.Background(), "follow-up question")
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	if got := len(svc.FilteredSessions("")); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}
	if len(sess.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sess.Messages))
	}
	// Name stays derived from the first topic.
	if sess.Name != "first topic" {
		t.Fatalf("session name changed: %q", sess.Name)
	}
	if sess.Messages[3].Content != "second" {
		t.Fatalf("unexpected final assistant message: %q", sess.Messages[3].Content)
	}
}

func TestSubmitTopicFailureAppendsApology(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("upstream exploded: 503")}
	svc, _ := newTestService(mock)

	sess, err := svc.SubmitTopic(context.Background(), "space exploration")
	if err != nil {
		t.Fatalf("SubmitTopic must not surface completion failures: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sess.Messages))
	}
	got := sess.Messages[1]
	if got.Role != models.RoleAssistant || got.Content != ApologyMessage {
		t.Fatalf("expected fixed apology message, got %+v", got)
	}
}

func TestSubmitTopicWhilePending(t *testing.T) {
	mock := &llm.MockClient{
		Reply:   "done",
		Gate:    make(chan struct{}),
		Started: make(chan struct{}, 1),
	}
	svc, _ := newTestService(mock)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitTopic(context.Background(), "slow topic")
		done <- err
	}()
	<-mock.Started

	// The first call is in flight; the session must refuse a second one.
	if _, err := svc.SubmitTopic(context.Background(), "impatient retry"); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	close(mock.Gate)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// After settlement the session accepts submissions again.
	sess, err := svc.SubmitTopic(context.Background(), "next topic")
	if err != nil {
		t.Fatalf("submit after settlement failed: %v", err)
	}
	if len(sess.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sess.Messages))
	}
}

func TestDeleteSessionClearsCurrentPointer(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	first, err := svc.SubmitTopic(context.Background(), "first session")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	detachCurrent(svc)
	second, err := svc.SubmitTopic(context.Background(), "second session")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Deleting a non-current session leaves the pointer unchanged.
	if err := svc.DeleteSession(context.Background(), first.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	current, ok := svc.CurrentSession()
	if !ok || current.ID != second.ID {
		t.Fatal("pointer must be unchanged after deleting a non-current session")
	}

	// Deleting the current session clears the pointer; nothing is
	// auto-selected.
	if err := svc.DeleteSession(context.Background(), second.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := svc.CurrentSession(); ok {
		t.Fatal("deleting the current session must clear the pointer")
	}

	// Unknown ids are reported.
	if err := svc.DeleteSession(context.Background(), uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEditMessageWindow(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	if _, err := svc.SubmitTopic(context.Background(), "editable topic"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Within the window: succeeds, updates content and LastEdited.
	if err := svc.EditMessage(context.Background(), 0, "edited topic"); err != nil {
		t.Fatalf("edit within window failed: %v", err)
	}
	sess, _ := svc.CurrentSession()
	if sess.Messages[0].Content != "edited topic" {
		t.Fatalf("content not updated: %q", sess.Messages[0].Content)
	}
	if sess.Messages[0].LastEdited == nil {
		t.Fatal("LastEdited not stamped")
	}

	// Assistant messages are never editable.
	if err := svc.EditMessage(context.Background(), 1, "rewrite history"); !errors.Is(err, ErrNotUserMessage) {
		t.Fatalf("expected ErrNotUserMessage, got %v", err)
	}

	// Past the window: fails and leaves content unchanged.
	svc.mu.Lock()
	svc.sessions[0].Messages[0].CreatedAt = time.Now().Add(-6 * time.Minute)
	svc.mu.Unlock()
	if err := svc.EditMessage(context.Background(), 0, "too late"); !errors.Is(err, ErrEditWindowExpired) {
		t.Fatalf("expected ErrEditWindowExpired, got %v", err)
	}
	sess, _ = svc.CurrentSession()
	if sess.Messages[0].Content != "edited topic" {
		t.Fatalf("stale edit mutated content: %q", sess.Messages[0].Content)
	}

	// Out-of-range index.
	if err := svc.EditMessage(context.Background(), 99, "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestAddReactionCounts(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	if _, err := svc.SubmitTopic(context.Background(), "react to me"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.AddReaction(context.Background(), 1, "👍"); err != nil {
			t.Fatalf("AddReaction failed: %v", err)
		}
	}
	if err := svc.AddReaction(context.Background(), 1, "🎉"); err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}

	sess, _ := svc.CurrentSession()
	if got := sess.Messages[1].Reactions["👍"]; got != 2 {
		t.Fatalf("expected 👍 count 2, got %d", got)
	}
	if got := sess.Messages[1].Reactions["🎉"]; got != 1 {
		t.Fatalf("expected 🎉 count 1, got %d", got)
	}
}

func TestReactionAndPinWithoutSessionAreNoOps(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	if err := svc.TogglePin(context.Background(), 0); err != nil {
		t.Fatalf("TogglePin without session must be a no-op, got %v", err)
	}
	if err := svc.AddReaction(context.Background(), 0, "👍"); err != nil {
		t.Fatalf("AddReaction without session must be a no-op, got %v", err)
	}
}

func TestTogglePinPreservesStorageOrder(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	if _, err := svc.SubmitTopic(context.Background(), "one"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := svc.SubmitTopic(context.Background(), "two"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Pin the last message; the display view moves it to the front.
	if err := svc.TogglePin(context.Background(), 3); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	visible, total := svc.VisibleMessages()
	if total != 4 {
		t.Fatalf("expected 4 messages, got %d", total)
	}
	if !visible[0].IsPinned {
		t.Fatal("pinned message not sorted to the front of the view")
	}

	// Storage order must be untouched.
	sess, _ := svc.CurrentSession()
	if sess.Messages[0].Content != "one" || !sess.Messages[3].IsPinned {
		t.Fatal("pin toggle mutated the underlying storage order")
	}

	// Unpinning restores the plain view.
	if err := svc.TogglePin(context.Background(), 3); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	visible, _ = svc.VisibleMessages()
	if visible[0].IsPinned {
		t.Fatal("unpinned message still sorted to the front")
	}
}

func TestVisibleMessagesWindow(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, _ := newTestService(mock)

	// 7 submissions yield 14 messages.
	for i := 0; i < 7; i++ {
		if _, err := svc.SubmitTopic(context.Background(), "topic number "+string(rune('a'+i))); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	visible, total := svc.VisibleMessages()
	if total != 14 {
		t.Fatalf("expected 14 messages, got %d", total)
	}
	if len(visible) != pageSize {
		t.Fatalf("expected window of %d, got %d", pageSize, len(visible))
	}

	svc.LoadMore()
	visible, _ = svc.VisibleMessages()
	if len(visible) != 14 {
		t.Fatalf("expected window capped at 14, got %d", len(visible))
	}

	// Loading more past the end stays capped.
	svc.LoadMore()
	visible, _ = svc.VisibleMessages()
	if len(visible) != 14 {
		t.Fatalf("expected window capped at 14, got %d", len(visible))
	}
}

func TestFilteredSessions(t *testing.T) {
	mock := &llm.MockClient{Reply: "The Apollo program ended in 1972."}
	svc, _ := newTestService(mock)

	first, err := svc.SubmitTopic(context.Background(), "space exploration")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	detachCurrent(svc)
	mock.Reply = "Sourdough needs a starter."
	if _, err := svc.SubmitTopic(context.Background(), "baking bread"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if got := len(svc.FilteredSessions("")); got != 2 {
		t.Fatalf("empty query must match all, got %d", got)
	}
	// Match on session name, case-insensitively.
	got := svc.FilteredSessions("SPACE")
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("name match failed: %+v", got)
	}
	// Match on message content.
	got = svc.FilteredSessions("apollo")
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("content match failed: %+v", got)
	}
	if got := svc.FilteredSessions("quantum"); len(got) != 0 {
		t.Fatalf("expected no match, got %d", len(got))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	mock := &llm.MockClient{Reply: "persisted reply"}
	kv := memorystore.New()
	svc := NewSessionService(context.Background(), kv, mock)

	sess, err := svc.SubmitTopic(context.Background(), "durable topic")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.TogglePin(context.Background(), 0); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if err := svc.AddReaction(context.Background(), 1, "👍"); err != nil {
		t.Fatalf("react failed: %v", err)
	}
	if err := svc.SetTheme(context.Background(), models.ThemeLight); err != nil {
		t.Fatalf("set theme failed: %v", err)
	}

	// A fresh service over the same store must reproduce the collection.
	reloaded := NewSessionService(context.Background(), kv, mock)
	sessions := reloaded.FilteredSessions("")
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session after reload, got %d", len(sessions))
	}
	got := sessions[0]
	if got.ID != sess.ID || got.Name != sess.Name {
		t.Fatalf("session identity lost: %+v", got)
	}
	if len(got.Messages) != 2 || !got.Messages[0].IsPinned || got.Messages[1].Reactions["👍"] != 1 {
		t.Fatalf("message state lost: %+v", got.Messages)
	}
	if reloaded.Theme() != models.ThemeLight {
		t.Fatalf("theme lost: %q", reloaded.Theme())
	}
	// The current-session pointer is not persisted; a reload starts
	// unselected.
	if _, ok := reloaded.CurrentSession(); ok {
		t.Fatal("current pointer must not survive a reload")
	}
}

func TestEmptyCollectionSaveGuard(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	kv := memorystore.New()
	svc := NewSessionService(context.Background(), kv, mock)

	sess, err := svc.SubmitTopic(context.Background(), "only session")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.DeleteSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// The guard skips the snapshot write for an empty collection, so the
	// stored value still holds the deleted session.
	raw, err := kv.Get(context.Background(), sessionsKey)
	if err != nil {
		t.Fatalf("stored snapshot missing: %v", err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("stored snapshot malformed: %v", err)
	}
	if len(snap.Sessions) != 1 {
		t.Fatalf("empty-collection guard not applied, stored %d sessions", len(snap.Sessions))
	}
}

func TestHydrateLegacyAndMalformed(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}

	// Legacy bare-array snapshot.
	kv := memorystore.New()
	legacy := []models.Session{{
		ID:        uuid.New(),
		Name:      "legacy session",
		CreatedAt: time.Now(),
		Messages:  []models.Message{models.NewMessage(models.RoleUser, "hi", time.Now())},
	}}
	data, _ := json.Marshal(legacy)
	if err := kv.Set(context.Background(), sessionsKey, string(data)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	svc := NewSessionService(context.Background(), kv, mock)
	if got := len(svc.FilteredSessions("")); got != 1 {
		t.Fatalf("legacy snapshot not hydrated, got %d sessions", got)
	}

	// Malformed snapshot: start empty, no error.
	kv2 := memorystore.New()
	if err := kv2.Set(context.Background(), sessionsKey, "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := kv2.Set(context.Background(), themeKey, "plaid"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	svc2 := NewSessionService(context.Background(), kv2, mock)
	if got := len(svc2.FilteredSessions("")); got != 0 {
		t.Fatalf("malformed snapshot should hydrate empty, got %d sessions", got)
	}
	if svc2.Theme() != models.ThemeDark {
		t.Fatalf("invalid stored theme should fall back to default, got %q", svc2.Theme())
	}
}

func TestThemeAndDraft(t *testing.T) {
	mock := &llm.MockClient{Reply: "ok"}
	svc, kv := newTestService(mock)

	if err := svc.SetTheme(context.Background(), "plaid"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
	if err := svc.SetTheme(context.Background(), models.ThemeMonoDark); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	if got, err := kv.Get(context.Background(), themeKey); err != nil || got != models.ThemeMonoDark {
		t.Fatalf("theme not persisted: %q, %v", got, err)
	}

	svc.SetDraft("half-typed thought")
	if svc.Draft() != "half-typed thought" {
		t.Fatalf("draft not stored: %q", svc.Draft())
	}
	// Submitting clears the draft.
	if _, err := svc.SubmitTopic(context.Background(), "a topic"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if svc.Draft() != "" {
		t.Fatalf("draft not cleared by submit: %q", svc.Draft())
	}
	// Selecting a session clears the draft too.
	sess, _ := svc.CurrentSession()
	svc.SetDraft("another draft")
	if err := svc.SelectSession(sess.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if svc.Draft() != "" {
		t.Fatalf("draft not cleared by select: %q", svc.Draft())
	}
	// Drafts are never persisted.
	if _, err := kv.Get(context.Background(), "draft"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("draft leaked into storage: %v", err)
	}
}

// detachCurrent clears the current-session pointer without removing any
// session, so tests can force creation of a fresh session on the next
// submission.
func detachCurrent(s *SessionService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = uuid.Nil
}
