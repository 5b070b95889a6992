package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	api_models "sparkchat-backend/internal/models"
	"sparkchat-backend/internal/services"
	"sparkchat-backend/pkg/httputil"
)

// SessionHandlers handles HTTP requests for sessions and messages.
type SessionHandlers struct {
	sessions *services.SessionService
}

// NewSessionHandlers creates a new SessionHandlers instance.
func NewSessionHandlers(sessions *services.SessionService) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
	}
}

// HandleListSessions handles GET /v1/sessions. The optional ?q= parameter
// filters by case-insensitive substring match on session name or message
// content.
func (h *SessionHandlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	matched := h.sessions.FilteredSessions(query)

	current, hasCurrent := h.sessions.CurrentSession()

	summaries := make([]api_models.SessionSummary, 0, len(matched))
	for _, sess := range matched {
		summaries = append(summaries, api_models.SessionSummary{
			ID:           sess.ID,
			Name:         sess.Name,
			MessageCount: len(sess.Messages),
			Current:      hasCurrent && sess.ID == current.ID,
		})
	}

	httputil.RespondJSON(w, http.StatusOK, api_models.ListSessionsResponse{Sessions: summaries})
}

// HandleSelectSession handles POST /v1/sessions/{sessionID}/select.
func (h *SessionHandlers) HandleSelectSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.SelectSession(sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("Select session handler failed for %s: %v", sessionID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to select session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteSession handles DELETE /v1/sessions/{sessionID}.
func (h *SessionHandlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("Delete session handler failed for %s: %v", sessionID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmitTopic handles POST /v1/messages: appends the user message,
// waits for the completion call to settle, and returns the updated session.
// A completion failure is not an HTTP error — the apology message is part of
// the conversation.
func (h *SessionHandlers) HandleSubmitTopic(w http.ResponseWriter, r *http.Request) {
	var req api_models.SubmitTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	session, err := h.sessions.SubmitTopic(r.Context(), req.Topic)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyTopic):
			httputil.RespondError(w, http.StatusBadRequest, "Topic must not be empty")
		case errors.Is(err, services.ErrRequestPending):
			httputil.RespondError(w, http.StatusConflict, "A response is still being generated")
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session was deleted before the response arrived")
		default:
			log.Printf("Submit topic handler failed: %v", err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to submit topic")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, api_models.SessionResponse{Session: session})
}

// HandleListMessages handles GET /v1/messages: the visible window of the
// pin-sorted current session.
func (h *SessionHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, total := h.sessions.VisibleMessages()
	httputil.RespondJSON(w, http.StatusOK, api_models.MessagesResponse{
		Messages: msgs,
		Total:    total,
		Visible:  len(msgs),
	})
}

// HandleLoadMore handles POST /v1/messages/more: grows the visible window by
// one page and returns the new window.
func (h *SessionHandlers) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	h.sessions.LoadMore()
	h.HandleListMessages(w, r)
}

// HandleTogglePin handles POST /v1/messages/{index}/pin.
func (h *SessionHandlers) HandleTogglePin(w http.ResponseWriter, r *http.Request) {
	index, ok := parseMessageIndex(w, r)
	if !ok {
		return
	}

	if err := h.sessions.TogglePin(r.Context(), index); err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Message not found")
			return
		}
		log.Printf("Toggle pin handler failed for index %d: %v", index, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to toggle pin")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleEditMessage handles PATCH /v1/messages/{index}.
func (h *SessionHandlers) HandleEditMessage(w http.ResponseWriter, r *http.Request) {
	index, ok := parseMessageIndex(w, r)
	if !ok {
		return
	}

	var req api_models.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.sessions.EditMessage(r.Context(), index, req.Content); err != nil {
		switch {
		case errors.Is(err, services.ErrNoCurrentSession):
			httputil.RespondError(w, http.StatusBadRequest, "No session is selected")
		case errors.Is(err, services.ErrMessageNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, services.ErrNotUserMessage):
			httputil.RespondError(w, http.StatusBadRequest, "Only your own messages can be edited")
		case errors.Is(err, services.ErrEditWindowExpired):
			httputil.RespondError(w, http.StatusConflict, "Messages can only be edited within 5 minutes of sending")
		default:
			log.Printf("Edit message handler failed for index %d: %v", index, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to edit message")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddReaction handles POST /v1/messages/{index}/reactions.
func (h *SessionHandlers) HandleAddReaction(w http.ResponseWriter, r *http.Request) {
	index, ok := parseMessageIndex(w, r)
	if !ok {
		return
	}

	var req api_models.AddReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Emoji == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Emoji is required")
		return
	}

	if err := h.sessions.AddReaction(r.Context(), index, req.Emoji); err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Message not found")
			return
		}
		log.Printf("Add reaction handler failed for index %d: %v", index, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to add reaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseSessionID extracts and validates the {sessionID} URL parameter,
// writing the error response itself on failure.
func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionIDStr := chi.URLParam(r, "sessionID")
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}
	return sessionID, true
}

// parseMessageIndex extracts and validates the {index} URL parameter.
func parseMessageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	indexStr := chi.URLParam(r, "index")
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid message index")
		return 0, false
	}
	return index, true
}
