package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	api_models "sparkchat-backend/internal/models"
	"sparkchat-backend/internal/services"
	"sparkchat-backend/pkg/httputil"
)

// PreferenceHandlers handles the theme preference and the composer draft.
type PreferenceHandlers struct {
	sessions *services.SessionService
}

// NewPreferenceHandlers creates a new PreferenceHandlers instance.
func NewPreferenceHandlers(sessions *services.SessionService) *PreferenceHandlers {
	return &PreferenceHandlers{
		sessions: sessions,
	}
}

// HandleGetTheme handles GET /v1/theme.
func (h *PreferenceHandlers) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, api_models.ThemeResponse{Theme: h.sessions.Theme()})
}

// HandleSetTheme handles PUT /v1/theme.
func (h *PreferenceHandlers) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req api_models.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.sessions.SetTheme(r.Context(), req.Theme); err != nil {
		if errors.Is(err, services.ErrInvalidTheme) {
			httputil.RespondError(w, http.StatusBadRequest, "Unknown theme")
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to set theme")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetDraft handles GET /v1/draft.
func (h *PreferenceHandlers) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, api_models.DraftResponse{Draft: h.sessions.Draft()})
}

// HandleSetDraft handles PUT /v1/draft.
func (h *PreferenceHandlers) HandleSetDraft(w http.ResponseWriter, r *http.Request) {
	var req api_models.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	h.sessions.SetDraft(req.Draft)
	w.WriteHeader(http.StatusNoContent)
}
