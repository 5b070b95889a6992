package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	api_models "sparkchat-backend/internal/models"
	"sparkchat-backend/internal/services"
	"sparkchat-backend/pkg/httputil"
)

// AuthService defines the interface expected from the auth service.
// This promotes loose coupling and testability.
type AuthService interface {
	Unlock(passphrase string) (string, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authSvc AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
	}
}

// HandleUnlock handles the POST /v1/auth/unlock request.
func (h *AuthHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var req api_models.UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Passphrase == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Passphrase is required")
		return
	}

	token, err := h.authService.Unlock(req.Passphrase)
	if err != nil {
		// Error Mapping: Map service errors to HTTP status codes
		switch {
		case errors.Is(err, services.ErrInvalidPassphrase):
			httputil.RespondError(w, http.StatusUnauthorized, "Invalid passphrase")
		case errors.Is(err, services.ErrGateDisabled):
			httputil.RespondError(w, http.StatusNotFound, "Access gate is not configured")
		default:
			log.Printf("Unlock handler failed: %v", err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to unlock")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, api_models.UnlockResponse{AccessToken: token})
}
