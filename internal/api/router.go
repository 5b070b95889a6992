package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sparkchat-backend/internal/config"
	"sparkchat-backend/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler       *handlers.AuthHandler
	SessionHandler    *handlers.SessionHandlers
	PreferenceHandler *handlers.PreferenceHandlers
	AuthEnabled       bool
	Config            *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Submissions block on the completion call, so the request timeout has
	// to cover a slow model response.
	r.Use(middleware.Timeout(120 * time.Second))

	// --- CORS Configuration ---
	// The browser chat client is served from a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/unlock", deps.AuthHandler.HandleUnlock)
	})

	// --- Authenticated Routes (JWT Required when the gate is enabled) ---
	r.Route("/v1", func(r chi.Router) {
		if deps.AuthEnabled {
			r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))
		}

		// --- Mount Session Routes ---
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", deps.SessionHandler.HandleListSessions)
			r.Post("/{sessionID}/select", deps.SessionHandler.HandleSelectSession)
			r.Delete("/{sessionID}", deps.SessionHandler.HandleDeleteSession)
		})

		// --- Mount Message Routes ---
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", deps.SessionHandler.HandleSubmitTopic)
			r.Get("/", deps.SessionHandler.HandleListMessages)
			r.Post("/more", deps.SessionHandler.HandleLoadMore)
			r.Post("/{index}/pin", deps.SessionHandler.HandleTogglePin)
			r.Patch("/{index}", deps.SessionHandler.HandleEditMessage)
			r.Post("/{index}/reactions", deps.SessionHandler.HandleAddReaction)
		})

		// --- Mount Preference Routes ---
		r.Get("/theme", deps.PreferenceHandler.HandleGetTheme)
		r.Put("/theme", deps.PreferenceHandler.HandleSetTheme)
		r.Get("/draft", deps.PreferenceHandler.HandleGetDraft)
		r.Put("/draft", deps.PreferenceHandler.HandleSetDraft)
	})

	return r
}
