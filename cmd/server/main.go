package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sparkchat-backend/internal/api"
	"sparkchat-backend/internal/config"
	"sparkchat-backend/internal/handlers"
	"sparkchat-backend/internal/llm"
	"sparkchat-backend/internal/services"
	"sparkchat-backend/internal/store"
	filestore "sparkchat-backend/internal/store/file"
	redisstore "sparkchat-backend/internal/store/redis"
)

func main() {
	log.Println("Starting SparkChat Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the Key-Value Store
	var kv store.Store
	switch cfg.StorageDriver {
	case config.StorageDriverRedis:
		redisStore, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("FATAL: Unable to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		kv = redisStore
		log.Println("Redis store initialized and pinged successfully.")
	case config.StorageDriverFile:
		fileStore, err := filestore.New(cfg.StateFilePath)
		if err != nil {
			log.Fatalf("FATAL: Unable to open state file %s: %v", cfg.StateFilePath, err)
		}
		kv = fileStore
		log.Printf("File store initialized at %s.", cfg.StateFilePath)
	}

	// 3. Initialize the Completion Client
	llmFactory := &llm.Factory{
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Referrer: cfg.OpenRouterReferrer,
		Title:    cfg.OpenRouterTitle,
	}
	completionClient, err := llmFactory.CreateClient(cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		log.Fatalf("FATAL: Failed to create completion client: %v", err)
	}
	log.Printf("Completion client initialized (provider=%s, model=%s).", cfg.LLMProvider, cfg.LLMModel)

	// 4. Initialize Services
	hydrateCtx, hydrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	sessionService := services.NewSessionService(hydrateCtx, kv, completionClient)
	hydrateCancel()
	log.Println("SessionService initialized and hydrated.")

	authService, err := services.NewAuthService(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize auth service: %v", err)
	}
	log.Println("AuthService initialized.")

	// 5. Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandlers(sessionService)
	preferenceHandler := handlers.NewPreferenceHandlers(sessionService)
	log.Println("Handlers initialized.")

	// 6. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:       authHandler,
		SessionHandler:    sessionHandler,
		PreferenceHandler: preferenceHandler,
		AuthEnabled:       authService.Enabled(),
		Config:            cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 7. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks.
		// The write timeout must cover a blocking completion call.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 125 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
