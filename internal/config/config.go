package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage driver names accepted in STORAGE_DRIVER.
const (
	StorageDriverFile  = "file"
	StorageDriverRedis = "redis"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort string

	// Access gate. When AccessPassphrase is empty the /v1 API is served
	// without authentication (local development).
	AccessPassphrase string
	JWTSecret        string
	TokenExpiration  time.Duration

	// Remote completion collaborator.
	LLMProvider        string
	LLMModel           string
	LLMAPIKey          string
	LLMBaseURL         string
	OpenRouterReferrer string
	OpenRouterTitle    string

	// Persistence collaborator.
	StorageDriver string
	StateFilePath string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	port := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "default-super-secret-key") // CHANGE THIS IN PRODUCTION!
	passphrase := getEnv("ACCESS_PASSPHRASE", "")

	tokenExpStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	tokenExpHours, err := strconv.Atoi(tokenExpStr)
	if err != nil {
		log.Printf("Warning: Invalid JWT_EXPIRATION_HOURS '%s', using default 24h. Error: %v", tokenExpStr, err)
		tokenExpHours = 24
	}

	llmAPIKey := getEnv("LLM_API_KEY", "")
	if llmAPIKey == "" {
		log.Fatal("FATAL: LLM_API_KEY environment variable is not set.")
	}

	storageDriver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverFile))
	if storageDriver != StorageDriverFile && storageDriver != StorageDriverRedis {
		log.Fatalf("FATAL: Unknown STORAGE_DRIVER %q (expected %q or %q)", storageDriver, StorageDriverFile, StorageDriverRedis)
	}

	redisDBStr := getEnv("REDIS_DB", "0")
	redisDB, err := strconv.Atoi(redisDBStr)
	if err != nil {
		log.Printf("Warning: Invalid REDIS_DB '%s', using 0. Error: %v", redisDBStr, err)
		redisDB = 0
	}

	origins := strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	cfg := &Config{
		HTTPPort:           port,
		AccessPassphrase:   passphrase,
		JWTSecret:          jwtSecret,
		TokenExpiration:    time.Hour * time.Duration(tokenExpHours),
		LLMProvider:        getEnv("LLM_PROVIDER", "openai"),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          llmAPIKey,
		LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		OpenRouterReferrer: getEnv("OPENROUTER_REFERRER", ""),
		OpenRouterTitle:    getEnv("OPENROUTER_TITLE", "SparkChat"),
		StorageDriver:      storageDriver,
		StateFilePath:      getEnv("STATE_FILE", "data/sparkchat-state.json"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		AllowedOrigins:     origins,
	}

	log.Printf("Loaded config: Port=%s, Provider=%s, Model=%s, Storage=%s, TokenExp=%s",
		cfg.HTTPPort, cfg.LLMProvider, cfg.LLMModel, cfg.StorageDriver, cfg.TokenExpiration)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
