package services

import (
	"errors"
	"log"

	"github.com/google/uuid"

	"sparkchat-backend/internal/auth"
	"sparkchat-backend/internal/config"
)

// Custom errors for auth service
var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrCreatingToken     = errors.New("failed to create access token")
	ErrGateDisabled      = errors.New("access gate is disabled")
)

// AuthService implements the single-user access gate: the configured
// passphrase is bcrypt-hashed once at startup, and a successful unlock
// issues a JWT carrying a fresh client id.
type AuthService struct {
	passphraseHash string
	cfg            *config.Config
}

// NewAuthService hashes the configured passphrase and returns the service.
// With no passphrase configured the gate is disabled and Unlock always
// fails; the router skips the auth middleware in that case.
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	s := &AuthService{cfg: cfg}
	if cfg.AccessPassphrase == "" {
		log.Println("WARN: ACCESS_PASSPHRASE is not set; the API will be served without authentication.")
		return s, nil
	}
	hash, err := auth.HashPassphrase(cfg.AccessPassphrase)
	if err != nil {
		return nil, err
	}
	s.passphraseHash = hash
	return s, nil
}

// Enabled reports whether the access gate is active.
func (s *AuthService) Enabled() bool {
	return s.passphraseHash != ""
}

// Unlock verifies the passphrase and returns a signed access token.
func (s *AuthService) Unlock(passphrase string) (string, error) {
	if !s.Enabled() {
		return "", ErrGateDisabled
	}
	if !auth.CheckPassphrase(passphrase, s.passphraseHash) {
		return "", ErrInvalidPassphrase
	}

	clientID := uuid.New()
	token, err := auth.NewAccessToken(clientID, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		log.Printf("Error creating access token for client %s: %v", clientID, err)
		return "", ErrCreatingToken
	}
	return token, nil
}
