package services

import (
	"errors"
	"testing"
	"time"

	"sparkchat-backend/internal/config"
)

func TestAuthServiceUnlock(t *testing.T) {
	cfg := &config.Config{
		AccessPassphrase: "open sesame",
		JWTSecret:        "test-secret",
		TokenExpiration:  time.Hour,
	}
	svc, err := NewAuthService(cfg)
	if err != nil {
		t.Fatalf("NewAuthService failed: %v", err)
	}
	if !svc.Enabled() {
		t.Fatal("gate should be enabled when a passphrase is configured")
	}

	if _, err := svc.Unlock("wrong"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}
	token, err := svc.Unlock("open sesame")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty access token")
	}
}

func TestAuthServiceDisabledGate(t *testing.T) {
	svc, err := NewAuthService(&config.Config{JWTSecret: "x", TokenExpiration: time.Hour})
	if err != nil {
		t.Fatalf("NewAuthService failed: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("gate should be disabled without a passphrase")
	}
	if _, err := svc.Unlock("anything"); !errors.Is(err, ErrGateDisabled) {
		t.Fatalf("expected ErrGateDisabled, got %v", err)
	}
}
