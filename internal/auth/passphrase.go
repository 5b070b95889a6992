package auth

import (
	"log"

	"golang.org/x/crypto/bcrypt"
)

// HashPassphrase generates a bcrypt hash for the access passphrase. The
// plaintext from the environment is hashed once at startup and discarded.
func HashPassphrase(passphrase string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error generating bcrypt hash: %v", err)
		return "", err
	}
	return string(bytes), nil
}

// CheckPassphrase compares a submitted passphrase with the stored bcrypt
// hash.
func CheckPassphrase(passphrase, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase))
	if err != nil {
		if err != bcrypt.ErrMismatchedHashAndPassword {
			// Log unexpected errors, but still return false for security
			log.Printf("Error comparing passphrase hash: %v", err)
		}
		return false
	}
	return true
}
