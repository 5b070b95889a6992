package auth

import (
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

// ClientIDKey is the context key under which the authenticated client id is
// stored by the JWT middleware.
const ClientIDKey contextKey = "clientID"

// --- JWT Claims ---

// CustomClaims includes standard JWT claims plus the client id issued at
// unlock time. Match this with the claims struct in api/middleware.go.
type CustomClaims struct {
	ClientID uuid.UUID `json:"client_id"`
	jwt.RegisteredClaims
}

// NewAccessToken generates a new JWT access token for an unlocked client.
func NewAccessToken(clientID uuid.UUID, jwtSecret string, expiration time.Duration) (string, error) {
	claims := CustomClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "sparkchat-backend",
			Subject:   clientID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("Error signing JWT token for client %s: %v", clientID, err)
		return "", err
	}

	return signedToken, nil
}
