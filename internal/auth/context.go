package auth

import (
	"context"

	"github.com/google/uuid"
)

// GetClientIDFromContext retrieves the client id (uuid.UUID) from the
// request context. Returns the id and true if found, otherwise uuid.Nil and
// false.
func GetClientIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(uuid.UUID)
	return clientID, ok
}
