package providers

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// SessionProvider resolves a bearer token into the caller's identity.
type SessionProvider interface {
	Resolve(ctx context.Context, token string) (*entities.Identity, error)
}
