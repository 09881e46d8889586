package repositories

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// EmergencyRepository defines the interface for emergency broadcasts
type EmergencyRepository interface {
	Create(ctx context.Context, request *entities.EmergencyRequest) error
	ListOpen(ctx context.Context) ([]*entities.EmergencyRequest, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyRequest, error)
	Resolve(ctx context.Context, id string) (*entities.EmergencyRequest, error)
}

// FutureRequestRepository stores future availability requests
type FutureRequestRepository interface {
	Create(ctx context.Context, request *entities.FutureRequest) error
}
