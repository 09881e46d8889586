package repositories

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// BookingRepository defines the interface for bed booking operations
type BookingRepository interface {
	Create(ctx context.Context, booking *entities.Booking) error
	GetByID(ctx context.Context, id string) (*entities.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.Booking, error)
	ListPending(ctx context.Context) ([]*entities.Booking, error)

	// Confirm runs the transactional confirm procedure: it decrements the
	// hospital's available beds of the booking's category and marks the
	// booking confirmed, atomically.
	Confirm(ctx context.Context, bookingID, hospitalID string, bedType entities.BedCategory) error

	UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error
}
