package repositories

import (
	"context"
)

// FavoriteRepository stores the hospitals each user has saved
type FavoriteRepository interface {
	// ListHospitalIDs returns the saved hospital ids of a user, oldest first
	ListHospitalIDs(ctx context.Context, userID string) ([]string, error)

	// Add saves a hospital for a user. Saving it twice is a no-op.
	Add(ctx context.Context, userID, hospitalID string) error

	// Remove deletes a saved hospital and reports whether it was saved
	Remove(ctx context.Context, userID, hospitalID string) (bool, error)
}
