package providers

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// FacilityRegistry is a public geo-tagged point-of-interest source.
type FacilityRegistry interface {
	// Nearby returns normalized hospitals within radiusKm of center, each
	// tagged external with a distance from center. Every upstream failure is
	// returned as an error; callers decide how to degrade.
	Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error)
}
