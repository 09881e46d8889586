package repositories

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// FacilityRepository defines the interface for hospital data operations.
// Implementations return authoritative records (Provenance set accordingly).
type FacilityRepository interface {
	// Create inserts a new hospital
	Create(ctx context.Context, facility *entities.Facility) error

	// GetByID retrieves a hospital by ID
	GetByID(ctx context.Context, id string) (*entities.Facility, error)

	// GetByIDs retrieves multiple hospitals, skipping unknown ids
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error)

	// List retrieves hospitals ordered by name
	List(ctx context.Context, filter FacilityFilter) ([]*entities.Facility, error)

	// UpdateBeds replaces the bed inventory of a hospital
	UpdateBeds(ctx context.Context, id string, beds entities.BedInventory) error

	// Nearby runs the geo-indexed nearby query. Results carry a
	// server-computed distance.
	Nearby(ctx context.Context, params NearbyParams) ([]*entities.Facility, error)

	// ExistsNear reports whether a hospital with exactly this name exists
	// with a latitude within ±tolerance degrees.
	ExistsNear(ctx context.Context, name string, latitude, tolerance float64) (bool, error)
}

// FacilityFilter defines filters for listing hospitals
type FacilityFilter struct {
	Type   entities.FacilityType
	Limit  int
	Offset int
}

// NearbyParams defines parameters for the nearby query
type NearbyParams struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}
