package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
)

// CachedFacilityAdapter wraps FacilityAdapter with caching of single-hospital
// reads. Nearby, list and lookup queries always hit the store so bed counts
// and reconciliation checks stay current.
type CachedFacilityAdapter struct {
	adapter repositories.FacilityRepository
	cache   providers.CacheProvider
}

// NewCachedFacilityAdapter creates a new cached facility adapter
func NewCachedFacilityAdapter(adapter repositories.FacilityRepository, cache providers.CacheProvider) repositories.FacilityRepository {
	return &CachedFacilityAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

const facilityByIDTTL = 5 * time.Minute

func facilityCacheKey(id string) string {
	return fmt.Sprintf("hospital:%s", id)
}

// GetByID retrieves a hospital by ID with caching
func (a *CachedFacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	if facility, ok := a.fromCache(ctx, id); ok {
		return facility, nil
	}

	facility, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(ctx, facility)
	return facility, nil
}

// GetByIDs serves cached hospitals and fetches the rest in one query
func (a *CachedFacilityAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error) {
	if len(ids) == 0 {
		return []*entities.Facility{}, nil
	}

	found := make(map[string]*entities.Facility, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		if facility, ok := a.fromCache(ctx, id); ok {
			found[id] = facility
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := a.adapter.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, facility := range fetched {
			found[facility.ID] = facility
			a.store(ctx, facility)
		}
	}

	// keep request order, drop unknown ids
	facilities := make([]*entities.Facility, 0, len(found))
	for _, id := range ids {
		if facility, ok := found[id]; ok {
			facilities = append(facilities, facility)
			delete(found, id)
		}
	}
	return facilities, nil
}

// UpdateBeds updates the store and invalidates the cached hospital
func (a *CachedFacilityAdapter) UpdateBeds(ctx context.Context, id string, beds entities.BedInventory) error {
	if err := a.adapter.UpdateBeds(ctx, id, beds); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// Create passes through to the underlying adapter
func (a *CachedFacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	return a.adapter.Create(ctx, facility)
}

// List passes through to the underlying adapter
func (a *CachedFacilityAdapter) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	return a.adapter.List(ctx, filter)
}

// Nearby passes through to the underlying adapter
func (a *CachedFacilityAdapter) Nearby(ctx context.Context, params repositories.NearbyParams) ([]*entities.Facility, error) {
	return a.adapter.Nearby(ctx, params)
}

// ExistsNear passes through to the underlying adapter
func (a *CachedFacilityAdapter) ExistsNear(ctx context.Context, name string, latitude, tolerance float64) (bool, error) {
	return a.adapter.ExistsNear(ctx, name, latitude, tolerance)
}

// Invalidate drops a cached hospital, e.g. after a booking was confirmed.
func (a *CachedFacilityAdapter) Invalidate(ctx context.Context, id string) {
	a.invalidate(ctx, id)
}

func (a *CachedFacilityAdapter) fromCache(ctx context.Context, id string) (*entities.Facility, bool) {
	data, err := a.cache.Get(ctx, facilityCacheKey(id))
	if err != nil {
		return nil, false
	}
	var facility entities.Facility
	if err := json.Unmarshal(data, &facility); err != nil {
		log.Warn().Err(err).Str("hospital_id", id).Msg("failed to unmarshal cached hospital")
		return nil, false
	}
	return &facility, true
}

func (a *CachedFacilityAdapter) store(ctx context.Context, facility *entities.Facility) {
	data, err := json.Marshal(facility)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, facilityCacheKey(facility.ID), data, facilityByIDTTL); err != nil {
		log.Warn().Err(err).Str("hospital_id", facility.ID).Msg("failed to cache hospital")
	}
}

func (a *CachedFacilityAdapter) invalidate(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, facilityCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("hospital_id", id).Msg("failed to invalidate cached hospital")
	}
}
