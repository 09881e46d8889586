package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/pkg/geo"
)

// DefaultCacheTTL matches how long registry data is reused by the mobile client.
const DefaultCacheTTL = 10 * time.Minute

// CachedRegistry memoizes registry results per rounded coordinate and radius.
// Only successful lookups are cached.
type CachedRegistry struct {
	next  providers.FacilityRegistry
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewCachedRegistry wraps next with cache.
func NewCachedRegistry(next providers.FacilityRegistry, cache providers.CacheProvider, ttl time.Duration) providers.FacilityRegistry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRegistry{next: next, cache: cache, ttl: ttl}
}

// registryCacheKey rounds to three decimals (about 100 m) so nearby
// queries share an entry.
func registryCacheKey(center entities.Location, radiusKm float64) string {
	return fmt.Sprintf("registry:v1:%.3f:%.3f:%g", center.Latitude, center.Longitude, radiusKm)
}

// Nearby implements providers.FacilityRegistry.
func (r *CachedRegistry) Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error) {
	key := registryCacheKey(center, radiusKm)

	cached, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var facilities []*entities.Facility
		if err := json.Unmarshal(cached, &facilities); err == nil {
			return withDistances(facilities, center, radiusKm), nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable registry cache entry")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("key", key).Msg("registry cache read failed")
	}

	facilities, err := r.next.Nearby(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(facilities); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("registry cache write failed")
		}
	}

	return facilities, nil
}

// withDistances recomputes distances relative to the exact query point,
// since the cache entry may have been filled from a nearby one. Entries the
// shift pushed outside radiusKm are dropped.
func withDistances(facilities []*entities.Facility, center entities.Location, radiusKm float64) []*entities.Facility {
	origin := geo.Point{Latitude: center.Latitude, Longitude: center.Longitude}
	within := make([]*entities.Facility, 0, len(facilities))
	for _, f := range facilities {
		d := geo.Distance(origin, geo.Point{Latitude: f.Location.Latitude, Longitude: f.Location.Longitude})
		if d > radiusKm {
			continue
		}
		f.DistanceKm = entities.Float64Ptr(d)
		within = append(within, f)
	}
	return within
}
