package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/adapters/cache"
	"github.com/bedfinder/backend/internal/domain/entities"
	redisclient "github.com/bedfinder/backend/internal/infrastructure/clients/redis"
)

type countingRegistry struct {
	calls int
	err   error
}

func (c *countingRegistry) Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return NewMockProvider().Nearby(ctx, center, radiusKm)
}

func newCachedRegistry(t *testing.T, next *countingRegistry) (*CachedRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClientWithOptions(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewCachedRegistry(next, cache.NewRedisAdapter(client, "test"), 0).(*CachedRegistry), mr
}

func TestCachedRegistry_HitRecomputesDistance(t *testing.T) {
	ctx := context.Background()
	next := &countingRegistry{}
	registry, _ := newCachedRegistry(t, next)

	first, err := registry.Nearby(ctx, entities.Location{Latitude: 19.2, Longitude: 72.8}, 10)
	require.NoError(t, err)

	// same rounded key, slightly different origin
	second, err := registry.Nearby(ctx, entities.Location{Latitude: 19.2004, Longitude: 72.8}, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, entities.ProvenanceExternal, second[0].Provenance)
	assert.NotNil(t, second[0].DistanceKm)
}

func TestCachedRegistry_HitDropsEntriesOutsideRadius(t *testing.T) {
	ctx := context.Background()
	next := &countingRegistry{}
	registry, _ := newCachedRegistry(t, next)
	center := entities.Location{Latitude: 19.2, Longitude: 72.8}

	data, err := json.Marshal([]*entities.Facility{
		{Name: "Near Clinic", Location: entities.Location{Latitude: 19.2045, Longitude: 72.8}},
		{Name: "Edge Hospital", Location: entities.Location{Latitude: 19.2095, Longitude: 72.8}},
	})
	require.NoError(t, err)
	require.NoError(t, registry.cache.Set(ctx, registryCacheKey(center, 1), data, time.Minute))

	got, err := registry.Nearby(ctx, center, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, next.calls)
	require.Len(t, got, 1)
	assert.Equal(t, "Near Clinic", got[0].Name)
	assert.InDelta(t, 0.5, *got[0].DistanceKm, 0.01)
}

func TestCachedRegistry_Expires(t *testing.T) {
	ctx := context.Background()
	next := &countingRegistry{}
	registry, mr := newCachedRegistry(t, next)

	_, err := registry.Nearby(ctx, entities.Location{Latitude: 19.2, Longitude: 72.8}, 10)
	require.NoError(t, err)
	mr.FastForward(DefaultCacheTTL + time.Second)
	_, err = registry.Nearby(ctx, entities.Location{Latitude: 19.2, Longitude: 72.8}, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedRegistry_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingRegistry{err: errors.New("upstream down")}
	registry, _ := newCachedRegistry(t, next)

	_, err := registry.Nearby(ctx, entities.Location{Latitude: 1, Longitude: 1}, 5)
	require.Error(t, err)
	_, err = registry.Nearby(ctx, entities.Location{Latitude: 1, Longitude: 1}, 5)
	require.Error(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedRegistry_CacheDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	next := &countingRegistry{}
	registry, mr := newCachedRegistry(t, next)
	mr.Close()

	facilities, err := registry.Nearby(ctx, entities.Location{Latitude: 19.2, Longitude: 72.8}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, facilities)
}
