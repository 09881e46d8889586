package registry

import (
	"net/http"
	"time"

	"github.com/bedfinder/backend/internal/domain/providers"
)

// Provider names accepted by NewFacilityRegistry.
const (
	ProviderOverpass = "overpass"
	ProviderMock     = "mock"
)

// FacilityRegistryConfig configures the open-map registry.
type FacilityRegistryConfig struct {
	Provider     string
	Endpoint     string
	QueryTimeout time.Duration
	HTTPTimeout  time.Duration
	CacheTTL     time.Duration
}

// NewFacilityRegistry builds the configured registry, wrapped with a cache
// when one is given.
func NewFacilityRegistry(cfg FacilityRegistryConfig, cache providers.CacheProvider) providers.FacilityRegistry {
	var registry providers.FacilityRegistry
	switch cfg.Provider {
	case ProviderMock:
		// offline development; nothing worth caching
		return NewMockProvider()
	default:
		var httpClient *http.Client
		if cfg.HTTPTimeout > 0 {
			httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
		}
		registry = NewOverpassProviderWithOptions(OverpassOptions{
			Endpoint:     cfg.Endpoint,
			QueryTimeout: cfg.QueryTimeout,
			HTTPClient:   httpClient,
		})
	}

	if cache == nil {
		return registry
	}
	return NewCachedRegistry(registry, cache, cfg.CacheTTL)
}
