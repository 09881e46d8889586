package services

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

const (
	// DefaultRadiusKm is used when a query carries no positive radius.
	DefaultRadiusKm = 10.0

	// unknownDistanceKm sorts records without a distance after every real one.
	unknownDistanceKm = 999.0
)

// NearbyQuery describes one nearby-hospital search.
type NearbyQuery struct {
	// Center is the caller's position. Nil means the position is unknown.
	Center   *entities.Location
	RadiusKm float64
	// Query is matched case-insensitively against name and address.
	Query string
	// Type restricts results to one category; empty or All disables it.
	Type entities.FacilityType
}

// DiscoveryService answers nearby-hospital searches by combining the store
// with the open-map registry.
type DiscoveryService struct {
	repo          repositories.FacilityRepository
	external      *ExternalDiscoveryService
	reconciler    *ReconciliationService
	defaultRadius float64
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(
	repo repositories.FacilityRepository,
	external *ExternalDiscoveryService,
	reconciler *ReconciliationService,
	defaultRadiusKm float64,
) *DiscoveryService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultRadiusKm
	}
	return &DiscoveryService{
		repo:          repo,
		external:      external,
		reconciler:    reconciler,
		defaultRadius: defaultRadiusKm,
	}
}

// FindNearby runs the store query and registry discovery concurrently, merges
// them, applies the type and text filters and sorts by distance. A store
// failure is returned; a registry failure only drops external results.
func (s *DiscoveryService) FindNearby(ctx context.Context, actor *entities.Identity, q NearbyQuery) ([]*entities.Facility, error) {
	if q.Center == nil {
		return []*entities.Facility{}, nil
	}

	radius := q.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadius
	}
	center := *q.Center

	ctx, span := observability.StartSpan(ctx, "DiscoveryService.FindNearby")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.Float64("discovery.radius_km", radius),
		attribute.String("discovery.type", string(q.Type)),
	)

	var authoritative, discovered []*entities.Facility
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		facilities, err := s.repo.Nearby(gctx, repositories.NearbyParams{
			Latitude:  center.Latitude,
			Longitude: center.Longitude,
			RadiusKm:  radius,
		})
		if err != nil {
			if _, ok := apperrors.As(err); ok {
				return err
			}
			return apperrors.NewExternalError("nearby hospitals query failed", err)
		}
		for _, f := range facilities {
			f.MarkAuthoritative()
		}
		authoritative = facilities
		return nil
	})

	// Discover never fails, so a store error must not cancel it
	g.Go(func() error {
		discovered = s.external.Discover(ctx, actor, center, radius)
		return nil
	})

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	merged := s.reconciler.Merge(authoritative, discovered)
	results := filterFacilities(merged, q.Type, q.Query)
	sortByDistance(results)

	observability.SetSpanAttributes(span,
		attribute.Int("discovery.authoritative_count", len(authoritative)),
		attribute.Int("discovery.external_count", len(discovered)),
		attribute.Int("discovery.result_count", len(results)),
	)

	return results, nil
}

func filterFacilities(facilities []*entities.Facility, facilityType entities.FacilityType, query string) []*entities.Facility {
	needle := strings.ToLower(strings.TrimSpace(query))
	filterType := facilityType != "" && facilityType != entities.FacilityTypeAll

	results := make([]*entities.Facility, 0, len(facilities))
	for _, f := range facilities {
		if filterType && f.Type != facilityType {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(f.Name), needle) &&
			!strings.Contains(strings.ToLower(f.Address), needle) {
			continue
		}
		results = append(results, f)
	}
	return results
}

func sortByDistance(facilities []*entities.Facility) {
	sort.SliceStable(facilities, func(i, j int) bool {
		return distanceOrUnknown(facilities[i]) < distanceOrUnknown(facilities[j])
	})
}

func distanceOrUnknown(f *entities.Facility) float64 {
	if f.DistanceKm == nil {
		return unknownDistanceKm
	}
	return *f.DistanceKm
}
