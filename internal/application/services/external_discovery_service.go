package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bedfinder/backend/internal/application/tasks"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
)

// TaskSubmitter accepts background work without blocking.
type TaskSubmitter interface {
	Submit(task tasks.Task) error
}

// ExternalDiscoveryService queries the open-map registry and hands new
// results to reconciliation in the background.
type ExternalDiscoveryService struct {
	registry   providers.FacilityRegistry
	reconciler *ReconciliationService
	runner     TaskSubmitter
	metrics    *observability.Metrics
}

// NewExternalDiscoveryService creates a new external discovery service.
// runner may be nil, which disables background sync.
func NewExternalDiscoveryService(
	registry providers.FacilityRegistry,
	reconciler *ReconciliationService,
	runner TaskSubmitter,
	metrics *observability.Metrics,
) *ExternalDiscoveryService {
	return &ExternalDiscoveryService{
		registry:   registry,
		reconciler: reconciler,
		runner:     runner,
		metrics:    metrics,
	}
}

// Discover returns registry hospitals within radiusKm of center. It never
// fails: any registry error is logged and yields an empty list. A non-empty
// result is submitted for sync without waiting for it.
func (s *ExternalDiscoveryService) Discover(ctx context.Context, actor *entities.Identity, center entities.Location, radiusKm float64) []*entities.Facility {
	if radiusKm <= 0 {
		return []*entities.Facility{}
	}

	ctx, span := observability.StartSpan(ctx, "ExternalDiscoveryService.Discover")
	defer span.End()

	discovered, err := s.registry.Nearby(ctx, center, radiusKm)
	if err != nil {
		observability.RecordError(span, err)
		log.Warn().Err(err).
			Float64("lat", center.Latitude).
			Float64("lng", center.Longitude).
			Float64("radius_km", radiusKm).
			Msg("open-map registry unavailable, continuing without external results")
		if s.metrics != nil {
			observability.AddCount(ctx, s.metrics.RegistryFailures, 1)
		}
		return []*entities.Facility{}
	}

	observability.SetSpanAttributes(span, attribute.Int("discovery.external_count", len(discovered)))
	if s.metrics != nil {
		observability.AddCount(ctx, s.metrics.ExternalFacilities, len(discovered))
	}

	if len(discovered) > 0 {
		s.scheduleSync(actor, discovered)
	}

	return discovered
}

func (s *ExternalDiscoveryService) scheduleSync(actor *entities.Identity, discovered []*entities.Facility) {
	if s.runner == nil || s.reconciler == nil {
		return
	}

	// the caller owns the returned slice; sync works on its own copy
	batch := make([]*entities.Facility, len(discovered))
	for i, f := range discovered {
		batch[i] = f.Clone()
	}
	var owner *entities.Identity
	if actor != nil {
		owner = &entities.Identity{UserID: actor.UserID, Role: actor.Role}
	}

	err := s.runner.Submit(tasks.Task{
		Name: "hospital-sync",
		Run: func(ctx context.Context) error {
			report := s.reconciler.Sync(ctx, owner, batch)
			log.Info().
				Int("inserted", report.Inserted).
				Int("skipped", report.Skipped).
				Int("failed", report.Failed).
				Msg("hospital sync finished")
			return report.Err
		},
	})
	if err != nil {
		log.Warn().Err(err).Int("hospitals", len(batch)).Msg("hospital sync not scheduled")
	}
}
