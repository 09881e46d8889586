package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/bedfinder/backend/pkg/errors"
	"github.com/bedfinder/backend/pkg/retry"
)

// DefaultDedupLatTolerance is the latitude window, in degrees, within which
// two hospitals with the same name are considered the same place.
const DefaultDedupLatTolerance = 0.001

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	Inserted int
	Skipped  int
	Failed   int
	// Err joins every per-record failure. It is informational only.
	Err error
}

// ReconciliationService merges registry results with the store and persists
// newly discovered hospitals.
type ReconciliationService struct {
	repo      repositories.FacilityRepository
	notifier  providers.ChangeNotifier
	metrics   *observability.Metrics
	tolerance float64
	retry     retry.Config
}

// NewReconciliationService creates a new reconciliation service. notifier and
// metrics may be nil.
func NewReconciliationService(
	repo repositories.FacilityRepository,
	notifier providers.ChangeNotifier,
	metrics *observability.Metrics,
	tolerance float64,
) *ReconciliationService {
	if tolerance <= 0 {
		tolerance = DefaultDedupLatTolerance
	}

	retryCfg := retry.QuickConfig()
	retryCfg.ShouldRetry = func(err error) bool {
		// a duplicate stays a duplicate, a bad row stays bad
		appErr, ok := apperrors.As(err)
		return !ok || appErr.Retryable()
	}

	return &ReconciliationService{
		repo:      repo,
		notifier:  notifier,
		metrics:   metrics,
		tolerance: tolerance,
		retry:     retryCfg,
	}
}

// Sync persists every discovered hospital that has no stored counterpart
// with the same name and a latitude within the tolerance. Failures are
// recorded per record; processing always continues. Running Sync twice on
// the same input inserts nothing the second time.
func (s *ReconciliationService) Sync(ctx context.Context, actor *entities.Identity, discovered []*entities.Facility) SyncReport {
	var report SyncReport
	var errs []error

	for i, facility := range discovered {
		if err := ctx.Err(); err != nil {
			report.Failed += len(discovered) - i
			errs = append(errs, fmt.Errorf("sync interrupted: %w", err))
			break
		}

		exists, err := s.repo.ExistsNear(ctx, facility.Name, facility.Location.Latitude, s.tolerance)
		if err != nil {
			// unknown state: skip rather than risk a duplicate
			report.Failed++
			errs = append(errs, fmt.Errorf("lookup %q: %w", facility.Name, err))
			log.Warn().Err(err).Str("hospital", facility.Name).Msg("hospital lookup failed, skipping sync")
			continue
		}
		if exists {
			// distinct hospitals sharing a name inside the window collide here
			log.Debug().
				Str("hospital", facility.Name).
				Float64("lat", facility.Location.Latitude).
				Float64("tolerance", s.tolerance).
				Msg("same-named hospital already stored nearby, skipping")
			report.Skipped++
			continue
		}

		record := newSyncedFacility(facility, actor)
		err = retry.Do(ctx, s.retry, "hospital sync insert", func(ctx context.Context) error {
			return s.repo.Create(ctx, record)
		})
		switch {
		case err == nil:
			report.Inserted++
			s.publish(ctx, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeInsert, record.ID, "", record))
		case apperrors.IsType(err, apperrors.ErrorTypeConflict):
			// inserted concurrently by another client
			report.Skipped++
		default:
			report.Failed++
			errs = append(errs, fmt.Errorf("insert %q: %w", facility.Name, err))
			log.Error().Err(err).Str("hospital", facility.Name).Msg("failed to persist discovered hospital")
		}
	}

	report.Err = errors.Join(errs...)
	s.record(ctx, report)
	return report
}

// Merge returns authoritative followed by every discovered hospital whose
// case-insensitive name is not already in authoritative. Appended entries
// are copies tagged external with zero capacity. No sorting is applied.
func (s *ReconciliationService) Merge(authoritative, discovered []*entities.Facility) []*entities.Facility {
	names := make(map[string]struct{}, len(authoritative))
	merged := make([]*entities.Facility, 0, len(authoritative)+len(discovered))

	for _, f := range authoritative {
		names[f.NameKey()] = struct{}{}
		merged = append(merged, f)
	}

	for _, f := range discovered {
		if _, ok := names[f.NameKey()]; ok {
			continue
		}
		external := f.Clone()
		external.MarkExternal()
		merged = append(merged, external)
	}

	return merged
}

// newSyncedFacility builds the unverified, zero-capacity record stored for a
// discovered hospital.
func newSyncedFacility(f *entities.Facility, actor *entities.Identity) *entities.Facility {
	now := time.Now().UTC()
	record := &entities.Facility{
		ID:        uuid.NewString(),
		Name:      f.Name,
		Address:   f.Address,
		Location:  f.Location,
		Type:      entities.FacilityTypeGeneral,
		Verified:  false,
		CreatedBy: actor.UserIDPtr(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if f.Phone != nil {
		record.Phone = entities.StringPtr(*f.Phone)
	}
	return record
}

func (s *ReconciliationService) publish(ctx context.Context, event *entities.ChangeEvent) {
	publishChange(ctx, s.notifier, event)
}

func (s *ReconciliationService) record(ctx context.Context, report SyncReport) {
	if s.metrics == nil {
		return
	}
	observability.AddCount(ctx, s.metrics.SyncInserted, report.Inserted)
	observability.AddCount(ctx, s.metrics.SyncFailed, report.Failed)
}

// publishChange notifies subscribers; a failure never fails the mutation.
func publishChange(ctx context.Context, notifier providers.ChangeNotifier, event *entities.ChangeEvent) {
	if notifier == nil {
		return
	}
	if err := notifier.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("table", event.Table).Str("row_id", event.RowID).Msg("failed to publish change event")
	}
}
