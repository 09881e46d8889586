package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

// FacilityService handles business logic for hospitals
type FacilityService struct {
	repo     repositories.FacilityRepository
	notifier providers.ChangeNotifier
}

// NewFacilityService creates a new facility service
func NewFacilityService(repo repositories.FacilityRepository, notifier providers.ChangeNotifier) *FacilityService {
	return &FacilityService{
		repo:     repo,
		notifier: notifier,
	}
}

// Create registers a hospital. Only staff may add hospitals by hand.
func (s *FacilityService) Create(ctx context.Context, actor *entities.Identity, facility *entities.Facility) error {
	if !actor.IsStaff() {
		return apperrors.NewForbiddenError("only staff can register hospitals")
	}

	facility.Name = strings.TrimSpace(facility.Name)
	if facility.Name == "" {
		return apperrors.NewValidationError("name is required")
	}
	if facility.Type == "" {
		facility.Type = entities.FacilityTypeGeneral
	}
	if !facility.Type.Valid() {
		return apperrors.NewValidationError("unknown hospital type " + string(facility.Type))
	}
	if err := facility.Beds.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	if facility.ID == "" {
		facility.ID = uuid.NewString()
	}
	facility.CreatedBy = actor.UserIDPtr()
	facility.CreatedAt = time.Now().UTC()
	facility.UpdatedAt = facility.CreatedAt

	if err := s.repo.Create(ctx, facility); err != nil {
		return err
	}

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeInsert, facility.ID, "", facility))
	return nil
}

// GetByID retrieves a hospital by ID
func (s *FacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("hospital id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// GetByIDs retrieves the hospitals behind a saved list, skipping unknown ids.
func (s *FacilityService) GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// List retrieves hospitals
func (s *FacilityService) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// UpdateBeds replaces a hospital's bed inventory.
func (s *FacilityService) UpdateBeds(ctx context.Context, actor *entities.Identity, id string, beds entities.BedInventory) error {
	if !actor.IsStaff() {
		return apperrors.NewForbiddenError("only staff can update bed availability")
	}
	if err := beds.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if err := s.repo.UpdateBeds(ctx, id, beds); err != nil {
		return err
	}

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeUpdate, id, "", beds))
	return nil
}
