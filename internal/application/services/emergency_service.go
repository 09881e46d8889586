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

// EmergencyService handles emergency broadcasts and future availability
// requests.
type EmergencyService struct {
	repo       repositories.EmergencyRepository
	futureRepo repositories.FutureRequestRepository
	notifier   providers.ChangeNotifier
}

// NewEmergencyService creates a new emergency service
func NewEmergencyService(
	repo repositories.EmergencyRepository,
	futureRepo repositories.FutureRequestRepository,
	notifier providers.ChangeNotifier,
) *EmergencyService {
	return &EmergencyService{
		repo:       repo,
		futureRepo: futureRepo,
		notifier:   notifier,
	}
}

// Broadcast stores an open emergency visible to every staff member.
func (s *EmergencyService) Broadcast(ctx context.Context, actor *entities.Identity, request *entities.EmergencyRequest) error {
	if actor == nil {
		return apperrors.NewUnauthorizedError("sign in to send an emergency request")
	}
	if missing := request.Validate(); len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}

	request.ID = uuid.NewString()
	request.UserID = actor.UserID
	request.Status = entities.EmergencyStatusOpen
	request.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, request); err != nil {
		return err
	}

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableEmergencyRequests, entities.ChangeInsert, request.ID, request.UserID, request))
	return nil
}

// ListOpen returns unresolved emergencies, newest first.
func (s *EmergencyService) ListOpen(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff can view emergency requests")
	}
	return s.repo.ListOpen(ctx)
}

// ListMine returns the caller's emergencies.
func (s *EmergencyService) ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("sign in to see your requests")
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

// Resolve closes an emergency.
func (s *EmergencyService) Resolve(ctx context.Context, actor *entities.Identity, id string) (*entities.EmergencyRequest, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff can resolve emergency requests")
	}
	request, err := s.repo.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableEmergencyRequests, entities.ChangeUpdate, request.ID, request.UserID, request))
	return request, nil
}

// RequestFuture records a request for a bed on a later date. Anonymous
// callers are accepted.
func (s *EmergencyService) RequestFuture(ctx context.Context, actor *entities.Identity, request *entities.FutureRequest) error {
	var missing []string
	if strings.TrimSpace(request.Requirement) == "" {
		missing = append(missing, "requirement")
	}
	if strings.TrimSpace(request.LocationText) == "" {
		missing = append(missing, "location_text")
	}
	if strings.TrimSpace(request.DesiredDate) == "" {
		missing = append(missing, "desired_date")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	if _, err := time.Parse("2006-01-02", request.DesiredDate); err != nil {
		return apperrors.NewValidationError("desired_date must be YYYY-MM-DD")
	}
	if !request.AgreeTerms {
		return apperrors.NewValidationError("terms must be accepted")
	}

	request.ID = uuid.NewString()
	request.UserID = actor.UserIDPtr()
	request.CreatedAt = time.Now().UTC()

	return s.futureRepo.Create(ctx, request)
}
