package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

// FacilityInvalidator drops cached copies of a hospital after its beds change
// outside the facility repository.
type FacilityInvalidator interface {
	Invalidate(ctx context.Context, id string)
}

// BookingService handles bed booking logic
type BookingService struct {
	repo         repositories.BookingRepository
	facilityRepo repositories.FacilityRepository
	notifier     providers.ChangeNotifier
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo repositories.BookingRepository,
	facilityRepo repositories.FacilityRepository,
	notifier providers.ChangeNotifier,
) *BookingService {
	return &BookingService{
		repo:         repo,
		facilityRepo: facilityRepo,
		notifier:     notifier,
	}
}

// Create books a bed for the signed-in user. The booking starts pending.
func (s *BookingService) Create(ctx context.Context, actor *entities.Identity, booking *entities.Booking) error {
	if actor == nil {
		return apperrors.NewUnauthorizedError("sign in to book a bed")
	}
	if missing := booking.Validate(); len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	if booking.BedType == "" {
		booking.BedType = entities.BedCategoryGeneral
	}
	bedType, err := entities.ParseBedCategory(string(booking.BedType))
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	// bookings are only taken for persisted hospitals
	if _, err := s.facilityRepo.GetByID(ctx, booking.HospitalID); err != nil {
		return err
	}

	now := time.Now().UTC()
	booking.ID = uuid.NewString()
	booking.UserID = actor.UserID
	booking.BedType = bedType
	booking.Status = entities.BookingStatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := s.repo.Create(ctx, booking); err != nil {
		return err
	}

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableBookings, entities.ChangeInsert, booking.ID, booking.UserID, booking))
	return nil
}

// ListMine returns the caller's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("sign in to see your bookings")
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

// ListPending returns the staff review queue, oldest first.
func (s *BookingService) ListPending(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff can review bookings")
	}
	return s.repo.ListPending(ctx)
}

// Confirm approves a pending booking and takes one bed of its category.
func (s *BookingService) Confirm(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error) {
	booking, err := s.pendingBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Confirm(ctx, booking.ID, booking.HospitalID, booking.BedType); err != nil {
		return nil, err
	}
	booking.Status = entities.BookingStatusConfirmed
	booking.UpdatedAt = time.Now().UTC()

	if inv, ok := s.facilityRepo.(FacilityInvalidator); ok {
		inv.Invalidate(ctx, booking.HospitalID)
	}
	log.Info().Str("booking_id", booking.ID).Str("hospital_id", booking.HospitalID).Str("bed_type", string(booking.BedType)).Msg("booking confirmed")

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableBookings, entities.ChangeUpdate, booking.ID, booking.UserID, booking))
	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeUpdate, booking.HospitalID, "", nil))
	return booking, nil
}

// Reject declines a pending booking.
func (s *BookingService) Reject(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error) {
	booking, err := s.pendingBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, booking.ID, entities.BookingStatusRejected); err != nil {
		return nil, err
	}
	booking.Status = entities.BookingStatusRejected
	booking.UpdatedAt = time.Now().UTC()

	publishChange(ctx, s.notifier, entities.NewChangeEvent(entities.TableBookings, entities.ChangeUpdate, booking.ID, booking.UserID, booking))
	return booking, nil
}

func (s *BookingService) pendingBooking(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff can review bookings")
	}
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != entities.BookingStatusPending {
		return nil, apperrors.NewConflictError("booking is already "+strings.ToLower(string(booking.Status)), nil)
	}
	return booking, nil
}
