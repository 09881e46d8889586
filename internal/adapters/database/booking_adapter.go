package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

const (
	bookingsTable = "bookings"

	// confirmBookingFunction decrements availability and confirms in one transaction.
	confirmBookingFunction = "confirm_booking"
)

var bookingColumns = []interface{}{
	goqu.I("b.id"), goqu.I("b.user_id"), goqu.I("b.hospital_id"), goqu.I("b.patient_name"),
	goqu.I("b.age"), goqu.I("b.condition"), goqu.I("b.contact_phone"), goqu.I("b.bed_type"),
	goqu.I("b.status"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
	goqu.I("h.name"), goqu.I("h.phone"), goqu.I("h.address"),
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new booking
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	record := goqu.Record{
		"id":            booking.ID,
		"user_id":       booking.UserID,
		"hospital_id":   booking.HospitalID,
		"patient_name":  booking.PatientName,
		"age":           booking.Age,
		"condition":     booking.Condition,
		"contact_phone": booking.ContactPhone,
		"bed_type":      booking.BedType,
		"status":        booking.Status,
		"created_at":    booking.CreatedAt,
		"updated_at":    booking.UpdatedAt,
	}

	query, args, err := a.db.Insert(bookingsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}

	return nil
}

// GetByID retrieves a booking with its hospital summary
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.selectBookings().
		Where(goqu.I("b.id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}

	return booking, nil
}

// ListByUser retrieves a user's bookings, newest first
func (a *BookingAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.Booking, error) {
	query, args, err := a.selectBookings().
		Where(goqu.I("b.user_id").Eq(userID)).
		Order(goqu.I("b.created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryBookings(ctx, query, args)
}

// ListPending retrieves the staff queue, oldest first
func (a *BookingAdapter) ListPending(ctx context.Context) ([]*entities.Booking, error) {
	query, args, err := a.selectBookings().
		Where(goqu.I("b.status").Eq(entities.BookingStatusPending)).
		Order(goqu.I("b.created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryBookings(ctx, query, args)
}

// Confirm runs the confirm_booking procedure
func (a *BookingAdapter) Confirm(ctx context.Context, bookingID, hospitalID string, bedType entities.BedCategory) error {
	query, args, err := a.db.Select(goqu.Func(confirmBookingFunction, bookingID, hospitalID, string(bedType))).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build confirm query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isRaisedException(err) {
			// the procedure raises when the category has no available bed
			return apperrors.NewConflictError("booking could not be confirmed", err)
		}
		return apperrors.NewExternalError("confirm booking failed", err)
	}

	return nil
}

// UpdateStatus sets the status of a booking
func (a *BookingAdapter) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	query, args, err := a.db.Update(bookingsTable).
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update booking", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}

	return nil
}

func (a *BookingAdapter) selectBookings() *goqu.SelectDataset {
	return a.db.From(goqu.T(bookingsTable).As("b")).
		LeftJoin(goqu.T(hospitalsTable).As("h"), goqu.On(goqu.I("h.id").Eq(goqu.I("b.hospital_id")))).
		Select(bookingColumns...)
}

func (a *BookingAdapter) queryBookings(ctx context.Context, query string, args []interface{}) ([]*entities.Booking, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query bookings", err)
	}
	defer rows.Close()

	bookings := make([]*entities.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}

	return bookings, nil
}

func scanBooking(s rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var condition sql.NullString
	var updatedAt sql.NullTime
	var hospitalName, hospitalPhone, hospitalAddress sql.NullString

	err := s.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.HospitalID,
		&booking.PatientName,
		&booking.Age,
		&condition,
		&booking.ContactPhone,
		&booking.BedType,
		&booking.Status,
		&booking.CreatedAt,
		&updatedAt,
		&hospitalName,
		&hospitalPhone,
		&hospitalAddress,
	)
	if err != nil {
		return nil, err
	}

	booking.Condition = condition.String
	booking.UpdatedAt = updatedAt.Time
	if hospitalName.Valid {
		booking.Hospital = &entities.BookingHospital{
			Name:    hospitalName.String,
			Phone:   entities.StringPtr(hospitalPhone.String),
			Address: hospitalAddress.String,
		}
	}

	return booking, nil
}
