package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/domain/entities"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

var bookingColumnNames = []string{
	"id", "user_id", "hospital_id", "patient_name", "age", "condition", "contact_phone",
	"bed_type", "status", "created_at", "updated_at", "name", "phone", "address",
}

func TestBookingAdapter_ListByUser_JoinsHospital(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewBookingAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" AS "b" LEFT JOIN "hospitals" AS "h" (.+) WHERE \("b"."user_id" = 'u-1'\) ORDER BY "b"."created_at" DESC`).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames).
			AddRow("b-1", "u-1", "h-1", "Ravi", 42, nil, "99999", "icu", "PENDING", now, nil, "Apex", "022", "Borivali").
			AddRow("b-2", "u-1", "gone", "Ravi", 42, "fever", "99999", "general", "REJECTED", now, now, nil, nil, nil))

	bookings, err := adapter.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, entities.BedCategoryICU, bookings[0].BedType)
	require.NotNil(t, bookings[0].Hospital)
	assert.Equal(t, "Apex", bookings[0].Hospital.Name)
	assert.Nil(t, bookings[1].Hospital)
	assert.Equal(t, "fever", bookings[1].Condition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("calls procedure", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := NewBookingAdapter(client)

		mock.ExpectExec(`SELECT confirm_booking\('b-1', 'h-1', 'oxygen'\)`).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.Confirm(ctx, "b-1", "h-1", entities.BedCategoryOxygen))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("raised exception is a conflict", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := NewBookingAdapter(client)

		mock.ExpectExec(`SELECT confirm_booking`).WillReturnError(&pq.Error{Code: "P0001", Message: "no beds available"})

		err := adapter.Confirm(ctx, "b-1", "h-1", entities.BedCategoryICU)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})
}

func TestBookingAdapter_UpdateStatus_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewBookingAdapter(client)

	mock.ExpectExec(`UPDATE "bookings" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.UpdateStatus(context.Background(), "missing", entities.BookingStatusRejected)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestEmergencyAdapter_Resolve(t *testing.T) {
	ctx := context.Background()
	columns := []string{
		"id", "user_id", "patient_name", "patient_age", "severity",
		"nature_of_emergency", "location_text", "contact_number", "status", "created_at",
	}

	t.Run("returns updated row", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := NewEmergencyAdapter(client)

		mock.ExpectQuery(`UPDATE "emergency_requests" SET "status"='RESOLVED' WHERE \("id" = 'e-1'\) RETURNING`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("e-1", "u-1", "Asha", "61", "Critical", "Cardiac", "Andheri", "98765", "RESOLVED", time.Now()))

		request, err := adapter.Resolve(ctx, "e-1")
		require.NoError(t, err)
		assert.Equal(t, entities.EmergencyStatusResolved, request.Status)
		assert.Equal(t, entities.SeverityCritical, request.Severity)
	})

	t.Run("not found", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := NewEmergencyAdapter(client)

		mock.ExpectQuery(`UPDATE "emergency_requests"`).WillReturnRows(sqlmock.NewRows(columns))

		_, err := adapter.Resolve(ctx, "missing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestFutureRequestAdapter_Create(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewFutureRequestAdapter(client)

	mock.ExpectExec(`INSERT INTO "future_requests"`).WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.Create(context.Background(), &entities.FutureRequest{
		ID:           "f-1",
		Requirement:  "ICU bed",
		LocationText: "Pune",
		DesiredDate:  "2026-11-01",
		AgreeTerms:   true,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
