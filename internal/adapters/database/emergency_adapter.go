package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

const (
	emergencyRequestsTable = "emergency_requests"
	futureRequestsTable    = "future_requests"
)

var emergencyColumns = []interface{}{
	"id", "user_id", "patient_name", "patient_age", "severity",
	"nature_of_emergency", "location_text", "contact_number", "status", "created_at",
}

// EmergencyAdapter implements the EmergencyRepository interface
type EmergencyAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEmergencyAdapter creates a new emergency request adapter
func NewEmergencyAdapter(client *postgres.Client) repositories.EmergencyRepository {
	return &EmergencyAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a new broadcast
func (a *EmergencyAdapter) Create(ctx context.Context, request *entities.EmergencyRequest) error {
	query, args, err := a.db.Insert(emergencyRequestsTable).Rows(goqu.Record{
		"id":                  request.ID,
		"user_id":             request.UserID,
		"patient_name":        request.PatientName,
		"patient_age":         request.PatientAge,
		"severity":            request.Severity,
		"nature_of_emergency": request.NatureOfEmergency,
		"location_text":       request.LocationText,
		"contact_number":      request.ContactNumber,
		"status":              request.Status,
		"created_at":          request.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create emergency request", err)
	}

	return nil
}

// ListOpen retrieves unresolved broadcasts, newest first
func (a *EmergencyAdapter) ListOpen(ctx context.Context) ([]*entities.EmergencyRequest, error) {
	query, args, err := a.db.Select(emergencyColumns...).
		From(emergencyRequestsTable).
		Where(goqu.Ex{"status": entities.EmergencyStatusOpen}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryRequests(ctx, query, args)
}

// ListByUser retrieves the broadcasts a user sent, newest first
func (a *EmergencyAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyRequest, error) {
	query, args, err := a.db.Select(emergencyColumns...).
		From(emergencyRequestsTable).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryRequests(ctx, query, args)
}

// Resolve marks a broadcast resolved and returns the updated row
func (a *EmergencyAdapter) Resolve(ctx context.Context, id string) (*entities.EmergencyRequest, error) {
	query, args, err := a.db.Update(emergencyRequestsTable).
		Set(goqu.Record{"status": entities.EmergencyStatusResolved}).
		Where(goqu.Ex{"id": id}).
		Returning(emergencyColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	request, err := scanEmergency(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency request with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve emergency request", err)
	}

	return request, nil
}

func (a *EmergencyAdapter) queryRequests(ctx context.Context, query string, args []interface{}) ([]*entities.EmergencyRequest, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query emergency requests", err)
	}
	defer rows.Close()

	requests := make([]*entities.EmergencyRequest, 0)
	for rows.Next() {
		request, err := scanEmergency(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan emergency request", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate emergency requests", err)
	}

	return requests, nil
}

func scanEmergency(s rowScanner) (*entities.EmergencyRequest, error) {
	request := &entities.EmergencyRequest{}
	var contactNumber sql.NullString

	err := s.Scan(
		&request.ID,
		&request.UserID,
		&request.PatientName,
		&request.PatientAge,
		&request.Severity,
		&request.NatureOfEmergency,
		&request.LocationText,
		&contactNumber,
		&request.Status,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	request.ContactNumber = contactNumber.String

	return request, nil
}

// FutureRequestAdapter implements the FutureRequestRepository interface
type FutureRequestAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFutureRequestAdapter creates a new future request adapter
func NewFutureRequestAdapter(client *postgres.Client) repositories.FutureRequestRepository {
	return &FutureRequestAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a future availability request
func (a *FutureRequestAdapter) Create(ctx context.Context, request *entities.FutureRequest) error {
	query, args, err := a.db.Insert(futureRequestsTable).Rows(goqu.Record{
		"id":            request.ID,
		"user_id":       request.UserID,
		"requirement":   request.Requirement,
		"location_text": request.LocationText,
		"hospital_id":   request.HospitalID,
		"desired_date":  request.DesiredDate,
		"agree_terms":   request.AgreeTerms,
		"created_at":    request.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create future request", err)
	}

	return nil
}
