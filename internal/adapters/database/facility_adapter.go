package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bedfinder/backend/pkg/errors"
	"github.com/bedfinder/backend/pkg/geo"
)

const hospitalsTable = "hospitals"

// nearbyFunction is the geo-indexed SQL function owned by the database.
const nearbyFunction = "nearby_hospitals"

var facilityColumns = []interface{}{
	"id", "name", "address", "lat", "lng", "type", "phone",
	"bed_total_general", "bed_av_general",
	"bed_total_oxygen", "bed_av_oxygen",
	"bed_total_icu", "bed_av_icu",
	"verified", "response_time_avg", "created_by", "created_at", "updated_at",
}

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a new hospital. A unique violation is reported as CONFLICT.
func (a *FacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	now := time.Now().UTC()
	if facility.CreatedAt.IsZero() {
		facility.CreatedAt = now
	}
	facility.UpdatedAt = now

	record := goqu.Record{
		"id":                facility.ID,
		"name":              facility.Name,
		"address":           facility.Address,
		"lat":               facility.Location.Latitude,
		"lng":               facility.Location.Longitude,
		"type":              facility.Type,
		"phone":             facility.Phone,
		"bed_total_general": facility.Beds.General.Total,
		"bed_av_general":    facility.Beds.General.Available,
		"bed_total_oxygen":  facility.Beds.Oxygen.Total,
		"bed_av_oxygen":     facility.Beds.Oxygen.Available,
		"bed_total_icu":     facility.Beds.ICU.Total,
		"bed_av_icu":        facility.Beds.ICU.Available,
		"verified":          facility.Verified,
		"response_time_avg": facility.ResponseTimeAvg,
		"created_by":        facility.CreatedBy,
		"created_at":        facility.CreatedAt,
		"updated_at":        facility.UpdatedAt,
	}

	query, args, err := a.db.Insert(hospitalsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("hospital %q already exists", facility.Name), err)
		}
		return apperrors.NewInternalError("failed to create hospital", err)
	}

	facility.MarkAuthoritative()
	return nil
}

// GetByID retrieves a hospital by ID
func (a *FacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	query, args, err := a.db.Select(facilityColumns...).
		From(hospitalsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	facility, err := scanFacility(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hospital", err)
	}

	return facility, nil
}

// GetByIDs retrieves multiple hospitals in a single query
func (a *FacilityAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error) {
	if len(ids) == 0 {
		return []*entities.Facility{}, nil
	}

	query, args, err := a.db.Select(facilityColumns...).
		From(hospitalsTable).
		Where(goqu.Ex{"id": ids}).
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryFacilities(ctx, query, args)
}

// List retrieves hospitals ordered by name
func (a *FacilityAdapter) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	ds := a.db.Select(facilityColumns...).From(hospitalsTable)

	if filter.Type != "" && filter.Type != entities.FacilityTypeAll {
		ds = ds.Where(goqu.Ex{"type": filter.Type})
	}

	ds = ds.Order(goqu.I("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryFacilities(ctx, query, args)
}

// UpdateBeds replaces the bed inventory of a hospital
func (a *FacilityAdapter) UpdateBeds(ctx context.Context, id string, beds entities.BedInventory) error {
	query, args, err := a.db.Update(hospitalsTable).
		Set(goqu.Record{
			"bed_total_general": beds.General.Total,
			"bed_av_general":    beds.General.Available,
			"bed_total_oxygen":  beds.Oxygen.Total,
			"bed_av_oxygen":     beds.Oxygen.Available,
			"bed_total_icu":     beds.ICU.Total,
			"bed_av_icu":        beds.ICU.Available,
			"updated_at":        time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update beds", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", id))
	}

	return nil
}

// Nearby calls the nearby_hospitals SQL function. When the database does not
// define it, a bounding-box query filtered by great-circle distance is used.
func (a *FacilityAdapter) Nearby(ctx context.Context, params repositories.NearbyParams) ([]*entities.Facility, error) {
	columns := append(append([]interface{}{}, facilityColumns...), "distance_km")
	query, args, err := a.db.Select(columns...).
		From(goqu.Func(nearbyFunction, params.Latitude, params.Longitude, params.RadiusKm)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build nearby query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		if isUndefinedFunction(err) {
			log.Warn().Str("function", nearbyFunction).Msg("nearby function missing, using bounding box query")
			return a.nearbyByBounds(ctx, params)
		}
		return nil, apperrors.NewExternalError("nearby hospitals query failed", err)
	}
	defer rows.Close()

	facilities := make([]*entities.Facility, 0)
	for rows.Next() {
		var row facilityRow
		var distance sql.NullFloat64
		if err := rows.Scan(append(row.targets(), &distance)...); err != nil {
			return nil, apperrors.NewExternalError("failed to scan nearby hospital", err)
		}
		facility := row.toEntity()
		if distance.Valid {
			facility.DistanceKm = entities.Float64Ptr(geo.Round1(distance.Float64))
		}
		facilities = append(facilities, facility)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("nearby hospitals query failed", err)
	}

	return facilities, nil
}

func (a *FacilityAdapter) nearbyByBounds(ctx context.Context, params repositories.NearbyParams) ([]*entities.Facility, error) {
	center := geo.Point{Latitude: params.Latitude, Longitude: params.Longitude}
	box := geo.BoundAround(center, params.RadiusKm)

	query, args, err := a.db.Select(facilityColumns...).
		From(hospitalsTable).
		Where(
			goqu.C("lat").Between(goqu.Range(box.MinLat, box.MaxLat)),
			goqu.C("lng").Between(goqu.Range(box.MinLon, box.MaxLon)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build bounds query", err)
	}

	candidates, err := a.queryFacilities(ctx, query, args)
	if err != nil {
		return nil, apperrors.NewExternalError("nearby hospitals query failed", err)
	}

	facilities := make([]*entities.Facility, 0, len(candidates))
	for _, f := range candidates {
		d := geo.Distance(center, geo.Point{Latitude: f.Location.Latitude, Longitude: f.Location.Longitude})
		if d > params.RadiusKm {
			continue
		}
		f.DistanceKm = entities.Float64Ptr(d)
		facilities = append(facilities, f)
	}
	sort.SliceStable(facilities, func(i, j int) bool {
		return *facilities[i].DistanceKm < *facilities[j].DistanceKm
	})

	return facilities, nil
}

// ExistsNear reports whether a hospital with exactly this name has a
// latitude within ±tolerance degrees.
func (a *FacilityAdapter) ExistsNear(ctx context.Context, name string, latitude, tolerance float64) (bool, error) {
	query, args, err := a.db.Select("id").
		From(hospitalsTable).
		Where(
			goqu.Ex{"name": name},
			goqu.C("lat").Gte(latitude-tolerance),
			goqu.C("lat").Lte(latitude+tolerance),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build lookup query", err)
	}

	var id string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to look up hospital", err)
	}

	return true, nil
}

func (a *FacilityAdapter) queryFacilities(ctx context.Context, query string, args []interface{}) ([]*entities.Facility, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query hospitals", err)
	}
	defer rows.Close()

	facilities := make([]*entities.Facility, 0)
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan hospital", err)
		}
		facilities = append(facilities, facility)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate hospitals", err)
	}

	return facilities, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// facilityRow mirrors a hospitals row; most columns are nullable because
// registry imports only fill the basics.
type facilityRow struct {
	id, name         string
	address          sql.NullString
	lat, lng         float64
	facilityType     sql.NullString
	phone            sql.NullString
	totalGeneral     sql.NullInt64
	availableGeneral sql.NullInt64
	totalOxygen      sql.NullInt64
	availableOxygen  sql.NullInt64
	totalICU         sql.NullInt64
	availableICU     sql.NullInt64
	verified         sql.NullBool
	responseTimeAvg  sql.NullInt64
	createdBy        sql.NullString
	createdAt        sql.NullTime
	updatedAt        sql.NullTime
}

func (r *facilityRow) targets() []interface{} {
	return []interface{}{
		&r.id, &r.name, &r.address, &r.lat, &r.lng, &r.facilityType, &r.phone,
		&r.totalGeneral, &r.availableGeneral,
		&r.totalOxygen, &r.availableOxygen,
		&r.totalICU, &r.availableICU,
		&r.verified, &r.responseTimeAvg, &r.createdBy, &r.createdAt, &r.updatedAt,
	}
}

func (r *facilityRow) toEntity() *entities.Facility {
	f := &entities.Facility{
		ID:       r.id,
		Name:     r.name,
		Address:  r.address.String,
		Location: entities.Location{Latitude: r.lat, Longitude: r.lng},
		Type:     entities.FacilityType(r.facilityType.String),
		Beds: entities.BedInventory{
			General: entities.BedCount{Total: int(r.totalGeneral.Int64), Available: int(r.availableGeneral.Int64)},
			Oxygen:  entities.BedCount{Total: int(r.totalOxygen.Int64), Available: int(r.availableOxygen.Int64)},
			ICU:     entities.BedCount{Total: int(r.totalICU.Int64), Available: int(r.availableICU.Int64)},
		},
		Verified:  r.verified.Bool,
		CreatedAt: r.createdAt.Time,
		UpdatedAt: r.updatedAt.Time,
	}
	if f.Type == "" {
		f.Type = entities.FacilityTypeGeneral
	}
	if r.phone.Valid {
		f.Phone = entities.StringPtr(r.phone.String)
	}
	if r.responseTimeAvg.Valid {
		v := int(r.responseTimeAvg.Int64)
		f.ResponseTimeAvg = &v
	}
	if r.createdBy.Valid {
		f.CreatedBy = entities.StringPtr(r.createdBy.String)
	}
	f.MarkAuthoritative()
	return f
}

func scanFacility(s rowScanner) (*entities.Facility, error) {
	var row facilityRow
	if err := s.Scan(row.targets()...); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// Postgres SQLSTATE codes the adapters react to.
const (
	pqUniqueViolation   = "23505"
	pqUndefinedFunction = "42883"
	pqRaiseException    = "P0001"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isUndefinedFunction(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedFunction
}

func isRaisedException(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqRaiseException
}
