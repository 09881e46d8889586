package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/bedfinder/backend/internal/domain/repositories"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

const (
	favoritesTable = "favorites"

	pqForeignKeyViolation = "23503"
)

// FavoriteAdapter implements the FavoriteRepository interface
type FavoriteAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFavoriteAdapter creates a new favorite adapter
func NewFavoriteAdapter(client *postgres.Client) repositories.FavoriteRepository {
	return &FavoriteAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListHospitalIDs returns a user's saved hospital ids
func (a *FavoriteAdapter) ListHospitalIDs(ctx context.Context, userID string) ([]string, error) {
	query, args, err := a.db.From(favoritesTable).
		Select("hospital_id").
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query favorites", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan favorite", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate favorites", err)
	}

	return ids, nil
}

// Add saves a hospital for a user
func (a *FavoriteAdapter) Add(ctx context.Context, userID, hospitalID string) error {
	query, args, err := a.db.Insert(favoritesTable).
		Rows(goqu.Record{
			"user_id":     userID,
			"hospital_id": hospitalID,
			"created_at":  time.Now().UTC(),
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", hospitalID))
		}
		return apperrors.NewInternalError("failed to save favorite", err)
	}

	return nil
}

// Remove deletes a saved hospital
func (a *FavoriteAdapter) Remove(ctx context.Context, userID, hospitalID string) (bool, error) {
	query, args, err := a.db.Delete(favoritesTable).
		Where(goqu.Ex{"user_id": userID, "hospital_id": hospitalID}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to remove favorite", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
