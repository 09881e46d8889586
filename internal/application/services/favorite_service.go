package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

// FavoriteService manages the hospitals a user has saved
type FavoriteService struct {
	repo       repositories.FavoriteRepository
	facilities repositories.FacilityRepository
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(repo repositories.FavoriteRepository, facilities repositories.FacilityRepository) *FavoriteService {
	return &FavoriteService{
		repo:       repo,
		facilities: facilities,
	}
}

// List returns the caller's saved hospitals. Saved ids whose hospital no
// longer exists are skipped.
func (s *FavoriteService) List(ctx context.Context, actor *entities.Identity) ([]*entities.Facility, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("sign in to see your saved hospitals")
	}

	ids, err := s.repo.ListHospitalIDs(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entities.Facility{}, nil
	}
	return s.facilities.GetByIDs(ctx, ids)
}

// Toggle saves the hospital if it is not saved and removes it otherwise,
// then returns the caller's saved ids.
func (s *FavoriteService) Toggle(ctx context.Context, actor *entities.Identity, hospitalID string) ([]string, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("sign in to save hospitals")
	}
	hospitalID = strings.TrimSpace(hospitalID)
	if hospitalID == "" {
		return nil, apperrors.NewValidationError("hospital id is required")
	}

	removed, err := s.repo.Remove(ctx, actor.UserID, hospitalID)
	if err != nil {
		return nil, err
	}
	if !removed {
		if err := s.repo.Add(ctx, actor.UserID, hospitalID); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("user_id", actor.UserID).Str("hospital_id", hospitalID).Bool("saved", !removed).Msg("favorite toggled")

	return s.repo.ListHospitalIDs(ctx, actor.UserID)
}
