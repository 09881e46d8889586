package handlers

import (
	"context"
	"net/http"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/entities"
)

// FavoriteService is the saved-hospital surface the handler needs
type FavoriteService interface {
	List(ctx context.Context, actor *entities.Identity) ([]*entities.Facility, error)
	Toggle(ctx context.Context, actor *entities.Identity, hospitalID string) ([]string, error)
}

// FavoriteHandler handles saved-hospital HTTP requests
type FavoriteHandler struct {
	service FavoriteService
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(service FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

type favoriteIDsResponse struct {
	HospitalIDs []string `json:"hospital_ids"`
}

// ListFavorites handles GET /api/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.service.List(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, facilitiesResponse{Facilities: facilities, Count: len(facilities)})
}

// ToggleFavorite handles POST /api/favorites/{id}/toggle
func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.Toggle(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, favoriteIDsResponse{HospitalIDs: ids})
}
