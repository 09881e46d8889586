package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/application/services"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

// FacilityService is the hospital use-case surface the handler needs
type FacilityService interface {
	Create(ctx context.Context, actor *entities.Identity, facility *entities.Facility) error
	GetByID(ctx context.Context, id string) (*entities.Facility, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error)
	List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error)
	UpdateBeds(ctx context.Context, actor *entities.Identity, id string, beds entities.BedInventory) error
}

// NearbyFinder answers nearby-hospital searches
type NearbyFinder interface {
	FindNearby(ctx context.Context, actor *entities.Identity, q services.NearbyQuery) ([]*entities.Facility, error)
}

// FacilityHandler handles hospital-related HTTP requests
type FacilityHandler struct {
	service   FacilityService
	discovery NearbyFinder
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(service FacilityService, discovery NearbyFinder) *FacilityHandler {
	return &FacilityHandler{
		service:   service,
		discovery: discovery,
	}
}

type facilitiesResponse struct {
	Facilities []*entities.Facility `json:"facilities"`
	Count      int                  `json:"count"`
}

// Nearby handles GET /api/facilities/nearby?lat=&lng=&radius=&q=&type=
// Without a position the result is empty.
func (h *FacilityHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	center, err := parseCenter(query.Get("lat"), query.Get("lng"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var radius float64
	if raw := query.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid radius parameter")
			return
		}
	}

	facilityType, err := parseFacilityType(query.Get("type"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	facilities, err := h.discovery.FindNearby(r.Context(), middleware.IdentityFromContext(r.Context()), services.NearbyQuery{
		Center:   center,
		RadiusKm: radius,
		Query:    query.Get("q"),
		Type:     facilityType,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facilitiesResponse{Facilities: facilities, Count: len(facilities)})
}

// GetFacility handles GET /api/facilities/{id}
func (h *FacilityHandler) GetFacility(w http.ResponseWriter, r *http.Request) {
	facility, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facility)
}

// ListFacilities handles GET /api/facilities. With ids=a,b it returns those
// hospitals (saved favorites) instead of a page.
func (h *FacilityHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if raw := query.Get("ids"); raw != "" {
		facilities, err := h.service.GetByIDs(r.Context(), splitIDs(raw))
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, facilitiesResponse{Facilities: facilities, Count: len(facilities)})
		return
	}

	facilityType, err := parseFacilityType(query.Get("type"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	filter := repositories.FacilityFilter{Type: facilityType}
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))

	facilities, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facilitiesResponse{Facilities: facilities, Count: len(facilities)})
}

type createFacilityRequest struct {
	Name      string                `json:"name"`
	Address   string                `json:"address"`
	Latitude  float64               `json:"lat"`
	Longitude float64               `json:"lng"`
	Type      entities.FacilityType `json:"type"`
	Phone     string                `json:"phone"`
	Beds      entities.BedInventory `json:"beds"`
}

// CreateFacility handles POST /api/facilities
func (h *FacilityHandler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	var req createFacilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateLocation(req.Latitude, req.Longitude); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	facility := &entities.Facility{
		Name:     req.Name,
		Address:  req.Address,
		Location: entities.Location{Latitude: req.Latitude, Longitude: req.Longitude},
		Type:     req.Type,
		Phone:    entities.StringPtr(strings.TrimSpace(req.Phone)),
		Beds:     req.Beds,
	}
	if err := h.service.Create(r.Context(), middleware.IdentityFromContext(r.Context()), facility); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	facility.MarkAuthoritative()

	respondWithJSON(w, http.StatusCreated, facility)
}

// UpdateBeds handles PATCH /api/facilities/{id}/beds
func (h *FacilityHandler) UpdateBeds(w http.ResponseWriter, r *http.Request) {
	var beds entities.BedInventory
	if err := decodeJSON(w, r, &beds); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := h.service.UpdateBeds(r.Context(), middleware.IdentityFromContext(r.Context()), id, beds); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":   id,
		"beds": beds,
	})
}

// parseCenter returns nil unless both coordinates are given.
func parseCenter(rawLat, rawLng string) (*entities.Location, error) {
	if rawLat == "" || rawLng == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid latitude parameter")
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid longitude parameter")
	}
	if err := validateLocation(lat, lng); err != nil {
		return nil, err
	}
	return &entities.Location{Latitude: lat, Longitude: lng}, nil
}

func validateLocation(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return apperrors.NewValidationError("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return apperrors.NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

func parseFacilityType(raw string) (entities.FacilityType, error) {
	t := entities.FacilityType(raw)
	if t == "" || t == entities.FacilityTypeAll || t.Valid() {
		return t, nil
	}
	return "", apperrors.NewValidationError("unknown hospital type " + raw)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
