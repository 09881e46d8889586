package handlers

import (
	"context"
	"net/http"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/entities"
)

// EmergencyService is the emergency use-case surface the handler needs
type EmergencyService interface {
	Broadcast(ctx context.Context, actor *entities.Identity, request *entities.EmergencyRequest) error
	ListOpen(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error)
	ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error)
	Resolve(ctx context.Context, actor *entities.Identity, id string) (*entities.EmergencyRequest, error)
	RequestFuture(ctx context.Context, actor *entities.Identity, request *entities.FutureRequest) error
}

// EmergencyHandler handles emergency broadcasts and future requests
type EmergencyHandler struct {
	service EmergencyService
}

// NewEmergencyHandler creates a new emergency handler
func NewEmergencyHandler(service EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{service: service}
}

type emergencyRequestBody struct {
	PatientName       string            `json:"patient_name"`
	PatientAge        string            `json:"patient_age"`
	Severity          entities.Severity `json:"severity"`
	NatureOfEmergency string            `json:"nature_of_emergency"`
	LocationText      string            `json:"location_text"`
	ContactNumber     string            `json:"contact_number"`
}

type emergenciesResponse struct {
	Requests []*entities.EmergencyRequest `json:"requests"`
	Count    int                          `json:"count"`
}

// Broadcast handles POST /api/emergencies
func (h *EmergencyHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body emergencyRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	request := &entities.EmergencyRequest{
		PatientName:       body.PatientName,
		PatientAge:        body.PatientAge,
		Severity:          body.Severity,
		NatureOfEmergency: body.NatureOfEmergency,
		LocationText:      body.LocationText,
		ContactNumber:     body.ContactNumber,
	}
	if err := h.service.Broadcast(r.Context(), middleware.IdentityFromContext(r.Context()), request); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, request)
}

// ListOpen handles GET /api/emergencies/open
func (h *EmergencyHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListOpen(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, emergenciesResponse{Requests: requests, Count: len(requests)})
}

// ListMine handles GET /api/emergencies/mine
func (h *EmergencyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListMine(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, emergenciesResponse{Requests: requests, Count: len(requests)})
}

// Resolve handles POST /api/emergencies/{id}/resolve
func (h *EmergencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.Resolve(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

type futureRequestBody struct {
	Requirement  string  `json:"requirement"`
	LocationText string  `json:"location_text"`
	HospitalID   *string `json:"hospital_id"`
	DesiredDate  string  `json:"desired_date"`
	AgreeTerms   bool    `json:"agree_terms"`
}

// RequestFuture handles POST /api/future-requests
func (h *EmergencyHandler) RequestFuture(w http.ResponseWriter, r *http.Request) {
	var body futureRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	request := &entities.FutureRequest{
		Requirement:  body.Requirement,
		LocationText: body.LocationText,
		HospitalID:   body.HospitalID,
		DesiredDate:  body.DesiredDate,
		AgreeTerms:   body.AgreeTerms,
	}
	if err := h.service.RequestFuture(r.Context(), middleware.IdentityFromContext(r.Context()), request); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, request)
}
