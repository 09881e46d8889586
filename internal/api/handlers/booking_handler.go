package handlers

import (
	"context"
	"net/http"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/entities"
)

// BookingService is the booking use-case surface the handler needs
type BookingService interface {
	Create(ctx context.Context, actor *entities.Identity, booking *entities.Booking) error
	ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error)
	ListPending(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error)
	Confirm(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error)
	Reject(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error)
}

// BookingHandler handles bed booking HTTP requests
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	HospitalID   string `json:"hospital_id"`
	PatientName  string `json:"patient_name"`
	Age          int    `json:"age"`
	Condition    string `json:"condition"`
	ContactPhone string `json:"contact_phone"`
	BedType      string `json:"bed_type"`
}

type bookingsResponse struct {
	Bookings []*entities.Booking `json:"bookings"`
	Count    int                 `json:"count"`
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking := &entities.Booking{
		HospitalID:   req.HospitalID,
		PatientName:  req.PatientName,
		Age:          req.Age,
		Condition:    req.Condition,
		ContactPhone: req.ContactPhone,
		BedType:      entities.BedCategory(req.BedType),
	}
	if err := h.service.Create(r.Context(), middleware.IdentityFromContext(r.Context()), booking); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, booking)
}

// ListMyBookings handles GET /api/bookings/mine
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListMine(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bookingsResponse{Bookings: bookings, Count: len(bookings)})
}

// ListPendingBookings handles GET /api/bookings/pending
func (h *BookingHandler) ListPendingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListPending(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bookingsResponse{Bookings: bookings, Count: len(bookings)})
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Confirm(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}

// RejectBooking handles POST /api/bookings/{id}/reject
func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Reject(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}
