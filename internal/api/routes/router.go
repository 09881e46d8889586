package routes

import (
	"net/http"

	"github.com/bedfinder/backend/internal/api/handlers"
	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	facilityHandler  *handlers.FacilityHandler
	bookingHandler   *handlers.BookingHandler
	emergencyHandler *handlers.EmergencyHandler
	favoriteHandler  *handlers.FavoriteHandler
	sseHandler       *handlers.SSEHandler
	healthHandler    *handlers.HealthHandler

	sessions       providers.SessionProvider
	allowedOrigins []string
	metrics        *observability.Metrics
}

// Config carries the cross-cutting dependencies of the router
type Config struct {
	Sessions       providers.SessionProvider
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	facilityHandler *handlers.FacilityHandler,
	bookingHandler *handlers.BookingHandler,
	emergencyHandler *handlers.EmergencyHandler,
	favoriteHandler *handlers.FavoriteHandler,
	sseHandler *handlers.SSEHandler,
	healthHandler *handlers.HealthHandler,
	cfg Config,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		facilityHandler:  facilityHandler,
		bookingHandler:   bookingHandler,
		emergencyHandler: emergencyHandler,
		favoriteHandler:  favoriteHandler,
		sseHandler:       sseHandler,
		healthHandler:    healthHandler,
		sessions:         cfg.Sessions,
		allowedOrigins:   cfg.AllowedOrigins,
		metrics:          cfg.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Live)
	r.mux.HandleFunc("GET /health/ready", r.healthHandler.Ready)

	// Facility endpoints
	r.mux.HandleFunc("GET /api/facilities/nearby", r.facilityHandler.Nearby)
	r.mux.HandleFunc("GET /api/facilities", r.facilityHandler.ListFacilities)
	r.mux.HandleFunc("POST /api/facilities", r.facilityHandler.CreateFacility)
	r.mux.HandleFunc("GET /api/facilities/{id}", r.facilityHandler.GetFacility)
	r.mux.HandleFunc("PATCH /api/facilities/{id}/beds", r.facilityHandler.UpdateBeds)

	// Booking endpoints
	r.mux.HandleFunc("POST /api/bookings", r.bookingHandler.CreateBooking)
	r.mux.HandleFunc("GET /api/bookings/mine", r.bookingHandler.ListMyBookings)
	r.mux.HandleFunc("GET /api/bookings/pending", r.bookingHandler.ListPendingBookings)
	r.mux.HandleFunc("POST /api/bookings/{id}/confirm", r.bookingHandler.ConfirmBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/reject", r.bookingHandler.RejectBooking)

	// Emergency endpoints
	r.mux.HandleFunc("POST /api/emergencies", r.emergencyHandler.Broadcast)
	r.mux.HandleFunc("GET /api/emergencies/open", r.emergencyHandler.ListOpen)
	r.mux.HandleFunc("GET /api/emergencies/mine", r.emergencyHandler.ListMine)
	r.mux.HandleFunc("POST /api/emergencies/{id}/resolve", r.emergencyHandler.Resolve)
	r.mux.HandleFunc("POST /api/future-requests", r.emergencyHandler.RequestFuture)

	// Saved hospitals
	r.mux.HandleFunc("GET /api/favorites", r.favoriteHandler.ListFavorites)
	r.mux.HandleFunc("POST /api/favorites/{id}/toggle", r.favoriteHandler.ToggleFavorite)

	// Change notifications
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/changes", r.sseHandler.StreamChanges)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// Authentication copies the request, so it sits outside observability,
	// which reads the matched pattern back from the request it passed on.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Authenticate(r.sessions)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}
