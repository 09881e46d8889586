package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
)

const clientBuffer = 16

// SSEHandler streams row change notifications as Server-Sent Events
type SSEHandler struct {
	notifier  providers.ChangeNotifier
	heartbeat time.Duration
	clients   atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(notifier providers.ChangeNotifier) *SSEHandler {
	return &SSEHandler{
		notifier:  notifier,
		heartbeat: 30 * time.Second,
	}
}

// WithHeartbeat overrides the keep-alive interval.
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// StreamChanges handles GET /api/changes?table=&id=&user_id=
// Hospital changes are public. Booking and emergency streams need a session,
// and non-staff callers only ever see their own rows.
func (h *SSEHandler) StreamChanges(w http.ResponseWriter, r *http.Request) {
	filter, status, message := h.authorizeFilter(r)
	if status != http.StatusOK {
		respondWithError(w, status, message)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	clientChan := make(chan *entities.ChangeEvent, clientBuffer)
	unsubscribe, err := h.notifier.Subscribe(r.Context(), filter, func(event *entities.ChangeEvent) {
		select {
		case clientChan <- event:
		default:
			log.Warn().Str("table", event.Table).Str("event_id", event.ID).Msg("sse client too slow, dropping event")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("table", filter.Table).Msg("failed to subscribe to changes")
		respondWithError(w, http.StatusServiceUnavailable, "change notifications unavailable")
		return
	}
	defer unsubscribe()

	connected := h.clients.Add(1)
	defer h.clients.Add(-1)
	log.Debug().Str("table", filter.Table).Int64("clients", connected).Msg("sse client connected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]interface{}{
		"table":     filter.Table,
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event := <-clientChan:
			h.sendEvent(w, string(event.Operation), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) authorizeFilter(r *http.Request) (entities.ChangeFilter, int, string) {
	query := r.URL.Query()
	filter := entities.ChangeFilter{
		Table:   query.Get("table"),
		RowID:   query.Get("id"),
		OwnerID: query.Get("user_id"),
	}
	identity := middleware.IdentityFromContext(r.Context())

	switch filter.Table {
	case entities.TableHospitals:
		return filter, http.StatusOK, ""
	case entities.TableBookings, entities.TableEmergencyRequests:
		if identity == nil {
			return filter, http.StatusUnauthorized, "sign in to follow " + filter.Table
		}
		if !identity.IsStaff() {
			filter.OwnerID = identity.UserID
		}
		return filter, http.StatusOK, ""
	case "":
		if !identity.IsStaff() {
			return filter, http.StatusBadRequest, "table is required"
		}
		return filter, http.StatusOK, ""
	default:
		return filter, http.StatusBadRequest, "unknown table " + filter.Table
	}
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of connected clients
func (h *SSEHandler) ClientCount() int {
	return int(h.clients.Load())
}
