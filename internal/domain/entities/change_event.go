package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tables that publish change notifications.
const (
	TableHospitals         = "hospitals"
	TableBookings          = "bookings"
	TableEmergencyRequests = "emergency_requests"
)

// ChangeOperation is the kind of row mutation.
type ChangeOperation string

const (
	ChangeInsert ChangeOperation = "INSERT"
	ChangeUpdate ChangeOperation = "UPDATE"
	ChangeDelete ChangeOperation = "DELETE"
)

// ChangeEvent notifies subscribers that a row changed.
type ChangeEvent struct {
	ID        string          `json:"id"`
	Table     string          `json:"table"`
	Operation ChangeOperation `json:"operation"`
	RowID     string          `json:"row_id"`
	// OwnerID is the user the row belongs to, for per-user subscriptions.
	OwnerID   string          `json:"owner_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Record    json.RawMessage `json:"record,omitempty"`
}

// NewChangeEvent creates an event; record is marshaled best effort.
func NewChangeEvent(table string, op ChangeOperation, rowID, ownerID string, record interface{}) *ChangeEvent {
	event := &ChangeEvent{
		ID:        uuid.NewString(),
		Table:     table,
		Operation: op,
		RowID:     rowID,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
	if record != nil {
		if data, err := json.Marshal(record); err == nil {
			event.Record = data
		}
	}
	return event
}

// ChangeFilter narrows a subscription. Empty fields match everything.
type ChangeFilter struct {
	Table     string
	RowID     string
	OwnerID   string
	Operation ChangeOperation
}

// Matches reports whether e passes the filter.
func (f ChangeFilter) Matches(e *ChangeEvent) bool {
	if e == nil {
		return false
	}
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.RowID != "" && f.RowID != e.RowID {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != e.OwnerID {
		return false
	}
	if f.Operation != "" && f.Operation != e.Operation {
		return false
	}
	return true
}
