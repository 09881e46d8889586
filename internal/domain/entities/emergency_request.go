package entities

import (
	"strings"
	"time"
)

// Severity grades an emergency.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// EmergencyStatus is the lifecycle state of a broadcast.
type EmergencyStatus string

const (
	EmergencyStatusOpen     EmergencyStatus = "OPEN"
	EmergencyStatusResolved EmergencyStatus = "RESOLVED"
)

// EmergencyRequest is a distress broadcast visible to every staff member.
type EmergencyRequest struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	PatientName       string          `json:"patient_name"`
	PatientAge        string          `json:"patient_age"`
	Severity          Severity        `json:"severity"`
	NatureOfEmergency string          `json:"nature_of_emergency"`
	LocationText      string          `json:"location_text"`
	ContactNumber     string          `json:"contact_number"`
	Status            EmergencyStatus `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Validate returns the names of missing mandatory fields.
func (e *EmergencyRequest) Validate() []string {
	var missing []string
	fields := []struct{ name, value string }{
		{"patient_name", e.PatientName},
		{"patient_age", e.PatientAge},
		{"nature_of_emergency", e.NatureOfEmergency},
		{"location_text", e.LocationText},
		{"contact_number", e.ContactNumber},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	switch e.Severity {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
	case "":
		e.Severity = SeverityModerate
	default:
		missing = append(missing, "severity")
	}
	return missing
}
