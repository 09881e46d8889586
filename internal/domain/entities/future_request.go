package entities

import "time"

// FutureRequest asks to be notified when a bed opens up on a date.
type FutureRequest struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id,omitempty"`
	Requirement  string    `json:"requirement"`
	LocationText string    `json:"location_text"`
	HospitalID   *string   `json:"hospital_id,omitempty"`
	DesiredDate  string    `json:"desired_date"`
	AgreeTerms   bool      `json:"agree_terms"`
	CreatedAt    time.Time `json:"created_at"`
}
