package entities

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a bed booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a patient's request for a bed at a facility.
type Booking struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	HospitalID   string        `json:"hospital_id"`
	PatientName  string        `json:"patient_name"`
	Age          int           `json:"age"`
	Condition    string        `json:"condition,omitempty"`
	ContactPhone string        `json:"contact_phone"`
	BedType      BedCategory   `json:"bed_type"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	// Hospital is populated on reads that join the facility.
	Hospital *BookingHospital `json:"hospital,omitempty"`
}

// BookingHospital is the facility summary shown next to a booking.
type BookingHospital struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Address string  `json:"address"`
}

// Validate checks the fields the booking form marks as required.
func (b *Booking) Validate() []string {
	var missing []string
	if strings.TrimSpace(b.PatientName) == "" {
		missing = append(missing, "patient_name")
	}
	if b.Age <= 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(b.ContactPhone) == "" {
		missing = append(missing, "contact_phone")
	}
	if strings.TrimSpace(b.HospitalID) == "" {
		missing = append(missing, "hospital_id")
	}
	return missing
}
