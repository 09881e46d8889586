package entities

import (
	"strconv"
	"strings"
	"time"
)

// FacilityType is the provider category of a hospital.
type FacilityType string

const (
	FacilityTypePrivate    FacilityType = "Pvt"
	FacilityTypeGovernment FacilityType = "Gov"
	FacilityTypeSemi       FacilityType = "Sem"
	// FacilityTypeGeneral marks records discovered in the open-map registry
	// whose real category is not known yet.
	FacilityTypeGeneral FacilityType = "General"

	// FacilityTypeAll is the filter sentinel that disables type filtering.
	FacilityTypeAll FacilityType = "All"
)

// Valid reports whether t is a storable category.
func (t FacilityType) Valid() bool {
	switch t {
	case FacilityTypePrivate, FacilityTypeGovernment, FacilityTypeSemi, FacilityTypeGeneral:
		return true
	}
	return false
}

// Provenance tells where a facility in a result list came from.
type Provenance string

const (
	ProvenanceAuthoritative Provenance = "authoritative"
	ProvenanceExternal      Provenance = "external"
)

// ExternalIDPrefix prefixes synthesized ids of unpersisted registry records.
const ExternalIDPrefix = "osm-"

// Unknown-value sentinels used when normalizing registry data.
const (
	UnnamedFacility    = "Unnamed Hospital"
	AddressUnavailable = "Address not available"
)

// Facility represents a hospital tracked by the system
type Facility struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Address         string       `json:"address"`
	Location        Location     `json:"location"`
	Type            FacilityType `json:"type"`
	Phone           *string      `json:"phone,omitempty"`
	Beds            BedInventory `json:"beds"`
	Verified        bool         `json:"verified"`
	ResponseTimeAvg *int         `json:"response_time_avg,omitempty"`
	CreatedBy       *string      `json:"created_by,omitempty"`
	CreatedAt       time.Time    `json:"created_at,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at,omitempty"`

	// DistanceKm is relative to the coordinate of the query that produced
	// this record; it is never persisted.
	DistanceKm *float64   `json:"distance_km,omitempty"`
	Provenance Provenance `json:"provenance"`
	InDB       bool       `json:"in_db"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsExternal reports whether f has not been persisted to the store.
func (f *Facility) IsExternal() bool {
	return f.Provenance == ProvenanceExternal
}

// NameKey is the de-duplication key shared by every source.
func (f *Facility) NameKey() string {
	return strings.ToLower(f.Name)
}

// Clone returns a copy that shares no pointers with f.
func (f *Facility) Clone() *Facility {
	c := *f
	if f.Phone != nil {
		phone := *f.Phone
		c.Phone = &phone
	}
	if f.ResponseTimeAvg != nil {
		v := *f.ResponseTimeAvg
		c.ResponseTimeAvg = &v
	}
	if f.CreatedBy != nil {
		v := *f.CreatedBy
		c.CreatedBy = &v
	}
	if f.DistanceKm != nil {
		v := *f.DistanceKm
		c.DistanceKm = &v
	}
	return &c
}

// MarkExternal turns f into an unpersisted placeholder: synthesized id, no
// capacity claim, not verified.
func (f *Facility) MarkExternal() {
	f.ID = ExternalID(f.Location)
	f.Beds = BedInventory{}
	f.Verified = false
	f.Provenance = ProvenanceExternal
	f.InDB = false
}

// MarkAuthoritative tags f as coming from the store.
func (f *Facility) MarkAuthoritative() {
	f.Provenance = ProvenanceAuthoritative
	f.InDB = true
}

// ExternalID derives a stable key for a registry point from its coordinates.
func ExternalID(loc Location) string {
	return ExternalIDPrefix +
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + "-" +
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
