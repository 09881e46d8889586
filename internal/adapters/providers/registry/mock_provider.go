package registry

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/pkg/geo"
)

// MockProvider returns a fixed set of hospitals placed around the query
// point. It is used for local runs without network access.
type MockProvider struct{}

// NewMockProvider creates a new mock registry
func NewMockProvider() providers.FacilityRegistry {
	return &MockProvider{}
}

var mockHospitals = []struct {
	name, street, city, phone string
	dLat, dLng                float64
}{
	{"Community Health Centre", "Station Road", "", "", 0.010, 0.005},
	{"District Civil Hospital", "", "", "0100 200 300", -0.020, 0.015},
	{"", "Lake View Road", "Riverside", "", 0.030, -0.025},
}

// Nearby implements providers.FacilityRegistry.
func (m *MockProvider) Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error) {
	origin := geo.Point{Latitude: center.Latitude, Longitude: center.Longitude}
	facilities := make([]*entities.Facility, 0, len(mockHospitals))

	for _, h := range mockHospitals {
		loc := entities.Location{Latitude: center.Latitude + h.dLat, Longitude: center.Longitude + h.dLng}
		distance := geo.Distance(origin, geo.Point{Latitude: loc.Latitude, Longitude: loc.Longitude})
		if distance > radiusKm {
			continue
		}

		name := h.name
		if name == "" {
			name = entities.UnnamedFacility
		}
		address := entities.AddressUnavailable
		if h.street != "" {
			address = h.street + ", " + h.city
		}

		facility := &entities.Facility{
			Name:       name,
			Address:    address,
			Location:   loc,
			Type:       entities.FacilityTypeGeneral,
			Phone:      entities.StringPtr(h.phone),
			DistanceKm: entities.Float64Ptr(distance),
		}
		facility.MarkExternal()
		facilities = append(facilities, facility)
	}

	return facilities, nil
}
