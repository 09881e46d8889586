package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	apperrors "github.com/bedfinder/backend/pkg/errors"
	"github.com/bedfinder/backend/pkg/geo"
)

const (
	// DefaultOverpassURL is the public Overpass API interpreter.
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	defaultQueryTimeout = 25 * time.Second
	defaultHTTPTimeout  = 30 * time.Second
	maxErrorBodyBytes   = 100
)

// OverpassProvider discovers hospitals in OpenStreetMap through the Overpass API.
type OverpassProvider struct {
	endpoint     string
	queryTimeout time.Duration
	httpClient   *http.Client
}

// OverpassOptions overrides the endpoint and timeouts (used for tests).
type OverpassOptions struct {
	Endpoint     string
	QueryTimeout time.Duration
	HTTPClient   *http.Client
}

// NewOverpassProvider creates a registry backed by the public Overpass API.
func NewOverpassProvider() providers.FacilityRegistry {
	return NewOverpassProviderWithOptions(OverpassOptions{})
}

// NewOverpassProviderWithOptions creates a registry with explicit options.
func NewOverpassProviderWithOptions(opts OverpassOptions) providers.FacilityRegistry {
	if strings.TrimSpace(opts.Endpoint) == "" {
		opts.Endpoint = DefaultOverpassURL
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OverpassProvider{
		endpoint:     opts.Endpoint,
		queryTimeout: opts.QueryTimeout,
		httpClient:   opts.HTTPClient,
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BuildQuery renders the Overpass QL for hospitals around a point. Ways and
// relations are asked for their center so every element has a coordinate.
func BuildQuery(center entities.Location, radiusKm float64, timeout time.Duration) string {
	radiusMeters := radiusKm * 1000
	around := fmt.Sprintf("(around:%s,%s,%s)",
		formatFloat(radiusMeters), formatFloat(center.Latitude), formatFloat(center.Longitude))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", int(timeout.Seconds()))
	for _, kind := range []string{"node", "way", "relation"} {
		b.WriteString(kind)
		b.WriteString(`["amenity"="hospital"]`)
		b.WriteString(around)
		b.WriteString(";")
	}
	b.WriteString(");out center;")
	return b.String()
}

// Nearby implements providers.FacilityRegistry.
func (p *OverpassProvider) Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error) {
	query := BuildQuery(center, radiusKm, p.queryTimeout)
	reqURL := fmt.Sprintf("%s?%s", p.endpoint, url.Values{"data": []string{query}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to build overpass request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("overpass request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("overpass returned status %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(snippet))),
		)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, apperrors.NewExternalError(fmt.Sprintf("overpass returned non-JSON content type %q", contentType), nil)
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewExternalError("failed to decode overpass response", err)
	}

	origin := geo.Point{Latitude: center.Latitude, Longitude: center.Longitude}
	facilities := make([]*entities.Facility, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		facility, ok := normalize(el, origin)
		if !ok {
			log.Debug().Str("type", el.Type).Int64("osm_id", el.ID).Msg("skipping overpass element without coordinates")
			continue
		}
		facilities = append(facilities, facility)
	}

	return facilities, nil
}

// normalize maps a raw element onto a placeholder Facility.
func normalize(el overpassElement, origin geo.Point) (*entities.Facility, bool) {
	loc, ok := elementLocation(el)
	if !ok {
		return nil, false
	}

	tags := el.Tags
	if tags == nil {
		tags = map[string]string{}
	}

	name := strings.TrimSpace(tags["name"])
	if name == "" {
		name = entities.UnnamedFacility
	}

	address := entities.AddressUnavailable
	if street := tags["addr:street"]; street != "" {
		address = street + ", " + tags["addr:city"]
	}

	phone := tags["contact:phone"]
	if phone == "" {
		phone = tags["phone"]
	}

	distance := geo.Distance(origin, geo.Point{Latitude: loc.Latitude, Longitude: loc.Longitude})

	facility := &entities.Facility{
		Name:       name,
		Address:    address,
		Location:   loc,
		Type:       entities.FacilityTypeGeneral,
		Phone:      entities.StringPtr(phone),
		DistanceKm: entities.Float64Ptr(distance),
	}
	facility.MarkExternal()
	return facility, true
}

// elementLocation prefers the direct coordinate and falls back to the center.
func elementLocation(el overpassElement) (entities.Location, bool) {
	if el.Lat != nil && el.Lon != nil {
		return entities.Location{Latitude: *el.Lat, Longitude: *el.Lon}, true
	}
	if el.Center != nil {
		return entities.Location{Latitude: el.Center.Lat, Longitude: el.Center.Lon}, true
	}
	return entities.Location{}, false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
