// Package client is a small Go client for the bed availability API.
package client

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

	"github.com/bedfinder/backend/internal/domain/entities"
)

// ErrStale is returned when a newer search was issued before this one
// finished. The response is discarded.
var ErrStale = errors.New("superseded by a newer request")

// NearbyRequest mirrors the nearby endpoint's query parameters.
type NearbyRequest struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Query     string
	Type      entities.FacilityType
}

// NearbyResponse is the body of GET /api/facilities/nearby.
type NearbyResponse struct {
	Facilities []*entities.Facility `json:"facilities"`
	Count      int                  `json:"count"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bedfinder api returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the bed availability API. FindNearby is safe for concurrent
// use; only the last issued search returns results.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	searches   RequestSequencer
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindNearby searches hospitals around a point. If another FindNearby call
// was issued while this one was in flight, it returns ErrStale.
func (c *Client) FindNearby(ctx context.Context, req NearbyRequest) (*NearbyResponse, error) {
	token := c.searches.Next()

	parsed, err := url.Parse(c.baseURL + "/api/facilities/nearby")
	if err != nil {
		return nil, err
	}

	query := parsed.Query()
	query.Set("lat", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	if req.RadiusKm > 0 {
		query.Set("radius", strconv.FormatFloat(req.RadiusKm, 'f', -1, 64))
	}
	if req.Query != "" {
		query.Set("q", req.Query)
	}
	if req.Type != "" {
		query.Set("type", string(req.Type))
	}
	parsed.RawQuery = query.Encode()

	out := &NearbyResponse{}
	err = c.doJSON(ctx, http.MethodGet, parsed.String(), nil, out)
	if !c.searches.IsLatest(token) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFacility fetches one hospital.
func (c *Client) GetFacility(ctx context.Context, id string) (*entities.Facility, error) {
	out := &entities.Facility{}
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/facilities/"+url.PathEscape(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error     string `json:"error"`
			Retryable bool   `json:"retryable"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error, Retryable: payload.Retryable}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
