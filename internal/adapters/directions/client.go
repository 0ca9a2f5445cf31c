package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
)

// Client implements ports.DirectionsProvider against the backend's internal directions API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type directionsResponse struct {
	Status   string      `json:"status"`
	Distance float64     `json:"distance"` // meters
	Geometry [][]float64 `json:"geometry"` // [lat, lng] pairs
}

// New creates a directions client. Timeouts come from the caller's context.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Directions asks for a route between the raw origin and destination.
// A response without geometry is returned with an empty Geometry.
func (c *Client) Directions(ctx context.Context, origin, destination domain.Coordinate) (*ports.Directions, error) {
	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/directions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrMalformedResponse, err)
	}
	if !strings.EqualFold(parsed.Status, "ok") {
		return nil, fmt.Errorf("%w: status %q", domain.ErrProviderUnavailable, parsed.Status)
	}
	if parsed.Distance < 0 {
		return nil, fmt.Errorf("%w: negative distance", domain.ErrMalformedResponse)
	}

	geometry := make([]domain.Coordinate, 0, len(parsed.Geometry))
	for i, pair := range parsed.Geometry {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: vertex %d has %d components", domain.ErrMalformedResponse, i, len(pair))
		}
		geometry = append(geometry, domain.Coordinate{Lat: pair[0], Lng: pair[1]})
	}

	return &ports.Directions{DistanceMeters: parsed.Distance, Geometry: geometry}, nil
}
