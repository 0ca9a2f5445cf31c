package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// maxCoordinates is the most waypoints the public OSRM route service accepts in one request.
const maxCoordinates = 100

// Config configures the OSRM client.
type Config struct {
	BaseURL string
	Profile string
	// RateLimitPerSec caps outgoing requests; 0 disables the limiter.
	RateLimitPerSec float64
}

// Client implements ports.PathProvider against an OSRM-compatible route service.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64           `json:"distance"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// New creates an OSRM client. Timeouts come from the caller's context.
func New(cfg Config) *Client {
	profile := cfg.Profile
	if profile == "" {
		profile = "driving"
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: profile,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if cfg.RateLimitPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1)
	}
	return c
}

// Route requests full GeoJSON geometry through the ordered coordinates.
func (c *Client) Route(ctx context.Context, coords []domain.Coordinate) ([]domain.Coordinate, error) {
	if len(coords) < 2 || len(coords) > maxCoordinates {
		return nil, fmt.Errorf("%w: %d coordinates", domain.ErrProviderUnavailable, len(coords))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", domain.ErrProviderUnavailable, err)
		}
	}

	parts := make([]string, len(coords))
	for i, p := range coords {
		parts[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson",
		c.baseURL, c.profile, strings.Join(parts, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

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

	var parsed routeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrMalformedResponse, err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: code %s: %s", domain.ErrProviderUnavailable, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 || parsed.Routes[0].Geometry == nil {
		return nil, fmt.Errorf("%w: no route geometry", domain.ErrMalformedResponse)
	}

	line, ok := parsed.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok || len(line) < 2 {
		return nil, fmt.Errorf("%w: geometry is not a line string", domain.ErrMalformedResponse)
	}

	out := make([]domain.Coordinate, len(line))
	for i, pt := range line {
		out[i] = domain.Coordinate{Lat: pt.Lat(), Lng: pt.Lon()}
	}
	return out, nil
}
