package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/fleetroute/internal/adapters/http"
	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
)

var (
	hanoi    = domain.Coordinate{Lat: 21.0285, Lng: 105.8542}
	haiPhong = domain.Coordinate{Lat: 20.8449, Lng: 106.6881}
)

// ---- Mocks ----

type mockRouteRepo struct {
	getByIDFn        func(ctx context.Context, id int64) (*domain.Route, error)
	listActiveFn     func(ctx context.Context) ([]domain.Route, error)
	updateEstimateFn func(ctx context.Context, id int64, src domain.PathSource, est domain.RouteEstimate) error
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRouteNotFound
}

func (m *mockRouteRepo) ListActive(ctx context.Context) ([]domain.Route, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

func (m *mockRouteRepo) UpdateEstimate(ctx context.Context, id int64, src domain.PathSource, est domain.RouteEstimate) error {
	if m.updateEstimateFn != nil {
		return m.updateEstimateFn(ctx, id, src, est)
	}
	return nil
}

type resolverFunc func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error)

func (f resolverFunc) Resolve(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
	return f(ctx, o, d)
}

// ---- Test helpers ----

type fixture struct {
	repo           *mockRouteRepo
	resolver       usecases.PathResolver
	bounds         domain.GeoBounds
	resolveTimeout time.Duration
}

var vietnam = domain.GeoBounds{MinLat: 8.18, MaxLat: 23.39, MinLng: 102.14, MaxLng: 109.46}

func withBounds(b domain.GeoBounds) func(*fixture) {
	return func(f *fixture) { f.bounds = b }
}

func storedRoutes(ids ...int64) func(*fixture) {
	return func(f *fixture) {
		f.repo.getByIDFn = func(ctx context.Context, id int64) (*domain.Route, error) {
			for _, want := range ids {
				if id == want {
					return &domain.Route{ID: id, Code: fmt.Sprintf("R%d", id), Origin: hanoi, Destination: haiPhong, Active: true}, nil
				}
			}
			return nil, domain.ErrRouteNotFound
		}
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*fixture)) *handler.Dependencies {
	f := &fixture{
		repo:     &mockRouteRepo{},
		resolver: usecases.NewProviderChain(nil, nil, nil, usecases.ChainConfig{}),
	}
	for _, o := range opts {
		o(f)
	}
	svc := usecases.NewRouteService(f.repo, f.resolver, nil, nil, usecases.EstimateConfig{AvgSpeedKmh: 60, RatePerKm: 15000})
	return &handler.Dependencies{Routes: svc, Currency: "VND", Bounds: f.bounds, ResolveTimeout: f.resolveTimeout}
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

type pathBody struct {
	RouteID    int64               `json:"route_id"`
	Source     string              `json:"source"`
	Vertices   []domain.Coordinate `json:"vertices"`
	DistanceKm float64             `json:"distance_km"`
}

// ---- Path handler tests ----

func TestResolvePath_Fallback(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{
		"origin": hanoi, "destination": haiPhong,
	}), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body pathBody
	decode(t, resp, &body)
	assert.Equal(t, "fallback", body.Source)
	assert.Equal(t, []domain.Coordinate{hanoi, haiPhong}, body.Vertices)
	assert.InDelta(t, geospatial.HaversineKm(hanoi, haiPhong), body.DistanceKm, 1e-9)
}

func TestResolvePath_MissingDestination(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{"origin": hanoi}), -1)
	require.Equal(t, 400, resp.StatusCode)

	var e apiError
	decode(t, resp, &e)
	assert.Equal(t, "validation_failed", e.Code)
	require.Len(t, e.Details, 1)
	assert.Equal(t, "destination", e.Details[0].Field)
}

func TestResolvePath_InvalidLatitude(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{
		"origin":      map[string]float64{"lat": 95, "lng": 105},
		"destination": haiPhong,
	}), -1)
	require.Equal(t, 400, resp.StatusCode)

	var e apiError
	decode(t, resp, &e)
	require.NotEmpty(t, e.Details)
	assert.Equal(t, "origin.lat", e.Details[0].Field)
}

func TestResolvePath_MalformedBody(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/paths/resolve", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	require.Equal(t, 400, resp.StatusCode)

	var e apiError
	decode(t, resp, &e)
	assert.Equal(t, "bad_request", e.Code)
}

func TestResolvePath_DeadlineIsGatewayTimeout(t *testing.T) {
	app := setupApp(makeDeps(func(f *fixture) {
		f.resolver = resolverFunc(func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
			return domain.ResolvedPath{}, context.DeadlineExceeded
		})
	}))

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{
		"origin": hanoi, "destination": haiPhong,
	}), -1)
	require.Equal(t, 504, resp.StatusCode)

	var e apiError
	decode(t, resp, &e)
	assert.Equal(t, "timeout", e.Code)
}

func TestResolvePath_UsesConfiguredDeadline(t *testing.T) {
	var deadline atomic.Value
	app := setupApp(makeDeps(func(f *fixture) {
		f.resolveTimeout = 45 * time.Second
		f.resolver = resolverFunc(func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
			if dl, ok := ctx.Deadline(); ok {
				deadline.Store(dl)
			}
			return domain.ResolvedPath{Vertices: []domain.Coordinate{o, d}, Source: domain.SourceFallback}, nil
		})
	}))

	start := time.Now()
	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{
		"origin": hanoi, "destination": haiPhong,
	}), -1)
	require.Equal(t, 200, resp.StatusCode)

	dl, ok := deadline.Load().(time.Time)
	require.True(t, ok)
	assert.Greater(t, dl.Sub(start), 40*time.Second)
	assert.LessOrEqual(t, dl.Sub(start), 46*time.Second)
}

func TestResolvePath_OutOfBoundsRejected(t *testing.T) {
	var calls atomic.Int32
	bangkok := domain.Coordinate{Lat: 13.7563, Lng: 100.5018}
	app := setupApp(makeDeps(withBounds(vietnam), func(f *fixture) {
		f.resolver = resolverFunc(func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
			calls.Add(1)
			return domain.ResolvedPath{Vertices: []domain.Coordinate{o, d}, Source: domain.SourceFallback}, nil
		})
	}))

	for _, target := range []string{"/v1/paths/resolve", "/v1/paths/estimate"} {
		resp, _ := app.Test(jsonRequest("POST", target, map[string]interface{}{
			"origin": bangkok, "destination": haiPhong,
		}), -1)
		require.Equal(t, 422, resp.StatusCode, target)

		var e apiError
		decode(t, resp, &e)
		assert.Equal(t, "out_of_bounds", e.Code)
		require.Len(t, e.Details, 1)
		assert.Equal(t, "origin", e.Details[0].Field)
	}
	assert.Equal(t, int32(0), calls.Load())

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/resolve", map[string]interface{}{
		"origin": hanoi, "destination": haiPhong,
	}), -1)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEstimatePath_UsesRequestRate(t *testing.T) {
	a := domain.Coordinate{Lat: 10, Lng: 106}
	b := domain.Coordinate{Lat: 11, Lng: 106}
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/estimate", map[string]interface{}{
		"origin": a, "destination": b, "rate_per_km": 10000,
	}), -1)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Path          pathBody `json:"path"`
		DistanceKm    float64  `json:"distance_km"`
		DurationHours float64  `json:"duration_hours"`
		FeeEstimate   float64  `json:"fee_estimate"`
		Currency      string   `json:"currency"`
	}
	decode(t, resp, &body)

	want := usecases.Estimate(geospatial.HaversineKm(a, b), 60, 10000)
	assert.Equal(t, "fallback", body.Path.Source)
	assert.InDelta(t, want.DistanceKm, body.DistanceKm, 1e-9)
	assert.InDelta(t, want.DurationHours, body.DurationHours, 1e-9)
	assert.Equal(t, want.FeeEstimate, body.FeeEstimate)
	assert.Equal(t, "VND", body.Currency)
}

func TestEstimatePath_NegativeRateRejected(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/v1/paths/estimate", map[string]interface{}{
		"origin": hanoi, "destination": haiPhong, "rate_per_km": -1,
	}), -1)
	assert.Equal(t, 400, resp.StatusCode)
}

// ---- Route handler tests ----

func TestListRoutes_Pagination(t *testing.T) {
	app := setupApp(makeDeps(func(f *fixture) {
		f.repo.listActiveFn = func(ctx context.Context) ([]domain.Route, error) {
			routes := make([]domain.Route, 5)
			for i := range routes {
				routes[i] = domain.Route{ID: int64(i + 1), Origin: hanoi, Destination: haiPhong, Active: true}
			}
			return routes, nil
		}
	}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes?offset=2&limit=2", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Link"), `rel="next"`)

	var result struct {
		Data       []domain.Route `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 5, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.Offset)
	require.Len(t, result.Data, 2)
	assert.Equal(t, int64(3), result.Data[0].ID)
}

func TestListRoutes_EmptyIsArray(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestGetRoute(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(7)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/7", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	var r domain.Route
	decode(t, resp, &r)
	assert.Equal(t, "R7", r.Code)

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/routes/8", nil), -1)
	assert.Equal(t, 404, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/routes/abc", nil), -1)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetRoute_RepositoryError(t *testing.T) {
	app := setupApp(makeDeps(func(f *fixture) {
		f.repo.getByIDFn = func(ctx context.Context, id int64) (*domain.Route, error) {
			return nil, errors.New("connection reset")
		}
	}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/1", nil), -1)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestRoutePath_ResolvesOnceThenCached(t *testing.T) {
	var calls atomic.Int32
	app := setupApp(makeDeps(storedRoutes(3), func(f *fixture) {
		f.resolver = resolverFunc(func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
			calls.Add(1)
			return domain.ResolvedPath{Vertices: []domain.Coordinate{o, d}, Source: domain.SourceSecondary}, nil
		})
	}))

	for i := 0; i < 3; i++ {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/3/path", nil), -1)
		require.Equal(t, 200, resp.StatusCode)
		var body pathBody
		decode(t, resp, &body)
		assert.Equal(t, int64(3), body.RouteID)
		assert.Equal(t, "secondary", body.Source)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestEstimateRoute_WritesBack(t *testing.T) {
	var (
		mu      sync.Mutex
		written map[int64]domain.RouteEstimate
	)
	app := setupApp(makeDeps(storedRoutes(4), func(f *fixture) {
		f.repo.updateEstimateFn = func(ctx context.Context, id int64, src domain.PathSource, est domain.RouteEstimate) error {
			mu.Lock()
			defer mu.Unlock()
			written = map[int64]domain.RouteEstimate{id: est}
			return nil
		}
	}))

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/routes/4/estimate", nil), -1)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		RouteID     int64   `json:"route_id"`
		DistanceKm  float64 `json:"distance_km"`
		FeeEstimate float64 `json:"fee_estimate"`
	}
	decode(t, resp, &body)
	assert.Equal(t, int64(4), body.RouteID)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, written, int64(4))
	assert.Equal(t, body.FeeEstimate, written[4].FeeEstimate)
	assert.InDelta(t, body.DistanceKm, written[4].DistanceKm, 1e-9)
}

func TestEstimateRoute_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/routes/99/estimate", nil), -1)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRouteDistance_Deprecated(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(2)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/2/distance", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Deprecation"))
	assert.NotEmpty(t, resp.Header.Get("Sunset"))
	assert.Contains(t, resp.Header.Get("Link"), "successor-version")

	var body struct {
		DistanceKm float64 `json:"distance_km"`
		Source     string  `json:"source"`
	}
	decode(t, resp, &body)
	assert.InDelta(t, geospatial.HaversineKm(hanoi, haiPhong), body.DistanceKm, 1e-9)
	assert.Equal(t, "fallback", body.Source)

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/routes/2", nil), -1)
	assert.Empty(t, resp.Header.Get("Deprecation"))
}

func TestRoutePath_MustRevalidate(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(3)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/3/path", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	cc := resp.Header.Get("Cache-Control")
	assert.Contains(t, cc, "private")
	assert.Contains(t, cc, "max-age=0")
	assert.NotContains(t, cc, "public")
}

func TestGetRoute_ETagNotModified(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(1)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/routes/1", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/v1/routes/1", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	assert.Equal(t, 304, resp.StatusCode)
}

// ---- Refresh handler tests ----

func TestStartRefresh_SelectedRoutes(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(1, 2)))

	resp, _ := app.Test(jsonRequest("POST", "/v1/routes/refresh", map[string]interface{}{"route_ids": []int64{1, 2}}), -1)
	require.Equal(t, 202, resp.StatusCode)

	var body struct {
		JobID string `json:"job_id"`
		Total int    `json:"total"`
	}
	decode(t, resp, &body)
	assert.NotEmpty(t, body.JobID)
	assert.Equal(t, 2, body.Total)
}

func TestStartRefresh_UnknownRoute(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(1)))

	resp, _ := app.Test(jsonRequest("POST", "/v1/routes/refresh", map[string]interface{}{"route_ids": []int64{1, 5}}), -1)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStartRefresh_AllActive(t *testing.T) {
	app := setupApp(makeDeps(func(f *fixture) {
		f.repo.listActiveFn = func(ctx context.Context) ([]domain.Route, error) {
			return []domain.Route{{ID: 1, Origin: hanoi, Destination: haiPhong, Active: true}}, nil
		}
	}))

	req := httptest.NewRequest("POST", "/v1/routes/refresh", nil)
	resp, _ := app.Test(req, -1)
	require.Equal(t, 202, resp.StatusCode)

	var body struct {
		Total int `json:"total"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 1, body.Total)
}

func TestCancelRefresh(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	deps := makeDeps(storedRoutes(1, 2), func(f *fixture) {
		f.resolver = resolverFunc(func(ctx context.Context, o, d domain.Coordinate) (domain.ResolvedPath, error) {
			select {
			case <-ctx.Done():
				return domain.ResolvedPath{}, ctx.Err()
			case <-release:
				return domain.ResolvedPath{Vertices: []domain.Coordinate{o, d}, Source: domain.SourceFallback}, nil
			}
		})
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/routes/refresh", map[string]interface{}{"route_ids": []int64{1, 2}}), -1)
	require.Equal(t, 202, resp.StatusCode)
	var body struct {
		JobID string `json:"job_id"`
	}
	decode(t, resp, &body)

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/routes/refresh/"+body.JobID, nil), -1)
	assert.Equal(t, 204, resp.StatusCode)

	assert.Eventually(t, func() bool { return deps.Routes.RunningRefreshes() == 0 }, time.Second, 10*time.Millisecond)

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/routes/refresh/"+body.JobID, nil), -1)
	assert.Equal(t, 404, resp.StatusCode)
}

// ---- System handler tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["refresh_jobs"])
}

func TestReady_WithoutDatabase(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	require.Equal(t, 503, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "not configured", body.Checks["database"])
	assert.Equal(t, "not configured", body.Checks["nats"])
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	assert.Equal(t, 200, resp.StatusCode)
}

// ---- GraphQL tests ----

func graphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	resp, err := app.Test(jsonRequest("POST", "/graphql", map[string]string{"query": query}), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result struct {
		Data   map[string]interface{}   `json:"data"`
		Errors []map[string]interface{} `json:"errors"`
	}
	decode(t, resp, &result)
	require.Empty(t, result.Errors)
	return result.Data
}

func TestGraphQL_ResolvePath(t *testing.T) {
	app := setupApp(makeDeps())

	data := graphQL(t, app, `{ resolvePath(origin: {lat: 21.0285, lng: 105.8542}, destination: {lat: 20.8449, lng: 106.6881}) { source vertices { lat lng } distance_km } }`)

	path := data["resolvePath"].(map[string]interface{})
	assert.Equal(t, "fallback", path["source"])
	assert.Len(t, path["vertices"], 2)
	assert.InDelta(t, geospatial.HaversineKm(hanoi, haiPhong), path["distance_km"], 1e-9)
}

func TestGraphQL_Estimate(t *testing.T) {
	app := setupApp(makeDeps())

	data := graphQL(t, app, `{ estimate(origin: {lat: 10, lng: 106}, destination: {lat: 11, lng: 106}) { fee_estimate currency path { source } } }`)

	est := data["estimate"].(map[string]interface{})
	want := usecases.Estimate(geospatial.HaversineKm(domain.Coordinate{Lat: 10, Lng: 106}, domain.Coordinate{Lat: 11, Lng: 106}), 60, 15000)
	assert.Equal(t, want.FeeEstimate, est["fee_estimate"])
	assert.Equal(t, "VND", est["currency"])
}

func TestGraphQL_Route(t *testing.T) {
	app := setupApp(makeDeps(storedRoutes(5)))

	data := graphQL(t, app, `{ route(id: 5) { id code origin { lat } } missing: route(id: 6) { id } }`)

	route := data["route"].(map[string]interface{})
	assert.Equal(t, float64(5), route["id"])
	assert.Equal(t, "R5", route["code"])
	assert.Nil(t, data["missing"])
}

func TestGraphQL_ResolvePathOutOfBounds(t *testing.T) {
	app := setupApp(makeDeps(withBounds(vietnam)))

	resp, err := app.Test(jsonRequest("POST", "/graphql", map[string]string{
		"query": `{ resolvePath(origin: {lat: 21.0285, lng: 105.8542}, destination: {lat: 13.7563, lng: 100.5018}) { source } }`,
	}), -1)
	require.NoError(t, err)

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	decode(t, resp, &result)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "destination is outside the service area")
}
