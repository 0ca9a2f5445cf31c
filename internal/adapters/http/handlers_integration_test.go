//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/fleetroute/internal/adapters/http"
	"github.com/samirrijal/fleetroute/internal/adapters/postgres"
	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
	"github.com/samirrijal/fleetroute/internal/pkg/config"
)

// setupTestDB connects to the database named by the FLEETROUTE_DATABASE_* settings.
// The schema from migrations/ must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("fleetroute-test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// setupTestDeps wires the real repository with a fallback-only chain so no provider is called.
func setupTestDeps(db *postgres.DB) *handler.Dependencies {
	chain := usecases.NewProviderChain(nil, nil, nil, usecases.ChainConfig{})
	svc := usecases.NewRouteService(postgres.NewRouteRepo(db), chain, nil, nil,
		usecases.EstimateConfig{AvgSpeedKmh: 60, RatePerKm: 15000})
	return &handler.Dependencies{Routes: svc, DB: db, Currency: "VND"}
}

// seedTestRoute inserts an active route and returns its ID.
func seedTestRoute(t *testing.T, db *postgres.DB, code string, rate float64) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO dispatch_routes (code, name, origin_lat, origin_lng, dest_lat, dest_lng, rate_per_km)
		VALUES ($1, $1, 21.0285, 105.8542, 20.8449, 106.6881, $2)
		ON CONFLICT (code) DO UPDATE SET rate_per_km = EXCLUDED.rate_per_km, active = TRUE
		RETURNING id
	`, code, rate).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestListRoutes_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	seedTestRoute(t, db, "TEST-LIST", 0)
	app := setupApp(setupTestDeps(db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/routes", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result struct {
		Data       []domain.Route      `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.GreaterOrEqual(t, result.Pagination.Total, 1)
}

func TestEstimateRoute_Integration_PersistsEstimate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	code := "TEST-EST-" + time.Now().Format("20060102150405")
	id := seedTestRoute(t, db, code, 18000)
	app := setupApp(setupTestDeps(db))

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/routes/"+strconv.FormatInt(id, 10)+"/estimate", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	route, err := postgres.NewRouteRepo(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, route.DistanceKm)
	require.NotNil(t, route.FeeEstimate)
	assert.Equal(t, "fallback", route.PathSource)
	assert.Equal(t, usecases.Estimate(*route.DistanceKm, 60, 18000).FeeEstimate, *route.FeeEstimate)
	assert.NotNil(t, route.EstimatedAt)
}

func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	app := setupApp(setupTestDeps(setupTestDB(t)))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
