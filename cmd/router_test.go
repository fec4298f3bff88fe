package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/config"
	"github.com/dris-project/impact-engine/internal/disagg"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/report"
	"github.com/dris-project/impact-engine/internal/sector"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		AllowedOrigins: []string{"*"},
		RatePerSecond:  1000,
		RateBurst:      1000,
	}
}

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	cfg = &config.Config{
		Report: config.ReportConfig{
			AssessmentType:  "rapid",
			ConfidenceLevel: "medium",
			Currency:        "USD",
			PageSize:        10,
		},
	}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	log := zap.NewNop()
	resolver := sector.NewResolver(sector.NewStore(mock), log)
	filters := filter.NewBuilder(resolver, nil, log)
	env := &Env{
		Sectors: resolver,
		Filters: filters,
		Reports: report.NewBuilder(mock, filters, log),
		Disagg:  disagg.NewAggregator(mock, log),
		Log:     log,
	}
	return newRouter(env, testServerConfig()), mock
}

func TestHealthRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReportRoutesRequireTenant(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/reports/hazard-impact",
		"/api/v1/reports/most-damaging",
		"/api/v1/reports/effects",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), path)
		assert.False(t, body.Success)
		assert.Equal(t, "countryAccountsId is required", body.Error)
	}
}

func TestMostDamagingRouteDegradesInsideEnvelope(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(`COUNT\(DISTINCT de\.id\)`).
		WithArgs(int64(9)).
		WillReturnError(errors.New("store down"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/most-damaging?countryAccountsId=9", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                      `json:"success"`
		Data    report.MostDamagingReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Empty(t, body.Data.Events)
	assert.Equal(t, "report unavailable: event count failed", body.Data.Metadata.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectorTreeRouteUnknownIDIsEmpty(t *testing.T) {
	router, mock := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sectors/xyz/tree", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"sectorIds":[]}}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRejectsBurst(t *testing.T) {
	cfg = &config.Config{}
	env := &Env{Log: zap.NewNop()}
	router := newRouter(env, config.ServerConfig{
		AllowedOrigins: []string{"*"},
		RatePerSecond:  1,
		RateBurst:      1,
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
