package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Glx28/billigst-mat/config"
	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// MockService is a mock implementation of Service
type MockService struct {
	groups     []domain.GroupConfig
	history    map[string][]domain.Observation
	historyErr error
	report     *domain.RunReport
	runErr     error

	lastLimit int
	lastOpts  usecase.RunOptions
}

func (m *MockService) Groups() []domain.GroupConfig {
	return m.groups
}

func (m *MockService) Run(ctx context.Context, opts usecase.RunOptions) (*domain.RunReport, error) {
	m.lastOpts = opts
	return m.report, m.runErr
}

func (m *MockService) History(ctx context.Context, groupName string, limit int) ([]domain.Observation, error) {
	m.lastLimit = limit
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	obs, ok := m.history[groupName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupName)
	}
	return obs, nil
}

func newMockService() *MockService {
	threshold := 130.0
	return &MockService{
		groups: []domain.GroupConfig{
			{Name: "egg", DisplayName: "Egg", BaseUnit: domain.UnitPiece, IncludeAny: []string{"egg"}, TopN: 3},
			{Name: "kyllingfilet", DisplayName: "Kyllingfilet", BaseUnit: domain.UnitKilogram, IncludeAny: []string{"kyllingfilet"}, Threshold: &threshold, TopN: 3},
		},
		history: map[string][]domain.Observation{
			"kyllingfilet": {
				{GroupName: "kyllingfilet", ObservedAt: time.Date(2026, 10, 8, 6, 0, 0, 0, time.UTC), Rank: 1, StoreName: "Kiwi", ProductName: "Kyllingfilet", UnitPrice: 119.87, RawPrice: 89.9, BaseUnit: domain.UnitKilogram},
				{GroupName: "kyllingfilet", ObservedAt: time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC), Rank: 1, StoreName: "Spar", ProductName: "Kyllingfilet", UnitPrice: 150, RawPrice: 112.5, BaseUnit: domain.UnitKilogram},
			},
			"egg": {},
		},
		report: &domain.RunReport{
			StartedAt: time.Date(2026, 10, 8, 6, 0, 0, 0, time.UTC),
			Results: []domain.RankedResult{
				{GroupName: "egg", DisplayName: "Egg", BaseUnit: domain.UnitPiece, Top: []domain.DedupedOffer{}},
				{GroupName: "kyllingfilet", DisplayName: "Kyllingfilet", BaseUnit: domain.UnitKilogram, IsNewBest: true},
			},
			Summary: domain.NewRunSummary(),
		},
	}
}

// setupTestRouter creates a test router with default configuration
func setupTestRouter(service Service) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://dashboard.*", "http://localhost:3000"},
		},
	}

	handler := NewHandler(service, zerolog.Nop())
	return SetupRouter(cfg, handler, zerolog.Nop())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "billigst-mat" {
			t.Errorf("service = %v, want billigst-mat", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestListGroups(t *testing.T) {
	router := setupTestRouter(newMockService())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(2), response["count"])

	groups, ok := response["groups"].([]interface{})
	require.True(t, ok)
	first := groups[0].(map[string]interface{})
	second := groups[1].(map[string]interface{})
	assert.Equal(t, "egg", first["name"], "configured order is kept")
	assert.Equal(t, "kilogram", second["baseUnit"])
	assert.Equal(t, 130.0, second["threshold"])
}

func TestGetHistory(t *testing.T) {
	t.Run("returns observations newest first", func(t *testing.T) {
		svc := newMockService()
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups/kyllingfilet/history?limit=5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, svc.lastLimit)

		response := decode(t, w)
		assert.Equal(t, "kyllingfilet", response["group"])
		obs := response["observations"].([]interface{})
		require.Len(t, obs, 2)
		assert.Equal(t, "Kiwi", obs[0].(map[string]interface{})["storeName"])
	})

	t.Run("limit defaults to the store default", func(t *testing.T) {
		svc := newMockService()
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups/egg/history", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, svc.lastLimit)
	})

	t.Run("returns 404 for unknown group", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups/brod/history", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decode(t, w)["error"], "group not found")
	})

	t.Run("returns 400 for invalid limit", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		for _, limit := range []string{"abc", "0", "-3"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups/egg/history?limit="+limit, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
		}
	})

	t.Run("returns 503 when the history store fails", func(t *testing.T) {
		svc := newMockService()
		svc.historyErr = fmt.Errorf("%w: database is locked", domain.ErrSinkUnavailable)
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/groups/egg/history", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "database is locked")
	})
}

func TestTriggerRun(t *testing.T) {
	t.Run("returns the run report", func(t *testing.T) {
		svc := newMockService()
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Equal(t, float64(1), response["triggered"])
		assert.Equal(t, "2026-10-08T06:00:00Z", response["started_at"])
		assert.Len(t, response["results"], 2)
		assert.NotContains(t, response, "error")
		assert.Equal(t, usecase.RunOptions{}, svc.lastOpts)
	})

	t.Run("passes run options", func(t *testing.T) {
		svc := newMockService()
		router := setupTestRouter(svc)

		req := httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader(`{"skip_notify": true}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, svc.lastOpts.SkipNotify)
		assert.False(t, svc.lastOpts.DryRun)
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		req := httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader(`{invalid json}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 409 while a run is in progress", func(t *testing.T) {
		svc := newMockService()
		svc.report = nil
		svc.runErr = domain.ErrRunInProgress
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("reports notify failure with the results", func(t *testing.T) {
		svc := newMockService()
		svc.runErr = fmt.Errorf("%w: smtp down", domain.ErrNotifyFailure)
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Contains(t, response["error"], "smtp down")
		assert.Len(t, response["results"], 2)
	})

	t.Run("does not serve a partial report from an interrupted run", func(t *testing.T) {
		svc := newMockService()
		svc.report.Results = svc.report.Results[:1]
		svc.runErr = context.Canceled
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, 499, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("returns 504 when the run times out", func(t *testing.T) {
		svc := newMockService()
		svc.runErr = fmt.Errorf("ranking: %w", context.DeadlineExceeded)
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, "run timed out", decode(t, w)["error"])
	})

	t.Run("returns 500 for unexpected failures", func(t *testing.T) {
		svc := newMockService()
		svc.report = nil
		svc.runErr = errors.New("boom")
		router := setupTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal error", decode(t, w)["error"])
	})
}

func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for the dashboard", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://dashboard.example.no")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "https://dashboard.example.no", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("runs endpoint answers preflight for localhost", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		req := httptest.NewRequest("OPTIONS", "/api/v1/runs", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter(newMockService())

		for _, path := range []string{"/groups", "/runs", "/api/groups"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("GET %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}
