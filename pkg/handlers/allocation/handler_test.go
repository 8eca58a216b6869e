package allocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mixtools/mixatlas/pkg/mmm"
	"github.com/mixtools/mixatlas/pkg/models/api"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/models/store"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) ListModels(ctx context.Context) ([]domain.ModelSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ModelSummary), args.Error(1)
}

func (m *mockExplorer) GetBundle(ctx context.Context, name string) (*mmm.Bundle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mmm.Bundle), args.Error(1)
}

type mockAllocator struct {
	mock.Mock
}

func (m *mockAllocator) Allocate(
	ctx context.Context,
	bundle *mmm.Bundle,
	window domain.ForecastWindow,
	budget float64,
) (*domain.AllocationReport, error) {
	args := m.Called(ctx, bundle, window, budget)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AllocationReport), args.Error(1)
}

type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) Add(ctx context.Context, run store.AllocationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockRunStore) List(ctx context.Context, limit int) ([]store.AllocationRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.AllocationRun), args.Error(1)
}

func setupRouter(explorer *mockExplorer, allocator *mockAllocator, runs *mockRunStore) *chi.Mux {
	handler := NewHandler(explorer, allocator, runs)
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/models", handler.ListModels)
		r.Get("/models/{model}", handler.GetModel)
		r.Post("/models/{model}/allocate", handler.Allocate)
		r.Get("/runs", handler.ListRuns)
	})
	return router
}

func testBundle(t *testing.T) *mmm.Bundle {
	t.Helper()

	media, err := mmm.NewMeanScaler([]float64{1, 1})
	require.NoError(t, err)
	target, err := mmm.NewTargetScaler(1)
	require.NoError(t, err)
	extra, err := mmm.NewColumnScaler(nil)
	require.NoError(t, err)
	model, err := mmm.NewMediaMixModel([]string{"tv", "search"}, mmm.Params{
		MediaCoefficients:   []float64{1, 1},
		AdstockRates:        []float64{0, 0},
		HillSlopes:          []float64{1, 1},
		HillHalfSaturations: []float64{1, 1},
		MediaMeans:          []float64{10, 4},
	})
	require.NoError(t, err)

	return &mmm.Bundle{
		Name:        "spring_campaign",
		TrainedFrom: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		TrainedTo:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		Channels:    []string{"tv", "search"},
		Prices:      []float64{2, 5},
		Media:       media,
		Target:      target,
		Extra:       extra,
		Model:       model,
	}
}

func testReport(bundle *mmm.Bundle, weeks int) *domain.AllocationReport {
	return &domain.AllocationReport{
		RunID:  "run-1",
		Model:  bundle.Name,
		Window: domain.ForecastWindow{StartDate: bundle.TrainedTo, Horizon: weeks},
		Budget: 41,
		Table: domain.AllocationTable{
			Rows: []domain.AllocationRow{
				{Channel: "tv", Previous: 20, Optimal: 16},
				{Channel: "search", Previous: 20, Optimal: 25},
			},
			Total: domain.AllocationRow{Channel: "Total", Previous: 40, Optimal: 41},
		},
		KPIBefore: 110.25,
		KPIAfter:  120.5,
	}
}

func allocateBody(t *testing.T, weeks int, budget float64) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(api.AllocateRequest{Weeks: weeks, Budget: budget})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestListModels(t *testing.T) {
	t.Run("successful response", func(t *testing.T) {
		explorer := &mockExplorer{}
		explorer.On("ListModels", mock.Anything).Return([]domain.ModelSummary{
			{
				Name:        "spring_campaign",
				Channels:    []string{"tv", "search"},
				TrainedFrom: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
				TrainedTo:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			},
		}, nil)

		router := setupRouter(explorer, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var models []api.Model
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&models))
		require.Len(t, models, 1)
		assert.Equal(t, "spring_campaign", models[0].Name)
		assert.Equal(t, "2024-03-31", models[0].TrainedTo)
	})

	t.Run("registry failure", func(t *testing.T) {
		explorer := &mockExplorer{}
		explorer.On("ListModels", mock.Anything).Return(nil, fmt.Errorf("scan failed"))

		router := setupRouter(explorer, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetModel(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		bundle := testBundle(t)
		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "spring_campaign").Return(bundle, nil)

		router := setupRouter(explorer, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models/spring_campaign", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var model api.Model
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&model))
		assert.Equal(t, []string{"tv", "search"}, model.Channels)
	})

	t.Run("unknown model", func(t *testing.T) {
		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "nope").Return(nil, registry.ErrModelNotFound)

		router := setupRouter(explorer, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAllocate(t *testing.T) {
	t.Run("successful allocation", func(t *testing.T) {
		bundle := testBundle(t)
		report := testReport(bundle, 4)

		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "spring_campaign").Return(bundle, nil)

		allocator := &mockAllocator{}
		allocator.On("Allocate", mock.Anything, bundle,
			domain.ForecastWindow{StartDate: bundle.TrainedTo, Horizon: 4}, 41.0).
			Return(report, nil)

		runs := &mockRunStore{}
		runs.On("Add", mock.Anything, mock.Anything).Return(nil)

		router := setupRouter(explorer, allocator, runs)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate", allocateBody(t, 4, 41)))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.AllocationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "run-1", resp.RunID)
		assert.Equal(t, 110.25, resp.KPIWithoutOptimization)
		assert.Equal(t, 120.5, resp.KPIWithOptimization)

		require.Len(t, resp.Table, 3)
		assert.Equal(t, api.AllocationRow{Media: "tv", PreviousAllocation: 20, OptimalAllocation: 16}, resp.Table[0])
		assert.Equal(t, api.AllocationRow{Media: "Total", PreviousAllocation: 40, OptimalAllocation: 41}, resp.Table[2])

		runs.AssertExpectations(t)
	})

	t.Run("run store failure does not fail the request", func(t *testing.T) {
		bundle := testBundle(t)
		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "spring_campaign").Return(bundle, nil)

		allocator := &mockAllocator{}
		allocator.On("Allocate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(testReport(bundle, 4), nil)

		runs := &mockRunStore{}
		runs.On("Add", mock.Anything, mock.Anything).Return(fmt.Errorf("db locked"))

		router := setupRouter(explorer, allocator, runs)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate", allocateBody(t, 4, 41)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		router := setupRouter(&mockExplorer{}, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("weeks above maximum", func(t *testing.T) {
		router := setupRouter(&mockExplorer{}, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate",
			allocateBody(t, domain.MaxForecastWeeks+1, 41)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-positive budget", func(t *testing.T) {
		router := setupRouter(&mockExplorer{}, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate", allocateBody(t, 4, 0)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown model", func(t *testing.T) {
		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "nope").Return(nil, registry.ErrModelNotFound)

		router := setupRouter(explorer, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/nope/allocate", allocateBody(t, 4, 41)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("infeasible budget", func(t *testing.T) {
		bundle := testBundle(t)
		explorer := &mockExplorer{}
		explorer.On("GetBundle", mock.Anything, "spring_campaign").Return(bundle, nil)

		allocator := &mockAllocator{}
		allocator.On("Allocate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("optimizing: %w", solver.ErrInfeasible))

		router := setupRouter(explorer, allocator, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/v1/models/spring_campaign/allocate", allocateBody(t, 4, 1000000)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp api.Error
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Error)
	})
}

func TestListRuns(t *testing.T) {
	t.Run("successful response", func(t *testing.T) {
		runs := &mockRunStore{}
		runs.On("List", mock.Anything, 20).Return([]store.AllocationRun{
			{
				ID:        "run-1",
				Model:     "spring_campaign",
				Weeks:     4,
				Budget:    41,
				CreatedAt: time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
			},
		}, nil)

		router := setupRouter(&mockExplorer{}, &mockAllocator{}, runs)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp []api.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "run-1", resp[0].ID)
		assert.Equal(t, "2026-08-01T12:00:00Z", resp[0].CreatedAt)
	})

	t.Run("custom limit", func(t *testing.T) {
		runs := &mockRunStore{}
		runs.On("List", mock.Anything, 5).Return([]store.AllocationRun{}, nil)

		router := setupRouter(&mockExplorer{}, &mockAllocator{}, runs)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=5", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		runs.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		router := setupRouter(&mockExplorer{}, &mockAllocator{}, &mockRunStore{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=zero", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		runs := &mockRunStore{}
		runs.On("List", mock.Anything, 20).Return(nil, fmt.Errorf("db gone"))

		router := setupRouter(&mockExplorer{}, &mockAllocator{}, runs)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
