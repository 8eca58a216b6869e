package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mixtools/mixatlas/pkg/adapters"
	"github.com/mixtools/mixatlas/pkg/mmm"
	"github.com/mixtools/mixatlas/pkg/models/api"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/services/calendar"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/solver"
	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/rs/zerolog"
)

const defaultRunsLimit = 20

// Allocator runs one budget optimization against a loaded bundle.
type Allocator interface {
	Allocate(ctx context.Context, bundle *mmm.Bundle, window domain.ForecastWindow, budget float64) (*domain.AllocationReport, error)
}

type Handler struct {
	registry  registry.Explorer
	allocator Allocator
	runs      runs.Store
}

func NewHandler(reg registry.Explorer, allocator Allocator, runStore runs.Store) *Handler {
	return &Handler{registry: reg, allocator: allocator, runs: runStore}
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.registry.ListModels(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to list models")
		return
	}

	response := make([]api.Model, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, adapters.MapModelSummaryDomainToApi(s))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "model")

	bundle, err := h.registry.GetBundle(ctx, name)
	if err != nil {
		if errors.Is(err, registry.ErrModelNotFound) {
			writeError(ctx, w, http.StatusNotFound, "unknown model "+name)
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("model", name).Msg("failed to load bundle")
		writeError(ctx, w, http.StatusInternalServerError, "failed to load model")
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapModelSummaryDomainToApi(bundle.Summary()))
}

// Allocate runs the budget allocator for one model. Request parameters are
// validated here; anything that fails past this point is a complete
// failure, never a partial table.
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	name := chi.URLParam(r, "model")

	var req api.AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Weeks < 1 || req.Weeks > domain.MaxForecastWeeks {
		writeError(ctx, w, http.StatusBadRequest, "weeks must be between 1 and "+strconv.Itoa(domain.MaxForecastWeeks))
		return
	}
	if req.Budget <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "budget must be positive")
		return
	}

	bundle, err := h.registry.GetBundle(ctx, name)
	if err != nil {
		if errors.Is(err, registry.ErrModelNotFound) {
			writeError(ctx, w, http.StatusNotFound, "unknown model "+name)
			return
		}
		logger.Error().Err(err).Str("model", name).Msg("failed to load bundle")
		writeError(ctx, w, http.StatusInternalServerError, "failed to load model")
		return
	}

	window := domain.ForecastWindow{StartDate: bundle.TrainedTo, Horizon: req.Weeks}
	report, err := h.allocator.Allocate(ctx, bundle, window, req.Budget)
	if err != nil {
		logger.Error().Err(err).Str("model", name).Msg("allocation failed")
		switch {
		case errors.Is(err, solver.ErrInfeasible):
			writeError(ctx, w, http.StatusUnprocessableEntity, "budget is not reachable within the channel bounds")
		case errors.Is(err, calendar.ErrNoHolidayData):
			writeError(ctx, w, http.StatusInternalServerError, "holiday calendar unavailable for the forecast window")
		default:
			writeError(ctx, w, http.StatusInternalServerError, "allocation failed")
		}
		return
	}

	if err := h.runs.Add(ctx, adapters.MapAllocationReportToStoreRun(report, time.Now().UTC())); err != nil {
		// The allocation itself succeeded; history is best-effort.
		logger.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to record allocation run")
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapAllocationReportDomainToApi(report))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.runs.List(ctx, limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list allocation runs")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	response := make([]api.Run, 0, len(records))
	for _, record := range records {
		response = append(response, adapters.MapStoreRunToApi(record))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, api.Error{Error: message})
}
