package allocation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/mixtools/mixatlas/pkg/mmm"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/services/calendar"
	"github.com/mixtools/mixatlas/pkg/solver"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

const (
	// BoundsLowerPct and BoundsUpperPct are the fixed relative reallocation
	// bounds applied per channel around its previous spend. They are
	// deliberately conservative: the model is only trusted near the spend
	// levels it was trained on, so a single run never moves a channel far
	// from its historical allocation.
	BoundsLowerPct = 0.05
	BoundsUpperPct = 0.95

	// Seed pins any stochastic component inside the solver so that the same
	// model, window and budget always produce the same allocation.
	Seed int64 = 1
)

// Controller drives one budget allocation run: it rebuilds the holiday
// covariates for the forecast window, invokes the constrained solver, and
// reconciles the solver's media-unit vectors with channel prices into a
// currency comparison table. It holds no per-request state.
type Controller struct {
	calendar  *calendar.Builder
	optimizer solver.Optimizer
}

func NewController(builder *calendar.Builder, optimizer solver.Optimizer) *Controller {
	return &Controller{calendar: builder, optimizer: optimizer}
}

// Allocate computes the optimal split of budget across the bundle's
// channels for the window and compares it against the previous allocation.
// Every failure propagates: there is no retry and no partial table.
func (c *Controller) Allocate(
	ctx context.Context,
	bundle *mmm.Bundle,
	window domain.ForecastWindow,
	budget float64,
) (*domain.AllocationReport, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("budget must be positive, got %v", budget)
	}
	if window.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", window.Horizon)
	}
	if got, want := len(bundle.Prices), len(bundle.Channels); got != want {
		return nil, fmt.Errorf("bundle %q has %d prices for %d channels", bundle.Name, got, want)
	}

	covariates, err := c.calendar.BuildScaled(window, bundle.Extra)
	if err != nil {
		return nil, fmt.Errorf("building covariates for %q: %w", bundle.Name, err)
	}

	result, err := c.optimizer.FindOptimalBudgets(ctx, solver.Request{
		Horizon:  window.Horizon,
		Model:    bundle.Model,
		Extra:    covariates,
		Budget:   budget,
		Prices:   bundle.Prices,
		Media:    bundle.Media,
		Target:   bundle.Target,
		LowerPct: BoundsLowerPct,
		UpperPct: BoundsUpperPct,
		Seed:     Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("optimizing budget for %q: %w", bundle.Name, err)
	}

	report := &domain.AllocationReport{
		RunID:     uuid.NewString(),
		Model:     bundle.Name,
		Window:    window,
		Budget:    budget,
		Table:     buildTable(bundle.Channels, bundle.Prices, result.PreviousAllocation, result.Solution.X),
		KPIBefore: result.BaselineKPI,
		KPIAfter:  result.Solution.KPI,
	}

	zerolog.Ctx(ctx).Info().
		Str("run_id", report.RunID).
		Str("model", bundle.Name).
		Int("weeks", window.Horizon).
		Float64("budget", budget).
		Float64("kpi_before", report.KPIBefore).
		Float64("kpi_after", report.KPIAfter).
		Msg("allocation computed")

	return report, nil
}

// buildTable converts both media-unit vectors to currency, rounds each cell
// to 2 decimals for display, and appends the Total row. Totals are summed
// over the unrounded columns and rounded once, so the table's total never
// accumulates per-channel rounding error.
func buildTable(channels []string, prices, previous, optimal []float64) domain.AllocationTable {
	previousCurrency := make([]float64, len(channels))
	optimalCurrency := make([]float64, len(channels))
	for i := range channels {
		previousCurrency[i] = prices[i] * previous[i]
		optimalCurrency[i] = prices[i] * optimal[i]
	}

	table := domain.AllocationTable{Rows: make([]domain.AllocationRow, 0, len(channels))}
	for i, channel := range channels {
		table.Rows = append(table.Rows, domain.AllocationRow{
			Channel:  channel,
			Previous: round2(previousCurrency[i]),
			Optimal:  round2(optimalCurrency[i]),
		})
	}
	table.Total = domain.AllocationRow{
		Channel:  domain.TotalRowLabel,
		Previous: round2(floats.Sum(previousCurrency)),
		Optimal:  round2(floats.Sum(optimalCurrency)),
	}
	return table
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
