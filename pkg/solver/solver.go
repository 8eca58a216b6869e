package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/mixtools/mixatlas/pkg/models/domain"
	"gonum.org/v1/gonum/floats"
)

// ErrInfeasible reports that the total budget cannot be reached with every
// channel held inside its relative bounds.
var ErrInfeasible = errors.New("budget not reachable within channel bounds")

// Model is the view of a fitted media mix model the solver needs: channel
// ordering, the historical per-period media volumes, and a forward
// prediction over scaled media and covariates.
type Model interface {
	Channels() []string
	MediaMeans() []float64
	PredictTotal(scaledMedia [][]float64, extra domain.CovariateMatrix) (float64, error)
}

// MediaScaler maps a per-channel media row into the model's internal units.
type MediaScaler interface {
	TransformRow(row []float64) ([]float64, error)
}

// TargetScaler maps the model's KPI output back to original units.
type TargetScaler interface {
	Inverse(v float64) float64
}

// Request carries everything one optimization needs. The solver holds no
// state between calls.
type Request struct {
	Horizon int
	Model   Model
	// Extra is the scaled covariate matrix, one row per period.
	Extra  domain.CovariateMatrix
	Budget float64
	// Prices aligns 1:1 with Model.Channels(): Prices[i] converts one media
	// unit of channel i into currency.
	Prices []float64
	Media  MediaScaler
	Target TargetScaler
	// LowerPct and UpperPct bound each channel's media volume relative to
	// its previous allocation: [(1-LowerPct)*prev, (1+UpperPct)*prev].
	LowerPct float64
	UpperPct float64
	// Seed fixes the pair-exchange ordering so runs are reproducible.
	Seed int64
}

// Solution is the optimized per-channel media volume over the horizon and
// the KPI it achieves, in original target units.
type Solution struct {
	X   []float64
	KPI float64
}

// Result bundles the solution with the baseline the caller compares against.
type Result struct {
	Solution    Solution
	BaselineKPI float64
	// PreviousAllocation is the historical media volume per channel over the
	// horizon, in the same units as Solution.X.
	PreviousAllocation []float64
}

// Optimizer is the constrained budget solver contract.
type Optimizer interface {
	FindOptimalBudgets(ctx context.Context, req Request) (*Result, error)
}

type optimizer struct {
	maxPasses int
	// steps are the currency fractions of the budget tried as pairwise
	// exchange sizes, largest first.
	steps []float64
}

// New returns the default optimizer: projected pairwise currency exchange
// with a shrinking step schedule. Exchanging currency between two channels
// keeps the budget constraint satisfied exactly, so only the box bounds need
// checking per move.
func New() Optimizer {
	return &optimizer{
		maxPasses: 40,
		steps:     []float64{0.10, 0.05, 0.02, 0.01, 0.005},
	}
}

func (o *optimizer) FindOptimalBudgets(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	n := len(req.Prices)
	prev := req.Model.MediaMeans()
	floats.Scale(float64(req.Horizon), prev)

	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range prev {
		lower[i] = prev[i] * (1 - req.LowerPct)
		upper[i] = prev[i] * (1 + req.UpperPct)
	}

	minSpend := floats.Dot(req.Prices, lower)
	maxSpend := floats.Dot(req.Prices, upper)
	if req.Budget < minSpend || req.Budget > maxSpend {
		return nil, fmt.Errorf("%w: budget %.2f outside reachable spend [%.2f, %.2f]",
			ErrInfeasible, req.Budget, minSpend, maxSpend)
	}

	baselineKPI, err := o.evaluate(req, prev)
	if err != nil {
		return nil, fmt.Errorf("baseline prediction failed: %w", err)
	}

	x, err := o.feasibleStart(req, prev, lower, upper)
	if err != nil {
		return nil, err
	}

	best, bestKPI, err := o.improve(ctx, req, x, lower, upper)
	if err != nil {
		return nil, err
	}

	return &Result{
		Solution:           Solution{X: best, KPI: bestKPI},
		BaselineKPI:        baselineKPI,
		PreviousAllocation: prev,
	}, nil
}

func validate(req Request) error {
	if req.Model == nil {
		return fmt.Errorf("solver requires a model")
	}
	if req.Media == nil || req.Target == nil {
		return fmt.Errorf("solver requires media and target scalers")
	}
	if req.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1, got %d", req.Horizon)
	}
	if req.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %v", req.Budget)
	}
	if req.LowerPct < 0 || req.LowerPct > 1 {
		return fmt.Errorf("lower bound fraction out of [0,1]: %v", req.LowerPct)
	}
	if req.UpperPct < 0 {
		return fmt.Errorf("upper bound fraction must be non-negative: %v", req.UpperPct)
	}
	if got, want := len(req.Prices), len(req.Model.Channels()); got != want {
		return fmt.Errorf("got %d prices for %d model channels", got, want)
	}
	if len(req.Extra.Rows) != 0 && len(req.Extra.Rows) != req.Horizon {
		return fmt.Errorf("covariate matrix has %d rows for horizon %d", len(req.Extra.Rows), req.Horizon)
	}
	return nil
}

// evaluate predicts the KPI for a per-channel media volume x spread evenly
// over the horizon, returned in original target units.
func (o *optimizer) evaluate(req Request, x []float64) (float64, error) {
	perPeriod := make([]float64, len(x))
	for i, v := range x {
		perPeriod[i] = v / float64(req.Horizon)
	}
	scaled, err := req.Media.TransformRow(perPeriod)
	if err != nil {
		return 0, err
	}
	rows := make([][]float64, req.Horizon)
	for t := range rows {
		rows[t] = scaled
	}
	kpi, err := req.Model.PredictTotal(rows, req.Extra)
	if err != nil {
		return 0, err
	}
	return req.Target.Inverse(kpi), nil
}

// feasibleStart scales the previous allocation to the requested budget, then
// repairs bound violations by redistributing the residual across channels
// with remaining slack.
func (o *optimizer) feasibleStart(req Request, prev, lower, upper []float64) ([]float64, error) {
	x := append([]float64(nil), prev...)
	if spend := floats.Dot(req.Prices, x); spend > 0 {
		floats.Scale(req.Budget/spend, x)
	}
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lower[i]), upper[i])
	}

	tolerance := req.Budget * 1e-9
	for iter := 0; iter < 1000; iter++ {
		residual := req.Budget - floats.Dot(req.Prices, x)
		if math.Abs(residual) <= tolerance {
			return x, nil
		}
		var slack float64
		for i := range x {
			if residual > 0 {
				slack += (upper[i] - x[i]) * req.Prices[i]
			} else {
				slack += (x[i] - lower[i]) * req.Prices[i]
			}
		}
		if slack <= 0 {
			break
		}
		for i := range x {
			if residual > 0 {
				x[i] += (upper[i] - x[i]) * residual / slack
				x[i] = math.Min(x[i], upper[i])
			} else {
				x[i] += (x[i] - lower[i]) * residual / slack
				x[i] = math.Max(x[i], lower[i])
			}
		}
	}
	return nil, fmt.Errorf("%w: could not project start point onto budget", ErrInfeasible)
}

// improve runs seeded pairwise currency exchanges: move a fixed slice of the
// budget from channel i to channel j and keep the move when the predicted
// KPI increases. The step shrinks once a full pass yields no improvement.
func (o *optimizer) improve(ctx context.Context, req Request, x, lower, upper []float64) ([]float64, float64, error) {
	bestKPI, err := o.evaluate(req, x)
	if err != nil {
		return nil, 0, fmt.Errorf("prediction failed: %w", err)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	n := len(x)
	pairs := make([][2]int, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}

	for _, step := range o.steps {
		delta := req.Budget * step
		for pass := 0; pass < o.maxPasses; pass++ {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			rng.Shuffle(len(pairs), func(a, b int) { pairs[a], pairs[b] = pairs[b], pairs[a] })

			improved := false
			for _, p := range pairs {
				i, j := p[0], p[1]
				oldI, oldJ := x[i], x[j]
				xi := oldI - delta/req.Prices[i]
				xj := oldJ + delta/req.Prices[j]
				if xi < lower[i] || xj > upper[j] {
					continue
				}
				x[i], x[j] = xi, xj
				kpi, err := o.evaluate(req, x)
				if err != nil {
					return nil, 0, fmt.Errorf("prediction failed: %w", err)
				}
				if kpi > bestKPI {
					bestKPI = kpi
					improved = true
				} else {
					x[i], x[j] = oldI, oldJ
				}
			}
			if !improved {
				break
			}
		}
	}
	return x, bestKPI, nil
}
