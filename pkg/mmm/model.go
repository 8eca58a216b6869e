package mmm

import (
	"fmt"
	"math"

	"github.com/mixtools/mixatlas/pkg/models/domain"
)

// Params holds the fitted parameters of a media mix model. Media spend
// enters through a geometric adstock (carryover) followed by a Hill
// saturation curve; holiday covariates enter linearly, keyed by canonical
// column name so the model tolerates covariate column sets that differ
// from the training window.
type Params struct {
	Intercept           float64
	Trend               float64
	MediaCoefficients   []float64
	AdstockRates        []float64
	HillSlopes          []float64
	HillHalfSaturations []float64
	ExtraCoefficients   map[string]float64
	// MediaMeans is the historical per-period media volume per channel, in
	// unscaled media units. The solver derives the previous allocation from it.
	MediaMeans []float64
}

// MediaMixModel is a fitted model. It is read-only after construction and
// safe for concurrent use.
type MediaMixModel struct {
	channels []string
	params   Params
}

func NewMediaMixModel(channels []string, params Params) (*MediaMixModel, error) {
	n := len(channels)
	if n == 0 {
		return nil, fmt.Errorf("model requires at least one media channel")
	}
	for name, got := range map[string]int{
		"media_coefficients":    len(params.MediaCoefficients),
		"adstock_rates":         len(params.AdstockRates),
		"hill_slopes":           len(params.HillSlopes),
		"hill_half_saturations": len(params.HillHalfSaturations),
		"media_means":           len(params.MediaMeans),
	} {
		if got != n {
			return nil, fmt.Errorf("%s has %d entries for %d channels", name, got, n)
		}
	}
	for i, r := range params.AdstockRates {
		if r < 0 || r >= 1 {
			return nil, fmt.Errorf("adstock rate %d out of [0,1): %v", i, r)
		}
	}
	for i, k := range params.HillHalfSaturations {
		if k <= 0 {
			return nil, fmt.Errorf("hill half saturation %d must be positive: %v", i, k)
		}
	}
	for i, s := range params.HillSlopes {
		if s <= 0 {
			return nil, fmt.Errorf("hill slope %d must be positive: %v", i, s)
		}
	}
	return &MediaMixModel{channels: append([]string(nil), channels...), params: params}, nil
}

// Channels returns the channel names in model order. Index i of every media
// vector passed to or returned from the model refers to Channels()[i].
func (m *MediaMixModel) Channels() []string {
	return append([]string(nil), m.channels...)
}

// MediaMeans returns the historical per-period media volume per channel.
func (m *MediaMixModel) MediaMeans() []float64 {
	return append([]float64(nil), m.params.MediaMeans...)
}

// PredictTotal returns the total KPI over the horizon, in scaled target
// units. scaledMedia is one row per period in scaled media units; extra is
// the scaled covariate matrix with either zero rows or one per period.
func (m *MediaMixModel) PredictTotal(scaledMedia [][]float64, extra domain.CovariateMatrix) (float64, error) {
	if len(scaledMedia) == 0 {
		return 0, fmt.Errorf("prediction requires at least one period")
	}
	if len(extra.Rows) != 0 && len(extra.Rows) != len(scaledMedia) {
		return 0, fmt.Errorf("covariate rows (%d) do not match periods (%d)", len(extra.Rows), len(scaledMedia))
	}

	carry := make([]float64, len(m.channels))
	var total float64
	for t, row := range scaledMedia {
		if len(row) != len(m.channels) {
			return 0, fmt.Errorf("period %d has %d media values for %d channels", t, len(row), len(m.channels))
		}

		y := m.params.Intercept + m.params.Trend*float64(t+1)
		for c, spend := range row {
			carry[c] = spend + m.params.AdstockRates[c]*carry[c]
			y += m.params.MediaCoefficients[c] * hill(carry[c], m.params.HillSlopes[c], m.params.HillHalfSaturations[c])
		}
		if len(extra.Rows) != 0 {
			for j, name := range extra.Columns {
				if coef, ok := m.params.ExtraCoefficients[name]; ok {
					y += coef * extra.Rows[t][j]
				}
			}
		}
		total += y
	}
	return total, nil
}

// hill is the saturation curve x^s / (x^s + k^s), 0 at x=0 and 1 in the limit.
func hill(x, slope, halfSat float64) float64 {
	if x <= 0 {
		return 0
	}
	xs := math.Pow(x, slope)
	return xs / (xs + math.Pow(halfSat, slope))
}
