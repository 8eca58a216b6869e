package mmm

import (
	"fmt"

	"github.com/mixtools/mixatlas/pkg/models/domain"
)

// MeanScaler divides each column by a divisor fitted at training time
// (the column mean of the training data). It is stateless: Transform never
// mutates the scaler and may be called concurrently.
type MeanScaler struct {
	Divisors []float64
}

func NewMeanScaler(divisors []float64) (*MeanScaler, error) {
	if len(divisors) == 0 {
		return nil, fmt.Errorf("mean scaler requires at least one divisor")
	}
	for i, d := range divisors {
		if d <= 0 {
			return nil, fmt.Errorf("mean scaler divisor %d must be positive, got %v", i, d)
		}
	}
	return &MeanScaler{Divisors: divisors}, nil
}

func (s *MeanScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Divisors) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Divisors), len(row))
	}
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v / s.Divisors[i]
	}
	return out, nil
}

func (s *MeanScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(rows))
	for i, row := range rows {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, scaled)
	}
	return out, nil
}

func (s *MeanScaler) InverseRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Divisors) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Divisors), len(row))
	}
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v * s.Divisors[i]
	}
	return out, nil
}

// TargetScaler maps the scalar KPI between original and model units.
type TargetScaler struct {
	Divisor float64
}

func NewTargetScaler(divisor float64) (*TargetScaler, error) {
	if divisor <= 0 {
		return nil, fmt.Errorf("target scaler divisor must be positive, got %v", divisor)
	}
	return &TargetScaler{Divisor: divisor}, nil
}

func (s *TargetScaler) Transform(v float64) float64 { return v / s.Divisor }
func (s *TargetScaler) Inverse(v float64) float64   { return v * s.Divisor }

// ColumnScaler scales covariate matrices with per-column divisors keyed by
// canonical column name. Columns the scaler was never fitted on pass through
// unchanged: the covariate column set depends on which holidays occur in the
// forecast window's years, so it can legitimately differ from training.
type ColumnScaler struct {
	Divisors map[string]float64
}

func NewColumnScaler(divisors map[string]float64) (*ColumnScaler, error) {
	for name, d := range divisors {
		if d <= 0 {
			return nil, fmt.Errorf("column scaler divisor for %q must be positive, got %v", name, d)
		}
	}
	return &ColumnScaler{Divisors: divisors}, nil
}

func (s *ColumnScaler) Transform(m domain.CovariateMatrix) (domain.CovariateMatrix, error) {
	divisors := make([]float64, len(m.Columns))
	for i, name := range m.Columns {
		divisors[i] = 1
		if d, ok := s.Divisors[name]; ok {
			divisors[i] = d
		}
	}

	out := domain.CovariateMatrix{
		Columns: append([]string(nil), m.Columns...),
		Rows:    make([][]float64, 0, len(m.Rows)),
	}
	for i, row := range m.Rows {
		if len(row) != len(m.Columns) {
			return domain.CovariateMatrix{}, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(m.Columns))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v / divisors[j]
		}
		out.Rows = append(out.Rows, scaled)
	}
	return out, nil
}
