package mmm

import (
	"testing"

	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanScaler(t *testing.T) {
	t.Run("rejects empty divisors", func(t *testing.T) {
		_, err := NewMeanScaler(nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive divisors", func(t *testing.T) {
		_, err := NewMeanScaler([]float64{2, 0})
		assert.Error(t, err)
	})

	t.Run("transform divides per column", func(t *testing.T) {
		s, err := NewMeanScaler([]float64{2, 4})
		require.NoError(t, err)

		out, err := s.TransformRow([]float64{10, 8})
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 2}, out)
	})

	t.Run("inverse undoes transform", func(t *testing.T) {
		s, err := NewMeanScaler([]float64{2, 4})
		require.NoError(t, err)

		scaled, err := s.TransformRow([]float64{10, 8})
		require.NoError(t, err)
		back, err := s.InverseRow(scaled)
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 8}, back)
	})

	t.Run("row length mismatch", func(t *testing.T) {
		s, err := NewMeanScaler([]float64{2, 4})
		require.NoError(t, err)

		_, err = s.TransformRow([]float64{1})
		assert.Error(t, err)
	})

	t.Run("transform batches rows", func(t *testing.T) {
		s, err := NewMeanScaler([]float64{2})
		require.NoError(t, err)

		out, err := s.Transform([][]float64{{2}, {4}})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1}, {2}}, out)
	})
}

func TestTargetScaler(t *testing.T) {
	t.Run("rejects non-positive divisor", func(t *testing.T) {
		_, err := NewTargetScaler(0)
		assert.Error(t, err)
	})

	t.Run("transform and inverse are reciprocal", func(t *testing.T) {
		s, err := NewTargetScaler(100)
		require.NoError(t, err)

		assert.Equal(t, 0.5, s.Transform(50))
		assert.Equal(t, 50.0, s.Inverse(s.Transform(50)))
	})
}

func TestColumnScaler(t *testing.T) {
	t.Run("rejects non-positive divisors", func(t *testing.T) {
		_, err := NewColumnScaler(map[string]float64{"hldy_christmas_day": -1})
		assert.Error(t, err)
	})

	t.Run("scales known columns and passes unknown through", func(t *testing.T) {
		s, err := NewColumnScaler(map[string]float64{"hldy_christmas_day": 2})
		require.NoError(t, err)

		out, err := s.Transform(domain.CovariateMatrix{
			Columns: []string{"hldy_christmas_day", "hldy_juneteenth"},
			Rows:    [][]float64{{1, 1}, {0, 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0.5, 1}, {0, 1}}, out.Rows)
	})

	t.Run("ragged rows rejected", func(t *testing.T) {
		s, err := NewColumnScaler(nil)
		require.NoError(t, err)

		_, err = s.Transform(domain.CovariateMatrix{
			Columns: []string{"hldy_christmas_day"},
			Rows:    [][]float64{{1, 2}},
		})
		assert.Error(t, err)
	})

	t.Run("input matrix left untouched", func(t *testing.T) {
		s, err := NewColumnScaler(map[string]float64{"hldy_christmas_day": 2})
		require.NoError(t, err)

		in := domain.CovariateMatrix{
			Columns: []string{"hldy_christmas_day"},
			Rows:    [][]float64{{1}},
		}
		_, err = s.Transform(in)
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1}}, in.Rows)
	})
}
