package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastWindow_WeekStarts(t *testing.T) {
	window := ForecastWindow{
		StartDate: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		Horizon:   3,
	}

	starts := window.WeekStarts()
	require.Len(t, starts, 3)
	assert.Equal(t, time.Date(2024, time.April, 7, 0, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, time.Date(2024, time.April, 14, 0, 0, 0, 0, time.UTC), starts[1])
	assert.Equal(t, time.Date(2024, time.April, 21, 0, 0, 0, 0, time.UTC), starts[2])
}

func TestForecastWindow_Years(t *testing.T) {
	t.Run("single year", func(t *testing.T) {
		window := ForecastWindow{
			StartDate: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			Horizon:   2,
		}
		assert.Equal(t, []int{2024}, window.Years())
	})

	t.Run("window end reaching the next year counts", func(t *testing.T) {
		// The only week runs 2023-12-31 through 2024-01-06.
		window := ForecastWindow{
			StartDate: time.Date(2023, time.December, 24, 0, 0, 0, 0, time.UTC),
			Horizon:   1,
		}
		assert.Equal(t, []int{2023, 2024}, window.Years())
	})

	t.Run("weeks entirely past the boundary", func(t *testing.T) {
		// Weeks start 2024-01-07 and 2024-01-14.
		window := ForecastWindow{
			StartDate: time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
			Horizon:   2,
		}
		assert.Equal(t, []int{2024}, window.Years())
	})
}
