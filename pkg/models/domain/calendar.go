package domain

import "time"

// ForecastWindow describes the future horizon an allocation run covers.
// StartDate is the last date of the training data; the window itself is the
// Horizon week-start timestamps that follow it.
type ForecastWindow struct {
	StartDate time.Time
	Horizon   int
}

// WeekStarts returns the Horizon consecutive week-start timestamps
// StartDate + k weeks for k = 1..Horizon, in ascending order. Row order of
// every covariate matrix derived from this window follows this order.
func (w ForecastWindow) WeekStarts() []time.Time {
	starts := make([]time.Time, 0, w.Horizon)
	for k := 1; k <= w.Horizon; k++ {
		starts = append(starts, w.StartDate.AddDate(0, 0, 7*k))
	}
	return starts
}

// Years returns the distinct calendar years touched by the window, in
// ascending order. Both the week-start date and the last day of each 7-day
// window count; a week starting in late December can reach into January.
func (w ForecastWindow) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, start := range w.WeekStarts() {
		for _, d := range []time.Time{start, start.AddDate(0, 0, 6)} {
			if y := d.Year(); !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	return years
}

// HolidayOccurrence is a single holiday date with its raw (uncanonicalized)
// label, as returned by a holiday source.
type HolidayOccurrence struct {
	Date time.Time
	Name string
}

// CovariateMatrix is an ordered set of per-week covariate rows. Columns are
// canonical feature names; Rows[i][j] is the value of Columns[j] for week i.
// The same shape carries both raw indicators and their scaled form.
type CovariateMatrix struct {
	Columns []string
	Rows    [][]float64
}
