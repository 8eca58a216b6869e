package domain

import "time"

// MaxForecastWeeks caps the horizon at the request boundary (web and CLI).
// The covariate builder itself accepts any positive horizon; the cap is a
// product decision about how far ahead the model is trusted.
const MaxForecastWeeks = 12

// TotalRowLabel labels the synthetic summary row appended to every
// allocation table. Channel names never collide with it because bundle
// validation rejects a channel named "Total".
const TotalRowLabel = "Total"

// AllocationRow compares the previous and the optimized spend for one
// channel, in currency units rounded to 2 decimal places for display.
type AllocationRow struct {
	Channel  string
	Previous float64
	Optimal  float64
}

// AllocationTable is the per-channel comparison plus the Total row.
// Total sums the unrounded currency columns, rounded once at the end.
type AllocationTable struct {
	Rows  []AllocationRow
	Total AllocationRow
}

// AllocationReport is the full result of one allocation run. It is
// request-scoped: computed, rendered, and discarded.
type AllocationReport struct {
	RunID     string
	Model     string
	Window    ForecastWindow
	Budget    float64
	Table     AllocationTable
	KPIBefore float64 // predicted KPI under the previous allocation
	KPIAfter  float64 // predicted KPI under the optimized allocation
}

// ModelSummary is the read-only view of a registered model bundle exposed
// over listing surfaces.
type ModelSummary struct {
	Name        string
	Channels    []string
	TrainedFrom time.Time
	TrainedTo   time.Time
}
