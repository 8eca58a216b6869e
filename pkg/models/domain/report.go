package domain

import "time"

// Report is the renderer-facing shape of an allocation result: the CLI and
// any export sink consume this instead of AllocationReport directly.
type Report struct {
	Title    string
	Period   TimePeriod
	Sections []ReportSection
	Currency string
}

// TimePeriod is the forecast span a report covers.
type TimePeriod struct {
	Start    time.Time
	End      time.Time
	Duration int // in weeks
}

// ReportSection is a logical block in the report.
type ReportSection struct {
	Title   string
	Summary map[string]any
	Details []ReportDetail
}

// ReportDetail is one labelled value within a section.
type ReportDetail struct {
	Name        string
	Value       any
	Unit        string
	Description string
}
