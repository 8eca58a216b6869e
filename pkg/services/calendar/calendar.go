package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mixtools/mixatlas/pkg/models/domain"
)

// ErrNoHolidayData reports that the holiday source returned nothing for the
// years a forecast window spans. An empty covariate matrix would silently
// disable holiday effects in the forecast, so this always fails the run.
var ErrNoHolidayData = errors.New("no holiday data for requested years")

// FeaturePrefix marks a covariate column as a holiday indicator.
const FeaturePrefix = "hldy_"

// CovariateScaler is the fitted, stateless transform applied to the raw
// indicator matrix before it reaches the model.
type CovariateScaler interface {
	Transform(m domain.CovariateMatrix) (domain.CovariateMatrix, error)
}

// CanonicalName normalizes a raw holiday label into a feature identifier:
// any parenthetical qualifier is dropped, periods and apostrophes are
// removed, words are joined with underscores, everything lowercased and
// prefixed. Labels that only differ by qualifier ("X" vs "X (observed)")
// collapse into one column. The function is idempotent.
func CanonicalName(raw string) string {
	name := raw
	if i := strings.Index(name, " ("); i >= 0 {
		name = name[:i]
	}
	name = strings.NewReplacer(".", "", "'", "").Replace(name)
	name = strings.ToLower(strings.Join(strings.Fields(name), "_"))
	if strings.HasPrefix(name, FeaturePrefix) {
		return name
	}
	return FeaturePrefix + name
}

// Builder produces weekly holiday indicator matrices for forecast windows.
type Builder struct {
	source  Source
	country string
}

func NewBuilder(source Source, country string) *Builder {
	return &Builder{source: source, country: country}
}

// BuildScaled builds the indicator matrix for the window and passes it
// through the fitted covariate scaler, preserving shape.
func (b *Builder) BuildScaled(window domain.ForecastWindow, scaler CovariateScaler) (domain.CovariateMatrix, error) {
	m, err := b.Build(window)
	if err != nil {
		return domain.CovariateMatrix{}, err
	}
	scaled, err := scaler.Transform(m)
	if err != nil {
		return domain.CovariateMatrix{}, fmt.Errorf("scaling holiday covariates: %w", err)
	}
	return scaled, nil
}

// Build returns the raw indicator matrix: one row per week of the window,
// one column per canonical holiday present in the spanned years, cell 1 iff
// an occurrence falls inside the closed 7-day window starting at that week.
// Column order is first discovery over date-sorted occurrences, so repeated
// calls for the same year range produce identical matrices.
func (b *Builder) Build(window domain.ForecastWindow) (domain.CovariateMatrix, error) {
	if window.Horizon < 1 {
		return domain.CovariateMatrix{}, fmt.Errorf("horizon must be at least 1, got %d", window.Horizon)
	}

	years := window.Years()
	occurrences, err := b.source.Holidays(b.country, years)
	if err != nil {
		return domain.CovariateMatrix{}, fmt.Errorf("loading holidays for years %v: %w", years, err)
	}
	if len(occurrences) == 0 {
		return domain.CovariateMatrix{}, fmt.Errorf("%w: %v", ErrNoHolidayData, years)
	}

	index := newOccurrenceIndex(occurrences)

	matrix := domain.CovariateMatrix{
		Columns: index.columns,
		Rows:    make([][]float64, 0, window.Horizon),
	}
	for _, start := range window.WeekStarts() {
		weekStart := midnight(start)
		weekEnd := weekStart.AddDate(0, 0, 6)

		row := make([]float64, len(index.columns))
		for j, column := range index.columns {
			if index.anyBetween(column, weekStart, weekEnd) {
				row[j] = 1
			}
		}
		matrix.Rows = append(matrix.Rows, row)
	}
	return matrix, nil
}

// occurrenceIndex maps each canonical column to its sorted occurrence
// dates, built once per window so each week is a pair of binary searches
// rather than a scan over every holiday.
type occurrenceIndex struct {
	columns []string
	dates   map[string][]time.Time
}

func newOccurrenceIndex(occurrences []domain.HolidayOccurrence) *occurrenceIndex {
	idx := &occurrenceIndex{dates: make(map[string][]time.Time)}
	for _, occ := range occurrences {
		name := CanonicalName(occ.Name)
		if _, seen := idx.dates[name]; !seen {
			idx.columns = append(idx.columns, name)
		}
		idx.dates[name] = append(idx.dates[name], midnight(occ.Date))
	}
	for _, dates := range idx.dates {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
	return idx
}

func (idx *occurrenceIndex) anyBetween(column string, start, end time.Time) bool {
	dates := idx.dates[column]
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(start) })
	return i < len(dates) && !dates[i].After(end)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
