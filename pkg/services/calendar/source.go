package calendar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Source returns every holiday occurrence for a country across a set of
// years. Implementations must support multi-year batched queries.
type Source interface {
	Holidays(country string, years []int) ([]domain.HolidayOccurrence, error)
}

// CivilSource computes occurrences from statutory holiday definitions.
// When a holiday's observed date differs from its actual date, both are
// returned; the observed one carries an "(observed)" qualifier so that both
// collapse into the same canonical feature.
type CivilSource struct {
	calendars map[string][]*cal.Holiday
}

func NewCivilSource() *CivilSource {
	return &CivilSource{
		calendars: map[string][]*cal.Holiday{
			"US": us.Holidays,
		},
	}
}

func (s *CivilSource) Holidays(country string, years []int) ([]domain.HolidayOccurrence, error) {
	defs, ok := s.calendars[strings.ToUpper(country)]
	if !ok {
		return nil, fmt.Errorf("no holiday calendar for country %q", country)
	}

	var occurrences []domain.HolidayOccurrence
	for _, year := range years {
		for _, h := range defs {
			actual, observed := h.Calc(year)
			if !actual.IsZero() {
				occurrences = append(occurrences, domain.HolidayOccurrence{Date: actual, Name: h.Name})
			}
			if !observed.IsZero() && !observed.Equal(actual) {
				occurrences = append(occurrences, domain.HolidayOccurrence{
					Date: observed,
					Name: h.Name + " (observed)",
				})
			}
		}
	}

	// Date order, name as tie-break: column discovery order must not depend
	// on the order holiday definitions are declared in.
	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].Date.Equal(occurrences[j].Date) {
			return occurrences[i].Name < occurrences[j].Name
		}
		return occurrences[i].Date.Before(occurrences[j].Date)
	})
	return occurrences, nil
}
