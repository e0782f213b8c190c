package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for observation dates and filters
const DateLayout = "2006-01-02"

// DefaultRowCap bounds the dashboard fetch
const DefaultRowCap = 1000

// StatsFilter is the dashboard filter set. Empty fields are not applied.
type StatsFilter struct {
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Shift      []string `json:"shift,omitempty"`
	Site       []string `json:"site,omitempty"`
	Group      []string `json:"group,omitempty"`
	Type       []string `json:"type,omitempty"`
	Supervisor []string `json:"supervisor,omitempty"`
	RowCap     int      `json:"-"`
}

// Validate checks the date bounds
func (f StatsFilter) Validate() error {
	var start, end time.Time
	var err error

	if f.StartDate != "" {
		if start, err = time.Parse(DateLayout, f.StartDate); err != nil {
			return fmt.Errorf("%w: start_date", ErrInvalidDate)
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(DateLayout, f.EndDate); err != nil {
			return fmt.Errorf("%w: end_date", ErrInvalidDate)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidDate)
	}
	return nil
}

// GroupComparison returns the filter for the groups comparison chart: only
// the date range, site and shift selections are kept.
func (f StatsFilter) GroupComparison() StatsFilter {
	return StatsFilter{
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Shift:     f.Shift,
		Site:      f.Site,
		RowCap:    f.RowCap,
	}
}

// Limit returns the effective row cap
func (f StatsFilter) Limit() int {
	if f.RowCap <= 0 {
		return DefaultRowCap
	}
	return f.RowCap
}

// ExpandedShifts returns the shift filter including stored synonyms
func (f StatsFilter) ExpandedShifts() []string {
	return ExpandShifts(f.Shift)
}

// Key returns a stable string for caching results of this filter
func (f StatsFilter) Key() string {
	norm := func(values []string) string {
		cp := append([]string(nil), values...)
		sort.Strings(cp)
		return strings.Join(cp, ",")
	}

	return fmt.Sprintf("from=%s:to=%s:shift=%s:site=%s:group=%s:type=%s:sup=%s:cap=%d",
		f.StartDate, f.EndDate,
		norm(f.Shift), norm(f.Site), norm(f.Group), norm(f.Type), norm(f.Supervisor),
		f.Limit())
}
