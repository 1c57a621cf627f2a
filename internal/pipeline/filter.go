// Package pipeline implements the cascading filter and aggregation steps every
// dashboard view is built from. All functions are pure: they never modify their
// input slices and are safe to call concurrently on a shared base dataset.
package pipeline

import (
	"strings"
	"time"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/models"
)

// DateRange is an inclusive calendar-day range. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Check returns an InvalidRangeError when End precedes Start.
func (r DateRange) Check() error {
	if !r.Start.IsZero() && !r.End.IsZero() && day(r.End).Before(day(r.Start)) {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

func (r DateRange) Contains(t time.Time) bool {
	d := day(t)
	if !r.Start.IsZero() && d.Before(day(r.Start)) {
		return false
	}
	if !r.End.IsZero() && d.After(day(r.End)) {
		return false
	}
	return true
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Criteria is one full set of cascade selections.
type Criteria struct {
	Group    catalog.GroupID
	Dates    DateRange
	Months   Selection
	Weeks    Selection
	Weekdays Selection
}

type Pipeline struct {
	catalogs *catalog.Registry
}

func New(catalogs *catalog.Registry) *Pipeline {
	if catalogs == nil {
		catalogs = catalog.Default()
	}
	return &Pipeline{catalogs: catalogs}
}

func (p *Pipeline) Catalogs() *catalog.Registry {
	return p.catalogs
}

// SelectGroup returns the catalog for id, falling back to cereal packages.
func (p *Pipeline) SelectGroup(id catalog.GroupID) *catalog.Catalog {
	return p.catalogs.Select(id)
}

// ParseGroup maps a raw group name to a GroupID. Unknown names return the
// default group together with a soft UnrecognizedSelectionError.
func ParseGroup(raw string) (catalog.GroupID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return catalog.DefaultGroup, nil
	}
	id := catalog.GroupID(raw)
	if !id.Valid() {
		return catalog.DefaultGroup, &UnrecognizedSelectionError{
			Kind:     "catalog",
			Value:    raw,
			Fallback: string(catalog.DefaultGroup),
		}
	}
	return id, nil
}

// stages keeps every intermediate result of one cascade run.
type stages struct {
	grouped  []models.Observation
	dated    []models.Observation
	months   []models.Observation
	weeks    []models.Observation
	weekdays []models.Observation
}

func (p *Pipeline) run(obs []models.Observation, c Criteria) stages {
	var s stages

	group := p.SelectGroup(c.Group)
	s.grouped = filter(obs, func(o *models.Observation) bool {
		return group.Contains(o.Item)
	})

	if c.Dates.IsZero() || c.Dates.Check() != nil {
		s.dated = s.grouped
	} else {
		s.dated = filter(s.grouped, func(o *models.Observation) bool {
			return c.Dates.Contains(o.Date)
		})
	}

	s.months = narrow(s.dated, c.Months, func(o *models.Observation) string { return o.Month })
	s.weeks = narrow(s.months, c.Weeks, func(o *models.Observation) string { return o.MonthWeek })
	s.weekdays = narrow(s.weeks, c.Weekdays, func(o *models.Observation) string { return o.Weekday })
	return s
}

// FilterChain applies, in order, the catalog, date range, month, week and
// weekday restrictions. Each stage narrows the previous stage's output.
// Empty selections, an inverted date range, and selections naming only values
// absent from the stage input all pass the rows through unchanged.
func (p *Pipeline) FilterChain(obs []models.Observation, c Criteria) []models.Observation {
	return p.run(obs, c).weekdays
}

// ByTime keeps the rows for one hour. An empty hour selects the first hour
// present; the hour actually used is returned.
func ByTime(obs []models.Observation, hour string) ([]models.Observation, string) {
	if hour == "" {
		hour = firstDistinct(obs, func(o *models.Observation) string { return o.Time })
	}
	return filter(obs, func(o *models.Observation) bool { return o.Time == hour }), hour
}

// ByItem keeps the rows for one product, defaulting to the first product present.
func ByItem(obs []models.Observation, item string) ([]models.Observation, string) {
	if item == "" {
		item = firstDistinct(obs, func(o *models.Observation) string { return o.Item })
	}
	return filter(obs, func(o *models.Observation) bool { return o.Item == item }), item
}

func narrow(in []models.Observation, sel Selection, field func(*models.Observation) string) []models.Observation {
	if sel.IsAny() {
		return in
	}
	out := filter(in, func(o *models.Observation) bool { return sel.Matches(field(o)) })
	if len(out) == 0 {
		// stale selection: nothing it names survived upstream filtering
		return in
	}
	return out
}

func filter(in []models.Observation, keep func(*models.Observation) bool) []models.Observation {
	out := make([]models.Observation, 0, len(in)/2)
	for i := range in {
		if keep(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}

func firstDistinct(obs []models.Observation, field func(*models.Observation) string) string {
	if len(obs) == 0 {
		return ""
	}
	return field(&obs[0])
}

func distinct(obs []models.Observation, field func(*models.Observation) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range obs {
		v := field(&obs[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
