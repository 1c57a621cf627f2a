package pipeline

import (
	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/models"
)

// DateBounds returns the first and last date of the group's rows; these are the
// date picker defaults for the group.
func (p *Pipeline) DateBounds(obs []models.Observation, group catalog.GroupID) (models.DateBounds, error) {
	grouped := p.run(obs, Criteria{Group: group}).grouped
	return bounds(grouped)
}

func bounds(obs []models.Observation) (models.DateBounds, error) {
	if len(obs) == 0 {
		return models.DateBounds{}, noData("date bounds")
	}
	b := models.DateBounds{Start: obs[0].Date, End: obs[0].Date}
	for i := range obs {
		if obs[i].Date.Before(b.Start) {
			b.Start = obs[i].Date
		}
		if obs[i].Date.After(b.End) {
			b.End = obs[i].Date
		}
	}
	return b, nil
}

// Options lists, for each level of the cascade, the values that survive every
// level above it. Each list keeps first-seen order.
func (p *Pipeline) Options(obs []models.Observation, c Criteria) models.FilterOptions {
	s := p.run(obs, c)

	opts := models.FilterOptions{
		Months:   distinct(s.dated, func(o *models.Observation) string { return o.Month }),
		Weeks:    distinct(s.months, func(o *models.Observation) string { return o.MonthWeek }),
		Weekdays: distinct(s.weeks, func(o *models.Observation) string { return o.Weekday }),
		Hours:    distinct(s.weekdays, func(o *models.Observation) string { return o.Time }),
		Items:    distinct(s.weekdays, func(o *models.Observation) string { return o.Item }),
	}
	if b, err := bounds(s.grouped); err == nil {
		opts.Bounds = b
	}
	return opts
}
