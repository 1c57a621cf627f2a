package pipeline

import (
	"math"
	"strings"
	"time"

	"qsr-dashboard/internal/models"
)

const (
	DefaultCorrelationX = string(Ticket)
	DefaultCorrelationY = string(AVSPerHour)
)

// hourRow is one row of the wide sheet: a single hour of a single day.
type hourRow struct {
	date       time.Time
	time       string
	ticket     float64
	sales      float64
	avsPerHour float64
	quantity   accumulator
	items      map[string]float64
}

func (h *hourRow) feature(name string) (float64, bool) {
	switch {
	case strings.EqualFold(name, string(Ticket)):
		return h.ticket, true
	case strings.EqualFold(name, string(Sales)):
		return h.sales, true
	case strings.EqualFold(name, string(AVSPerHour)):
		return h.avsPerHour, true
	case strings.EqualFold(name, string(Quantity)):
		return h.quantity.result(Total), true
	}
	v, ok := h.items[name]
	return v, ok
}

func widen(obs []models.Observation) []*hourRow {
	type key struct {
		date time.Time
		time string
	}
	index := make(map[key]*hourRow)
	rows := make([]*hourRow, 0)

	for i := range obs {
		o := &obs[i]
		k := key{o.Date, o.Time}
		row, ok := index[k]
		if !ok {
			row = &hourRow{
				date:       o.Date,
				time:       o.Time,
				ticket:     Ticket.ofObservation(o),
				sales:      Sales.ofObservation(o),
				avsPerHour: AVSPerHour.ofObservation(o),
				items:      make(map[string]float64),
			}
			index[k] = row
			rows = append(rows, row)
		}
		row.quantity.add(o.Quantity)
		row.items[o.Item] = o.Quantity
	}
	return rows
}

// Correlate pairs two features of every (date, hour) row and computes their
// Pearson coefficient. A feature is Ticket, Sales, AVS Per Hour, Quantity (all
// products) or a product name (that product's quantity). Pairs with a missing
// value are skipped. Empty names default to Ticket against AVS Per Hour.
func Correlate(obs []models.Observation, x, y string) (models.Correlation, error) {
	if x == "" {
		x = DefaultCorrelationX
	}
	if y == "" {
		y = DefaultCorrelationY
	}

	result := models.Correlation{X: x, Y: y, Points: make([]models.CorrelationPoint, 0)}
	for _, row := range widen(obs) {
		xv, okX := row.feature(x)
		yv, okY := row.feature(y)
		if !okX || !okY || !finite(xv) || !finite(yv) {
			continue
		}
		result.Points = append(result.Points, models.CorrelationPoint{
			Date: row.date,
			Time: row.time,
			X:    xv,
			Y:    yv,
		})
	}
	if len(result.Points) < 2 {
		return result, noData("correlation")
	}

	if r, ok := pearson(result.Points); ok {
		result.Coefficient = r
		result.Defined = true
	}
	return result, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func pearson(points []models.CorrelationPoint) (float64, bool) {
	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for _, p := range points {
		dx, dy := p.X-meanX, p.Y-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}
