package pipeline

import (
	"math"
	"strings"

	"qsr-dashboard/internal/models"
)

type Dimension string

const (
	DimensionItem Dimension = "item"
	DimensionTime Dimension = "time"
)

func (d Dimension) key(o *models.Observation) string {
	if d == DimensionTime {
		return o.Time
	}
	return o.Item
}

type AggFunc string

const (
	Minimum AggFunc = "Minimum"
	Average AggFunc = "Average"
	Maximum AggFunc = "Maximum"
	Total   AggFunc = "Total"

	DefaultAggFunc = Average
)

var AggFuncs = []AggFunc{Minimum, Average, Maximum, Total}

// ParseAggFunc matches raw case-insensitively. Unknown names return Average
// together with a soft UnrecognizedSelectionError.
func ParseAggFunc(raw string) (AggFunc, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAggFunc, nil
	}
	for _, fn := range AggFuncs {
		if strings.EqualFold(raw, string(fn)) {
			return fn, nil
		}
	}
	return DefaultAggFunc, &UnrecognizedSelectionError{
		Kind:     "aggregation",
		Value:    raw,
		Fallback: string(DefaultAggFunc),
	}
}

type Metric string

const (
	Quantity   Metric = "Quantity"
	Ticket     Metric = "Ticket"
	Sales      Metric = "Sales"
	AVSPerHour Metric = "AVS Per Hour"
)

var Metrics = []Metric{Quantity, Ticket, Sales, AVSPerHour}

// ParseMetric defaults to Quantity, reporting unknown names softly.
func ParseMetric(raw string) (Metric, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Quantity, nil
	}
	for _, m := range Metrics {
		if strings.EqualFold(raw, string(m)) {
			return m, nil
		}
	}
	return Quantity, &UnrecognizedSelectionError{Kind: "metric", Value: raw, Fallback: string(Quantity)}
}

func (m Metric) ofRow(r *models.AggregatedRow) float64 {
	switch m {
	case Ticket:
		return r.Ticket
	case Sales:
		return r.Sales
	case AVSPerHour:
		return r.AVSPerHour
	default:
		return r.Quantity
	}
}

func (m Metric) ofObservation(o *models.Observation) float64 {
	switch m {
	case Ticket:
		return o.Ticket
	case Sales:
		return o.Sales
	case AVSPerHour:
		return o.AVSPerHour
	default:
		return o.Quantity
	}
}

// accumulator reduces one column, skipping NaN like a dataframe reduction would.
type accumulator struct {
	n   int
	sum float64
	min float64
	max float64
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.sum += v
	a.n++
}

// result of an all-missing column is 0 for Total and NaN otherwise.
func (a *accumulator) result(fn AggFunc) float64 {
	if fn == Total {
		return a.sum
	}
	if a.n == 0 {
		return math.NaN()
	}
	switch fn {
	case Minimum:
		return a.min
	case Maximum:
		return a.max
	default:
		return a.sum / float64(a.n)
	}
}

type groupAcc struct {
	key                              string
	quantity, ticket, sales, avsHour accumulator
}

// reduce groups rows by dim in first-seen order and reduces the four metrics.
func reduce(obs []models.Observation, dim Dimension, fn AggFunc) []models.AggregatedRow {
	index := make(map[string]int)
	groups := make([]*groupAcc, 0)

	for i := range obs {
		o := &obs[i]
		k := dim.key(o)
		idx, ok := index[k]
		if !ok {
			idx = len(groups)
			index[k] = idx
			groups = append(groups, &groupAcc{key: k})
		}
		g := groups[idx]
		g.quantity.add(o.Quantity)
		g.ticket.add(o.Ticket)
		g.sales.add(o.Sales)
		g.avsHour.add(o.AVSPerHour)
	}

	rows := make([]models.AggregatedRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, models.AggregatedRow{
			Key:        g.key,
			Quantity:   g.quantity.result(fn),
			Ticket:     g.ticket.result(fn),
			Sales:      g.sales.result(fn),
			AVSPerHour: g.avsHour.result(fn),
		})
	}
	return rows
}

// Aggregate groups obs by dim and reduces each metric with fn. Groups with a
// missing value, or with any metric exactly zero, are dropped.
func Aggregate(obs []models.Observation, dim Dimension, fn AggFunc) models.AggregatedTable {
	if fn == "" {
		fn = DefaultAggFunc
	}
	table := models.AggregatedTable{
		Dimension: string(dim),
		Function:  string(fn),
		Rows:      make([]models.AggregatedRow, 0),
	}
	for _, row := range reduce(obs, dim, fn) {
		if !complete(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func complete(r models.AggregatedRow) bool {
	for _, v := range []float64{r.Quantity, r.Ticket, r.Sales, r.AVSPerHour} {
		if math.IsNaN(v) || v == 0 {
			return false
		}
	}
	return true
}

// ContributionPercentage returns a copy of table with each row's share of the
// metric's column total. Empty tables are returned unchanged.
func ContributionPercentage(table models.AggregatedTable, metric Metric) models.AggregatedTable {
	out := table
	out.Rows = make([]models.AggregatedRow, len(table.Rows))
	copy(out.Rows, table.Rows)

	var total float64
	for i := range out.Rows {
		total += metric.ofRow(&out.Rows[i])
	}
	if total == 0 {
		return out
	}
	for i := range out.Rows {
		out.Rows[i].SharePct = metric.ofRow(&out.Rows[i]) / total * 100
		out.Rows[i].RestPct = 100 - out.Rows[i].SharePct
	}
	return out
}

// SummaryCards averages each metric over the table's rows. With a non-Average
// function this is the mean of the per-group statistic, not the statistic of
// the whole selection.
func SummaryCards(table models.AggregatedTable) (models.SummaryCards, error) {
	n := float64(len(table.Rows))
	if n == 0 {
		return models.SummaryCards{}, noData("summary cards")
	}
	cards := models.SummaryCards{Function: table.Function}
	for _, r := range table.Rows {
		cards.QuantityAvg += r.Quantity
		cards.TicketAvg += r.Ticket
		cards.SalesAvg += r.Sales
		cards.AVSAvg += r.AVSPerHour
	}
	cards.QuantityAvg /= n
	cards.TicketAvg /= n
	cards.SalesAvg /= n
	cards.AVSAvg /= n
	return cards, nil
}

// Share reports one row's part of the metric total against every other row.
// An empty key selects the first row.
func Share(table models.AggregatedTable, key string, metric Metric) (models.Share, error) {
	if len(table.Rows) == 0 {
		return models.Share{}, noData("share")
	}
	if key == "" {
		key = table.Rows[0].Key
	}
	shared := ContributionPercentage(table, metric)
	for _, r := range shared.Rows {
		if r.Key == key {
			return models.Share{Key: key, SharePct: r.SharePct, RestPct: r.RestPct}, nil
		}
	}
	return models.Share{}, noData("share of " + key)
}

// Trend projects one metric of an aggregated table into a labelled series.
func Trend(table models.AggregatedTable, metric Metric) []models.SeriesPoint {
	points := make([]models.SeriesPoint, 0, len(table.Rows))
	for i := range table.Rows {
		points = append(points, models.SeriesPoint{
			Label: table.Rows[i].Key,
			Value: metric.ofRow(&table.Rows[i]),
		})
	}
	return points
}
