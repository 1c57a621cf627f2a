package models

import "time"

type AggregatedRow struct {
	Key        string  `json:"key"`
	Quantity   float64 `json:"quantity"`
	Ticket     float64 `json:"ticket"`
	Sales      float64 `json:"sales"`
	AVSPerHour float64 `json:"avs_per_hour"`
	SharePct   float64 `json:"share_pct"`
	RestPct    float64 `json:"rest_pct"`
}

type AggregatedTable struct {
	Dimension string          `json:"dimension"`
	Function  string          `json:"function"`
	Rows      []AggregatedRow `json:"rows"`
}

func (t AggregatedTable) Len() int {
	return len(t.Rows)
}

func (t AggregatedTable) Keys() []string {
	keys := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		keys[i] = row.Key
	}
	return keys
}

type SummaryCards struct {
	Function    string  `json:"function"`
	QuantityAvg float64 `json:"quantity_avg"`
	TicketAvg   float64 `json:"ticket_avg"`
	SalesAvg    float64 `json:"sales_avg"`
	AVSAvg      float64 `json:"avs_avg"`
}

type Share struct {
	Key      string  `json:"key"`
	SharePct float64 `json:"share_pct"`
	RestPct  float64 `json:"rest_pct"`
}

type ComparisonRow struct {
	Time  string  `json:"time"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type CorrelationPoint struct {
	Date time.Time `json:"date"`
	Time string    `json:"time"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

type Correlation struct {
	X           string             `json:"x"`
	Y           string             `json:"y"`
	Points      []CorrelationPoint `json:"points"`
	Coefficient float64            `json:"coefficient"`
	Defined     bool               `json:"defined"`
}

type DateBounds struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FilterOptions are the values still available at each level of the filter cascade.
type FilterOptions struct {
	Bounds   DateBounds `json:"bounds"`
	Months   []string   `json:"months"`
	Weeks    []string   `json:"weeks"`
	Weekdays []string   `json:"weekdays"`
	Hours    []string   `json:"hours"`
	Items    []string   `json:"items"`
}
