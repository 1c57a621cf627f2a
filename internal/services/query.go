package services

import (
	"time"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/models"
	"qsr-dashboard/internal/pipeline"
)

// Query is one dashboard selection. Zero values select everything, and an
// empty Hour or Item picks the first available value.
type Query struct {
	Group    catalog.GroupID
	Start    time.Time
	End      time.Time
	Months   []string
	Weeks    []string
	Weekdays []string
	Agg      pipeline.AggFunc
	Hour     string
	Item     string
	Feature  pipeline.Metric
}

func (q Query) Criteria() pipeline.Criteria {
	return pipeline.Criteria{
		Group:    q.Group,
		Dates:    pipeline.DateRange{Start: q.Start, End: q.End},
		Months:   pipeline.Of(q.Months...),
		Weeks:    pipeline.Of(q.Weeks...),
		Weekdays: pipeline.Of(q.Weekdays...),
	}
}

// Side is one half of a comparison. Both halves share the group and the
// aggregation function.
type Side struct {
	Start    time.Time
	End      time.Time
	Months   []string
	Weeks    []string
	Weekdays []string
	Item     string
}

func (s Side) criteria(group catalog.GroupID) pipeline.Criteria {
	return Query{
		Group:    group,
		Start:    s.Start,
		End:      s.End,
		Months:   s.Months,
		Weeks:    s.Weeks,
		Weekdays: s.Weekdays,
	}.Criteria()
}

type CompareQuery struct {
	Group  catalog.GroupID
	Agg    pipeline.AggFunc
	Metric pipeline.Metric
	Left   Side
	Right  Side
}

// HourlyView is the products sold at one hour: the per-product table, the
// summary cards and the selected product's share against the rest.
type HourlyView struct {
	Hour    string                 `json:"hour"`
	Product string                 `json:"product"`
	Table   models.AggregatedTable `json:"table"`
	Cards   models.SummaryCards    `json:"cards"`
	Share   models.Share           `json:"share"`
	NoData  bool                   `json:"no_data"`
}

// ProductView is one product across the hours of the day.
type ProductView struct {
	Item    string                 `json:"item"`
	Hour    string                 `json:"hour"`
	Feature string                 `json:"feature"`
	Table   models.AggregatedTable `json:"table"`
	Share   models.Share           `json:"share"`
	Trend   []models.SeriesPoint   `json:"trend"`
	NoData  bool                   `json:"no_data"`
}

type CompareView struct {
	LeftItem  string                 `json:"left_item"`
	RightItem string                 `json:"right_item"`
	Function  string                 `json:"function"`
	Metric    string                 `json:"metric"`
	Rows      []models.ComparisonRow `json:"rows"`
	NoData    bool                   `json:"no_data"`
}

type CorrelationView struct {
	models.Correlation
	NoData bool `json:"no_data"`
}

type CatalogInfo struct {
	ID      catalog.GroupID `json:"id"`
	Label   string          `json:"label"`
	Items   []string        `json:"items"`
	Present int             `json:"present"`
}
