package pipeline

import (
	"math"

	"qsr-dashboard/internal/models"
)

// Compare aggregates two independently filtered sides by hour and outer-joins
// them on the hour label. Hours missing from one side, and statistics that are
// undefined for a side, read as zero. Left hours come first in their own order,
// followed by hours only the right side has.
func Compare(left, right []models.Observation, fn AggFunc, metric Metric) []models.ComparisonRow {
	if fn == "" {
		fn = DefaultAggFunc
	}
	leftRows := reduce(left, DimensionTime, fn)
	rightRows := reduce(right, DimensionTime, fn)

	out := make([]models.ComparisonRow, 0, len(leftRows)+len(rightRows))
	index := make(map[string]int, len(leftRows)+len(rightRows))

	for i := range leftRows {
		index[leftRows[i].Key] = len(out)
		out = append(out, models.ComparisonRow{
			Time: leftRows[i].Key,
			Left: zeroIfNaN(metric.ofRow(&leftRows[i])),
		})
	}
	for i := range rightRows {
		v := zeroIfNaN(metric.ofRow(&rightRows[i]))
		if idx, ok := index[rightRows[i].Key]; ok {
			out[idx].Right = v
			continue
		}
		index[rightRows[i].Key] = len(out)
		out = append(out, models.ComparisonRow{Time: rightRows[i].Key, Right: v})
	}
	return out
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
