// Package charts renders portfolio and scenario value series as PNG line charts.
package charts

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

// Aggregation groupings
const (
	GroupNone  = ""
	GroupWeek  = "week"
	GroupMonth = "month"
)

// Series longer than these are averaged per week or month before drawing
const (
	weeklyThreshold  = 260
	monthlyThreshold = 1300
)

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time"` // YYYY-MM-DD, YYYY-W## or YYYY-MM
	Value float64 `json:"value"`
}

// FromValueSeries converts a simulated value series to chart points
func FromValueSeries(series simulation.ValueSeries) []ChartDataPoint {
	points := make([]ChartDataPoint, len(series))
	for i, p := range series {
		points[i] = ChartDataPoint{
			Time:  domain.FormatDate(p.Date),
			Value: p.Value.InexactFloat64(),
		}
	}
	return points
}

// GroupingFor picks the aggregation for a series of n daily points
func GroupingFor(n int) string {
	switch {
	case n > monthlyThreshold:
		return GroupMonth
	case n > weeklyThreshold:
		return GroupWeek
	default:
		return GroupNone
	}
}

// Aggregate averages daily points per ISO week or calendar month.
// Points whose date cannot be parsed are dropped.
func Aggregate(points []ChartDataPoint, groupBy string) []ChartDataPoint {
	if groupBy == GroupNone {
		return points
	}

	aggregated := make(map[string][]float64) // period -> values
	for _, p := range points {
		t, err := domain.ParseDate(p.Time)
		if err != nil {
			continue
		}

		var period string
		if groupBy == GroupWeek {
			year, week := t.ISOWeek()
			period = fmt.Sprintf("%d-W%02d", year, week) // ISO week, e.g. 2024-W05
		} else {
			period = t.Format("2006-01")
		}
		aggregated[period] = append(aggregated[period], p.Value)
	}

	periods := make([]string, 0, len(aggregated))
	for period := range aggregated {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	out := make([]ChartDataPoint, 0, len(periods))
	for _, period := range periods {
		out = append(out, ChartDataPoint{Time: period, Value: stat.Mean(aggregated[period], nil)})
	}
	return out
}
