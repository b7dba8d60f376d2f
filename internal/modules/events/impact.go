// Package events analyzes how the broad market reacted to historical events.
package events

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/market-confidence/internal/domain"
)

// maxPreEventDays caps the baseline window at the start of the series
const maxPreEventDays = 30

// CalculateMarketImpact measures the drawdown of an index series against its pre-event baseline.
// The baseline is the mean of the first min(30, n/3) closes (at least one); the trough and
// the current value are taken from the remainder. ok is false for fewer than two points.
func CalculateMarketImpact(points []domain.PricePoint) (impact domain.MarketImpact, ok bool) {
	if len(points) < 2 {
		return domain.MarketImpact{}, false
	}

	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close.InexactFloat64()
	}

	preDays := len(closes) / 3
	if preDays > maxPreEventDays {
		preDays = maxPreEventDays
	}
	if preDays < 1 {
		preDays = 1
	}

	pre := stat.Mean(closes[:preDays], nil)
	event := closes[preDays:]
	eventPoints := points[preDays:]

	lowIdx := floats.MinIdx(event)
	impact = domain.MarketImpact{
		PreEventValue: pre,
		LowestValue:   event[lowIdx],
		CurrentValue:  event[len(event)-1],
		Recovered:     event[len(event)-1] >= pre,
	}
	if pre != 0 {
		impact.PercentChange = (impact.LowestValue - pre) / pre * 100
	}

	if impact.Recovered {
		for i := lowIdx + 1; i < len(event); i++ {
			if event[i] >= pre {
				days := domain.DaysBetween(eventPoints[lowIdx].Date, eventPoints[i].Date)
				impact.RecoveryDays = &days
				break
			}
		}
	}

	return impact, true
}
