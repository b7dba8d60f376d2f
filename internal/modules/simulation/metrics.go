package simulation

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/market-confidence/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Metrics summarizes a value series
type Metrics struct {
	TotalReturn  *float64 `json:"total_return"`  // Percent; nil when the first value is zero
	MaxDrawdown  float64  `json:"max_drawdown"`  // Largest peak-to-trough decline, percent
	RecoveryDays *int     `json:"recovery_days"` // Calendar days from trough back to the starting value
}

// CalculateMetrics derives total return, maximum drawdown and recovery days
func CalculateMetrics(series ValueSeries) Metrics {
	if len(series) < 2 {
		zero := 0.0
		return Metrics{TotalReturn: &zero}
	}

	return Metrics{
		TotalReturn:  totalReturn(series),
		MaxDrawdown:  maxDrawdown(series).InexactFloat64(),
		RecoveryDays: recoveryDays(series),
	}
}

func totalReturn(series ValueSeries) *float64 {
	first := series[0].Value
	if first.IsZero() {
		return nil
	}
	last := series[len(series)-1].Value
	r := last.Sub(first).Div(first).Mul(hundred).InexactFloat64()
	return &r
}

func maxDrawdown(series ValueSeries) decimal.Decimal {
	peak := series[0].Value
	maxDD := decimal.Zero

	for _, p := range series {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
		}
		// A non-positive peak has no meaningful percentage decline
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(p.Value).Div(peak).Mul(hundred)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

func recoveryDays(series ValueSeries) *int {
	trough := 0
	for i, p := range series {
		if p.Value.LessThan(series[trough].Value) {
			trough = i
		}
	}
	if trough == len(series)-1 {
		return nil
	}

	start := series[0].Value
	for i := trough + 1; i < len(series); i++ {
		if series[i].Value.GreaterThanOrEqual(start) {
			days := domain.DaysBetween(series[trough].Date, series[i].Date)
			return &days
		}
	}
	return nil
}
