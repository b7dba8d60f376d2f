package simulation

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/market-confidence/internal/domain"
)

// ScenarioKind identifies an investor behavior during the event
type ScenarioKind string

const (
	ScenarioHold     ScenarioKind = "hold"
	ScenarioWithdraw ScenarioKind = "withdraw"
	ScenarioAdd      ScenarioKind = "add"
)

// Scenario is a behavioral adjustment applied from the pivot date onward
type Scenario struct {
	Kind     ScenarioKind
	Name     string
	Fraction decimal.Decimal // Share of the portfolio withdrawn or added at the pivot
}

var adjustmentFraction = decimal.New(20, -2)

var (
	Hold     = Scenario{Kind: ScenarioHold, Name: "No Changes"}
	Withdraw = Scenario{Kind: ScenarioWithdraw, Name: "20% Withdrawal", Fraction: adjustmentFraction}
	Add      = Scenario{Kind: ScenarioAdd, Name: "20% Addition", Fraction: adjustmentFraction}
)

// Scenarios returns the compared behaviors in their canonical output order
func Scenarios() []Scenario {
	return []Scenario{Hold, Withdraw, Add}
}

// Factor returns the value multiplier for a date, given the pivot date
func (s Scenario) Factor(d, pivot time.Time) decimal.Decimal {
	if d.Before(pivot) {
		return decimal.NewFromInt(1)
	}
	switch s.Kind {
	case ScenarioWithdraw:
		return decimal.NewFromInt(1).Sub(s.Fraction)
	case ScenarioAdd:
		return decimal.NewFromInt(1).Add(s.Fraction)
	default:
		return decimal.NewFromInt(1)
	}
}

// ValuePoint is the simulated portfolio value on one axis date
type ValuePoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// MarshalJSON renders the point as {"date": "YYYY-MM-DD", "value": <number>}
func (p ValuePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}{domain.FormatDate(p.Date), p.Value.InexactFloat64()})
}

// ValueSeries is a portfolio value series in axis order
type ValueSeries []ValuePoint

// Values returns the bare values of the series
func (s ValueSeries) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

type assetPrices struct {
	weight decimal.Decimal // allocation / 100
	closes map[int64]decimal.Decimal
}

// Valuator computes allocation-weighted portfolio values over a fixed date axis.
// It is read-only after construction and safe for concurrent use.
type Valuator struct {
	axis   []time.Time
	assets []assetPrices
	amount *decimal.Decimal
}

// NewValuator indexes each asset's closes by date once.
// amount, when non-nil, scales every positive value (investment amount).
func NewValuator(axis []time.Time, series []domain.AllocatedAssetSeries, amount *decimal.Decimal) *Valuator {
	assets := make([]assetPrices, 0, len(series))
	for _, s := range series {
		closes := make(map[int64]decimal.Decimal, len(s.Series))
		for _, p := range s.Series {
			key := domain.NormalizeDate(p.Date).Unix()
			// First observation of a date wins
			if _, ok := closes[key]; !ok {
				closes[key] = p.Close
			}
		}
		assets = append(assets, assetPrices{
			weight: s.Allocation.Shift(-2),
			closes: closes,
		})
	}
	return &Valuator{axis: axis, assets: assets, amount: amount}
}

// Value produces one value per axis date for the scenario.
// Values are not clamped; negative provider prices yield negative values.
func (v *Valuator) Value(scenario Scenario, pivot time.Time) (ValueSeries, error) {
	if len(v.axis) == 0 {
		return nil, ErrInsufficientData
	}

	out := make(ValueSeries, len(v.axis))
	for i, d := range v.axis {
		key := domain.NormalizeDate(d).Unix()
		raw := decimal.Zero
		for _, a := range v.assets {
			if c, ok := a.closes[key]; ok {
				raw = raw.Add(c.Mul(a.weight))
			}
		}

		value := raw.Mul(scenario.Factor(d, pivot))
		if v.amount != nil && value.IsPositive() {
			value = value.Mul(*v.amount)
		}
		out[i] = ValuePoint{Date: d, Value: value}
	}
	return out, nil
}
