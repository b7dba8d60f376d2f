// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MSCIWorldSymbol is the benchmark index used for market-wide event analysis
const MSCIWorldSymbol = "^990100-USD-STRD"

// DateLayout is the calendar date format used on the wire and in cache keys
const DateLayout = "2006-01-02"

// NormalizeDate returns the calendar date of t as UTC midnight.
// All dates flowing through the simulation are normalized so they compare and hash equal.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(NormalizeDate(b).Sub(NormalizeDate(a)).Hours() / 24)
}

// Bar is one daily OHLCV observation returned by a price history provider
type Bar struct {
	Date   time.Time `msgpack:"d"`
	Open   float64   `msgpack:"o"`
	High   float64   `msgpack:"h"`
	Low    float64   `msgpack:"l"`
	Close  float64   `msgpack:"c"`
	Volume float64   `msgpack:"v"`
}

// MarshalJSON renders the bar with a calendar date
func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}{FormatDate(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume})
}

// PricePoint is a closing price on a calendar date. Immutable once fetched.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// MarshalJSON renders the point as {"date": "YYYY-MM-DD", "close": <number>}
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	}{FormatDate(p.Date), p.Close.InexactFloat64()})
}

// ClosePoints converts provider bars into normalized closing price points
func ClosePoints(bars []Bar) []PricePoint {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{
			Date:  NormalizeDate(b.Date),
			Close: decimal.NewFromFloat(b.Close),
		})
	}
	return points
}

// AllocatedAssetSeries is one asset's price history paired with its allocation snapshot.
// Allocation is a percentage; weights are applied independently and never normalized.
type AllocatedAssetSeries struct {
	Symbol     string
	Allocation decimal.Decimal
	Series     []PricePoint
}

// AssetType classifies a portfolio asset
type AssetType string

const (
	AssetTypeFund   AssetType = "fund"
	AssetTypeETF    AssetType = "etf"
	AssetTypeEquity AssetType = "equity"
)

// Valid reports whether the asset type is one of the known kinds
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeFund, AssetTypeETF, AssetTypeEquity:
		return true
	}
	return false
}

// PortfolioAsset is one holding of a portfolio
type PortfolioAsset struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Type       AssetType `json:"type"`
	Allocation float64   `json:"allocation"` // Percentage allocation in the portfolio
}

// Portfolio is a user-defined set of allocated assets
type Portfolio struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Assets           []PortfolioAsset `json:"assets"`
	CreatedAt        time.Time        `json:"created_at"`
	InvestmentAmount *float64         `json:"investment_amount"`
}

// FindAsset returns the asset with the given symbol, or nil
func (p *Portfolio) FindAsset(symbol string) *PortfolioAsset {
	for i := range p.Assets {
		if p.Assets[i].Symbol == symbol {
			return &p.Assets[i]
		}
	}
	return nil
}

// EventPeriod is the resolved date range of a market event
type EventPeriod struct {
	Start time.Time
	End   time.Time
}

type eventPeriodJSON struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MarshalJSON renders the period as {"start_date": ..., "end_date": ...}
func (p EventPeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventPeriodJSON{
		StartDate: FormatDate(p.Start),
		EndDate:   FormatDate(p.End),
	})
}

// UnmarshalJSON parses {"start_date": ..., "end_date": ...}
func (p *EventPeriod) UnmarshalJSON(data []byte) error {
	var raw eventPeriodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}
	p.Start, p.End = start, end
	return nil
}

// HistoryRequest selects a price history window: either a named period
// (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max) or an explicit date range.
// Start is inclusive and End exclusive, like the upstream chart API.
type HistoryRequest struct {
	Period string
	Start  time.Time
	End    time.Time
}

// HasRange reports whether the request uses explicit dates
func (r HistoryRequest) HasRange() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Key returns a stable cache key for the request
func (r HistoryRequest) Key() string {
	if r.HasRange() {
		return FormatDate(r.Start) + ".." + FormatDate(r.End)
	}
	if r.Period == "" {
		return "1y"
	}
	return r.Period
}
