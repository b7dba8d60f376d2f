package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrPortfolioNotFound is returned by repositories when no portfolio has the requested ID
var ErrPortfolioNotFound = errors.New("portfolio not found")

// ErrPeriodUnresolved is returned when an event cannot be mapped to a date range
var ErrPeriodUnresolved = errors.New("could not determine event time period")

// PriceHistoryProvider fetches daily price history for a symbol.
// Provider failures are normalized to an empty slice; implementations never
// surface an error to the simulation core.
type PriceHistoryProvider interface {
	GetHistory(ctx context.Context, symbol string, req HistoryRequest) []Bar
}

// PortfolioRepository persists portfolios keyed by ID
type PortfolioRepository interface {
	// Create stores a new portfolio. The ID must already be assigned.
	Create(ctx context.Context, p *Portfolio) error

	// GetByID returns ErrPortfolioNotFound if the portfolio does not exist
	GetByID(ctx context.Context, id string) (*Portfolio, error)

	// List returns all portfolios ordered by creation time
	List(ctx context.Context) ([]Portfolio, error)

	// Update replaces an existing portfolio
	// Returns ErrPortfolioNotFound if the portfolio does not exist
	Update(ctx context.Context, p *Portfolio) error

	// Delete returns ErrPortfolioNotFound if the portfolio does not exist
	Delete(ctx context.Context, id string) error
}

// EventPeriodResolver maps a free-text market event description to its date range
type EventPeriodResolver interface {
	ResolvePeriod(ctx context.Context, event string) (*EventPeriod, error)
}

// ScenarioSummary is the per-scenario digest handed to a narrative summarizer
type ScenarioSummary struct {
	Name         string
	TotalReturn  *float64
	MaxDrawdown  float64
	RecoveryDays *int
}

// MarketImpact describes how a benchmark index behaved around an event
type MarketImpact struct {
	PreEventValue float64 `json:"pre_event_value"`
	LowestValue   float64 `json:"lowest_value"`
	CurrentValue  float64 `json:"current_value"`
	PercentChange float64 `json:"percent_change"`
	Recovered     bool    `json:"recovered"`
	RecoveryDays  *int    `json:"recovery_days"`
}

// RecoveryStatus summarizes whether the index got back to its pre-event level
func (m MarketImpact) RecoveryStatus() string {
	if !m.Recovered {
		return "Market did not fully recover"
	}
	if m.RecoveryDays != nil && *m.RecoveryDays > 0 {
		return fmt.Sprintf("Market recovered after %d days", *m.RecoveryDays)
	}
	return "Market recovered"
}

// NarrativeSummarizer produces natural-language explanations of simulation and market data
type NarrativeSummarizer interface {
	// InvestmentAdvice explains which scenario performed best during the event
	InvestmentAdvice(ctx context.Context, event string, scenarios []ScenarioSummary) (string, error)

	// EventAnalysis explains how the market reacted to the event
	EventAnalysis(ctx context.Context, event string, period EventPeriod, impact MarketImpact) (string, error)
}
