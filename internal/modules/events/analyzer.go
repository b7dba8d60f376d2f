package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
)

// BaselineBufferDays is how far before the event start the index history begins
const BaselineBufferDays = 30

// Messages used when an event cannot be analyzed
const (
	MsgPeriodUnresolved = "Could not determine the time period for this event."
	MsgInsufficientData = "Insufficient market data available for this time period."
	StatusUnknown       = "Unknown"
)

// ErrEmptyEvent is returned for a blank event description
var ErrEmptyEvent = errors.New("event is required")

// Analysis is the outcome of analyzing one event
type Analysis struct {
	Event          string
	Analysis       string
	RecoveryStatus string
	PercentChange  *float64
	Period         *domain.EventPeriod // nil when unresolved
}

// MarshalJSON renders the analysis with a nullable time period
func (a Analysis) MarshalJSON() ([]byte, error) {
	type timePeriod struct {
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	var tp timePeriod
	if a.Period != nil {
		start, end := domain.FormatDate(a.Period.Start), domain.FormatDate(a.Period.End)
		tp.StartDate, tp.EndDate = &start, &end
	}
	return json.Marshal(struct {
		Event          string     `json:"event"`
		Analysis       string     `json:"analysis"`
		RecoveryStatus string     `json:"recovery_status"`
		PercentChange  *float64   `json:"percent_change"`
		TimePeriod     timePeriod `json:"time_period"`
	}{a.Event, a.Analysis, a.RecoveryStatus, a.PercentChange, tp})
}

// Analyzer explains the MSCI World reaction to an event
type Analyzer struct {
	resolver   domain.EventPeriodResolver
	provider   domain.PriceHistoryProvider
	summarizer domain.NarrativeSummarizer
	log        zerolog.Logger
}

// NewAnalyzer creates a new event analyzer.
// resolver and summarizer may be nil when no LLM is configured.
func NewAnalyzer(
	resolver domain.EventPeriodResolver,
	provider domain.PriceHistoryProvider,
	summarizer domain.NarrativeSummarizer,
	log zerolog.Logger,
) *Analyzer {
	return &Analyzer{
		resolver:   resolver,
		provider:   provider,
		summarizer: summarizer,
		log:        log.With().Str("component", "event_analyzer").Logger(),
	}
}

// Analyze resolves the event period, measures the index impact and narrates it.
// Only a blank event is an error; every other failure is reported in the analysis.
func (a *Analyzer) Analyze(ctx context.Context, event string) (*Analysis, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil, ErrEmptyEvent
	}

	result := &Analysis{Event: event, RecoveryStatus: StatusUnknown}

	period := a.resolve(ctx, event)
	if period == nil {
		result.Analysis = MsgPeriodUnresolved
		return result, nil
	}
	result.Period = period

	bars := a.provider.GetHistory(ctx, domain.MSCIWorldSymbol, domain.HistoryRequest{
		Start: period.Start.AddDate(0, 0, -BaselineBufferDays),
		End:   period.End,
	})
	impact, ok := CalculateMarketImpact(domain.ClosePoints(bars))
	if !ok {
		a.log.Warn().Str("event", event).Int("points", len(bars)).Msg("Insufficient index data for event")
		result.Analysis = MsgInsufficientData
		return result, nil
	}

	if a.summarizer == nil {
		result.Analysis = "Unable to generate analysis due to an error: no narrative model configured"
		return result, nil
	}

	text, err := a.summarizer.EventAnalysis(ctx, event, *period, impact)
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("Error generating analysis")
		result.Analysis = fmt.Sprintf("Unable to generate analysis due to an error: %v", err)
		return result, nil
	}

	change := impact.PercentChange
	result.Analysis = text
	result.PercentChange = &change
	result.RecoveryStatus = impact.RecoveryStatus()
	return result, nil
}

func (a *Analyzer) resolve(ctx context.Context, event string) *domain.EventPeriod {
	if a.resolver == nil {
		return nil
	}
	period, err := a.resolver.ResolvePeriod(ctx, event)
	if err != nil {
		a.log.Warn().Err(err).Str("event", event).Msg("Error getting event time period")
		return nil
	}
	return period
}
