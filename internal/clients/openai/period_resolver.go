package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/clientdata"
	"github.com/aristath/market-confidence/internal/domain"
)

const periodSystemPrompt = "You are a financial analyst assistant. Provide accurate time periods for global events."

// PeriodResolver asks the model for the date range of a market event.
// It implements domain.EventPeriodResolver.
type PeriodResolver struct {
	client    *Client
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
	now       func() time.Time
}

// NewPeriodResolver creates a resolver.
// cacheRepo is optional - if nil, caching is disabled.
func NewPeriodResolver(client *Client, cacheRepo *clientdata.Repository, log zerolog.Logger) *PeriodResolver {
	return &PeriodResolver{
		client:    client,
		cacheRepo: cacheRepo,
		log:       log.With().Str("component", "period_resolver").Logger(),
		now:       time.Now,
	}
}

// ResolvePeriod returns the event's start and end dates.
// Ongoing events end today.
func (r *PeriodResolver) ResolvePeriod(ctx context.Context, event string) (*domain.EventPeriod, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil, fmt.Errorf("event description is empty")
	}
	cacheKey := strings.ToLower(event)

	if r.cacheRepo != nil {
		var cached domain.EventPeriod
		found, err := r.cacheRepo.GetIfFresh(clientdata.TableEventPeriods, cacheKey, &cached)
		if err != nil {
			r.log.Warn().Err(err).Str("event", event).Msg("Failed to read event period cache")
		} else if found {
			r.log.Debug().Str("event", event).Msg("Cache hit")
			return &cached, nil
		}
	}

	today := domain.FormatDate(r.now())
	prompt := fmt.Sprintf(
		"What is the start date and end date of the %s? Respond in JSON format with 'start_date' and 'end_date' in YYYY-MM-DD format. If the event is ongoing, use today's date (%s) as the end date.",
		event, today,
	)

	content, err := r.client.complete(ctx, periodSystemPrompt, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve period for %q: %w", event, err)
	}

	period, err := parsePeriod(content)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve period for %q: %w", event, err)
	}

	if r.cacheRepo != nil {
		if err := r.cacheRepo.Store(clientdata.TableEventPeriods, cacheKey, period, clientdata.TTLEventPeriod); err != nil {
			r.log.Warn().Err(err).Str("event", event).Msg("Failed to cache event period")
		}
	}

	r.log.Info().
		Str("event", event).
		Str("start_date", domain.FormatDate(period.Start)).
		Str("end_date", domain.FormatDate(period.End)).
		Msg("Resolved event period")

	return period, nil
}

func parsePeriod(content string) (*domain.EventPeriod, error) {
	var period domain.EventPeriod
	if err := json.Unmarshal([]byte(content), &period); err != nil {
		return nil, fmt.Errorf("invalid period response: %w", err)
	}
	if period.End.Before(period.Start) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			domain.FormatDate(period.End), domain.FormatDate(period.Start))
	}
	return &period, nil
}
