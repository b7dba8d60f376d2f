package openai

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
)

const (
	adviceSystemPrompt   = "You are a financial advisor providing evidence-based investment advice."
	analysisSystemPrompt = "You are a financial analyst providing concise market event analysis."
)

// Advisor generates investment advice and event analysis text.
// It implements domain.NarrativeSummarizer.
type Advisor struct {
	client *Client
	log    zerolog.Logger
}

// NewAdvisor creates an advisor
func NewAdvisor(client *Client, log zerolog.Logger) *Advisor {
	return &Advisor{
		client: client,
		log:    log.With().Str("component", "advisor").Logger(),
	}
}

// InvestmentAdvice explains which scenario performed best during the event
func (a *Advisor) InvestmentAdvice(ctx context.Context, event string, scenarios []domain.ScenarioSummary) (string, error) {
	text, err := a.client.complete(ctx, adviceSystemPrompt, AdvicePrompt(event, scenarios), false)
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("Failed to generate investment advice")
		return "", err
	}
	return text, nil
}

// EventAnalysis explains how the benchmark index reacted to the event
func (a *Advisor) EventAnalysis(ctx context.Context, event string, period domain.EventPeriod, impact domain.MarketImpact) (string, error) {
	text, err := a.client.complete(ctx, analysisSystemPrompt, AnalysisPrompt(event, period, impact), false)
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("Failed to generate event analysis")
		return "", err
	}
	return text, nil
}

// AdvicePrompt builds the user prompt comparing every scenario
func AdvicePrompt(event string, scenarios []domain.ScenarioSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the performance of %d investment strategies during the %s:\n\n", len(scenarios), event)

	for i, s := range scenarios {
		name := s.Name
		if s.Name != "No Changes" {
			name += " (in the middle of the event)"
		}
		fmt.Fprintf(&b, "%d. %s:\n", i+1, name)
		fmt.Fprintf(&b, "   - Total Return: %s\n", formatReturn(s.TotalReturn))
		fmt.Fprintf(&b, "   - Maximum Drawdown: %.2f%%\n", s.MaxDrawdown)
		fmt.Fprintf(&b, "   - Recovery Days: %s\n\n", formatDays(s.RecoveryDays))
	}

	b.WriteString("Based on this data, provide concise investment advice (1-2 paragraphs) about which strategy performed best during this event and why.\n")
	b.WriteString("Include advice on what an investor should consider when facing similar market conditions in the future.")
	return b.String()
}

// AnalysisPrompt builds the user prompt describing the market impact
func AnalysisPrompt(event string, period domain.EventPeriod, impact domain.MarketImpact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the impact of the %s (%s to %s) on the MSCI World Index:\n",
		event, domain.FormatDate(period.Start), domain.FormatDate(period.End))
	fmt.Fprintf(&b, "- Market declined by approximately %.2f%% during this event\n", math.Abs(impact.PercentChange))
	fmt.Fprintf(&b, "- %s\n\n", impact.RecoveryStatus())
	b.WriteString("Provide a concise analysis paragraph explaining how this event affected global markets, ")
	b.WriteString("what factors contributed to the decline, and the recovery process if applicable.")
	return b.String()
}

func formatReturn(r *float64) string {
	if r == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", *r)
}

func formatDays(d *int) string {
	if d == nil {
		return "N/A"
	}
	return strconv.Itoa(*d)
}
