package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
)

// FallbackAdvice is returned when no narrative could be generated
const FallbackAdvice = "Unable to generate investment advice. Please analyze the simulation data to determine the best strategy."

// Request asks for an event simulation of a stored portfolio
type Request struct {
	PortfolioID string `json:"portfolio_id"`
	Event       string `json:"event"`
}

// ProgressStage names a step of a running event simulation
type ProgressStage string

const (
	StagePeriodResolved ProgressStage = "period_resolved"
	StageAssetFetched   ProgressStage = "asset_fetched"
	StageSimulated      ProgressStage = "simulation_complete"
	StageAdviceReady    ProgressStage = "advice_ready"
)

// Progress is reported while a simulation runs
type Progress struct {
	Stage   ProgressStage `json:"stage"`
	Message string        `json:"message"`
	Symbol  string        `json:"symbol,omitempty"`
	Points  int           `json:"points,omitempty"`
}

// ProgressFunc receives progress updates. It is called from the simulating goroutine.
type ProgressFunc func(Progress)

// PortfolioRef identifies the simulated portfolio
type PortfolioRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimePeriod is the event window and the pivot date inside it
type TimePeriod struct {
	Start  time.Time
	End    time.Time
	Middle time.Time
}

// MarshalJSON renders dates as YYYY-MM-DD
func (p TimePeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		MiddleDate string `json:"middle_date"`
	}{domain.FormatDate(p.Start), domain.FormatDate(p.End), domain.FormatDate(p.Middle)})
}

// AssetPerformance is the raw close series of one simulated asset
type AssetPerformance struct {
	Name        string              `json:"name"`
	Allocation  float64             `json:"allocation"`
	Performance []domain.PricePoint `json:"performance"`
}

// Advice is the narrative recommendation for the simulation
type Advice struct {
	BestScenario string `json:"best_scenario"`
	Text         string `json:"text"`
}

// Report is the full answer to an event simulation request
type Report struct {
	Event             string                      `json:"event"`
	Portfolio         PortfolioRef                `json:"portfolio"`
	TimePeriod        TimePeriod                  `json:"time_period"`
	SimulationResults []ScenarioResult            `json:"simulation_results"`
	AssetPerformance  map[string]AssetPerformance `json:"asset_performance"`
	Advice            Advice                      `json:"advice"`
}

// Service runs event simulations for stored portfolios
type Service struct {
	portfolios domain.PortfolioRepository
	resolver   domain.EventPeriodResolver
	provider   domain.PriceHistoryProvider
	summarizer domain.NarrativeSummarizer
	log        zerolog.Logger
}

// NewService creates a new simulation service.
// resolver and summarizer are optional: without a resolver every event is
// unresolved, without a summarizer the fallback advice is used.
func NewService(
	portfolios domain.PortfolioRepository,
	resolver domain.EventPeriodResolver,
	provider domain.PriceHistoryProvider,
	summarizer domain.NarrativeSummarizer,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		resolver:   resolver,
		provider:   provider,
		summarizer: summarizer,
		log:        log.With().Str("component", "simulation_service").Logger(),
	}
}

// RunEventSimulation simulates the portfolio over the event window under every scenario.
// Errors: domain.ErrPortfolioNotFound, domain.ErrPeriodUnresolved, ErrInsufficientData.
func (s *Service) RunEventSimulation(ctx context.Context, req Request, progress ProgressFunc) (*Report, error) {
	report := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	p, err := s.portfolios.GetByID(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}

	period, err := s.resolvePeriod(ctx, req.Event)
	if err != nil {
		return nil, err
	}
	report(Progress{
		Stage:   StagePeriodResolved,
		Message: fmt.Sprintf("%s: %s to %s", req.Event, domain.FormatDate(period.Start), domain.FormatDate(period.End)),
	})

	historyReq := domain.HistoryRequest{Start: period.Start, End: period.End}
	series := CollectSeries(ctx, s.provider, p.Assets, historyReq, func(symbol string, points int) {
		report(Progress{
			Stage:   StageAssetFetched,
			Message: fmt.Sprintf("Fetched %d prices for %s", points, symbol),
			Symbol:  symbol,
			Points:  points,
		})
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := Simulate(series, InvestmentAmount(p.InvestmentAmount))
	if err != nil {
		s.log.Warn().Err(err).Str("portfolio", p.ID).Str("event", req.Event).Msg("Simulation failed")
		return nil, err
	}
	report(Progress{
		Stage:   StageSimulated,
		Message: fmt.Sprintf("Simulated %d scenarios, best: %s", len(result.Scenarios), result.BestScenario),
	})

	advice := s.advise(ctx, req.Event, result)
	report(Progress{Stage: StageAdviceReady, Message: "Investment advice ready"})

	assets := make(map[string]AssetPerformance, len(series))
	for _, sr := range series {
		asset := p.FindAsset(sr.Symbol)
		if asset == nil {
			continue
		}
		assets[sr.Symbol] = AssetPerformance{
			Name:        asset.Name,
			Allocation:  asset.Allocation,
			Performance: sr.Series,
		}
	}

	s.log.Info().
		Str("portfolio", p.ID).
		Str("event", req.Event).
		Str("best", result.BestScenario).
		Int("assets", len(series)).
		Msg("Event simulation complete")

	return &Report{
		Event:     req.Event,
		Portfolio: PortfolioRef{ID: p.ID, Name: p.Name},
		TimePeriod: TimePeriod{
			Start:  period.Start,
			End:    period.End,
			Middle: result.PivotDate,
		},
		SimulationResults: result.Scenarios,
		AssetPerformance:  assets,
		Advice:            advice,
	}, nil
}

func (s *Service) resolvePeriod(ctx context.Context, event string) (*domain.EventPeriod, error) {
	if s.resolver == nil {
		return nil, domain.ErrPeriodUnresolved
	}

	period, err := s.resolver.ResolvePeriod(ctx, event)
	if err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("Failed to resolve event period")
		if errors.Is(err, domain.ErrPeriodUnresolved) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPeriodUnresolved, err)
	}
	if period == nil {
		return nil, domain.ErrPeriodUnresolved
	}
	return period, nil
}

func (s *Service) advise(ctx context.Context, event string, result *Result) Advice {
	advice := Advice{BestScenario: result.BestScenario, Text: FallbackAdvice}
	if s.summarizer == nil {
		return advice
	}

	text, err := s.summarizer.InvestmentAdvice(ctx, event, result.Summaries())
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("Error generating investment advice")
		return advice
	}
	advice.Text = text
	return advice
}
