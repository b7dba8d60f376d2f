package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

// ErrInvalidPortfolio is returned when a portfolio fails validation
var ErrInvalidPortfolio = errors.New("invalid portfolio")

// DefaultPerformancePeriod is used when no period is requested
const DefaultPerformancePeriod = "1y"

// Input is the client-supplied part of a portfolio
type Input struct {
	Name             string                  `json:"name"`
	Assets           []domain.PortfolioAsset `json:"assets"`
	InvestmentAmount *float64                `json:"investment_amount,omitempty"`
}

// Validate checks the input. Allocations are not required to sum to 100.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPortfolio)
	}
	for i, a := range in.Assets {
		if strings.TrimSpace(a.Symbol) == "" {
			return fmt.Errorf("%w: asset %d has no symbol", ErrInvalidPortfolio, i)
		}
		if !a.Type.Valid() {
			return fmt.Errorf("%w: asset %s has unknown type %q", ErrInvalidPortfolio, a.Symbol, a.Type)
		}
		if a.Allocation < 0 || a.Allocation > 100 {
			return fmt.Errorf("%w: allocation for %s must be between 0 and 100", ErrInvalidPortfolio, a.Symbol)
		}
	}
	if in.InvestmentAmount != nil && *in.InvestmentAmount <= 0 {
		return fmt.Errorf("%w: investment amount must be positive", ErrInvalidPortfolio)
	}
	return nil
}

// Ref identifies a portfolio in responses
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Performance is the value history of a portfolio held unchanged
type Performance struct {
	Portfolio   Ref                    `json:"portfolio"`
	Performance simulation.ValueSeries `json:"performance"`
}

// Service manages portfolios
type Service struct {
	repo     domain.PortfolioRepository
	provider domain.PriceHistoryProvider
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new portfolio service
func NewService(repo domain.PortfolioRepository, provider domain.PriceHistoryProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		log:      log.With().Str("component", "portfolio_service").Logger(),
		now:      time.Now,
	}
}

// Create validates the input and stores it as a new portfolio
func (s *Service) Create(ctx context.Context, in Input) (*domain.Portfolio, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &domain.Portfolio{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(in.Name),
		Assets:           normalizeAssets(in.Assets),
		CreatedAt:        s.now().UTC(),
		InvestmentAmount: in.InvestmentAmount,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return p, nil
}

// List returns all portfolios
func (s *Service) List(ctx context.Context) ([]domain.Portfolio, error) {
	return s.repo.List(ctx)
}

// Get returns a portfolio by ID
func (s *Service) Get(ctx context.Context, id string) (*domain.Portfolio, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces name, assets and investment amount, keeping id and creation time
func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Portfolio, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Assets = normalizeAssets(in.Assets)
	existing.InvestmentAmount = in.InvestmentAmount

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a portfolio
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Performance values the portfolio over a named period without any behavioral change
func (s *Service) Performance(ctx context.Context, id, period string) (*Performance, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = DefaultPerformancePeriod
	}

	series := simulation.CollectSeries(ctx, s.provider, p.Assets, domain.HistoryRequest{Period: period}, nil)
	result := &Performance{
		Portfolio:   Ref{ID: p.ID, Name: p.Name},
		Performance: simulation.ValueSeries{},
	}

	axis := simulation.AlignDates(series)
	if len(axis) == 0 {
		s.log.Warn().Str("portfolio", p.ID).Str("period", period).Msg("No price data for portfolio assets")
		return result, nil
	}

	values, err := simulation.NewValuator(axis, series, simulation.InvestmentAmount(p.InvestmentAmount)).
		Value(simulation.Hold, axis[0])
	if err != nil {
		return nil, err
	}
	result.Performance = values
	return result, nil
}

func normalizeAssets(assets []domain.PortfolioAsset) []domain.PortfolioAsset {
	out := make([]domain.PortfolioAsset, len(assets))
	for i, a := range assets {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		out[i] = a
	}
	return out
}
