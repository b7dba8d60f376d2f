package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aristath/market-confidence/internal/domain"
)

// MockPriceProvider is a mock implementation of domain.PriceHistoryProvider
type MockPriceProvider struct {
	mock.Mock
}

// GetHistory returns the bars configured for the call
func (m *MockPriceProvider) GetHistory(ctx context.Context, symbol string, req domain.HistoryRequest) []domain.Bar {
	args := m.Called(ctx, symbol, req)
	if args.Get(0) == nil {
		return []domain.Bar{}
	}
	return args.Get(0).([]domain.Bar)
}

// MockPeriodResolver is a mock implementation of domain.EventPeriodResolver
type MockPeriodResolver struct {
	mock.Mock
}

// ResolvePeriod returns the period configured for the call
func (m *MockPeriodResolver) ResolvePeriod(ctx context.Context, event string) (*domain.EventPeriod, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventPeriod), args.Error(1)
}

// MockSummarizer is a mock implementation of domain.NarrativeSummarizer
type MockSummarizer struct {
	mock.Mock
}

// InvestmentAdvice returns the advice configured for the call
func (m *MockSummarizer) InvestmentAdvice(ctx context.Context, event string, scenarios []domain.ScenarioSummary) (string, error) {
	args := m.Called(ctx, event, scenarios)
	return args.String(0), args.Error(1)
}

// EventAnalysis returns the analysis configured for the call
func (m *MockSummarizer) EventAnalysis(ctx context.Context, event string, period domain.EventPeriod, impact domain.MarketImpact) (string, error) {
	args := m.Called(ctx, event, period, impact)
	return args.String(0), args.Error(1)
}

// MockPortfolioRepository is a mock implementation of domain.PortfolioRepository
type MockPortfolioRepository struct {
	mock.Mock
}

// Create records the portfolio
func (m *MockPortfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// GetByID returns the portfolio configured for the call
func (m *MockPortfolioRepository) GetByID(ctx context.Context, id string) (*domain.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

// List returns the portfolios configured for the call
func (m *MockPortfolioRepository) List(ctx context.Context) ([]domain.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Portfolio), args.Error(1)
}

// Update records the portfolio
func (m *MockPortfolioRepository) Update(ctx context.Context, p *domain.Portfolio) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// Delete records the deletion
func (m *MockPortfolioRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
