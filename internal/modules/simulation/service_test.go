package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-confidence/internal/domain"
	testingpkg "github.com/aristath/market-confidence/internal/testing"
)

type serviceMocks struct {
	repo       *testingpkg.MockPortfolioRepository
	resolver   *testingpkg.MockPeriodResolver
	provider   *testingpkg.MockPriceProvider
	summarizer *testingpkg.MockSummarizer
}

func newServiceWithMocks() (*Service, serviceMocks) {
	m := serviceMocks{
		repo:       new(testingpkg.MockPortfolioRepository),
		resolver:   new(testingpkg.MockPeriodResolver),
		provider:   new(testingpkg.MockPriceProvider),
		summarizer: new(testingpkg.MockSummarizer),
	}
	return NewService(m.repo, m.resolver, m.provider, m.summarizer, zerolog.Nop()), m
}

var covidPeriod = &domain.EventPeriod{
	Start: testingpkg.Day(2020, 2, 20),
	End:   testingpkg.Day(2020, 2, 25),
}

func covidRequest() domain.HistoryRequest {
	return domain.HistoryRequest{Start: covidPeriod.Start, End: covidPeriod.End}
}

func TestRunEventSimulation(t *testing.T) {
	svc, m := newServiceWithMocks()
	ctx := context.Background()
	p := testingpkg.NewPortfolioFixture()

	m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
	m.resolver.On("ResolvePeriod", ctx, "COVID-19 crash").Return(covidPeriod, nil)
	m.provider.On("GetHistory", mock.Anything, "SPY", covidRequest()).
		Return(testingpkg.NewBarsFixture(covidPeriod.Start, 100, 80, 60, 90, 110))
	m.provider.On("GetHistory", mock.Anything, "AGG", covidRequest()).Return(nil)
	m.summarizer.On("InvestmentAdvice", mock.Anything, "COVID-19 crash", mock.AnythingOfType("[]domain.ScenarioSummary")).
		Return("Adding during the drawdown paid off.", nil)

	var stages []ProgressStage
	report, err := svc.RunEventSimulation(ctx, Request{PortfolioID: p.ID, Event: "COVID-19 crash"}, func(pr Progress) {
		stages = append(stages, pr.Stage)
	})
	require.NoError(t, err)

	assert.Equal(t, "COVID-19 crash", report.Event)
	assert.Equal(t, PortfolioRef{ID: p.ID, Name: p.Name}, report.Portfolio)
	assert.Equal(t, covidPeriod.Start, report.TimePeriod.Start)
	assert.Equal(t, covidPeriod.End, report.TimePeriod.End)
	assert.Equal(t, testingpkg.Day(2020, 2, 22), report.TimePeriod.Middle)

	require.Len(t, report.SimulationResults, 3)
	assert.Equal(t, "No Changes", report.SimulationResults[0].Scenario)
	assert.Equal(t, "20% Withdrawal", report.SimulationResults[1].Scenario)
	assert.Equal(t, "20% Addition", report.SimulationResults[2].Scenario)
	// SPY carries a 60% weight, so the shape of the series follows SPY exactly
	require.NotNil(t, report.SimulationResults[0].TotalReturn)
	assert.InDelta(t, 10.0, *report.SimulationResults[0].TotalReturn, 1e-9)

	assert.Equal(t, Advice{BestScenario: "20% Addition", Text: "Adding during the drawdown paid off."}, report.Advice)

	require.Len(t, report.AssetPerformance, 1)
	spy := report.AssetPerformance["SPY"]
	assert.Equal(t, "SPDR S&P 500 ETF Trust", spy.Name)
	assert.Equal(t, 60.0, spy.Allocation)
	assert.Len(t, spy.Performance, 5)

	assert.Equal(t, []ProgressStage{
		StagePeriodResolved, StageAssetFetched, StageAssetFetched, StageSimulated, StageAdviceReady,
	}, stages)
	m.summarizer.AssertExpectations(t)
}

func TestRunEventSimulation_Errors(t *testing.T) {
	ctx := context.Background()
	p := testingpkg.NewPortfolioFixture()

	tests := []struct {
		name    string
		setup   func(m serviceMocks)
		wantErr error
	}{
		{
			name: "portfolio not found",
			setup: func(m serviceMocks) {
				m.repo.On("GetByID", ctx, p.ID).Return(nil, domain.ErrPortfolioNotFound)
			},
			wantErr: domain.ErrPortfolioNotFound,
		},
		{
			name: "period unresolved",
			setup: func(m serviceMocks) {
				m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
				m.resolver.On("ResolvePeriod", ctx, "crash").Return(nil, errors.New("model returned garbage"))
			},
			wantErr: domain.ErrPeriodUnresolved,
		},
		{
			name: "no market data",
			setup: func(m serviceMocks) {
				m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
				m.resolver.On("ResolvePeriod", ctx, "crash").Return(covidPeriod, nil)
				m.provider.On("GetHistory", mock.Anything, mock.Anything, covidRequest()).Return(nil)
			},
			wantErr: ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newServiceWithMocks()
			tt.setup(m)

			_, err := svc.RunEventSimulation(ctx, Request{PortfolioID: p.ID, Event: "crash"}, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			m.summarizer.AssertNotCalled(t, "InvestmentAdvice", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunEventSimulation_AdviceFallback(t *testing.T) {
	svc, m := newServiceWithMocks()
	ctx := context.Background()
	p := testingpkg.NewPortfolioFixture()
	p.Assets = p.Assets[:1]

	m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
	m.resolver.On("ResolvePeriod", ctx, "crash").Return(covidPeriod, nil)
	// Adding at the pivot lifts every later value, so with positive prices it always ranks first
	m.provider.On("GetHistory", mock.Anything, "SPY", covidRequest()).
		Return(testingpkg.NewBarsFixture(covidPeriod.Start, 100, 90, 80, 70))
	m.summarizer.On("InvestmentAdvice", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("rate limited"))

	report, err := svc.RunEventSimulation(ctx, Request{PortfolioID: p.ID, Event: "crash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "20% Addition", report.Advice.BestScenario)
	assert.Equal(t, FallbackAdvice, report.Advice.Text)
}

func TestRunEventSimulation_WithoutCollaborators(t *testing.T) {
	repo := new(testingpkg.MockPortfolioRepository)
	p := testingpkg.NewPortfolioFixture()
	repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	svc := NewService(repo, nil, new(testingpkg.MockPriceProvider), nil, zerolog.Nop())
	_, err := svc.RunEventSimulation(context.Background(), Request{PortfolioID: p.ID, Event: "crash"}, nil)
	assert.ErrorIs(t, err, domain.ErrPeriodUnresolved)
}

func TestReportJSON(t *testing.T) {
	period := TimePeriod{Start: testingpkg.Day(2020, 2, 20), End: testingpkg.Day(2020, 4, 7), Middle: testingpkg.Day(2020, 3, 13)}
	data, err := period.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_date":"2020-02-20","end_date":"2020-04-07","middle_date":"2020-03-13"}`, string(data))
}
