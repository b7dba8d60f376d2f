package testing

import (
	"time"

	"github.com/aristath/market-confidence/internal/domain"
)

// Day returns UTC midnight of the given calendar date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewPortfolioFixture returns a two-asset portfolio with a 60/40 split
func NewPortfolioFixture() *domain.Portfolio {
	return &domain.Portfolio{
		ID:   "11111111-1111-4111-8111-111111111111",
		Name: "Balanced",
		Assets: []domain.PortfolioAsset{
			{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Type: domain.AssetTypeETF, Allocation: 60},
			{Symbol: "AGG", Name: "iShares Core U.S. Aggregate Bond ETF", Type: domain.AssetTypeETF, Allocation: 40},
		},
		CreatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

// NewBarsFixture builds consecutive daily bars starting at start, one per close
func NewBarsFixture(start time.Time, closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}
