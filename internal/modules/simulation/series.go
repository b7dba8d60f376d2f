package simulation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/aristath/market-confidence/internal/domain"
)

// AssetFetched is reported after each asset history fetch
type AssetFetched func(symbol string, points int)

// CollectSeries fetches each asset's history and pairs it with its allocation snapshot.
// Assets for which the provider returned nothing are left out; they would only
// contribute zero on every date.
func CollectSeries(
	ctx context.Context,
	provider domain.PriceHistoryProvider,
	assets []domain.PortfolioAsset,
	req domain.HistoryRequest,
	onFetched AssetFetched,
) []domain.AllocatedAssetSeries {
	series := make([]domain.AllocatedAssetSeries, 0, len(assets))

	for _, asset := range assets {
		if ctx.Err() != nil {
			break
		}

		points := domain.ClosePoints(provider.GetHistory(ctx, asset.Symbol, req))
		if onFetched != nil {
			onFetched(asset.Symbol, len(points))
		}
		if len(points) == 0 {
			continue
		}

		series = append(series, domain.AllocatedAssetSeries{
			Symbol:     asset.Symbol,
			Allocation: decimal.NewFromFloat(asset.Allocation),
			Series:     points,
		})
	}

	return series
}

// InvestmentAmount converts an optional portfolio amount to a decimal
func InvestmentAmount(amount *float64) *decimal.Decimal {
	if amount == nil {
		return nil
	}
	d := decimal.NewFromFloat(*amount)
	return &d
}
