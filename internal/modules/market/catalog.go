// Package market provides asset lookup and market data access.
package market

import (
	"strings"

	"github.com/aristath/market-confidence/internal/domain"
)

// MaxSearchResults caps the number of assets returned by Search
const MaxSearchResults = 10

// Asset is a searchable instrument
type Asset struct {
	Symbol string           `json:"symbol"`
	Name   string           `json:"name"`
	Type   domain.AssetType `json:"type"`
}

// Catalog is a fixed list of assets available for portfolios
type Catalog struct {
	assets []Asset
}

// NewCatalog creates a catalog over the given assets, kept in order
func NewCatalog(assets []Asset) *Catalog {
	return &Catalog{assets: assets}
}

// DefaultCatalog returns the built-in list of large US equities and ETFs
func DefaultCatalog() *Catalog {
	return NewCatalog([]Asset{
		{"AAPL", "Apple Inc.", domain.AssetTypeEquity},
		{"MSFT", "Microsoft Corporation", domain.AssetTypeEquity},
		{"AMZN", "Amazon.com, Inc.", domain.AssetTypeEquity},
		{"GOOGL", "Alphabet Inc.", domain.AssetTypeEquity},
		{"META", "Meta Platforms, Inc.", domain.AssetTypeEquity},
		{"TSLA", "Tesla, Inc.", domain.AssetTypeEquity},
		{"SPY", "SPDR S&P 500 ETF Trust", domain.AssetTypeETF},
		{"QQQ", "Invesco QQQ Trust", domain.AssetTypeETF},
		{"VTI", "Vanguard Total Stock Market ETF", domain.AssetTypeETF},
		{"VOO", "Vanguard S&P 500 ETF", domain.AssetTypeETF},
		{"VEA", "Vanguard FTSE Developed Markets ETF", domain.AssetTypeETF},
		{"VWO", "Vanguard FTSE Emerging Markets ETF", domain.AssetTypeETF},
		{"BND", "Vanguard Total Bond Market ETF", domain.AssetTypeETF},
		{"AGG", "iShares Core U.S. Aggregate Bond ETF", domain.AssetTypeETF},
		{"GLD", "SPDR Gold Shares", domain.AssetTypeETF},
		{"IWM", "iShares Russell 2000 ETF", domain.AssetTypeETF},
		{"EFA", "iShares MSCI EAFE ETF", domain.AssetTypeETF},
		{"LQD", "iShares iBoxx $ Investment Grade Corporate Bond ETF", domain.AssetTypeETF},
		{"XLF", "Financial Select Sector SPDR Fund", domain.AssetTypeETF},
		{"XLE", "Energy Select Sector SPDR Fund", domain.AssetTypeETF},
	})
}

// Search returns up to MaxSearchResults assets whose symbol or name
// contains query, ignoring case. An empty query matches everything.
func (c *Catalog) Search(query string) []Asset {
	query = strings.ToLower(query)
	results := make([]Asset, 0, MaxSearchResults)
	for _, a := range c.assets {
		if strings.Contains(strings.ToLower(a.Symbol), query) || strings.Contains(strings.ToLower(a.Name), query) {
			results = append(results, a)
			if len(results) == MaxSearchResults {
				break
			}
		}
	}
	return results
}

// Lookup returns the asset with the given symbol
func (c *Catalog) Lookup(symbol string) (Asset, bool) {
	for _, a := range c.assets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return Asset{}, false
}
