/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the API. It is built once
 * by Wire and handed to the server, which only reads from it.
 */
package di

import (
	"github.com/aristath/market-confidence/internal/clientdata"
	"github.com/aristath/market-confidence/internal/clients/openai"
	"github.com/aristath/market-confidence/internal/clients/yahoo"
	"github.com/aristath/market-confidence/internal/database"
	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/charts"
	"github.com/aristath/market-confidence/internal/modules/events"
	"github.com/aristath/market-confidence/internal/modules/market"
	"github.com/aristath/market-confidence/internal/modules/portfolio"
	"github.com/aristath/market-confidence/internal/modules/simulation"
	"github.com/aristath/market-confidence/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	PortfolioDB  *database.DB // nil when portfolios are kept in memory
	ClientDataDB *database.DB

	// Repositories
	CacheRepo     *clientdata.Repository
	PortfolioRepo domain.PortfolioRepository

	// Clients. OpenAI collaborators are nil when no API key is configured.
	YahooClient    *yahoo.Client
	OpenAIClient   *openai.Client
	PeriodResolver *openai.PeriodResolver
	Advisor        *openai.Advisor

	// Services
	Catalog           *market.Catalog
	PortfolioService  *portfolio.Service
	SimulationService *simulation.Service
	EventAnalyzer     *events.Analyzer
	ChartsService     *charts.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases, skipping the ones not in use
func (c *Container) Databases() []*database.DB {
	dbs := make([]*database.DB, 0, 2)
	if c.PortfolioDB != nil {
		dbs = append(dbs, c.PortfolioDB)
	}
	if c.ClientDataDB != nil {
		dbs = append(dbs, c.ClientDataDB)
	}
	return dbs
}

// Close closes every open database
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
