// Package di provides dependency injection for repositories, clients and services.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/clientdata"
	"github.com/aristath/market-confidence/internal/clients/openai"
	"github.com/aristath/market-confidence/internal/clients/yahoo"
	"github.com/aristath/market-confidence/internal/config"
	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/charts"
	"github.com/aristath/market-confidence/internal/modules/events"
	"github.com/aristath/market-confidence/internal/modules/market"
	"github.com/aristath/market-confidence/internal/modules/portfolio"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

// InitializeRepositories creates the cache and portfolio repositories
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.CacheRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	switch cfg.PortfolioStore {
	case config.StoreSQLite:
		if container.PortfolioDB == nil {
			return fmt.Errorf("portfolio database is not initialized")
		}
		container.PortfolioRepo = portfolio.NewSQLiteRepository(container.PortfolioDB.Conn(), log)
	case config.StoreMemory:
		container.PortfolioRepo = portfolio.NewMemoryRepository()
	default:
		return fmt.Errorf("unknown portfolio store %q", cfg.PortfolioStore)
	}

	log.Info().Str("portfolio_store", cfg.PortfolioStore).Msg("Repositories initialized")
	return nil
}

// InitializeServices creates the external clients and the domain services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.YahooClient = yahoo.NewClient(cfg.YahooBaseURL, container.CacheRepo, log)

	// Held as interfaces so a missing API key leaves them truly nil
	var resolver domain.EventPeriodResolver
	var summarizer domain.NarrativeSummarizer
	if cfg.LLMEnabled() {
		container.OpenAIClient = openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, log)
		container.PeriodResolver = openai.NewPeriodResolver(container.OpenAIClient, container.CacheRepo, log)
		container.Advisor = openai.NewAdvisor(container.OpenAIClient, log)
		resolver = container.PeriodResolver
		summarizer = container.Advisor
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, event periods cannot be resolved and narratives use fallback text")
	}

	container.Catalog = market.DefaultCatalog()
	container.PortfolioService = portfolio.NewService(container.PortfolioRepo, container.YahooClient, log)
	container.SimulationService = simulation.NewService(
		container.PortfolioRepo,
		resolver,
		container.YahooClient,
		summarizer,
		log,
	)
	container.EventAnalyzer = events.NewAnalyzer(resolver, container.YahooClient, summarizer, log)
	container.ChartsService = charts.NewService(container.PortfolioService, container.SimulationService, log)

	log.Info().Bool("llm_enabled", cfg.LLMEnabled()).Msg("Services initialized")
	return nil
}
