package di

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-confidence/internal/config"
	"github.com/aristath/market-confidence/internal/modules/portfolio"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:              t.TempDir(),
		Port:                 8000,
		YahooBaseURL:         "http://127.0.0.1:1",
		PortfolioStore:       config.StoreSQLite,
		CacheCleanupSchedule: "0 0 3 * * *",
	}
}

func TestWire_SQLiteStore(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.PortfolioDB)
	assert.NotNil(t, container.ClientDataDB)
	assert.Len(t, container.Databases(), 2)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "portfolio.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "client_data.db"))

	assert.IsType(t, &portfolio.SQLiteRepository{}, container.PortfolioRepo)
	assert.NotNil(t, container.CacheRepo)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.Catalog)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.SimulationService)
	assert.NotNil(t, container.EventAnalyzer)
	assert.NotNil(t, container.ChartsService)

	require.NotNil(t, jobs)
	assert.Equal(t, "client_data_cleanup", jobs.CacheCleanup.Name())
	assert.Equal(t, "wal_checkpoint", jobs.WALCheckpoint.Name())
	assert.Len(t, container.Scheduler.Status(), 2)
}

func TestWire_MemoryStoreSkipsPortfolioDB(t *testing.T) {
	cfg := testConfig(t)
	cfg.PortfolioStore = config.StoreMemory

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.Nil(t, container.PortfolioDB)
	assert.Len(t, container.Databases(), 1)
	assert.IsType(t, &portfolio.MemoryRepository{}, container.PortfolioRepo)
	assert.NoFileExists(t, filepath.Join(cfg.DataDir, "portfolio.db"))
}

func TestWire_LLMCollaborators(t *testing.T) {
	t.Run("disabled without api key", func(t *testing.T) {
		container, _, err := Wire(testConfig(t), zerolog.Nop())
		require.NoError(t, err)
		defer container.Close()

		assert.Nil(t, container.OpenAIClient)
		assert.Nil(t, container.PeriodResolver)
		assert.Nil(t, container.Advisor)
	})

	t.Run("enabled with api key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.OpenAIAPIKey = "sk-test"
		cfg.OpenAIModel = "gpt-3.5-turbo"

		container, _, err := Wire(cfg, zerolog.Nop())
		require.NoError(t, err)
		defer container.Close()

		assert.NotNil(t, container.OpenAIClient)
		assert.NotNil(t, container.PeriodResolver)
		assert.NotNil(t, container.Advisor)
	})
}

func TestWire_InvalidCleanupSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheCleanupSchedule = "not a schedule"

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register jobs")
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}

func TestInitializeRepositories_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	cfg.PortfolioStore = "postgres"
	err = InitializeRepositories(container, cfg, zerolog.Nop())
	assert.EqualError(t, err, `unknown portfolio store "postgres"`)
}

func TestRegisterJobs_NilContainer(t *testing.T) {
	_, err := RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
