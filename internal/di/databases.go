// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/config"
	"github.com/aristath/market-confidence/internal/database"
)

// InitializeDatabases opens the databases and applies their schemas.
// portfolio.db is only opened when portfolios are stored in SQLite.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// client_data.db - Cached Yahoo history and resolved event periods
	clientDataDB, err := openDatabase(cfg.DataDir, database.NameClientData, database.ProfileCache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	// portfolio.db - Stored portfolios
	if cfg.PortfolioStore == config.StoreSQLite {
		portfolioDB, err := openDatabase(cfg.DataDir, database.NamePortfolio, database.ProfileStandard)
		if err != nil {
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to initialize portfolio database: %w", err)
		}
		container.PortfolioDB = portfolioDB
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("databases", len(container.Databases())).
		Msg("Databases initialized")

	return container, nil
}

func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", name, err)
	}
	return db, nil
}
