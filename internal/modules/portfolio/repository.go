// Package portfolio provides portfolio storage and management.
package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
)

// SQLiteRepository stores portfolios in portfolio.db.
// Assets are kept as a JSON column since they are always read and written as a whole.
type SQLiteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteRepository creates a new portfolio repository
func NewSQLiteRepository(db *sql.DB, log zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio
func (r *SQLiteRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	assets, err := json.Marshal(p.Assets)
	if err != nil {
		return fmt.Errorf("failed to marshal assets: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, name, assets, investment_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, string(assets), nullFloat(p.InvestmentAmount), p.CreatedAt.UnixMilli(), now)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio %s: %w", p.ID, err)
	}

	r.log.Info().Str("id", p.ID).Str("name", p.Name).Int("assets", len(p.Assets)).Msg("Portfolio created")
	return nil
}

// GetByID returns a portfolio by ID
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, assets, investment_amount, created_at
		FROM portfolios
		WHERE id = ?
	`, id)

	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}
	return p, nil
}

// List returns all portfolios, oldest first
func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Portfolio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, assets, investment_amount, created_at
		FROM portfolios
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

// Update replaces name, assets and investment amount of an existing portfolio
func (r *SQLiteRepository) Update(ctx context.Context, p *domain.Portfolio) error {
	assets, err := json.Marshal(p.Assets)
	if err != nil {
		return fmt.Errorf("failed to marshal assets: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE portfolios
		SET name = ?, assets = ?, investment_amount = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, string(assets), nullFloat(p.InvestmentAmount), time.Now().UnixMilli(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %s: %w", p.ID, err)
	}

	if err := requireAffected(result); err != nil {
		return err
	}

	r.log.Info().Str("id", p.ID).Msg("Portfolio updated")
	return nil
}

// Delete removes a portfolio
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}

	if err := requireAffected(result); err != nil {
		return err
	}

	r.log.Info().Str("id", id).Msg("Portfolio deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var assets string
	var amount sql.NullFloat64
	var createdAt int64

	if err := row.Scan(&p.ID, &p.Name, &assets, &amount, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(assets), &p.Assets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assets for %s: %w", p.ID, err)
	}
	if p.Assets == nil {
		p.Assets = []domain.PortfolioAsset{}
	}
	if amount.Valid {
		v := amount.Float64
		p.InvestmentAmount = &v
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &p, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPortfolioNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
