package portfolio

import (
	"context"
	"sort"
	"sync"

	"github.com/aristath/market-confidence/internal/domain"
)

// MemoryRepository keeps portfolios for the lifetime of the process
type MemoryRepository struct {
	mu         sync.RWMutex
	portfolios map[string]domain.Portfolio
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{portfolios: make(map[string]domain.Portfolio)}
}

// Create stores a copy of the portfolio
func (r *MemoryRepository) Create(_ context.Context, p *domain.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[p.ID] = clone(*p)
	return nil
}

// GetByID returns a copy of the stored portfolio
func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.portfolios[id]
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	c := clone(p)
	return &c, nil
}

// List returns all portfolios, oldest first
func (r *MemoryRepository) List(_ context.Context) ([]domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Portfolio, 0, len(r.portfolios))
	for _, p := range r.portfolios {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces an existing portfolio
func (r *MemoryRepository) Update(_ context.Context, p *domain.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.portfolios[p.ID]; !ok {
		return domain.ErrPortfolioNotFound
	}
	r.portfolios[p.ID] = clone(*p)
	return nil
}

// Delete removes a portfolio
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.portfolios[id]; !ok {
		return domain.ErrPortfolioNotFound
	}
	delete(r.portfolios, id)
	return nil
}

// clone detaches the asset slice and amount pointer from the caller's copy
func clone(p domain.Portfolio) domain.Portfolio {
	assets := make([]domain.PortfolioAsset, len(p.Assets))
	copy(assets, p.Assets)
	p.Assets = assets
	if p.InvestmentAmount != nil {
		v := *p.InvestmentAmount
		p.InvestmentAmount = &v
	}
	return p
}
