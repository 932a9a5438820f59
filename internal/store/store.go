// Package store persists companies and the product lookup cache.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ethicalfinder/esg-api/internal/config"
	"github.com/ethicalfinder/esg-api/internal/model"
)

// Store defines the persistence interface for the company registry and the
// product cache.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	UpdateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	// FindByTicker matches case-insensitively. Uniqueness of tickers under
	// case-insensitive comparison is enforced at write time, not re-checked
	// on reads.
	FindByTicker(ctx context.Context, ticker string) (*model.Company, error)
	// SearchCompanies matches pattern as a case-insensitive substring of
	// the name or any alias, in store iteration order.
	SearchCompanies(ctx context.Context, pattern string, limit int) ([]model.Company, error)

	// Product cache. Entries are invisible once expired; the store reaps
	// them itself via DeleteExpiredProducts.
	GetCachedProduct(ctx context.Context, key string) (*model.Product, error)
	SetCachedProduct(ctx context.Context, key string, p *model.Product, ttl time.Duration) error
	DeleteExpiredProducts(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
