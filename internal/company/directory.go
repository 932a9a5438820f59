// Package company serves registry queries and merges ingested ESG records.
package company

import (
	"context"

	"github.com/ethicalfinder/esg-api/internal/apperr"
	"github.com/ethicalfinder/esg-api/internal/model"
)

// searchLimit caps free-text directory results.
const searchLimit = 10

// Registry is the slice of the store the directory reads from.
type Registry interface {
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	FindByTicker(ctx context.Context, ticker string) (*model.Company, error)
	SearchCompanies(ctx context.Context, pattern string, limit int) ([]model.Company, error)
}

// Query holds the directory selectors. Exactly one must be set.
type Query struct {
	ID     string
	Ticker string
	Q      string
}

// SearchResult is the free-text query response shape.
type SearchResult struct {
	Matches      []model.Company `json:"matches"`
	TotalResults int             `json:"totalResults"`
}

// Directory answers company queries against the registry.
type Directory struct {
	store Registry
}

// NewDirectory creates a Directory backed by the given store.
func NewDirectory(st Registry) *Directory {
	return &Directory{store: st}
}

// GetByID fetches a single company by exact id.
func (d *Directory) GetByID(ctx context.Context, id string) (*model.Company, error) {
	c, err := d.store.GetCompany(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "company: get by id")
	}
	if c == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "company not found: %s", id)
	}
	return c, nil
}

// GetByTicker fetches a single company by ticker, case-insensitively.
func (d *Directory) GetByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	c, err := d.store.FindByTicker(ctx, ticker)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "company: get by ticker")
	}
	if c == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "no company for ticker: %s", ticker)
	}
	return c, nil
}

// Search runs a case-insensitive substring match over names and aliases.
// An empty result set is a valid response, not an error.
func (d *Directory) Search(ctx context.Context, pattern string) (*SearchResult, error) {
	matches, err := d.store.SearchCompanies(ctx, pattern, searchLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "company: search")
	}
	if matches == nil {
		matches = []model.Company{}
	}
	return &SearchResult{Matches: matches, TotalResults: len(matches)}, nil
}

// Resolve dispatches a directory query to the matching operation. Exactly
// one selector must be set; id and ticker return a single company, q a
// search result.
func (d *Directory) Resolve(ctx context.Context, q Query) (any, error) {
	set := 0
	for _, v := range []string{q.ID, q.Ticker, q.Q} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, apperr.New(apperr.KindInvalidArgument,
			"exactly one of id, ticker, or q is required")
	}

	switch {
	case q.ID != "":
		return d.GetByID(ctx, q.ID)
	case q.Ticker != "":
		return d.GetByTicker(ctx, q.Ticker)
	default:
		return d.Search(ctx, q.Q)
	}
}
