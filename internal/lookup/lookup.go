// Package lookup orchestrates product lookups: validation, cache-aside
// against the store, and dispatch to the external catalog.
package lookup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ethicalfinder/esg-api/internal/apperr"
	"github.com/ethicalfinder/esg-api/internal/metrics"
	"github.com/ethicalfinder/esg-api/internal/model"
	"github.com/ethicalfinder/esg-api/internal/product"
	"github.com/ethicalfinder/esg-api/pkg/openfoodfacts"
)

// Request holds the lookup identifiers. Exactly one must be set.
type Request struct {
	UPC  string
	EAN  string
	GTIN string
	Q    string
}

// identifier returns the first non-empty identifier in priority order.
// That value is both the upstream query and the cache key.
func (r Request) identifier() string {
	for _, v := range []string{r.UPC, r.EAN, r.GTIN, r.Q} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r Request) count() int {
	n := 0
	for _, v := range []string{r.UPC, r.EAN, r.GTIN, r.Q} {
		if v != "" {
			n++
		}
	}
	return n
}

// isBarcode reports whether the request carries a barcode identifier and
// therefore dispatches to the barcode endpoint rather than search.
func (r Request) isBarcode() bool {
	return r.UPC != "" || r.EAN != "" || r.GTIN != ""
}

// ProductCache is the slice of the store the orchestrator needs.
type ProductCache interface {
	GetCachedProduct(ctx context.Context, key string) (*model.Product, error)
	SetCachedProduct(ctx context.Context, key string, p *model.Product, ttl time.Duration) error
}

// Service performs cache-aside product lookups.
type Service struct {
	cache   ProductCache
	catalog openfoodfacts.Client
	ttl     time.Duration
}

// NewService creates a lookup service. ttl governs how long fetched products
// stay cached.
func NewService(cache ProductCache, catalog openfoodfacts.Client, ttl time.Duration) *Service {
	return &Service{cache: cache, catalog: catalog, ttl: ttl}
}

// Lookup resolves a product for the request. Cache hits are returned
// verbatim; misses go upstream, get normalized, and are cached best-effort.
// Error kinds from the catalog pass through unchanged.
func (s *Service) Lookup(ctx context.Context, req Request) (*model.Product, error) {
	if req.count() != 1 {
		return nil, apperr.New(apperr.KindInvalidArgument,
			"exactly one of upc, ean, gtin, or q is required")
	}
	key := req.identifier()

	cached, err := s.cache.GetCachedProduct(ctx, key)
	if err != nil {
		// A broken cache read degrades to a miss rather than failing the
		// lookup.
		zap.L().Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}
	if cached != nil {
		metrics.ProductCacheHits.Inc()
		return cached, nil
	}
	metrics.ProductCacheMisses.Inc()

	raw, err := s.fetch(ctx, req, key)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	metrics.CatalogRequestsTotal.WithLabelValues("ok").Inc()

	p := product.Normalize(raw, key)

	if err := s.cache.SetCachedProduct(ctx, key, p, s.ttl); err != nil {
		zap.L().Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return p, nil
}

func (s *Service) fetch(ctx context.Context, req Request, key string) (*openfoodfacts.RawProduct, error) {
	if req.isBarcode() {
		return s.catalog.GetByCode(ctx, key)
	}
	results, err := s.catalog.SearchByText(ctx, key)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func outcomeLabel(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindRateLimited:
		return "rate_limited"
	default:
		return "error"
	}
}
