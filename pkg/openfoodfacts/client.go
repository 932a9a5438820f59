// Package openfoodfacts provides a client for the OpenFoodFacts v2 API.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/ethicalfinder/esg-api/internal/apperr"
)

// Hosts per environment. Staging requires the fixed off/off basic auth.
const (
	prodBaseURL    = "https://world.openfoodfacts.org/api/v2"
	stagingBaseURL = "https://world.openfoodfacts.net/api/v2"

	defaultTimeout = 10 * time.Second

	searchFields   = "code,product_name,brands,categories,image_url,image_front_url"
	searchPageSize = 10
)

// Client defines the product catalog operations.
type Client interface {
	// GetByCode fetches a single product by barcode.
	GetByCode(ctx context.Context, code string) (*RawProduct, error)
	// SearchByText performs a free-text product search. Results keep the
	// API's own ordering; no re-ranking is applied.
	SearchByText(ctx context.Context, query string) ([]RawProduct, error)
}

// RawProduct is the subset of an OpenFoodFacts record this service reads.
// Field pairs (Brands/Brand, Categories/Category) cover the two shapes the
// API returns across endpoints.
type RawProduct struct {
	Code          string          `json:"code"`
	ProductName   string          `json:"product_name"`
	Name          string          `json:"name"`
	Brands        string          `json:"brands"`
	Brand         string          `json:"brand"`
	Categories    string          `json:"categories"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"image_url"`
	ImageFrontURL string          `json:"image_front_url"`
	LastModifiedT json.RawMessage `json:"last_modified_t"`
}

// LastModified renders last_modified_t as a string regardless of whether
// the API sent a number or a string.
func (p *RawProduct) LastModified() string {
	if len(p.LastModifiedT) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.LastModifiedT, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(p.LastModifiedT, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

// Config holds the explicit client configuration. Construction is the only
// place the environment switch is consulted; nothing reads ambient process
// state afterwards.
type Config struct {
	Env        string // "prod" (default) or "staging"
	BaseURL    string // overrides the env-derived base URL when set
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64 // outbound politeness limit; 0 disables
	RateBurst  int
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	basicUser string
	basicPass string
	limiter   *rate.Limiter
	http      *http.Client
}

// NewClient creates a catalog client from explicit configuration.
func NewClient(cfg Config, opts ...Option) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &httpClient{
		baseURL:   prodBaseURL,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: timeout,
		},
	}
	if cfg.Env == "staging" {
		c.baseURL = stagingBaseURL
		c.basicUser, c.basicPass = "off", "off"
	}
	if cfg.BaseURL != "" {
		c.baseURL = cfg.BaseURL
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetByCode(ctx context.Context, code string) (*RawProduct, error) {
	reqURL := fmt.Sprintf("%s/product/%s.json", c.baseURL, url.PathEscape(code))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		Product *RawProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: unmarshal product")
	}
	if result.Product == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "product not found for barcode: %s", code)
	}
	return result.Product, nil
}

func (c *httpClient) SearchByText(ctx context.Context, query string) ([]RawProduct, error) {
	params := url.Values{}
	params.Set("fields", searchFields)
	params.Set("page_size", fmt.Sprintf("%d", searchPageSize))
	params.Set("search_terms", query)
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		Products []RawProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: unmarshal search response")
	}
	if len(result.Products) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "no products found for query: %s", query)
	}
	return result.Products, nil
}

// get issues a single request. There is deliberately no retry loop: a
// failed call fails the lookup immediately. The limiter only delays the
// dispatch, it never re-issues.
func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.basicUser != "" {
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "openfoodfacts: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.New(apperr.KindNotFound, "openfoodfacts: product not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperr.New(apperr.KindRateLimited, "openfoodfacts: API rate limit exceeded")
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Wrap(apperr.KindExternalService,
			eris.Errorf("status %d: %s", resp.StatusCode, string(body)),
			"openfoodfacts: unexpected status")
	}

	return body, nil
}
