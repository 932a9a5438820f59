// Package ingest loads ESG factor CSVs into the company registry.
package ingest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ethicalfinder/esg-api/internal/company"
	"github.com/ethicalfinder/esg-api/internal/metrics"
	"github.com/ethicalfinder/esg-api/internal/model"
)

// SourceName identifies the provenance recorded on ingested ESG sources.
const SourceName = "kaggle-public-company-esg"

// maxSkipReasons bounds how many skip explanations the summary keeps.
const maxSkipReasons = 3

// Registry is the slice of the store ingestion writes through.
type Registry interface {
	FindByTicker(ctx context.Context, ticker string) (*model.Company, error)
	CreateCompany(ctx context.Context, c *model.Company) error
	UpdateCompany(ctx context.Context, c *model.Company) error
}

// Stats summarizes an ingestion run.
type Stats struct {
	Inserted    int
	Updated     int
	Skipped     int
	SkipReasons []string
}

func (s *Stats) skip(reason string) {
	s.Skipped++
	metrics.IngestRowsTotal.WithLabelValues("skipped").Inc()
	if len(s.SkipReasons) < maxSkipReasons {
		s.SkipReasons = append(s.SkipReasons, reason)
	}
}

// Ingester streams ESG CSV rows into the registry.
type Ingester struct {
	registry Registry
	now      func() time.Time
}

// New creates an Ingester.
func New(registry Registry) *Ingester {
	return &Ingester{registry: registry, now: time.Now}
}

// Run processes every row of the CSV. Expected columns: ticker, name,
// weburl, environment_score, social_score, governance_score,
// last_processing_date. Per-row failures are counted and skipped; only
// stream-level failures abort the run.
func (in *Ingester) Run(ctx context.Context, r io.Reader) (*Stats, error) {
	stats := &Stats{}

	rowCh, errCh := streamRows(ctx, r)
	for row := range rowCh {
		in.processRow(ctx, row, stats)
	}
	if err := <-errCh; err != nil {
		return stats, err
	}

	zap.L().Info("ingestion complete",
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Strings("skip_reasons", stats.SkipReasons))
	return stats, nil
}

func (in *Ingester) processRow(ctx context.Context, row Row, stats *Stats) {
	ticker := strings.ToUpper(strings.TrimSpace(row["ticker"]))
	if ticker == "" {
		stats.skip(fmt.Sprintf("missing ticker: %q", row["ticker"]))
		return
	}

	e := num(row["environment_score"])
	s := num(row["social_score"])
	g := num(row["governance_score"])
	e, s, g = rescale(e, s, g)

	if e == nil && s == nil && g == nil {
		stats.skip("all ESG scores null for ticker: " + ticker)
		return
	}

	name := row["name"]
	if name == "" {
		name = "Unknown Company"
	}

	candidate := &model.Company{
		Name:    name,
		Aliases: []string{name},
		Tickers: []string{ticker},
		ESGSources: []model.ESGSource{{
			Source: SourceName,
			AsOf:   in.normalizeAsOf(ticker, row["last_processing_date"]),
			Raw: model.RawFactors{
				E: e, S: s, G: g,
				Scale: model.ScaleZeroToHundred,
			},
		}},
	}
	if domain := registrableDomain(row["weburl"]); domain != "" {
		candidate.Domains = []string{domain}
	}

	existing, err := in.registry.FindByTicker(ctx, ticker)
	if err != nil {
		stats.skip(fmt.Sprintf("lookup failed for ticker %s: %v", ticker, err))
		return
	}

	if existing == nil {
		if err := in.registry.CreateCompany(ctx, candidate); err != nil {
			stats.skip(fmt.Sprintf("insert failed for ticker %s: %v", ticker, err))
			return
		}
		stats.Inserted++
		metrics.IngestRowsTotal.WithLabelValues("inserted").Inc()
		return
	}

	company.Merge(existing, candidate)
	if err := in.registry.UpdateCompany(ctx, existing); err != nil {
		stats.skip(fmt.Sprintf("update failed for ticker %s: %v", ticker, err))
		return
	}
	stats.Updated++
	metrics.IngestRowsTotal.WithLabelValues("updated").Inc()
}

// num parses a numeric cell, treating empty, "null", and garbage as null.
func num(s string) *float64 {
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// rescale maps factors onto 0-100 when any of them exceeds 100, assuming a
// proportionally larger source scale. Each non-null factor is multiplied by
// 100/max and rounded.
func rescale(e, s, g *float64) (*float64, *float64, *float64) {
	max := 0.0
	for _, v := range []*float64{e, s, g} {
		if v != nil && *v > max {
			max = *v
		}
	}
	if max <= 100 {
		return e, s, g
	}

	factor := 100 / max
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		scaled := math.Round(*v * factor)
		return &scaled
	}
	return scale(e), scale(s), scale(g)
}

// asOfFormats are the date shapes seen in public ESG exports.
var asOfFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// normalizeAsOf renders the row date as RFC 3339 UTC. Dates enter the store
// only in this zero-padded form so that lexicographic recency comparisons
// downstream stay correct. Unparseable dates fall back to ingestion time.
func (in *Ingester) normalizeAsOf(ticker, raw string) string {
	if raw != "" && raw != "null" {
		for _, layout := range asOfFormats {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC().Format(time.RFC3339)
			}
		}
		zap.L().Warn("unparseable processing date, using ingestion time",
			zap.String("ticker", ticker), zap.String("date", raw))
	}
	return in.now().UTC().Format(time.RFC3339)
}

// registrableDomain extracts the host from a web URL, dropping the scheme
// and a leading www.
func registrableDomain(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
