// Package esg computes weighted ESG scores from a company's source history.
package esg

import (
	"math"
	"time"

	"github.com/ethicalfinder/esg-api/internal/apperr"
	"github.com/ethicalfinder/esg-api/internal/model"
)

// Base weights applied when all three factors are present.
const (
	baseWeightE = 0.40
	baseWeightS = 0.40
	baseWeightG = 0.20
)

// Confidence parameters. Recency uses a 30-day-month approximation, not
// calendar months; downstream consumers depend on the exact boundary, so
// this must not be "fixed" to calendar arithmetic.
const (
	baseConfidence      = 0.80
	recencyBonus        = 0.05
	completenessBonus   = 0.05
	maxConfidence       = 0.95
	recencyWindowMonths = 24
)

// Engine scores companies. The zero value is not usable; construct with
// NewEngine so the evaluation clock is set.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine using the real clock.
func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// NewEngineAt returns an Engine with a fixed evaluation clock, for tests.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// ComputeScore produces a score report from the company's ESG history.
// It fails with a NotFound kind when the company has no ESG sources, or
// when the selected latest source carries no factors at all. It never
// mutates the company.
func (e *Engine) ComputeScore(company *model.Company) (*model.ScoreReport, error) {
	if len(company.ESGSources) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "no ESG data found for company: %s", company.ID)
	}

	now := e.now()
	latest := latestSource(company.ESGSources, now)

	raw := latest.Raw
	k := raw.FactorCount()
	if k == 0 {
		// All factors null: no meaningful data, and the equal-weight path
		// below would divide by zero.
		return nil, apperr.Newf(apperr.KindNotFound, "no ESG data found for company: %s", company.ID)
	}

	wE, wS, wG := baseWeightE, baseWeightS, baseWeightG
	if k < 3 {
		equal := 1.0 / float64(k)
		wE, wS, wG = 0, 0, 0
		if raw.E != nil {
			wE = equal
		}
		if raw.S != nil {
			wS = equal
		}
		if raw.G != nil {
			wG = equal
		}
	}

	// Null factors contribute zero; their weight is already zero so they
	// never bias the result.
	overall := roundHalfUp(orZero(raw.E)*wE + orZero(raw.S)*wS + orZero(raw.G)*wG)

	confidence := baseConfidence
	if latest.AsOf != "" && withinRecencyWindow(latest.AsOf, now) {
		confidence += recencyBonus
	}
	if raw.Complete() {
		confidence += completenessBonus
	}
	confidence = math.Min(confidence, maxConfidence)

	return &model.ScoreReport{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Overall:     overall,
		Breakdown: model.Breakdown{
			Environment: raw.E,
			Labor:       raw.S,
			Governance:  raw.G,
		},
		Methodology: model.Methodology{
			Version: model.MethodologyVersion,
			Weights: model.Weights{
				Environment: wE,
				Labor:       wS,
				Governance:  wG,
			},
		},
		Confidence:  confidence,
		AsOf:        latest.AsOf,
		LastUpdated: now,
	}, nil
}

// latestSource selects the source with the greatest asOf string. The fold
// is a strict > comparison, so the first-encountered source wins ties.
// Comparison is lexicographic, valid only because asOf strings are
// zero-padded ISO-8601; ingestion enforces that format at its boundary.
// A missing asOf is treated as "now" for the comparison only and is never
// written back.
func latestSource(sources []model.ESGSource, now time.Time) model.ESGSource {
	nowStr := now.Format(time.RFC3339)

	latest := sources[0]
	latestAsOf := latest.AsOf
	if latestAsOf == "" {
		latestAsOf = nowStr
	}

	for _, src := range sources[1:] {
		asOf := src.AsOf
		if asOf == "" {
			asOf = nowStr
		}
		if asOf > latestAsOf {
			latest = src
			latestAsOf = asOf
		}
	}
	return latest
}

// withinRecencyWindow reports whether asOf is at most 24 30-day months
// before now. Unparseable asOf strings earn no bonus.
func withinRecencyWindow(asOf string, now time.Time) bool {
	t, err := parseAsOf(asOf)
	if err != nil {
		return false
	}
	months := now.Sub(t).Hours() / 24 / 30
	return months <= recencyWindowMonths
}

// parseAsOf accepts full RFC 3339 timestamps and bare dates.
func parseAsOf(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// roundHalfUp rounds to the nearest integer with .5 rounding up. Scores
// are always non-negative, so this matches round-half-away-from-zero.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
