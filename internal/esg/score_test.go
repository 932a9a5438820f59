package esg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethicalfinder/esg-api/internal/apperr"
	"github.com/ethicalfinder/esg-api/internal/model"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func fixedEngine() *Engine {
	return NewEngineAt(func() time.Time { return testNow })
}

func f(v float64) *float64 { return &v }

func companyWith(sources ...model.ESGSource) *model.Company {
	return &model.Company{
		ID:         "c-1",
		Name:       "Acme Corp",
		ESGSources: sources,
	}
}

func source(asOf string, e, s, g *float64) model.ESGSource {
	return model.ESGSource{
		Source: "kaggle-public-company-esg",
		AsOf:   asOf,
		Raw:    model.RawFactors{E: e, S: s, G: g, Scale: model.ScaleZeroToHundred},
	}
}

func TestComputeScore_AllFactors(t *testing.T) {
	c := companyWith(source("2026-08-01T00:00:00Z", f(80), f(70), f(60)))

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)

	// 80*0.4 + 70*0.4 + 60*0.2 = 72
	assert.Equal(t, 72, report.Overall)
	assert.Equal(t, "c-1", report.CompanyID)
	assert.Equal(t, "Acme Corp", report.CompanyName)
	assert.Equal(t, "1.0.0", report.Methodology.Version)
	assert.InDelta(t, 0.40, report.Methodology.Weights.Environment, 1e-9)
	assert.InDelta(t, 0.40, report.Methodology.Weights.Labor, 1e-9)
	assert.InDelta(t, 0.20, report.Methodology.Weights.Governance, 1e-9)
	// Recent and complete: 0.80 + 0.05 + 0.05.
	assert.InDelta(t, 0.90, report.Confidence, 1e-9)
	assert.Equal(t, "2026-08-01T00:00:00Z", report.AsOf)
	assert.Equal(t, testNow, report.LastUpdated)
}

func TestComputeScore_WeightRenormalization(t *testing.T) {
	c := companyWith(source("2026-08-01T00:00:00Z", f(80), nil, f(60)))

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)

	// E and G each get 0.5, S gets 0: round(80*0.5 + 60*0.5) = 70.
	assert.Equal(t, 70, report.Overall)
	assert.InDelta(t, 0.5, report.Methodology.Weights.Environment, 1e-9)
	assert.InDelta(t, 0.0, report.Methodology.Weights.Labor, 1e-9)
	assert.InDelta(t, 0.5, report.Methodology.Weights.Governance, 1e-9)
	assert.Nil(t, report.Breakdown.Labor)
}

func TestComputeScore_SingleFactor(t *testing.T) {
	c := companyWith(source("2026-08-01T00:00:00Z", nil, nil, f(55)))

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)

	assert.Equal(t, 55, report.Overall)
	assert.InDelta(t, 1.0, report.Methodology.Weights.Governance, 1e-9)
}

func TestComputeScore_NoSources(t *testing.T) {
	_, err := fixedEngine().ComputeScore(companyWith())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestComputeScore_LatestSourceAllNull(t *testing.T) {
	// The newer source has no factors; it still wins selection and the
	// score must fail rather than fall back to the older source.
	c := companyWith(
		source("2024-01-01T00:00:00Z", f(80), f(70), f(60)),
		source("2026-01-01T00:00:00Z", nil, nil, nil),
	)

	_, err := fixedEngine().ComputeScore(c)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestComputeScore_LatestSelection(t *testing.T) {
	c := companyWith(
		source("2023-05-01T00:00:00Z", f(10), f(10), f(10)),
		source("2025-05-01T00:00:00Z", f(90), f(90), f(90)),
		source("2024-05-01T00:00:00Z", f(50), f(50), f(50)),
	)

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	assert.Equal(t, 90, report.Overall)
	assert.Equal(t, "2025-05-01T00:00:00Z", report.AsOf)
}

func TestComputeScore_TieKeepsFirst(t *testing.T) {
	c := companyWith(
		source("2025-05-01T00:00:00Z", f(40), f(40), f(40)),
		source("2025-05-01T00:00:00Z", f(90), f(90), f(90)),
	)

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	// Strict > comparison: the first-encountered source wins the tie.
	assert.Equal(t, 40, report.Overall)
}

func TestComputeScore_MissingAsOfTreatedAsNow(t *testing.T) {
	// The source with no asOf compares as "now", beating the dated one,
	// but the report's asOf stays empty: nothing is persisted back.
	c := companyWith(
		source("2020-01-01T00:00:00Z", f(10), f(10), f(10)),
		source("", f(80), f(80), f(80)),
	)

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	assert.Equal(t, 80, report.Overall)
	assert.Equal(t, "", report.AsOf)
	// Empty asOf earns no recency bonus; completeness still applies.
	assert.InDelta(t, 0.85, report.Confidence, 1e-9)
}

func TestComputeScore_ConfidenceStaleIncomplete(t *testing.T) {
	// Older than 24 30-day months, only two factors: base confidence only.
	c := companyWith(source("2023-01-01T00:00:00Z", f(80), f(60), nil))

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.80, report.Confidence, 1e-9)
}

func TestComputeScore_ConfidenceRecentComplete(t *testing.T) {
	c := companyWith(source(testNow.Format(time.RFC3339), f(80), f(60), f(40)))

	report, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.90, report.Confidence, 1e-9)
}

func TestComputeScore_RecencyUsesThirtyDayMonths(t *testing.T) {
	// 24 * 30 days exactly on the boundary still earns the bonus; one day
	// past it does not. Calendar months would draw the line elsewhere.
	onBoundary := testNow.AddDate(0, 0, -24*30)
	pastBoundary := testNow.AddDate(0, 0, -24*30-1)

	report, err := fixedEngine().ComputeScore(
		companyWith(source(onBoundary.Format(time.RFC3339), f(50), nil, nil)))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, report.Confidence, 1e-9)

	report, err = fixedEngine().ComputeScore(
		companyWith(source(pastBoundary.Format(time.RFC3339), f(50), nil, nil)))
	require.NoError(t, err)
	assert.InDelta(t, 0.80, report.Confidence, 1e-9)
}

func TestComputeScore_ConfidenceCapped(t *testing.T) {
	report, err := fixedEngine().ComputeScore(
		companyWith(source(testNow.Format(time.RFC3339), f(100), f(100), f(100))))
	require.NoError(t, err)
	assert.LessOrEqual(t, report.Confidence, 0.95)
	assert.Equal(t, 100, report.Overall)
}

func TestComputeScore_RangeInvariants(t *testing.T) {
	cases := []model.ESGSource{
		source("2026-01-01T00:00:00Z", f(0), f(0), f(0)),
		source("2026-01-01T00:00:00Z", f(100), nil, nil),
		source("1999-01-01T00:00:00Z", nil, f(33.4), f(66.6)),
	}
	for _, src := range cases {
		report, err := fixedEngine().ComputeScore(companyWith(src))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.Overall, 0)
		assert.LessOrEqual(t, report.Overall, 100)
		assert.GreaterOrEqual(t, report.Confidence, 0.80)
		assert.LessOrEqual(t, report.Confidence, 0.95)
	}
}

func TestComputeScore_DoesNotMutateCompany(t *testing.T) {
	c := companyWith(
		source("", f(10), f(10), f(10)),
		source("2020-01-01T00:00:00Z", f(20), f(20), f(20)),
	)

	_, err := fixedEngine().ComputeScore(c)
	require.NoError(t, err)
	assert.Equal(t, "", c.ESGSources[0].AsOf)
	assert.Equal(t, "2020-01-01T00:00:00Z", c.ESGSources[1].AsOf)
}
