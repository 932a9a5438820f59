package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethicalfinder/esg-api/internal/model"
)

const csvHeader = "ticker,name,weburl,environment_score,social_score,governance_score,last_processing_date\n"

type fakeRegistry struct {
	companies map[string]*model.Company // keyed by upper-cased ticker
	createErr error
	updateErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{companies: map[string]*model.Company{}}
}

func (f *fakeRegistry) FindByTicker(_ context.Context, ticker string) (*model.Company, error) {
	return f.companies[strings.ToUpper(ticker)], nil
}

func (f *fakeRegistry) CreateCompany(_ context.Context, c *model.Company) error {
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = "id-" + c.Tickers[0]
	f.companies[strings.ToUpper(c.Tickers[0])] = c
	return nil
}

func (f *fakeRegistry) UpdateCompany(_ context.Context, c *model.Company) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.companies[strings.ToUpper(c.Tickers[0])] = c
	return nil
}

func testIngester(reg Registry) *Ingester {
	in := New(reg)
	in.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return in
}

func TestRun_InsertsNewCompany(t *testing.T) {
	reg := newFakeRegistry()
	in := testIngester(reg)

	csv := csvHeader + "acme,Acme Corp,https://www.acme.com/about,70,65,80,2026-01-15\n"
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Zero(t, stats.Updated)
	assert.Zero(t, stats.Skipped)

	c := reg.companies["ACME"]
	require.NotNil(t, c)
	assert.Equal(t, "Acme Corp", c.Name)
	assert.Equal(t, []string{"Acme Corp"}, c.Aliases)
	assert.Equal(t, []string{"ACME"}, c.Tickers)
	assert.Equal(t, []string{"acme.com"}, c.Domains)
	require.Len(t, c.ESGSources, 1)
	assert.Equal(t, SourceName, c.ESGSources[0].Source)
	assert.Equal(t, "2026-01-15T00:00:00Z", c.ESGSources[0].AsOf)
	require.NotNil(t, c.ESGSources[0].Raw.E)
	assert.InDelta(t, 70, *c.ESGSources[0].Raw.E, 1e-9)
	assert.Equal(t, model.ScaleZeroToHundred, c.ESGSources[0].Raw.Scale)
}

func TestRun_SkipsMissingTickerAndAllNullRows(t *testing.T) {
	reg := newFakeRegistry()
	in := testIngester(reg)

	csv := csvHeader +
		",No Ticker Inc,,50,50,50,2026-01-01\n" +
		"nil,Null Scores Inc,,null,,not-a-number,2026-01-01\n" +
		"ok,Fine Inc,,60,,,2026-01-01\n"
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 2, stats.Skipped)
	require.Len(t, stats.SkipReasons, 2)
	assert.Contains(t, stats.SkipReasons[0], "missing ticker")
	assert.Contains(t, stats.SkipReasons[1], "all ESG scores null")

	// Null factors stay null on the stored source.
	c := reg.companies["OK"]
	require.NotNil(t, c)
	assert.Nil(t, c.ESGSources[0].Raw.S)
	assert.Nil(t, c.ESGSources[0].Raw.G)
}

func TestRun_SkipReasonsCapped(t *testing.T) {
	reg := newFakeRegistry()
	in := testIngester(reg)

	csv := csvHeader + strings.Repeat(",Anon,,1,1,1,\n", 5)
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Skipped)
	assert.Len(t, stats.SkipReasons, 3)
}

func TestRun_RescalesFactorsOver100(t *testing.T) {
	reg := newFakeRegistry()
	in := testIngester(reg)

	csv := csvHeader + "big,Big Scale Inc,,500,250,,2026-01-01\n"
	_, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	raw := reg.companies["BIG"].ESGSources[0].Raw
	require.NotNil(t, raw.E)
	require.NotNil(t, raw.S)
	assert.InDelta(t, 100, *raw.E, 1e-9)
	assert.InDelta(t, 50, *raw.S, 1e-9)
	assert.Nil(t, raw.G)
}

func TestRun_MergesIntoExistingByTicker(t *testing.T) {
	reg := newFakeRegistry()
	reg.companies["ACME"] = &model.Company{
		ID:      "c1",
		Name:    "Acme Corporation",
		Tickers: []string{"ACME"},
		ESGSources: []model.ESGSource{{
			Source: SourceName, AsOf: "2026-01-01T00:00:00Z",
		}},
	}
	in := testIngester(reg)

	csv := csvHeader + "ACME,Acme Corp,acme.io,80,70,60,2026-03-01\n"
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Zero(t, stats.Inserted)

	c := reg.companies["ACME"]
	assert.Equal(t, "Acme Corporation", c.Name)
	assert.Contains(t, c.Aliases, "Acme Corp")
	assert.Equal(t, []string{"acme.io"}, c.Domains)
	require.Len(t, c.ESGSources, 2)
	assert.Equal(t, "2026-03-01T00:00:00Z", c.ESGSources[1].AsOf)
}

func TestRun_StaleSourceNotAppendedOnMerge(t *testing.T) {
	reg := newFakeRegistry()
	reg.companies["ACME"] = &model.Company{
		ID:      "c1",
		Name:    "Acme Corp",
		Aliases: []string{"Acme Corp"},
		Tickers: []string{"ACME"},
		ESGSources: []model.ESGSource{{
			Source: SourceName, AsOf: "2026-06-01T00:00:00Z",
		}},
	}
	in := testIngester(reg)

	csv := csvHeader + "acme,Acme Corp,,80,70,60,2026-03-01\n"
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Len(t, reg.companies["ACME"].ESGSources, 1)
}

func TestRun_UnparseableDateFallsBackToIngestionTime(t *testing.T) {
	reg := newFakeRegistry()
	in := testIngester(reg)

	csv := csvHeader + "acme,Acme Corp,,70,65,80,sometime last year\n"
	_, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01T12:00:00Z", reg.companies["ACME"].ESGSources[0].AsOf)
}

func TestRun_StoreErrorsAreSkippedRows(t *testing.T) {
	reg := newFakeRegistry()
	reg.createErr = eris.New("disk full")
	in := testIngester(reg)

	csv := csvHeader + "acme,Acme Corp,,70,65,80,2026-01-01\n"
	stats, err := in.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.SkipReasons, 1)
	assert.Contains(t, stats.SkipReasons[0], "insert failed")
}

func TestRegistrableDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.acme.com/about": "acme.com",
		"http://acme.co.uk":          "acme.co.uk",
		"acme.io":                    "acme.io",
		"www.acme.io":                "acme.io",
		"":                           "",
		"://bad":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, registrableDomain(in), in)
	}
}

func TestDecodeCharset(t *testing.T) {
	latin1 := []byte("Nestl\xe9") // "Nestlé" in ISO 8859-1
	r, err := DecodeCharset(strings.NewReader(string(latin1)), "iso-8859-1")
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	assert.Equal(t, "Nestlé", string(buf[:n]))

	_, err = DecodeCharset(strings.NewReader(""), "not-a-charset")
	require.Error(t, err)
}
