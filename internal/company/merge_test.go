package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethicalfinder/esg-api/internal/model"
)

func src(name, asOf string) *model.Company {
	return &model.Company{
		Name:    name,
		Tickers: []string{"ACME"},
		ESGSources: []model.ESGSource{{
			Source: "csvhub",
			AsOf:   asOf,
			Raw:    model.RawFactors{Scale: model.ScaleZeroToHundred},
		}},
	}
}

func TestMerge_UnionsFields(t *testing.T) {
	dst := &model.Company{
		Name:    "Acme Corporation",
		Aliases: []string{"Acme"},
		Tickers: []string{"ACME"},
		Domains: []string{"acme.com"},
	}
	incoming := &model.Company{
		Name:    "Acme Corp",
		Aliases: []string{"acme"}, // already present under case fold
		Tickers: []string{"acme", "ACM2"},
		Domains: []string{"acme.com", "acme.co.uk"},
		Country: "US",
	}

	changed := Merge(dst, incoming)
	require.True(t, changed)
	assert.Equal(t, "Acme Corporation", dst.Name)
	assert.Equal(t, []string{"Acme", "Acme Corp"}, dst.Aliases)
	assert.Equal(t, []string{"ACME", "ACM2"}, dst.Tickers)
	assert.Equal(t, []string{"acme.com", "acme.co.uk"}, dst.Domains)
	assert.Equal(t, "US", dst.Country)
}

func TestMerge_NoChange(t *testing.T) {
	dst := &model.Company{
		Name:    "Acme",
		Tickers: []string{"ACME"},
		ESGSources: []model.ESGSource{{
			Source: "csvhub", AsOf: "2026-03-01T00:00:00Z",
		}},
	}
	incoming := &model.Company{Name: "Acme", Tickers: []string{"acme"}}

	assert.False(t, Merge(dst, incoming))
	assert.Equal(t, []string{"ACME"}, dst.Tickers)
}

func TestMerge_AppendsOnlyStrictlyNewerSource(t *testing.T) {
	dst := &model.Company{
		Name:    "Acme",
		Tickers: []string{"ACME"},
		ESGSources: []model.ESGSource{
			{Source: "csvhub", AsOf: "2026-02-01T00:00:00Z"},
			{Source: "csvhub", AsOf: "2026-03-01T00:00:00Z"},
		},
	}

	// Older than the latest on record: dropped.
	assert.False(t, Merge(dst, src("Acme", "2026-02-15T00:00:00Z")))
	assert.Len(t, dst.ESGSources, 2)

	// Equal to the latest: also dropped.
	assert.False(t, Merge(dst, src("Acme", "2026-03-01T00:00:00Z")))
	assert.Len(t, dst.ESGSources, 2)

	// Strictly newer: appended.
	assert.True(t, Merge(dst, src("Acme", "2026-04-01T00:00:00Z")))
	require.Len(t, dst.ESGSources, 3)
	assert.Equal(t, "2026-04-01T00:00:00Z", dst.ESGSources[2].AsOf)
}

func TestMerge_FirstSourceAlwaysAppended(t *testing.T) {
	dst := &model.Company{Name: "Acme"}

	assert.True(t, Merge(dst, src("Acme", "2026-01-01T00:00:00Z")))
	assert.Len(t, dst.ESGSources, 1)
}
