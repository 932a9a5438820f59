// Package model defines the domain types shared across the service.
package model

import "time"

// Company is the registry record for a single company, including its
// ESG source history.
type Company struct {
	ID         string      `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	Aliases    []string    `json:"aliases" db:"aliases"`
	Tickers    []string    `json:"tickers" db:"tickers"`
	Country    string      `json:"country,omitempty" db:"country"`
	Domains    []string    `json:"domains" db:"domains"`
	ESGSources []ESGSource `json:"esgSources" db:"esg_sources"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ESGSource is one provider measurement in a company's ESG history.
// Entries are append-only; ingestion adds new sources but never mutates
// existing ones.
type ESGSource struct {
	Source string     `json:"source"`
	AsOf   string     `json:"asOf"`
	Raw    RawFactors `json:"raw"`
}

// RawFactors holds the three raw factor values on a 0-100 scale. A nil
// factor means the provider did not report it.
type RawFactors struct {
	E     *float64 `json:"E"`
	S     *float64 `json:"S"`
	G     *float64 `json:"G"`
	Scale string   `json:"scale"`
}

// ScaleZeroToHundred is the only factor scale currently ingested.
const ScaleZeroToHundred = "0-100"

// FactorCount returns how many of E/S/G are non-null.
func (r RawFactors) FactorCount() int {
	n := 0
	for _, f := range []*float64{r.E, r.S, r.G} {
		if f != nil {
			n++
		}
	}
	return n
}

// Complete reports whether all three factors are present.
func (r RawFactors) Complete() bool {
	return r.FactorCount() == 3
}
