package model

import "time"

// MethodologyVersion identifies the scoring formula in effect.
const MethodologyVersion = "1.0.0"

// Breakdown exposes the raw factors under their public names. E/S/G are
// renamed to environment/labor/governance on the wire.
type Breakdown struct {
	Environment *float64 `json:"environment"`
	Labor       *float64 `json:"labor"`
	Governance  *float64 `json:"governance"`
}

// Weights are the effective per-factor weights used for a score.
type Weights struct {
	Environment float64 `json:"environment"`
	Labor       float64 `json:"labor"`
	Governance  float64 `json:"governance"`
}

// Methodology describes how a score was computed.
type Methodology struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// ScoreReport is the deterministic output of the scoring engine for one
// company. LastUpdated is the evaluation timestamp and is never persisted.
type ScoreReport struct {
	CompanyID   string      `json:"companyId"`
	CompanyName string      `json:"companyName"`
	Overall     int         `json:"overall"`
	Breakdown   Breakdown   `json:"breakdown"`
	Methodology Methodology `json:"methodology"`
	Confidence  float64     `json:"confidence"`
	AsOf        string      `json:"asOf"`
	LastUpdated time.Time   `json:"lastUpdated"`
}
