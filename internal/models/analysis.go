package models

import "time"

// AnalysisKind identifies one analyst stage. The set is closed: the pipeline
// always runs exactly these three stages.
type AnalysisKind string

const (
	KindFundamental AnalysisKind = "fundamental"
	KindTechnical   AnalysisKind = "technical"
	KindMacro       AnalysisKind = "macro"
)

// AnalysisResult is the outcome of one analyst stage. A failed stage is
// represented here rather than as an error so the pipeline can aggregate
// partial results.
type AnalysisResult struct {
	Kind          AnalysisKind   `json:"kind"`
	Narrative     string         `json:"narrative,omitempty"`
	Supporting    map[string]any `json:"supporting,omitempty"`
	Succeeded     bool           `json:"succeeded"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// SynthesisResult is the final recommendation plus the ordered stage results
// that fed it, including failed ones, so the report stays auditable.
type SynthesisResult struct {
	Ticker         string           `json:"ticker"`
	Recommendation string           `json:"recommendation"`
	Results        []AnalysisResult `json:"results"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Succeeded returns the stage results that produced a narrative.
func (s *SynthesisResult) Succeeded() []AnalysisResult {
	out := make([]AnalysisResult, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}

// IndicatorSnapshot is a point-in-time view of live market data for one
// ticker, as returned by the external data source.
type IndicatorSnapshot struct {
	Ticker string    `json:"ticker"`
	AsOf   time.Time `json:"as_of"`

	// Daily series, oldest first. Highs/Lows may be empty when the source
	// only provides closes.
	Closes []float64 `json:"closes"`
	Highs  []float64 `json:"highs,omitempty"`
	Lows   []float64 `json:"lows,omitempty"`

	// Last traded price and currency as reported by the source.
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}
