// Package quicksand reduces the loosely structured output of the QuickSand
// document analysis engine to a single canonical verdict: a risk tier, an
// aggregate score, a deduplicated tag set and the untouched per-flow map.
package quicksand

// FlowMap maps an engine flow identifier (an embedded stream, a macro, ...)
// to whatever the engine reported for it. Well-formed flows hold a list of
// detection records; anything else is carried through but never scored.
type FlowMap map[string]any

// RiskTier is the coarse verdict bucket derived from a score.
type RiskTier string

const (
	RiskHigh   RiskTier = "high"
	RiskMedium RiskTier = "medium"
	RiskLow    RiskTier = "low"
	RiskNone   RiskTier = "none"
)

// Result is the canonical, shape-independent analysis verdict.
type Result struct {
	// Risk is one of the RiskTier values, or an engine-supplied label passed
	// through verbatim.
	Risk string `json:"risk"`

	// Score is the aggregate score. It is never negative.
	Score int `json:"score"`

	// Tags holds every distinct rule or tag name. Order is not significant.
	Tags []string `json:"tags"`

	// Results is the per-flow map exactly as the engine reported it.
	Results FlowMap `json:"results"`
}

// TierForScore maps an aggregate score to a risk tier:
//
//	>= 6 → "high"
//	3–5  → "medium"
//	1–2  → "low"
//	0    → "none"
func TierForScore(score int) RiskTier {
	switch {
	case score >= 6:
		return RiskHigh
	case score >= 3:
		return RiskMedium
	case score >= 1:
		return RiskLow
	default:
		return RiskNone
	}
}
