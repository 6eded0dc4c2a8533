package domain

// Recommendation is the advisory trust tier for a source. There is no
// automatic disabling; the record is input for a human operator.
type Recommendation string

const (
	RecommendNone       Recommendation = "none"
	RecommendReview     Recommendation = "review"
	RecommendReconsider Recommendation = "reconsider"
	RecommendDisable    Recommendation = "disable"
)

// Severity orders recommendations for reporting, most severe first.
func (r Recommendation) Severity() int {
	switch r {
	case RecommendDisable:
		return 0
	case RecommendReview:
		return 1
	case RecommendReconsider:
		return 2
	}
	return 3
}

// SourceAggregate is the per-source engagement rollup for one analysis
// window, recomputed fresh on every run.
type SourceAggregate struct {
	SourceName       string
	PublicationCount int
	AvgQualityScore  float64
	// BadSignalCount sums bad_source reactions, the explicitly
	// untrustworthy subset of the negative kinds.
	BadSignalCount int
	// LowQualitySignals sums low_content_quality reactions. Kept apart
	// from BadSignalCount because the review rule weighs them differently.
	LowQualitySignals int
}

// SourceTrustRecord is the evaluator's verdict for one source.
type SourceTrustRecord struct {
	SourceName        string         `json:"source_name"`
	PublicationCount  int            `json:"publication_count"`
	AvgQualityScore   float64        `json:"avg_quality_score"`
	BadSignalCount    int            `json:"bad_signal_count"`
	LowQualitySignals int            `json:"low_quality_signals"`
	Recommendation    Recommendation `json:"recommendation"`
}
