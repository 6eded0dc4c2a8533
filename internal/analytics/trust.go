package analytics

import (
	"sort"

	"news_curator/internal/domain"
)

// minSamplePublications is the smallest window sample a source needs
// before the evaluator will judge it. Smaller samples are silently
// excluded, not flagged.
const minSamplePublications = 2

// EvaluateSources classifies each source aggregate into a trust tier.
// The decision table is evaluated top to bottom, first match wins:
//
//	avg < -0.4 and bad signals >= 2            -> disable
//	avg < -0.3 and (bad >= 1 or low-quality >= 2) -> review
//	avg <  0.0 and publications >= 5           -> reconsider
//	otherwise                                  -> none
//
// Output is sorted by severity, then by average quality score ascending.
// The result is advisory; nothing is disabled automatically.
func EvaluateSources(aggs []domain.SourceAggregate) []domain.SourceTrustRecord {
	records := make([]domain.SourceTrustRecord, 0, len(aggs))

	for _, agg := range aggs {
		if agg.PublicationCount < minSamplePublications {
			continue
		}
		records = append(records, domain.SourceTrustRecord{
			SourceName:        agg.SourceName,
			PublicationCount:  agg.PublicationCount,
			AvgQualityScore:   agg.AvgQualityScore,
			BadSignalCount:    agg.BadSignalCount,
			LowQualitySignals: agg.LowQualitySignals,
			Recommendation:    classify(agg),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		si, sj := records[i].Recommendation.Severity(), records[j].Recommendation.Severity()
		if si != sj {
			return si < sj
		}
		return records[i].AvgQualityScore < records[j].AvgQualityScore
	})

	return records
}

func classify(agg domain.SourceAggregate) domain.Recommendation {
	switch {
	case agg.AvgQualityScore < -0.4 && agg.BadSignalCount >= 2:
		return domain.RecommendDisable
	case agg.AvgQualityScore < -0.3 && (agg.BadSignalCount >= 1 || agg.LowQualitySignals >= 2):
		return domain.RecommendReview
	case agg.AvgQualityScore < 0.0 && agg.PublicationCount >= 5:
		return domain.RecommendReconsider
	}
	return domain.RecommendNone
}

// AggregateBySource rolls published items up into per-source aggregates
// for trust evaluation. Quality averaging follows the engaged-only rule.
func AggregateBySource(items []domain.PublishedItem) []domain.SourceAggregate {
	type acc struct {
		pubs     int
		engaged  int
		scoreSum float64
		bad      int
		lowq     int
	}
	bySource := make(map[string]*acc)

	for _, item := range items {
		a := bySource[item.SourceName]
		if a == nil {
			a = &acc{}
			bySource[item.SourceName] = a
		}
		a.pubs++
		a.bad += item.Reactions.BadSource
		a.lowq += item.Reactions.LowContentQuality
		if item.Reactions.Total() > 0 {
			a.engaged++
			a.scoreSum += item.Reactions.QualityScore()
		}
	}

	names := make([]string, 0, len(bySource))
	for name := range bySource {
		names = append(names, name)
	}
	sort.Strings(names)

	aggs := make([]domain.SourceAggregate, 0, len(names))
	for _, name := range names {
		a := bySource[name]
		agg := domain.SourceAggregate{
			SourceName:        name,
			PublicationCount:  a.pubs,
			BadSignalCount:    a.bad,
			LowQualitySignals: a.lowq,
		}
		if a.engaged > 0 {
			agg.AvgQualityScore = a.scoreSum / float64(a.engaged)
		}
		aggs = append(aggs, agg)
	}
	return aggs
}
