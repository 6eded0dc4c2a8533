package analytics

import (
	"sort"
	"strings"

	"news_curator/internal/domain"
)

// PeriodStats is the window-level engagement summary.
type PeriodStats struct {
	Count int
	// Engaged counts items that received at least one reaction.
	Engaged int
	// EngagementRate is Engaged/Count in percent.
	EngagementRate float64
	// AvgQualityScore averages only over engaged items. Items with zero
	// reactions carry no quality signal and are excluded rather than
	// counted as 0.
	AvgQualityScore float64
	// Reactions sums every reaction kind over the window.
	Reactions      domain.ReactionCounts
	TotalReactions int
}

// ComputePeriodStats aggregates one time window of published items. The
// caller supplies the already-windowed slice; there is no clock here.
func ComputePeriodStats(items []domain.PublishedItem) PeriodStats {
	stats := PeriodStats{Count: len(items)}

	var scoreSum float64
	for _, item := range items {
		r := item.Reactions
		stats.Reactions.Useful += r.Useful
		stats.Reactions.Important += r.Important
		stats.Reactions.Controversial += r.Controversial
		stats.Reactions.Banal += r.Banal
		stats.Reactions.Obvious += r.Obvious
		stats.Reactions.PoorQuality += r.PoorQuality
		stats.Reactions.LowContentQuality += r.LowContentQuality
		stats.Reactions.BadSource += r.BadSource

		if r.Total() > 0 {
			stats.Engaged++
			scoreSum += r.QualityScore()
		}
	}

	stats.TotalReactions = stats.Reactions.Total()
	if stats.Count > 0 {
		stats.EngagementRate = float64(stats.Engaged) / float64(stats.Count) * 100
	}
	if stats.Engaged > 0 {
		stats.AvgQualityScore = scoreSum / float64(stats.Engaged)
	}

	return stats
}

// RankedItem pairs a published item with its derived quality metrics.
type RankedItem struct {
	Item           domain.PublishedItem
	QualityScore   float64
	TotalReactions int
}

// Order selects the direction of a TopK ranking.
type Order int

const (
	// Best ranks by quality score descending.
	Best Order = iota
	// Worst ranks by quality score ascending.
	Worst
)

// TopK returns the k best or worst items by quality score. Items with
// zero reactions carry an undefined quality signal and are excluded from
// both directions. Ties break by total reactions descending.
func TopK(items []domain.PublishedItem, k int, order Order) []RankedItem {
	ranked := make([]RankedItem, 0, len(items))
	for _, item := range items {
		total := item.Reactions.Total()
		if total == 0 {
			continue
		}
		ranked = append(ranked, RankedItem{
			Item:           item,
			QualityScore:   item.Reactions.QualityScore(),
			TotalReactions: total,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QualityScore != ranked[j].QualityScore {
			if order == Worst {
				return ranked[i].QualityScore < ranked[j].QualityScore
			}
			return ranked[i].QualityScore > ranked[j].QualityScore
		}
		return ranked[i].TotalReactions > ranked[j].TotalReactions
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// trendingPoolSize bounds topic extraction to the most engaging items.
const trendingPoolSize = 30

// minTopicWordLen drops short function words before stop-word filtering.
const minTopicWordLen = 4

var stopWords = map[string]struct{}{
	// Russian
	"этот": {}, "это": {}, "того": {}, "тоже": {}, "если": {}, "есть": {},
	"была": {}, "были": {}, "было": {}, "быть": {}, "чтобы": {}, "когда": {},
	"после": {}, "перед": {}, "очень": {}, "более": {}, "может": {},
	"также": {}, "из-за": {}, "году": {}, "года": {}, "как": {}, "для": {},
	// English
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "will": {},
	"been": {}, "were": {}, "they": {}, "them": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "about": {}, "after": {}, "over": {},
	"into": {}, "more": {}, "than": {}, "your": {}, "their": {}, "news": {},
	"says": {}, "said": {},
}

// Topic is one trending title token with its frequency in the pool.
type Topic struct {
	Word  string
	Count int
	// Share is Count divided by the number of items considered.
	Share float64
}

// TrendingTopics tokenizes the titles of the highest-engagement items
// (top 30 by positive-reaction count) into lowercase words of at least
// four runes, drops stop words, and returns the n most frequent tokens.
func TrendingTopics(items []domain.PublishedItem, n int) []Topic {
	pool := make([]domain.PublishedItem, 0, len(items))
	for _, item := range items {
		if item.Reactions.Positive() > 0 {
			pool = append(pool, item)
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Reactions.Positive() > pool[j].Reactions.Positive()
	})
	if len(pool) > trendingPoolSize {
		pool = pool[:trendingPoolSize]
	}
	if len(pool) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, item := range pool {
		for _, word := range tokenize(item.Title) {
			counts[word]++
		}
	}

	topics := make([]Topic, 0, len(counts))
	for word, count := range counts {
		topics = append(topics, Topic{
			Word:  word,
			Count: count,
			Share: float64(count) / float64(len(pool)),
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Word < topics[j].Word
	})

	if n > 0 && len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

func tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !isWordRune(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTopicWordLen {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		words = append(words, f)
	}
	return words
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 'а' && r <= 'я', r == 'ё':
		return true
	case r == '-':
		return true
	}
	return false
}

// WeekdayStat is the per-weekday rollup used by the posting-schedule
// report.
type WeekdayStat struct {
	Posts           int
	AvgQualityScore float64
}

// WeekdayStats groups items by publication weekday. The average quality
// score follows the same engaged-only rule as the period stats.
func WeekdayStats(items []domain.PublishedItem) map[string]WeekdayStat {
	type acc struct {
		posts    int
		engaged  int
		scoreSum float64
	}
	byDay := make(map[string]*acc)

	for _, item := range items {
		day := item.PublishedAt.Weekday().String()
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		a.posts++
		if item.Reactions.Total() > 0 {
			a.engaged++
			a.scoreSum += item.Reactions.QualityScore()
		}
	}

	result := make(map[string]WeekdayStat, len(byDay))
	for day, a := range byDay {
		stat := WeekdayStat{Posts: a.posts}
		if a.engaged > 0 {
			stat.AvgQualityScore = a.scoreSum / float64(a.engaged)
		}
		result[day] = stat
	}
	return result
}
