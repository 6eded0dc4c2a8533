package dedup

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"news_curator/internal/domain"
)

const (
	// DefaultSimilarityThreshold is the normalized edit-distance ratio at
	// which two titles (or body prefixes) count as the same story.
	DefaultSimilarityThreshold = 0.90

	// bodyPrefixLen bounds the body comparison to the lead of the text,
	// where near-duplicates from different feeds overlap the most.
	bodyPrefixLen = 100
)

// Deduplicator decides whether a candidate article retells a recently
// seen one. It is pure: callers pre-filter the recent set to the dedup
// window and decide what to do with a match.
type Deduplicator struct {
	threshold float64
}

// New returns a deduplicator with the given similarity threshold.
// A non-positive threshold falls back to the default.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// FindDuplicate compares candidate against every recent article until a
// match or exhaustion and returns the first matching prior article, or nil.
// Rules, in order: exact URL equality, title similarity, body-prefix
// similarity. Self-comparison by ID is skipped.
func (d *Deduplicator) FindDuplicate(candidate domain.Article, recent []domain.Article) *domain.Article {
	for i := range recent {
		existing := &recent[i]
		if existing.ID == candidate.ID {
			continue
		}

		if candidate.URL != "" && existing.URL == candidate.URL {
			return existing
		}

		if Similarity(candidate.Title, existing.Title) >= d.threshold {
			return existing
		}

		if candidate.Body != "" && existing.Body != "" {
			a := strings.TrimSpace(prefix(candidate.Body, bodyPrefixLen))
			b := strings.TrimSpace(prefix(existing.Body, bodyPrefixLen))
			if Similarity(a, b) >= d.threshold {
				return existing
			}
		}
	}
	return nil
}

// Similarity is the normalized Levenshtein ratio of two strings after
// case folding and whitespace collapsing. Either side being empty yields
// 0.0 so that blank titles never match each other.
func Similarity(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
