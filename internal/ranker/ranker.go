package ranker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"news_curator/internal/domain"
)

// ErrUnparseable marks a scorer response that arrived but did not contain
// a usable number. It degrades differently from a failed call: the article
// gets the neutral default instead of the minimum.
var ErrUnparseable = errors.New("scorer response unparseable")

const (
	// NeutralScore is assigned when the scorer answered but the answer
	// could not be parsed.
	NeutralScore = 5.0
	// MinScore is assigned when the scorer call itself failed.
	MinScore = 0.0
	// MaxScore caps every result.
	MaxScore = 10.0

	// DefaultCallDelay is the minimum spacing between scorer calls.
	DefaultCallDelay = time.Second
)

// TextScorer rates one article's importance in [0, 10]. Implementations
// may fail or return garbage; the ranker absorbs both.
type TextScorer interface {
	Score(ctx context.Context, title, bodyExcerpt, sourceName string) (float64, error)
}

// ScoredArticle pairs an article with its final importance score.
type ScoredArticle struct {
	Article domain.Article
	Score   float64
}

// Outcome counts how scoring degraded during one ranking pass.
type Outcome struct {
	Scored      int
	Failed      int
	Unparseable int
}

// Ranker scores articles one at a time with a mandatory delay between
// scorer calls and keeps the top N. Input articles are never mutated.
type Ranker struct {
	scorer    TextScorer
	callDelay time.Duration
	logger    *slog.Logger
}

// New builds a ranker. A non-positive delay falls back to the default.
func New(scorer TextScorer, callDelay time.Duration, logger *slog.Logger) *Ranker {
	if callDelay <= 0 {
		callDelay = DefaultCallDelay
	}
	return &Ranker{
		scorer:    scorer,
		callDelay: callDelay,
		logger:    logger,
	}
}

// Rank scores every article sequentially, applies the optional per-source
// diversity boost, clamps to [0, 10], sorts descending (stable, so ties
// keep their input order) and returns the top n. sourceCounts may be nil;
// then no boost is applied. Articles whose scorer call hard-failed stay
// at the minimum and never receive the boost.
func (r *Ranker) Rank(ctx context.Context, articles []domain.Article, n int, sourceCounts map[string]int) ([]ScoredArticle, Outcome, error) {
	var outcome Outcome
	if len(articles) == 0 {
		return nil, outcome, nil
	}

	scored := make([]ScoredArticle, 0, len(articles))

	for i, article := range articles {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, outcome, ctx.Err()
			case <-time.After(r.callDelay):
			}
		}

		score, boostable := r.scoreOne(ctx, article, &outcome)
		if boostable {
			score = clamp(score + diversityBoost(article.SourceName, sourceCounts))
		}

		scored = append(scored, ScoredArticle{Article: article, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if n > 0 && len(scored) > n {
		scored = scored[:n]
	}

	return scored, outcome, nil
}

// scoreOne returns the raw score and whether the diversity boost may be
// applied. A hard call failure pins the article at the minimum: boosting
// it would let a dead scorer endpoint outrank genuinely scored articles.
// An unparseable-but-received response keeps the boost, like a success.
func (r *Ranker) scoreOne(ctx context.Context, article domain.Article, outcome *Outcome) (float64, bool) {
	score, err := r.scorer.Score(ctx, article.Title, excerpt(article.Body), article.SourceName)
	switch {
	case errors.Is(err, ErrUnparseable):
		outcome.Unparseable++
		r.logger.Warn("scorer returned unparseable result",
			"article_id", article.ID,
			"title", truncate(article.Title, 50),
		)
		return NeutralScore, true
	case err != nil:
		outcome.Failed++
		r.logger.Warn("scorer call failed",
			"article_id", article.ID,
			"error", err,
		)
		return MinScore, false
	}

	outcome.Scored++
	return clamp(score), true
}

// diversityBoost favors sources that published little in the recent
// window: silent sources +1.5, below-average +1.0, sources near the top
// of the distribution -0.5.
func diversityBoost(sourceName string, counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0.0
	}

	max := 0
	sum := 0
	for _, c := range counts {
		sum += c
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return 0.0
	}
	avg := float64(sum) / float64(len(counts))

	count := counts[sourceName]
	switch {
	case count == 0:
		return 1.5
	case float64(count) < avg:
		return 1.0
	case float64(count) > float64(max)*0.7:
		return -0.5
	}
	return 0.0
}

func clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func excerpt(body string) string {
	return truncate(body, 1000)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
