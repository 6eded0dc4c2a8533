package ranker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_curator/internal/domain"
)

type stubScorer struct {
	scores map[string]float64
	errs   map[string]error
	calls  []string
}

func (s *stubScorer) Score(_ context.Context, title, _, _ string) (float64, error) {
	s.calls = append(s.calls, title)
	if err, ok := s.errs[title]; ok {
		return 0, err
	}
	return s.scores[title], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRanker(scorer TextScorer) *Ranker {
	return New(scorer, time.Millisecond, testLogger())
}

func TestRank_SortsDescendingAndKeepsTopN(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"a": 3, "b": 9, "c": 7}}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b"},
		{ID: 3, Title: "c"},
	}

	got, outcome, err := r.Rank(context.Background(), articles, 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Article.ID)
	assert.Equal(t, 9.0, got[0].Score)
	assert.Equal(t, int64(3), got[1].Article.ID)
	assert.Equal(t, 3, outcome.Scored)
}

// A hard scorer failure degrades to the minimum score, an unparseable
// response to the neutral default. The two fallbacks are deliberately
// different.
func TestRank_FallbackScores(t *testing.T) {
	scorer := &stubScorer{
		errs: map[string]error{
			"x": errors.New("connection refused"),
			"y": ErrUnparseable,
		},
	}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "x"},
		{ID: 2, Title: "y"},
	}

	got, outcome, err := r.Rank(context.Background(), articles, 0, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTitle := map[string]float64{}
	for _, sa := range got {
		byTitle[sa.Article.Title] = sa.Score
	}
	assert.Equal(t, MinScore, byTitle["x"])
	assert.Equal(t, NeutralScore, byTitle["y"])
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 1, outcome.Unparseable)
}

func TestRank_ClampsOutOfRangeScores(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"hot": 42, "cold": -3}}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "hot"},
		{ID: 2, Title: "cold"},
	}

	got, _, err := r.Rank(context.Background(), articles, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxScore, got[0].Score)
	assert.Equal(t, MinScore, got[1].Score)
}

// Ties preserve the input order: the sort is stable.
func TestRank_StableAmongTies(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"first": 5, "second": 5, "third": 5}}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "first"},
		{ID: 2, Title: "second"},
		{ID: 3, Title: "third"},
	}

	got, _, err := r.Rank(context.Background(), articles, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].Article.ID, got[1].Article.ID, got[2].Article.ID})
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"a": 8}}
	r := newTestRanker(scorer)

	articles := []domain.Article{{ID: 1, Title: "a", Status: domain.StatusFiltered, RelevanceScore: 1.0}}

	_, _, err := r.Rank(context.Background(), articles, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFiltered, articles[0].Status)
	assert.Equal(t, 1.0, articles[0].RelevanceScore)
}

func TestRank_ScoresSequentially(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"a": 1, "b": 2, "c": 3}}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b"},
		{ID: 3, Title: "c"},
	}

	_, _, err := r.Rank(context.Background(), articles, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, scorer.calls)
}

func TestRank_ContextCancelledBetweenCalls(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"a": 1, "b": 2}}
	r := New(scorer, 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Rank(ctx, []domain.Article{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiversityBoost(t *testing.T) {
	counts := map[string]int{"loud": 10, "mid": 4, "quiet": 1}

	tests := []struct {
		name   string
		source string
		want   float64
	}{
		{name: "unseen source", source: "fresh", want: 1.5},
		{name: "below average", source: "quiet", want: 1.0},
		{name: "dominant source", source: "loud", want: -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diversityBoost(tt.source, counts))
		})
	}

	assert.Equal(t, 0.0, diversityBoost("any", nil))
}

// A failed scorer call stays at the minimum even when the article's
// source would earn a boost; only unparseable responses keep it.
func TestRank_NoDiversityBoostOnFailedCalls(t *testing.T) {
	scorer := &stubScorer{
		errs: map[string]error{
			"failed":      errors.New("connection refused"),
			"unparseable": ErrUnparseable,
		},
	}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "failed", SourceName: "unseen"},
		{ID: 2, Title: "unparseable", SourceName: "unseen"},
	}
	counts := map[string]int{"busy": 5}

	got, outcome, err := r.Rank(context.Background(), articles, 0, counts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 1, outcome.Unparseable)

	byTitle := map[string]float64{}
	for _, sa := range got {
		byTitle[sa.Article.Title] = sa.Score
	}
	assert.Equal(t, MinScore, byTitle["failed"])
	assert.Equal(t, NeutralScore+1.5, byTitle["unparseable"])
}

func TestRank_AppliesDiversityBoost(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"a": 5, "b": 5}}
	r := newTestRanker(scorer)

	articles := []domain.Article{
		{ID: 1, Title: "a", SourceName: "loud"},
		{ID: 2, Title: "b", SourceName: "fresh"},
	}
	counts := map[string]int{"loud": 10, "other": 2}

	got, _, err := r.Rank(context.Background(), articles, 0, counts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0].Article.ID)
	assert.Equal(t, 6.5, got[0].Score)
	assert.Equal(t, 4.5, got[1].Score)
}
