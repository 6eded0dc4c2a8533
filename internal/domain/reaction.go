package domain

import "time"

// ReactionKind is the closed vocabulary of reader reactions. The set is
// fixed; unknown kinds are rejected at the persistence boundary instead of
// leaking into scoring as open map keys.
type ReactionKind string

const (
	ReactionUseful            ReactionKind = "useful"
	ReactionImportant         ReactionKind = "important"
	ReactionControversial     ReactionKind = "controversial"
	ReactionBanal             ReactionKind = "banal"
	ReactionObvious           ReactionKind = "obvious"
	ReactionPoorQuality       ReactionKind = "poor_quality"
	ReactionLowContentQuality ReactionKind = "low_content_quality"
	ReactionBadSource         ReactionKind = "bad_source"
)

// ReactionKinds lists every kind in a stable order.
var ReactionKinds = []ReactionKind{
	ReactionUseful,
	ReactionImportant,
	ReactionControversial,
	ReactionBanal,
	ReactionObvious,
	ReactionPoorQuality,
	ReactionLowContentQuality,
	ReactionBadSource,
}

// ReactionCounts is the fixed-shape reaction tally of one published item.
type ReactionCounts struct {
	Useful            int `db:"useful" json:"useful"`
	Important         int `db:"important" json:"important"`
	Controversial     int `db:"controversial" json:"controversial"`
	Banal             int `db:"banal" json:"banal"`
	Obvious           int `db:"obvious" json:"obvious"`
	PoorQuality       int `db:"poor_quality" json:"poor_quality"`
	LowContentQuality int `db:"low_content_quality" json:"low_content_quality"`
	BadSource         int `db:"bad_source" json:"bad_source"`
}

// Positive sums the reaction kinds that signal approval.
func (r ReactionCounts) Positive() int {
	return r.Useful + r.Important
}

// Negative sums the reaction kinds that signal disapproval.
// Controversial is neutral and excluded.
func (r ReactionCounts) Negative() int {
	return r.Banal + r.Obvious + r.PoorQuality + r.LowContentQuality + r.BadSource
}

// Total counts every reaction including the neutral kind.
func (r ReactionCounts) Total() int {
	return r.Positive() + r.Negative() + r.Controversial
}

// QualityScore normalizes the reactions into [-1, 1]:
// (positive - negative) / total. Zero reactions yield exactly 0.0 so that
// unengaged items never masquerade as disliked ones.
func (r ReactionCounts) QualityScore() float64 {
	total := r.Total()
	if total == 0 {
		return 0.0
	}
	return float64(r.Positive()-r.Negative()) / float64(total)
}

// PublishedItem is an article that reached the audience. Reaction counts,
// views and forwards are collected externally; this core only reads them.
type PublishedItem struct {
	ID              int64          `db:"id"`
	SourceArticleID int64          `db:"source_article_id"`
	SourceName      string         `db:"source_name"`
	Title           string         `db:"title"`
	PublishedAt     time.Time      `db:"published_at"`
	Reactions       ReactionCounts `db:"-"`
	Views           int            `db:"views"`
	Forwards        int            `db:"forwards"`
}
