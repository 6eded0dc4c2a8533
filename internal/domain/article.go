package domain

import (
	"errors"
	"time"
)

// ErrInvalidInput marks a raw item that cannot become an Article
// (no title and no URL). Callers skip and count, never abort.
var ErrInvalidInput = errors.New("invalid article input")

// Status is the article lifecycle state. Transitions only move forward:
// new -> {filtered|rejected} -> processed.
type Status string

const (
	StatusNew       Status = "new"
	StatusFiltered  Status = "filtered"
	StatusRejected  Status = "rejected"
	StatusProcessed Status = "processed"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusFiltered, StatusRejected, StatusProcessed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNew:
		return next == StatusFiltered || next == StatusRejected
	case StatusFiltered:
		return next == StatusProcessed
	}
	return false
}

// Article is a candidate content item collected from a source.
// PublishedAt is nil when the source carries no usable timestamp;
// a nil value is treated as fresh by the age filter.
type Article struct {
	ID             int64      `db:"id"`
	URL            string     `db:"url"`
	Title          string     `db:"title"`
	Body           string     `db:"body"`
	SourceName     string     `db:"source_name"`
	PublishedAt    *time.Time `db:"published_at"`
	FetchedAt      time.Time  `db:"fetched_at"`
	Status         Status     `db:"status"`
	RelevanceScore float64    `db:"relevance_score"`
}
