package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_curator/internal/domain"
)

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Insert stores a new article. URL uniqueness is enforced by the table;
// a conflicting URL leaves the existing row untouched and reports
// inserted=false with the existing row's id.
func (s *ArticleStore) Insert(ctx context.Context, article *domain.Article) (int64, bool, error) {
	query := `
		INSERT INTO articles (
			url, title, body, source_name, published_at, fetched_at, status, relevance_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		article.URL,
		article.Title,
		article.Body,
		article.SourceName,
		article.PublishedAt,
		article.FetchedAt,
		article.Status,
		article.RelevanceScore,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		if err := exec.QueryRowxContext(ctx,
			"SELECT id FROM articles WHERE url = $1", article.URL,
		).Scan(&id); err != nil {
			return 0, false, fmt.Errorf("lookup existing url: %w", err)
		}
		article.ID = id
		return id, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	article.ID = id
	return id, true, nil
}

func (s *ArticleStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Article, error) {
	query := `
		SELECT id, url, title, body, source_name, published_at, fetched_at, status, relevance_score
		FROM articles
		WHERE status = $1
		ORDER BY fetched_at, id`

	var articles []domain.Article
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query, status)
	return articles, err
}

// RecentSince returns accepted and processed articles fetched within the
// dedup window. New and rejected rows are excluded: candidates are never
// compared against other unprocessed candidates or known rejects.
func (s *ArticleStore) RecentSince(ctx context.Context, since time.Time) ([]domain.Article, error) {
	query := `
		SELECT id, url, title, body, source_name, published_at, fetched_at, status, relevance_score
		FROM articles
		WHERE fetched_at >= $1 AND status = ANY($2)
		ORDER BY fetched_at, id`

	statuses := pq.StringArray{string(domain.StatusFiltered), string(domain.StatusProcessed)}

	var articles []domain.Article
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query, since, statuses)
	return articles, err
}

// UpdateStatus moves an article to the next lifecycle state. The current
// row is locked and the transition validated; backward moves fail.
func (s *ArticleStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	exec := GetExecutor(ctx, s.db)

	var current domain.Status
	if err := exec.QueryRowxContext(ctx,
		"SELECT status FROM articles WHERE id = $1 FOR UPDATE", id,
	).Scan(&current); err != nil {
		return fmt.Errorf("load article %d: %w", id, err)
	}

	if !current.CanTransition(status) {
		return fmt.Errorf("article %d: transition %s -> %s not allowed", id, current, status)
	}

	_, err := exec.ExecContext(ctx,
		"UPDATE articles SET status = $1 WHERE id = $2", status, id,
	)
	return err
}

// MarkProcessed finalizes a filtered article with its relevance score.
func (s *ArticleStore) MarkProcessed(ctx context.Context, id int64, relevanceScore float64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE articles SET status = $1, relevance_score = $2 WHERE id = $3 AND status = $4",
		domain.StatusProcessed, relevanceScore, id, domain.StatusFiltered,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("article %d is not in %s state", id, domain.StatusFiltered)
	}
	return nil
}

// DeleteStaleBefore drops articles past the retention cutoff that never
// reached publication: rejects and filtered rows that lost the ranking.
// Processed articles are kept; published_items references them. Returns
// how many rows went away.
func (s *ArticleStore) DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	statuses := pq.StringArray{string(domain.StatusRejected), string(domain.StatusFiltered)}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM articles WHERE status = ANY($1) AND fetched_at < $2",
		statuses, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
