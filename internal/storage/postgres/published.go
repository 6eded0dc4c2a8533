package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"news_curator/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PublishedItemStore struct {
	db *sqlx.DB
}

func NewPublishedItemStore(db *sqlx.DB) *PublishedItemStore {
	return &PublishedItemStore{db: db}
}

// publishedItemRow flattens the item and its reaction columns for sqlx.
type publishedItemRow struct {
	ID              int64     `db:"id"`
	SourceArticleID int64     `db:"source_article_id"`
	SourceName      string    `db:"source_name"`
	Title           string    `db:"title"`
	PublishedAt     time.Time `db:"published_at"`
	Views           int       `db:"views"`
	Forwards        int       `db:"forwards"`
	domain.ReactionCounts
}

func (r publishedItemRow) toDomain() domain.PublishedItem {
	return domain.PublishedItem{
		ID:              r.ID,
		SourceArticleID: r.SourceArticleID,
		SourceName:      r.SourceName,
		Title:           r.Title,
		PublishedAt:     r.PublishedAt,
		Reactions:       r.ReactionCounts,
		Views:           r.Views,
		Forwards:        r.Forwards,
	}
}

var publishedItemColumns = []string{
	"id", "source_article_id", "source_name", "title", "published_at",
	"views", "forwards",
	"useful", "important", "controversial", "banal", "obvious",
	"poor_quality", "low_content_quality", "bad_source",
}

// ListWindow returns items published in [from, to), oldest first.
func (s *PublishedItemStore) ListWindow(ctx context.Context, from, to time.Time) ([]domain.PublishedItem, error) {
	query, args, err := psql.
		Select(publishedItemColumns...).
		From("published_items").
		Where(sq.GtOrEq{"published_at": from}).
		Where(sq.Lt{"published_at": to}).
		OrderBy("published_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []publishedItemRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}

	items := make([]domain.PublishedItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

// SourcePublicationCounts tallies publications per source since the given
// moment. Sources with no publications are simply absent from the map.
func (s *PublishedItemStore) SourcePublicationCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query, args, err := psql.
		Select("source_name", "COUNT(*) AS cnt").
		From("published_items").
		Where(sq.GtOrEq{"published_at": since}).
		GroupBy("source_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []struct {
		SourceName string `db:"source_name"`
		Cnt        int    `db:"cnt"`
	}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SourceName] = row.Cnt
	}
	return counts, nil
}

// Record stores the hand-off of a processed article. Reaction counts start
// at zero and are updated by the external engagement collector.
func (s *PublishedItemStore) Record(ctx context.Context, item *domain.PublishedItem) (int64, error) {
	query, args, err := psql.
		Insert("published_items").
		Columns("source_article_id", "source_name", "title", "published_at").
		Values(item.SourceArticleID, item.SourceName, item.Title, item.PublishedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}

	item.ID = id
	return id, nil
}
