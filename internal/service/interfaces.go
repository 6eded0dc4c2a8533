package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_curator/internal/domain"
)

type ArticleStore interface {
	Insert(ctx context.Context, article *domain.Article) (int64, bool, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Article, error)
	RecentSince(ctx context.Context, since time.Time) ([]domain.Article, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
	MarkProcessed(ctx context.Context, id int64, relevanceScore float64) error
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PublishedItemStore interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]domain.PublishedItem, error)
	SourcePublicationCounts(ctx context.Context, since time.Time) (map[string]int, error)
	Record(ctx context.Context, item *domain.PublishedItem) (int64, error)
}

type Source interface {
	Name() string
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.RunReport) error
	PublishTrustAlerts(ctx context.Context, records []domain.SourceTrustRecord) error
	Close() error
}
