package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"news_curator/internal/config"
	"news_curator/internal/dedup"
	"news_curator/internal/domain"
	"news_curator/internal/filter"
	"news_curator/internal/ranker"
)

// maxConcurrentFetches bounds how many source adapters run at once.
const maxConcurrentFetches = 4

type PipelineService struct {
	sources   []Source
	articles  ArticleStore
	published PublishedItemStore
	txManager TransactionManager
	publisher ReportPublisher
	dedup     *dedup.Deduplicator
	filter    *filter.Filter
	ranker    *ranker.Ranker
	logger    *slog.Logger
	config    config.PipelineConfig
}

func NewPipelineService(
	sources []Source,
	articles ArticleStore,
	published PublishedItemStore,
	txManager TransactionManager,
	publisher ReportPublisher,
	deduplicator *dedup.Deduplicator,
	qualityFilter *filter.Filter,
	relevanceRanker *ranker.Ranker,
	logger *slog.Logger,
	cfg config.PipelineConfig,
) *PipelineService {
	return &PipelineService{
		sources:   sources,
		articles:  articles,
		published: published,
		txManager: txManager,
		publisher: publisher,
		dedup:     deduplicator,
		filter:    qualityFilter,
		ranker:    relevanceRanker,
		logger:    logger.With("component", "pipeline"),
		config:    cfg,
	}
}

// Run executes one full curation pass: fetch, ingest, dedup+filter, rank,
// mark the top N processed, publish the run report. Per-article problems
// degrade and are counted in the report; store failures abort the run.
func (s *PipelineService) Run(ctx context.Context) (*domain.RunReport, error) {
	startTime := time.Now()
	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: startTime,
	}

	s.logger.Info("starting pipeline run",
		"run_id", report.RunID,
		"sources", len(s.sources),
	)

	s.cleanupOldArticles(ctx)

	fetched := s.fetchAll(ctx, report)
	report.TotalIn = len(fetched)

	if err := s.ingest(ctx, fetched, report); err != nil {
		return report, fmt.Errorf("ingest articles: %w", err)
	}

	accepted, err := s.dedupAndFilter(ctx, startTime, report)
	if err != nil {
		return report, fmt.Errorf("dedup and filter: %w", err)
	}

	if err := s.rankAndPublish(ctx, accepted, startTime, report); err != nil {
		return report, err
	}

	report.Duration = time.Since(startTime)

	if err := s.publisher.PublishReport(ctx, report); err != nil {
		s.logger.Error("publish run report", "run_id", report.RunID, "error", err)
	}

	s.logger.Info("pipeline run completed",
		"run_id", report.RunID,
		"total_in", report.TotalIn,
		"deduped", report.Deduped,
		"accepted", report.FilteredAccepted,
		"rejected", report.FilteredRejected,
		"ranked", report.Ranked,
		"duration", report.Duration,
	)

	return report, nil
}

// cleanupOldArticles drops rejected and unpublished filtered articles
// past the retention cutoff. Housekeeping only; a failure is logged,
// not fatal.
func (s *PipelineService) cleanupOldArticles(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	deleted, err := s.articles.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn("retention cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("retention cleanup", "deleted", deleted, "cutoff", cutoff)
	}
}

func (s *PipelineService) fetchAll(ctx context.Context, report *domain.RunReport) []domain.Article {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		fetched []domain.Article
	)
	sem := make(chan struct{}, maxConcurrentFetches)

	for _, source := range s.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			articles, err := src.FetchArticles(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("source fetch failed", "source", src.Name(), "error", err)
				report.AddError(domain.ErrCategorySourceFailed)
				return
			}
			s.logger.Info("fetched from source", "source", src.Name(), "count", len(articles))
			fetched = append(fetched, articles...)
		}(source)
	}

	wg.Wait()
	return fetched
}

func (s *PipelineService) ingest(ctx context.Context, fetched []domain.Article, report *domain.RunReport) error {
	now := time.Now()

	for i := range fetched {
		article := &fetched[i]
		if article.Title == "" && article.URL == "" {
			report.AddError(domain.ErrCategoryInvalidInput)
			continue
		}

		article.Status = domain.StatusNew
		if article.FetchedAt.IsZero() {
			article.FetchedAt = now
		}

		_, inserted, err := s.articles.Insert(ctx, article)
		if err != nil {
			return fmt.Errorf("insert article %q: %w", article.URL, err)
		}
		if !inserted {
			s.logger.Debug("url already known", "url", article.URL)
		}
	}

	return nil
}

// dedupAndFilter processes every new article inside one transaction.
// Articles that pass the filter join the recent set so later candidates
// in the same run are deduplicated against them too.
func (s *PipelineService) dedupAndFilter(ctx context.Context, now time.Time, report *domain.RunReport) ([]domain.Article, error) {
	pending, err := s.articles.ListByStatus(ctx, domain.StatusNew)
	if err != nil {
		return nil, fmt.Errorf("list new articles: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	recent, err := s.articles.RecentSince(ctx, now.Add(-s.config.DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent articles: %w", err)
	}

	var accepted []domain.Article

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, article := range pending {
			if dup := s.dedup.FindDuplicate(article, recent); dup != nil {
				if err := s.articles.UpdateStatus(txCtx, article.ID, domain.StatusRejected); err != nil {
					return fmt.Errorf("reject duplicate %d: %w", article.ID, err)
				}
				report.Deduped++
				s.logger.Debug("duplicate rejected",
					"article_id", article.ID,
					"duplicate_of", dup.ID,
				)
				continue
			}

			result := s.filter.Evaluate(article, now)
			if !result.Accepted {
				if err := s.articles.UpdateStatus(txCtx, article.ID, domain.StatusRejected); err != nil {
					return fmt.Errorf("reject article %d: %w", article.ID, err)
				}
				report.FilteredRejected++
				s.logger.Debug("article rejected",
					"article_id", article.ID,
					"reason", result.Reason,
				)
				continue
			}

			if err := s.articles.UpdateStatus(txCtx, article.ID, domain.StatusFiltered); err != nil {
				return fmt.Errorf("accept article %d: %w", article.ID, err)
			}
			article.Status = domain.StatusFiltered
			article.RelevanceScore = 1.0
			accepted = append(accepted, article)
			recent = append(recent, article)
			report.FilteredAccepted++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return accepted, nil
}

func (s *PipelineService) rankAndPublish(ctx context.Context, accepted []domain.Article, now time.Time, report *domain.RunReport) error {
	if len(accepted) == 0 {
		return nil
	}

	sourceCounts, err := s.published.SourcePublicationCounts(ctx, now.Add(-s.config.DedupWindow))
	if err != nil {
		return fmt.Errorf("load source publication counts: %w", err)
	}

	scored, outcome, err := s.ranker.Rank(ctx, accepted, s.config.TopN, sourceCounts)
	if err != nil {
		return fmt.Errorf("rank articles: %w", err)
	}

	report.Ranked = len(accepted)
	for i := 0; i < outcome.Failed; i++ {
		report.AddError(domain.ErrCategoryScorerFailed)
	}
	for i := 0; i < outcome.Unparseable; i++ {
		report.AddError(domain.ErrCategoryScorerUnparseable)
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, sa := range scored {
			if err := s.articles.MarkProcessed(txCtx, sa.Article.ID, sa.Score); err != nil {
				return fmt.Errorf("mark article %d processed: %w", sa.Article.ID, err)
			}

			item := &domain.PublishedItem{
				SourceArticleID: sa.Article.ID,
				SourceName:      sa.Article.SourceName,
				Title:           sa.Article.Title,
				PublishedAt:     now,
			}
			if _, err := s.published.Record(txCtx, item); err != nil {
				return fmt.Errorf("record publication for article %d: %w", sa.Article.ID, err)
			}

			report.TopNIDs = append(report.TopNIDs, sa.Article.ID)
		}
		return nil
	})
}
