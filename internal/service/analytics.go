package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"news_curator/internal/analytics"
	"news_curator/internal/config"
	"news_curator/internal/domain"
)

// AnalyticsSummary is the result of one analytics pass over the
// published-item window.
type AnalyticsSummary struct {
	From         time.Time
	To           time.Time
	Stats        analytics.PeriodStats
	BestPosts    []analytics.RankedItem
	WorstPosts   []analytics.RankedItem
	Topics       []analytics.Topic
	Weekdays     map[string]analytics.WeekdayStat
	TrustRecords []domain.SourceTrustRecord
}

type AnalyticsService struct {
	published PublishedItemStore
	publisher ReportPublisher
	logger    *slog.Logger
	config    config.AnalyticsConfig
}

func NewAnalyticsService(
	published PublishedItemStore,
	publisher ReportPublisher,
	logger *slog.Logger,
	cfg config.AnalyticsConfig,
) *AnalyticsService {
	return &AnalyticsService{
		published: published,
		publisher: publisher,
		logger:    logger.With("component", "analytics"),
		config:    cfg,
	}
}

// Run loads the published-item window, computes engagement statistics and
// trust recommendations, and publishes alerts for every source the
// evaluator flagged.
func (s *AnalyticsService) Run(ctx context.Context) (*AnalyticsSummary, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -s.config.WindowDays)

	items, err := s.published.ListWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list published items: %w", err)
	}

	summary := &AnalyticsSummary{
		From:       from,
		To:         to,
		Stats:      analytics.ComputePeriodStats(items),
		BestPosts:  analytics.TopK(items, s.config.TopPosts, analytics.Best),
		WorstPosts: analytics.TopK(items, s.config.TopPosts, analytics.Worst),
		Topics:     analytics.TrendingTopics(items, s.config.TopTopics),
		Weekdays:   analytics.WeekdayStats(items),
	}
	summary.TrustRecords = analytics.EvaluateSources(analytics.AggregateBySource(items))

	alerts := flaggedRecords(summary.TrustRecords)
	if len(alerts) > 0 {
		if err := s.publisher.PublishTrustAlerts(ctx, alerts); err != nil {
			return summary, fmt.Errorf("publish trust alerts: %w", err)
		}
	}

	s.logger.Info("analytics run completed",
		"window_days", s.config.WindowDays,
		"items", summary.Stats.Count,
		"engagement_rate", summary.Stats.EngagementRate,
		"avg_quality_score", summary.Stats.AvgQualityScore,
		"flagged_sources", len(alerts),
	)

	return summary, nil
}

func flaggedRecords(records []domain.SourceTrustRecord) []domain.SourceTrustRecord {
	var flagged []domain.SourceTrustRecord
	for _, rec := range records {
		if rec.Recommendation != domain.RecommendNone {
			flagged = append(flagged, rec)
		}
	}
	return flagged
}
