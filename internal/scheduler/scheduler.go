package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_curator/internal/domain"
	"news_curator/internal/service"
)

// Pipeline runs one full curation pass.
type Pipeline interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// Analytics runs one engagement/trust pass.
type Analytics interface {
	Run(ctx context.Context) (*service.AnalyticsSummary, error)
}

type Scheduler struct {
	pipeline          Pipeline
	analytics         Analytics
	pipelineInterval  time.Duration
	analyticsInterval time.Duration
	runTimeout        time.Duration
	logger            *slog.Logger
}

func New(
	pipeline Pipeline,
	analytics Analytics,
	pipelineInterval time.Duration,
	analyticsInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		pipeline:          pipeline,
		analytics:         analytics,
		pipelineInterval:  pipelineInterval,
		analyticsInterval: analyticsInterval,
		runTimeout:        30 * time.Minute,
		logger:            logger,
	}
}

// Start runs the pipeline immediately and then on its interval, with the
// analytics job on its own slower cadence. Blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"pipeline_interval", s.pipelineInterval,
		"analytics_interval", s.analyticsInterval,
	)

	s.runPipeline(ctx)
	s.runAnalytics(ctx)

	pipelineTicker := time.NewTicker(s.pipelineInterval)
	defer pipelineTicker.Stop()

	analyticsTicker := time.NewTicker(s.analyticsInterval)
	defer analyticsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-pipelineTicker.C:
			s.runPipeline(ctx)
		case <-analyticsTicker.C:
			s.runAnalytics(ctx)
		}
	}
}

func (s *Scheduler) runPipeline(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.pipeline.Run(runCtx); err != nil {
		s.logger.Error("pipeline run failed", "error", err)
	}
}

func (s *Scheduler) runAnalytics(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.analytics.Run(runCtx); err != nil {
		s.logger.Error("analytics run failed", "error", err)
	}
}
