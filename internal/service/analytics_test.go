package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_curator/internal/config"
	"news_curator/internal/domain"
	"news_curator/internal/service/mocks"
)

type AnalyticsServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	published *mocks.MockPublishedItemStore
	publisher *mocks.MockReportPublisher

	service *AnalyticsService
}

func (s *AnalyticsServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.published = mocks.NewMockPublishedItemStore(s.ctrl)
	s.publisher = mocks.NewMockReportPublisher(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewAnalyticsService(
		s.published,
		s.publisher,
		logger,
		config.AnalyticsConfig{WindowDays: 30, TopPosts: 5, TopTopics: 10},
	)
}

func (s *AnalyticsServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAnalyticsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceTestSuite))
}

func (s *AnalyticsServiceTestSuite) TestRun_PublishesAlertsForFlaggedSources() {
	ctx := context.Background()
	now := time.Now()

	items := []domain.PublishedItem{
		{ID: 1, SourceName: "junk", Title: "clickbait court story", PublishedAt: now, Reactions: domain.ReactionCounts{BadSource: 2}},
		{ID: 2, SourceName: "junk", Title: "another court story", PublishedAt: now, Reactions: domain.ReactionCounts{BadSource: 1, Banal: 1}},
		{ID: 3, SourceName: "solid", Title: "useful court analysis", PublishedAt: now, Reactions: domain.ReactionCounts{Useful: 4}},
		{ID: 4, SourceName: "solid", Title: "useful legal digest", PublishedAt: now, Reactions: domain.ReactionCounts{Useful: 2}},
	}

	s.published.EXPECT().ListWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(items, nil)
	s.publisher.EXPECT().PublishTrustAlerts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, records []domain.SourceTrustRecord) error {
			s.Require().Len(records, 1)
			s.Equal("junk", records[0].SourceName)
			s.Equal(domain.RecommendDisable, records[0].Recommendation)
			return nil
		},
	)

	summary, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(4, summary.Stats.Count)
	s.Equal(4, summary.Stats.Engaged)
	s.Len(summary.TrustRecords, 2)
	s.NotEmpty(summary.BestPosts)
	s.Equal(int64(3), summary.BestPosts[0].Item.ID)
	s.NotEmpty(summary.Topics)
}

func (s *AnalyticsServiceTestSuite) TestRun_NoAlertsWhenAllHealthy() {
	ctx := context.Background()
	now := time.Now()

	items := []domain.PublishedItem{
		{ID: 1, SourceName: "solid", Title: "useful court analysis", PublishedAt: now, Reactions: domain.ReactionCounts{Useful: 4}},
		{ID: 2, SourceName: "solid", Title: "useful legal digest", PublishedAt: now, Reactions: domain.ReactionCounts{Useful: 2}},
	}

	s.published.EXPECT().ListWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(items, nil)

	summary, err := s.service.Run(ctx)

	s.NoError(err)
	s.Len(summary.TrustRecords, 1)
	s.Equal(domain.RecommendNone, summary.TrustRecords[0].Recommendation)
}

func (s *AnalyticsServiceTestSuite) TestRun_StoreError() {
	ctx := context.Background()

	s.published.EXPECT().ListWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	summary, err := s.service.Run(ctx)

	s.Error(err)
	s.Nil(summary)
	s.Contains(err.Error(), "list published items")
}
