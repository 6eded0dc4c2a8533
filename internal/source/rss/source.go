package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"news_curator/internal/domain"
)

// pubDateFormats lists the timestamp layouts seen in the wild, tried in
// order. A date that matches none of them stays nil; the age filter
// treats missing dates as fresh.
var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// Config holds one feed's configuration.
type Config struct {
	Name           string
	URL            string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches and normalizes a single RSS feed.
type Source struct {
	httpClient     *http.Client
	name           string
	url            string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		name:           cfg.Name,
		url:            cfg.URL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", cfg.Name),
	}
}

func (s *Source) Name() string {
	return s.name
}

// FetchArticles downloads the feed and normalizes its items.
func (s *Source) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	doc, err := s.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched feed",
		"channel", doc.Channel.Title,
		"items", len(doc.Channel.Items),
	)

	return s.transform(doc.Channel.Items), nil
}

func (s *Source) fetchFeed(ctx context.Context) (*feedDocument, error) {
	var doc *feedDocument
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		doc, err = s.doRequest(ctx)
		if err == nil {
			return doc, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context) (*feedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", "NewsCurator/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Feeds routinely carry sloppy markup; a strict decode would drop
	// the whole channel over one bad entity.
	decoder := xml.NewDecoder(resp.Body)
	decoder.Strict = false

	var doc feedDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	return &doc, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(items []feedItem) []domain.Article {
	now := time.Now()
	articles := make([]domain.Article, 0, len(items))

	for _, item := range items {
		body := item.Content
		if body == "" {
			body = item.Description
		}

		article := domain.Article{
			URL:         strings.TrimSpace(item.Link),
			Title:       strings.TrimSpace(stripHTML(item.Title)),
			Body:        strings.TrimSpace(stripHTML(body)),
			SourceName:  s.name,
			PublishedAt: parsePubDate(item.PubDate),
			FetchedAt:   now,
			Status:      domain.StatusNew,
		}

		articles = append(articles, article)
	}

	return articles
}

// stripHTML flattens feed markup to plain text. Unparseable input is
// returned unchanged rather than lost.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

func parsePubDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range pubDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
