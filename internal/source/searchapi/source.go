package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"news_curator/internal/domain"
)

const SourceName = "searchapi"

// Config holds the search-API source configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Query          string
	PageSize       int
	MaxPages       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source pulls candidate articles from a paged news-search API.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	query          string
	pageSize       int
	maxPages       int
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
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		query:          cfg.Query,
		pageSize:       cfg.PageSize,
		maxPages:       cfg.MaxPages,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceName),
	}
}

func (s *Source) Name() string {
	return SourceName
}

// FetchArticles walks result pages until the API reports no more or the
// page cap is reached. A mid-walk failure returns what was collected
// so far together with the error.
func (s *Source) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	var allResults []Result

	for page := 1; page <= s.maxPages; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			return s.transform(allResults), fmt.Errorf("fetch page %d: %w", page, err)
		}

		allResults = append(allResults, resp.Results...)

		s.logger.Debug("fetched page",
			"page", page,
			"results", len(resp.Results),
			"total", len(allResults),
		)

		if page >= resp.TotalPages {
			break
		}
	}

	return s.transform(allResults), nil
}

func (s *Source) fetchPage(ctx context.Context, page int) (*APIResponse, error) {
	params := url.Values{}
	params.Set("q", s.query)
	params.Set("page_size", strconv.Itoa(s.pageSize))
	params.Set("page", strconv.Itoa(page))

	requestURL := s.baseURL + "?" + params.Encode()

	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, requestURL)
		if err == nil {
			return resp, nil
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

func (s *Source) doRequest(ctx context.Context, requestURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsCurator/1.0")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
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

func (s *Source) transform(results []Result) []domain.Article {
	now := time.Now()
	articles := make([]domain.Article, 0, len(results))

	for _, r := range results {
		sourceName := r.Source
		if sourceName == "" {
			sourceName = SourceName
		}

		article := domain.Article{
			URL:        r.URL,
			Title:      r.Title,
			Body:       r.Content,
			SourceName: sourceName,
			FetchedAt:  now,
			Status:     domain.StatusNew,
		}

		if t, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
			article.PublishedAt = &t
		} else if r.PublishedAt != "" {
			s.logger.Warn("failed to parse date",
				"url", r.URL,
				"date", r.PublishedAt,
			)
		}

		articles = append(articles, article)
	}

	return articles
}
