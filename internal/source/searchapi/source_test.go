package searchapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(baseURL string, maxPages int) *Source {
	return New(Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Query:          "ai law",
		PageSize:       2,
		MaxPages:       maxPages,
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, testLogger())
}

func pageHandler(t *testing.T, pages map[int]APIResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ai law", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		resp, ok := pages[page]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestFetchArticles_WalksAllPages(t *testing.T) {
	pages := map[int]APIResponse{
		1: {
			Page:       1,
			TotalPages: 2,
			Results: []Result{
				{URL: "https://example.com/1", Title: "First", Content: "body one", Source: "lenta", PublishedAt: "2025-06-02T10:00:00Z"},
				{URL: "https://example.com/2", Title: "Second", Content: "body two", Source: "lenta"},
			},
		},
		2: {
			Page:       2,
			TotalPages: 2,
			Results: []Result{
				{URL: "https://example.com/3", Title: "Third", Content: "body three", PublishedAt: "not-a-timestamp"},
			},
		},
	}

	server := httptest.NewServer(pageHandler(t, pages))
	defer server.Close()

	articles, err := newTestSource(server.URL, 5).FetchArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, "First", articles[0].Title)
	assert.Equal(t, "lenta", articles[0].SourceName)
	require.NotNil(t, articles[0].PublishedAt)
	assert.Equal(t, 2025, articles[0].PublishedAt.Year())

	assert.Nil(t, articles[1].PublishedAt)

	// A result without its own source attribution falls back to the
	// adapter name.
	assert.Equal(t, SourceName, articles[2].SourceName)
	assert.Nil(t, articles[2].PublishedAt)
}

func TestFetchArticles_StopsAtMaxPages(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(APIResponse{
			Page:       page,
			TotalPages: 100,
			Results:    []Result{{URL: "https://example.com/" + strconv.Itoa(page), Title: "t", Content: "c"}},
		})
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL, 3).FetchArticles(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchArticles_MidWalkFailureKeepsCollected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(APIResponse{
			Page:       1,
			TotalPages: 3,
			Results:    []Result{{URL: "https://example.com/1", Title: "t", Content: "c"}},
		})
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL, 5).FetchArticles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 2")
	assert.Len(t, articles, 1)
}

func TestFetchArticles_RetriesBeforeFailing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(APIResponse{
			Page:       1,
			TotalPages: 1,
			Results:    []Result{{URL: "https://example.com/1", Title: "t", Content: "c"}},
		})
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL, 5).FetchArticles(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 1)
	assert.Equal(t, int32(2), calls.Load())
}
