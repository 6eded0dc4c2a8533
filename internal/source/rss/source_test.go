package rss

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Legal Tech News</title>
    <item>
      <title>Court &amp; AI: new ruling</title>
      <link>https://example.com/ruling</link>
      <description>&lt;p&gt;The court issued &lt;b&gt;new guidance&lt;/b&gt; on AI evidence.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jun 2025 10:30:00 +0300</pubDate>
    </item>
    <item>
      <title>Full body item</title>
      <link>https://example.com/full</link>
      <description>short teaser</description>
      <content:encoded>&lt;div&gt;Complete article text here.&lt;/div&gt;</content:encoded>
      <pubDate>not a date at all</pubDate>
    </item>
  </channel>
</rss>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(url string) *Source {
	return New(Config{
		Name:           "legal-tech",
		URL:            url,
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, testLogger())
}

func TestFetchArticles_NormalizesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL).FetchArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "https://example.com/ruling", first.URL)
	assert.Equal(t, "Court & AI: new ruling", first.Title)
	assert.Equal(t, "The court issued new guidance on AI evidence.", first.Body)
	assert.Equal(t, "legal-tech", first.SourceName)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2025, first.PublishedAt.Year())
	assert.False(t, first.FetchedAt.IsZero())

	second := articles[1]
	assert.Equal(t, "Complete article text here.", second.Body, "content:encoded wins over description")
	assert.Nil(t, second.PublishedAt, "unparseable dates stay nil, never invented")
}

func TestFetchArticles_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL).FetchArticles(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchArticles_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestSource(server.URL).FetchArticles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchArticles_ToleratesSloppyMarkup(t *testing.T) {
	// An unknown entity would fail a strict XML decode.
	sloppy := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>Entity &nbsp; test</title><link>https://example.com/e</link>
<description>body</description></item>
</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sloppy))
	}))
	defer server.Close()

	articles, err := newTestSource(server.URL).FetchArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://example.com/e", articles[0].URL)
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "rfc1123z", raw: "Mon, 02 Jun 2025 10:30:00 +0300", want: true},
		{name: "rfc1123", raw: "Mon, 02 Jun 2025 10:30:00 MSK", want: true},
		{name: "single digit day", raw: "Mon, 2 Jun 2025 10:30:00 +0300", want: true},
		{name: "rfc3339", raw: "2025-06-02T10:30:00Z", want: true},
		{name: "garbage", raw: "yesterday-ish", want: false},
		{name: "empty", raw: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePubDate(tt.raw)
			if tt.want {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
