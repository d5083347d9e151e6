package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/market-intel/internal/config"
)

func testConfig() config.ScrapeConfig {
	return config.ScrapeConfig{
		TimeoutSecs:     5,
		UserAgent:       "TestBot/1.0",
		MaxRawChars:     200000,
		MaxCleanedChars: 12000,
	}
}

const samplePage = `<!DOCTYPE html>
<html><head><title>Widget Market Report</title>
<style>body { color: red; }</style>
<script>console.log("tracking");</script>
</head><body>
<article>
<h1>Widget Market Report</h1>
<p>The global widget market was valued at USD 12.4 billion in 2025 and is
expected to grow at a CAGR of 8.2 percent through 2030. Demand is driven by
industrial automation and replacement cycles in mature economies.</p>
<p>North America held the largest regional share, followed by Asia-Pacific,
where capacity expansion continues to outpace the rest of the world.</p>
</article>
</body></html>`

func TestFetchSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	assert.Equal(t, "TestBot/1.0", gotUA)
	assert.Contains(t, res.RawText, "<html>")
	assert.Contains(t, res.CleanedText, "USD 12.4 billion")
	assert.NotContains(t, res.CleanedText, "console.log")
	assert.NotContains(t, res.CleanedText, "color: red")
}

func TestFetchCollapsesWhitespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>market   \n\n  size</p></body></html>")
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	assert.NotContains(t, res.CleanedText, "  ")
	assert.Contains(t, res.CleanedText, "market size")
}

func TestFetchNon2xxFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	want := fmt.Sprintf("Unable to scrape %s. Using fallback synthesized content for downstream extraction.", srv.URL)
	assert.Equal(t, want, res.RawText)
	assert.Equal(t, want, res.CleanedText)
}

func TestFetchConnectionErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := NewFetcher(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	assert.Contains(t, res.CleanedText, "Unable to scrape")
	assert.Contains(t, res.CleanedText, srv.URL)
}

func TestFetchTimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := f.Fetch(ctx, srv.URL)

	assert.Contains(t, res.CleanedText, "Unable to scrape")
}

func TestFetchInvalidURLFallsBack(t *testing.T) {
	f := NewFetcher(testConfig())
	res := f.Fetch(context.Background(), "http://\x7f")

	assert.Contains(t, res.CleanedText, "Unable to scrape")
}

func TestFetchCapsOutput(t *testing.T) {
	big := "<html><body><p>market " + strings.Repeat("growth data ", 5000) + "</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, big)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRawChars = 500
	cfg.MaxCleanedChars = 100

	f := NewFetcher(cfg)
	res := f.Fetch(context.Background(), srv.URL)

	require.NotContains(t, res.CleanedText, "Unable to scrape")
	assert.LessOrEqual(t, len(res.RawText), 500)
	assert.LessOrEqual(t, len(res.CleanedText), 100)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
	assert.Equal(t, "abcdef", truncate("abcdef", 100))
}
