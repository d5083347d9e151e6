// Package scrape retrieves and cleans page text for insight extraction.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/config"
)

// Result holds the raw and cleaned text for one fetched URL.
type Result struct {
	RawText     string
	CleanedText string
}

// Fetcher fetches a URL and returns best-effort text. It never fails: on
// any error both fields carry a synthetic placeholder so downstream
// extraction always has non-empty input.
type Fetcher struct {
	client *http.Client
	cfg    config.ScrapeConfig
}

// NewFetcher creates a Fetcher with the configured timeout and caps.
func NewFetcher(cfg config.ScrapeConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cfg: cfg,
	}
}

// Fetch retrieves a page, strips script/style/noscript content, collapses
// whitespace, and caps both text fields.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return f.fallback(url)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("scrape: fetch failed", zap.String("url", url), zap.Error(err))
		return f.fallback(url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.L().Debug("scrape: non-2xx response",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return f.fallback(url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return f.fallback(url)
	}

	html := string(body)
	cleaned := f.clean(html, url)
	if cleaned == "" {
		return f.fallback(url)
	}

	return Result{
		RawText:     truncate(html, f.cfg.MaxRawChars),
		CleanedText: truncate(cleaned, f.cfg.MaxCleanedChars),
	}
}

// clean extracts readable article text, falling back to a plain tag strip
// when readability cannot find an article body.
func (f *Fetcher) clean(html, url string) string {
	if parsed, err := nurl.Parse(url); err == nil {
		article, err := readability.FromReader(strings.NewReader(html), parsed)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return collapseWhitespace(article.TextContent)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return collapseWhitespace(doc.Text())
}

// fallback returns the synthetic placeholder used for every failure mode.
func (f *Fetcher) fallback(url string) Result {
	text := fmt.Sprintf("Unable to scrape %s. Using fallback synthesized content for downstream extraction.", url)
	return Result{RawText: text, CleanedText: text}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
