package research

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/insightforge/market-intel/internal/model"
)

const (
	newsSearchURL = "https://news.google.com/rss/search"
	htmlSearchURL = "https://duckduckgo.com/html/"
)

// Surfaces queries the two keyless public web-search surfaces: a news-feed
// RSS search and an HTML results page. Both are parsed defensively; any
// failure yields an empty list, never an error.
type Surfaces struct {
	client    *http.Client
	userAgent string
	limiters  map[string]*rate.Limiter
}

// NewSurfaces creates a Surfaces client with per-host rate limiting.
func NewSurfaces(timeout time.Duration, userAgent string) *Surfaces {
	return &Surfaces{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		limiters: map[string]*rate.Limiter{
			"news.google.com": rate.NewLimiter(2, 2),
			"duckduckgo.com":  rate.NewLimiter(1, 2),
		},
	}
}

// SearchNews queries the news RSS surface and returns up to perQuery
// candidates.
func (s *Surfaces) SearchNews(ctx context.Context, query string, perQuery int) []model.SourceCandidate {
	params := url.Values{
		"q":    {query},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}

	body, ok := s.get(ctx, newsSearchURL+"?"+params.Encode(), "news.google.com")
	if !ok {
		return nil
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		zap.L().Debug("research: news feed parse failed", zap.Error(err))
		return nil
	}

	out := make([]model.SourceCandidate, 0, perQuery)
	for _, item := range feed.Items {
		if len(out) >= perQuery {
			break
		}
		clean := UnwrapRedirect(strings.TrimSpace(item.Link))
		if clean == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled Source"
		}
		out = append(out, model.SourceCandidate{
			Title:       title,
			URL:         clean,
			Domain:      DomainOf(clean),
			PublishedAt: strings.TrimSpace(item.Published),
			Snippet:     strings.TrimSpace(item.Description),
		})
	}
	return out
}

// SearchHTML queries the HTML results surface and returns up to perQuery
// candidates.
func (s *Surfaces) SearchHTML(ctx context.Context, query string, perQuery int) []model.SourceCandidate {
	params := url.Values{"q": {query}}

	body, ok := s.get(ctx, htmlSearchURL+"?"+params.Encode(), "duckduckgo.com")
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		zap.L().Debug("research: html search parse failed", zap.Error(err))
		return nil
	}

	out := make([]model.SourceCandidate, 0, perQuery)
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(out) >= perQuery {
			return false
		}
		href, _ := sel.Attr("href")
		clean := UnwrapRedirect(strings.TrimSpace(href))
		if clean == "" {
			return true
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = "Untitled Source"
		}
		snippet := strings.TrimSpace(sel.Closest(".result").Find(".result__snippet").Text())
		out = append(out, model.SourceCandidate{
			Title:   title,
			URL:     clean,
			Domain:  DomainOf(clean),
			Snippet: snippet,
		})
		return true
	})
	return out
}

// get fetches a URL with rate limiting and the identifying user agent. The
// bool is false on any failure.
func (s *Surfaces) get(ctx context.Context, rawURL, host string) (string, bool) {
	if lim, ok := s.limiters[host]; ok {
		if err := lim.Wait(ctx); err != nil {
			return "", false
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Debug("research: surface fetch failed", zap.String("host", host), zap.Error(err))
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("research: surface returned non-200",
			zap.String("host", host),
			zap.Int("status", resp.StatusCode),
		)
		return "", false
	}

	var b strings.Builder
	if _, err := io.Copy(&b, io.LimitReader(resp.Body, 2*1024*1024)); err != nil {
		return "", false
	}
	return b.String(), true
}
