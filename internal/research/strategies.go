package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/config"
	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/registry"
	"github.com/insightforge/market-intel/pkg/claude"
	"github.com/insightforge/market-intel/pkg/parallel"
)

// ClaudeSearchStrategy asks a browsing-enabled Claude model for sources and
// parses a strict JSON list out of the answer. Free-text answers are
// recovered by regex-extracting URLs.
type ClaudeSearchStrategy struct {
	client claude.Client
	cfg    config.AnthropicConfig
}

// NewClaudeSearchStrategy creates the generative web-search strategy.
// client may be nil when no key is configured.
func NewClaudeSearchStrategy(client claude.Client, cfg config.AnthropicConfig) *ClaudeSearchStrategy {
	return &ClaudeSearchStrategy{client: client, cfg: cfg}
}

func (s *ClaudeSearchStrategy) Name() string { return "claude_web_search" }

func (s *ClaudeSearchStrategy) Available() bool {
	return s.client != nil && s.cfg.WebSearch
}

const searchPrompt = `Search the web for authoritative sources about the %s market in %s, focusing on: %s.
Return ONLY a JSON array where each element is {"title": string, "url": string, "published_at": string, "snippet": string}.
Return at most %d elements. Prefer government, multilateral, and established research publishers.`

func (s *ClaudeSearchStrategy) Find(ctx context.Context, q Query) ([]model.SourceCandidate, error) {
	intents := strings.Join(QueryVariants(q), "; ")
	temp := 0.0

	resp, err := s.client.CreateMessage(ctx, claude.MessageRequest{
		Model:            s.cfg.Model,
		MaxTokens:        2000,
		Prompt:           fmt.Sprintf(searchPrompt, q.Industry, q.Geography, intents, q.Limit),
		Temperature:      &temp,
		WebSearch:        true,
		MaxWebSearchUses: 3,
	})
	if err != nil {
		return nil, err
	}

	var items []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"published_at"`
		Snippet     string `json:"snippet"`
	}
	if err := claude.ExtractJSONArray(resp.Text, &items); err != nil {
		zap.L().Debug("research: claude search returned free text, recovering URLs",
			zap.String("section", q.Section),
		)
		return recoverURLs(resp.Text), nil
	}

	out := make([]model.SourceCandidate, 0, len(items))
	for _, it := range items {
		clean := UnwrapRedirect(it.URL)
		if clean == "" {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = "Untitled Source"
		}
		out = append(out, model.SourceCandidate{
			Title:       title,
			URL:         clean,
			Domain:      DomainOf(clean),
			PublishedAt: strings.TrimSpace(it.PublishedAt),
			Snippet:     strings.TrimSpace(it.Snippet),
		})
	}
	return Dedupe(out), nil
}

var urlRe = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// recoverURLs pulls bare URLs out of a free-text model response.
func recoverURLs(text string) []model.SourceCandidate {
	matches := urlRe.FindAllString(text, -1)
	out := make([]model.SourceCandidate, 0, len(matches))
	for _, m := range matches {
		clean := UnwrapRedirect(strings.TrimRight(m, ".,;"))
		if clean == "" {
			continue
		}
		out = append(out, model.SourceCandidate{
			Title:  "Untitled Source",
			URL:    clean,
			Domain: DomainOf(clean),
		})
	}
	return Dedupe(out)
}

// ParallelSearchStrategy queries the programmatic search API with the
// section's query variants.
type ParallelSearchStrategy struct {
	search   parallel.Client
	perQuery int
}

// NewParallelSearchStrategy creates the programmatic search-API strategy.
// search may be nil when no key is configured.
func NewParallelSearchStrategy(search parallel.Client, perQuery int) *ParallelSearchStrategy {
	return &ParallelSearchStrategy{search: search, perQuery: perQuery}
}

func (s *ParallelSearchStrategy) Name() string    { return "parallel_api" }
func (s *ParallelSearchStrategy) Available() bool { return s.search != nil }

func (s *ParallelSearchStrategy) Find(ctx context.Context, q Query) ([]model.SourceCandidate, error) {
	var combined []model.SourceCandidate
	for _, query := range QueryVariants(q) {
		resp, err := s.search.Search(ctx, parallel.SearchRequest{Query: query, Limit: s.perQuery})
		if err != nil {
			zap.L().Debug("research: parallel query failed",
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		for _, r := range resp.Results {
			clean := UnwrapRedirect(r.URL)
			if clean == "" {
				continue
			}
			title := strings.TrimSpace(r.Title)
			if title == "" {
				title = "Untitled Source"
			}
			combined = append(combined, model.SourceCandidate{
				Title:       title,
				URL:         clean,
				Domain:      DomainOf(clean),
				PublishedAt: r.PublishedAt,
				Snippet:     r.Snippet,
			})
		}
	}
	return Dedupe(combined), nil
}

// AuthorityStrategy runs site-restricted queries against the public search
// surfaces, limited to the high-authority domain allow-list. No API key
// required. Only active when strict authority mode is configured.
type AuthorityStrategy struct {
	surfaces *Surfaces
	reg      *registry.Registry
	enabled  bool
	perQuery int
}

// NewAuthorityStrategy creates the strict high-authority strategy.
func NewAuthorityStrategy(surfaces *Surfaces, reg *registry.Registry, enabled bool, perQuery int) *AuthorityStrategy {
	return &AuthorityStrategy{surfaces: surfaces, reg: reg, enabled: enabled, perQuery: perQuery}
}

func (s *AuthorityStrategy) Name() string    { return "strict_authority" }
func (s *AuthorityStrategy) Available() bool { return s.enabled }

func (s *AuthorityStrategy) Find(ctx context.Context, q Query) ([]model.SourceCandidate, error) {
	var combined []model.SourceCandidate
	for _, base := range QueryVariants(q) {
		restricted := base + " " + siteRestriction(s.reg.AuthorityDomains)
		combined = append(combined, s.surfaces.SearchNews(ctx, restricted, s.perQuery)...)
		combined = append(combined, s.surfaces.SearchHTML(ctx, restricted, s.perQuery)...)
	}
	return Dedupe(combined), nil
}

// siteRestriction builds an OR-joined site: clause over the allow-list.
func siteRestriction(domains []string) string {
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		parts = append(parts, "site:"+d)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// WebSearchStrategy runs the section's query variants against both public
// surfaces without domain restriction.
type WebSearchStrategy struct {
	surfaces *Surfaces
	perQuery int
}

// NewWebSearchStrategy creates the generic web-search strategy.
func NewWebSearchStrategy(surfaces *Surfaces, perQuery int) *WebSearchStrategy {
	return &WebSearchStrategy{surfaces: surfaces, perQuery: perQuery}
}

func (s *WebSearchStrategy) Name() string    { return "web_search" }
func (s *WebSearchStrategy) Available() bool { return true }

func (s *WebSearchStrategy) Find(ctx context.Context, q Query) ([]model.SourceCandidate, error) {
	var combined []model.SourceCandidate
	for _, query := range QueryVariants(q) {
		combined = append(combined, s.surfaces.SearchNews(ctx, query, s.perQuery)...)
		combined = append(combined, s.surfaces.SearchHTML(ctx, query, s.perQuery)...)
	}
	return Dedupe(combined), nil
}

// CuratedStrategy returns the fixed institutional fallback list. Always
// available and never empty, so the finder has a floor.
type CuratedStrategy struct {
	reg *registry.Registry
}

// NewCuratedStrategy creates the curated-fallback strategy.
func NewCuratedStrategy(reg *registry.Registry) *CuratedStrategy {
	return &CuratedStrategy{reg: reg}
}

func (s *CuratedStrategy) Name() string    { return "curated_fallback" }
func (s *CuratedStrategy) Available() bool { return true }

func (s *CuratedStrategy) Find(_ context.Context, q Query) ([]model.SourceCandidate, error) {
	limit := q.Limit
	if limit <= 0 || limit > len(s.reg.CuratedLinks) {
		limit = len(s.reg.CuratedLinks)
	}

	out := make([]model.SourceCandidate, 0, limit)
	for i, link := range s.reg.CuratedLinks[:limit] {
		out = append(out, model.SourceCandidate{
			Title:  fmt.Sprintf("%s Research Source %d (%s)", q.Industry, i+1, q.Geography),
			URL:    link,
			Domain: DomainOf(link),
		})
	}
	return out, nil
}

// Curated exposes the curated candidates for top-up outside the strategy
// chain.
func (s *CuratedStrategy) Curated(q Query) []model.SourceCandidate {
	out, _ := s.Find(context.Background(), q)
	return out
}
