package research

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/registry"
)

// scoreDivisor normalizes the raw ranking sum into [0,1]. The raw score is
// term hits plus an authority bonus of 2 and a freshness bonus of 1.
const scoreDivisor = 18.0

// maxPerDomain caps how many candidates a single outlet may contribute
// after ranking.
const maxPerDomain = 2

// Scorer filters, ranks, and diversifies source candidates. Pure functions
// over slices; no I/O.
type Scorer struct {
	reg *registry.Registry
	now func() time.Time
}

// NewScorer creates a Scorer over the given registry.
func NewScorer(reg *registry.Registry) *Scorer {
	return &Scorer{reg: reg, now: time.Now}
}

// WithNow fixes the clock used for the freshness bonus. For tests.
func (s *Scorer) WithNow(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Valid applies the validity filter: a usable domain, no UGC platforms, no
// login/subscription-wall markers in the URL, and at least one
// market-research intent term in the title or URL. Under strict mode the
// domain must additionally belong to the high-authority allow-list.
func (s *Scorer) Valid(c model.SourceCandidate, strict bool) bool {
	domain := strings.ToLower(c.Domain)
	if domain == "" {
		return false
	}

	for _, blocked := range s.reg.BlockedDomains {
		if domainMatches(domain, blocked) {
			return false
		}
	}

	lowURL := strings.ToLower(c.URL)
	for _, marker := range s.reg.PaywallMarkers {
		if strings.Contains(lowURL, marker) {
			return false
		}
	}

	haystack := strings.ToLower(c.Title) + " " + lowURL
	hasIntent := false
	for _, term := range s.reg.IntentTerms {
		if strings.Contains(haystack, term) {
			hasIntent = true
			break
		}
	}
	if !hasIntent {
		return false
	}

	if strict && !s.IsAuthority(domain) {
		return false
	}
	return true
}

// IsAuthority reports whether a domain belongs to the strict-mode
// high-authority allow-list.
func (s *Scorer) IsAuthority(domain string) bool {
	domain = strings.ToLower(domain)
	for _, auth := range s.reg.AuthorityDomains {
		if domainMatches(domain, auth) {
			return true
		}
	}
	return false
}

// Filter returns the candidates passing Valid, preserving order.
func (s *Scorer) Filter(candidates []model.SourceCandidate, strict bool) []model.SourceCandidate {
	out := make([]model.SourceCandidate, 0, len(candidates))
	for _, c := range candidates {
		if s.Valid(c, strict) {
			out = append(out, c)
		}
	}
	return out
}

// Score assigns each candidate a normalized relevance score and returns the
// list ranked best-first. The sort is stable, so input order breaks ties.
func (s *Scorer) Score(candidates []model.SourceCandidate, industry, geography string) []model.SourceCandidate {
	industryTerms := splitTerms(industry)
	geoTerms := splitTerms(geography)
	currentYear := s.now().UTC().Format("2006")

	out := make([]model.SourceCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		text := strings.ToLower(out[i].Title + " " + out[i].Snippet + " " + out[i].URL)

		raw := 0.0
		for _, t := range industryTerms {
			if strings.Contains(text, t) {
				raw++
			}
		}
		for _, t := range geoTerms {
			if strings.Contains(text, t) {
				raw++
			}
		}
		for _, t := range s.reg.IntentTerms {
			if strings.Contains(text, t) {
				raw++
			}
		}

		domain := strings.ToLower(out[i].Domain)
		for _, hint := range s.reg.AuthorityHints {
			if strings.Contains(domain, hint) {
				raw += 2
				break
			}
		}

		if strings.Contains(out[i].PublishedAt, currentYear) {
			raw++
		}

		score := raw / scoreDivisor
		if score > 1 {
			score = 1
		}
		out[i].RelevanceScore = score
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RelevanceScore > out[b].RelevanceScore
	})
	return out
}

// Diversify walks a ranked list and keeps at most maxPerDomain entries per
// domain, preserving rank order. Prevents one outlet from dominating a
// section's sources.
func (s *Scorer) Diversify(ranked []model.SourceCandidate) []model.SourceCandidate {
	counts := make(map[string]int, len(ranked))
	out := make([]model.SourceCandidate, 0, len(ranked))
	for _, c := range ranked {
		domain := strings.ToLower(c.Domain)
		if counts[domain] >= maxPerDomain {
			continue
		}
		counts[domain]++
		out = append(out, c)
	}
	return out
}

// Dedupe drops candidates whose normalized URL was already seen, keeping
// the first occurrence.
func Dedupe(candidates []model.SourceCandidate) []model.SourceCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.SourceCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.NormalizedURL()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// domainMatches reports whether domain equals pattern or is a subdomain of
// it.
func domainMatches(domain, pattern string) bool {
	return domain == pattern || strings.HasSuffix(domain, "."+pattern)
}

func splitTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			out = append(out, f)
		}
	}
	return out
}

// DomainOf extracts the lowercased hostname from a URL, or "" when the URL
// does not parse.
func DomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
