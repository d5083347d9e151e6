// Package registry holds the fixed source-quality vocabularies used by
// research filtering and scoring: curated fallback links, authority domain
// hints, the UGC blocklist, and the market-intent term list.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Registry bundles the research vocabularies. Defaults() covers normal use;
// a YAML fixture can override individual lists for bespoke deployments.
type Registry struct {
	CuratedLinks     []string `yaml:"curated_links"`
	AuthorityHints   []string `yaml:"authority_hints"`
	AuthorityDomains []string `yaml:"authority_domains"`
	BlockedDomains   []string `yaml:"blocked_domains"`
	PaywallMarkers   []string `yaml:"paywall_markers"`
	IntentTerms      []string `yaml:"intent_terms"`
}

// Defaults returns the built-in registry.
func Defaults() *Registry {
	return &Registry{
		CuratedLinks: []string{
			"https://www.worldbank.org/en/topic/industry",
			"https://www.oecd.org/industry",
			"https://www.imf.org/en/Publications/WEO",
			"https://ec.europa.eu/eurostat",
			"https://www.unido.org/",
			"https://unctad.org/topic/trade-analysis",
			"https://www.weforum.org/reports/",
			"https://www.trade.gov/industry-analysis",
			"https://www.eia.gov/outlooks/steo/",
			"https://www.sec.gov/edgar/searchedgar/companysearch",
		},
		AuthorityHints: []string{
			"gov", "oecd", "worldbank", "imf", "europa", "un",
			"statista", "mckinsey", "deloitte", "pwc",
		},
		// Strict-mode allow-list: government, multilateral, and regulatory
		// filing sites reachable via site-restricted queries.
		AuthorityDomains: []string{
			"worldbank.org", "oecd.org", "imf.org", "europa.eu",
			"unido.org", "unctad.org", "weforum.org", "trade.gov",
			"eia.gov", "sec.gov", "census.gov", "bls.gov",
		},
		BlockedDomains: []string{
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"tiktok.com", "reddit.com", "pinterest.com", "quora.com",
			"youtube.com", "medium.com", "blogspot.com", "substack.com",
		},
		PaywallMarkers: []string{
			"login", "signin", "sign-in", "subscribe", "subscription",
			"paywall", "register",
		},
		IntentTerms: []string{
			"market", "size", "forecast", "cagr", "industry",
			"analysis", "trend", "outlook", "report", "growth",
		},
	}
}

// LoadFromFile reads a YAML registry fixture and fills any empty list from
// the defaults, so a fixture only needs to override what it changes.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read fixture")
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal fixture")
	}

	def := Defaults()
	if len(reg.CuratedLinks) == 0 {
		reg.CuratedLinks = def.CuratedLinks
	}
	if len(reg.AuthorityHints) == 0 {
		reg.AuthorityHints = def.AuthorityHints
	}
	if len(reg.AuthorityDomains) == 0 {
		reg.AuthorityDomains = def.AuthorityDomains
	}
	if len(reg.BlockedDomains) == 0 {
		reg.BlockedDomains = def.BlockedDomains
	}
	if len(reg.PaywallMarkers) == 0 {
		reg.PaywallMarkers = def.PaywallMarkers
	}
	if len(reg.IntentTerms) == 0 {
		reg.IntentTerms = def.IntentTerms
	}
	return &reg, nil
}

// Load returns the registry from the fixture at path, or Defaults() when
// path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Defaults(), nil
	}
	return LoadFromFile(path)
}
