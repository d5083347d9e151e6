package model

import "strings"

// SourceCandidate is a web source discovered for one or more report sections.
// Candidates live only for the duration of a pipeline run; the orchestrator
// merges duplicates across sections before persisting.
type SourceCandidate struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Domain         string   `json:"domain"`
	PublishedAt    string   `json:"published_at"` // free text, often empty
	Snippet        string   `json:"snippet,omitempty"`
	RelevanceScore float64  `json:"relevance_score"` // normalized to [0,1]
	Sections       []string `json:"sections,omitempty"`
}

// NormalizedURL returns the dedup key for a candidate: lowercased with any
// trailing slash trimmed.
func (c SourceCandidate) NormalizedURL() string {
	return NormalizeURL(c.URL)
}

// NormalizeURL lowercases a URL and trims a trailing slash so the same page
// dedupes regardless of case or slash variants.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
}

// HasSection reports whether the candidate was discovered for the section.
func (c SourceCandidate) HasSection(name string) bool {
	for _, s := range c.Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Source is a persisted, scraped source row belonging to a report.
type Source struct {
	ID             string   `json:"id"`
	ReportID       string   `json:"report_id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Domain         string   `json:"domain"`
	PublishedAt    string   `json:"published_at"`
	RawText        string   `json:"-"`
	CleanedText    string   `json:"-"`
	RelevanceScore float64  `json:"relevance_score"`
	Sections       []string `json:"sections,omitempty"`
}

// Citation is a numbered reference entry for a report, ordered by the
// persisted source list.
type Citation struct {
	ReportID string `json:"report_id"`
	SourceID string `json:"source_id"`
	Index    int    `json:"citation_index"`
	Label    string `json:"label"`
	URL      string `json:"url"`
}
