// Package research discovers candidate web sources for report sections.
// Retrieval strategies are tried in priority order until one yields enough
// valid results; a curated fallback guarantees the finder never comes back
// empty.
package research

import (
	"context"

	"github.com/insightforge/market-intel/internal/model"
)

// Query is one section-scoped discovery request.
type Query struct {
	Industry  string
	Geography string
	Section   string
	Limit     int
}

// Strategy is a single source-retrieval approach. Find returns raw,
// unfiltered candidates; an empty slice or an error both mean "try the next
// strategy".
type Strategy interface {
	Name() string
	// Available reports whether the strategy is usable under the current
	// configuration (credentials present, mode enabled).
	Available() bool
	Find(ctx context.Context, q Query) ([]model.SourceCandidate, error)
}
