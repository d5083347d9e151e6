package research

import (
	"context"

	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/model"
)

// Finder tries retrieval strategies in priority order until one yields
// enough valid candidates, then ranks, diversifies, and trims the winner's
// results. It never fails: the curated fallback guarantees at least one
// candidate.
type Finder struct {
	strategies []Strategy
	curated    *CuratedStrategy
	scorer     *Scorer
	strict     bool
}

// NewFinder creates a Finder over an ordered strategy chain. The curated
// strategy serves both as the chain's last entry and as the top-up source
// when the winner comes up short.
func NewFinder(scorer *Scorer, curated *CuratedStrategy, strict bool, strategies ...Strategy) *Finder {
	return &Finder{
		strategies: append(strategies, curated),
		curated:    curated,
		scorer:     scorer,
		strict:     strict,
	}
}

// acceptanceFloor is the minimum number of valid results a strategy must
// produce to win the chain.
func acceptanceFloor(limit int) int {
	floor := limit / 2
	if floor < 6 {
		floor = 6
	}
	return floor
}

// Find returns up to q.Limit candidates for a section, deduplicated by
// normalized URL, ranked best-first, with at most two entries per domain.
func (f *Finder) Find(ctx context.Context, q Query) []model.SourceCandidate {
	floor := acceptanceFloor(q.Limit)

	var prepared []model.SourceCandidate
	for _, strat := range f.strategies {
		if !strat.Available() {
			continue
		}

		raw, err := strat.Find(ctx, q)
		if err != nil {
			zap.L().Debug("research: strategy failed, trying next",
				zap.String("strategy", strat.Name()),
				zap.String("section", q.Section),
				zap.Error(err),
			)
			continue
		}

		candidates := f.prepare(raw, q)
		if len(candidates) >= floor {
			zap.L().Info("research: strategy accepted",
				zap.String("strategy", strat.Name()),
				zap.String("section", q.Section),
				zap.Int("candidates", len(candidates)),
			)
			prepared = candidates
			break
		}

		// Keep the best partial result seen so far; the curated top-up
		// below fills the gap if the whole chain falls short.
		if len(candidates) > len(prepared) {
			prepared = candidates
		}
		zap.L().Debug("research: strategy below floor",
			zap.String("strategy", strat.Name()),
			zap.String("section", q.Section),
			zap.Int("candidates", len(candidates)),
			zap.Int("floor", floor),
		)
	}

	if len(prepared) < floor {
		topped := append(prepared, f.scorer.Filter(f.curated.Curated(q), false)...)
		prepared = f.prepare(topped, q)
	}

	for i := range prepared {
		prepared[i].Sections = []string{q.Section}
	}

	if len(prepared) > q.Limit {
		prepared = prepared[:q.Limit]
	}
	return prepared
}

// prepare runs the full candidate treatment: validity filter, dedup, rank,
// diversify.
func (f *Finder) prepare(raw []model.SourceCandidate, q Query) []model.SourceCandidate {
	filtered := f.scorer.Filter(raw, f.strict)
	deduped := Dedupe(filtered)
	ranked := f.scorer.Score(deduped, q.Industry, q.Geography)
	return f.scorer.Diversify(ranked)
}
