package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/compose"
	"github.com/insightforge/market-intel/internal/extract"
	"github.com/insightforge/market-intel/internal/pipeline"
	"github.com/insightforge/market-intel/internal/registry"
	"github.com/insightforge/market-intel/internal/research"
	"github.com/insightforge/market-intel/internal/scrape"
	"github.com/insightforge/market-intel/internal/store"
	"github.com/insightforge/market-intel/pkg/claude"
	"github.com/insightforge/market-intel/pkg/parallel"
)

// pipelineEnv bundles the wired pipeline with its store for commands that
// need both.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
}

func (e *pipelineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initPipeline builds the full orchestrator: store, source registry, the
// strategy chain in priority order, fetcher, extractor, and composer.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg, err := registry.Load(cfg.Research.RegistryPath)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "load source registry")
	}

	var claudeClient claude.Client
	if cfg.Anthropic.Key != "" {
		claudeClient = claude.NewClient(cfg.Anthropic.Key)
	}

	var parallelClient parallel.Client
	if cfg.Parallel.Key != "" {
		parallelClient = parallel.NewClient(cfg.Parallel.Key, parallel.WithBaseURL(cfg.Parallel.BaseURL))
	}

	scorer := research.NewScorer(reg)
	curated := research.NewCuratedStrategy(reg)
	surfaces := research.NewSurfaces(cfg.Research.SearchTimeout(), cfg.Research.UserAgent)

	perQuery := cfg.Research.PerQueryResults
	finder := research.NewFinder(scorer, curated, cfg.Research.StrictAuthority,
		research.NewClaudeSearchStrategy(claudeClient, cfg.Anthropic),
		research.NewParallelSearchStrategy(parallelClient, perQuery),
		research.NewAuthorityStrategy(surfaces, reg, cfg.Research.StrictAuthority, perQuery),
		research.NewWebSearchStrategy(surfaces, perQuery),
	)

	fetcher := scrape.NewFetcher(cfg.Scrape)
	extractor := extract.NewExtractor(claudeClient, cfg.Anthropic, rand.New(rand.NewSource(time.Now().UnixNano())))
	composer := compose.New(claudeClient, cfg.Anthropic)

	orch := pipeline.New(st, finder, fetcher, extractor, composer, cfg.Pipeline, cfg.Reports.Dir)

	return &pipelineEnv{Store: st, Orchestrator: orch}, nil
}
