// Package pipeline orchestrates report generation: staged fan-out over
// sections and sources with strict barriers between stages, phase updates
// on the report record, and document composition at the end.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insightforge/market-intel/internal/compose"
	"github.com/insightforge/market-intel/internal/config"
	"github.com/insightforge/market-intel/internal/consensus"
	"github.com/insightforge/market-intel/internal/forecast"
	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/research"
	"github.com/insightforge/market-intel/internal/scrape"
	"github.com/insightforge/market-intel/internal/store"
)

// maxFailureMessage caps the error text stored on a failed report.
const maxFailureMessage = 200

// SourceFinder discovers candidate sources for one section query.
type SourceFinder interface {
	Find(ctx context.Context, q research.Query) []model.SourceCandidate
}

// ContentFetcher retrieves best-effort page text for a URL.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) scrape.Result
}

// InsightExtractor turns source text into a structured insight.
type InsightExtractor interface {
	Extract(ctx context.Context, text, industry, geography string) model.Insight
}

// Composer assembles the final document.
type Composer interface {
	Compose(ctx context.Context, input model.ReportInput, sources []model.Source, insights []model.Insight,
		cons model.Consensus, fc model.Forecast, sectionInsights map[string][]model.Insight,
		sectionSourceCounts map[string]int) model.ReportDocument
}

// Orchestrator runs the report pipeline end to end. Worker goroutines never
// touch the status record; only the orchestrating goroutine writes phase
// transitions.
type Orchestrator struct {
	store      store.Store
	finder     SourceFinder
	fetcher    ContentFetcher
	extractor  InsightExtractor
	composer   Composer
	cfg        config.PipelineConfig
	reportsDir string
}

// New creates an Orchestrator.
func New(st store.Store, finder SourceFinder, fetcher ContentFetcher, extractor InsightExtractor, composer Composer, cfg config.PipelineConfig, reportsDir string) *Orchestrator {
	return &Orchestrator{
		store:      st,
		finder:     finder,
		fetcher:    fetcher,
		extractor:  extractor,
		composer:   composer,
		cfg:        cfg,
		reportsDir: reportsDir,
	}
}

// Generate runs the full pipeline for an existing report. Rerunning for the
// same report replaces all of its derived rows.
func (o *Orchestrator) Generate(ctx context.Context, reportID string) error {
	report, err := o.store.GetReport(ctx, reportID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load report %s", reportID)
	}

	plan, sourceCap := model.PlanForDepth(report.Input.Depth)
	if err := o.run(ctx, report, plan, sourceCap, nil); err != nil {
		o.fail(ctx, reportID, err)
		return err
	}
	return nil
}

// RegenerateSection reruns the pipeline restricted to a single section.
func (o *Orchestrator) RegenerateSection(ctx context.Context, reportID, section string) error {
	if !model.ValidSection(section) {
		return eris.Errorf("pipeline: unknown section %q", section)
	}

	report, err := o.store.GetReport(ctx, reportID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load report %s", reportID)
	}

	fullPlan, _ := model.PlanForDepth(report.Input.Depth)
	var plan []model.SectionPlan
	for _, sp := range fullPlan {
		if sp.Section == section {
			plan = []model.SectionPlan{sp}
			break
		}
	}

	if err := o.run(ctx, report, plan, plan[0].Limit, &section); err != nil {
		o.fail(ctx, reportID, err)
		return err
	}
	return nil
}

// run executes the staged pipeline. Each stage is a strict barrier: the
// next stage never starts on partial results.
func (o *Orchestrator) run(ctx context.Context, report *model.Report, plan []model.SectionPlan, sourceCap int, onlySection *string) error {
	input := report.Input

	// Stage 1: per-section source discovery.
	if err := o.setPhase(ctx, report.ID, model.PhaseResearching, "Researching sources"); err != nil {
		return err
	}

	perSection := make([][]model.SourceCandidate, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(o.sectionWorkers(), len(plan)))
	for i, sp := range plan {
		g.Go(func() error {
			perSection[i] = o.finder.Find(gctx, research.Query{
				Industry:  input.Industry,
				Geography: input.Geography,
				Section:   sp.Section,
				Limit:     sp.Limit,
			})
			return nil
		})
	}
	_ = g.Wait()

	merged := mergeCandidates(perSection, sourceCap)
	zap.L().Info("pipeline: research complete",
		zap.String("report_id", report.ID),
		zap.Int("sections", len(plan)),
		zap.Int("sources", len(merged)),
	)

	// Stage 2: per-source content fetch.
	if err := o.setPhase(ctx, report.ID, model.PhaseAnalyzing, "Analyzing sources"); err != nil {
		return err
	}

	sources := make([]model.Source, len(merged))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.fetchWorkers())
	for i, cand := range merged {
		g.Go(func() error {
			res := o.fetcher.Fetch(gctx, cand.URL)
			sources[i] = model.Source{
				ID:             uuid.New().String(),
				ReportID:       report.ID,
				Title:          cand.Title,
				URL:            cand.URL,
				Domain:         cand.Domain,
				PublishedAt:    cand.PublishedAt,
				RawText:        res.RawText,
				CleanedText:    res.CleanedText,
				RelevanceScore: cand.RelevanceScore,
				Sections:       cand.Sections,
			}
			return nil
		})
	}
	_ = g.Wait()

	// Stage 3: per-source insight extraction.
	insights := make([]model.Insight, len(sources))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.extractWorkers())
	for i, src := range sources {
		g.Go(func() error {
			insights[i] = o.extractor.Extract(gctx, src.CleanedText, input.Industry, input.Geography)
			return nil
		})
	}
	_ = g.Wait()

	if err := o.store.ReplaceDerived(ctx, report.ID, sources, insights, compose.Citations(report.ID, sources)); err != nil {
		return eris.Wrap(err, "pipeline: persist derived rows")
	}

	cons := consensus.Consolidate(insights)

	// Forecast.
	if err := o.setPhase(ctx, report.ID, model.PhaseForecasting, "Building forecast"); err != nil {
		return err
	}
	fc := forecast.Project(cons.MarketSizeUSDBillion, cons.CAGRPercent, o.forecastYears())

	// Compose.
	if err := o.setPhase(ctx, report.ID, model.PhaseComposing, "Composing report"); err != nil {
		return err
	}

	sectionInsights, sectionSourceCounts := groupBySection(plan, sources, insights)
	doc := o.composer.Compose(ctx, input, sources, insights, cons, fc, sectionInsights, sectionSourceCounts)

	metadata := map[string]any{
		"source_count":       len(sources),
		"avg_confidence":     doc.Visuals.AvgConfidence,
		"estimated_forecast": fc.Estimated,
		"inconsistencies":    cons.Inconsistencies,
	}
	if onlySection != nil {
		metadata["regenerated_section"] = *onlySection
	}

	if err := o.store.SaveDocument(ctx, report.ID, doc, metadata); err != nil {
		return eris.Wrap(err, "pipeline: save document")
	}

	o.writeArtifact(report.ID, doc.Markdown)

	if err := o.store.UpdateReportStatus(ctx, report.ID, model.ReportStatusComplete, "Report complete"); err != nil {
		return eris.Wrap(err, "pipeline: mark complete")
	}

	zap.L().Info("pipeline: report complete",
		zap.String("report_id", report.ID),
		zap.Int("sources", len(sources)),
		zap.Float64("avg_confidence", doc.Visuals.AvgConfidence),
	)
	return nil
}

// setPhase records a coarse phase transition on the report record.
func (o *Orchestrator) setPhase(ctx context.Context, reportID string, phase model.RunPhase, message string) error {
	if err := o.store.UpdateReportStatus(ctx, reportID, model.ReportStatusRunning, message); err != nil {
		return eris.Wrapf(err, "pipeline: set phase %s", phase)
	}
	return nil
}

// fail marks the report failed with a truncated error message.
func (o *Orchestrator) fail(ctx context.Context, reportID string, cause error) {
	msg := cause.Error()
	if len(msg) > maxFailureMessage {
		msg = msg[:maxFailureMessage]
	}
	if err := o.store.UpdateReportStatus(ctx, reportID, model.ReportStatusFailed, msg); err != nil {
		zap.L().Error("pipeline: failed to record failure",
			zap.String("report_id", reportID),
			zap.Error(err),
		)
	}
}

// writeArtifact drops the markdown document into the reports directory.
// Artifact write failures are logged, not fatal: the document is already
// persisted in the store.
func (o *Orchestrator) writeArtifact(reportID, markdown string) {
	if o.reportsDir == "" {
		return
	}
	if err := os.MkdirAll(o.reportsDir, 0o755); err != nil {
		zap.L().Warn("pipeline: create reports dir", zap.Error(err))
		return
	}
	path := filepath.Join(o.reportsDir, fmt.Sprintf("report_%s.md", reportID))
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		zap.L().Warn("pipeline: write artifact", zap.String("path", path), zap.Error(err))
	}
}

// mergeCandidates joins per-section candidate lists after the discovery
// barrier: duplicates collapse by normalized URL with their section lists
// merged, then candidates rank by section coverage and relevance before
// the overall cap applies.
func mergeCandidates(perSection [][]model.SourceCandidate, sourceCap int) []model.SourceCandidate {
	byURL := make(map[string]*model.SourceCandidate)
	var order []string

	for _, candidates := range perSection {
		for _, cand := range candidates {
			key := cand.NormalizedURL()
			existing, ok := byURL[key]
			if !ok {
				c := cand
				byURL[key] = &c
				order = append(order, key)
				continue
			}
			for _, section := range cand.Sections {
				if !existing.HasSection(section) {
					existing.Sections = append(existing.Sections, section)
				}
			}
			if cand.RelevanceScore > existing.RelevanceScore {
				existing.RelevanceScore = cand.RelevanceScore
			}
		}
	}

	merged := make([]model.SourceCandidate, 0, len(order))
	for _, key := range order {
		merged = append(merged, *byURL[key])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if len(merged[i].Sections) != len(merged[j].Sections) {
			return len(merged[i].Sections) > len(merged[j].Sections)
		}
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})

	if len(merged) > sourceCap {
		merged = merged[:sourceCap]
	}
	return merged
}

// groupBySection maps persisted sources and their insights back to the
// sections that discovered them.
func groupBySection(plan []model.SectionPlan, sources []model.Source, insights []model.Insight) (map[string][]model.Insight, map[string]int) {
	sectionInsights := make(map[string][]model.Insight, len(plan))
	sectionCounts := make(map[string]int, len(plan))

	for _, sp := range plan {
		for i, src := range sources {
			if !hasSection(src.Sections, sp.Section) {
				continue
			}
			sectionCounts[sp.Section]++
			if i < len(insights) {
				sectionInsights[sp.Section] = append(sectionInsights[sp.Section], insights[i])
			}
		}
	}
	return sectionInsights, sectionCounts
}

func hasSection(sections []string, name string) bool {
	for _, s := range sections {
		if s == name {
			return true
		}
	}
	return false
}

func (o *Orchestrator) sectionWorkers() int {
	if o.cfg.SectionWorkers > 0 {
		return o.cfg.SectionWorkers
	}
	return 6
}

func (o *Orchestrator) fetchWorkers() int {
	if o.cfg.FetchWorkers > 0 {
		return o.cfg.FetchWorkers
	}
	return 8
}

func (o *Orchestrator) extractWorkers() int {
	if o.cfg.ExtractWorkers > 0 {
		return o.cfg.ExtractWorkers
	}
	return 8
}

func (o *Orchestrator) forecastYears() int {
	if o.cfg.ForecastYears > 0 {
		return o.cfg.ForecastYears
	}
	return 5
}
