package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/market-intel/internal/config"
	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/research"
	"github.com/insightforge/market-intel/internal/scrape"
	"github.com/insightforge/market-intel/internal/store"
)

type statusUpdate struct {
	status  model.ReportStatus
	message string
}

type fakeStore struct {
	mu         sync.Mutex
	report     *model.Report
	statuses   []statusUpdate
	sources    []model.Source
	insights   []model.Insight
	citations  []model.Citation
	savedDoc   *model.ReportDocument
	savedMeta  map[string]any
	getErr     error
	replaceErr error
	saveErr    error
}

func (f *fakeStore) CreateReport(_ context.Context, input model.ReportInput) (*model.Report, error) {
	return &model.Report{ID: "rep-1", Input: input}, nil
}

func (f *fakeStore) GetReport(_ context.Context, reportID string) (*model.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.report == nil || f.report.ID != reportID {
		return nil, errors.New("report not found")
	}
	return f.report, nil
}

func (f *fakeStore) ListReports(_ context.Context, _ store.ReportFilter) ([]model.Report, error) {
	return nil, nil
}

func (f *fakeStore) UpdateReportStatus(_ context.Context, _ string, status model.ReportStatus, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusUpdate{status: status, message: message})
	return nil
}

func (f *fakeStore) SaveDocument(_ context.Context, _ string, doc model.ReportDocument, metadata map[string]any) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedDoc = &doc
	f.savedMeta = metadata
	return nil
}

func (f *fakeStore) ReplaceDerived(_ context.Context, _ string, sources []model.Source, insights []model.Insight, citations []model.Citation) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = sources
	f.insights = insights
	f.citations = citations
	return nil
}

func (f *fakeStore) GetSources(_ context.Context, _ string) ([]model.Source, error) {
	return f.sources, nil
}

func (f *fakeStore) GetInsights(_ context.Context, _ string) ([]model.Insight, error) {
	return f.insights, nil
}

func (f *fakeStore) GetCitations(_ context.Context, _ string) ([]model.Citation, error) {
	return f.citations, nil
}

func (f *fakeStore) GetDocument(_ context.Context, _ string) (*model.ReportDocument, error) {
	return f.savedDoc, nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                    { return nil }

type fakeFinder struct {
	mu       sync.Mutex
	queries  []research.Query
	perQuery int
}

func (f *fakeFinder) Find(_ context.Context, q research.Query) []model.SourceCandidate {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	n := f.perQuery
	if n == 0 {
		n = 3
	}
	out := make([]model.SourceCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.SourceCandidate{
			Title:          fmt.Sprintf("%s source %d", q.Section, i),
			URL:            fmt.Sprintf("https://%s-%d.com/report", q.Section, i),
			Domain:         fmt.Sprintf("%s-%d.com", q.Section, i),
			RelevanceScore: 0.5,
			Sections:       []string{q.Section},
		})
	}
	return out
}

type fakeFetcher struct{}

func (f *fakeFetcher) Fetch(_ context.Context, url string) scrape.Result {
	return scrape.Result{RawText: "raw " + url, CleanedText: "cleaned " + url}
}

type fakeExtractor struct{}

func (f *fakeExtractor) Extract(_ context.Context, _, _, _ string) model.Insight {
	return model.Insight{
		MarketSizeUSDBillion: model.Float(80),
		CAGRPercent:          model.Float(7),
		ConfidenceScore:      0.7,
	}
}

type fakeComposer struct{}

func (f *fakeComposer) Compose(_ context.Context, _ model.ReportInput, _ []model.Source, _ []model.Insight,
	_ model.Consensus, _ model.Forecast, _ map[string][]model.Insight, _ map[string]int) model.ReportDocument {
	return model.ReportDocument{
		Markdown: "# Test Report",
		Visuals:  model.Visuals{AvgConfidence: 0.7},
	}
}

func newTestOrchestrator(st *fakeStore, finder *fakeFinder, reportsDir string) *Orchestrator {
	return New(st, finder, &fakeFetcher{}, &fakeExtractor{}, &fakeComposer{},
		config.PipelineConfig{SectionWorkers: 2, FetchWorkers: 4, ExtractWorkers: 4, ForecastYears: 5}, reportsDir)
}

func queuedReport() *model.Report {
	return &model.Report{
		ID: "rep-1",
		Input: model.ReportInput{
			Industry:    "Robotics",
			Geography:   "Global",
			TimeHorizon: "2025-2030",
			Depth:       model.DepthBasic,
		},
		Status: model.ReportStatusQueued,
	}
}

func TestGenerateHappyPath(t *testing.T) {
	st := &fakeStore{report: queuedReport()}
	finder := &fakeFinder{}
	o := newTestOrchestrator(st, finder, "")

	require.NoError(t, o.Generate(context.Background(), "rep-1"))

	// One discovery query per planned section.
	plan, _ := model.PlanForDepth(model.DepthBasic)
	assert.Len(t, finder.queries, len(plan))

	// Phase sequence ends in completion.
	messages := make([]string, 0, len(st.statuses))
	for _, s := range st.statuses {
		messages = append(messages, s.message)
	}
	assert.Equal(t, []string{
		"Researching sources",
		"Analyzing sources",
		"Building forecast",
		"Composing report",
		"Report complete",
	}, messages)
	assert.Equal(t, model.ReportStatusComplete, st.statuses[len(st.statuses)-1].status)

	// Derived rows persisted in lockstep.
	require.NotEmpty(t, st.sources)
	assert.Len(t, st.insights, len(st.sources))
	assert.Len(t, st.citations, len(st.sources))
	for i, cit := range st.citations {
		assert.Equal(t, i+1, cit.Index)
		assert.Equal(t, st.sources[i].ID, cit.SourceID)
	}
	for _, src := range st.sources {
		assert.NotEmpty(t, src.ID)
		assert.Equal(t, "rep-1", src.ReportID)
		assert.Contains(t, src.CleanedText, "cleaned ")
	}

	require.NotNil(t, st.savedDoc)
	assert.Equal(t, "# Test Report", st.savedDoc.Markdown)
	assert.Equal(t, len(st.sources), st.savedMeta["source_count"])
	assert.Equal(t, 0.7, st.savedMeta["avg_confidence"])
	assert.Equal(t, false, st.savedMeta["estimated_forecast"])
	assert.NotContains(t, st.savedMeta, "regenerated_section")
}

func TestGenerateRespectsSourceCap(t *testing.T) {
	st := &fakeStore{report: queuedReport()}
	finder := &fakeFinder{perQuery: 10}
	o := newTestOrchestrator(st, finder, "")

	require.NoError(t, o.Generate(context.Background(), "rep-1"))

	_, sourceCap := model.PlanForDepth(model.DepthBasic)
	assert.LessOrEqual(t, len(st.sources), sourceCap)
}

func TestGenerateReportNotFound(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(st, &fakeFinder{}, "")

	err := o.Generate(context.Background(), "missing")
	assert.Error(t, err)
	assert.Empty(t, st.statuses)
}

func TestGenerateFailureMarksReportFailed(t *testing.T) {
	st := &fakeStore{report: queuedReport(), replaceErr: errors.New("disk full")}
	o := newTestOrchestrator(st, &fakeFinder{}, "")

	err := o.Generate(context.Background(), "rep-1")
	require.Error(t, err)

	last := st.statuses[len(st.statuses)-1]
	assert.Equal(t, model.ReportStatusFailed, last.status)
	assert.Contains(t, last.message, "disk full")
}

func TestGenerateFailureMessageTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	st := &fakeStore{report: queuedReport(), replaceErr: errors.New(long)}
	o := newTestOrchestrator(st, &fakeFinder{}, "")

	require.Error(t, o.Generate(context.Background(), "rep-1"))

	last := st.statuses[len(st.statuses)-1]
	assert.Equal(t, model.ReportStatusFailed, last.status)
	assert.Len(t, last.message, maxFailureMessage)
}

func TestGenerateWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	st := &fakeStore{report: queuedReport()}
	o := newTestOrchestrator(st, &fakeFinder{}, dir)

	require.NoError(t, o.Generate(context.Background(), "rep-1"))

	data, err := os.ReadFile(filepath.Join(dir, "report_rep-1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Test Report", string(data))
}

func TestRegenerateSection(t *testing.T) {
	st := &fakeStore{report: queuedReport()}
	finder := &fakeFinder{}
	o := newTestOrchestrator(st, finder, "")

	require.NoError(t, o.RegenerateSection(context.Background(), "rep-1", "market_overview"))

	require.Len(t, finder.queries, 1)
	assert.Equal(t, "market_overview", finder.queries[0].Section)

	require.NotNil(t, st.savedMeta)
	assert.Equal(t, "market_overview", st.savedMeta["regenerated_section"])
}

func TestRegenerateSectionUnknown(t *testing.T) {
	st := &fakeStore{report: queuedReport()}
	o := newTestOrchestrator(st, &fakeFinder{}, "")

	err := o.RegenerateSection(context.Background(), "rep-1", "nope")
	require.Error(t, err)
	assert.Empty(t, st.statuses)
}

func TestMergeCandidatesUnionsSections(t *testing.T) {
	perSection := [][]model.SourceCandidate{
		{
			{URL: "https://shared.com/report", Sections: []string{"market_overview"}, RelevanceScore: 0.4},
			{URL: "https://a.com/report", Sections: []string{"market_overview"}, RelevanceScore: 0.9},
		},
		{
			{URL: "https://shared.com/report/", Sections: []string{"market_dynamics"}, RelevanceScore: 0.6},
		},
	}

	merged := mergeCandidates(perSection, 20)

	require.Len(t, merged, 2)
	// The shared candidate covers two sections and ranks first.
	assert.Equal(t, "https://shared.com/report", merged[0].URL)
	assert.ElementsMatch(t, []string{"market_overview", "market_dynamics"}, merged[0].Sections)
	assert.Equal(t, 0.6, merged[0].RelevanceScore)
	assert.Equal(t, "https://a.com/report", merged[1].URL)
}

func TestMergeCandidatesSortsByRelevanceWithinCoverage(t *testing.T) {
	perSection := [][]model.SourceCandidate{
		{
			{URL: "https://low.com", Sections: []string{"market_overview"}, RelevanceScore: 0.2},
			{URL: "https://high.com", Sections: []string{"market_overview"}, RelevanceScore: 0.9},
		},
	}

	merged := mergeCandidates(perSection, 20)

	require.Len(t, merged, 2)
	assert.Equal(t, "https://high.com", merged[0].URL)
}

func TestMergeCandidatesAppliesCap(t *testing.T) {
	var section []model.SourceCandidate
	for i := 0; i < 30; i++ {
		section = append(section, model.SourceCandidate{
			URL:      fmt.Sprintf("https://s%d.com", i),
			Sections: []string{"market_overview"},
		})
	}

	merged := mergeCandidates([][]model.SourceCandidate{section}, 20)
	assert.Len(t, merged, 20)
}

func TestGroupBySection(t *testing.T) {
	plan := []model.SectionPlan{
		{Section: "market_overview", Limit: 5},
		{Section: "market_dynamics", Limit: 5},
	}
	sources := []model.Source{
		{ID: "s1", Sections: []string{"market_overview"}},
		{ID: "s2", Sections: []string{"market_overview", "market_dynamics"}},
		{ID: "s3", Sections: []string{"financial_outlook"}},
	}
	insights := []model.Insight{
		{ConfidenceScore: 0.5},
		{ConfidenceScore: 0.7},
		{ConfidenceScore: 0.9},
	}

	sectionInsights, sectionCounts := groupBySection(plan, sources, insights)

	assert.Equal(t, 2, sectionCounts["market_overview"])
	assert.Equal(t, 1, sectionCounts["market_dynamics"])
	assert.NotContains(t, sectionCounts, "financial_outlook")

	require.Len(t, sectionInsights["market_overview"], 2)
	assert.Equal(t, 0.5, sectionInsights["market_overview"][0].ConfidenceScore)
	require.Len(t, sectionInsights["market_dynamics"], 1)
	assert.Equal(t, 0.7, sectionInsights["market_dynamics"][0].ConfidenceScore)
}
