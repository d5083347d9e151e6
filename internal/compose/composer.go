// Package compose assembles the final report document: a cross-referenced
// markdown narrative plus the structured visuals payload, built from the
// consolidated insights, consensus, and forecast.
package compose

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/insightforge/market-intel/internal/config"
	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/pkg/claude"
)

// lowConfidenceThreshold gates the visible disclaimer in the document.
const lowConfidenceThreshold = 0.6

// historicalYears is the length of the discounted back-series.
const historicalYears = 5

// polishTimeout bounds the optional executive summary rewrite so it can
// never stall composition.
const polishTimeout = 8 * time.Second

// regionalLabels is the fixed regional breakdown used for share splits.
var regionalLabels = []string{"North America", "Europe", "Asia-Pacific", "Latin America", "Middle East & Africa"}

// segmentLabels and typeLabels are the fixed non-player breakdowns.
var (
	segmentLabels = []string{"Enterprise", "Mid-market", "Small Business", "Public Sector"}
	typeLabels    = []string{"Products", "Services", "Software"}
)

var titleCaser = cases.Title(language.English)

// Composer builds report documents. The client is optional; without it the
// executive summary stays on its deterministic template.
type Composer struct {
	client claude.Client
	cfg    config.AnthropicConfig
}

// New returns a Composer. client may be nil.
func New(client claude.Client, cfg config.AnthropicConfig) *Composer {
	return &Composer{client: client, cfg: cfg}
}

// Compose renders the full document for a completed pipeline run. The
// section maps are optional; when present they add a research coverage
// block. Compose never fails: degraded inputs produce a degraded document.
func (c *Composer) Compose(
	ctx context.Context,
	input model.ReportInput,
	sources []model.Source,
	insights []model.Insight,
	consensus model.Consensus,
	forecast model.Forecast,
	sectionInsights map[string][]model.Insight,
	sectionSourceCounts map[string]int,
) model.ReportDocument {
	drivers := topItems(insights, func(i model.Insight) []string { return i.Drivers }, 6)
	restraints := topItems(insights, func(i model.Insight) []string { return i.Restraints }, 6)
	trends := topItems(insights, func(i model.Insight) []string { return i.Trends }, 6)
	companies := topItems(insights, func(i model.Insight) []string { return i.KeyCompanies }, 10)
	regulatory := topItems(insights, func(i model.Insight) []string { return i.RegulatoryNotes }, 6)

	avgConf := avgConfidence(insights)

	doc := &docWriter{maxCite: len(sources)}

	executive := c.executiveNote(ctx, input, consensus)

	doc.linef("# %s Industry Intelligence Report (%s)", input.Industry, input.Geography)
	doc.blank()
	doc.line("## Executive Summary")
	doc.linef("- %s", executive)
	doc.linef("- Consensus market size is approximately **USD %sB** with an expected CAGR of **%s%%**%s.",
		fmtOptional(consensus.MarketSizeUSDBillion), fmtOptional(consensus.CAGRPercent), doc.cite(1))
	doc.linef("- Growth is supported by structural demand expansion, digital modernization, and ecosystem partnerships%s.", doc.cite(2))
	if avgConf < lowConfidenceThreshold {
		doc.line("**Low confidence estimate:** source agreement is below 60%.")
	}
	doc.blank()

	doc.line("## Market Overview")
	doc.linef("The %s market in %s is transitioning from fragmented pilots to scaled deployments. Buyers are prioritizing measurable ROI, resilient operations, and vendor reliability%s.",
		input.Industry, input.Geography, doc.cite(3))
	doc.blank()

	marketSize := 0.0
	if consensus.MarketSizeUSDBillion != nil {
		marketSize = *consensus.MarketSizeUSDBillion
	}
	doc.line("## Market Size (TAM/SAM/SOM)")
	doc.linef("- **TAM:** USD %.2fB%s", round2(marketSize*1.8), doc.cite(1))
	doc.linef("- **SAM:** USD %.2fB%s", round2(marketSize*0.9), doc.cite(2))
	doc.linef("- **SOM:** USD %.2fB%s", round2(marketSize*0.22), doc.cite(3))
	doc.blank()

	doc.line("## CAGR Forecast")
	doc.linef("The market is projected to grow at **%s%% CAGR** over the selected horizon %s%s.",
		fmtOptional(consensus.CAGRPercent), input.TimeHorizon, doc.cite(4))
	doc.blank()

	doc.bulletSection("## Market Drivers", drivers, 5)
	doc.bulletSection("## Market Restraints", restraints, 6)
	doc.bulletSection("## Trends", trends, 7)
	doc.bulletSection(fmt.Sprintf("## Regulatory Landscape (%s)", input.Geography), regulatory, 8)

	if input.IncludeCompetitiveLandscape {
		doc.line("## Competitive Landscape")
		doc.linef("The market is moderately consolidated with a mix of global incumbents and regional challengers. Competitive intensity is increasing around pricing, product differentiation, and partner ecosystems%s.", doc.cite(2))
		doc.blank()
		doc.line("## Company Profiles (Top 5-10)")
		for _, company := range companies {
			doc.linef("- **%s**: Active across product innovation, distribution expansion, and strategic partnerships%s.", company, doc.cite(1))
		}
		doc.blank()
	}

	if input.IncludeFinancialForecast {
		doc.line("## Financial Forecast Table (5-year)")
		estimated := "No"
		if forecast.Estimated {
			estimated = "Yes"
		}
		doc.linef("Base Value: **USD %.2fB** | CAGR: **%.2f%%**", forecast.BaseValue, forecast.CAGRPercent)
		doc.linef("Estimated: **%s**", estimated)
		doc.blank()
		doc.line("| Year | Market Size (USD Billion) |")
		doc.line("|---|---:|")
		for _, row := range forecast.Table {
			doc.linef("| %d | %.2f |", row.Year, row.MarketSizeUSDBillion)
		}
		doc.blank()
	}

	doc.line("## Risks & Sensitivity")
	doc.line("- Base case assumes stable policy and supply conditions.")
	doc.line("- Downside scenario: 200 bps lower CAGR due to macro slowdown and delayed capex.")
	doc.line("- Upside scenario: accelerated adoption and favorable regulatory changes.")
	doc.line("- Cross-validation findings:")
	if len(consensus.Inconsistencies) == 0 {
		doc.line("- No major inconsistency flags detected.")
	} else {
		for _, flag := range consensus.Inconsistencies {
			doc.linef("- %s", flag)
		}
	}
	doc.blank()

	if len(sectionSourceCounts) > 0 {
		doc.line("## Research Coverage")
		for _, name := range model.SectionNames() {
			count, ok := sectionSourceCounts[name]
			if !ok {
				continue
			}
			entry := fmt.Sprintf("- %s: %d sources", humanizeSection(name), count)
			if ins := sectionInsights[name]; len(ins) > 0 {
				entry += fmt.Sprintf(", avg confidence %.2f", round2(avgConfidence(ins)))
			}
			doc.line(entry)
		}
		doc.blank()
	}

	doc.line("## Citations")
	for idx, src := range sources {
		doc.linef("%d. [%s](%s)", idx+1, src.Title, src.URL)
	}

	visuals := c.buildVisuals(input, companies, forecast, avgConf, len(sources))

	return model.ReportDocument{
		Markdown: doc.String(),
		Visuals:  visuals,
	}
}

// buildVisuals derives the chart payload from the forecast and the top
// company aggregate. All splits are deterministic per label set.
func (c *Composer) buildVisuals(input model.ReportInput, companies []string, forecast model.Forecast, avgConf float64, sourceCount int) model.Visuals {
	playerLabels := make([]string, 0, 6)
	for _, company := range companies {
		if company == "No reliable signal available" {
			continue
		}
		playerLabels = append(playerLabels, company)
		if len(playerLabels) == 5 {
			break
		}
	}
	playerLabels = append(playerLabels, "Others")

	profiles := make([]model.CompanyProfile, 0, len(companies))
	citeIdx := 0
	if sourceCount > 0 {
		citeIdx = 1
	}
	for _, company := range companies {
		if company == "No reliable signal available" {
			continue
		}
		profiles = append(profiles, model.CompanyProfile{
			Name:          company,
			Positioning:   "Active across product innovation, distribution expansion, and strategic partnerships",
			CitationIndex: citeIdx,
		})
	}

	return model.Visuals{
		HistoricalSeries: historicalSeries(forecast.BaseValue, forecast.CAGRPercent, forecast.BaseYear, historicalYears),
		ForecastTable:    forecast.Table,
		SegmentShares:    BuildShares(segmentLabels),
		TypeShares:       BuildShares(typeLabels),
		RegionalShares:   BuildShares(regionalLabels),
		PlayerShares:     BuildShares(playerLabels),
		CompanyProfiles:  profiles,
		AvgConfidence:    round2(avgConf),
	}
}

// executiveNote produces the opening executive summary bullet. The
// templated sentence is authoritative; the model rewrite is best-effort
// within a short timeout and falls back verbatim on any failure.
func (c *Composer) executiveNote(ctx context.Context, input model.ReportInput, consensus model.Consensus) string {
	note := fmt.Sprintf("Scope: %s, geography %s, horizon %s, depth %s. Consensus market size is USD %sB at %s%% CAGR.",
		input.Industry, input.Geography, input.TimeHorizon, input.Depth,
		fmtOptional(consensus.MarketSizeUSDBillion), fmtOptional(consensus.CAGRPercent))

	if c.client == nil || !c.cfg.SummaryPolish {
		return note
	}

	polishCtx, cancel := context.WithTimeout(ctx, polishTimeout)
	defer cancel()

	resp, err := c.client.CreateMessage(polishCtx, claude.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: 80,
		Prompt:    "Rewrite this as a concise, consulting-grade executive summary bullet (max 35 words): " + note,
	})
	if err != nil {
		zap.L().Debug("compose: summary polish failed", zap.Error(err))
		return note
	}
	polished := strings.TrimSpace(resp.Text)
	if polished == "" {
		return note
	}
	return polished
}

// Citations builds the persisted citation rows for a report, numbered by
// source order.
func Citations(reportID string, sources []model.Source) []model.Citation {
	out := make([]model.Citation, len(sources))
	for i, src := range sources {
		out[i] = model.Citation{
			ReportID: reportID,
			SourceID: src.ID,
			Index:    i + 1,
			Label:    src.Title,
			URL:      src.URL,
		}
	}
	return out
}

// docWriter accumulates markdown lines and clamps citation markers so no
// marker ever exceeds the citation list length.
type docWriter struct {
	b       strings.Builder
	maxCite int
}

func (d *docWriter) line(s string) {
	d.b.WriteString(s)
	d.b.WriteByte('\n')
}

func (d *docWriter) linef(format string, args ...any) {
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteByte('\n')
}

func (d *docWriter) blank() { d.b.WriteByte('\n') }

// cite renders a citation marker clamped to the available citation count,
// or nothing when no sources were persisted.
func (d *docWriter) cite(n int) string {
	if d.maxCite == 0 {
		return ""
	}
	if n > d.maxCite {
		n = d.maxCite
	}
	return fmt.Sprintf(" [%d]", n)
}

// bulletSection writes a heading and one cited bullet per item.
func (d *docWriter) bulletSection(heading string, items []string, citeIdx int) {
	d.line(heading)
	for _, item := range items {
		d.linef("- %s%s", item, d.cite(citeIdx))
	}
	d.blank()
}

func (d *docWriter) String() string { return d.b.String() }

// humanizeSection turns a section identifier into a display title.
func humanizeSection(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// fmtOptional renders an optional metric, N/A when absent.
func fmtOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
