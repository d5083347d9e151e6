package model

import "time"

// ReportStatus represents the current state of a report generation run.
type ReportStatus string

const (
	ReportStatusQueued   ReportStatus = "queued"
	ReportStatusRunning  ReportStatus = "running"
	ReportStatusComplete ReportStatus = "complete"
	ReportStatusFailed   ReportStatus = "failed"
)

// RunPhase names the coarse substates of a running report. Only the
// orchestrating goroutine writes phase transitions.
type RunPhase string

const (
	PhaseResearching RunPhase = "researching"
	PhaseAnalyzing   RunPhase = "analyzing"
	PhaseForecasting RunPhase = "forecasting"
	PhaseComposing   RunPhase = "composing"
)

// Depth is the research depth tier requested for a report.
type Depth string

const (
	DepthBasic    Depth = "Basic"
	DepthPro      Depth = "Professional"
	DepthInvestor Depth = "Investor-grade"
)

// ReportInput is the caller-supplied scope of a report.
type ReportInput struct {
	Industry                    string `json:"industry"`
	Geography                   string `json:"geography"`
	TimeHorizon                 string `json:"time_horizon"`
	Depth                       Depth  `json:"depth"`
	IncludeFinancialForecast    bool   `json:"include_financial_forecast"`
	IncludeCompetitiveLandscape bool   `json:"include_competitive_landscape"`
}

// Report is the persisted report record. Status and ProgressMessage together
// form the pair a caller polls while generation runs asynchronously.
type Report struct {
	ID              string         `json:"id"`
	Input           ReportInput    `json:"input"`
	Status          ReportStatus   `json:"status"`
	ProgressMessage string         `json:"progress_message"`
	Markdown        string         `json:"markdown,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SectionPlan is one section's research batch: a section name and the number
// of sources to target for it.
type SectionPlan struct {
	Section string
	Limit   int
}

// baseSectionPlan drives per-section source discovery at Basic depth.
var baseSectionPlan = []SectionPlan{
	{Section: "market_overview", Limit: 5},
	{Section: "market_size_forecast", Limit: 5},
	{Section: "market_dynamics", Limit: 5},
	{Section: "regulatory_landscape", Limit: 4},
	{Section: "competitive_landscape", Limit: 4},
	{Section: "financial_outlook", Limit: 4},
}

// baseSourceCap is the overall source cap at Basic depth.
const baseSourceCap = 20

// PlanForDepth returns the section batch plan and overall source cap for a
// depth tier. Limits and caps increase strictly with depth.
func PlanForDepth(depth Depth) ([]SectionPlan, int) {
	boost := func(add, ceil int) []SectionPlan {
		plan := make([]SectionPlan, len(baseSectionPlan))
		for i, sp := range baseSectionPlan {
			limit := sp.Limit + add
			if limit > ceil {
				limit = ceil
			}
			plan[i] = SectionPlan{Section: sp.Section, Limit: limit}
		}
		return plan
	}

	switch depth {
	case DepthInvestor:
		return boost(7, 18), 45
	case DepthPro:
		return boost(3, 14), 30
	default:
		return boost(0, 18), baseSourceCap
	}
}

// SectionNames returns the section identifiers of the base plan, in order.
func SectionNames() []string {
	names := make([]string, len(baseSectionPlan))
	for i, sp := range baseSectionPlan {
		names[i] = sp.Section
	}
	return names
}

// ValidSection reports whether name is a known report section.
func ValidSection(name string) bool {
	for _, sp := range baseSectionPlan {
		if sp.Section == name {
			return true
		}
	}
	return false
}
