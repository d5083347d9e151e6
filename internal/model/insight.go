package model

// Insight is the structured extraction result for one scraped source.
// Insights are immutable after creation; downstream consumers read only.
type Insight struct {
	MarketSizeUSDBillion *float64 `json:"market_size_usd_billion"`
	CAGRPercent          *float64 `json:"cagr_percent"`
	Drivers              []string `json:"drivers"`
	Restraints           []string `json:"restraints"`
	Trends               []string `json:"trends"`
	KeyCompanies         []string `json:"key_companies"`
	RegulatoryNotes      []string `json:"regulatory_notes"`
	ConfidenceScore      float64  `json:"confidence_score"`
}

// Consensus is the cross-source agreed estimate. Values are nil only when no
// insight supplied a non-nil value for the field.
type Consensus struct {
	MarketSizeUSDBillion *float64 `json:"consensus_market_size_usd_billion"`
	CAGRPercent          *float64 `json:"consensus_cagr_percent"`
	Inconsistencies      []string `json:"inconsistencies"`
}

// ForecastRow is one year of the projection table.
type ForecastRow struct {
	Year                 int     `json:"year"`
	MarketSizeUSDBillion float64 `json:"market_size_usd_billion"`
}

// Forecast is a deterministic multi-year projection. Estimated is true iff
// either the base value or the CAGR had to be defaulted.
type Forecast struct {
	BaseYear    int           `json:"base_year"`
	BaseValue   float64       `json:"base_value"`
	CAGRPercent float64       `json:"cagr_percent"`
	Years       int           `json:"years"`
	Table       []ForecastRow `json:"table"`
	Estimated   bool          `json:"estimated"`
}

// ShareRow is one label's slice of a percentage breakdown.
type ShareRow struct {
	Label        string  `json:"label"`
	SharePercent float64 `json:"share_percent"`
}

// CompanyProfile is a short per-company entry in the visuals payload.
type CompanyProfile struct {
	Name          string `json:"name"`
	Positioning   string `json:"positioning"`
	CitationIndex int    `json:"citation_index"`
}

// Visuals is the structured chart/table payload composed alongside the
// markdown document.
type Visuals struct {
	HistoricalSeries []ForecastRow    `json:"historical_series"`
	ForecastTable    []ForecastRow    `json:"forecast_table"`
	SegmentShares    []ShareRow       `json:"segment_shares"`
	TypeShares       []ShareRow       `json:"type_shares"`
	RegionalShares   []ShareRow       `json:"regional_shares"`
	PlayerShares     []ShareRow       `json:"player_shares"`
	CompanyProfiles  []CompanyProfile `json:"company_profiles"`
	AvgConfidence    float64          `json:"avg_confidence"`
}

// ReportDocument is the composed output of a pipeline run.
type ReportDocument struct {
	Markdown string  `json:"markdown"`
	Visuals  Visuals `json:"visuals"`
}

// Float returns a pointer to v. Convenience for optional numeric fields.
func Float(v float64) *float64 { return &v }
