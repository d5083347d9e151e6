package research

import "fmt"

// sectionIntents maps each report section to the search intents appended to
// its query variants. Unknown sections fall back to generic market intents.
var sectionIntents = map[string][]string{
	"market_overview":       {"market size", "industry overview"},
	"market_size_forecast":  {"market size forecast", "CAGR projection"},
	"market_dynamics":       {"market drivers restraints", "industry trends"},
	"regulatory_landscape":  {"regulatory landscape", "compliance requirements"},
	"competitive_landscape": {"competitive landscape", "key players market share"},
	"financial_outlook":     {"financial outlook", "revenue forecast"},
}

var genericIntents = []string{"market size", "CAGR forecast trends"}

// QueryVariants returns the phrased search queries for a section, one per
// intent.
func QueryVariants(q Query) []string {
	intents, ok := sectionIntents[q.Section]
	if !ok {
		intents = genericIntents
	}

	variants := make([]string, 0, len(intents))
	for _, intent := range intents {
		variants = append(variants, fmt.Sprintf("%s %s %s", q.Industry, intent, q.Geography))
	}
	return variants
}

// CombinedQuery returns the single wide query used by strategies that issue
// one request per section.
func CombinedQuery(q Query) string {
	intents, ok := sectionIntents[q.Section]
	if !ok {
		intents = genericIntents
	}
	head := intents[0]
	return fmt.Sprintf("%s %s market size CAGR forecast trends drivers restraints %s", q.Industry, head, q.Geography)
}
