package extract

import "strings"

// rosterEntry pairs an industry keyword with a company roster.
type rosterEntry struct {
	keyword   string
	companies []string
}

// rosters is matched against the lowercased industry string in order; the
// first keyword hit wins. The final entry is the generic technology roster
// used when nothing matches.
var rosters = []rosterEntry{
	{"health", []string{"UnitedHealth", "Siemens Healthineers", "Medtronic", "GE HealthCare", "Philips", "Roche", "Abbott"}},
	{"energy", []string{"NextEra Energy", "Siemens Energy", "Schneider Electric", "Shell", "GE Vernova", "Vestas", "Enel"}},
	{"financ", []string{"JPMorgan Chase", "Visa", "Mastercard", "Stripe", "PayPal", "Goldman Sachs"}},
	{"retail", []string{"Walmart", "Amazon", "Alibaba", "Costco", "Shopify", "Target"}},
	{"automo", []string{"Toyota", "Volkswagen", "Tesla", "BYD", "Hyundai", "Stellantis", "Bosch"}},
	{"agri", []string{"John Deere", "Bayer", "Corteva", "Syngenta", "Cargill", "ADM"}},
	{"", []string{"Microsoft", "Google", "Amazon", "IBM", "Oracle", "Salesforce", "SAP"}},
}

// CompaniesFor returns the roster matched to the industry, rotated by a
// hash of the industry string so output is stable per industry but varies
// across industries.
func CompaniesFor(industry string) []string {
	lower := strings.ToLower(industry)

	roster := rosters[len(rosters)-1].companies
	for _, entry := range rosters {
		if entry.keyword != "" && strings.Contains(lower, entry.keyword) {
			roster = entry.companies
			break
		}
	}

	offset := industryHash(industry) % len(roster)
	rotated := make([]string, 0, len(roster))
	rotated = append(rotated, roster[offset:]...)
	rotated = append(rotated, roster[:offset]...)
	return rotated
}

// industryHash sums the character codes of the industry string.
func industryHash(industry string) int {
	sum := 0
	for _, r := range industry {
		sum += int(r)
	}
	return sum
}
