package compose

import (
	"strings"

	"github.com/insightforge/market-intel/internal/model"
)

// BuildShares splits 100% across the labels with a repeatable,
// non-uniform distribution. The seed is the sum of character codes of the
// joined label string; each label's raw weight is seed-derived via modulo,
// integer percentages are floor-scaled, and the rounding remainder is
// assigned to the first label so the total is always exactly 100.
// Consumers rely on stable output per label set.
func BuildShares(labels []string) []model.ShareRow {
	if len(labels) == 0 {
		return []model.ShareRow{}
	}

	seed := charSum(strings.Join(labels, "|"))

	weights := make([]int, len(labels))
	total := 0
	for i := range labels {
		weights[i] = seed%(17+i*13) + 8
		total += weights[i]
	}

	out := make([]model.ShareRow, len(labels))
	assigned := 0
	for i, label := range labels {
		pct := weights[i] * 100 / total
		out[i] = model.ShareRow{Label: label, SharePercent: float64(pct)}
		assigned += pct
	}
	out[0].SharePercent += float64(100 - assigned)
	return out
}

// charSum sums the character codes of s.
func charSum(s string) int {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}
	return sum
}
