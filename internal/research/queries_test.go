package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryVariantsKnownSection(t *testing.T) {
	q := Query{Industry: "Robotics", Geography: "Europe", Section: "market_overview"}
	variants := QueryVariants(q)

	require.Len(t, variants, 2)
	assert.Equal(t, "Robotics market size Europe", variants[0])
	assert.Equal(t, "Robotics industry overview Europe", variants[1])
}

func TestQueryVariantsUnknownSectionFallsBack(t *testing.T) {
	q := Query{Industry: "Robotics", Geography: "Europe", Section: "mystery"}
	variants := QueryVariants(q)

	require.Len(t, variants, 2)
	assert.Equal(t, "Robotics market size Europe", variants[0])
	assert.Equal(t, "Robotics CAGR forecast trends Europe", variants[1])
}

func TestQueryVariantsCoverAllSections(t *testing.T) {
	for _, section := range []string{
		"market_overview", "market_size_forecast", "market_dynamics",
		"regulatory_landscape", "competitive_landscape", "financial_outlook",
	} {
		variants := QueryVariants(Query{Industry: "X", Geography: "Y", Section: section})
		assert.NotEmpty(t, variants, "section %s", section)
	}
}

func TestCombinedQuery(t *testing.T) {
	q := Query{Industry: "Robotics", Geography: "Europe", Section: "financial_outlook"}
	assert.Equal(t,
		"Robotics financial outlook market size CAGR forecast trends drivers restraints Europe",
		CombinedQuery(q))
}
