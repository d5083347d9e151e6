package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSharesSumsToHundred(t *testing.T) {
	cases := [][]string{
		{"North America", "Europe", "Asia-Pacific", "Latin America", "Middle East & Africa"},
		{"Enterprise", "Mid-market", "Small Business", "Public Sector"},
		{"Products", "Services", "Software"},
		{"Acme", "Globex", "Initech", "Others"},
		{"Solo"},
	}

	for _, labels := range cases {
		out := BuildShares(labels)
		require.Len(t, out, len(labels))

		total := 0.0
		for i, row := range out {
			assert.Equal(t, labels[i], row.Label)
			total += row.SharePercent
		}
		assert.Equal(t, 100.0, total, "labels %v", labels)
	}
}

func TestBuildSharesDeterministic(t *testing.T) {
	labels := []string{"Enterprise", "Mid-market", "Small Business", "Public Sector"}
	assert.Equal(t, BuildShares(labels), BuildShares(labels))
}

func TestBuildSharesEmpty(t *testing.T) {
	out := BuildShares(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
