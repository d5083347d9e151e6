package extract

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompaniesForKeywordMatch(t *testing.T) {
	out := CompaniesFor("Digital Healthcare")
	assert.Contains(t, out, "Medtronic")

	out = CompaniesFor("Renewable Energy")
	assert.Contains(t, out, "Vestas")

	out = CompaniesFor("Financial Services")
	assert.Contains(t, out, "Visa")

	out = CompaniesFor("Automotive Components")
	assert.Contains(t, out, "Toyota")
}

func TestCompaniesForGenericFallback(t *testing.T) {
	out := CompaniesFor("Quantum Widgets")
	assert.Contains(t, out, "Microsoft")
}

func TestCompaniesForStablePerIndustry(t *testing.T) {
	assert.Equal(t, CompaniesFor("Robotics"), CompaniesFor("Robotics"))
}

func TestCompaniesForRotationPreservesRoster(t *testing.T) {
	a := CompaniesFor("Healthcare")
	b := CompaniesFor("Health Insurance")

	require.Len(t, a, 7)
	require.Len(t, b, 7)

	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	assert.Equal(t, sortedA, sortedB)
}
