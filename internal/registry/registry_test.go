package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	reg := Defaults()

	assert.NotEmpty(t, reg.CuratedLinks)
	assert.NotEmpty(t, reg.AuthorityHints)
	assert.NotEmpty(t, reg.AuthorityDomains)
	assert.NotEmpty(t, reg.BlockedDomains)
	assert.NotEmpty(t, reg.PaywallMarkers)
	assert.NotEmpty(t, reg.IntentTerms)

	assert.Contains(t, reg.BlockedDomains, "reddit.com")
	assert.Contains(t, reg.IntentTerms, "market")
	assert.Contains(t, reg.AuthorityDomains, "sec.gov")
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), reg)
}

func TestLoadFromFileOverridesAndBackfills(t *testing.T) {
	yaml := `
curated_links:
  - https://custom.example.com/reports
blocked_domains:
  - badsite.com
`
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	reg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://custom.example.com/reports"}, reg.CuratedLinks)
	assert.Equal(t, []string{"badsite.com"}, reg.BlockedDomains)
	// Unset lists come from the defaults.
	assert.Equal(t, Defaults().IntentTerms, reg.IntentTerms)
	assert.Equal(t, Defaults().AuthorityDomains, reg.AuthorityDomains)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("curated_links: {not: [valid"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
