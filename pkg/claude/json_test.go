package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectDirect(t *testing.T) {
	var out map[string]any
	err := ExtractJSONObject(`{"a": 1}`, &out)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out["a"])
}

func TestExtractJSONObjectFenced(t *testing.T) {
	raw := "Here you go:\n```json\n{\"a\": 1, \"b\": \"x\"}\n```\nHope this helps."

	var out map[string]any
	err := ExtractJSONObject(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "x", out["b"])
}

func TestExtractJSONObjectNone(t *testing.T) {
	var out map[string]any
	err := ExtractJSONObject("no json here", &out)
	assert.Error(t, err)
}

func TestExtractJSONObjectMalformed(t *testing.T) {
	var out map[string]any
	err := ExtractJSONObject(`prefix {"a": } suffix`, &out)
	assert.Error(t, err)
}

func TestExtractJSONArrayDirect(t *testing.T) {
	var out []int
	err := ExtractJSONArray(`[1, 2, 3]`, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestExtractJSONArrayWrapped(t *testing.T) {
	raw := "The sources are:\n[{\"url\": \"https://a.com\"}, {\"url\": \"https://b.com\"}]\nas requested."

	var out []struct {
		URL string `json:"url"`
	}
	err := ExtractJSONArray(raw, &out)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "https://a.com", out[0].URL)
}

func TestExtractJSONArrayNone(t *testing.T) {
	var out []int
	err := ExtractJSONArray("nothing to see", &out)
	assert.Error(t, err)
}
