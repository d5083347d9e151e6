package claude

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractJSONObject parses a model response that should contain a single
// JSON object. Models occasionally wrap the object in prose or a code fence,
// so after a direct parse fails the outermost brace span is retried.
func ExtractJSONObject(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return eris.New("claude: no JSON object in response")
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return eris.Wrap(err, "claude: parse JSON object")
	}
	return nil
}

// ExtractJSONArray parses a model response that should contain a JSON array,
// with the same brace-span recovery as ExtractJSONObject.
func ExtractJSONArray(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return eris.New("claude: no JSON array in response")
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return eris.Wrap(err, "claude: parse JSON array")
	}
	return nil
}
