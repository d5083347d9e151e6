package research

import (
	"net/url"
	"strings"
)

// UnwrapRedirect resolves search-engine redirect wrappers to their true
// target. DuckDuckGo routes results through /l/?uddg=<encoded-url>; the
// destination parameter is extracted and decoded. URLs that are not wrapped
// pass through unchanged; anything without an http(s) scheme is discarded.
func UnwrapRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Scheme-relative wrapper links appear in the HTML results page.
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		decoded, err := url.QueryUnescape(target)
		if err != nil {
			return ""
		}
		raw = decoded
		u, err = url.Parse(raw)
		if err != nil {
			return ""
		}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return raw
}
