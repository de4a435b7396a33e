package httprequest

import (
	"net/url"
	"strings"
	"unicode"
)

// IsValidURL accepts absolute http(s) URLs with a host. No lookup is done.
func IsValidURL(raw string) bool {
	if raw == "" || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
