// Package masking redacts credentials from headers and request bodies before
// they reach logs, audit rows or full-response output.
package masking

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	// Redacted replaces short sensitive values.
	Redacted = "[REDACTED]"
	// RedactedBody replaces a request body that looks like it carries credentials.
	RedactedBody = "[BODY CONTAINS SENSITIVE DATA - REDACTED]"

	revealThreshold = 10
	revealChars     = 3
)

// SensitiveHeaders are matched as case-insensitive substrings of header names.
var SensitiveHeaders = []string{
	"authorization",
	"x-api-key",
	"x-auth-token",
	"x-access-token",
	"api-key",
	"apikey",
	"token",
	"bearer",
	"cookie",
	"set-cookie",
	"x-csrf-token",
	"x-xsrf-token",
}

var sensitiveBodyMarkers = []string{"password", "secret", "token"}

// IsSensitiveHeader reports whether name contains any entry of SensitiveHeaders.
func IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range SensitiveHeaders {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first and last three characters of values longer than
// ten characters and fully redacts the rest.
func MaskValue(value string) string {
	n := utf8.RuneCountInString(value)
	if n <= revealThreshold {
		return Redacted
	}
	runes := []rune(value)
	return string(runes[:revealChars]) + "..." + string(runes[n-revealChars:])
}

// MaskHeaders returns a copy of headers with sensitive values masked.
func MaskHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	masked := make(map[string]string, len(headers))
	for name, value := range headers {
		if IsSensitiveHeader(name) {
			masked[name] = MaskValue(value)
			continue
		}
		masked[name] = value
	}
	return masked
}

// MaskBody redacts structured bodies whose JSON form mentions a credential
// field. Strings and scalars are returned as they are.
func MaskBody(body interface{}) interface{} {
	switch body.(type) {
	case map[string]interface{}, []interface{}:
	default:
		return body
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return RedactedBody
	}
	s := string(raw)
	for _, marker := range sensitiveBodyMarkers {
		if strings.Contains(s, marker) {
			return RedactedBody
		}
	}
	return body
}

// SanitizeRequest builds a log-safe view of an outbound request.
func SanitizeRequest(method, url string, headers map[string]string, body interface{}) map[string]interface{} {
	sanitized := map[string]interface{}{
		"method": method,
		"url":    url,
	}
	if len(headers) > 0 {
		sanitized["headers"] = MaskHeaders(headers)
	}
	if body != nil {
		sanitized["body"] = MaskBody(body)
	}
	return sanitized
}
