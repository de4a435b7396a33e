package httprequest

import "advanced-http-worker/internal/common/coerce"

// MergeHeaders unions query and api headers; api wins on collision.
// nil is returned when both are empty.
func MergeHeaders(query, api map[string]interface{}) map[string]string {
	merged := make(map[string]string, len(query)+len(api))
	for _, src := range []map[string]interface{}{query, api} {
		for name, value := range src {
			merged[name] = headerValue(value)
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func headerValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return coerce.Stringify(v)
}

func staticHeaders(params []HeaderParameter) map[string]string {
	headers := make(map[string]string, len(params))
	for _, h := range params {
		if h.Name == "" {
			continue
		}
		headers[h.Name] = headerValue(h.Value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
