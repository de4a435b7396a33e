package httprequest

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"advanced-http-worker/internal/common/coerce"
	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/internal/common/masking"
)

// Assembler turns node parameters plus one input item into a RequestDescriptor.
type Assembler struct {
	defaults RequestDefaults
}

func NewAssembler(defaults RequestDefaults) *Assembler {
	return &Assembler{defaults: defaults}
}

// Assemble resolves the STATIC or DYNAMIC request for item. The item is never modified.
func (a *Assembler) Assemble(params *NodeParameters, item InputItem) (*RequestDescriptor, error) {
	method := params.Method
	rawURL := params.URL

	var query map[string]interface{}
	dynamic := false
	if params.UseDynamicData {
		q, present, err := parseQuery(item.JSON["query"])
		if err != nil {
			return nil, err
		}
		if present {
			dynamic = true
			query = q
			if m, ok := query["method"].(string); ok && m != "" {
				method = m
			}
			if u, ok := query["url"].(string); ok && u != "" {
				rawURL = u
			}
		}
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if !supportedMethods[method] {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("Unsupported HTTP method: %q", method))
	}
	if !IsValidURL(rawURL) {
		return nil, errors.NewInvalidURLError(rawURL)
	}

	desc := a.descriptor(params.Options)
	desc.Method = method
	desc.URL = rawURL

	switch {
	case dynamic:
		desc.Headers = MergeHeaders(asObject(query["headers"]), apiKeyHeaders(item.JSON))
		if hasBody(method) {
			raw := query["body"]
			if falsy(raw) {
				raw = map[string]interface{}{}
			}
			body, err := coerce.Coerce(raw)
			if err != nil {
				return nil, errors.NewCoercionFailedError(err)
			}
			desc.Body = body
		}
	case params.UseDynamicData:
		// dynamic mode without a query sends neither headers nor a body
	default:
		desc.Headers = staticHeaders(params.Headers)
		if hasBody(method) {
			body, err := staticBody(params.Body)
			if err != nil {
				return nil, err
			}
			desc.Body = body
		}
	}

	return desc, nil
}

func (a *Assembler) descriptor(opts Options) *RequestDescriptor {
	desc := &RequestDescriptor{
		Timeout:            a.defaults.Timeout,
		FollowRedirect:     a.defaults.FollowRedirect,
		MaxRedirects:       a.defaults.MaxRedirects,
		RejectUnauthorized: a.defaults.ValidateSSL,
		FullResponse:       opts.FullResponse,
		ResponsePath:       opts.ResponsePath,
	}
	if opts.Timeout > 0 {
		desc.Timeout = msToDuration(opts.Timeout)
	}
	if opts.FollowRedirect != nil {
		desc.FollowRedirect = *opts.FollowRedirect
	}
	if opts.MaxRedirects > 0 {
		desc.MaxRedirects = opts.MaxRedirects
	}
	if opts.ValidateSSL != nil {
		desc.RejectUnauthorized = *opts.ValidateSSL
	}
	return desc
}

// parseQuery reads item.query, decoding it when it arrived as a JSON string.
func parseQuery(raw interface{}) (map[string]interface{}, bool, error) {
	if falsy(raw) {
		return nil, false, nil
	}

	value := raw
	if s, ok := raw.(string); ok {
		if !gjson.Valid(s) {
			return nil, false, errors.NewInvalidInputError("Invalid query JSON")
		}
		value = gjson.Parse(s).Value()
	}

	query, ok := value.(map[string]interface{})
	if !ok {
		return nil, false, errors.NewInvalidInputError("query must be a JSON object")
	}
	return query, true, nil
}

func apiKeyHeaders(item map[string]interface{}) map[string]interface{} {
	apiKeys := asObject(item["api_keys"])
	if apiKeys == nil {
		return nil
	}
	return asObject(apiKeys["headers"])
}

func staticBody(raw interface{}) (interface{}, error) {
	switch body := raw.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case string:
		if strings.TrimSpace(body) == "" {
			return map[string]interface{}{}, nil
		}
		if !gjson.Valid(body) {
			return nil, errors.NewInvalidInputError("Body must be valid JSON")
		}
		return gjson.Parse(body).Value(), nil
	default:
		return body, nil
	}
}

func asObject(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func falsy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case float64:
		return val == 0
	}
	return false
}

// ShapeResponse builds the success JSON for one item.
func ShapeResponse(desc *RequestDescriptor, resp *Response) map[string]interface{} {
	body := resp.Body
	if desc.ResponsePath != "" {
		body = narrowBody(body, desc.ResponsePath)
	}

	if !desc.FullResponse {
		return map[string]interface{}{"data": body}
	}

	headers := map[string]interface{}{}
	for name, value := range masking.MaskHeaders(resp.Headers) {
		headers[name] = value
	}
	return map[string]interface{}{
		"statusCode": resp.StatusCode,
		"headers":    headers,
		"body":       body,
		"url":        desc.URL,
		"method":     desc.Method,
	}
}

func narrowBody(body interface{}, path string) interface{} {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

// ErrorRecord is the continue-on-fail JSON for one failed item.
func ErrorRecord(err error) map[string]interface{} {
	message, status := describeError(err)
	if message == "" {
		message = "Unknown error"
	}
	return map[string]interface{}{
		"error":      message,
		"statusCode": status,
	}
}

func describeError(err error) (string, int) {
	if err == nil {
		return "", 0
	}
	var netErr *NetworkError
	if stderrors.As(err, &netErr) {
		return netErr.Message, netErr.StatusCode
	}
	if stdErr, ok := errors.AsStandardError(err); ok {
		status, _ := stdErr.Metadata["statusCode"].(int)
		return stdErr.Message, status
	}
	return err.Error(), 0
}
