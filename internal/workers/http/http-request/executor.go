package httprequest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	httpclient "advanced-http-worker/internal/common/http"
	"advanced-http-worker/internal/common/logger"
	"advanced-http-worker/internal/common/masking"
	"advanced-http-worker/internal/common/metrics"
)

// Executor performs one outbound request. Failures are *NetworkError.
type Executor interface {
	Execute(ctx context.Context, desc *RequestDescriptor) (*Response, error)
}

// RestyExecutor executes requests through the shared resty client factory.
type RestyExecutor struct {
	factory *httpclient.Factory
	logger  logger.Logger
}

func NewRestyExecutor(factory *httpclient.Factory, log logger.Logger) *RestyExecutor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RestyExecutor{factory: factory, logger: log}
}

func (e *RestyExecutor) Execute(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	client := e.factory.Client(httpclient.Options{
		Timeout:        desc.Timeout,
		FollowRedirect: desc.FollowRedirect,
		MaxRedirects:   desc.MaxRedirects,
		ValidateSSL:    desc.RejectUnauthorized,
	})

	req := client.R().SetContext(ctx)
	if len(desc.Headers) > 0 {
		req.SetHeaders(desc.Headers)
	}
	if desc.Body != nil && hasBody(desc.Method) {
		payload, err := json.Marshal(desc.Body)
		if err != nil {
			return nil, &NetworkError{Message: fmt.Sprintf("failed to encode request body: %v", err), Cause: err}
		}
		if !hasHeader(desc.Headers, "Content-Type") {
			req.SetHeader("Content-Type", "application/json")
		}
		req.SetBody(payload)
	}

	e.logger.Debug("Executing HTTP request", masking.SanitizeRequest(desc.Method, desc.URL, desc.Headers, desc.Body))

	start := time.Now()
	resp, err := execByMethod(req, desc.Method, desc.URL)
	metrics.HTTPNodeRequestDuration.WithLabelValues(desc.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.HTTPNodeRequests.WithLabelValues(desc.Method, metrics.StatusClass(0)).Inc()
		return nil, toNetworkError(ctx, err, desc.Timeout)
	}

	status := resp.StatusCode()
	metrics.HTTPNodeRequests.WithLabelValues(desc.Method, metrics.StatusClass(status)).Inc()
	if status >= 400 {
		return nil, &NetworkError{
			Message:    fmt.Sprintf("Request failed with status code %d", status),
			StatusCode: status,
		}
	}

	return &Response{
		StatusCode: status,
		Headers:    flattenHeaders(resp.Header()),
		Body:       decodeBody(resp.Body()),
		URL:        finalURL(resp, desc.URL),
		Method:     desc.Method,
	}, nil
}

func execByMethod(req *resty.Request, method, url string) (*resty.Response, error) {
	switch method {
	case "GET":
		return req.Get(url)
	case "POST":
		return req.Post(url)
	case "PUT":
		return req.Put(url)
	case "PATCH":
		return req.Patch(url)
	case "DELETE":
		return req.Delete(url)
	case "HEAD":
		return req.Head(url)
	case "OPTIONS":
		return req.Options(url)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

// toNetworkError reports an expired job context separately from the request timeout.
func toNetworkError(ctx context.Context, err error, timeout time.Duration) *NetworkError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &NetworkError{
			Message: fmt.Sprintf("request aborted: %s", jobContextReason(ctxErr)),
			Timeout: stderrors.Is(ctxErr, context.DeadlineExceeded),
			Cause:   err,
		}
	}
	if stderrors.Is(err, httpclient.ErrTooManyRedirects) {
		return &NetworkError{Message: "Maximum number of redirects exceeded", Cause: err}
	}

	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return &NetworkError{
			Message: fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds()),
			Timeout: true,
			Cause:   err,
		}
	}
	return &NetworkError{Message: err.Error(), Cause: err}
}

func jobContextReason(err error) string {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "job deadline exceeded"
	}
	return "job cancelled"
}

// flattenHeaders lower-cases names and joins repeated values with ", ".
func flattenHeaders(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}

// decodeBody parses JSON bodies and keeps anything else as text.
func decodeBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return ""
	}
	if gjson.ValidBytes(raw) {
		return gjson.ParseBytes(raw).Value()
	}
	return string(raw)
}

func finalURL(resp *resty.Response, fallback string) string {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return fallback
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
