package httprequest

import (
	"time"

	"advanced-http-worker/internal/common/logger"
	"advanced-http-worker/internal/common/observability"
)

var supportedMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

func hasBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// NodeParameters is the configured node: custom headers on a Zeebe job or a
// parameter file for the CLI.
type NodeParameters struct {
	Method         string            `json:"method" yaml:"method"`
	URL            string            `json:"url" yaml:"url"`
	UseDynamicData bool              `json:"useDynamicData" yaml:"useDynamicData"`
	Headers        []HeaderParameter `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body           interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
	Options        Options           `json:"options" yaml:"options"`
	ContinueOnFail *bool             `json:"continueOnFail,omitempty" yaml:"continueOnFail,omitempty"`
}

type HeaderParameter struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}

// Options mirrors the node's options bag. Zero values fall back to RequestDefaults.
type Options struct {
	Timeout        int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirect *bool  `json:"followRedirect,omitempty" yaml:"followRedirect,omitempty"`
	MaxRedirects   int    `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	FullResponse   bool   `json:"fullResponse,omitempty" yaml:"fullResponse,omitempty"`
	ValidateSSL    *bool  `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	ResponsePath   string `json:"responsePath,omitempty" yaml:"responsePath,omitempty"`
	Concurrency    int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

type InputItem struct {
	JSON map[string]interface{} `json:"json"`
}

type OutputRecord struct {
	JSON       map[string]interface{} `json:"json"`
	PairedItem int                    `json:"pairedItem"`

	// Err is set when JSON holds the error shape.
	Err error `json:"-"`
}

// RequestDescriptor is a fully validated outbound request.
type RequestDescriptor struct {
	Method             string
	URL                string
	Headers            map[string]string
	Body               interface{}
	Timeout            time.Duration
	FollowRedirect     bool
	MaxRedirects       int
	RejectUnauthorized bool
	FullResponse       bool
	ResponsePath       string
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       interface{}
	URL        string
	Method     string
}

// NetworkError is returned by an Executor. StatusCode is 0 when no response arrived.
type NetworkError struct {
	Message    string
	StatusCode int
	Timeout    bool
	Cause      error
}

func (e *NetworkError) Error() string { return e.Message }

func (e *NetworkError) Unwrap() error { return e.Cause }

type ServiceDependencies struct {
	Logger        logger.Logger
	Executor      Executor
	Audit         AuditRecorder
	Observability *observability.Observability
}

// Output is what a finished job hands back to the process.
type Output struct {
	Results     []map[string]interface{}
	ItemCount   int
	FailedCount int
}

func NewOutput(records []OutputRecord) *Output {
	out := &Output{
		Results:   make([]map[string]interface{}, len(records)),
		ItemCount: len(records),
	}
	for i, r := range records {
		out.Results[i] = r.JSON
		if r.Err != nil {
			out.FailedCount++
		}
	}
	return out
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"results":     o.Results,
		"itemCount":   o.ItemCount,
		"failedCount": o.FailedCount,
	}
}
