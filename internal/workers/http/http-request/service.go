package httprequest

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/internal/common/logger"
	"advanced-http-worker/internal/common/metrics"
	"advanced-http-worker/internal/common/observability"
)

type Service struct {
	config    *Config
	logger    logger.Logger
	executor  Executor
	audit     AuditRecorder
	obs       *observability.Observability
	assembler *Assembler
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:    config,
		logger:    log,
		executor:  deps.Executor,
		audit:     deps.Audit,
		obs:       deps.Observability,
		assembler: NewAssembler(config.Defaults),
	}
}

// Run executes one request per item and returns one record per item, in
// item order. With continue-on-fail a failed item yields an error record;
// without it the first failed item aborts the run.
func (s *Service) Run(ctx context.Context, jobKey int64, params *NodeParameters, items []InputItem) ([]OutputRecord, error) {
	ctx, span := s.obs.StartSpan(ctx, "http.request.run",
		attribute.Int64("job.key", jobKey),
		attribute.Int("item.count", len(items)),
	)

	records, err := s.run(ctx, jobKey, params, items)

	failed := 0
	for _, r := range records {
		if r.Err != nil {
			failed++
		}
	}
	s.obs.RecordItems(ctx, len(records)-failed, failed)
	observability.EndSpan(span, err)

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) run(ctx context.Context, jobKey int64, params *NodeParameters, items []InputItem) ([]OutputRecord, error) {
	continueOnFail := s.config.ContinueOnFail
	if params.ContinueOnFail != nil {
		continueOnFail = *params.ContinueOnFail
	}

	records := make([]OutputRecord, len(items))
	workers := s.concurrency(params.Options)

	if workers <= 1 {
		for i, item := range items {
			records[i] = s.runItem(ctx, jobKey, i, params, item)
			if records[i].Err != nil && !continueOnFail {
				return records[:i+1], itemError(records[i].Err, i)
			}
		}
		return records, nil
	}

	var (
		wg      sync.WaitGroup
		stopped atomic.Bool
		sem     = make(chan struct{}, workers)
	)
	for i, item := range items {
		if stopped.Load() {
			break
		}
		sem <- struct{}{}
		// a failure may land while waiting for a slot
		if stopped.Load() {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, item InputItem) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i] = s.runItem(ctx, jobKey, i, params, item)
			if records[i].Err != nil && !continueOnFail {
				stopped.Store(true)
			}
		}(i, item)
	}
	wg.Wait()

	if !continueOnFail {
		for i, r := range records {
			if r.Err != nil {
				return records[:i+1], itemError(r.Err, i)
			}
		}
	}
	return records, nil
}

func (s *Service) concurrency(opts Options) int {
	if opts.Concurrency > 0 {
		return opts.Concurrency
	}
	if s.config.Concurrency > 0 {
		return s.config.Concurrency
	}
	return 1
}

func (s *Service) runItem(ctx context.Context, jobKey int64, index int, params *NodeParameters, item InputItem) OutputRecord {
	desc, err := s.assembler.Assemble(params, item)
	if err != nil {
		return s.failed(index, "validation", err)
	}

	ctx, span := s.obs.StartSpan(ctx, "http.request",
		attribute.String("http.method", desc.Method),
		attribute.Int("item.index", index),
	)
	start := time.Now()
	resp, err := s.executor.Execute(ctx, desc)
	elapsed := time.Since(start)
	observability.EndSpan(span, err)

	s.record(ctx, jobKey, index, desc, resp, err, elapsed)

	if err != nil {
		return s.failed(index, failureKind(err), err)
	}
	s.logger.Debug("HTTP request item completed", map[string]interface{}{
		"itemIndex":  index,
		"statusCode": resp.StatusCode,
		"finalUrl":   resp.URL,
		"durationMs": elapsed.Milliseconds(),
	})
	return OutputRecord{JSON: ShapeResponse(desc, resp), PairedItem: index}
}

func (s *Service) failed(index int, kind string, err error) OutputRecord {
	metrics.HTTPNodeItemFailures.WithLabelValues(kind).Inc()
	s.logger.Warn("HTTP request item failed", map[string]interface{}{
		"itemIndex": index,
		"kind":      kind,
		"error":     err.Error(),
	})
	return OutputRecord{JSON: ErrorRecord(err), PairedItem: index, Err: err}
}

func (s *Service) record(ctx context.Context, jobKey int64, index int, desc *RequestDescriptor, resp *Response, err error, elapsed time.Duration) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{
		JobKey:    jobKey,
		ItemIndex: index,
		Method:    desc.Method,
		URL:       desc.URL,
		Headers:   desc.Headers,
		Duration:  elapsed,
	}
	if resp != nil {
		entry.StatusCode = resp.StatusCode
	}
	if err != nil {
		message, status := describeError(err)
		entry.Error = message
		entry.StatusCode = status
	}

	if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("Failed to write audit entry", map[string]interface{}{
			"jobKey":    jobKey,
			"itemIndex": index,
			"error":     auditErr.Error(),
		})
	}
}

func failureKind(err error) string {
	var netErr *NetworkError
	if !stderrors.As(err, &netErr) {
		return "validation"
	}
	switch {
	case netErr.Timeout:
		return "timeout"
	case netErr.StatusCode > 0:
		return "http"
	default:
		return "network"
	}
}

// itemError converts an item failure into the error reported to the workflow engine.
func itemError(err error, index int) *errors.StandardError {
	var stdErr *errors.StandardError

	var netErr *NetworkError
	switch {
	case stderrors.As(err, &netErr) && netErr.Timeout:
		stdErr = errors.NewHTTPRequestTimeoutError(netErr.Message)
	case stderrors.As(err, &netErr):
		stdErr = errors.NewHTTPRequestFailedError(netErr.Message, netErr.StatusCode)
	default:
		stdErr = errors.Normalize(err)
	}
	return stdErr.WithMetadata("itemIndex", index)
}
