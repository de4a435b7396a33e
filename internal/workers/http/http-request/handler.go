package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"advanced-http-worker/internal/common/camunda"
	"advanced-http-worker/internal/common/config"
	"advanced-http-worker/internal/common/errors"
	httpclient "advanced-http-worker/internal/common/http"
	"advanced-http-worker/internal/common/logger"
	"advanced-http-worker/internal/common/metrics"
	"advanced-http-worker/internal/common/observability"
	"advanced-http-worker/internal/common/validation"
)

const TaskType = "http.request"

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	service      *Service
	store        ResultStore
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	jobWorker    *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Camunda       *camunda.Client
	CustomConfig  *Config
	Logger        logger.Logger
	Executor      Executor
	ResultStore   ResultStore
	Audit         AuditRecorder
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.HTTPRequestWorker, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	executor := opts.Executor
	if executor == nil {
		httpCfg := config.HTTPConfig{}
		if opts.AppConfig != nil {
			httpCfg = opts.AppConfig.HTTP
		}
		executor = NewRestyExecutor(httpclient.NewFactory(httpCfg), loggerInstance)
	}

	handler := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		store:        opts.ResultStore,
		obs:          opts.Observability,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}

	var audit AuditRecorder
	if workerConfig.AuditEnabled {
		audit = opts.Audit
	}

	handler.service = NewService(ServiceDependencies{
		Logger:        loggerInstance,
		Executor:      executor,
		Audit:         audit,
		Observability: opts.Observability,
	}, handler.config)

	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing HTTP request job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", map[string]interface{}{
			"worker": TaskType,
		})
		h.completeJob(ctx, client, job, NewOutput(nil).Variables())
		return
	}

	if variables, found := h.lookupResult(ctx, job.GetKey()); found {
		h.logger.Info("Completing job from stored result", map[string]interface{}{
			"jobKey": job.GetKey(),
			"worker": TaskType,
		})
		h.completeJob(ctx, client, job, variables)
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
		return
	}

	params, items, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, job.GetKey(), params, items)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	variables := output.Variables()
	h.saveResult(ctx, job.GetKey(), variables)
	h.completeJob(ctx, client, job, variables)

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
}

// Execute runs the node for items and shapes the completion output.
func (h *Handler) Execute(ctx context.Context, jobKey int64, params *NodeParameters, items []InputItem) (*Output, error) {
	records, err := h.service.Run(ctx, jobKey, params, items)
	if err != nil {
		return nil, err
	}
	return NewOutput(records), nil
}

func (h *Handler) parseInput(job entities.Job) (*NodeParameters, []InputItem, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, nil, errors.NewInputParsingFailedError(err)
	}

	schema := GetInputSchema()
	validationResult := validation.ValidateInput(variables, schema)
	if !validationResult.Valid {
		stdErr := errors.NewInvalidInputError("Input validation failed")
		stdErr.Details = fmt.Sprintf("Validation errors: %v", validationResult.GetErrorMessages())
		return nil, nil, stdErr
	}

	customHeaders, err := job.GetCustomHeadersAsMap()
	if err != nil {
		return nil, nil, errors.NewInvalidParametersError(fmt.Sprintf("custom headers: %v", err))
	}
	params, err := ParseParameters(customHeaders)
	if err != nil {
		return nil, nil, err
	}

	return params, itemsFromVariables(variables), nil
}

// itemsFromVariables reads the items array, or treats the whole variable
// document as a single item when there is none.
func itemsFromVariables(variables map[string]interface{}) []InputItem {
	raw, ok := variables["items"].([]interface{})
	if !ok {
		return []InputItem{{JSON: variables}}
	}
	items := make([]InputItem, 0, len(raw))
	for _, v := range raw {
		obj, _ := v.(map[string]interface{})
		items = append(items, InputItem{JSON: obj})
	}
	return items
}

// ParseParameters builds node parameters from job custom headers.
func ParseParameters(headers map[string]string) (*NodeParameters, error) {
	params := &NodeParameters{
		Method: headers["method"],
		URL:    headers["url"],
	}
	if params.Method == "" {
		params.Method = "GET"
	}

	if raw := headers["useDynamicData"]; raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewInvalidParametersError(fmt.Sprintf("useDynamicData: %v", err))
		}
		params.UseDynamicData = v
	}

	if raw := headers["continueOnFail"]; raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewInvalidParametersError(fmt.Sprintf("continueOnFail: %v", err))
		}
		params.ContinueOnFail = &v
	}

	if raw := strings.TrimSpace(headers["headers"]); raw != "" {
		list, err := parseHeaderParameters(raw)
		if err != nil {
			return nil, err
		}
		params.Headers = list
	}

	if raw, ok := headers["body"]; ok {
		params.Body = raw
	}

	if raw := strings.TrimSpace(headers["options"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Options); err != nil {
			return nil, errors.NewInvalidParametersError(fmt.Sprintf("options: %v", err))
		}
	}

	if err := ValidateParameters(params); err != nil {
		return nil, err
	}
	return params, nil
}

// parseHeaderParameters accepts a [{name, value}] list or a {name: value} object.
func parseHeaderParameters(raw string) ([]HeaderParameter, error) {
	if strings.HasPrefix(raw, "[") {
		var list []HeaderParameter
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, errors.NewInvalidParametersError(fmt.Sprintf("headers: %v", err))
		}
		return list, nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, errors.NewInvalidParametersError(fmt.Sprintf("headers: %v", err))
	}
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]HeaderParameter, 0, len(names))
	for _, name := range names {
		list = append(list, HeaderParameter{Name: name, Value: obj[name]})
	}
	return list, nil
}

func (h *Handler) lookupResult(ctx context.Context, jobKey int64) (map[string]interface{}, bool) {
	if h.store == nil {
		return nil, false
	}
	variables, found, err := h.store.Load(ctx, jobKey)
	if err != nil {
		h.logger.Warn("Result store lookup failed", map[string]interface{}{
			"jobKey": jobKey,
			"error":  err.Error(),
			"worker": TaskType,
		})
		return nil, false
	}
	return variables, found
}

func (h *Handler) saveResult(ctx context.Context, jobKey int64, variables map[string]interface{}) {
	if h.store == nil || h.config.ResultTTL <= 0 {
		return
	}
	if err := h.store.Save(ctx, jobKey, variables); err != nil {
		h.logger.Warn("Result store save failed", map[string]interface{}{
			"jobKey": jobKey,
			"error":  err.Error(),
			"worker": TaskType,
		})
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	err = camunda.DefaultRetryConfig.Do(ctx, "complete job", func(ctx context.Context) error {
		_, sendErr := request.Send(ctx)
		return sendErr
	})
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Successfully completed HTTP request job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"itemCount":   variables["itemCount"],
		"failedCount": variables["failedCount"],
		"worker":      TaskType,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	errorCode := extractErrorCode(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")

	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}

	h.jobWorker = camunda.StartWorker(h.camunda.GetClient(), TaskType, config.WorkerConfig{
		Enabled:       h.config.Enabled,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       int(h.config.Timeout.Milliseconds()),
	}, h, h.logger)

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.jobWorker.Stop()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return nil
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[config.HTTPRequestWorker]; exists {
			cfg.Enabled = workerCfg.Enabled
			cfg.ContinueOnFail = workerCfg.ContinueOnFail
			cfg.AuditEnabled = workerCfg.AuditEnabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
			if workerCfg.Concurrency > 0 {
				cfg.Concurrency = workerCfg.Concurrency
			}
			if workerCfg.ResultTTL > 0 {
				cfg.ResultTTL = config.GetDuration(workerCfg.ResultTTL)
			}
		}

		defaults := httpclient.DefaultOptions(appConfig.HTTP)
		if defaults.Timeout > 0 {
			cfg.Defaults.Timeout = defaults.Timeout
		}
		if defaults.MaxRedirects > 0 {
			cfg.Defaults.MaxRedirects = defaults.MaxRedirects
		}
		cfg.Defaults.FollowRedirect = defaults.FollowRedirect
		cfg.Defaults.ValidateSSL = defaults.ValidateSSL
	}

	return cfg
}
