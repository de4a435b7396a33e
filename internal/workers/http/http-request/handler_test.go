package httprequest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"advanced-http-worker/internal/common/config"
	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeGateway records the job commands a handler sends.
type fakeGateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	failed    []*pb.FailJobRequest
	thrown    []*pb.ThrowErrorRequest
}

func (g *fakeGateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *fakeGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

var noRetry = func(context.Context, error) bool { return false }

type fakeJobClient struct {
	gateway *fakeGateway
}

func (c *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c *fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c *fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

type memoryResultStore struct {
	mu      sync.Mutex
	entries map[int64]map[string]interface{}
}

func (s *memoryResultStore) Load(_ context.Context, jobKey int64) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[jobKey]
	return v, ok, nil
}

func (s *memoryResultStore) Save(_ context.Context, jobKey int64, variables map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = map[int64]map[string]interface{}{}
	}
	s.entries[jobKey] = variables
	return nil
}

func createMockJob(t *testing.T, key int64, variables map[string]interface{}, headers map[string]string) entities.Job {
	t.Helper()
	vars, err := json.Marshal(variables)
	require.NoError(t, err)
	hdrs, err := json.Marshal(headers)
	require.NoError(t, err)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: 1000 + key,
		Retries:            3,
		Variables:          string(vars),
		CustomHeaders:      string(hdrs),
	}}
}

func createTestHandler(t *testing.T, cfg *Config, exec Executor, store ResultStore) *Handler {
	t.Helper()
	if cfg == nil {
		cfg = createTestConfig()
	}
	h, err := NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Logger:       logger.NewTestLogger(t),
		Executor:     exec,
		ResultStore:  store,
	})
	require.NoError(t, err)
	return h
}

func completedVariables(t *testing.T, gw *fakeGateway) map[string]interface{} {
	t.Helper()
	require.Len(t, gw.completed, 1)
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gw.completed[0].Variables), &vars))
	return vars
}

// ==========================
// Job Handling
// ==========================

func TestHandler_Handle_CompletesWithResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	defer srv.Close()

	h := createTestHandler(t, nil, nil, nil)
	gw := &fakeGateway{}

	job := createMockJob(t, 1, map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"query": map[string]interface{}{"url": srv.URL + "/a"}},
			map[string]interface{}{"query": map[string]interface{}{"url": srv.URL + "/b"}},
		},
	}, map[string]string{"method": "GET", "useDynamicData": "true"})

	h.Handle(&fakeJobClient{gateway: gw}, job)

	vars := completedVariables(t, gw)
	assert.Equal(t, float64(2), vars["itemCount"])
	assert.Equal(t, float64(0), vars["failedCount"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"data": map[string]interface{}{"path": "/a"}},
		map[string]interface{}{"data": map[string]interface{}{"path": "/b"}},
	}, vars["results"])
	assert.Empty(t, gw.failed)
	assert.Empty(t, gw.thrown)
}

func TestHandler_Handle_WholeVariablesAreOneItem(t *testing.T) {
	exec := &fakeExecutor{fn: respondWith("ok")}
	h := createTestHandler(t, nil, exec, nil)
	gw := &fakeGateway{}

	job := createMockJob(t, 2, map[string]interface{}{
		"query": map[string]interface{}{"url": "https://api.example.com", "method": "DELETE"},
	}, map[string]string{"useDynamicData": "true"})

	h.Handle(&fakeJobClient{gateway: gw}, job)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "DELETE", exec.calls[0].Method)
	assert.Equal(t, float64(1), completedVariables(t, gw)["itemCount"])
}

func TestHandler_Handle_ContinueOnFailHeader(t *testing.T) {
	exec := &fakeExecutor{fn: func(*RequestDescriptor) (*Response, error) {
		return nil, &NetworkError{Message: "Network error"}
	}}
	h := createTestHandler(t, nil, exec, nil)
	gw := &fakeGateway{}

	job := createMockJob(t, 3, map[string]interface{}{}, map[string]string{
		"method":         "GET",
		"url":            "https://api.example.com",
		"continueOnFail": "true",
	})

	h.Handle(&fakeJobClient{gateway: gw}, job)

	vars := completedVariables(t, gw)
	assert.Equal(t, float64(1), vars["failedCount"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"error": "Network error", "statusCode": float64(0)},
	}, vars["results"])
}

func TestHandler_Handle_Failures(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		executorFn func(*RequestDescriptor) (*Response, error)
		validate   func(t *testing.T, gw *fakeGateway)
	}{
		{
			name:    "client error is thrown as BPMN error",
			headers: map[string]string{"method": "GET", "url": "https://api.example.com"},
			executorFn: func(*RequestDescriptor) (*Response, error) {
				return nil, &NetworkError{Message: "Request failed with status code 404", StatusCode: 404}
			},
			validate: func(t *testing.T, gw *fakeGateway) {
				require.Len(t, gw.thrown, 1)
				assert.Equal(t, "HTTP_CLIENT_ERROR", gw.thrown[0].ErrorCode)
				assert.Equal(t, "Request failed with status code 404", gw.thrown[0].ErrorMessage)
				assert.Empty(t, gw.failed)
			},
		},
		{
			name:    "server error fails the job with retries",
			headers: map[string]string{"method": "GET", "url": "https://api.example.com"},
			executorFn: func(*RequestDescriptor) (*Response, error) {
				return nil, &NetworkError{Message: "Request failed with status code 503", StatusCode: 503}
			},
			validate: func(t *testing.T, gw *fakeGateway) {
				require.Len(t, gw.failed, 1)
				assert.Equal(t, int32(2), gw.failed[0].Retries)
				assert.Contains(t, gw.failed[0].ErrorMessage, "HTTP_REQUEST_FAILED")
				assert.Empty(t, gw.thrown)
			},
		},
		{
			name:    "timeout fails the job with retries",
			headers: map[string]string{"method": "GET", "url": "https://api.example.com"},
			executorFn: func(*RequestDescriptor) (*Response, error) {
				return nil, &NetworkError{Message: "timeout of 30000ms exceeded", Timeout: true}
			},
			validate: func(t *testing.T, gw *fakeGateway) {
				require.Len(t, gw.failed, 1)
				assert.Equal(t, int32(2), gw.failed[0].Retries)
				assert.Contains(t, gw.failed[0].ErrorMessage, "HTTP_REQUEST_TIMEOUT")
			},
		},
		{
			name:    "invalid URL is thrown",
			headers: map[string]string{"method": "GET", "url": "not-a-valid-url"},
			validate: func(t *testing.T, gw *fakeGateway) {
				require.Len(t, gw.thrown, 1)
				assert.Equal(t, "INVALID_URL", gw.thrown[0].ErrorCode)
			},
		},
		{
			name:    "malformed options header is thrown",
			headers: map[string]string{"url": "https://api.example.com", "options": "{not json"},
			validate: func(t *testing.T, gw *fakeGateway) {
				require.Len(t, gw.thrown, 1)
				assert.Equal(t, "INVALID_PARAMETERS", gw.thrown[0].ErrorCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := tt.executorFn
			if fn == nil {
				fn = respondWith("unused")
			}
			h := createTestHandler(t, nil, &fakeExecutor{fn: fn}, nil)
			gw := &fakeGateway{}

			h.Handle(&fakeJobClient{gateway: gw}, createMockJob(t, 4, map[string]interface{}{}, tt.headers))

			assert.Empty(t, gw.completed)
			tt.validate(t, gw)
		})
	}
}

func TestHandler_Handle_UsesStoredResult(t *testing.T) {
	exec := &fakeExecutor{fn: respondWith("fresh")}
	cfg := createTestConfig()
	cfg.ResultTTL = time.Minute
	store := &memoryResultStore{}
	h := createTestHandler(t, cfg, exec, store)

	job := createMockJob(t, 5, map[string]interface{}{}, map[string]string{"url": "https://api.example.com"})

	gw := &fakeGateway{}
	h.Handle(&fakeJobClient{gateway: gw}, job)
	require.Len(t, exec.calls, 1)
	require.Contains(t, store.entries, int64(5))

	redelivered := &fakeGateway{}
	h.Handle(&fakeJobClient{gateway: redelivered}, job)

	assert.Len(t, exec.calls, 1, "redelivered job is not executed again")
	assert.Equal(t, completedVariables(t, gw), completedVariables(t, redelivered))
}

func TestHandler_Handle_Disabled(t *testing.T) {
	exec := &fakeExecutor{fn: respondWith("ok")}
	cfg := createTestConfig()
	cfg.Enabled = false
	h := createTestHandler(t, cfg, exec, nil)
	gw := &fakeGateway{}

	h.Handle(&fakeJobClient{gateway: gw}, createMockJob(t, 6, map[string]interface{}{}, map[string]string{"url": "https://api.example.com"}))

	assert.Empty(t, exec.calls)
	assert.Equal(t, float64(0), completedVariables(t, gw)["itemCount"])
	assert.False(t, h.IsEnabled())
	assert.NoError(t, h.Register(), "disabled worker skips registration")
}

// ==========================
// Parameters & Configuration
// ==========================

func TestParseParameters(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		wantErr  bool
		validate func(t *testing.T, p *NodeParameters)
	}{
		{
			name:    "defaults to GET",
			headers: map[string]string{"url": "https://api.example.com"},
			validate: func(t *testing.T, p *NodeParameters) {
				assert.Equal(t, "GET", p.Method)
				assert.False(t, p.UseDynamicData)
				assert.Nil(t, p.ContinueOnFail)
			},
		},
		{
			name: "header list",
			headers: map[string]string{
				"url":     "https://api.example.com",
				"headers": `[{"name":"Accept","value":"application/json"}]`,
			},
			validate: func(t *testing.T, p *NodeParameters) {
				assert.Equal(t, []HeaderParameter{{Name: "Accept", Value: "application/json"}}, p.Headers)
			},
		},
		{
			name: "header object is sorted by name",
			headers: map[string]string{
				"url":     "https://api.example.com",
				"headers": `{"X-B":"2","X-A":"1"}`,
			},
			validate: func(t *testing.T, p *NodeParameters) {
				assert.Equal(t, []HeaderParameter{{Name: "X-A", Value: "1"}, {Name: "X-B", Value: "2"}}, p.Headers)
			},
		},
		{
			name: "options and flags",
			headers: map[string]string{
				"method":         "post",
				"url":            "https://api.example.com",
				"useDynamicData": "true",
				"continueOnFail": "false",
				"body":           `{"a":1}`,
				"options":        `{"timeout":1000,"fullResponse":true,"followRedirect":false,"concurrency":2}`,
			},
			validate: func(t *testing.T, p *NodeParameters) {
				assert.Equal(t, "post", p.Method)
				assert.True(t, p.UseDynamicData)
				require.NotNil(t, p.ContinueOnFail)
				assert.False(t, *p.ContinueOnFail)
				assert.Equal(t, `{"a":1}`, p.Body)
				assert.Equal(t, 1000, p.Options.Timeout)
				assert.True(t, p.Options.FullResponse)
				require.NotNil(t, p.Options.FollowRedirect)
				assert.False(t, *p.Options.FollowRedirect)
				assert.Equal(t, 2, p.Options.Concurrency)
			},
		},
		{name: "bad boolean", headers: map[string]string{"useDynamicData": "maybe"}, wantErr: true},
		{name: "bad method", headers: map[string]string{"method": "TRACE"}, wantErr: true},
		{name: "negative timeout", headers: map[string]string{"options": `{"timeout":-1}`}, wantErr: true},
		{name: "unknown option type", headers: map[string]string{"options": `{"fullResponse":"yes"}`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseParameters(tt.headers)
			if tt.wantErr {
				require.Error(t, err)
				stdErr, ok := errors.AsStandardError(err)
				require.True(t, ok)
				assert.Equal(t, errors.ErrCodeInvalidParameters, stdErr.Code)
				return
			}
			require.NoError(t, err)
			tt.validate(t, params)
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		Workers: map[string]config.WorkerConfig{
			config.HTTPRequestWorker: {
				Enabled:        true,
				MaxJobsActive:  20,
				Timeout:        90000,
				ContinueOnFail: true,
				Concurrency:    4,
				ResultTTL:      600000,
				AuditEnabled:   true,
			},
		},
		HTTP: config.HTTPConfig{
			Timeout:        5000,
			FollowRedirect: false,
			MaxRedirects:   2,
			ValidateSSL:    true,
		},
	}

	cfg := createConfigFromAppConfig(appCfg, nil)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 20, cfg.MaxJobsActive)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.ContinueOnFail)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.ResultTTL)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, RequestDefaults{Timeout: 5 * time.Second, FollowRedirect: false, MaxRedirects: 2, ValidateSSL: true}, cfg.Defaults)
	require.NoError(t, cfg.Validate())

	custom := createTestConfig()
	assert.Same(t, custom, createConfigFromAppConfig(appCfg, custom))
	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))
}

func TestNewHandler_RejectsInvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.Concurrency = 0

	_, err := NewHandler(HandlerOptions{CustomConfig: cfg, Logger: logger.NewTestLogger(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestHandler_Accessors(t *testing.T) {
	h := createTestHandler(t, nil, &fakeExecutor{fn: respondWith("ok")}, nil)

	assert.Equal(t, "http.request", h.GetTaskType())
	assert.True(t, h.IsEnabled())
	assert.Equal(t, createTestConfig(), h.GetConfig())
	assert.NoError(t, h.HealthCheck(context.Background()))
	assert.Error(t, h.Register(), "registration needs a camunda client")
	h.Close()
}
