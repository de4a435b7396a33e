package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
workers:
  http-request:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "advanced-http-worker", cfg.App.Name)
	assert.Equal(t, 30000, cfg.HTTP.Timeout)
	assert.True(t, cfg.HTTP.FollowRedirect)
	assert.True(t, cfg.HTTP.ValidateSSL)
	assert.Equal(t, 5, cfg.HTTP.MaxRedirects)
	assert.Equal(t, 1, cfg.HTTP.Burst)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)

	w := cfg.Workers[HTTPRequestWorker]
	assert.True(t, w.Enabled)
	assert.Equal(t, 1, w.Concurrency)
	assert.Equal(t, 3, w.MaxRetries)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: zeebe:26500
database:
  postgres:
    host: db
    database: audit
    user: worker
  redis:
    address: redis:6379
http:
  timeout: 5000
  follow_redirect: false
  validate_ssl: false
  max_redirects: 2
  rate_limit: 10
  burst: 4
workers:
  http-request:
    enabled: true
    concurrency: 4
    result_ttl: 60000
    audit_enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.False(t, cfg.HTTP.FollowRedirect)
	assert.False(t, cfg.HTTP.ValidateSSL)
	assert.Equal(t, 2, cfg.HTTP.MaxRedirects)
	assert.Equal(t, 10.0, cfg.HTTP.RateLimit)
	assert.Equal(t, 4, cfg.HTTP.Burst)
	assert.True(t, cfg.Database.Postgres.Enabled())
	assert.True(t, cfg.Database.Redis.Enabled())
	assert.Equal(t, "host=db port=5432 user=worker password= dbname=audit sslmode=disable", cfg.Database.Postgres.GetDSN())

	w := GetWorkerConfig(cfg, HTTPRequestWorker)
	assert.Equal(t, 4, w.Concurrency)
	assert.Equal(t, 60000, w.ResultTTL)
	assert.True(t, w.AuditEnabled)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ZEEBE_HOST", "broker.internal:26500")
	path := writeConfig(t, `
camunda:
  broker_address: ${TEST_ZEEBE_HOST}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "broker.internal:26500", cfg.Camunda.BrokerAddress)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "app:\n  name: x\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "audit without postgres",
			body: `
camunda:
  broker_address: localhost:26500
workers:
  http-request:
    audit_enabled: true
`,
			wantErr: "audit_enabled requires database.postgres",
		},
		{
			name: "negative redirects",
			body: `
camunda:
  broker_address: localhost:26500
http:
  max_redirects: -1
`,
			wantErr: "http.max_redirects must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ZEEBE_ADDRESS", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))

	cfg := &Config{Workers: map[string]WorkerConfig{
		"off": {Enabled: false},
	}}
	assert.False(t, IsWorkerEnabled(cfg, "off"))
	assert.True(t, IsWorkerEnabled(cfg, HTTPRequestWorker))
	assert.Equal(t, 1, GetWorkerConfig(cfg, HTTPRequestWorker).Concurrency)
}
