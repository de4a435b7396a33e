package httprequest

import (
	"fmt"
	"time"

	"advanced-http-worker/internal/common/config"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ContinueOnFail bool          `mapstructure:"continue_on_fail"`
	Concurrency    int           `mapstructure:"concurrency"`
	ResultTTL      time.Duration `mapstructure:"result_ttl"`
	AuditEnabled   bool          `mapstructure:"audit_enabled"`
	Defaults       RequestDefaults
}

// RequestDefaults fill the options a node leaves unset.
type RequestDefaults struct {
	Timeout        time.Duration
	FollowRedirect bool
	MaxRedirects   int
	ValidateSSL    bool
}

func DefaultRequestDefaults() RequestDefaults {
	return RequestDefaults{
		Timeout:        30 * time.Second,
		FollowRedirect: true,
		MaxRedirects:   5,
		ValidateSSL:    true,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		Concurrency:   1,
		Defaults:      DefaultRequestDefaults(),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.ResultTTL < 0 {
		return fmt.Errorf("result_ttl must not be negative")
	}
	if c.Defaults.Timeout <= 0 {
		return fmt.Errorf("default request timeout must be positive")
	}
	if c.Defaults.MaxRedirects < 0 {
		return fmt.Errorf("default max redirects must not be negative")
	}
	return nil
}

// NewConfig derives the worker config from the application config. A nil
// appConfig yields DefaultConfig.
func NewConfig(appConfig *config.Config) *Config {
	return createConfigFromAppConfig(appConfig, nil)
}
