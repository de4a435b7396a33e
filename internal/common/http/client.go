// internal/common/http/client.go
package http

import (
	"crypto/tls"
	"errors"
	"net"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"advanced-http-worker/internal/common/config"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds MaxRedirects.
var ErrTooManyRedirects = errors.New("maximum number of redirects exceeded")

// Options are the per-request transport settings.
type Options struct {
	Timeout        time.Duration
	FollowRedirect bool
	MaxRedirects   int
	ValidateSSL    bool
}

// Factory hands out resty clients that share two pooled transports
// (verifying and non-verifying TLS) and one outbound rate limiter.
type Factory struct {
	userAgent string
	limiter   *rate.Limiter

	secure   *nethttp.Transport
	insecure *nethttp.Transport

	mu      sync.Mutex
	clients map[Options]*resty.Client
}

// NewFactory builds a Factory from the http config section.
func NewFactory(cfg config.HTTPConfig) *Factory {
	f := &Factory{
		userAgent: cfg.UserAgent,
		secure:    newTransport(true),
		insecure:  newTransport(false),
		clients:   map[Options]*resty.Client{},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return f
}

// DefaultOptions returns the config-level request options.
func DefaultOptions(cfg config.HTTPConfig) Options {
	return Options{
		Timeout:        config.GetDuration(cfg.Timeout),
		FollowRedirect: cfg.FollowRedirect,
		MaxRedirects:   cfg.MaxRedirects,
		ValidateSSL:    cfg.ValidateSSL,
	}
}

func newTransport(validateSSL bool) *nethttp.Transport {
	return &nethttp.Transport{
		Proxy: nethttp.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !validateSSL,
		},
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Client returns the client for opts, creating it on first use.
func (f *Factory) Client(opts Options) *resty.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[opts]; ok {
		return c
	}

	transport := f.secure
	if !opts.ValidateSSL {
		transport = f.insecure
	}

	c := resty.NewWithClient(&nethttp.Client{Transport: transport}).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(RedirectPolicy(opts.FollowRedirect, opts.MaxRedirects))
	if f.userAgent != "" {
		c.SetHeader("User-Agent", f.userAgent)
	}
	if f.limiter != nil {
		limiter := f.limiter
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}

	f.clients[opts] = c
	return c
}

// RedirectPolicy returns the 3xx response as is when following is off, and
// fails with ErrTooManyRedirects once a chain goes past maxRedirects hops.
func RedirectPolicy(follow bool, maxRedirects int) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(_ *nethttp.Request, via []*nethttp.Request) error {
		if !follow {
			return nethttp.ErrUseLastResponse
		}
		if len(via) > maxRedirects {
			return ErrTooManyRedirects
		}
		return nil
	})
}

// CloseIdleConnections releases pooled connections on shutdown.
func (f *Factory) CloseIdleConnections() {
	f.secure.CloseIdleConnections()
	f.insecure.CloseIdleConnections()
}
