// Package upstream fronts the AI-chat microservice: a reverse proxy
// over a pool of targets with round-robin selection, periodic health
// checking and a circuit breaker.
package upstream

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Pool struct {
	targets []string
	proxies map[string]*httputil.ReverseProxy
	breaker *Breaker
	checker *HealthChecker
	next    uint64
	logger  zerolog.Logger
}

type Config struct {
	Targets []string
	Breaker BreakerConfig
	Health  HealthConfig
}

func NewPool(cfg Config, logger zerolog.Logger) (*Pool, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one upstream target is required")
	}

	proxies := make(map[string]*httputil.ReverseProxy, len(cfg.Targets))
	for _, targetURL := range cfg.Targets {
		target, err := url.Parse(targetURL)
		if err != nil {
			return nil, err
		}
		proxies[targetURL] = httputil.NewSingleHostReverseProxy(target)
	}

	if cfg.Health.Targets == nil {
		cfg.Health.Targets = cfg.Targets
	}

	checker := NewHealthChecker(cfg.Health, logger)
	checker.Start()

	return &Pool{
		targets: cfg.Targets,
		proxies: proxies,
		breaker: NewBreaker(cfg.Breaker),
		checker: checker,
		logger:  logger,
	}, nil
}

// Handle forwards the request to a healthy target.
func (p *Pool) Handle(c *gin.Context) {
	healthy := p.checker.HealthyTargets()
	if len(healthy) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "AI service unavailable",
		})
		return
	}

	target := healthy[atomic.AddUint64(&p.next, 1)%uint64(len(healthy))]
	proxy := p.proxies[target]
	targetURL, _ := url.Parse(target)

	err := p.breaker.Call(func() error {
		recorder := &statusRecorder{ResponseWriter: c.Writer, status: http.StatusOK}

		req := c.Request
		req.URL.Host = targetURL.Host
		req.URL.Scheme = targetURL.Scheme
		req.Host = targetURL.Host
		if clientIP := c.ClientIP(); clientIP != "" {
			req.Header.Set("X-Forwarded-For", clientIP)
		}

		c.Writer = recorder
		proxy.ServeHTTP(c.Writer, req)

		if recorder.status >= 500 {
			return errors.New("upstream error")
		}
		return nil
	})

	if errors.Is(err, ErrCircuitOpen) {
		p.logger.Warn().Str("target", target).Msg("AI upstream circuit open")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "AI service temporarily unavailable",
		})
	}
}

// Healthy reports whether at least one target is serving.
func (p *Pool) Healthy() bool {
	return len(p.checker.HealthyTargets()) > 0
}

// BreakerState exposes the breaker for the health endpoint.
func (p *Pool) BreakerState() BreakerState {
	return p.breaker.State()
}

func (p *Pool) Close() {
	p.checker.Stop()
}

type statusRecorder struct {
	gin.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
