package upstream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker polls upstream targets and keeps the set of healthy
// ones. The poll loop runs independently of any request path.
type HealthChecker struct {
	mu             sync.RWMutex
	targets        []string
	failures       map[string]int
	healthy        map[string]bool
	healthyTargets []string

	endpoint    string
	interval    time.Duration
	timeout     time.Duration
	maxFailures int

	logger   zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

type HealthConfig struct {
	Targets     []string
	Endpoint    string        // Health endpoint on each target (default: "/health")
	Interval    time.Duration // Default: 10s
	Timeout     time.Duration // Default: 5s
	MaxFailures int           // Failures before marking unhealthy (default: 3)
}

func NewHealthChecker(cfg HealthConfig, logger zerolog.Logger) *HealthChecker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/health"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	hc := &HealthChecker{
		targets:     cfg.Targets,
		failures:    make(map[string]int),
		healthy:     make(map[string]bool),
		endpoint:    cfg.Endpoint,
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}

	// Assume healthy until a check says otherwise.
	for _, target := range cfg.Targets {
		hc.healthy[target] = true
	}
	hc.rebuildHealthy()

	return hc
}

// Start begins periodic health checks.
func (hc *HealthChecker) Start() {
	hc.checkAll()

	go func() {
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hc.checkAll()
			case <-hc.stopChan:
				return
			}
		}
	}()
}

func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		close(hc.stopChan)
	})
}

func (hc *HealthChecker) checkAll() {
	var wg sync.WaitGroup

	for _, target := range hc.targets {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			hc.checkTarget(t)
		}(target)
	}

	wg.Wait()
	hc.mu.Lock()
	hc.rebuildHealthy()
	hc.mu.Unlock()
}

func (hc *HealthChecker) checkTarget(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+hc.endpoint, nil)
	if err != nil {
		hc.record(target, false)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		hc.record(target, false)
		return
	}
	defer resp.Body.Close()

	hc.record(target, resp.StatusCode >= 200 && resp.StatusCode < 400)
}

func (hc *HealthChecker) record(target string, ok bool) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if ok {
		hc.failures[target] = 0
		if !hc.healthy[target] {
			hc.logger.Info().Str("target", target).Msg("upstream target healthy again")
			hc.healthy[target] = true
		}
		return
	}

	hc.failures[target]++
	if hc.healthy[target] && hc.failures[target] >= hc.maxFailures {
		hc.logger.Warn().
			Str("target", target).
			Int("failures", hc.failures[target]).
			Msg("upstream target marked unhealthy")
		hc.healthy[target] = false
	}
}

// rebuildHealthy recomputes the healthy slice. Caller holds the lock.
func (hc *HealthChecker) rebuildHealthy() {
	healthy := make([]string, 0, len(hc.targets))
	for _, target := range hc.targets {
		if hc.healthy[target] {
			healthy = append(healthy, target)
		}
	}
	hc.healthyTargets = healthy
}

// HealthyTargets returns a copy of the current healthy set.
func (hc *HealthChecker) HealthyTargets() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	targets := make([]string, len(hc.healthyTargets))
	copy(targets, hc.healthyTargets)

	return targets
}
