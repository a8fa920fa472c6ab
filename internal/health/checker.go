// Package health tracks the readiness of the service's backing dependencies.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of one dependency.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	// FailThreshold is the number of consecutive failures before a
	// dependency is reported degraded.
	FailThreshold int
}

// Probe checks one dependency, e.g. a database ping.
type Probe func(ctx context.Context) error

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(component string, success bool)

// ComponentStatus is the last known state of a dependency.
type ComponentStatus struct {
	Status      Status    `json:"status"`
	Failures    int       `json:"consecutive_failures"`
	LastError   string    `json:"last_error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Report is a snapshot of every registered dependency.
type Report struct {
	Ready      bool                       `json:"ready"`
	Components map[string]ComponentStatus `json:"components"`
}

// Checker runs periodic dependency probes.
type Checker struct {
	mu        sync.Mutex
	probes    map[string]Probe
	state     map[string]ComponentStatus
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a new Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		probes: make(map[string]Probe),
		state:  make(map[string]ComponentStatus),
		cfg:    cfg,
		logger: logger,
	}
}

// Register adds a named probe. Registering a name twice replaces the probe.
func (h *Checker) Register(name string, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
	h.state[name] = ComponentStatus{Status: StatusUnknown}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the check loop until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every probe concurrently, each under the probe timeout.
func (h *Checker) CheckAll(ctx context.Context) {
	h.mu.Lock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for name, p := range probes {
		wg.Add(1)
		go func(name string, p Probe) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p(probeCtx)
			cancel()

			if h.onMetrics != nil {
				h.onMetrics(name, err == nil)
			}
			h.record(name, err)
		}(name, p)
	}
	wg.Wait()
}

func (h *Checker) record(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.state[name]
	next := ComponentStatus{LastChecked: time.Now().UTC()}
	if err == nil {
		next.Status = StatusHealthy
		if prev.Status == StatusDegraded {
			h.logger.Info("health: recovered", zap.String("component", name))
		}
	} else {
		next.Failures = prev.Failures + 1
		next.LastError = err.Error()
		next.Status = prev.Status
		if next.Status == StatusUnknown {
			next.Status = StatusHealthy
		}
		if next.Failures == h.cfg.FailThreshold {
			// Transition: healthy → degraded (exactly at threshold)
			h.logger.Warn("health: degraded",
				zap.String("component", name),
				zap.Int("fail_count", next.Failures),
				zap.Error(err),
			)
		}
		if next.Failures >= h.cfg.FailThreshold {
			next.Status = StatusDegraded
		}
	}
	h.state[name] = next
}

// Report returns the current state. The service is ready when no dependency
// is degraded.
func (h *Checker) Report() Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := Report{Ready: true, Components: make(map[string]ComponentStatus, len(h.state))}
	for name, s := range h.state {
		r.Components[name] = s
		if s.Status == StatusDegraded {
			r.Ready = false
		}
	}
	return r
}

// Names returns the registered component names, sorted.
func (h *Checker) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.probes))
	for n := range h.probes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
