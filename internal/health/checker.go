package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependency states.
const (
	StatusUnknown  = "unknown"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Probe is a named dependency check. A degraded critical probe makes the
// service not ready.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(dependency string, up bool)

// DependencyStatus is the last known state of one probe.
type DependencyStatus struct {
	Status      string    `json:"status"`
	Critical    bool      `json:"critical"`
	FailCount   int       `json:"fail_count"`
	LastError   string    `json:"last_error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Report is the readiness view served by Handler.
type Report struct {
	Ready        bool                        `json:"ready"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Checker runs periodic dependency probes.
type Checker struct {
	probes    []Probe
	mu        sync.Mutex
	state     map[string]DependencyStatus
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a new Checker.
func New(probes []Probe, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	state := make(map[string]DependencyStatus, len(probes))
	for _, p := range probes {
		state[p.Name] = DependencyStatus{Status: StatusUnknown, Critical: p.Critical}
	}
	return &Checker{
		probes: probes,
		state:  state,
		cfg:    cfg,
		logger: logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start probes once, then on every interval until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	h.CheckAll(ctx)

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

// CheckAll runs every probe concurrently and updates their state.
func (h *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range h.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p.Check(probeCtx)
			cancel()
			h.record(p, err)
		}(p)
	}
	wg.Wait()
}

func (h *Checker) record(p Probe, err error) {
	if h.onMetrics != nil {
		h.onMetrics(p.Name, err == nil)
	}

	h.mu.Lock()
	st := h.state[p.Name]
	prev := st.Status
	st.LastChecked = time.Now().UTC()
	if err == nil {
		st.FailCount = 0
		st.LastError = ""
		st.Status = StatusHealthy
	} else {
		st.FailCount++
		st.LastError = err.Error()
		if st.FailCount >= h.cfg.FailThreshold {
			st.Status = StatusDegraded
		}
	}
	h.state[p.Name] = st
	h.mu.Unlock()

	switch {
	case prev == StatusDegraded && st.Status == StatusHealthy:
		h.logger.Info("health: recovered", zap.String("dependency", p.Name))
	case prev != StatusDegraded && st.Status == StatusDegraded:
		h.logger.Warn("health: degraded",
			zap.String("dependency", p.Name),
			zap.Int("fail_count", st.FailCount),
			zap.Error(err),
		)
	}
}

// Snapshot returns the current report. Probes that have not reached the
// failure threshold do not block readiness.
func (h *Checker) Snapshot() Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := Report{Ready: true, Dependencies: make(map[string]DependencyStatus, len(h.state))}
	for name, st := range h.state {
		r.Dependencies[name] = st
		if st.Critical && st.Status == StatusDegraded {
			r.Ready = false
		}
	}
	return r
}

// Handler serves the report: 200 when ready, 503 otherwise.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := h.Snapshot()
		status := http.StatusOK
		if !r.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, r)
	}
}

// HTTPCheck returns a probe that tries HEAD then GET against endpoint.
// Any response below 500 counts as reachable, since provider APIs answer
// unauthenticated requests with 4xx.
func HTTPCheck(hc *http.Client, endpoint string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var lastStatus int
		for _, method := range []string{http.MethodHead, http.MethodGet} {
			req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
			if err != nil {
				return err
			}
			resp, err := hc.Do(req)
			if err != nil {
				if method == http.MethodGet {
					return err
				}
				continue
			}
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
			lastStatus = resp.StatusCode
		}
		return fmt.Errorf("%s responded %d", endpoint, lastStatus)
	}
}
