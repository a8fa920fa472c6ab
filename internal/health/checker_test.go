package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type flakyProbe struct {
	mu  sync.Mutex
	err error
}

func (p *flakyProbe) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *flakyProbe) probe(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestReport_UnknownBeforeFirstCheck(t *testing.T) {
	h := New(Config{}, zap.NewNop())
	h.Register("postgres", func(context.Context) error { return nil })

	r := h.Report()
	if !r.Ready {
		t.Error("unchecked dependencies should not block readiness")
	}
	if got := r.Components["postgres"].Status; got != StatusUnknown {
		t.Errorf("status = %s, want unknown", got)
	}
}

func TestCheckAll_degradesAfterThreshold(t *testing.T) {
	p := &flakyProbe{err: errors.New("connection refused")}
	h := New(Config{FailThreshold: 3}, zap.NewNop())
	h.Register("postgres", p.probe)

	for i := 0; i < 2; i++ {
		h.CheckAll(context.Background())
	}
	if r := h.Report(); !r.Ready || r.Components["postgres"].Failures != 2 {
		t.Fatalf("after 2 failures: %+v, want still ready", r)
	}

	h.CheckAll(context.Background())
	r := h.Report()
	if r.Ready {
		t.Error("expected not ready after reaching the threshold")
	}
	if c := r.Components["postgres"]; c.Status != StatusDegraded || c.LastError != "connection refused" {
		t.Errorf("component = %+v", c)
	}
}

func TestCheckAll_recovers(t *testing.T) {
	p := &flakyProbe{err: errors.New("timeout")}
	h := New(Config{FailThreshold: 1}, zap.NewNop())
	h.Register("redis", p.probe)

	h.CheckAll(context.Background())
	if h.Report().Ready {
		t.Fatal("expected degraded")
	}

	p.set(nil)
	h.CheckAll(context.Background())
	r := h.Report()
	if !r.Ready || r.Components["redis"].Status != StatusHealthy || r.Components["redis"].Failures != 0 {
		t.Errorf("after recovery: %+v", r)
	}
}

func TestCheckAll_appliesProbeTimeout(t *testing.T) {
	h := New(Config{ProbeTimeout: 20 * time.Millisecond, FailThreshold: 1}, zap.NewNop())
	h.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan struct{})
	go func() {
		h.CheckAll(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CheckAll did not honour the probe timeout")
	}
	if h.Report().Components["slow"].Status != StatusDegraded {
		t.Error("timed-out probe should count as a failure")
	}
}

func TestCheckAll_recordsMetrics(t *testing.T) {
	h := New(Config{}, zap.NewNop())
	h.Register("ok", func(context.Context) error { return nil })
	h.Register("bad", func(context.Context) error { return errors.New("x") })

	var mu sync.Mutex
	got := map[string]bool{}
	h.SetMetricsRecord(func(component string, success bool) {
		mu.Lock()
		defer mu.Unlock()
		got[component] = success
	})
	h.CheckAll(context.Background())

	if !got["ok"] || got["bad"] {
		t.Errorf("metrics = %v", got)
	}
	if names := h.Names(); len(names) != 2 || names[0] != "bad" {
		t.Errorf("Names() = %v", names)
	}
}
