package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func useFastPolling(t *testing.T) {
	old := minPollInterval
	minPollInterval = time.Millisecond
	t.Cleanup(func() { minPollInterval = old })
}

func TestPollerTicksUntilStopped(t *testing.T) {
	useFastPolling(t)

	var ticks atomic.Int32
	p := StartPoller(5*time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ticks.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
	}

	p.Stop()
	p.Stop()
	time.Sleep(20 * time.Millisecond)
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != after {
		t.Errorf("ticks continued after Stop: %d -> %d", after, ticks.Load())
	}
}

func TestPollerMinimumInterval(t *testing.T) {
	p := StartPoller(time.Millisecond, func() {})
	defer p.Stop()
	if p.Interval() != 300*time.Millisecond {
		t.Errorf("Interval() = %s; want 300ms", p.Interval())
	}
}

func countQueries(lines []string) int {
	n := 0
	for _, l := range lines {
		if l == "EZG STA" {
			n++
		}
	}
	return n
}

func TestSessionPolling(t *testing.T) {
	useFastPolling(t)

	cfg := testConfig()
	cfg.PolledData = true
	cfg.PollIntervalMs = 5
	h := newHarness(t, cfg)
	ft := h.transport(t)
	ft.connect()

	deadline := time.Now().Add(2 * time.Second)
	for countQueries(ft.Sent()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := countQueries(ft.Sent()); n < 3 {
		t.Fatalf("expected seed plus periodic queries, got %d", n)
	}
	if !h.State().Polling {
		t.Error("State().Polling = false while polling")
	}

	// Disable polling, keep the same host
	cfg.PolledData = false
	if err := h.UpdateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	ft = h.transport(t)
	ft.connect()
	h.sync(t)
	ft.resetSent()

	time.Sleep(50 * time.Millisecond)
	h.sync(t)
	if n := countQueries(ft.Sent()); n != 0 {
		t.Errorf("status queries sent after polling disabled: %d", n)
	}
	if h.State().Polling {
		t.Error("State().Polling = true after disable")
	}
}

func TestReconfigureDoesNotDuplicateTimers(t *testing.T) {
	useFastPolling(t)

	cfg := testConfig()
	cfg.PolledData = true
	cfg.PollIntervalMs = 20
	h := newHarness(t, cfg)

	for i := 0; i < 3; i++ {
		if err := h.UpdateConfig(context.Background(), cfg); err != nil {
			t.Fatalf("UpdateConfig failed: %v", err)
		}
	}
	ft := h.transport(t)
	ft.connect()
	h.sync(t)
	ft.resetSent()

	time.Sleep(210 * time.Millisecond)
	h.sync(t)
	// One timer at 20ms gives about 10 ticks; four live timers would give about 40.
	if n := countQueries(ft.Sent()); n > 16 {
		t.Errorf("got %d queries in 210ms; duplicate timers suspected", n)
	}
}

func TestPollingWhileDisconnectedDropsQueries(t *testing.T) {
	useFastPolling(t)

	cfg := testConfig()
	cfg.PolledData = true
	cfg.PollIntervalMs = 5
	h := newHarness(t, cfg)
	ft := h.transport(t)

	time.Sleep(40 * time.Millisecond)
	h.sync(t)
	if len(ft.Sent()) != 0 {
		t.Errorf("queries sent while disconnected: %q", ft.Sent())
	}
}
