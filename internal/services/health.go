package services

import (
	"context"
	"sync"
	"time"
)

const (
	healthBaseInterval = 15 * time.Second
	healthMaxInterval  = 2 * time.Minute
)

// ConnectionStatus is a point-in-time view of store reachability.
type ConnectionStatus struct {
	Connected bool      `json:"connected"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
	Failures  int       `json:"consecutive_failures,omitempty"`
}

// HealthMonitor probes store connectivity on a timer. While the store is
// healthy it probes at the base interval; on failure the interval doubles up
// to a cap and snaps back to base on the first success.
type HealthMonitor struct {
	probe func(ctx context.Context) error
	base  time.Duration
	max   time.Duration

	// after is swapped out by tests to drive the loop synthetically.
	after func(time.Duration) <-chan time.Time
	now   func() time.Time

	mu     sync.Mutex
	status ConnectionStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHealthMonitor(probe func(ctx context.Context) error) *HealthMonitor {
	return &HealthMonitor{
		probe: probe,
		base:  healthBaseInterval,
		max:   healthMaxInterval,
		after: time.After,
		now:   time.Now,
	}
}

// Start launches the probe loop. The first probe fires immediately.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	h.mu.Unlock()

	go h.loop(ctx)
}

// Stop halts the loop and waits for it to exit.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Status returns the latest probe outcome.
func (h *HealthMonitor) Status() ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// CheckNow runs one probe synchronously and records its outcome. Used by the
// reconnect endpoint so the user gets an immediate answer.
func (h *HealthMonitor) CheckNow(ctx context.Context) ConnectionStatus {
	return h.record(h.probe(ctx))
}

func (h *HealthMonitor) loop(ctx context.Context) {
	defer close(h.done)

	delay := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.after(delay):
		}

		status := h.record(h.probe(ctx))
		if status.Connected {
			delay = h.base
			continue
		}
		if delay < h.base {
			delay = h.base
		} else {
			delay *= 2
		}
		if delay > h.max {
			delay = h.max
		}
	}
}

func (h *HealthMonitor) record(err error) ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.CheckedAt = h.now().UTC()
	if err != nil {
		h.status.Connected = false
		h.status.Error = err.Error()
		h.status.Failures++
	} else {
		h.status = ConnectionStatus{Connected: true, CheckedAt: h.status.CheckedAt}
	}
	return h.status
}
