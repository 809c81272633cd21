// Package ratelimit provides the per-agent rolling-window request limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Budget holds the request limits for the three rolling windows. A zero or
// negative limit disables that window.
type Budget struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

type window struct {
	name  string
	width time.Duration
	start time.Time
	count int
	limit int
}

// Limiter enforces a per-minute, per-hour and per-day request budget over
// rolling windows. It is counter-based: Acquire consumes one unit from each
// window and windows reset themselves by elapsed time, so Release is a
// no-op kept only for symmetry with slot-based limiters.
//
// Limiter state is private to one agent and must never be shared across
// agents or platforms.
type Limiter struct {
	mu      sync.Mutex
	windows []*window
	now     func() time.Time
}

// New creates a limiter for the given budget.
func New(budget Budget) *Limiter {
	now := time.Now
	start := now()
	return &Limiter{
		windows: []*window{
			{name: "minute", width: time.Minute, start: start, limit: budget.PerMinute},
			{name: "hour", width: time.Hour, start: start, limit: budget.PerHour},
			{name: "day", width: 24 * time.Hour, start: start, limit: budget.PerDay},
		},
		now: now,
	}
}

// Acquire blocks until every window has capacity, then consumes one unit in
// each. It never fails with a capacity error; the only error it returns is
// ctx.Err() when the caller's context is cancelled while waiting. Waiting is
// timer-driven until the nearest window boundary that would free capacity,
// never a busy poll.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire rolls stale windows forward, then either consumes one unit in
// every window or reports how long until the nearest boundary frees capacity.
func (l *Limiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, w := range l.windows {
		if now.Sub(w.start) >= w.width {
			w.start = now
			w.count = 0
		}
	}

	wait := time.Duration(0)
	blocked := false
	for _, w := range l.windows {
		if w.limit <= 0 {
			continue
		}
		if w.count >= w.limit {
			until := w.start.Add(w.width).Sub(now)
			if !blocked || until < wait {
				wait = until
			}
			blocked = true
		}
	}

	if blocked {
		return wait, false
	}

	for _, w := range l.windows {
		w.count++
	}
	return 0, true
}

// Release is a no-op. This limiter counts consumed requests per rolling
// window rather than holding concurrency slots, so there is nothing to
// give back; windows self-reset by elapsed time.
func (l *Limiter) Release() {}

// WindowState describes one rolling window for status reporting.
type WindowState struct {
	Granularity string    `json:"granularity"`
	Consumed    int       `json:"consumed"`
	Limit       int       `json:"limit"`
	ResetsAt    time.Time `json:"resets_at"`
}

// Snapshot returns the current state of all three windows. Stale windows
// are rolled forward first so the snapshot never reports phantom usage.
func (l *Limiter) Snapshot() []WindowState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	states := make([]WindowState, 0, len(l.windows))
	for _, w := range l.windows {
		if now.Sub(w.start) >= w.width {
			w.start = now
			w.count = 0
		}
		states = append(states, WindowState{
			Granularity: w.name,
			Consumed:    w.count,
			Limit:       w.limit,
			ResetsAt:    w.start.Add(w.width),
		})
	}
	return states
}
