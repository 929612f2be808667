package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned by Acquire after the limiter has been closed.
var ErrClosed = errors.New("limiter closed")

// TimeoutError is returned when a call waits longer than the configured
// bound without being admitted. Callers should surface it as a rate-limit
// failure; the limiter never retries internally.
type TimeoutError struct {
	Tool    string
	MaxWait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rate limit timeout after %s waiting for %q", e.MaxWait, e.Tool)
}

// Status is a point-in-time snapshot of the limiter, for observability.
type Status struct {
	GlobalCallsLastSecond int            `json:"global_calls_last_second"`
	GlobalLimit           int            `json:"global_limit"`
	QueueDepth            int            `json:"queue_depth"`
	ToolCalls             map[string]int `json:"tool_calls"`
}

// waiter is one queued Acquire call. The ready channel has capacity one so a
// head signal is never lost while the waiter is between checks.
type waiter struct {
	ready chan struct{}
	tool  string
}

func (w *waiter) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// sleepEpsilon is added to computed rate-limit waits so the window entry the
// waiter is blocked on has aged out when it re-checks.
const sleepEpsilon = 10 * time.Millisecond

// Limiter is a FIFO two-level rate limiter. It is safe for concurrent use.
//
// Two independent mutexes guard the two families of shared state: mu covers
// the sliding windows, queueMu covers the wait queue. They are never held at
// the same time, so there is no lock order to invert.
type Limiter struct {
	cfg     Config
	window  time.Duration
	poll    time.Duration
	nowFunc func() time.Time // for testing

	mu           sync.Mutex
	globalStamps []time.Time
	toolStamps   map[string][]time.Time

	queueMu sync.Mutex
	queue   []*waiter
	closed  bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the sliding window duration (default one second).
// The configured budgets then apply per window rather than per second.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithPollInterval overrides how often a blocked waiter re-checks its
// position and its deadline (default 100ms). This bounds both wake latency
// and timeout-detection latency.
func WithPollInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.poll = d
		}
	}
}

// New creates a Limiter from cfg.
func New(cfg Config, opts ...Option) *Limiter {
	if cfg.MaxRequestsPerSecond < 1 {
		cfg.MaxRequestsPerSecond = DefaultConfig().MaxRequestsPerSecond
	}
	if cfg.MaxWaitSeconds <= 0 {
		cfg.MaxWaitSeconds = DefaultConfig().MaxWaitSeconds
	}

	l := &Limiter{
		cfg:        cfg,
		window:     time.Second,
		poll:       100 * time.Millisecond,
		nowFunc:    time.Now,
		toolStamps: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the call is admitted under both the global and the
// tool budget, then records it in both windows and returns nil. It returns
// a *TimeoutError once the cumulative wait exceeds the configured bound,
// the context error if ctx ends first, or ErrClosed.
//
// Admission is strictly FIFO by arrival: a later caller is never admitted
// while an earlier one is still queued.
func (l *Limiter) Acquire(ctx context.Context, tool string) error {
	start := l.nowFunc()
	maxWait := l.cfg.maxWait()

	w := &waiter{ready: make(chan struct{}, 1), tool: tool}

	l.queueMu.Lock()
	if l.closed {
		l.queueMu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, w)
	if len(l.queue) == 1 {
		w.signal()
	}
	l.queueMu.Unlock()

	// The waiter leaves the queue on every exit path and the new head is
	// woken, so an abandoned entry can never stall the queue.
	defer l.leave(w)

	for {
		remaining := maxWait - l.nowFunc().Sub(start)
		if remaining <= 0 {
			return &TimeoutError{Tool: tool, MaxWait: maxWait}
		}

		// Wait for a head signal, the next poll tick, or cancellation,
		// whichever comes first.
		if err := waitWake(ctx, w.ready, min(l.poll, remaining)); err != nil {
			return err
		}

		head, closed := l.isHead(w)
		if closed {
			return ErrClosed
		}
		if !head {
			continue
		}

		wait := l.admit(tool)
		if wait <= 0 {
			return nil
		}

		remaining = maxWait - l.nowFunc().Sub(start)
		if remaining <= 0 {
			return &TimeoutError{Tool: tool, MaxWait: maxWait}
		}

		// Sleep until the blocking window entry should have aged out, but
		// never past the deadline. The ready channel stays in the select so
		// Close (and a departing neighbor) can cut the backoff short; the
		// loop re-checks closed and the counters before admitting, so an
		// early wake is safe.
		if err := waitWake(ctx, w.ready, min(wait+sleepEpsilon, remaining)); err != nil {
			return err
		}
	}
}

// Status reports current window sizes and queue depth. It prunes expired
// timestamps but never mutates the queue, so repeated calls with no
// intervening Acquire only ever shrink the counts.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	cutoff := l.nowFunc().Add(-l.window)
	l.globalStamps = pruneBefore(l.globalStamps, cutoff)
	toolCalls := make(map[string]int)
	for tool, stamps := range l.toolStamps {
		stamps = pruneBefore(stamps, cutoff)
		l.toolStamps[tool] = stamps
		if len(stamps) > 0 {
			toolCalls[tool] = len(stamps)
		}
	}
	global := len(l.globalStamps)
	l.mu.Unlock()

	l.queueMu.Lock()
	depth := len(l.queue)
	l.queueMu.Unlock()

	return Status{
		GlobalCallsLastSecond: global,
		GlobalLimit:           l.cfg.MaxRequestsPerSecond,
		QueueDepth:            depth,
		ToolCalls:             toolCalls,
	}
}

// Close wakes all waiters so they can exit. Subsequent Acquires fail with
// ErrClosed. Close is idempotent apart from its return value.
func (l *Limiter) Close() error {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.closed = true
	for _, w := range l.queue {
		w.signal()
	}
	return nil
}

// admit computes how long until tool fits under both budgets. A result of
// zero or less means the call was admitted and timestamped in both windows.
// Only the queue head calls admit, so checking and recording under one lock
// acquisition keeps the windows consistent with the FIFO order.
func (l *Limiter) admit(tool string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	wait := l.waitTimeLocked(tool, now)
	if wait <= 0 {
		l.globalStamps = append(l.globalStamps, now)
		l.toolStamps[tool] = append(l.toolStamps[tool], now)
	}
	return wait
}

// waitTimeLocked prunes both windows and returns the larger of the two
// deficits: the time until the oldest blocking entry ages out of the global
// window and out of the tool window.
func (l *Limiter) waitTimeLocked(tool string, now time.Time) time.Duration {
	cutoff := now.Add(-l.window)
	var wait time.Duration

	l.globalStamps = pruneBefore(l.globalStamps, cutoff)
	if len(l.globalStamps) >= l.cfg.MaxRequestsPerSecond {
		if d := l.globalStamps[0].Add(l.window).Sub(now); d > wait {
			wait = d
		}
	}

	stamps := pruneBefore(l.toolStamps[tool], cutoff)
	l.toolStamps[tool] = stamps
	if len(stamps) >= l.cfg.toolLimit(tool) {
		if d := stamps[0].Add(l.window).Sub(now); d > wait {
			wait = d
		}
	}

	return wait
}

// leave removes w from the queue, wherever it is, and signals the new head.
// Search-and-remove rather than pop: an aborted waiter may not be at head.
func (l *Limiter) leave(w *waiter) {
	l.queueMu.Lock()
	for i, q := range l.queue {
		if q == w {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			break
		}
	}
	var head *waiter
	if len(l.queue) > 0 {
		head = l.queue[0]
	}
	l.queueMu.Unlock()

	if head != nil {
		head.signal()
	}
}

// isHead reports whether w is the single eligible waiter, and whether the
// limiter has been closed.
func (l *Limiter) isHead(w *waiter) (head, closed bool) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if l.closed {
		return false, true
	}
	return len(l.queue) > 0 && l.queue[0] == w, false
}

// pruneBefore drops timestamps at or before cutoff. Keeping only entries
// strictly inside the window guarantees a full window always yields a
// positive wait.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// waitWake blocks until ready fires, d elapses, or ctx ends.
func waitWake(ctx context.Context, ready <-chan struct{}, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ready:
		return nil
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
