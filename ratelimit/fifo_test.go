package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AcquireImmediate(t *testing.T) {
	l := New(Config{MaxRequestsPerSecond: 10, MaxWaitSeconds: 1})
	defer l.Close()

	start := time.Now()
	if err := l.Acquire(context.Background(), "tool-a"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("unsaturated acquire took %v, expected near-immediate", elapsed)
	}

	st := l.Status()
	if st.GlobalCallsLastSecond != 1 {
		t.Errorf("expected 1 global call, got %d", st.GlobalCallsLastSecond)
	}
	if st.ToolCalls["tool-a"] != 1 {
		t.Errorf("expected 1 tool call, got %v", st.ToolCalls)
	}
	if st.QueueDepth != 0 {
		t.Errorf("expected empty queue, got depth %d", st.QueueDepth)
	}
}

// Three simultaneous calls against a global budget of 2 with a 1s wait bound:
// two admit quickly, the third cannot get a slot inside the bound and fails.
func TestLimiter_GlobalCap(t *testing.T) {
	l := New(Config{MaxRequestsPerSecond: 2, MaxWaitSeconds: 1})
	defer l.Close()

	type outcome struct {
		err     error
		elapsed time.Duration
	}

	start := time.Now()
	results := make(chan outcome, 3)
	for i := 0; i < 3; i++ {
		go func() {
			err := l.Acquire(context.Background(), "x")
			results <- outcome{err: err, elapsed: time.Since(start)}
		}()
	}

	var admitted, timedOut int
	for i := 0; i < 3; i++ {
		r := <-results
		if r.err == nil {
			admitted++
			if r.elapsed > 500*time.Millisecond {
				t.Errorf("admitted call took %v, expected well under the window", r.elapsed)
			}
			continue
		}
		var te *TimeoutError
		if !errors.As(r.err, &te) {
			t.Fatalf("expected TimeoutError, got %v", r.err)
		}
		if te.Tool != "x" {
			t.Errorf("timeout carries tool %q, expected x", te.Tool)
		}
		if te.MaxWait != time.Second {
			t.Errorf("timeout carries bound %v, expected 1s", te.MaxWait)
		}
		if r.elapsed < 900*time.Millisecond || r.elapsed > 1600*time.Millisecond {
			t.Errorf("timeout after %v, expected about 1s", r.elapsed)
		}
		timedOut++
	}

	if admitted != 2 || timedOut != 1 {
		t.Errorf("expected 2 admitted and 1 timed out, got %d/%d", admitted, timedOut)
	}

	if st := l.Status(); st.GlobalCallsLastSecond > 2 {
		t.Errorf("global window holds %d calls, limit is 2", st.GlobalCallsLastSecond)
	}
}

// A tool capped at 1/s under a roomy global budget: the second call waits
// about one window and then admits rather than timing out.
func TestLimiter_PerToolCap(t *testing.T) {
	cfg := Config{
		MaxRequestsPerSecond: 10,
		MaxWaitSeconds:       120,
		Tools:                map[string]ToolLimit{"a": {MaxRequestsPerSecond: 1}},
	}
	l := New(cfg)
	defer l.Close()

	if err := l.Acquire(context.Background(), "a"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	start := time.Now()
	if err := l.Acquire(context.Background(), "a"); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 800*time.Millisecond || elapsed > 1600*time.Millisecond {
		t.Errorf("second acquire took %v, expected about 1s", elapsed)
	}
}

// Admissions complete in arrival order even when the queued tools have spare
// budget of their own: the global budget of 1 serializes everyone, and each
// later arrival stays behind the earlier ones.
func TestLimiter_FIFOOrder(t *testing.T) {
	l := New(
		Config{MaxRequestsPerSecond: 1, MaxWaitSeconds: 30},
		WithWindow(300*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
	)
	defer l.Close()

	// Saturate the global window so every queued waiter must wait.
	if err := l.Acquire(context.Background(), "warmup"); err != nil {
		t.Fatalf("warmup acquire failed: %v", err)
	}

	tools := []string{"a", "b", "c"}
	order := make(chan string, len(tools))
	var wg sync.WaitGroup

	for i, tool := range tools {
		wg.Add(1)
		go func(tool string) {
			defer wg.Done()
			if err := l.Acquire(context.Background(), tool); err != nil {
				t.Errorf("acquire %s failed: %v", tool, err)
				return
			}
			order <- tool
		}(tool)

		// Confirm the waiter is queued before launching the next one, so
		// arrival order is deterministic.
		deadline := time.Now().Add(2 * time.Second)
		for {
			if l.Status().QueueDepth >= i+1 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("waiter %d never appeared in queue", i)
			}
			time.Sleep(time.Millisecond)
		}
	}

	wg.Wait()
	close(order)

	var got []string
	for tool := range order {
		got = append(got, tool)
	}
	for i, tool := range tools {
		if got[i] != tool {
			t.Fatalf("admission order %v, expected %v", got, tools)
		}
	}
}

// A call that cannot be satisfied inside max_wait fails no earlier than the
// bound and no later than the bound plus one poll interval (and scheduling
// slack).
func TestLimiter_TimeoutBound(t *testing.T) {
	l := New(
		Config{MaxRequestsPerSecond: 1, MaxWaitSeconds: 0.5},
		WithWindow(5*time.Second),
		WithPollInterval(50*time.Millisecond),
	)
	defer l.Close()

	if err := l.Acquire(context.Background(), "x"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	start := time.Now()
	err := l.Acquire(context.Background(), "x")
	elapsed := time.Since(start)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if elapsed < 450*time.Millisecond {
		t.Errorf("timed out after %v, before the 500ms bound", elapsed)
	}
	if elapsed > 900*time.Millisecond {
		t.Errorf("timed out after %v, expected within one poll of the bound", elapsed)
	}
}

// Cancelling a queued waiter removes it from the queue and unblocks the
// waiter behind it.
func TestLimiter_CancelRemovesWaiter(t *testing.T) {
	l := New(
		Config{MaxRequestsPerSecond: 1, MaxWaitSeconds: 30},
		WithWindow(500*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
	)
	defer l.Close()

	if err := l.Acquire(context.Background(), "x"); err != nil {
		t.Fatalf("warmup acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	aDone := make(chan error, 1)
	go func() {
		aDone <- l.Acquire(ctx, "a")
	}()

	waitForDepth(t, l, 1)

	bDone := make(chan error, 1)
	go func() {
		bDone <- l.Acquire(context.Background(), "b")
	}()

	waitForDepth(t, l, 2)

	cancel()
	if err := <-aDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	waitForDepth(t, l, 1)

	select {
	case err := <-bDone:
		if err != nil {
			t.Fatalf("waiter behind cancelled one failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("waiter behind cancelled one never admitted")
	}
}

func waitForDepth(t *testing.T, l *Limiter, depth int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.Status().QueueDepth != depth {
		if time.Now().After(deadline) {
			t.Fatalf("queue depth never reached %d (now %d)", depth, l.Status().QueueDepth)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLimiter_StatusIdempotent(t *testing.T) {
	l := New(Config{MaxRequestsPerSecond: 5, MaxWaitSeconds: 10})
	defer l.Close()

	now := time.Now()
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background(), "a"); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	first := l.Status()
	second := l.Status()
	if first.GlobalCallsLastSecond != 3 || second.GlobalCallsLastSecond != 3 {
		t.Errorf("expected stable count 3, got %d then %d",
			first.GlobalCallsLastSecond, second.GlobalCallsLastSecond)
	}
	if first.QueueDepth != 0 || second.QueueDepth != 0 {
		t.Errorf("status mutated the queue: %d then %d", first.QueueDepth, second.QueueDepth)
	}

	// Window only shrinks as time passes.
	now = now.Add(2 * time.Second)
	aged := l.Status()
	if aged.GlobalCallsLastSecond != 0 {
		t.Errorf("expected window to age out, got %d", aged.GlobalCallsLastSecond)
	}
	if len(aged.ToolCalls) != 0 {
		t.Errorf("expected no tool entries after aging, got %v", aged.ToolCalls)
	}
	if aged.GlobalLimit != 5 {
		t.Errorf("expected configured limit 5, got %d", aged.GlobalLimit)
	}
}

func TestLimiter_Close(t *testing.T) {
	l := New(
		Config{MaxRequestsPerSecond: 1, MaxWaitSeconds: 30},
		WithWindow(5*time.Second),
		WithPollInterval(10*time.Millisecond),
	)

	if err := l.Acquire(context.Background(), "x"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- l.Acquire(context.Background(), "x")
	}()

	waitForDepth(t, l, 1)

	if err := l.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed for blocked waiter, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked waiter not released by Close")
	}

	if err := l.Acquire(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if err := l.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on double close, got %v", err)
	}
}

// The per-window caps hold under concurrent load across a mix of tools.
func TestLimiter_CapUnderConcurrency(t *testing.T) {
	l := New(
		Config{
			MaxRequestsPerSecond: 4,
			MaxWaitSeconds:       10,
			Tools:                map[string]ToolLimit{"a": {MaxRequestsPerSecond: 2}},
		},
		WithWindow(200*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
	)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		tool := "a"
		if i%2 == 0 {
			tool = "b"
		}
		wg.Add(1)
		go func(tool string) {
			defer wg.Done()
			if err := l.Acquire(context.Background(), tool); err != nil {
				t.Errorf("acquire %s failed: %v", tool, err)
			}
		}(tool)
	}

	capDone := make(chan struct{})
	go func() {
		defer close(capDone)
		wg.Wait()
	}()

	// Sample the windows while the waiters drain.
	for {
		select {
		case <-capDone:
			return
		case <-time.After(20 * time.Millisecond):
			st := l.Status()
			if st.GlobalCallsLastSecond > 4 {
				t.Errorf("global window holds %d, limit is 4", st.GlobalCallsLastSecond)
			}
			if st.ToolCalls["a"] > 2 {
				t.Errorf("tool a window holds %d, limit is 2", st.ToolCalls["a"])
			}
		}
	}
}
