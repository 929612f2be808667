// Package shutdown coordinates phase-ordered graceful shutdown. Handlers in
// lower phases run first; handlers in the same phase run concurrently. The
// server drains its HTTP sidecar before closing the rate limiter so queued
// callers get a clean error instead of a dropped connection.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrTimeout indicates shutdown did not complete within the deadline.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates at least one handler returned an error.
	ErrHandlerFailed = errors.New("one or more shutdown handlers failed")
)

// Handler is implemented by components that need graceful shutdown. The
// context is cancelled when the shutdown deadline passes.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// Progress reports one handler's completion, for logging.
type Progress struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Coordinator runs registered handlers in phase order on shutdown.
type Coordinator struct {
	timeout    time.Duration
	onProgress func(Progress)

	mu       sync.Mutex
	handlers []registration

	once sync.Once
	done chan struct{}
	err  error

	signals chan os.Signal
}

type registration struct {
	name    string
	handler Handler
	phase   int
}

// New creates a Coordinator. onProgress may be nil.
func New(timeout time.Duration, onProgress func(Progress)) *Coordinator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Coordinator{
		timeout:    timeout,
		onProgress: onProgress,
		done:       make(chan struct{}),
		signals:    make(chan os.Signal, 1),
	}
}

// Register adds a handler in the given phase. Lower phases shut down first.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: h, phase: phase})
}

// RegisterFunc adds a function handler in the given phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// HandleSignals triggers shutdown on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-c.signals
		c.Shutdown()
	}()
}

// Trigger initiates shutdown as if a signal had arrived.
func (c *Coordinator) Trigger() {
	select {
	case c.signals <- syscall.SIGTERM:
	default:
	}
}

// Shutdown runs all handlers once, phase by phase, within the configured
// timeout. Later calls return the first run's error.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.err = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.err
}

// Done is closed when shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown error; only valid after Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	handlers := append([]registration(nil), c.handlers...)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	var failed bool
	for start := 0; start < len(handlers); {
		end := start
		for end < len(handlers) && handlers[end].phase == handlers[start].phase {
			end++
		}

		select {
		case <-ctx.Done():
			return ErrTimeout
		default:
		}

		if c.runPhase(ctx, handlers[start:end]) {
			failed = true
		}
		start = end
	}

	if failed {
		return ErrHandlerFailed
	}
	return nil
}

// runPhase executes one phase's handlers concurrently; reports whether any
// failed.
func (c *Coordinator) runPhase(ctx context.Context, regs []registration) bool {
	var wg sync.WaitGroup
	errs := make([]error, len(regs))

	for i, reg := range regs {
		wg.Add(1)
		go func(i int, reg registration) {
			defer wg.Done()
			start := time.Now()
			err := reg.handler.OnShutdown(ctx)
			errs[i] = err
			if c.onProgress != nil {
				c.onProgress(Progress{
					Name:     reg.name,
					Phase:    reg.phase,
					Duration: time.Since(start),
					Err:      err,
				})
			}
		}(i, reg)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return true
		}
	}
	return false
}
