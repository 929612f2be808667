// Package ratelimit provides FIFO two-level rate limiting for tool calls.
//
// The upstream archive API has no authentication and rate-limits by IP, so
// every tool call shares one budget. The limiter enforces a global
// requests-per-second cap plus optional per-tool caps, and serves callers
// strictly in arrival order: a caller for a tool with spare budget still
// waits behind an earlier caller for a saturated tool. That trades some
// throughput for ordering fairness and keeps any one tool from starving.
//
// # Usage
//
//	cfg := ratelimit.LoadConfig("rate_limits.json")
//	limiter := ratelimit.New(cfg)
//	defer limiter.Close()
//
//	if err := limiter.Acquire(ctx, "webarchive_get_snapshot"); err != nil {
//	    var timeout *ratelimit.TimeoutError
//	    if errors.As(err, &timeout) {
//	        // surface as a rate-limit failure; do not retry here
//	    }
//	    return err
//	}
//	// perform the gated upstream call
//
// # Algorithm
//
// Each Acquire joins a FIFO queue. Only the head of the queue may attempt
// admission; everyone else blocks. The head checks two sliding one-second
// windows of accepted-call timestamps (global and per-tool), sleeps for the
// computed deficit when either window is full, and records a timestamp in
// both windows on admission. Waits are bounded by a short poll interval so
// timeout expiry is detected promptly even without an explicit wake.
//
// Every exit path, including timeout and context cancellation, removes the
// waiter from the queue and signals the new head, so an abandoned caller can
// never leave the queue stalled.
//
// The limiter is in-process only. Running multiple server processes against
// the same upstream needs an external coordinator.
package ratelimit
