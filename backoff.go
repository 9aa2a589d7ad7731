package redwing

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes delays for callers that re-dial after a fatal error.
// The client never reconnects on its own; the application owns that
// loop, and Backoff keeps it from hammering a dead server.
//
// Delays grow exponentially with jitter:
//
//	base = InitialInterval * (Multiplier ^ (attempt-1))
//	delay = min(base, MaxInterval) ± Jitter
//
// Example:
//
//	b := redwing.DefaultBackoff()
//	for {
//	    client, err := redwing.NewClient(cfg)
//	    if err != nil {
//	        return err
//	    }
//	    if err := client.Connect(ctx); err == nil {
//	        b.Reset()
//	        if err := run(ctx, client); err == nil {
//	            return nil
//	        }
//	    }
//	    client.Close()
//	    select {
//	    case <-time.After(b.Next()):
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type Backoff struct {
	// InitialInterval is the delay before the first reconnect attempt.
	InitialInterval time.Duration

	// MaxInterval caps the computed delay.
	MaxInterval time.Duration

	// Multiplier is the exponential growth factor between attempts.
	Multiplier float64

	// Jitter is the randomization factor (0.0 to 1.0).
	// 0.3 means ±30% randomization of the calculated interval.
	Jitter float64

	attempt int
}

// DefaultBackoff returns a backoff with sensible defaults:
//   - InitialInterval: 100ms
//   - MaxInterval: 5s
//   - Multiplier: 2.0 (doubles each attempt)
//   - Jitter: 0.3 (±30% randomization)
//
// This produces delays like: 100ms, 200ms, 400ms, 800ms, 1.6s, 3.2s,
// 5s, 5s... (with ±30% jitter applied to each).
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.3,
	}
}

// Next advances the attempt counter and returns the next delay.
// Not safe for concurrent use; a Backoff belongs to one reconnect loop.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	return b.Interval(b.attempt)
}

// Reset rewinds the attempt counter. Call it after a successful connect
// so the next failure starts from InitialInterval again.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Interval returns the delay for a given attempt without mutating the
// counter. The first attempt is 1.
func (b *Backoff) Interval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := float64(b.InitialInterval) * math.Pow(b.Multiplier, float64(attempt-1))

	if interval > float64(b.MaxInterval) {
		interval = float64(b.MaxInterval)
	}

	if b.Jitter > 0 {
		jitterRange := interval * b.Jitter
		interval += jitterRange * (2*rand.Float64() - 1)
	}

	if interval < 0 {
		interval = 0
	}

	return time.Duration(interval)
}
