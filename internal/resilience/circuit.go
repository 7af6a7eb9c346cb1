// Package resilience provides retry and circuit breaker helpers for calls to
// the catalog backends and the reminder webhook.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned without calling the backend while the breaker
// is open or a half-open trial is already running.
var ErrBreakerOpen = eris.New("resilience: backend breaker open")

// Breaker stops calling a backend after threshold consecutive failures.
// After cooldown it lets exactly one trial call through: success closes the
// breaker, failure opens it for another cooldown.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named backend. A
// non-positive threshold defaults to 5 and a non-positive cooldown to 30s.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Call runs fn through b. Failures caused by the caller's own ctx ending
// are not held against the backend.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	trial, err := b.acquire()
	if err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err, trial, ctx.Err() != nil)
	return val, err
}

// State returns the current state. An open breaker whose cooldown has
// passed reports half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) acquire() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return false, nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false, ErrBreakerOpen
		}
		b.set(BreakerHalfOpen)
	}
	if b.trial {
		return false, ErrBreakerOpen
	}
	b.trial = true
	return true, nil
}

func (b *Breaker) record(err error, trial, callerDone bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if trial {
		b.trial = false
	}

	switch {
	case err == nil:
		b.failures = 0
		if b.state != BreakerClosed {
			b.set(BreakerClosed)
		}
	case callerDone:
		// Neither success nor failure; a half-open breaker waits for the next trial.
	default:
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			b.openedAt = b.now()
			if b.state != BreakerOpen {
				b.set(BreakerOpen)
			}
		}
	}
}

func (b *Breaker) set(to BreakerState) {
	zap.L().Warn("resilience: breaker state change",
		zap.String("backend", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("consecutive_failures", b.failures),
	)
	b.state = to
}
