// Package resilience guards the record store against a flapping database.
//
// The central type is [Breaker], a three-state circuit breaker
// (closed → open → half-open). [StoreGuard] wraps a [store.Store] with one:
// once the database has failed repeatedly, queries short-circuit to
// [store.ErrUnavailable] immediately, so the assistant apologises within a
// breath instead of making the family wait out a connection timeout per
// command.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] when the breaker is open and the
// cooldown has not yet elapsed.
var ErrOpen = errors.New("resilience: breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrOpen] until the cooldown elapses.
	StateOpen

	// StateHalfOpen lets a single probe call through; success closes the
	// breaker, failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the tuning knobs for a [Breaker].
type Config struct {
	// Name is a label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures before the breaker
	// opens. Default: 3.
	MaxFailures int

	// Cooldown is how long the breaker stays open before allowing a probe.
	// Default: 15s.
	Cooldown time.Duration
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewBreaker creates a [Breaker]. Zero-value config fields get defaults.
func NewBreaker(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		state:       StateClosed,
	}
}

// Execute runs fn if the breaker allows it. When open it returns [ErrOpen]
// without calling fn. In half-open exactly one in-flight probe is permitted;
// concurrent calls during the probe are rejected.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		slog.Info("resilience: breaker half-open", "name", b.name)
		fallthrough
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	inProbe := b.state == StateHalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if inProbe {
		b.probing = false
	}
	if err != nil {
		b.fail(inProbe)
	} else {
		b.succeed(inProbe)
	}
	return err
}

// fail handles failure accounting. Caller must hold b.mu.
func (b *Breaker) fail(inProbe bool) {
	b.lastFailure = time.Now()
	if inProbe {
		b.state = StateOpen
		b.failures = b.maxFailures
		slog.Warn("resilience: probe failed, breaker re-opened", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.maxFailures && b.state == StateClosed {
		b.state = StateOpen
		slog.Warn("resilience: breaker opened",
			"name", b.name,
			"consecutive_failures", b.failures,
		)
	}
}

// succeed handles success accounting. Caller must hold b.mu.
func (b *Breaker) succeed(inProbe bool) {
	if inProbe {
		slog.Info("resilience: probe succeeded, breaker closed", "name", b.name)
	}
	b.state = StateClosed
	b.failures = 0
}

// State returns the breaker's current state. An open breaker whose cooldown
// has elapsed reports half-open; the transition happens on the next Execute.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}
