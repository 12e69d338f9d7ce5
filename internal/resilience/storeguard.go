package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Compile-time check: a guarded store is still a store.
var _ store.Store = (*StoreGuard)(nil)

// StoreGuard wraps a [store.Store] with a [Breaker]. While the breaker is
// open every operation returns [store.ErrUnavailable] immediately, which the
// dialogue layer already turns into a spoken apology.
type StoreGuard struct {
	inner   store.Store
	breaker *Breaker
}

// GuardStore wraps st with a breaker using cfg.
func GuardStore(st store.Store, cfg Config) *StoreGuard {
	if cfg.Name == "" {
		cfg.Name = "store"
	}
	return &StoreGuard{
		inner:   st,
		breaker: NewBreaker(cfg),
	}
}

// State exposes the breaker state, for health checks.
func (g *StoreGuard) State() State { return g.breaker.State() }

// Ping probes the underlying store when it supports it, through the breaker.
func (g *StoreGuard) Ping(ctx context.Context) error {
	pinger, ok := g.inner.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return g.execute(func() error { return pinger.Ping(ctx) })
}

// Query forwards through the breaker.
func (g *StoreGuard) Query(ctx context.Context, filters store.Filters) ([]store.Record, error) {
	var recs []store.Record
	err := g.execute(func() error {
		var err error
		recs, err = g.inner.Query(ctx, filters)
		return err
	})
	return recs, err
}

// Insert forwards through the breaker.
func (g *StoreGuard) Insert(ctx context.Context, rec store.Record) (string, error) {
	var id string
	err := g.execute(func() error {
		var err error
		id, err = g.inner.Insert(ctx, rec)
		return err
	})
	return id, err
}

// Delete forwards through the breaker.
func (g *StoreGuard) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := g.execute(func() error {
		var err error
		deleted, err = g.inner.Delete(ctx, id)
		return err
	})
	return deleted, err
}

// Random forwards through the breaker.
func (g *StoreGuard) Random(ctx context.Context, filters store.Filters) (*store.Record, error) {
	var rec *store.Record
	err := g.execute(func() error {
		var err error
		rec, err = g.inner.Random(ctx, filters)
		return err
	})
	return rec, err
}

// execute maps a tripped breaker onto the store error taxonomy.
func (g *StoreGuard) execute(fn func() error) error {
	err := g.breaker.Execute(fn)
	if errors.Is(err, ErrOpen) {
		return fmt.Errorf("resilience: short-circuited: %w", store.ErrUnavailable)
	}
	return err
}
