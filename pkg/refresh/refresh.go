// Package refresh keeps read-only aggregate state (badge counts, feeds,
// chart data) eventually consistent with the backend.
//
// Every trigger (initial load, tab refocus, opening a feed, the poll timer)
// funnels through RefreshNow, which guarantees at most one outstanding fetch
// per resource key. Issuing a new fetch supersedes the previous one: its
// context is cancelled and its result, should it still arrive, is discarded
// before it can touch view state. Ordering is last-issued-wins, never
// last-to-arrive-wins.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Fetch loads a resource and returns an apply closure that reconciles the
// result into view state. The coordinator only runs apply when the fetch is
// still the newest one for its key, so Fetch implementations never need
// their own staleness checks.
type Fetch func(ctx context.Context) (apply func(), err error)

// Observer records refresh outcomes, typically into Prometheus.
type Observer interface {
	ObserveRefresh(key, outcome string)
}

type entry struct {
	fetch    Fetch
	interval time.Duration
	gen      uint64
	cancel   context.CancelFunc
	ticker   *time.Ticker
	tickDone chan struct{}
}

// Coordinator is the per-session refresh scheduler. Apply closures run on
// the session event loop via the dispatch function, the only place view
// state may be mutated.
type Coordinator struct {
	ctx      context.Context
	dispatch func(fn func())
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver installs an outcome observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// New creates a Coordinator. ctx bounds all fetches (usually the session
// context); dispatch queues apply closures onto the session event loop.
func New(ctx context.Context, dispatch func(fn func()), logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		ctx:      ctx,
		dispatch: dispatch,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a resource under key. A zero interval disables polling; the
// resource then only refreshes on explicit triggers. Registering an existing
// key replaces its fetch but keeps its generation, so an in-flight fetch
// from before the re-registration still cannot apply.
func (c *Coordinator) Register(key string, interval time.Duration, fetch Fetch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		e.interval = interval
		return
	}
	c.entries[key] = &entry{fetch: fetch, interval: interval}
}

// Schedule starts periodic polling for key at its registered interval and
// performs an immediate first refresh.
func (c *Coordinator) Schedule(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.stopped || e.interval <= 0 || e.ticker != nil {
		c.mu.Unlock()
		return
	}
	e.ticker = time.NewTicker(e.interval)
	e.tickDone = make(chan struct{})
	ticker, done := e.ticker, e.tickDone
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				c.RefreshNow(key)
			case <-done:
				return
			case <-c.ctx.Done():
				return
			}
		}
	}()

	c.RefreshNow(key)
}

// RefreshNow fetches key immediately, superseding any outstanding fetch for
// the same key. Superseded and cancelled fetches settle silently; they are
// not failures.
func (c *Coordinator) RefreshNow(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.stopped {
		c.mu.Unlock()
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	fetch := e.fetch
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		apply, err := fetch(ctx)

		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.observe(key, "superseded")
				return
			}
			c.observe(key, "error")
			c.logger.Warn("refresh failed", "key", key, "err", err)
			return
		}
		if apply == nil {
			c.observe(key, "applied")
			return
		}

		c.dispatch(func() {
			// Re-check on the loop: a newer fetch may have been issued
			// while this one was queued.
			c.mu.Lock()
			stale := c.stopped || c.entries[key] == nil || c.entries[key].gen != gen
			c.mu.Unlock()
			if stale {
				c.observe(key, "superseded")
				return
			}
			apply()
			c.observe(key, "applied")
		})
	}()
}

// Visible should be called when the tab regains visibility; it refreshes
// every registered resource that polls.
func (c *Coordinator) Visible() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if e.interval > 0 {
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()
	for _, key := range keys {
		c.RefreshNow(key)
	}
}

// Stop cancels all outstanding fetches and pollers. The coordinator cannot
// be reused afterwards; sessions create a fresh one on the next page.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	for _, e := range c.entries {
		if e.cancel != nil {
			e.cancel()
		}
		if e.ticker != nil {
			e.ticker.Stop()
			close(e.tickDone)
		}
	}
}

func (c *Coordinator) observe(key, outcome string) {
	if c.observer != nil {
		c.observer.ObserveRefresh(key, outcome)
	}
}
