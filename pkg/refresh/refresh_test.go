package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// loopDispatch runs queued closures on a single goroutine, the way the
// session event loop does.
type loopDispatch struct {
	ch   chan func()
	done chan struct{}
}

func newLoopDispatch() *loopDispatch {
	l := &loopDispatch{ch: make(chan func(), 64), done: make(chan struct{})}
	go func() {
		for {
			select {
			case fn := <-l.ch:
				fn()
			case <-l.done:
				return
			}
		}
	}()
	return l
}

func (l *loopDispatch) dispatch(fn func()) { l.ch <- fn }
func (l *loopDispatch) stop()              { close(l.done) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRefreshNowApplies(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()
	c := New(context.Background(), loop.dispatch, nil)
	defer c.Stop()

	var applied atomic.Int32
	c.Register("feed", 0, func(ctx context.Context) (func(), error) {
		return func() { applied.Add(1) }, nil
	})

	c.RefreshNow("feed")
	waitFor(t, "apply", func() bool { return applied.Load() == 1 })
}

func TestRefreshLastIssuedWins(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()
	c := New(context.Background(), loop.dispatch, nil)
	defer c.Stop()

	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var mu sync.Mutex
	var appliedValues []int

	c.Register("chart", 0, func(ctx context.Context) (func(), error) {
		n := int(calls.Add(1))
		if n == 1 {
			close(firstStarted)
			// Simulate a slow fetch that outlives its successor.
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
		}
		return func() {
			mu.Lock()
			appliedValues = append(appliedValues, n)
			mu.Unlock()
		}, nil
	})

	c.RefreshNow("chart")
	<-firstStarted
	c.RefreshNow("chart")

	waitFor(t, "second apply", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(appliedValues) == 1 && appliedValues[0] == 2
	})

	// Now the first fetch finishes late; its result must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(appliedValues) != 1 {
		t.Fatalf("stale fetch applied: %v", appliedValues)
	}
}

func TestRefreshSupersededContextCancelled(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()

	var outcomes syncOutcomes
	c := New(context.Background(), loop.dispatch, nil, WithObserver(&outcomes))
	defer c.Stop()

	started := make(chan struct{})
	c.Register("feed", 0, func(ctx context.Context) (func(), error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c.RefreshNow("feed")
	<-started
	c.RefreshNow("feed")

	waitFor(t, "superseded outcome", func() bool {
		return outcomes.count("feed", "superseded") >= 1
	})
}

func TestRefreshErrorDoesNotApply(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()

	var outcomes syncOutcomes
	c := New(context.Background(), loop.dispatch, nil, WithObserver(&outcomes))
	defer c.Stop()

	c.Register("feed", 0, func(ctx context.Context) (func(), error) {
		return nil, errors.New("backend down")
	})
	c.RefreshNow("feed")

	waitFor(t, "error outcome", func() bool {
		return outcomes.count("feed", "error") == 1
	})
}

func TestVisibleRefreshesPollingKeysOnly(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()
	c := New(context.Background(), loop.dispatch, nil)
	defer c.Stop()

	var polled, manual atomic.Int32
	c.Register("polled", time.Hour, func(ctx context.Context) (func(), error) {
		polled.Add(1)
		return nil, nil
	})
	c.Register("manual", 0, func(ctx context.Context) (func(), error) {
		manual.Add(1)
		return nil, nil
	})

	c.Visible()
	waitFor(t, "polled refresh", func() bool { return polled.Load() == 1 })
	if manual.Load() != 0 {
		t.Fatal("Visible refreshed a non-polling key")
	}
}

func TestStopCancelsOutstandingFetch(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()
	c := New(context.Background(), loop.dispatch, nil)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	c.Register("feed", 0, func(ctx context.Context) (func(), error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	c.RefreshNow("feed")
	<-started

	c.Stop()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the in-flight fetch")
	}

	// After Stop the coordinator is inert.
	c.RefreshNow("feed")
	c.Schedule("feed")
}

func TestScheduleRefreshesImmediately(t *testing.T) {
	loop := newLoopDispatch()
	defer loop.stop()
	c := New(context.Background(), loop.dispatch, nil)
	defer c.Stop()

	var calls atomic.Int32
	c.Register("feed", time.Hour, func(ctx context.Context) (func(), error) {
		calls.Add(1)
		return nil, nil
	})
	c.Schedule("feed")
	waitFor(t, "initial refresh", func() bool { return calls.Load() == 1 })
}

type syncOutcomes struct {
	mu   sync.Mutex
	seen map[string]int
}

func (s *syncOutcomes) ObserveRefresh(key, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	s.seen[key+"/"+outcome]++
}

func (s *syncOutcomes) count(key, outcome string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key+"/"+outcome]
}
