// Package session holds the per-browser-tab state of the interaction layer.
//
// A Session owns a single-goroutine event loop: user events and deferred
// callbacks run on it one at a time, so widget state only ever interleaves
// at explicit suspension points. Blocking work (backend requests, dialog
// round-trips) happens off the loop and re-enters through Dispatch, the same
// discipline the rest of the codebase follows.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/orderfood-dev/orderfood/pkg/live"
)

// Handler reacts to one user event. Handlers run on the session event loop
// and must not block; anything that waits (HTTP, dialogs) belongs in a
// goroutine that re-enters via Dispatch.
type Handler func(ev *live.Event)

// Session is the state for one connected tab.
type Session struct {
	ID     string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	dispatchCh chan func()
	out        chan live.Frame
	done       chan struct{}
	closed     atomic.Bool

	// handlers is keyed by "target|action". Bind is idempotent: rebinding
	// an existing key is ignored, so re-initialization cannot attach a
	// second handler to the same element/action pair.
	handlersMu sync.RWMutex
	handlers   map[string]Handler

	dialogMu  sync.Mutex
	dialogs   map[string]chan live.DialogResult
	dialogSeq atomic.Uint64

	// teardown hooks registered by widgets (timers, coordinators).
	teardownMu sync.Mutex
	teardown   []func()
}

func generateID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// New creates a session and starts its event loop.
func New(parent context.Context, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:         generateID(),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		dispatchCh: make(chan func(), 256),
		out:        make(chan live.Frame, 256),
		done:       make(chan struct{}),
		handlers:   make(map[string]Handler),
		dialogs:    make(map[string]chan live.DialogResult),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.dispatchCh:
			fn()
		case <-s.done:
			return
		}
	}
}

// Dispatch queues fn to run on the session event loop. Callbacks queued
// after Close are discarded.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	default:
		s.logger.Warn("dispatch queue full, discarding callback", "session", s.ID)
	}
}

// StdContext returns a context cancelled when the session closes.
func (s *Session) StdContext() context.Context {
	return s.ctx
}

// Bind registers a handler for (target, action). Binding is guarded:
// a key that is already bound keeps its original handler.
func (s *Session) Bind(target, action string, h Handler) {
	key := target + "|" + action
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	if _, exists := s.handlers[key]; exists {
		s.logger.Debug("handler already bound, ignoring rebind", "key", key)
		return
	}
	s.handlers[key] = h
}

// Unbind removes the handler for (target, action), typically when the
// element it was bound to has been removed.
func (s *Session) Unbind(target, action string) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	delete(s.handlers, target+"|"+action)
}

// HandleEvent routes an incoming event to its bound handler on the event
// loop. Unbound events are dropped with a debug log; the client may race a
// click against a row removal.
func (s *Session) HandleEvent(ev *live.Event) {
	s.handlersMu.RLock()
	h, ok := s.handlers[ev.Target+"|"+ev.Action]
	s.handlersMu.RUnlock()
	if !ok {
		s.logger.Debug("no handler for event", "target", ev.Target, "action", ev.Action)
		return
	}
	s.Dispatch(func() { h(ev) })
}

// Emit queues a frame for the client. Frames queued after Close are
// discarded; a full queue drops the frame rather than blocking the caller.
func (s *Session) Emit(f live.Frame) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- f:
	case <-s.done:
	default:
		s.logger.Warn("outbound queue full, dropping frame", "type", f.Type)
	}
}

// Frames exposes the outbound frame stream. The transport's write pump (or
// a test) is its only consumer.
func (s *Session) Frames() <-chan live.Frame {
	return s.out
}

// Patch sends a fragment replacement for the element with the given id.
func (s *Session) Patch(targetID, html string) {
	s.Emit(live.Frame{Type: live.FramePatch, TargetID: targetID, HTML: html})
}

// Navigate instructs the client to perform a full-page navigation.
func (s *Session) Navigate(url string) {
	s.Emit(live.Frame{Type: live.FrameNavigate, URL: url})
}

// Chart sends a chart spec to the client charting library. Re-sending a
// spec for the same chart id replaces (destroys) the previous instance on
// the client.
func (s *Session) Chart(chartID string, spec any) {
	raw, err := json.Marshal(spec)
	if err != nil {
		s.logger.Error("chart spec marshal failed", "chart", chartID, "err", err)
		return
	}
	s.Emit(live.Frame{Type: live.FrameChart, ChartID: chartID, Spec: raw})
}

// RequestDialog emits a confirm or prompt frame and suspends until the
// client replies, ctx is cancelled, or the session closes. This turns
// callback dialogs into straight-line code for the dispatcher.
func (s *Session) RequestDialog(ctx context.Context, f live.Frame) (live.DialogResult, error) {
	id := fmt.Sprintf("d%d", s.dialogSeq.Add(1))
	f.DialogID = id

	ch := make(chan live.DialogResult, 1)
	s.dialogMu.Lock()
	s.dialogs[id] = ch
	s.dialogMu.Unlock()

	defer func() {
		s.dialogMu.Lock()
		delete(s.dialogs, id)
		s.dialogMu.Unlock()
	}()

	s.Emit(f)

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return live.DialogResult{DialogID: id}, ctx.Err()
	case <-s.done:
		return live.DialogResult{DialogID: id}, context.Canceled
	}
}

// ResolveDialog delivers the client's reply to a pending dialog. Replies to
// unknown or already-settled dialogs are ignored, so a stale reply bound to
// a since-removed target cannot fire anything.
func (s *Session) ResolveDialog(res live.DialogResult) {
	s.dialogMu.Lock()
	ch, ok := s.dialogs[res.DialogID]
	if ok {
		delete(s.dialogs, res.DialogID)
	}
	s.dialogMu.Unlock()
	if ok {
		ch <- res
	}
}

// OnTeardown registers fn to run when the session closes. Widgets use it to
// stop pollers and release chart instances instead of leaving module-global
// state behind.
func (s *Session) OnTeardown(fn func()) {
	s.teardownMu.Lock()
	s.teardown = append(s.teardown, fn)
	s.teardownMu.Unlock()
}

// Close shuts the session down: the context is cancelled so in-flight work
// unwinds, teardown hooks run, and the loop exits. Close is idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()

	s.teardownMu.Lock()
	hooks := s.teardown
	s.teardown = nil
	s.teardownMu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	close(s.done)
}
