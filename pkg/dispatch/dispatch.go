// Package dispatch binds a user-triggered intent to exactly one in-flight
// mutating request.
//
// Every mutating widget action funnels through Dispatcher.Dispatch, which
// enforces single-flight semantics per target, gates destructive actions
// behind a confirmation, collects and validates a free-text reason where one
// is required, and guarantees the busy lock is released on every exit path.
// Dialogs are suspension points, so an action reads as straight-line code:
// acquire lock, confirm, validate, request, release lock.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Kind classifies what an action does to its entity.
type Kind int

const (
	KindApprove Kind = iota
	KindReject
	KindDelete
	KindUpdateQty
	KindCancel
	KindMarkRead
	KindUpdate
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindApprove:
		return "approve"
	case KindReject:
		return "reject"
	case KindDelete:
		return "delete"
	case KindUpdateQty:
		return "update_qty"
	case KindCancel:
		return "cancel"
	case KindMarkRead:
		return "mark_read"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Destructive reports whether the kind requires a confirmation step before
// the request is built.
func (k Kind) Destructive() bool {
	return k == KindDelete || k == KindReject || k == KindCancel
}

// NeedsReason reports whether the kind requires a non-empty free-text
// reason. Reject and cancel carry the reason to the server.
func (k Kind) NeedsReason() bool {
	return k == KindReject || k == KindCancel
}

// Target is one interactive element representing a real-world entity.
// Its busy flag is the sole concurrency guard: at most one in-flight
// request per target at any time, confirmation dialog included.
type Target struct {
	EntityID string
	Kind     Kind

	busy atomic.Bool
}

// NewTarget creates a target for the given entity and action kind.
func NewTarget(entityID string, kind Kind) *Target {
	return &Target{EntityID: entityID, Kind: kind}
}

// Busy reports whether a request (or its confirmation dialog) is in flight.
// Renderers use it to disable the element.
func (t *Target) Busy() bool { return t.busy.Load() }

// Name returns the observability name "kind:entity".
func (t *Target) Name() string { return t.Kind.String() + ":" + t.EntityID }

// Error taxonomy. AlreadyInFlight and UserCancelled recover silently;
// ValidationFailed surfaces inline; request failures surface as one error
// toast and leave rendered state untouched.
var (
	ErrAlreadyInFlight  = errors.New("dispatch: action already in flight")
	ErrUserCancelled    = errors.New("dispatch: cancelled by user")
	ErrValidationFailed = errors.New("dispatch: empty reason")
)

// Confirmer models the user-facing confirmation gate as suspension points.
// Implementations block the calling goroutine (never the session loop)
// until the user answers or ctx is cancelled.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
	Prompt(ctx context.Context, title, placeholder string) (value string, ok bool, err error)
}

// Notifier surfaces user-visible outcomes. The toast channel implements it.
type Notifier interface {
	Notify(level, message string)
}

// Observer records dispatch outcomes, typically into Prometheus.
type Observer interface {
	ObserveDispatch(kind, outcome string, elapsed time.Duration)
}

// Middleware wraps the post-lock portion of a dispatch (confirm, validate,
// request). Tracing middleware attaches spans here.
type Middleware func(ctx context.Context, name string, next func(context.Context) error) error

// Action describes one dispatchable operation on a target.
type Action struct {
	// ConfirmMessage overrides the confirmation text for destructive kinds.
	ConfirmMessage string

	// PromptTitle and PromptPlaceholder configure the reason prompt for
	// kinds that need one.
	PromptTitle       string
	PromptPlaceholder string

	// FailureMessage is the toast shown when the request fails. When empty
	// the request error text is shown.
	FailureMessage string

	// Do performs the request and, on success, reconciles view state.
	// It receives the collected reason for kinds that require one.
	Do func(ctx context.Context, reason string) error
}

// Dispatcher coordinates optimistic actions for one session.
type Dispatcher struct {
	confirmer  Confirmer
	notifier   Notifier
	logger     *slog.Logger
	observer   Observer
	middleware []Middleware
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver installs an outcome observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithMiddleware appends wrapping middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mw...) }
}

// New creates a Dispatcher. confirmer gates destructive actions; notifier
// receives validation warnings and request-failure toasts.
func New(confirmer Confirmer, notifier Notifier, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{confirmer: confirmer, notifier: notifier, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs act against target under the single-flight guard.
//
// The busy flag is taken synchronously before any suspension point, so two
// rapid triggers cannot both pass; the loser returns ErrAlreadyInFlight
// with no side effect: no duplicate request and no duplicate dialog. The
// flag is released on every exit path, panics included.
func (d *Dispatcher) Dispatch(ctx context.Context, target *Target, act Action) (err error) {
	if !target.busy.CompareAndSwap(false, true) {
		d.observe(target.Kind, "already_in_flight", 0)
		return ErrAlreadyInFlight
	}
	start := time.Now()
	defer func() {
		target.busy.Store(false)
		d.observe(target.Kind, outcomeOf(err), time.Since(start))
	}()

	run := func(ctx context.Context) error {
		reason, rerr := d.gate(ctx, target, act)
		if rerr != nil {
			return rerr
		}
		if derr := act.Do(ctx, reason); derr != nil {
			msg := act.FailureMessage
			if msg == "" {
				msg = derr.Error()
			}
			d.notify("error", msg)
			d.logger.Warn("action failed",
				"action", target.Name(), "err", derr)
			return fmt.Errorf("%s: %w", target.Name(), derr)
		}
		return nil
	}
	for i := len(d.middleware) - 1; i >= 0; i-- {
		mw, next := d.middleware[i], run
		run = func(ctx context.Context) error {
			return mw(ctx, target.Name(), next)
		}
	}
	return run(ctx)
}

// gate walks the confirmation and reason steps. It returns ErrUserCancelled
// when the user declines or dismisses, and ErrValidationFailed for an empty
// or whitespace-only reason, in both cases before any request is built.
func (d *Dispatcher) gate(ctx context.Context, target *Target, act Action) (string, error) {
	if target.Kind.Destructive() && !target.Kind.NeedsReason() {
		ok, err := d.confirmer.Confirm(ctx, confirmMessage(act))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUserCancelled, err)
		}
		if !ok {
			return "", ErrUserCancelled
		}
	}
	if !target.Kind.NeedsReason() {
		return "", nil
	}

	value, ok, err := d.confirmer.Prompt(ctx, promptTitle(act), act.PromptPlaceholder)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserCancelled, err)
	}
	if !ok {
		return "", ErrUserCancelled
	}
	reason := strings.TrimSpace(value)
	if reason == "" {
		d.notify("warning", "Vui lòng nhập lý do.")
		return "", ErrValidationFailed
	}
	return reason, nil
}

func (d *Dispatcher) notify(level, message string) {
	if d.notifier != nil {
		d.notifier.Notify(level, message)
	}
}

func (d *Dispatcher) observe(kind Kind, outcome string, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.ObserveDispatch(kind.String(), outcome, elapsed)
	}
}

func confirmMessage(act Action) string {
	if act.ConfirmMessage != "" {
		return act.ConfirmMessage
	}
	return "Bạn có chắc?"
}

func promptTitle(act Action) string {
	if act.PromptTitle != "" {
		return act.PromptTitle
	}
	return "Lí do"
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyInFlight):
		return "already_in_flight"
	case errors.Is(err, ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, ErrValidationFailed):
		return "validation"
	default:
		return "request_failed"
	}
}
