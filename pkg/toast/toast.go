// Package toast is the single user-facing notification channel. Transient
// notifications and the confirm/prompt dialogs all flow through it, so one
// action class never mixes blocking dialogs with fire-and-forget toasts from
// different widgets.
package toast

import (
	"context"

	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
)

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Show displays a toast notification to the client.
func Show(s *session.Session, level Type, message string) {
	s.Emit(live.Frame{Type: live.FrameToast, Level: string(level), Message: message})
}

// Success shows a success toast.
func Success(s *session.Session, message string) { Show(s, TypeSuccess, message) }

// Error shows an error toast.
func Error(s *session.Session, message string) { Show(s, TypeError, message) }

// Warning shows a warning toast.
func Warning(s *session.Session, message string) { Show(s, TypeWarning, message) }

// Info shows an info toast.
func Info(s *session.Session, message string) { Show(s, TypeInfo, message) }

// WithTitle shows a toast with a title and message.
func WithTitle(s *session.Session, level Type, title, message string) {
	s.Emit(live.Frame{Type: live.FrameToast, Level: string(level), Title: title, Message: message})
}

// Dialogs exposes the confirm/prompt round-trip as blocking calls. It
// satisfies the dispatcher's Confirmer interface: the calling goroutine
// suspends until the client answers or ctx is cancelled.
type Dialogs struct {
	Session *session.Session
}

// Confirm shows a yes/no dialog and reports the user's choice.
func (d *Dialogs) Confirm(ctx context.Context, message string) (bool, error) {
	res, err := d.Session.RequestDialog(ctx, live.Frame{
		Type:    live.FrameConfirm,
		Level:   string(TypeWarning),
		Message: message,
	})
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

// Prompt shows a free-text dialog. ok is false when the user dismissed it.
func (d *Dialogs) Prompt(ctx context.Context, title, placeholder string) (string, bool, error) {
	res, err := d.Session.RequestDialog(ctx, live.Frame{
		Type:        live.FramePrompt,
		Level:       string(TypeWarning),
		Title:       title,
		Placeholder: placeholder,
	})
	if err != nil {
		return "", false, err
	}
	return res.Value, res.OK, nil
}
