// Package notices is the notification bell widget: the unread badge, the
// dropdown feed, mark-read on click and mark-all-read.
//
// The feed and the unread count are refreshed through the coordinator, so
// opening the dropdown, the poll timer and a tab refocus can never produce
// two outstanding feed fetches. Marking one item read is the single place
// local mutation is allowed: the decrement is guarded by the item's prior
// read flag, so it is idempotent and can never drift the badge below the
// truth the next feed fetch restores.
package notices

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/fragment"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/refresh"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/state"
	"github.com/orderfood-dev/orderfood/pkg/toast"
)

// ResourceKey is the refresh coordinator key for the notification feed.
const ResourceKey = "notifications"

// Widget is the notification bell for one session.
type Widget struct {
	sess  *session.Session
	api   *api.Client
	disp  *dispatch.Dispatcher
	coord *refresh.Coordinator

	items  *state.Signal[[]api.Notification]
	unread *state.Signal[int]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, coord *refresh.Coordinator) *Widget {
	return &Widget{
		sess:    sess,
		api:     client,
		disp:    disp,
		coord:   coord,
		items:   state.NewSignal[[]api.Notification](nil),
		unread:  state.NewSignal(0),
		targets: make(map[string]*dispatch.Target),
	}
}

// Mount registers the feed with the coordinator, starts polling, and binds
// the bell handlers.
func (w *Widget) Mount(pollInterval time.Duration) {
	w.coord.Register(ResourceKey, pollInterval, w.fetchFeed)
	w.coord.Schedule(ResourceKey)

	w.sess.Bind("noti-bell", "open", func(*live.Event) {
		w.coord.RefreshNow(ResourceKey)
	})
	w.sess.Bind("noti", "click", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.MarkRead(id)
		}
	})
	w.sess.Bind("noti", "mark-all", func(*live.Event) {
		go w.MarkAllRead()
	})
}

// fetchFeed loads the feed; the returned apply closure reconciles items and
// the authoritative unread count. The coordinator drops it if superseded.
func (w *Widget) fetchFeed(ctx context.Context) (func(), error) {
	feed, err := w.api.NotificationFeed(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		w.items.Set(feed.Items)
		w.unread.Set(feed.Unread)
		w.render()
	}, nil
}

// MarkRead marks one notification read, applies the guarded local
// decrement, and navigates to the notification's target URL.
func (w *Widget) MarkRead(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id), dispatch.Action{
		FailureMessage: "Không thể đánh dấu đã đọc",
		Do: func(ctx context.Context, _ string) error {
			if err := w.api.MarkRead(ctx, id); err != nil {
				return err
			}
			w.sess.Dispatch(func() { w.applyMarkRead(id) })
			return nil
		},
	})
}

// applyMarkRead flips the item's read flag and decrements the badge by one,
// but only when the item was actually unread: marking the same id twice
// must not double-decrement. Runs on the session loop.
func (w *Widget) applyMarkRead(id string) {
	var targetURL string
	wasUnread := false
	w.items.Update(func(items []api.Notification) []api.Notification {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			targetURL = items[i].TargetURL
			if !items[i].IsRead {
				wasUnread = true
				items[i].IsRead = true
			}
			break
		}
		return items
	})
	if wasUnread {
		w.unread.Update(func(n int) int {
			if n > 0 {
				return n - 1
			}
			return 0
		})
	}
	w.render()
	if targetURL != "" {
		w.sess.Navigate(targetURL)
	}
}

// MarkAllRead marks every notification read and zeroes the badge.
func (w *Widget) MarkAllRead() error {
	t := w.target("all")
	return w.disp.Dispatch(w.sess.StdContext(), t, dispatch.Action{
		FailureMessage: "Không thể đánh dấu tất cả đã đọc",
		Do: func(ctx context.Context, _ string) error {
			if err := w.api.MarkAllRead(ctx); err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.items.Update(func(items []api.Notification) []api.Notification {
					for i := range items {
						items[i].IsRead = true
					}
					return items
				})
				w.unread.Set(0)
				w.render()
				toast.Success(w.sess, "Đã đánh dấu tất cả đã đọc")
			})
			return nil
		},
	})
}

// Unread returns the current badge value.
func (w *Widget) Unread() int { return w.unread.Get() }

// Items returns the current feed items.
func (w *Widget) Items() []api.Notification { return w.items.Get() }

func (w *Widget) target(id string) *dispatch.Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.targets[id]; ok {
		return t
	}
	t := dispatch.NewTarget(id, dispatch.KindMarkRead)
	w.targets[id] = t
	return t
}

func (w *Widget) render() {
	w.sess.Patch("notiBadge", w.renderBadge(w.unread.Peek()).HTML())
	w.sess.Patch("notiList", w.renderList(w.items.Peek()).HTML())
}

func (w *Widget) renderBadge(unread int) *fragment.Node {
	cls := "noti-badge"
	text := ""
	if unread > 0 {
		text = strconv.Itoa(unread)
	} else {
		cls = "noti-badge d-none"
	}
	return fragment.Span(fragment.ID("notiBadge"), fragment.Class(cls), text)
}

func (w *Widget) renderList(items []api.Notification) *fragment.Node {
	if len(items) == 0 {
		return fragment.Div(fragment.ID("notiList"),
			fragment.Div(fragment.Class("px-3 py-3 text-muted"), "Không có thông báo"),
		)
	}
	return fragment.Div(fragment.ID("notiList"),
		fragment.Map(items, func(n api.Notification) *fragment.Node {
			cls := "noti-item unread"
			if n.IsRead {
				cls = "noti-item read"
			}
			return fragment.Anchor(
				fragment.Class(cls),
				fragment.Href("#"),
				fragment.Data("id", n.ID),
				fragment.Data("url", n.TargetURL),
				fragment.Div(fragment.Class("fw-semibold"), n.Message),
				fragment.Div(fragment.Class("noti-time"), "#"+n.OrderID+" • "+n.CreateAt),
			)
		}),
	)
}
