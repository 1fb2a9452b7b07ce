// Package adminrest is the admin restaurant moderation table: approve and
// reject actions on pending restaurants, with the status badge rendered
// from the canonical status string the backend returns.
package adminrest

import (
	"context"
	"sync"

	"github.com/orderfood-dev/orderfood/internal/ui"
	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/fragment"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/state"
	"github.com/orderfood-dev/orderfood/pkg/toast"
)

// Restaurant is one moderation row.
type Restaurant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Status  string `json:"status"`
}

// Bootstrap is the initial state the admin page embeds.
type Bootstrap struct {
	Restaurants []Restaurant `json:"restaurants"`
}

// Widget is the moderation table for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	rows *state.Signal[[]Restaurant]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget with its bootstrap rows.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, boot Bootstrap) *Widget {
	return &Widget{
		sess:    sess,
		api:     client,
		disp:    disp,
		rows:    state.NewSignal(boot.Restaurants),
		targets: make(map[string]*dispatch.Target),
	}
}

// Mount binds the moderation handlers.
func (w *Widget) Mount() {
	w.sess.Bind("restaurant", "approve", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Approve(id)
		}
	})
	w.sess.Bind("restaurant", "reject", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Reject(id)
		}
	})
}

// Approve approves a pending restaurant. The badge shown afterwards is the
// status the server declared, not an assumed APPROVED.
func (w *Widget) Approve(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindApprove), dispatch.Action{
		FailureMessage: "Không thể duyệt nhà hàng. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			res, err := w.api.ApproveRestaurant(ctx, id)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applyStatus(id, res.Status, "APPROVED")
				toast.Success(w.sess, "Đã duyệt nhà hàng")
			})
			return nil
		},
	})
}

// Reject rejects a pending restaurant. The prompt collects the mandatory
// reason; a blank reason aborts before any request.
func (w *Widget) Reject(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindReject), dispatch.Action{
		PromptTitle:       "Lý do từ chối",
		PromptPlaceholder: "Nhập lý do...",
		FailureMessage:    "Không thể reject. Vui lòng thử lại.",
		Do: func(ctx context.Context, reason string) error {
			res, err := w.api.RejectRestaurant(ctx, id, reason)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applyStatus(id, res.Status, "REJECTED")
				toast.Success(w.sess, "Đã từ chối nhà hàng")
			})
			return nil
		},
	})
}

// applyStatus reconciles one row's status and re-renders its badge cell.
// Runs on the session loop.
func (w *Widget) applyStatus(id, status, fallback string) {
	if status == "" {
		status = fallback
	}
	w.rows.Update(func(rows []Restaurant) []Restaurant {
		for i := range rows {
			if rows[i].ID == id {
				rows[i].Status = status
			}
		}
		return rows
	})
	w.sess.Patch("rs-status-"+id, w.renderStatusCell(id, status).HTML())
}

// Rows returns the current moderation rows.
func (w *Widget) Rows() []Restaurant { return w.rows.Get() }

// Status returns the rendered status for one row, or "" when absent.
func (w *Widget) Status(id string) string {
	for _, r := range w.rows.Get() {
		if r.ID == id {
			return r.Status
		}
	}
	return ""
}

func (w *Widget) target(id string, kind dispatch.Kind) *dispatch.Target {
	key := id + "|" + kind.String()
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.targets[key]
	if !ok {
		t = dispatch.NewTarget(id, kind)
		w.targets[key] = t
	}
	return t
}

// RenderTable renders the whole moderation table body.
func (w *Widget) RenderTable() *fragment.Node {
	return fragment.Tbody(fragment.ID("rs-rows"),
		fragment.Map(w.rows.Peek(), func(r Restaurant) *fragment.Node {
			return fragment.Tr(
				fragment.Class("rs-row"),
				fragment.Data("id", r.ID),
				fragment.Td(r.Name),
				fragment.Td(r.Address),
				w.renderStatusCell(r.ID, r.Status),
				fragment.Td(
					fragment.Button(
						fragment.Class("rs-action rs-action--approve"),
						fragment.Data("id", r.ID),
						"Duyệt",
					),
					fragment.Button(
						fragment.Class("rs-action rs-action--reject"),
						fragment.Data("id", r.ID),
						"Từ chối",
					),
				),
			)
		}),
	)
}

func (w *Widget) renderStatusCell(id, status string) *fragment.Node {
	return fragment.Td(
		fragment.ID("rs-status-"+id),
		fragment.Class("rs-col--status"),
		ui.StatusBadge(status),
	)
}
