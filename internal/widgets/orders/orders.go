// Package orders is the owner order management widget: the pending,
// accepted and cancelled tabs, with approve and cancel actions that move
// rows between tabs from the state the backend declares.
//
// An order only moves to the accepted tab when the response says ACCEPTED.
// A 2xx reply carrying any other status is treated as a failed approval,
// because showing an order as accepted that the kitchen never accepted is
// worse than showing a stale pending row.
package orders

import (
	"context"
	"fmt"
	"strings"
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

// Order is one row in any of the tabs.
type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	TotalPrice   float64         `json:"total_price"`
	Items        []api.OrderItem `json:"items"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
}

// Bootstrap is the initial state the orders page embeds.
type Bootstrap struct {
	Pending   []Order `json:"pending"`
	Accepted  []Order `json:"accepted"`
	Cancelled []Order `json:"cancelled"`
}

// Widget is the order management widget for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	pending   *state.Signal[[]Order]
	accepted  *state.Signal[[]Order]
	cancelled *state.Signal[[]Order]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget with its bootstrap tabs.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, boot Bootstrap) *Widget {
	return &Widget{
		sess:      sess,
		api:       client,
		disp:      disp,
		pending:   state.NewSignal(boot.Pending),
		accepted:  state.NewSignal(boot.Accepted),
		cancelled: state.NewSignal(boot.Cancelled),
		targets:   make(map[string]*dispatch.Target),
	}
}

// Mount binds the order handlers.
func (w *Widget) Mount() {
	w.sess.Bind("order", "approve", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Approve(id)
		}
	})
	w.sess.Bind("order", "cancel", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Cancel(id)
		}
	})
}

// Approve accepts a pending order. The row moves to the accepted tab only
// on a declared ACCEPTED status.
func (w *Widget) Approve(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindApprove), dispatch.Action{
		FailureMessage: "Không thể duyệt đơn. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			res, err := w.api.ApproveOrder(ctx, id)
			if err != nil {
				return err
			}
			if res.Status != "ACCEPTED" {
				return fmt.Errorf("order %s not accepted, backend returned %q", id, res.Status)
			}
			w.sess.Dispatch(func() {
				w.moveOrder(id, res, w.accepted, "")
				toast.Success(w.sess, "Đã duyệt đơn!")
			})
			return nil
		},
	})
}

// Cancel cancels a pending order with the reason collected by the prompt.
func (w *Widget) Cancel(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindCancel), dispatch.Action{
		PromptTitle:       "Lý do hủy đơn",
		PromptPlaceholder: "Nhập lý do...",
		FailureMessage:    "Không thể hủy đơn. Vui lòng thử lại.",
		Do: func(ctx context.Context, reason string) error {
			res, err := w.api.CancelOrder(ctx, id, reason)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.moveOrder(id, res, w.cancelled, reason)
				toast.Success(w.sess, "Đã hủy đơn!")
			})
			return nil
		},
	})
}

// moveOrder pops the row from the pending tab and appends it to dst with the
// fields the response declared, then re-renders both tabs and the tab
// counters. Runs on the session loop.
func (w *Widget) moveOrder(id string, res *api.OrderResult, dst *state.Signal[[]Order], reason string) {
	var moved Order
	found := false
	w.pending.Update(func(rows []Order) []Order {
		out := rows[:0]
		for _, o := range rows {
			if o.ID == id {
				moved = o
				found = true
				continue
			}
			out = append(out, o)
		}
		return out
	})
	if !found {
		moved = Order{ID: id}
	}
	moved.Status = res.Status
	if res.CustomerName != "" {
		moved.CustomerName = res.CustomerName
	}
	if res.TotalPrice != 0 {
		moved.TotalPrice = res.TotalPrice
	}
	if len(res.Items) > 0 {
		moved.Items = res.Items
	}
	if reason != "" {
		moved.Reason = reason
	} else if res.Reason != "" {
		moved.Reason = res.Reason
	}
	dst.Update(func(rows []Order) []Order {
		return append([]Order{moved}, rows...)
	})
	w.render()
}

// Pending returns the pending tab rows.
func (w *Widget) Pending() []Order { return w.pending.Get() }

// Accepted returns the accepted tab rows.
func (w *Widget) Accepted() []Order { return w.accepted.Get() }

// Cancelled returns the cancelled tab rows.
func (w *Widget) Cancelled() []Order { return w.cancelled.Get() }

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

func (w *Widget) render() {
	w.sess.Patch("pending-orders", w.renderTab("pending-orders", w.pending.Peek(), true).HTML())
	w.sess.Patch("accepted-orders", w.renderTab("accepted-orders", w.accepted.Peek(), false).HTML())
	w.sess.Patch("cancelled-orders", w.renderTab("cancelled-orders", w.cancelled.Peek(), false).HTML())
	w.sess.Patch("pending-count", w.renderCount("pending-count", len(w.pending.Peek())).HTML())
}

func (w *Widget) renderCount(elementID string, n int) *fragment.Node {
	cls := "badge bg-warning"
	if n == 0 {
		cls = "badge bg-warning d-none"
	}
	return fragment.Span(fragment.ID(elementID), fragment.Class(cls), fmt.Sprintf("%d", n))
}

func (w *Widget) renderTab(elementID string, rows []Order, actions bool) *fragment.Node {
	if len(rows) == 0 {
		return fragment.Div(fragment.ID(elementID),
			fragment.Div(fragment.Class("text-muted text-center py-4"), "Không có đơn hàng nào"),
		)
	}
	return fragment.Div(fragment.ID(elementID),
		fragment.Map(rows, func(o Order) *fragment.Node {
			return w.renderCard(o, actions)
		}),
	)
}

func (w *Widget) renderCard(o Order, actions bool) *fragment.Node {
	items := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
	}
	card := fragment.Div(
		fragment.Class("order-card"),
		fragment.Data("id", o.ID),
		fragment.Div(fragment.Class("order-card__head"),
			fragment.Strong("#"+o.ID+" • "+o.CustomerName),
			ui.StatusBadge(o.Status),
		),
		fragment.Div(fragment.Class("order-card__items"), strings.Join(items, ", ")),
		fragment.Div(fragment.Class("order-card__total"), ui.FormatVND(o.TotalPrice)),
	)
	if o.Reason != "" {
		card.Children = append(card.Children,
			fragment.Div(fragment.Class("order-card__reason text-muted"), "Lý do: "+o.Reason))
	}
	if actions {
		card.Children = append(card.Children,
			fragment.Div(fragment.Class("order-card__actions"),
				fragment.Button(
					fragment.Class("btn btn-success btn-sm"),
					fragment.Data("id", o.ID),
					"Duyệt",
				),
				fragment.Button(
					fragment.Class("btn btn-outline-danger btn-sm"),
					fragment.Data("id", o.ID),
					"Hủy",
				),
			))
	}
	return card
}
