// Package cart is the customer cart widget: the mini-cart badge in the
// navbar and the cart page line items with quantity updates and removal.
//
// All aggregates shown (item count, subtotal, total) come from the
// authoritative cart response of the last settled mutation; nothing is
// incremented locally. When a response carries a redirect URL the widget
// navigates there; the server decides what an empty cart means.
package cart

import (
	"context"
	"fmt"
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

// Line is one cart row. Price comes from the server-rendered bootstrap or a
// dish response; it is display data, not a source for charged totals.
type Line struct {
	ID           string  `json:"id"`
	DishID       string  `json:"dish_id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Note         string  `json:"note"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
}

// Totals is the rendered cart summary.
type Totals struct {
	TotalItems int     `json:"total_items"`
	Subtotal   float64 `json:"subtotal"`
	Total      float64 `json:"total"`
}

// Bootstrap is the initial state the cart page embeds.
type Bootstrap struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// Widget is the cart widget for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	lines  *state.Signal[[]Line]
	totals *state.Signal[Totals]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget with its bootstrap state.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, boot Bootstrap) *Widget {
	return &Widget{
		sess:    sess,
		api:     client,
		disp:    disp,
		lines:   state.NewSignal(boot.Lines),
		totals:  state.NewSignal(boot.Totals),
		targets: make(map[string]*dispatch.Target),
	}
}

// Mount binds the cart event handlers. Binding is idempotent, so calling
// Mount again after a reconnect cannot double-register.
func (w *Widget) Mount() {
	w.sess.Bind("cart", "add", func(ev *live.Event) {
		qty, ok := ev.Int("quantity")
		if !ok || qty < 1 {
			qty = 1
		}
		item := api.CartItemInput{
			DishID:       ev.String("dish_id"),
			RestaurantID: ev.String("restaurant_id"),
			Quantity:     qty,
			Note:         ev.String("note"),
		}
		go w.Add(item)
	})
	w.sess.Bind("cart", "qty", func(ev *live.Event) {
		id := ev.String("id")
		qty, ok := ev.Int("quantity")
		if id == "" || !ok || qty < 1 {
			return
		}
		go w.UpdateQuantity(id, qty)
	})
	w.sess.Bind("cart", "remove", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Remove(id)
		}
	})
}

// Add sends a dish to the cart and reconciles the mini-cart badge.
func (w *Widget) Add(item api.CartItemInput) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(item.DishID, dispatch.KindUpdateQty), dispatch.Action{
		FailureMessage: "Có lỗi xảy ra",
		Do: func(ctx context.Context, _ string) error {
			sum, err := w.api.AddCartItem(ctx, item)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applySummary(sum, nil)
				toast.Success(w.sess, "Đã thêm vào giỏ hàng")
			})
			return nil
		},
	})
}

// UpdateQuantity sets a line's quantity from the authoritative response.
func (w *Widget) UpdateQuantity(id string, qty int) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindUpdateQty), dispatch.Action{
		FailureMessage: "Không thể cập nhật số lượng",
		Do: func(ctx context.Context, _ string) error {
			sum, err := w.api.UpdateCartItem(ctx, id, qty)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applySummary(sum, func(lines []Line) []Line {
					for i := range lines {
						if lines[i].ID == id {
							lines[i].Quantity = qty
						}
					}
					return lines
				})
			})
			return nil
		},
	})
}

// Remove deletes a cart line after confirmation. On success the row is
// removed and totals are reconciled; when the server declares a redirect
// (the cart emptied) the widget navigates instead of guessing.
func (w *Widget) Remove(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindDelete), dispatch.Action{
		ConfirmMessage: "Xóa món này khỏi giỏ hàng?",
		FailureMessage: "Không thể xóa món. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			sum, err := w.api.RemoveCartItem(ctx, id)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applySummary(sum, func(lines []Line) []Line {
					out := lines[:0]
					for _, l := range lines {
						if l.ID != id {
							out = append(out, l)
						}
					}
					return out
				})
			})
			return nil
		},
	})
}

// applySummary is the reconciliation step: mutate the line collection,
// take aggregates from the response, re-render, and honor a server
// redirect. Runs on the session loop.
func (w *Widget) applySummary(sum *api.CartSummary, mutate func([]Line) []Line) {
	if mutate != nil {
		w.lines.Update(mutate)
	}
	lines := w.lines.Peek()

	t := Totals{TotalItems: sum.TotalItems}
	switch {
	case sum.Subtotal != nil:
		t.Subtotal = *sum.Subtotal
	default:
		// Endpoint variant without money fields: recompute from the
		// remaining server-declared lines.
		for _, l := range lines {
			t.Subtotal += l.Price * float64(l.Quantity)
		}
	}
	if sum.Total != nil {
		t.Total = *sum.Total
	} else {
		t.Total = t.Subtotal
	}
	w.totals.Set(t)

	if sum.RedirectURL != "" {
		w.sess.Navigate(sum.RedirectURL)
		return
	}

	w.sess.Patch("cart-items", w.renderLines(lines).HTML())
	w.sess.Patch("cart-total", w.renderTotals(t).HTML())
	w.sess.Patch("cart-count", w.renderBadge(t.TotalItems).HTML())
}

// Lines returns the current line collection (reads are for rendering and
// tests; mutation happens only in applySummary).
func (w *Widget) Lines() []Line { return w.lines.Get() }

// Totals returns the current rendered totals.
func (w *Widget) Totals() Totals { return w.totals.Get() }

func (w *Widget) target(id string, kind dispatch.Kind) *dispatch.Target {
	key := fmt.Sprintf("%s|%s", id, kind)
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.targets[key]
	if !ok {
		t = dispatch.NewTarget(id, kind)
		w.targets[key] = t
	}
	return t
}

func (w *Widget) renderLines(lines []Line) *fragment.Node {
	if len(lines) == 0 {
		return fragment.Tbody(fragment.ID("cart-items"),
			fragment.Tr(fragment.Td(
				fragment.Class("text-muted"),
				fragment.A("colspan", "5"),
				"Giỏ hàng trống",
			)),
		)
	}
	return fragment.Tbody(fragment.ID("cart-items"),
		fragment.Map(lines, func(l Line) *fragment.Node {
			return fragment.Tr(
				fragment.Class("cart-row"),
				fragment.Data("id", l.ID),
				fragment.Td(l.Name),
				fragment.Td(fragment.Class("text-truncate"), l.Note),
				fragment.Td(ui.FormatVND(l.Price)),
				fragment.Td(fmt.Sprintf("%d", l.Quantity)),
				fragment.Td(
					fragment.Button(
						fragment.Class("btn btn-danger btn-sm"),
						fragment.Data("id", l.ID),
						"Xóa",
					),
				),
			)
		}),
	)
}

func (w *Widget) renderTotals(t Totals) *fragment.Node {
	return fragment.Div(fragment.ID("cart-total"),
		fragment.Div("Tạm tính: "+ui.FormatVND(t.Subtotal)),
		fragment.Strong("Tổng cộng: "+ui.FormatVND(t.Total)),
	)
}

func (w *Widget) renderBadge(count int) *fragment.Node {
	cls := "badge"
	if count == 0 {
		cls = "badge d-none"
	}
	return fragment.Span(
		fragment.ID("cart-count"),
		fragment.Class(cls),
		fmt.Sprintf("%d", count),
	)
}
