// Package menu is the owner menu management widget: adding, editing and
// deleting dishes. Dish images are uploaded out of band through the upload
// endpoint; the widget only carries the resulting URL in the dish input.
package menu

import (
	"context"
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

// Bootstrap is the initial state the menu page embeds.
type Bootstrap struct {
	Dishes []api.Dish `json:"dishes"`
}

// Widget is the menu management widget for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	dishes *state.Signal[[]api.Dish]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget with its bootstrap dishes.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, boot Bootstrap) *Widget {
	return &Widget{
		sess:    sess,
		api:     client,
		disp:    disp,
		dishes:  state.NewSignal(boot.Dishes),
		targets: make(map[string]*dispatch.Target),
	}
}

// Mount binds the menu handlers.
func (w *Widget) Mount() {
	w.sess.Bind("dish", "add", func(ev *live.Event) {
		in, ok := dishInputFrom(ev)
		if !ok {
			return
		}
		go w.Add(in)
	})
	w.sess.Bind("dish", "save", func(ev *live.Event) {
		id := ev.String("id")
		in, ok := dishInputFrom(ev)
		if id == "" || !ok {
			return
		}
		go w.Save(id, in)
	})
	w.sess.Bind("dish", "delete", func(ev *live.Event) {
		if id := ev.String("id"); id != "" {
			go w.Delete(id)
		}
	})
}

func dishInputFrom(ev *live.Event) (api.DishInput, bool) {
	price, _ := ev.Int("price")
	in := api.DishInput{
		Name:        strings.TrimSpace(ev.String("name")),
		Note:        ev.String("note"),
		Price:       float64(price),
		Category:    ev.String("category"),
		ImageURL:    ev.String("image_url"),
		IsAvailable: ev.Bool("is_available"),
	}
	return in, in.Name != ""
}

// Add creates a dish and appends the row the backend declared, including
// the stored image URL and the assigned id.
func (w *Widget) Add(in api.DishInput) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target("new", dispatch.KindUpdate), dispatch.Action{
		FailureMessage: "Không thể thêm món. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			res, err := w.api.AddDish(ctx, in)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.dishes.Update(func(ds []api.Dish) []api.Dish {
					return append(ds, res.Dish)
				})
				w.render()
				toast.Success(w.sess, "Đã thêm món mới!")
			})
			return nil
		},
	})
}

// Save updates a dish in place from the response.
func (w *Widget) Save(id string, in api.DishInput) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindUpdate), dispatch.Action{
		FailureMessage: "Không thể cập nhật món. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			res, err := w.api.UpdateDish(ctx, id, in)
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.dishes.Update(func(ds []api.Dish) []api.Dish {
					for i := range ds {
						if ds[i].DishID == id {
							ds[i] = res.Dish
							if ds[i].DishID == "" {
								ds[i].DishID = id
							}
						}
					}
					return ds
				})
				w.render()
				toast.Success(w.sess, "Đã cập nhật món!")
			})
			return nil
		},
	})
}

// Delete removes a dish after confirmation.
func (w *Widget) Delete(id string) error {
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, dispatch.KindDelete), dispatch.Action{
		ConfirmMessage: "Xóa món này khỏi thực đơn?",
		FailureMessage: "Không thể xóa món. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			if _, err := w.api.DeleteDish(ctx, id); err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.dishes.Update(func(ds []api.Dish) []api.Dish {
					out := ds[:0]
					for _, d := range ds {
						if d.DishID != id {
							out = append(out, d)
						}
					}
					return out
				})
				w.render()
				toast.Success(w.sess, "Đã xóa món!")
			})
			return nil
		},
	})
}

// Dishes returns the current menu rows.
func (w *Widget) Dishes() []api.Dish { return w.dishes.Get() }

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
	w.sess.Patch("dish-rows", w.renderRows(w.dishes.Peek()).HTML())
}

func (w *Widget) renderRows(dishes []api.Dish) *fragment.Node {
	if len(dishes) == 0 {
		return fragment.Tbody(fragment.ID("dish-rows"),
			fragment.Tr(fragment.Td(
				fragment.ID("noDishesMsg"),
				fragment.Class("text-muted text-center"),
				fragment.A("colspan", "6"),
				"Chưa có món nào. Hãy thêm món đầu tiên!",
			)),
		)
	}
	return fragment.Tbody(fragment.ID("dish-rows"),
		fragment.Map(dishes, func(d api.Dish) *fragment.Node {
			avail := "Đang bán"
			availCls := "rs-badge rs-badge--ok"
			if !d.IsAvailable {
				avail = "Tạm ngưng"
				availCls = "rs-badge rs-badge--warn"
			}
			return fragment.Tr(
				fragment.Class("dish-row"),
				fragment.Data("id", d.DishID),
				fragment.Td(
					fragment.If(d.Image != "", fragment.Img(
						fragment.A("src", d.Image),
						fragment.A("alt", d.Name),
						fragment.Class("dish-thumb"),
					)),
				),
				fragment.Td(
					fragment.Strong(d.Name),
					fragment.Br(),
					fragment.Small(fragment.Class("text-muted"), d.Note),
				),
				fragment.Td(d.Category),
				fragment.Td(ui.FormatVND(d.Price)),
				fragment.Td(fragment.Span(fragment.Class(availCls), avail)),
				fragment.Td(
					fragment.Button(
						fragment.Class("btn btn-outline-primary btn-sm"),
						fragment.Data("id", d.DishID),
						"Sửa",
					),
					fragment.Button(
						fragment.Class("btn btn-outline-danger btn-sm"),
						fragment.Data("id", d.DishID),
						"Xóa",
					),
				),
			)
		}),
	)
}
