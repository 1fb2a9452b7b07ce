// Package adminusers is the admin account management widget: tabbed
// customer and owner tables with role-routed deletion.
package adminusers

import (
	"context"
	"fmt"
	"sync"

	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/fragment"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/state"
	"github.com/orderfood-dev/orderfood/pkg/toast"
)

// Role is the account kind the row belongs to. Deletion is routed by role;
// an unknown role aborts before any request is sent.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
)

// Account is one row in either tab.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
}

// Bootstrap is the initial state the accounts page embeds.
type Bootstrap struct {
	Customers []Account `json:"customers"`
	Owners    []Account `json:"owners"`
}

// Widget is the account management widget for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	customers *state.Signal[[]Account]
	owners    *state.Signal[[]Account]

	mu      sync.Mutex
	targets map[string]*dispatch.Target
}

// New creates the widget with its bootstrap rows.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher, boot Bootstrap) *Widget {
	return &Widget{
		sess:      sess,
		api:       client,
		disp:      disp,
		customers: state.NewSignal(boot.Customers),
		owners:    state.NewSignal(boot.Owners),
		targets:   make(map[string]*dispatch.Target),
	}
}

// Mount binds the deletion handler. The role travels with the event so one
// handler serves both tabs.
func (w *Widget) Mount() {
	w.sess.Bind("account", "delete", func(ev *live.Event) {
		id := ev.String("id")
		role := Role(ev.String("role"))
		if id == "" {
			return
		}
		go w.Delete(id, role)
	})
}

// Delete removes an account after confirmation, calling the endpoint that
// matches the row's role. A role outside the known set is a programming
// error on the page, not a user mistake, so it aborts with an error toast
// and no request.
func (w *Widget) Delete(id string, role Role) error {
	if role != RoleCustomer && role != RoleOwner {
		w.sess.Dispatch(func() {
			toast.Error(w.sess, "Không xác định được loại tài khoản")
		})
		return fmt.Errorf("adminusers: unknown role %q", role)
	}
	return w.disp.Dispatch(w.sess.StdContext(), w.target(id, role), dispatch.Action{
		ConfirmMessage: "Xóa tài khoản này? Hành động không thể hoàn tác.",
		FailureMessage: "Không thể xóa tài khoản. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			var err error
			if role == RoleCustomer {
				err = w.api.DeleteCustomer(ctx, id)
			} else {
				err = w.api.DeleteOwner(ctx, id)
			}
			if err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				w.applyDelete(id, role)
				toast.Success(w.sess, "Đã xóa tài khoản")
			})
			return nil
		},
	})
}

// applyDelete drops the row from its tab and re-renders that tab only.
// Runs on the session loop.
func (w *Widget) applyDelete(id string, role Role) {
	sig := w.customers
	elementID := "customer-rows"
	if role == RoleOwner {
		sig = w.owners
		elementID = "owner-rows"
	}
	sig.Update(func(rows []Account) []Account {
		out := rows[:0]
		for _, a := range rows {
			if a.ID != id {
				out = append(out, a)
			}
		}
		return out
	})
	w.sess.Patch(elementID, w.renderRows(elementID, sig.Peek()).HTML())
}

// Customers returns the customer tab rows.
func (w *Widget) Customers() []Account { return w.customers.Get() }

// Owners returns the owner tab rows.
func (w *Widget) Owners() []Account { return w.owners.Get() }

func (w *Widget) target(id string, role Role) *dispatch.Target {
	key := string(role) + "|" + id
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.targets[key]
	if !ok {
		t = dispatch.NewTarget(key, dispatch.KindDelete)
		w.targets[key] = t
	}
	return t
}

func (w *Widget) renderRows(elementID string, rows []Account) *fragment.Node {
	if len(rows) == 0 {
		return fragment.Tbody(fragment.ID(elementID),
			fragment.Tr(fragment.Td(
				fragment.Class("text-muted text-center"),
				fragment.A("colspan", "4"),
				"Không có tài khoản nào",
			)),
		)
	}
	return fragment.Tbody(fragment.ID(elementID),
		fragment.Map(rows, func(a Account) *fragment.Node {
			return fragment.Tr(
				fragment.Data("id", a.ID),
				fragment.Td(a.Name),
				fragment.Td(a.Email),
				fragment.Td(a.Phone),
				fragment.Td(
					fragment.Button(
						fragment.Class("btn btn-danger btn-sm"),
						fragment.Data("id", a.ID),
						fragment.Data("role", string(a.Role)),
						"Xóa",
					),
				),
			)
		}),
	)
}
