// Package app wires a live session to its widgets. The server hands each
// websocket connection a session; the client's init frame names the page
// and carries the bootstrap state the server-rendered HTML embedded, and
// this package mounts the widgets that page needs.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/orderfood-dev/orderfood/internal/widgets/adminrest"
	"github.com/orderfood-dev/orderfood/internal/widgets/adminusers"
	"github.com/orderfood-dev/orderfood/internal/widgets/cart"
	"github.com/orderfood-dev/orderfood/internal/widgets/charts"
	"github.com/orderfood-dev/orderfood/internal/widgets/menu"
	"github.com/orderfood-dev/orderfood/internal/widgets/notices"
	"github.com/orderfood-dev/orderfood/internal/widgets/orders"
	"github.com/orderfood-dev/orderfood/internal/widgets/register"
	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/middleware"
	"github.com/orderfood-dev/orderfood/pkg/refresh"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/toast"
)

// Page names the client sends in its init frame.
const (
	PageAdminDashboard = "admin_dashboard"
	PageAdminAccounts  = "admin_accounts"
	PageOwnerOrders    = "owner_orders"
	PageOwnerMenu      = "owner_menu"
	PageOwnerDashboard = "owner_dashboard"
	PageOwnerRegister  = "owner_register"
	PageCart           = "cart"
	PageMenu           = "menu"
)

// bootstrap is the embedded page state. Pages fill only their own fields.
type bootstrap struct {
	RestaurantID string `json:"restaurant_id,omitempty"`

	Restaurants []adminrest.Restaurant `json:"restaurants,omitempty"`
	Customers   []adminusers.Account   `json:"customers,omitempty"`
	Owners      []adminusers.Account   `json:"owners,omitempty"`

	Pending   []orders.Order `json:"pending,omitempty"`
	Accepted  []orders.Order `json:"accepted,omitempty"`
	Cancelled []orders.Order `json:"cancelled,omitempty"`

	Dishes []api.Dish `json:"dishes,omitempty"`

	CartLines  []cart.Line `json:"lines,omitempty"`
	CartTotals cart.Totals `json:"totals,omitempty"`
}

// App holds the process-wide dependencies shared by every session.
type App struct {
	client       *api.Client
	metrics      *middleware.Metrics
	logger       *slog.Logger
	pollInterval time.Duration
}

// New creates the app. metrics may be nil in tests.
func New(client *api.Client, metrics *middleware.Metrics, logger *slog.Logger, pollInterval time.Duration) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		client:       client,
		metrics:      metrics,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// InitSession builds the per-session coordination layer and mounts the
// widgets for the page named in the init frame. It runs once per
// connection; rebinding after a reconnect is harmless because event
// binding is idempotent.
func (a *App) InitSession(sess *session.Session, init *live.Init) error {
	var boot bootstrap
	if len(init.Data) > 0 {
		if err := json.Unmarshal(init.Data, &boot); err != nil {
			return fmt.Errorf("app: decode bootstrap for page %q: %w", init.Page, err)
		}
	}

	opts := []dispatch.Option{
		dispatch.WithMiddleware(middleware.OTel()),
	}
	if a.metrics != nil {
		opts = append(opts, dispatch.WithObserver(a.metrics))
	}
	disp := dispatch.New(&toast.Dialogs{Session: sess}, &toastNotifier{sess: sess}, a.logger, opts...)

	var coordOpts []refresh.Option
	if a.metrics != nil {
		coordOpts = append(coordOpts, refresh.WithObserver(a.metrics))
	}
	coord := refresh.New(sess.StdContext(), sess.Dispatch, a.logger, coordOpts...)
	sess.OnTeardown(coord.Stop)

	sess.Bind("page", "visible", func(*live.Event) {
		coord.Visible()
	})

	// Every page carries the notification bell.
	notices.New(sess, a.client, disp, coord).Mount(a.pollInterval)

	switch init.Page {
	case PageAdminDashboard:
		adminrest.New(sess, a.client, disp, adminrest.Bootstrap{Restaurants: boot.Restaurants}).Mount()
		charts.NewAdmin(sess, a.client, coord).Mount(a.pollInterval)
	case PageAdminAccounts:
		adminusers.New(sess, a.client, disp, adminusers.Bootstrap{
			Customers: boot.Customers,
			Owners:    boot.Owners,
		}).Mount()
	case PageOwnerOrders:
		orders.New(sess, a.client, disp, orders.Bootstrap{
			Pending:   boot.Pending,
			Accepted:  boot.Accepted,
			Cancelled: boot.Cancelled,
		}).Mount()
	case PageOwnerMenu:
		menu.New(sess, a.client, disp, menu.Bootstrap{Dishes: boot.Dishes}).Mount()
		register.New(sess, a.client, disp).Mount()
	case PageOwnerDashboard:
		charts.NewOwner(sess, a.client, coord, boot.RestaurantID).Mount(a.pollInterval)
	case PageOwnerRegister:
		register.New(sess, a.client, disp).Mount()
	case PageCart, PageMenu:
		cart.New(sess, a.client, disp, cart.Bootstrap{
			Lines:  boot.CartLines,
			Totals: boot.CartTotals,
		}).Mount()
	default:
		// Unknown pages still get the bell and visibility refresh.
		a.logger.Debug("no widgets for page", "page", init.Page)
	}

	a.logger.Info("session initialized", "session", sess.ID, "page", init.Page)
	return nil
}

// toastNotifier adapts the session toast channel to the dispatcher's
// Notifier interface.
type toastNotifier struct {
	sess *session.Session
}

func (n *toastNotifier) Notify(level, message string) {
	toast.Show(n.sess, toast.Type(level), message)
}
