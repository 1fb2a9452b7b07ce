// Package charts drives the dashboard charts: the admin transaction bar
// chart and the owner revenue dashboard (summary cards, dish donut,
// revenue line with a selectable range).
//
// Every chart loads through the refresh coordinator, so switching the
// revenue range twice in quick succession renders only the last selection;
// the earlier fetch is superseded and its spec never reaches the client.
package charts

import (
	"context"
	"time"

	"github.com/orderfood-dev/orderfood/internal/ui"
	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/fragment"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/refresh"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/state"
)

// Coordinator keys for the chart resources.
const (
	KeyTransactions = "stats:transactions"
	KeyRevenue      = "stats:revenue"
	KeyDishes       = "stats:dishes"
	KeyRevenueLine  = "stats:revenue-line"
)

// barSpec is the chart spec shape the client charting library consumes.
type barSpec struct {
	Type   string    `json:"type"`
	Labels []string  `json:"labels"`
	Label  string    `json:"label"`
	Data   []float64 `json:"data"`
}

// AdminWidget renders the admin transaction chart.
type AdminWidget struct {
	sess  *session.Session
	api   *api.Client
	coord *refresh.Coordinator
}

// NewAdmin creates the admin chart widget.
func NewAdmin(sess *session.Session, client *api.Client, coord *refresh.Coordinator) *AdminWidget {
	return &AdminWidget{sess: sess, api: client, coord: coord}
}

// Mount registers the transaction chart and starts polling it.
func (w *AdminWidget) Mount(pollInterval time.Duration) {
	w.coord.Register(KeyTransactions, pollInterval, w.fetchTransactions)
	w.coord.Schedule(KeyTransactions)
}

func (w *AdminWidget) fetchTransactions(ctx context.Context) (func(), error) {
	stats, err := w.api.AdminTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		w.sess.Chart("transactionChart", barSpec{
			Type:   "bar",
			Labels: stats.Labels,
			Label:  "Giao dịch",
			Data:   stats.Transactions,
		})
	}, nil
}

// OwnerWidget renders the owner revenue dashboard.
type OwnerWidget struct {
	sess         *session.Session
	api          *api.Client
	coord        *refresh.Coordinator
	restaurantID string

	rng *state.Signal[api.StatsRange]
}

// NewOwner creates the owner dashboard widget with the default range.
func NewOwner(sess *session.Session, client *api.Client, coord *refresh.Coordinator, restaurantID string) *OwnerWidget {
	return &OwnerWidget{
		sess:         sess,
		api:          client,
		coord:        coord,
		restaurantID: restaurantID,
		rng:          state.NewSignal(api.StatsRange{Mode: "day"}),
	}
}

// Mount registers the three owner resources, starts polling, and binds the
// range selector.
func (w *OwnerWidget) Mount(pollInterval time.Duration) {
	w.coord.Register(KeyRevenue, pollInterval, w.fetchRevenue)
	w.coord.Register(KeyDishes, pollInterval, w.fetchDishes)
	w.coord.Register(KeyRevenueLine, pollInterval, w.fetchRevenueLine)
	w.coord.Schedule(KeyRevenue)
	w.coord.Schedule(KeyDishes)
	w.coord.Schedule(KeyRevenueLine)

	w.sess.Bind("stats", "range", func(ev *live.Event) {
		w.SetRange(api.StatsRange{
			Mode:    ev.String("mode"),
			Month:   ev.String("month"),
			Quarter: ev.String("quarter"),
		})
	})
}

// SetRange changes the selected range and reissues the fetches that depend
// on it. The new fetches get fresh generations, so a still-running fetch
// for the previous range can no longer draw.
func (w *OwnerWidget) SetRange(r api.StatsRange) {
	if r.Mode == "" {
		r.Mode = "day"
	}
	w.rng.Set(r)
	w.coord.RefreshNow(KeyRevenueLine)
	w.coord.RefreshNow(KeyDishes)
}

// Range returns the currently selected revenue line range.
func (w *OwnerWidget) Range() api.StatsRange { return w.rng.Get() }

func (w *OwnerWidget) fetchRevenue(ctx context.Context) (func(), error) {
	sum, err := w.api.OwnerRevenue(ctx, w.restaurantID)
	if err != nil {
		return nil, err
	}
	return func() {
		w.sess.Patch("revenue-today", fragment.Strong(
			fragment.ID("revenue-today"), ui.FormatVND(sum.Today)).HTML())
		w.sess.Patch("revenue-month", fragment.Strong(
			fragment.ID("revenue-month"), ui.FormatVND(sum.Month)).HTML())
	}, nil
}

func (w *OwnerWidget) fetchDishes(ctx context.Context) (func(), error) {
	stats, err := w.api.OwnerDishStats(ctx, w.restaurantID, w.rng.Get())
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(stats))
	data := make([]float64, 0, len(stats))
	for _, s := range stats {
		labels = append(labels, s.Dish)
		data = append(data, float64(s.Quantity))
	}
	return func() {
		w.sess.Chart("dishDonutChart", barSpec{
			Type:   "doughnut",
			Labels: labels,
			Label:  "Món bán chạy",
			Data:   data,
		})
	}, nil
}

func (w *OwnerWidget) fetchRevenueLine(ctx context.Context) (func(), error) {
	points, err := w.api.OwnerRevenueLine(ctx, w.restaurantID, w.rng.Get())
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(points))
	data := make([]float64, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.Label)
		data = append(data, p.Revenue)
	}
	return func() {
		w.sess.Chart("revenueLineChart", barSpec{
			Type:   "line",
			Labels: labels,
			Label:  "Doanh thu",
			Data:   data,
		})
	}, nil
}
