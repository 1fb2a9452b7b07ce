package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
)

type autoConfirmer struct {
	ok      bool
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (c *autoConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if c.started != nil {
		c.once.Do(func() { close(c.started) })
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return c.ok, nil
}

func (c *autoConfirmer) Prompt(ctx context.Context, title, placeholder string) (string, bool, error) {
	return "", false, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(level, message string) {}

func newWidget(t *testing.T, handler http.HandlerFunc, conf dispatch.Confirmer, boot Bootstrap) (*Widget, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.New(srv.URL, nil)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sess := session.New(context.Background(), nil)
	t.Cleanup(sess.Close)
	disp := dispatch.New(conf, nopNotifier{}, nil)
	return New(sess, client, disp, boot), sess
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func awaitFrame(t *testing.T, s *session.Session, pred func(live.Frame) bool) live.Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-s.Frames():
			if pred(f) {
				return f
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching frame")
			return live.Frame{}
		}
	}
}

func twoLines() []Line {
	return []Line{
		{ID: "l1", DishID: "d1", Name: "Phở bò", Price: 50000, Quantity: 2},
		{ID: "l2", DishID: "d2", Name: "Bún chả", Price: 40000, Quantity: 1},
	}
}

func TestRemoveUsesResponseTotals(t *testing.T) {
	w, _ := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]any{
			"success": true, "total_items": 1,
			"subtotal": 40000.0, "total": 44000.0,
		})
	}, &autoConfirmer{ok: true}, Bootstrap{Lines: twoLines(), Totals: Totals{TotalItems: 3}})

	if err := w.Remove("l1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitFor(t, "reconciliation", func() bool {
		return len(w.Lines()) == 1 && w.Totals().TotalItems == 1
	})
	got := w.Totals()
	if got.Subtotal != 40000 || got.Total != 44000 {
		t.Fatalf("totals = %+v, want response values", got)
	}
	if w.Lines()[0].ID != "l2" {
		t.Fatalf("remaining line = %+v", w.Lines()[0])
	}
}

func TestRemoveRecomputesWhenMoneyAbsent(t *testing.T) {
	w, _ := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		// Endpoint variant that only returns the item count.
		json.NewEncoder(rw).Encode(map[string]any{"success": true, "total_items": 1})
	}, &autoConfirmer{ok: true}, Bootstrap{Lines: twoLines()})

	if err := w.Remove("l1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitFor(t, "reconciliation", func() bool { return len(w.Lines()) == 1 })
	got := w.Totals()
	if got.Subtotal != 40000 || got.Total != 40000 {
		t.Fatalf("totals = %+v, want recomputed 40000", got)
	}
}

func TestRemoveRedirectNavigates(t *testing.T) {
	w, sess := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]any{
			"success": true, "total_items": 0, "redirect_url": "/menu",
		})
	}, &autoConfirmer{ok: true}, Bootstrap{Lines: twoLines()[:1]})

	if err := w.Remove("l1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	f := awaitFrame(t, sess, func(f live.Frame) bool { return f.Type == live.FrameNavigate })
	if f.URL != "/menu" {
		t.Fatalf("navigate url = %q", f.URL)
	}
}

func TestRemoveDeclinedSendsNothing(t *testing.T) {
	requests := make(chan struct{}, 1)
	w, _ := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		requests <- struct{}{}
		json.NewEncoder(rw).Encode(map[string]any{"success": true})
	}, &autoConfirmer{ok: false}, Bootstrap{Lines: twoLines()})

	if err := w.Remove("l1"); !errors.Is(err, dispatch.ErrUserCancelled) {
		t.Fatalf("err = %v, want ErrUserCancelled", err)
	}
	select {
	case <-requests:
		t.Fatal("declined removal still sent a request")
	case <-time.After(50 * time.Millisecond):
	}
	if len(w.Lines()) != 2 {
		t.Fatal("declined removal mutated lines")
	}
}

func TestRemoveSingleFlight(t *testing.T) {
	conf := &autoConfirmer{ok: true, release: make(chan struct{}), started: make(chan struct{})}
	w, _ := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]any{"success": true, "total_items": 1})
	}, conf, Bootstrap{Lines: twoLines()})

	done := make(chan error, 1)
	go func() { done <- w.Remove("l1") }()

	// While the confirm dialog is open, a second trigger loses the race.
	select {
	case <-conf.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first Remove never reached the dialog")
	}
	if err := w.Remove("l1"); !errors.Is(err, dispatch.ErrAlreadyInFlight) {
		t.Fatalf("second Remove err = %v, want ErrAlreadyInFlight", err)
	}

	close(conf.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Remove: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first Remove never settled")
	}
}

func TestAddFailureLeavesStateUntouched(t *testing.T) {
	w, sess := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	}, &autoConfirmer{ok: true}, Bootstrap{Lines: twoLines(), Totals: Totals{TotalItems: 3}})

	err := w.Add(api.CartItemInput{DishID: "d3", Quantity: 1})
	if err == nil {
		t.Fatal("Add succeeded against a failing backend")
	}
	if len(w.Lines()) != 2 || w.Totals().TotalItems != 3 {
		t.Fatal("failed add mutated rendered state")
	}
	// No success toast and no patch may be emitted.
	select {
	case f := <-sess.Frames():
		if f.Type == live.FramePatch || (f.Type == live.FrameToast && f.Level == "success") {
			t.Fatalf("unexpected frame after failure: %+v", f)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateQuantityAppliesResponse(t *testing.T) {
	w, _ := newWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]any{
			"success": true, "total_items": 4,
			"subtotal": 190000.0, "total": 190000.0,
		})
	}, &autoConfirmer{ok: true}, Bootstrap{Lines: twoLines()})

	if err := w.UpdateQuantity("l1", 3); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	waitFor(t, "quantity update", func() bool {
		return w.Lines()[0].Quantity == 3 && w.Totals().TotalItems == 4
	})
}
