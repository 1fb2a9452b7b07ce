package session

import (
	"context"
	"testing"
	"time"

	"github.com/orderfood-dev/orderfood/pkg/live"
)

func nextFrame(t *testing.T, s *Session) live.Frame {
	t.Helper()
	select {
	case f := <-s.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return live.Frame{}
	}
}

func TestDispatchRunsOnLoop(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	done := make(chan struct{})
	s.Dispatch(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatched callback never ran")
	}
}

func TestBindIsIdempotent(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	calls := make(chan string, 4)
	s.Bind("order", "approve", func(*live.Event) { calls <- "first" })
	s.Bind("order", "approve", func(*live.Event) { calls <- "second" })

	s.HandleEvent(&live.Event{Target: "order", Action: "approve"})

	select {
	case got := <-calls:
		if got != "first" {
			t.Fatalf("handler = %q, want the original binding", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
	select {
	case got := <-calls:
		t.Fatalf("second handler ran: %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnboundEventIsDropped(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	// Must not panic or block.
	s.HandleEvent(&live.Event{Target: "ghost", Action: "click"})
}

func TestUnbind(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	calls := make(chan struct{}, 1)
	s.Bind("row", "click", func(*live.Event) { calls <- struct{}{} })
	s.Unbind("row", "click")
	s.HandleEvent(&live.Event{Target: "row", Action: "click"})

	select {
	case <-calls:
		t.Fatal("unbound handler ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPatchEmitsFrame(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	s.Patch("cart-count", "<span>3</span>")
	f := nextFrame(t, s)
	if f.Type != live.FramePatch || f.TargetID != "cart-count" || f.HTML != "<span>3</span>" {
		t.Fatalf("frame = %+v", f)
	}
}

func TestDialogRoundTrip(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	type result struct {
		res live.DialogResult
		err error
	}
	got := make(chan result, 1)
	go func() {
		res, err := s.RequestDialog(context.Background(), live.Frame{
			Type:    live.FrameConfirm,
			Message: "Xóa?",
		})
		got <- result{res, err}
	}()

	f := nextFrame(t, s)
	if f.Type != live.FrameConfirm || f.DialogID == "" {
		t.Fatalf("frame = %+v", f)
	}

	s.ResolveDialog(live.DialogResult{DialogID: f.DialogID, OK: true})

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("RequestDialog: %v", r.err)
		}
		if !r.res.OK {
			t.Fatal("dialog result not OK")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dialog never resolved")
	}

	// A second reply to the same settled dialog is ignored.
	s.ResolveDialog(live.DialogResult{DialogID: f.DialogID, OK: false})
}

func TestStaleDialogReplyIgnored(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()
	s.ResolveDialog(live.DialogResult{DialogID: "d999", OK: true})
}

func TestDialogCancelledByContext(t *testing.T) {
	s := New(context.Background(), nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := s.RequestDialog(ctx, live.Frame{Type: live.FramePrompt})
		errs <- err
	}()
	nextFrame(t, s)
	cancel()

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("cancelled dialog returned nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dialog never unwound")
	}
}

func TestCloseRunsTeardownInReverse(t *testing.T) {
	s := New(context.Background(), nil)

	var order []int
	s.OnTeardown(func() { order = append(order, 1) })
	s.OnTeardown(func() { order = append(order, 2) })
	s.Close()
	s.Close() // idempotent

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("teardown order = %v, want [2 1]", order)
	}

	select {
	case <-s.StdContext().Done():
	default:
		t.Fatal("session context not cancelled by Close")
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	s := New(context.Background(), nil)
	s.Close()
	s.Emit(live.Frame{Type: live.FrameToast})
	s.Dispatch(func() { t.Fatal("dispatched after close") })
	time.Sleep(20 * time.Millisecond)
}
