package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
)

type echoInit struct {
	inits chan live.Init
}

func (e *echoInit) InitSession(sess *session.Session, init *live.Init) error {
	e.inits <- *init
	sess.Bind("ping", "click", func(*live.Event) {
		sess.Patch("pong", "<span>pong</span>")
	})
	return nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *echoInit) {
	t.Helper()
	init := &echoInit{inits: make(chan live.Init, 1)}
	srv := New(Config{}, init, nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts, init
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLiveInitAndEventRoundTrip(t *testing.T) {
	srv, ts, init := newTestServer(t)
	conn := dial(t, ts)

	err := conn.WriteJSON(live.ClientFrame{
		Type: live.FrameInit,
		Init: &live.Init{Page: "cart", Data: json.RawMessage(`{"lines":[]}`)},
	})
	if err != nil {
		t.Fatalf("write init: %v", err)
	}

	select {
	case got := <-init.inits:
		if got.Page != "cart" {
			t.Fatalf("init page = %q", got.Page)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("initializer never ran")
	}

	err = conn.WriteJSON(live.ClientFrame{
		Type:  live.FrameEvent,
		Event: &live.Event{Target: "ping", Action: "click"},
	})
	if err != nil {
		t.Fatalf("write event: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame live.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Type != live.FramePatch || frame.TargetID != "pong" {
		t.Fatalf("frame = %+v", frame)
	}

	if srv.SessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", srv.SessionCount())
	}
}

func TestSessionRemovedOnDisconnect(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	conn.WriteJSON(live.ClientFrame{Type: live.FrameInit, Init: &live.Init{Page: "cart"}})
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.SessionCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session count = %d after disconnect", srv.SessionCount())
}

func TestHealthz(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
