package live

import (
	"encoding/json"
	"testing"
)

func TestEventPayloadHelpers(t *testing.T) {
	ev := &Event{Payload: map[string]any{
		"id":     "42",
		"count":  float64(3), // JSON numbers decode as float64
		"qty":    "7",        // form inputs send strings
		"flag":   true,
		"toggle": "on",
	}}

	if got := ev.String("id"); got != "42" {
		t.Fatalf("String(id) = %q", got)
	}
	if got := ev.String("missing"); got != "" {
		t.Fatalf("String(missing) = %q", got)
	}
	if n, ok := ev.Int("count"); !ok || n != 3 {
		t.Fatalf("Int(count) = %d, %v", n, ok)
	}
	if n, ok := ev.Int("qty"); !ok || n != 7 {
		t.Fatalf("Int(qty) = %d, %v", n, ok)
	}
	if _, ok := ev.Int("id2"); ok {
		t.Fatal("Int on a missing key reported ok")
	}
	if !ev.Bool("flag") || !ev.Bool("toggle") {
		t.Fatal("Bool helpers")
	}
	if ev.Bool("missing") {
		t.Fatal("Bool(missing) = true")
	}
}

func TestClientFrameDecoding(t *testing.T) {
	raw := `{"type":"event","event":{"target":"order","action":"approve","payload":{"id":"9"}}}`
	var f ClientFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Type != FrameEvent || f.Event == nil {
		t.Fatalf("frame = %+v", f)
	}
	if f.Event.Target != "order" || f.Event.String("id") != "9" {
		t.Fatalf("event = %+v", f.Event)
	}
}

func TestServerFrameOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Frame{Type: FrameToast, Level: "success", Message: "OK"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(raw)
	if got != `{"type":"toast","level":"success","message":"OK"}` {
		t.Fatalf("json = %s", got)
	}
}
