// Package live defines the JSON frames exchanged with the thin browser
// client over the websocket. The protocol is intentionally fragment-level:
// the server sends whole HTML fragments keyed by element id plus a few
// control frames (toast, dialog, navigate, chart), and the client sends user
// events and dialog replies.
package live

import (
	"encoding/json"
	"fmt"
)

// Frame types sent by the server.
const (
	FramePatch    = "patch"    // replace element innerHTML/outerHTML by id
	FrameToast    = "toast"    // transient notification
	FrameConfirm  = "confirm"  // yes/no dialog request
	FramePrompt   = "prompt"   // free-text dialog request
	FrameNavigate = "navigate" // full-page navigation
	FrameChart    = "chart"    // chart spec for the client charting library
)

// Frame types sent by the client.
const (
	FrameInit   = "init"   // handshake: page name plus bootstrap state
	FrameEvent  = "event"  // user interaction (click, change, submit)
	FrameDialog = "dialog" // reply to a confirm/prompt frame
)

// Frame is the wire envelope. Exactly one of the payload groups is set,
// depending on Type.
type Frame struct {
	Type string `json:"type"`

	// Patch
	TargetID string `json:"target_id,omitempty"`
	HTML     string `json:"html,omitempty"`

	// Toast
	Level   string `json:"level,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`

	// Confirm / Prompt (DialogID correlates the reply)
	DialogID    string `json:"dialog_id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`

	// Navigate
	URL string `json:"url,omitempty"`

	// Chart
	ChartID string          `json:"chart_id,omitempty"`
	Spec    json.RawMessage `json:"spec,omitempty"`
}

// Event is a user interaction forwarded by the client. Target identifies the
// bound element ("cart:5", "order:12", "noti-bell"), Action the interaction
// ("approve", "remove", "open").
type Event struct {
	Target  string         `json:"target"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// DialogResult is the client's reply to a confirm or prompt frame.
type DialogResult struct {
	DialogID string `json:"dialog_id"`
	OK       bool   `json:"ok"`
	Value    string `json:"value,omitempty"`
}

// Init is the client handshake: which page this tab is on, plus the
// bootstrap state the server-rendered page embedded for its widgets.
type Init struct {
	Page string          `json:"page"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientFrame is the envelope for frames received from the client.
type ClientFrame struct {
	Type   string        `json:"type"`
	Init   *Init         `json:"init,omitempty"`
	Event  *Event        `json:"event,omitempty"`
	Dialog *DialogResult `json:"dialog,omitempty"`
}

// String returns the payload value for key as a string, or "" when absent.
func (e *Event) String(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Int returns the payload value for key as an int. JSON numbers arrive as
// float64; string digits are accepted too since form inputs send strings.
func (e *Event) Int(key string) (int, bool) {
	switch v := e.Payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Bool returns the payload value for key as a bool.
func (e *Event) Bool(key string) bool {
	switch v := e.Payload[key].(type) {
	case bool:
		return v
	case string:
		return v == "1" || v == "true" || v == "on"
	case float64:
		return v != 0
	}
	return false
}
