// Package ui holds rendering helpers shared by the widgets: the status
// badge mapping and money formatting.
package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/orderfood-dev/orderfood/pkg/fragment"
)

// badgeStyles is the closed mapping from canonical status to badge class
// and display label. Anything the backend sends outside this map renders
// with the neutral class and the raw string as label, never dropped.
var badgeStyles = map[string]struct {
	class string
	label string
}{
	"APPROVED":  {"rs-badge rs-badge--ok", "APPROVED"},
	"PENDING":   {"rs-badge rs-badge--warn", "PENDING"},
	"REJECTED":  {"rs-badge rs-badge--err", "REJECTED"},
	"ACCEPTED":  {"rs-badge rs-badge--ok", "ACCEPTED"},
	"CANCELLED": {"rs-badge rs-badge--err", "CANCELLED"},
}

// StatusBadge renders the badge span for a canonical status string.
func StatusBadge(status string) *fragment.Node {
	if s, ok := badgeStyles[status]; ok {
		return fragment.Span(fragment.Class(s.class), s.label)
	}
	return fragment.Span(fragment.Class("rs-badge"), status)
}

// FormatVND renders an amount the way the product shows money: grouped
// thousands and the đồng suffix, e.g. "1,250,000 đ".
func FormatVND(amount float64) string {
	n := int64(math.Round(amount))
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	b.WriteString(" đ")
	return b.String()
}
