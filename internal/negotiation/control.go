// Package negotiation implements the price-negotiation workflow: the
// atomic order+room bootstrap, and the control-message conventions
// layered on plain chat content.
package negotiation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Control kinds recognized inside message content. Ordinary content is
// displayable text; a control message is a small JSON object riding the
// same field so it flows through the identical persistence and
// delivery pipe as any other message.
const KindCloseRequest = "CLOSE_REQUEST"

// Control is the structured payload a client should attempt to decode
// from message content before falling back to literal text.
type Control struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// EncodeCloseRequest builds a close-request control message with the
// given user-facing prompt.
func EncodeCloseRequest(prompt string) (string, error) {
	raw, err := json.Marshal(Control{Kind: KindCloseRequest, Text: prompt})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeControl attempts to interpret content as a control message.
// Returns (nil, false) for anything that is not a well-formed control
// object; callers then render the content as plain text.
func DecodeControl(content string) (*Control, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var c Control
	if err := json.Unmarshal([]byte(trimmed), &c); err != nil {
		return nil, false
	}
	if c.Kind != KindCloseRequest {
		return nil, false
	}
	return &c, true
}

// PriceOffer renders the conventional human-readable price-offer text
// for a new offer in rupiah. The counterpart re-derives structured
// state client-side; the store treats this as opaque text.
func PriceOffer(amount int64) string {
	return fmt.Sprintf("Saya mengajukan penawaran baru sebesar Rp %s", formatIDR(amount))
}

// ParsePriceOffer extracts the offered amount from a conventional
// price-offer message. Returns (0, false) when the content does not
// follow the convention or the amount does not fit in an int64.
func ParsePriceOffer(content string) (int64, bool) {
	const prefix = "Saya mengajukan penawaran baru sebesar Rp "
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !ok {
		return 0, false
	}
	digits := strings.ReplaceAll(rest, ".", "")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// formatIDR groups digits with dots per the id-ID convention, e.g.
// 1500000 -> "1.500.000".
func formatIDR(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
