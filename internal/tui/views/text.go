package views

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
)

// StatusMark returns the tview-tagged delivery mark shown after an outbound
// message.
func StatusMark(s status.Status) string {
	switch s {
	case status.Pending:
		return "[gray]…[-]"
	case status.Sent:
		return "[gray]✓[-]"
	case status.Delivered:
		return "[gray]✓✓[-]"
	case status.Read:
		return "[blue]✓✓[-]"
	case status.Failed:
		return "[red]![-]"
	default:
		return ""
	}
}

// KindLabel returns the TYPE column text of a chat.
func KindLabel(k store.Kind) string {
	switch k {
	case store.KindGroup:
		return "GROUP"
	case store.KindBot:
		return "BOT"
	default:
		return "DM"
	}
}

func formatTimestamp(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sanitizeForTerminal drops codepoints tcell renders badly: skin tone
// modifiers, zero width joiners and variation selectors. A thumbs-up with
// a skin tone becomes a plain two-cell thumbs-up.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
