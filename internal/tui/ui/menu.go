package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is the height of the header; hints beyond it wrap into a new
// column.
const menuRows = 7

// Menu lays keyboard hints out in columns below each other.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints, filling each column top to bottom.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.render(hints))
}

func (m *Menu) render(hints []MenuHint) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + menuRows - 1) / menuRows
	rows := min(len(hints), menuRows)

	// Column width is measured on the plain text so tags do not count.
	widths := make([]int, cols)
	for i, h := range hints {
		col := i / menuRows
		widths[col] = max(widths[col], len(h.Key)+len(h.Description)+3)
	}

	keyColor := ColorTag(m.theme.MenuKeyColor)
	numColor := ColorTag(m.theme.NumericKeyColor)

	lines := make([]string, rows)
	for i, h := range hints {
		row, col := i%menuRows, i/menuRows
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		pad := widths[col] - (len(h.Key) + len(h.Description) + 3)
		lines[row] += fmt.Sprintf("[%s::b]<%s>[-:-:-] %s%s  ",
			kc, tview.Escape(h.Key), h.Description, strings.Repeat(" ", pad))
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}
