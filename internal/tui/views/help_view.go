package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/hookchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	_, _ = fmt.Fprint(hv, helpText(ui.ColorTag(theme.MenuKeyColor)))
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// FocusTarget implements Component.
func (hv *HelpView) FocusTarget() tview.Primitive { return hv }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

type helpSection struct {
	title string
	rows  [][2]string
}

var helpSections = []helpSection{
	{"Global Keys", [][2]string{
		{":", "Command mode"},
		{"/", "Filter chats"},
		{"?", "Help"},
		{"Esc", "Cancel / Go back"},
		{"q", "Quit (from the chat list)"},
		{"Ctrl-R", "Reload chats and status"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Chat List", [][2]string{
		{"Enter", "Open chat"},
		{"1-9", "Jump to Nth chat"},
		{"0", "Clear filter"},
		{"r", "Mark selected chat read"},
		{"j/k", "Move down / up"},
	}},
	{"Message Thread", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send message (in composer)"},
		{"r", "Mark chat read"},
		{"Esc", "Leave composer / Back"},
	}},
	{"Commands", [][2]string{
		{":new <name> [kind]", "Create chat (individual, group, bot)"},
		{":chat <name>", "Open chat by name"},
		{":delete", "Delete the open or selected chat"},
		{":read", "Mark the open or selected chat read"},
		{":clear", "Delete all chats and messages"},
		{":help, :h", "Show this help"},
		{":quit, :q", "Quit application"},
		{"Up/Down", "Recall earlier commands"},
	}},
}

func helpText(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-20s[-:-:-] %s\n", keyColor, tview.Escape(r[0]), r[1])
		}
	}
	return b.String()
}
