package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs shows where the user is: the profile followed by the page stack,
// with the top page highlighted.
type Crumbs struct {
	*tview.TextView
	theme   *Theme
	profile string
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// SetProfile sets the leading crumb.
func (c *Crumbs) SetProfile(name string) {
	c.profile = name
}

// Update renders the trail for stack, bottom page first.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	_, _ = fmt.Fprint(c, c.render(stack))
}

func (c *Crumbs) render(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	inactive := fmt.Sprintf("[%s:%s:]", ColorTag(c.theme.CrumbInactiveFg), ColorTag(c.theme.CrumbInactiveBg))
	active := fmt.Sprintf("[%s:%s:b]", ColorTag(c.theme.CrumbActiveFg), ColorTag(c.theme.CrumbActiveBg))

	var b strings.Builder
	if c.profile != "" {
		fmt.Fprintf(&b, "[%s::d]%s[-:-:-] ", ColorTag(c.theme.FgColor), tview.Escape(c.profile))
	}
	for i, name := range stack {
		style := inactive
		if i == len(stack)-1 {
			style = active
		}
		fmt.Fprintf(&b, "%s <%s> [-:-:-] ", style, tview.Escape(strings.ToLower(name)))
	}
	return strings.TrimRight(b.String(), " ")
}
