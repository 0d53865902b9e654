package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// ProfileData holds daemon information for display.
type ProfileData struct {
	Profile      string
	Session      string
	Store        string
	Polling      bool
	ChatCount    int
	MessageCount int
	Uptime       time.Duration
}

// ProfileInfo displays daemon metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new profile info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the profile info.
func (pi *ProfileInfo) Update(data *ProfileData) {
	pi.Clear()
	if data == nil {
		return
	}

	fg := ColorTag(pi.theme.FgColor)
	val := ColorTag(pi.theme.CounterColor)

	polling := "stopped"
	if data.Polling {
		polling = "running"
	}
	session := data.Session
	if len(session) > 8 {
		session = session[:8]
	}

	rows := []struct{ label, value string }{
		{"Profile:", data.Profile},
		{"Session:", session},
		{"Store:", data.Store},
		{"Polling:", polling},
		{"Chats:", fmt.Sprint(data.ChatCount)},
		{"Msgs:", fmt.Sprint(data.MessageCount)},
		{"Uptime:", formatDuration(data.Uptime)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(pi, "\n")
		}
		_, _ = fmt.Fprintf(pi, "[%s::b]%-9s[-:-:-][%s]%s[-]", fg, r.label, val, r.value)
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
