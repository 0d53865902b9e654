package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/hookchat/internal/store"
	"github.com/matheus3301/hookchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays messages and a composer for a single chat.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	chat     store.Chat
	maxLen   int
	onSend   func(text string)
	now      func() time.Time
}

// NewMessageThread creates a new message thread view. maxLen caps the
// composer input in characters; zero means no cap.
func NewMessageThread(theme *ui.Theme, maxLen int) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message...")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)
	composer.SetFocusFunc(func() { composer.SetBorderColor(theme.BorderFocusColor) })
	composer.SetBlurFunc(func() { composer.SetBorderColor(theme.BorderColor) })
	if maxLen > 0 {
		composer.SetAcceptanceFunc(func(text string, _ rune) bool {
			return len([]rune(text)) <= maxLen
		})
	}

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		maxLen:   maxLen,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := strings.TrimSpace(composer.GetText())
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chat.Name != "" {
		return mt.chat.Name
	}
	return "Messages"
}

// FocusTarget implements Component.
func (mt *MessageThread) FocusTarget() tview.Primitive { return mt.messages }

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Enter", Description: "Send"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// SetChat updates the chat shown in the title.
func (mt *MessageThread) SetChat(c store.Chat) {
	mt.chat = c
	title := fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(c.Name)))
	if c.Online {
		title = fmt.Sprintf(" %s [%s]online[-] ", tview.Escape(sanitizeForTerminal(c.Name)), ui.ColorTag(mt.theme.OnlineColor))
	}
	mt.messages.SetTitle(title)
}

// ChatID returns the id of the chat on display.
func (mt *MessageThread) ChatID() string {
	return mt.chat.ID
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update re-renders the thread. Messages are in arrival order.
func (mt *MessageThread) Update(msgs []store.Message) {
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.render(msgs))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) render(msgs []store.Message) string {
	if len(msgs) == 0 {
		return "[::d]No messages yet. Press i to write one.[-:-:-]"
	}
	now := mt.now()
	var b strings.Builder
	for _, m := range msgs {
		sender := mt.chat.Name
		color := ui.ColorTag(mt.theme.InboundColor)
		mark := ""
		if m.Direction == store.Outbound {
			sender = "You"
			color = ui.ColorTag(mt.theme.OutboundColor)
			mark = " " + StatusMark(m.Status)
		} else if m.From != "" && mt.chat.Kind == store.KindGroup {
			sender = m.From
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			color, tview.Escape(sanitizeForTerminal(sender)),
			formatTimestamp(m.Timestamp, now), mark,
			tview.Escape(sanitizeForTerminal(m.Text)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
