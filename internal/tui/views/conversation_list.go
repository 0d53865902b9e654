package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/hookchat/internal/store"
	"github.com/matheus3301/hookchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main chat list view. Chats arrive already
// ordered by last activity.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []store.Chat
	visible []store.Chat
	filter  string
	now     func() time.Time
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Chats ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Chats" }

// FocusTarget implements Component.
func (cl *ConversationList) FocusTarget() tview.Primitive { return cl }

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update refreshes the chat list, keeping the selected chat selected.
func (cl *ConversationList) Update(chats []store.Chat) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.render()
	cl.selectID(selected)
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.SetFilter("")
}

// Filter returns the active filter text.
func (cl *ConversationList) Filter() string {
	return cl.filter
}

func (cl *ConversationList) matches(c store.Chat) bool {
	return cl.filter == "" || containsFold(c.Name, cl.filter) || containsFold(c.LastMessageText, cl.filter)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	cl.visible = cl.visible[:0]
	now := cl.now()
	for _, chat := range cl.chats {
		if !cl.matches(chat) {
			continue
		}
		cl.visible = append(cl.visible, chat)
		row := len(cl.visible)

		name := tview.Escape(sanitizeForTerminal(chat.Name))
		if chat.Online {
			name = fmt.Sprintf("[%s]●[-] %s", ui.ColorTag(cl.theme.OnlineColor), name)
		} else {
			name = "  " + name
		}
		if chat.UnreadCount > 0 {
			name = fmt.Sprintf("%s [%s::b](%d)[-:-:-]", name, ui.ColorTag(cl.theme.UnreadColor), chat.UnreadCount)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(chat.LastMessageText))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(chat.LastMessageAt, now)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(" "+KindLabel(chat.Kind)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the id of the highlighted chat.
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the Nth visible chat (1-based).
func (cl *ConversationList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

// ChatByName returns the chat called name, or else the first chat whose
// name contains it.
func (cl *ConversationList) ChatByName(name string) (store.Chat, bool) {
	for _, c := range cl.chats {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range cl.chats {
		if containsFold(c.Name, name) {
			return c, true
		}
	}
	return store.Chat{}, false
}

func (cl *ConversationList) selectID(id string) {
	if id == "" {
		return
	}
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}
