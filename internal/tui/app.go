package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/hookchat/internal/client"
	intsync "github.com/matheus3301/hookchat/internal/sync"
	"github.com/matheus3301/hookchat/internal/tui/keys"
	"github.com/matheus3301/hookchat/internal/tui/model"
	"github.com/matheus3301/hookchat/internal/tui/ui"
	"github.com/matheus3301/hookchat/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageChats  = "chats"
	pageThread = "thread"
	pageHelp   = "help"

	refreshInterval = 5 * time.Second
	reconnectDelay  = 2 * time.Second
	callTimeout     = 10 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	root     *tview.Flex
	header   *tview.Flex
	pages    *ui.Pages
	vm       *model.ViewModel
	client   *client.Client
	registry *keys.Registry
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	info     *ui.ProfileInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	logo     *ui.Logo
	prompt   *ui.Prompt
	chats    *views.ConversationList
	thread   *views.MessageThread
	help     *views.HelpView

	components map[string]ui.Component
	profile    string
	promptOn   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. maxLen caps composer input.
func NewApp(c *client.Client, profileName string, maxLen int) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		vm:       model.NewViewModel(c),
		client:   c,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		info:     ui.NewProfileInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		logo:     ui.NewLogo(theme),
		prompt:   ui.NewPrompt(theme),
		chats:    views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme, maxLen),
		help:     views.NewHelpView(theme),
		profile:  profileName,
		ctx:      ctx,
		cancel:   cancel,
	}
	a.components = map[string]ui.Component{
		pageChats:  a.chats,
		pageThread: a.thread,
		pageHelp:   a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.Global(keys.Rune('?', "Help", func() { a.push(pageHelp) }))
	a.registry.Global(keys.Binding{
		Key: tcell.KeyCtrlR, Label: "ctrl-r", Help: "Refresh",
		Handler: func() { go a.reload() },
	})
	a.registry.View(pageChats, keys.Rune('q', "Quit", a.Stop))
	a.registry.View(pageChats, keys.Rune('r', "Mark read", func() { a.markRead(a.chats.SelectedChat()) }))
	a.registry.View(pageThread, keys.Rune('r', "Mark read", func() { a.markRead(a.vm.ActiveChatID()) }))
	a.registry.View(pageHelp, keys.Rune('q', "Back", a.back))
}

func (a *App) setupCallbacks() {
	a.chats.SetSelectedFunc(func(row, _ int) {
		if id := a.chats.ChatByIndex(row); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			defer cancel()
			if err := a.vm.SendText(ctx, text); err != nil {
				a.flash.Err(fmt.Errorf("send failed: %w", err))
				return
			}
			a.app.QueueUpdateDraw(a.renderThread)
		}()
	})

	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, 0, len(stack))
		for _, p := range stack {
			names = append(names, a.components[p].Name())
		}
		a.crumbs.Update(names)
		if len(stack) > 0 {
			a.menu.Update(a.hints(stack[len(stack)-1]))
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chats.SetFilter(text)
		case ui.PromptCommand:
			a.execute(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageChats, a.chats, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	a.header = tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 30, 0, false)

	a.crumbs.SetProfile(a.profile)
	a.root = tview.NewFlex().SetDirection(tview.FlexRow)
	a.layout()
	a.pages.Reset(pageChats)

	a.app.SetRoot(a.root, true)
	a.app.SetFocus(a.chats)
	a.app.SetInputCapture(a.handleKey)
}

// layout rebuilds the root flex, with the prompt between header and pages
// while it is active.
func (a *App) layout() {
	a.root.Clear()
	a.root.AddItem(a.header, 7, 0, false)
	if a.promptOn {
		a.root.AddItem(a.prompt, 3, 0, true)
	}
	a.root.AddItem(a.pages, 0, 1, !a.promptOn)
	a.root.AddItem(a.crumbs, 1, 0, false)
	a.root.AddItem(a.flashBar, 1, 0, false)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	current := a.pages.Current()

	// Text inputs handle their own keys; Esc leaves the composer.
	if focused, ok := a.app.GetFocus().(*tview.InputField); ok {
		if focused == a.thread.Composer() && event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyEscape:
		if a.pages.Depth() > 1 {
			a.back()
		} else if a.chats.Filter() != "" {
			a.chats.ClearFilter()
		}
		return nil
	case tcell.KeyRune:
		switch r := event.Rune(); {
		case r == ':':
			a.showPrompt(ui.PromptCommand)
			return nil
		case r == '/' && current == pageChats:
			a.showPrompt(ui.PromptFilter)
			return nil
		case r == 'i' && current == pageThread:
			a.app.SetFocus(a.thread.Composer())
			return nil
		case r == '0' && current == pageChats:
			a.chats.ClearFilter()
			return nil
		case r >= '1' && r <= '9' && current == pageChats:
			if id := a.chats.ChatByIndex(int(r - '0')); id != "" {
				a.openChat(id)
			}
			return nil
		}
	}

	if a.registry.Handle(current, event) {
		return nil
	}
	return event
}

// hints merges the page's navigation hints with its key bindings.
func (a *App) hints(page string) []ui.MenuHint {
	hints := a.components[page].Hints()
	for _, h := range a.registry.Hints(page) {
		if !slices.ContainsFunc(hints, func(x ui.MenuHint) bool { return x.Key == h.Key }) {
			hints = append(hints, h)
		}
	}
	return hints
}

func (a *App) showPrompt(mode ui.PromptMode) {
	initial := ""
	if mode == ui.PromptFilter {
		initial = a.chats.Filter()
	}
	a.prompt.Activate(mode, initial)
	a.promptOn = true
	a.layout()
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptOn = false
	a.layout()
	a.focusCurrent()
}

func (a *App) push(page string) {
	a.pages.Push(page)
	a.focusCurrent()
}

func (a *App) back() {
	if a.pages.Pop() == pageThread {
		a.vm.CloseChat()
	}
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	if c, ok := a.components[a.pages.Current()]; ok {
		a.app.SetFocus(c.FocusTarget())
	}
}

func (a *App) openChat(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := a.vm.OpenChat(ctx, id); err != nil {
			a.flash.Err(fmt.Errorf("open chat: %w", err))
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.renderThread()
			a.push(pageThread)
		})
	}()
}

// markRead resets the unread counter; the chat.updated event refreshes the list.
func (a *App) markRead(id string) {
	if id == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := a.vm.MarkRead(ctx, id); err != nil {
			a.flash.Err(err)
		}
	}()
}

// target returns the open chat, or the highlighted one in the list.
func (a *App) target() string {
	if id := a.vm.ActiveChatID(); id != "" {
		return id
	}
	return a.chats.SelectedChat()
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case "new":
		name, kind := cmd.NewChatArgs()
		if name == "" {
			a.flash.Warn("usage: :new <name> [individual|group|bot]")
			return
		}
		a.run(func(ctx context.Context) error {
			c, err := a.vm.CreateChat(ctx, name, kind)
			if err == nil {
				a.flash.Info("Created " + c.Name)
			}
			return err
		}, a.renderChats)
	case "chat":
		c, ok := a.chats.ChatByName(cmd.Args)
		if !ok {
			a.flash.Warn("no chat matches " + cmd.Args)
			return
		}
		a.openChat(c.ID)
	case "delete":
		id := a.target()
		if id == "" {
			return
		}
		a.run(func(ctx context.Context) error {
			return a.vm.DeleteChat(ctx, id)
		}, func() {
			a.pages.Reset(pageChats)
			a.focusCurrent()
			a.renderChats()
		})
	case "read":
		a.markRead(a.target())
	case "clear":
		a.run(a.vm.ClearAll, func() {
			a.pages.Reset(pageChats)
			a.focusCurrent()
			a.renderChats()
			a.flash.Info("All chats cleared")
		})
	case "help", "h":
		a.push(pageHelp)
	case "quit", "q":
		a.Stop()
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

// run calls fn off the UI goroutine and applies done on success.
func (a *App) run(fn func(ctx context.Context) error, done func()) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(done)
	}()
}

func (a *App) renderChats() {
	a.chats.Update(a.vm.Chats())
}

func (a *App) renderThread() {
	if c, ok := a.vm.Chat(a.vm.ActiveChatID()); ok {
		a.thread.SetChat(c)
	}
	a.thread.Update(a.vm.Messages())
}

func (a *App) renderInfo() {
	st := a.vm.Status()
	if st == nil {
		a.info.Update(&ui.ProfileData{Profile: a.profile})
		return
	}
	a.info.Update(&ui.ProfileData{
		Profile:      st.Profile,
		Session:      st.SessionID,
		Store:        st.StoreMode,
		Polling:      st.Polling,
		ChatCount:    st.ChatCount,
		MessageCount: st.MessageCount,
		Uptime:       time.Duration(st.UptimeMs) * time.Millisecond,
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.renderInfo()
	go func() {
		a.reload()
		go a.watchEvents()
		go a.watchFlash()
		a.refreshLoop()
	}()

	err := a.app.Run()
	a.cancel()
	return err
}

func (a *App) reload() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		a.flash.Err(fmt.Errorf("status: %w", err))
	}
	if err := a.vm.LoadChats(ctx); err != nil {
		a.flash.Err(fmt.Errorf("chats: %w", err))
	}
	a.app.QueueUpdateDraw(func() {
		a.renderInfo()
		a.renderChats()
	})
}

// refreshLoop reloads status and chats on a ticker as a fallback for
// missed events.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.reload()
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.GetMessage())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) watchFlash() {
	for {
		select {
		case msg := <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(&msg) })
		case <-a.ctx.Done():
			return
		}
	}
}

// watchEvents follows the daemon event stream and reconnects after a
// short delay when it breaks.
func (a *App) watchEvents() {
	for a.ctx.Err() == nil {
		err := a.consumeEvents()
		if a.ctx.Err() != nil {
			return
		}
		a.flash.Warn(fmt.Sprintf("event stream lost: %v", err))
		select {
		case <-time.After(reconnectDelay):
		case <-a.ctx.Done():
			return
		}
		a.reload()
	}
}

func (a *App) consumeEvents() error {
	stream, err := a.client.Watch(a.ctx, "")
	if err != nil {
		return err
	}
	for {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		chatsChanged, threadChanged := a.vm.Apply(evt)

		// Messages arriving in the open chat are read on sight.
		if evt.Kind == intsync.EventMessageReceived && threadChanged {
			a.markRead(evt.Message.ChatID)
		}
		if !chatsChanged && !threadChanged {
			continue
		}
		a.app.QueueUpdateDraw(func() {
			if chatsChanged {
				a.renderChats()
			}
			if threadChanged {
				if a.vm.ActiveChatID() == "" && a.pages.Current() == pageThread {
					a.pages.Reset(pageChats)
					a.focusCurrent()
					return
				}
				a.renderThread()
			}
		})
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
