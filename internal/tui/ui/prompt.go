package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what a submitted prompt does.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historySize = 50

// Prompt is the ':' command and '/' filter input. Submitted commands are
// kept in a history recalled with Up and Down.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	onSubmit func(mode PromptMode, text string)
	onCancel func()

	history []string
	// cursor indexes history while browsing; len(history) is the blank line.
	cursor int
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			p.submit(p.GetText())
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyUp:
			p.SetText(p.recall(-1))
			return nil
		case tcell.KeyDown:
			p.SetText(p.recall(1))
			return nil
		}
		return ev
	})

	return p
}

// SetOnSubmit sets the callback when the prompt is submitted.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate readies the prompt for mode with initial text already typed.
func (p *Prompt) Activate(mode PromptMode, initial string) {
	p.mode = mode
	p.cursor = len(p.history)
	p.SetText(initial)
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}

// submit fires onSubmit. An empty filter is submitted so it can clear the
// active one; an empty command is dropped.
func (p *Prompt) submit(text string) {
	p.SetText("")
	if p.mode == PromptCommand {
		if text == "" {
			if p.onCancel != nil {
				p.onCancel()
			}
			return
		}
		p.remember(text)
	}
	if p.onSubmit != nil {
		p.onSubmit(p.mode, text)
	}
}

func (p *Prompt) remember(text string) {
	if n := len(p.history); n > 0 && p.history[n-1] == text {
		return
	}
	p.history = append(p.history, text)
	if len(p.history) > historySize {
		p.history = p.history[len(p.history)-historySize:]
	}
}

// recall moves the history cursor by delta and returns the entry under it.
func (p *Prompt) recall(delta int) string {
	p.cursor = min(max(p.cursor+delta, 0), len(p.history))
	if p.cursor == len(p.history) {
		return ""
	}
	return p.history[p.cursor]
}
