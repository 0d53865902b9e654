package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages is a navigation stack over tview.Pages. Only the top page is
// visible.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnChange sets a callback that fires after every stack change.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. Pushing the top page is a no-op;
// pushing a page further down pops back to it.
func (p *Pages) Push(name string) {
	switch i := slices.Index(p.stack, name); {
	case i == len(p.stack)-1 && i >= 0:
		return
	case i >= 0:
		p.truncate(i + 1)
	default:
		p.stack = append(p.stack, name)
	}
	p.show()
}

// Pop removes the top page and returns its name. The last page is never
// popped; Pop returns "" instead.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.truncate(len(p.stack) - 1)
	p.show()
	return top
}

// Current returns the name of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the page stack, bottom first.
func (p *Pages) Stack() []string {
	return slices.Clone(p.stack)
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset clears the stack and shows only name.
func (p *Pages) Reset(name string) {
	p.truncate(0)
	p.stack = append(p.stack, name)
	p.show()
}

func (p *Pages) truncate(n int) {
	for _, name := range p.stack[n:] {
		p.HidePage(name)
	}
	p.stack = p.stack[:n]
}

func (p *Pages) show() {
	top := p.Current()
	for _, name := range p.stack[:len(p.stack)-1] {
		p.HidePage(name)
	}
	p.ShowPage(top)
	p.SendToFront(top)
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
