package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/hookchat/internal/tui/ui"
)

// Binding ties a key to a handler. Label is how the key is drawn in the
// menu; a binding without Help is hidden from it.
type Binding struct {
	Key     tcell.Key
	Rune    rune
	Label   string
	Help    string
	Handler func()
}

// Matches returns true if the event matches this binding.
func (b Binding) Matches(ev *tcell.EventKey) bool {
	if b.Key != tcell.KeyRune {
		return ev.Key() == b.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == b.Rune
}

// Rune is shorthand for a binding on a printable key.
func Rune(r rune, help string, fn func()) Binding {
	return Binding{Key: tcell.KeyRune, Rune: r, Label: string(r), Help: help, Handler: fn}
}

// Registry resolves key events against per-view and global bindings.
// View bindings shadow global ones on the same key. Order of registration
// is the order hints are listed in.
type Registry struct {
	global []Binding
	views  map[string][]Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]Binding)}
}

// Global registers a binding active on every view.
func (r *Registry) Global(b Binding) {
	r.global = append(r.global, b)
}

// View registers a binding active only while view is on top.
func (r *Registry) View(view string, b Binding) {
	r.views[view] = append(r.views[view], b)
}

// Lookup returns the binding that handles ev on view.
func (r *Registry) Lookup(view string, ev *tcell.EventKey) (Binding, bool) {
	for _, b := range r.views[view] {
		if b.Matches(ev) {
			return b, true
		}
	}
	for _, b := range r.global {
		if b.Matches(ev) {
			return b, true
		}
	}
	return Binding{}, false
}

// Handle runs the binding for ev on view and reports whether one matched.
func (r *Registry) Handle(view string, ev *tcell.EventKey) bool {
	b, ok := r.Lookup(view, ev)
	if ok && b.Handler != nil {
		b.Handler()
	}
	return ok
}

// Hints lists the visible bindings of view followed by the global ones it
// does not shadow.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	seen := make(map[string]bool)
	add := func(bs []Binding) {
		for _, b := range bs {
			if b.Help == "" || seen[b.Label] {
				continue
			}
			seen[b.Label] = true
			hints = append(hints, ui.MenuHint{Key: b.Label, Description: b.Help})
		}
	}
	add(r.views[view])
	add(r.global)
	return hints
}
