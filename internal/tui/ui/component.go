package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // chat jump keys, drawn in their own color
}

// Component is a page of the main view stack.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
	// FocusTarget is the primitive that takes focus when the page is shown.
	FocusTarget() tview.Primitive
}
