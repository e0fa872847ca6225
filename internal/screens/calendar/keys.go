package calendar

import (
	"charm.land/bubbles/v2/key"

	"github.com/abhisek/quizcal/internal/ui/layout"
)

type keyMap struct {
	prevItem    key.Binding
	nextItem    key.Binding
	dragLeft    key.Binding
	dragRight   key.Binding
	grabStart   key.Binding
	grabEnd     key.Binding
	drop        key.Binding
	cancel      key.Binding
	pageBack    key.Binding
	pageForward key.Binding
	today       key.Binding
	remove      key.Binding
	create      key.Binding
	refresh     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		prevItem: key.NewBinding(
			key.WithKeys("up", "k", "shift+tab"),
			key.WithHelp("↑↓", "Select"),
		),
		nextItem: key.NewBinding(
			key.WithKeys("down", "j", "tab"),
			key.WithHelp("↑↓", "Select"),
		),
		dragLeft: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("⇧←→", "Move"),
		),
		dragRight: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("⇧←→", "Move"),
		),
		grabStart: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[ ]", "Resize"),
		),
		grabEnd: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("[ ]", "Resize"),
		),
		drop: key.NewBinding(
			key.WithKeys("enter", "space"),
			key.WithHelp("Enter", "Drop"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "Release"),
		),
		pageBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←→", "Page"),
		),
		pageForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("←→", "Page"),
		),
		today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Today"),
		),
		remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Delete"),
		),
		create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),
	}
}

func hint(b key.Binding) layout.KeyHint {
	h := b.Help()
	return layout.KeyHint{Key: h.Key, Description: h.Desc}
}

// idleHints are shown while no gesture is active. The footer fits the
// minimum terminal width, so selection, today and delete are left out.
func (k keyMap) idleHints() []layout.KeyHint {
	return []layout.KeyHint{
		hint(k.dragRight),
		hint(k.grabEnd),
		hint(k.pageForward),
		hint(k.create),
		{Key: "Enter", Description: "Details"},
	}
}

// gestureHints are shown while an item is being moved or resized.
func (k keyMap) gestureHints() []layout.KeyHint {
	return []layout.KeyHint{
		hint(k.dragRight),
		hint(k.drop),
		hint(k.cancel),
	}
}
