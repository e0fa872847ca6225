package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/quizcal/internal/ui/layout"
)

// Screen is one page of the board UI: the calendar or an item's details.
type Screen interface {
	Init() tea.Cmd

	// Update handles a message and returns the updated screen. Screens are
	// pointers, so returning the receiver is the common case.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area only. The app draws header and footer.
	View(width, height int) string

	// Title is shown on the left of the header.
	Title() string
}

// KeyHintProvider is implemented by screens whose footer hints change with
// their state, e.g. while an item is being dragged.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is implemented by screens that show a short status on the
// right of the header, such as pending sync work.
type StatusProvider interface {
	Status() string
}
