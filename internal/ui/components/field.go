package components

import (
	"strconv"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcal/internal/ui/theme"
)

// Field is a labelled text input that can show a validation message
// underneath, e.g. a field error returned by the schedule service.
type Field struct {
	Label       string
	Model       textinput.Model
	NumericOnly bool
	err         string
}

// NewField creates an unfocused field.
func NewField(label, placeholder string, numericOnly bool, maxWidth int) Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if maxWidth > 0 {
		ti.CharLimit = maxWidth
	}
	return Field{Label: label, Model: ti, NumericOnly: numericOnly}
}

// Focus focuses the input.
func (f *Field) Focus() tea.Cmd {
	return f.Model.Focus()
}

// Blur removes focus.
func (f *Field) Blur() {
	f.Model.Blur()
}

// Update handles messages. Non-digit keys are dropped for numeric fields.
func (f Field) Update(msg tea.Msg) (Field, tea.Cmd) {
	if f.NumericOnly {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			key := kmsg.String()
			if len(key) == 1 {
				if key[0] < '0' || key[0] > '9' {
					return f, nil
				}
			}
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		f.err = ""
	}
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd
}

// View renders the label, the input and any error.
func (f Field) View() string {
	view := theme.Label.Render(f.Label) + f.Model.View()
	if f.err != "" {
		view += "\n" + theme.Label.Render("") +
			lipgloss.NewStyle().Foreground(theme.Error).Render("✗ "+f.err)
	}
	return view
}

// Value returns the current input value.
func (f Field) Value() string {
	return f.Model.Value()
}

// SetValue replaces the input value.
func (f *Field) SetValue(s string) {
	f.Model.SetValue(s)
}

// IntValue returns the input value as an integer.
func (f Field) IntValue() (int, error) {
	return strconv.Atoi(f.Model.Value())
}

// SetError shows msg under the field until the next edit. An empty msg
// clears it.
func (f *Field) SetError(msg string) {
	f.err = msg
}

// Error returns the message shown under the field.
func (f Field) Error() string {
	return f.err
}
