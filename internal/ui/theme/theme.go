package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette: calm planner tones, loud sync states.
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#0EA5E9") // Sky
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
	Weekend   = lipgloss.Color("#475569") // Muted slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(18)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Failure = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Calendar
var (
	DayHeader = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true).
			Align(lipgloss.Center)

	DayHeaderToday = DayHeader.
			Foreground(Accent)

	DayHeaderWeekend = DayHeader.
				Foreground(Weekend)

	// Block is a synced schedule item.
	Block = lipgloss.NewStyle().
		Background(Primary).
		Foreground(Text)

	// BlockSelected is the item the keyboard cursor is on.
	BlockSelected = Block.
			Background(Accent).
			Foreground(BgDark).
			Bold(true)

	// BlockPreview is the item under an active gesture.
	BlockPreview = Block.
			Background(Secondary).
			Foreground(BgDark).
			Bold(true)

	// BlockPending has queued or in-flight remote work.
	BlockPending = Block.
			Background(Border).
			Italic(true)

	// BlockFailed has a failed create or a deferred delete.
	BlockFailed = Block.
			Background(Error)
)
