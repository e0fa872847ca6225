// Package itemdetail shows one schedule item with its sync state and lets
// the user edit its policy fields, retry a failed create, or create a new
// item.
package itemdetail

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcal/internal/board"
	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/mutation"
	"github.com/abhisek/quizcal/internal/router"
	"github.com/abhisek/quizcal/internal/schedule"
	"github.com/abhisek/quizcal/internal/screen"
	"github.com/abhisek/quizcal/internal/ui/components"
	"github.com/abhisek/quizcal/internal/ui/layout"
	"github.com/abhisek/quizcal/internal/ui/theme"
)

// Result is handed back to the calendar when the screen closes.
type Result struct {
	ClientID string
	Notice   string
	Failed   bool
}

type action int

const (
	actionSave action = iota
	actionCreate
	actionToggleAnswers
	actionRetry
	actionDiscard
	actionDelete
	actionBack
)

type actionMsg action

// Field keys match the JSON names validation errors are reported under.
const (
	keyQuiz     = "quizId"
	keyRoot     = "quizRootId"
	keyVersion  = "quizVersion"
	keyStart    = "startDate"
	keyDays     = "endDate"
	keyAttempts = "attemptsAllowed"
	keyContrib  = "contribution"
)

// Screen is the item detail and create form.
type Screen struct {
	board    *board.Board
	creating bool
	clientID string

	keys   []string
	fields map[string]*components.Field
	focus  int // len(keys) means the menu has focus
	menu   components.Menu

	showAnswers bool
	notice      string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New opens the details of the item with clientID.
func New(b *board.Board, clientID string) *Screen {
	s := &Screen{board: b, clientID: clientID, fields: map[string]*components.Field{}}
	it, _ := b.Queue().Item(clientID)
	s.showAnswers = it.ShowAnswersAfterAttempt

	s.addField(keyAttempts, "Attempts", "1", true)
	s.fields[keyAttempts].SetValue(strconv.Itoa(it.AttemptsAllowed))
	s.addField(keyContrib, "Contribution", "optional weight", false)
	if it.Contribution != nil {
		s.fields[keyContrib].SetValue(strconv.FormatFloat(*it.Contribution, 'f', -1, 64))
	}
	s.buildMenu()
	s.focus = len(s.keys)
	return s
}

// NewCreate opens an empty form for a new item starting on day.
func NewCreate(b *board.Board, day daykey.Key) *Screen {
	s := &Screen{board: b, creating: true, fields: map[string]*components.Field{}}
	s.addField(keyQuiz, "Quiz", "quiz id", false)
	s.addField(keyRoot, "Quiz root", "same as quiz", false)
	s.addField(keyVersion, "Version", "0", true)
	s.addField(keyStart, "Starts", daykey.Layout, false)
	s.fields[keyStart].SetValue(day.String())
	s.addField(keyDays, "Days", "1", true)
	s.fields[keyDays].SetValue("1")
	s.addField(keyAttempts, "Attempts", "1", true)
	s.fields[keyAttempts].SetValue("1")
	s.buildMenu()
	s.fields[keyQuiz].Focus()
	return s
}

func (s *Screen) addField(key, label, placeholder string, numeric bool) {
	f := components.NewField(label, placeholder, numeric, 64)
	s.keys = append(s.keys, key)
	s.fields[key] = &f
}

func (s *Screen) buildMenu() {
	do := func(a action) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return actionMsg(a) }
		}
	}
	answers := "Show answers after attempt: off"
	if s.showAnswers {
		answers = "Show answers after attempt: on"
	}

	if s.creating {
		s.menu = components.NewMenu([]components.MenuItem{
			{Label: "Create", Action: do(actionCreate)},
			{Label: answers, Action: do(actionToggleAnswers)},
			{Label: "Back", Action: do(actionBack)},
		})
		return
	}

	st := s.board.Queue().Pending(s.clientID)
	it, _ := s.board.Queue().Item(s.clientID)
	unsent := !it.Persisted() && st.ServerID == ""
	selected := s.menu.Selected
	s.menu = components.NewMenu([]components.MenuItem{
		{Label: "Save changes", Action: do(actionSave)},
		{Label: answers, Action: do(actionToggleAnswers)},
		{Label: "Retry create", Action: do(actionRetry), Disabled: st.CreateErr == nil},
		{Label: "Discard", Action: do(actionDiscard), Disabled: !unsent || st.Creating},
		{Label: "Delete", Action: do(actionDelete), Disabled: st.DeletePending},
		{Label: "Back", Action: do(actionBack)},
	})
	if selected > 0 && selected < len(s.menu.Items) && !s.menu.Items[selected].Disabled {
		s.menu.Selected = selected
	}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	if s.creating {
		return "New Schedule"
	}
	return "Schedule Details"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Esc", Description: "Back"},
	}
}

// Field returns the input for a JSON field name, for tests and callers
// pre-filling the form.
func (s *Screen) Field(key string) *components.Field {
	return s.fields[key]
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		return s, s.run(action(msg))
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			return s, s.moveFocus(1)
		case "shift+tab":
			return s, s.moveFocus(-1)
		}
		if s.focus == len(s.keys) {
			var cmd tea.Cmd
			s.menu, cmd = s.menu.Update(msg)
			return s, cmd
		}
		switch msg.String() {
		case "up":
			return s, s.moveFocus(-1)
		case "down", "enter":
			return s, s.moveFocus(1)
		}
	}

	if s.focus < len(s.keys) {
		f := s.fields[s.keys[s.focus]]
		updated, cmd := f.Update(msg)
		*f = updated
		return s, cmd
	}
	return s, nil
}

func (s *Screen) moveFocus(delta int) tea.Cmd {
	if s.focus < len(s.keys) {
		s.fields[s.keys[s.focus]].Blur()
	}
	n := len(s.keys) + 1
	s.focus = (s.focus + delta + n) % n
	if s.focus < len(s.keys) {
		return s.fields[s.keys[s.focus]].Focus()
	}
	return nil
}

func (s *Screen) run(a action) tea.Cmd {
	s.notice = ""
	switch a {
	case actionToggleAnswers:
		s.showAnswers = !s.showAnswers
		selected := s.menu.Selected
		s.buildMenu()
		s.menu.Selected = selected
		return nil
	case actionBack:
		return router.Pop(nil)
	case actionCreate:
		return s.create()
	case actionSave:
		return s.save()
	}

	it, ok := s.board.Queue().Item(s.clientID)
	if !ok {
		return router.Pop(Result{Notice: "Item no longer exists", Failed: true})
	}
	var err error
	var notice string
	switch a {
	case actionRetry:
		err = s.board.Queue().RetryCreate(it.ClientID)
		notice = fmt.Sprintf("Retrying %s", displayName(it))
	case actionDiscard:
		err = s.board.Queue().Discard(it.ClientID)
		notice = fmt.Sprintf("Discarded %s", displayName(it))
	case actionDelete:
		err = s.board.Delete(it.ClientID, time.Now())
		notice = fmt.Sprintf("Deleted %s", displayName(it))
	}
	if err != nil {
		s.notice = err.Error()
		s.buildMenu()
		return nil
	}
	return router.Pop(Result{ClientID: it.ClientID, Notice: notice})
}

func (s *Screen) save() tea.Cmd {
	it, ok := s.board.Queue().Item(s.clientID)
	if !ok {
		return router.Pop(Result{Notice: "Item no longer exists", Failed: true})
	}

	var p schedule.Patch
	attempts, err := s.fields[keyAttempts].IntValue()
	if err != nil {
		s.fields[keyAttempts].SetError("must be a number")
		return nil
	}
	if attempts != it.AttemptsAllowed {
		p.AttemptsAllowed = &attempts
	}
	if raw := strings.TrimSpace(s.fields[keyContrib].Value()); raw != "" {
		c, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.fields[keyContrib].SetError("must be a number")
			return nil
		}
		if it.Contribution == nil || *it.Contribution != c {
			p.Contribution = &c
		}
	}
	if s.showAnswers != it.ShowAnswersAfterAttempt {
		show := s.showAnswers
		p.ShowAnswersAfterAttempt = &show
	}

	if p.Empty() {
		return router.Pop(Result{ClientID: it.ClientID})
	}
	if err := schedule.Validate(p.Apply(it)); err != nil {
		s.showErrors(err)
		return nil
	}
	if err := s.board.Edit(it.ClientID, p); err != nil {
		s.showErrors(err)
		return nil
	}
	return router.Pop(Result{ClientID: it.ClientID, Notice: fmt.Sprintf("Updated %s", displayName(it))})
}

func (s *Screen) create() tea.Cmd {
	quiz := strings.TrimSpace(s.fields[keyQuiz].Value())
	root := strings.TrimSpace(s.fields[keyRoot].Value())
	if root == "" {
		root = quiz
	}

	start, err := daykey.Parse(strings.TrimSpace(s.fields[keyStart].Value()))
	if err != nil {
		s.fields[keyStart].SetError("use " + daykey.Layout)
		return nil
	}
	ints := map[string]int{}
	for _, key := range []string{keyVersion, keyDays, keyAttempts} {
		raw := s.fields[key].Value()
		if raw == "" && key == keyVersion {
			continue
		}
		n, err := s.fields[key].IntValue()
		if err != nil {
			s.fields[key].SetError("must be a number")
			return nil
		}
		ints[key] = n
	}

	loc := s.board.Location()
	it := schedule.Item{
		QuizID:                  quiz,
		QuizRootID:              root,
		QuizVersion:             ints[keyVersion],
		StartDate:               daykey.StartOfDay(start, loc),
		EndDate:                 daykey.EndOfDay(daykey.AddDays(start, ints[keyDays]-1), loc),
		AttemptsAllowed:         ints[keyAttempts],
		ShowAnswersAfterAttempt: s.showAnswers,
	}
	if ints[keyAttempts] < 1 {
		s.fields[keyAttempts].SetError("must be at least 1")
		return nil
	}

	created, err := s.board.Create(it)
	if err != nil {
		s.showErrors(err)
		return nil
	}
	return router.Pop(Result{ClientID: created.ClientID, Notice: fmt.Sprintf("Scheduled %s", displayName(created))})
}

// showErrors puts field errors under their inputs and anything else in
// the notice line.
func (s *Screen) showErrors(err error) {
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) {
		s.notice = err.Error()
		return
	}
	s.notice = ve.Message
	for _, fe := range ve.Fields {
		if f, ok := s.fields[fe.Field]; ok {
			f.SetError(fe.Error)
		} else {
			s.notice = ve.Error()
		}
	}
}

// Notice returns the message shown above the menu.
func (s *Screen) Notice() string { return s.notice }

func (s *Screen) View(width, height int) string {
	var b strings.Builder

	if !s.creating {
		b.WriteString(s.renderItem())
		b.WriteString("\n")
	}

	for i, key := range s.keys {
		f := s.fields[key]
		view := f.View()
		if i == s.focus {
			view = theme.Selected.Render("▸ ") + view
		} else {
			view = "  " + view
		}
		b.WriteString(view)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if s.notice != "" {
		b.WriteString(theme.Failure.Render("  " + layout.Truncate(s.notice, width-4)))
		b.WriteString("\n\n")
	}

	menu := s.menu
	if s.focus != len(s.keys) {
		menu.Selected = -1
	}
	b.WriteString(menu.View())

	return lipgloss.NewStyle().Padding(1, 2).MaxWidth(width).MaxHeight(height).Render(b.String())
}

func (s *Screen) renderItem() string {
	it, ok := s.board.Queue().Item(s.clientID)
	if !ok {
		return theme.Hint.Render("This item is gone.") + "\n"
	}
	st := s.board.Queue().Pending(s.clientID)
	loc := s.board.Location()

	rows := [][2]string{
		{"Name", displayName(it)},
		{"Subject", it.Subject},
		{"Quiz", fmt.Sprintf("%s (root %s, v%d)", it.QuizID, it.QuizRootID, it.QuizVersion)},
		{"Starts", it.StartDate.In(loc).Format("Mon Jan 2, 2006 15:04")},
		{"Ends", it.EndDate.In(loc).Format("Mon Jan 2, 2006 15:04")},
		{"Server id", orDash(it.ServerID)},
		{"Sync", syncState(st)},
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render(displayName(it)))
	b.WriteString("\n\n")
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		b.WriteString("  " + theme.Label.Render(r[0]) + theme.Body.Render(r[1]) + "\n")
	}
	if st.CreateErr != nil {
		b.WriteString("  " + theme.Label.Render("") + theme.Failure.Render(st.CreateErr.Error()) + "\n")
	}
	return b.String()
}

func syncState(st mutation.Status) string {
	switch {
	case st.Creating:
		return "saving…"
	case st.CreateErr != nil:
		return "create failed"
	case st.DeletePending && st.LastErr != nil:
		return "delete waiting to retry"
	case st.DeletePending:
		return "deleting…"
	case st.EditPending || st.Draining:
		return "syncing changes…"
	default:
		return "saved"
	}
}

func displayName(it schedule.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return it.QuizID
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
