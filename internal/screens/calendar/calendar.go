// Package calendar is the terminal board: a seven day window of schedule
// items packed into lanes, driven from the keyboard.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcal/internal/board"
	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/interact"
	"github.com/abhisek/quizcal/internal/mutation"
	"github.com/abhisek/quizcal/internal/router"
	"github.com/abhisek/quizcal/internal/schedule"
	"github.com/abhisek/quizcal/internal/screen"
	"github.com/abhisek/quizcal/internal/screens/itemdetail"
	"github.com/abhisek/quizcal/internal/track"
	"github.com/abhisek/quizcal/internal/ui/layout"
	"github.com/abhisek/quizcal/internal/ui/theme"
)

const (
	// cellPixels converts terminal cells into pointer units so the
	// tracker's edge zones keep their meaning in a terminal.
	cellPixels = 8

	minColumnWidth = 8
	tickInterval   = 100 * time.Millisecond
	refreshTimeout = 15 * time.Second

	// detailRows is the space below the lanes for the selection summary
	// and the last notice.
	detailRows = 3
)

type tickMsg time.Time

type listedMsg struct {
	items []schedule.Item
	err   error
}

type syncMsg mutation.Event

// Screen renders a board.Frame and turns key presses into pointer
// gestures on the board.
type Screen struct {
	board  *board.Board
	lister board.Lister
	keys   keyMap
	now    func() time.Time

	colWidth int
	frame    board.Frame
	selected string

	pointerX float64
	loading  bool
	notice   string
	failed   bool

	// loadedFrom and loadedTo are the range of the last list. Zero until
	// the first one.
	loadedFrom time.Time
	loadedTo   time.Time
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the calendar screen over b. lister may be nil, in which case
// nothing is loaded on start.
func New(b *board.Board, lister board.Lister) *Screen {
	s := &Screen{
		board:    b,
		lister:   lister,
		keys:     newKeyMap(),
		now:      time.Now,
		colWidth: minColumnWidth + 3,
	}
	s.applyGeometry()
	s.rebuild()
	return s
}

func (s *Screen) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(s.board.Queue().Events()), tick()}
	if s.lister != nil {
		s.loading = true
		cmds = append(cmds, s.list())
	}
	return tea.Batch(cmds...)
}

func (s *Screen) Title() string {
	w := s.board.Window()
	first := daykey.StartOfDay(w.VisibleStart(), s.board.Location())
	last := daykey.StartOfDay(w.VisibleEnd(), s.board.Location())
	return fmt.Sprintf("%s – %s", first.Format("Jan 2"), last.Format("Jan 2, 2006"))
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.frame.State != interact.Idle {
		return s.keys.gestureHints()
	}
	return s.keys.idleHints()
}

// Status summarizes items with remote work outstanding.
func (s *Screen) Status() string {
	syncing, failed := 0, 0
	for _, p := range s.frame.Items {
		switch {
		case failedStatus(p.Status):
			failed++
		case !p.Status.Idle():
			syncing++
		}
	}
	var parts []string
	if syncing > 0 {
		parts = append(parts, fmt.Sprintf("%d syncing", syncing))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	return strings.Join(parts, " · ")
}

// Selected returns the client id under the cursor.
func (s *Screen) Selected() string { return s.selected }

// Frame returns the last frame the screen rendered from.
func (s *Screen) Frame() board.Frame { return s.frame }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.colWidth = max(minColumnWidth, msg.Width/track.VisibleDays)
		s.applyGeometry()

	case tickMsg:
		s.board.Tick(s.now())
		cmd = tick()

	case listedMsg:
		s.loading = false
		if msg.err != nil {
			s.setNotice(fmt.Sprintf("Could not load schedules: %v", msg.err), true)
		} else {
			s.board.Queue().Load(msg.items)
		}

	case syncMsg:
		s.onSync(mutation.Event(msg))
		cmd = waitForEvent(s.board.Queue().Events())

	case router.ResultMsg:
		if r, ok := msg.Result.(itemdetail.Result); ok {
			if r.ClientID != "" {
				s.selected = r.ClientID
			}
			s.setNotice(r.Notice, r.Failed)
		}

	case tea.KeyMsg:
		cmd = s.handleKey(msg)
	}

	s.rebuild()
	if load := s.loadIfStale(); load != nil {
		cmd = tea.Batch(cmd, load)
	}
	return s, cmd
}

// loadIfStale lists again once the track has moved past everything loaded
// so far. It waits for slides to settle so a GoTo plan lists once.
func (s *Screen) loadIfStale() tea.Cmd {
	if s.lister == nil || s.loading || s.loadedTo.IsZero() || s.frame.Sliding {
		return nil
	}
	from, to := s.board.TrackRange()
	if !from.Before(s.loadedFrom) && !to.After(s.loadedTo) {
		return nil
	}
	s.loading = true
	return s.list()
}

func (s *Screen) handleKey(msg tea.KeyMsg) tea.Cmd {
	now := s.now()
	if s.board.Tracker().State() != interact.Idle {
		return s.handleGestureKey(msg, now)
	}

	switch {
	case key.Matches(msg, s.keys.prevItem):
		s.step(-1)
	case key.Matches(msg, s.keys.nextItem):
		s.step(1)
	case key.Matches(msg, s.keys.dragLeft):
		s.beginDrag(-1, now)
	case key.Matches(msg, s.keys.dragRight):
		s.beginDrag(1, now)
	case key.Matches(msg, s.keys.grabStart):
		s.beginResize(interact.EdgeStart, now)
	case key.Matches(msg, s.keys.grabEnd):
		s.beginResize(interact.EdgeEnd, now)
	case key.Matches(msg, s.keys.pageBack):
		s.board.Page(track.Backward, now)
	case key.Matches(msg, s.keys.pageForward):
		s.board.Page(track.Forward, now)
	case key.Matches(msg, s.keys.today):
		if _, err := s.board.Today(now); err != nil && !errors.Is(err, track.ErrSliding) {
			s.setNotice(err.Error(), true)
		}
	case key.Matches(msg, s.keys.remove):
		s.remove(now)
	case key.Matches(msg, s.keys.create):
		return router.Push(itemdetail.NewCreate(s.board, s.board.Window().VisibleStart()))
	case key.Matches(msg, s.keys.refresh):
		if s.lister != nil && !s.loading {
			s.loading = true
			return s.list()
		}
	case msg.String() == "enter":
		if _, ok := s.board.Queue().Item(s.selected); ok {
			return router.Push(itemdetail.New(s.board, s.selected))
		}
	}
	return nil
}

func (s *Screen) handleGestureKey(msg tea.KeyMsg, now time.Time) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.dragLeft), key.Matches(msg, s.keys.pageBack):
		s.movePointer(-1, now)
	case key.Matches(msg, s.keys.dragRight), key.Matches(msg, s.keys.pageForward):
		s.movePointer(1, now)
	case key.Matches(msg, s.keys.drop):
		s.finish(s.board.PointerUp(now))
	case key.Matches(msg, s.keys.cancel):
		s.finish(s.board.PointerCancel(now))
	}
	return nil
}

func (s *Screen) beginDrag(dir int, now time.Time) {
	p, ok := s.placed(s.selected)
	if !ok {
		return
	}
	s.pointerX = s.columnCenter(p.ColStart)
	if err := s.board.PointerDown(p.ClientID, s.pointerX, now); err != nil {
		s.setNotice(err.Error(), true)
		return
	}
	s.movePointer(dir, now)
}

func (s *Screen) beginResize(edge interact.Edge, now time.Time) {
	p, ok := s.placed(s.selected)
	if !ok {
		return
	}
	col := p.ColStart
	if edge == interact.EdgeEnd {
		col = p.ColEnd
	}
	s.pointerX = s.columnCenter(col)
	if err := s.board.GrabEdge(p.ClientID, edge, s.pointerX, now); err != nil {
		s.setNotice(err.Error(), true)
	}
}

// movePointer moves the emulated pointer one column, clamped to the
// viewport. Resting at an edge lets tick messages auto-slide the window.
func (s *Screen) movePointer(dir int, now time.Time) {
	px := float64(s.colWidth * cellPixels)
	right := px * track.VisibleDays
	s.pointerX = min(max(s.pointerX+float64(dir)*px, 0), right)
	s.board.PointerMove(s.pointerX, now)
}

func (s *Screen) finish(committed bool, err error) {
	switch {
	case err != nil:
		s.setNotice(err.Error(), true)
	case committed:
		it, _ := s.board.Queue().Item(s.selected)
		s.setNotice(fmt.Sprintf("Rescheduled %s", label(it)), false)
	}
}

func (s *Screen) remove(now time.Time) {
	it, ok := s.board.Queue().Item(s.selected)
	if !ok {
		return
	}
	if err := s.board.Delete(it.ClientID, now); err != nil {
		s.setNotice(fmt.Sprintf("Delete %s: %v", label(it), err), true)
		return
	}
	s.setNotice(fmt.Sprintf("Deleted %s", label(it)), false)
	s.step(1)
}

func (s *Screen) onSync(ev mutation.Event) {
	name := ev.ClientID
	if it, ok := s.board.Queue().Item(ev.ClientID); ok {
		name = label(it)
	}
	switch ev.Kind {
	case mutation.Failed:
		s.setNotice(fmt.Sprintf("Could not %s %s: %v", ev.Op, name, ev.Err), true)
	case mutation.RolledBack:
		s.setNotice(fmt.Sprintf("Reverted %s: %v", name, ev.Err), true)
	case mutation.Created:
		s.setNotice(fmt.Sprintf("Saved %s", name), false)
	}
}

func (s *Screen) setNotice(msg string, failed bool) {
	s.notice = msg
	s.failed = failed
}

// step moves the cursor through the visible items in reading order.
func (s *Screen) step(delta int) {
	order := s.order()
	if len(order) == 0 {
		s.selected = ""
		return
	}
	i := slices.Index(order, s.selected)
	if i < 0 {
		s.selected = order[0]
		return
	}
	s.selected = order[(i+delta+len(order))%len(order)]
}

func (s *Screen) order() []string {
	items := slices.Clone(s.frame.Items)
	slices.SortStableFunc(items, func(a, b board.Placed) int {
		if a.ColStart != b.ColStart {
			return a.ColStart - b.ColStart
		}
		return a.Lane - b.Lane
	})
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ClientID
	}
	return ids
}

func (s *Screen) placed(id string) (board.Placed, bool) {
	for _, p := range s.frame.Items {
		if p.ClientID == id {
			return p, true
		}
	}
	return board.Placed{}, false
}

// columnCenter returns the pointer position at the middle of a track
// column, clamped to the visible window.
func (s *Screen) columnCenter(col int) float64 {
	first, last := s.frame.Bounds.VisibleColumns()
	col = min(max(col, first), last)
	px := float64(s.colWidth * cellPixels)
	return (float64(col-first) + 0.5) * px
}

func (s *Screen) applyGeometry() {
	px := float64(s.colWidth * cellPixels)
	_ = s.board.SetGeometry(interact.Geometry{
		ColumnWidth:   px,
		ViewportLeft:  0,
		ViewportRight: px * track.VisibleDays,
	})
}

func (s *Screen) rebuild() {
	s.frame = s.board.Frame(s.now())
	if _, ok := s.placed(s.selected); !ok && s.frame.State == interact.Idle {
		if _, exists := s.board.Queue().Item(s.selected); !exists {
			s.selected = ""
		}
		if s.selected == "" {
			if order := s.order(); len(order) > 0 {
				s.selected = order[0]
			}
		}
	}
}

func (s *Screen) list() tea.Cmd {
	from, to := s.board.TrackRange()
	s.loadedFrom, s.loadedTo = from, to
	lister := s.lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		items, err := lister.List(ctx, from, to)
		return listedMsg{items: items, err: err}
	}
}

func waitForEvent(ch <-chan mutation.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return syncMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (s *Screen) View(width, height int) string {
	colWidth := min(s.colWidth, width/track.VisibleDays)
	if colWidth <= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(s.renderDays(colWidth))
	b.WriteString("\n")

	rows := max(height-detailRows-2, 1)
	b.WriteString(s.renderLanes(colWidth, rows))
	b.WriteString("\n")
	b.WriteString(s.renderDetail(width))
	return b.String()
}

func (s *Screen) renderDays(colWidth int) string {
	today := daykey.Today(s.now(), s.board.Location())
	cells := make([]string, 0, len(s.frame.Days))
	for _, d := range s.frame.Days {
		t := daykey.StartOfDay(d, s.board.Location())
		text := t.Format("Mon 2")
		if colWidth >= 12 {
			text = t.Format("Mon Jan 2")
		}
		style := theme.DayHeader
		switch {
		case d == today:
			style = theme.DayHeaderToday
		case d.Weekday() == time.Saturday || d.Weekday() == time.Sunday:
			style = theme.DayHeaderWeekend
		}
		cells = append(cells, style.Width(colWidth).Render(layout.Truncate(text, colWidth)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (s *Screen) renderLanes(colWidth, rows int) string {
	if s.loading && len(s.frame.Items) == 0 {
		return theme.Hint.Render("  Loading schedules…")
	}
	if s.frame.LaneCount == 0 {
		return theme.Hint.Render("  Nothing scheduled this week. Press n to add a quiz.")
	}

	byLane := make([][]board.Placed, s.frame.LaneCount)
	selLane := 0
	for _, p := range s.frame.Items {
		if p.Lane < len(byLane) {
			byLane[p.Lane] = append(byLane[p.Lane], p)
		}
		if p.ClientID == s.selected {
			selLane = p.Lane
		}
	}

	offset := 0
	if s.frame.LaneCount > rows {
		rows--
		offset = max(0, selLane-rows+1)
	}

	lines := make([]string, 0, rows+1)
	for lane := offset; lane < min(offset+rows, len(byLane)); lane++ {
		lines = append(lines, s.renderLane(byLane[lane], colWidth))
	}
	if hidden := s.frame.LaneCount - len(lines); hidden > 0 {
		lines = append(lines, theme.Hint.Render(fmt.Sprintf("  +%d more lanes", hidden)))
	}
	return strings.Join(lines, "\n")
}

func (s *Screen) renderLane(items []board.Placed, colWidth int) string {
	slices.SortFunc(items, func(a, b board.Placed) int { return a.ColStart - b.ColStart })
	first, last := s.frame.Bounds.VisibleColumns()

	var b strings.Builder
	cursor := 0
	for _, p := range items {
		from := min(max(p.ColStart, first), last) - first
		to := min(max(p.ColEnd, first), last) - first
		from = max(from, cursor)
		if to < from {
			continue
		}
		b.WriteString(strings.Repeat(" ", (from-cursor)*colWidth))
		b.WriteString(s.renderBlock(p, (to-from+1)*colWidth))
		cursor = to + 1
	}
	return b.String()
}

func (s *Screen) renderBlock(p board.Placed, width int) string {
	text := label(p.Item)
	switch {
	case p.Status.Creating:
		text = "◌ " + text
	case failedStatus(p.Status):
		text = "! " + text
	case !p.Status.Idle():
		text = "~ " + text
	}

	left, right := " ", " "
	if p.ClippedLeft {
		left = "‹"
	}
	if p.ClippedRight {
		right = "›"
	}
	inner := layout.Truncate(text, width-2)
	pad := max(0, width-2-lipgloss.Width(inner))
	text = left + inner + strings.Repeat(" ", pad) + right

	style := theme.Block
	switch {
	case p.Preview:
		style = theme.BlockPreview
	case p.ClientID == s.selected:
		style = theme.BlockSelected
	case failedStatus(p.Status):
		style = theme.BlockFailed
	case !p.Status.Idle():
		style = theme.BlockPending
	}
	return style.Render(text)
}

func (s *Screen) renderDetail(width int) string {
	var lines []string
	if it, ok := s.board.Queue().Item(s.selected); ok {
		loc := s.board.Location()
		summary := fmt.Sprintf("  %s · %s v%d · %s → %s · %d attempt(s)",
			label(it), it.QuizID, it.QuizVersion,
			it.StartDate.In(loc).Format("Mon Jan 2 15:04"),
			it.EndDate.In(loc).Format("Mon Jan 2 15:04"),
			it.AttemptsAllowed)
		lines = append(lines, theme.Body.Render(layout.Truncate(summary, width)))
	} else {
		lines = append(lines, "")
	}
	if s.notice != "" {
		style := theme.Hint
		if s.failed {
			style = theme.Failure
		}
		lines = append(lines, style.Render(layout.Truncate("  "+s.notice, width)))
	}
	return "\n" + strings.Join(lines, "\n")
}

// failedStatus reports a failed create or a delete waiting on a retry.
func failedStatus(st mutation.Status) bool {
	return st.CreateErr != nil || (st.DeletePending && st.LastErr != nil)
}

func label(it schedule.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return it.QuizID
}
