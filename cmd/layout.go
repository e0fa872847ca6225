package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcal/internal/board"
	"github.com/abhisek/quizcal/internal/boardfile"
	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/interact"
	"github.com/abhisek/quizcal/internal/mutation"
	"github.com/abhisek/quizcal/internal/remote"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <board.yaml>",
	Short: "Print the lane layout of a board file",
	Long: "Packs the items of a board file into lanes for one seven day window " +
		"and prints where each visible item lands.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		asJSON, _ := cmd.Flags().GetBool("json")

		bf, err := boardfile.Load(args[0])
		if err != nil {
			return err
		}
		f, err := layoutFrame(cmd.Context(), bf, daykey.Key(start), time.Now())
		if err != nil {
			return err
		}
		if asJSON {
			return writeLayoutJSON(cmd.OutOrStdout(), f, bf.Location)
		}
		writeLayoutTable(cmd.OutOrStdout(), f, bf.Location)
		return nil
	},
}

func init() {
	layoutCmd.Flags().String("start", "", "First visible day, YYYY-MM-DD (default: the file's window_start, else today)")
	layoutCmd.Flags().Bool("json", false, "Print the layout as JSON")
}

// layoutFrame runs the board engine over the file's items, served from an
// in-memory backend.
func layoutFrame(ctx context.Context, bf *boardfile.Board, start daykey.Key, now time.Time) (board.Frame, error) {
	if start == "" {
		start = bf.WindowStart
	}
	if start != "" && !start.Valid() {
		return board.Frame{}, fmt.Errorf("invalid --start %q, want %s", start, daykey.Layout)
	}

	backend := remote.NewMock(bf.Items...)
	q := mutation.New(backend, nil)
	defer q.Close()

	b, err := board.New(q, board.Options{
		Location: bf.Location,
		Start:    start,
		Interact: interact.DefaultConfig(),
		Geometry: interact.Geometry{ColumnWidth: 1, ViewportRight: 7},
	}, now)
	if err != nil {
		return board.Frame{}, err
	}
	if err := b.Refresh(ctx, backend); err != nil {
		return board.Frame{}, err
	}
	return b.Frame(now), nil
}

type layoutJSON struct {
	WindowStart string           `json:"windowStart"`
	Days        []string         `json:"days"`
	LaneCount   int              `json:"laneCount"`
	Items       []layoutItemJSON `json:"items"`
}

type layoutItemJSON struct {
	ClientID     string    `json:"clientId"`
	Name         string    `json:"name,omitempty"`
	QuizID       string    `json:"quizId"`
	Lane         int       `json:"lane"`
	ColStart     int       `json:"colStart"`
	ColEnd       int       `json:"colEnd"`
	FirstDay     string    `json:"firstDay"`
	LastDay      string    `json:"lastDay"`
	ClippedLeft  bool      `json:"clippedLeft"`
	ClippedRight bool      `json:"clippedRight"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// visibleDays returns the first and last visible day an item covers.
func visibleDays(f board.Frame, p board.Placed) (daykey.Key, daykey.Key) {
	first, last := f.Bounds.VisibleColumns()
	from := min(max(p.ColStart, first), last)
	to := min(max(p.ColEnd, first), last)
	return f.Bounds.Day(from), f.Bounds.Day(to)
}

func writeLayoutJSON(w io.Writer, f board.Frame, loc *time.Location) error {
	out := layoutJSON{
		WindowStart: f.Window.Start.String(),
		LaneCount:   f.LaneCount,
		Items:       make([]layoutItemJSON, 0, len(f.Items)),
	}
	for _, d := range f.Days {
		out.Days = append(out.Days, d.String())
	}
	for _, p := range f.Items {
		from, to := visibleDays(f, p)
		out.Items = append(out.Items, layoutItemJSON{
			ClientID:     p.ClientID,
			Name:         p.Item.Name,
			QuizID:       p.Item.QuizID,
			Lane:         p.Lane,
			ColStart:     p.ColStart,
			ColEnd:       p.ColEnd,
			FirstDay:     from.String(),
			LastDay:      to.String(),
			ClippedLeft:  p.ClippedLeft,
			ClippedRight: p.ClippedRight,
			Start:        p.Item.StartDate.In(loc),
			End:          p.Item.EndDate.In(loc),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeLayoutTable(w io.Writer, f board.Frame, loc *time.Location) {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s → %s  (%d lanes)\n\n", bold("Window"),
		f.Bounds.VisibleStart, f.Bounds.VisibleEnd, f.LaneCount)

	if len(f.Items) == 0 {
		fmt.Fprintln(w, dim("Nothing scheduled in this window."))
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold("Lane"), bold("Name"), bold("Quiz"), bold("Days"), bold("Starts"), bold("Ends"))
	for _, p := range f.Items {
		from, to := visibleDays(f, p)
		days := fmt.Sprintf("%s..%s", from, to)
		if p.ClippedLeft {
			days = color.CyanString("‹") + days
		}
		if p.ClippedRight {
			days += color.CyanString("›")
		}
		tbl.AddRow(p.Lane, p.Item.Name, p.Item.QuizID, days,
			p.Item.StartDate.In(loc).Format("Mon Jan 2 15:04"),
			p.Item.EndDate.In(loc).Format("Mon Jan 2 15:04"))
	}
	fmt.Fprintln(w, tbl)
}
