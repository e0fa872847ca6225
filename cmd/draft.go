package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcal/internal/boardfile"
	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/store"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Inspect the board saved on exit",
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the latest draft as a board file",
	Long: "Prints the most recent draft, including items the server never " +
		"confirmed, in the same YAML format the layout command reads.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		d, err := s.DraftRepo().Latest(cmd.Context())
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		return writeDraft(cmd.OutOrStdout(), d)
	},
}

func init() {
	draftCmd.AddCommand(draftShowCmd)
}

func writeDraft(w io.Writer, d *store.Draft) error {
	if d == nil {
		fmt.Fprintln(w, "No draft saved yet.")
		return nil
	}

	loc, err := daykey.LoadZone(d.Data.Timezone)
	if err != nil {
		loc = time.UTC
	}
	data, err := boardfile.Marshal(d.Data.Items, loc, daykey.Key(d.Data.WindowStart))
	if err != nil {
		return err
	}

	fmt.Fprintln(w, color.New(color.Faint).Sprintf("# draft %d saved %s, %d items",
		d.ID, d.Timestamp.Local().Format("2006-01-02 15:04:05"), len(d.Data.Items)))
	_, err = w.Write(data)
	return err
}
