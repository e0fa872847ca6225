package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcal/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect the journal of calls to the schedule service",
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sync events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		op, _ := cmd.Flags().GetString("op")
		client, _ := cmd.Flags().GetString("client")
		failedOnly, _ := cmd.Flags().GetBool("failed")

		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.EventRepo().ListSyncEvents(cmd.Context(), store.QueryOpts{
			Limit:    limit,
			Op:       op,
			ClientID: client,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if failedOnly {
			kept := events[:0]
			for _, e := range events {
				if !e.Success {
					kept = append(kept, e)
				}
			}
			events = kept
		}

		writeSyncEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

var syncStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show call counts, failures and latency per operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		stats, err := s.EventRepo().Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("query stats: %w", err)
		}
		writeSyncStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	syncListCmd.Flags().Int("limit", 20, "Maximum number of events to show")
	syncListCmd.Flags().String("op", "", "Only show events for this operation (create, edit, delete, list)")
	syncListCmd.Flags().String("client", "", "Only show events for this client id")
	syncListCmd.Flags().Bool("failed", false, "Only show failed calls")

	syncCmd.AddCommand(syncListCmd)
	syncCmd.AddCommand(syncStatsCmd)
}

func writeSyncEvents(w io.Writer, events []store.SyncEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No sync events found.")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold("Seq"), bold("Time"), bold("Op"), bold("Client"), bold("Server"), bold("Ms"), bold("Result"))
	for _, e := range events {
		result := color.GreenString("ok")
		if !e.Success {
			result = color.RedString("%s: %s", e.ErrorKind, e.ErrorMessage)
		}
		tbl.AddRow(e.Sequence,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Op,
			shortID(e.ClientID),
			e.ServerID,
			e.LatencyMs,
			result)
	}
	fmt.Fprintln(w, tbl)
}

func writeSyncStats(w io.Writer, stats []store.OpStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No sync events recorded yet.")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("Op"), bold("Calls"), bold("Failures"), bold("Avg ms"))

	var calls, failures int
	for _, st := range stats {
		fails := fmt.Sprint(st.Failures)
		if st.Failures > 0 {
			fails = color.RedString("%d", st.Failures)
		}
		tbl.AddRow(st.Op, st.Calls, fails, fmt.Sprintf("%.1f", st.AvgLatencyMs))
		calls += st.Calls
		failures += st.Failures
	}
	tbl.AddRow(bold("total"), calls, failures, "")
	fmt.Fprintln(w, tbl)
}

// shortID trims a client uuid to its first group.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
