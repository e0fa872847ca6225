package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcal/internal/config"
	"github.com/abhisek/quizcal/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "quizcal",
	Short: "Terminal calendar for scheduling quizzes",
	Long: "quizcal — a seven day board for assigning quiz versions to a class. " +
		"Drag items to reschedule them; changes show at once and sync in the background.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./quizcal.yaml or $XDG_CONFIG_HOME/quizcal/quizcal.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZCAL_DB env var)")

	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config, if any, plus the
// environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the db config key, then QUIZCAL_DB and the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// openStore loads the config and opens the database it points at.
func openStore(cmd *cobra.Command) (*store.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}
