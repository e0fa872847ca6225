package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizcal/internal/app"
	"github.com/abhisek/quizcal/internal/board"
	"github.com/abhisek/quizcal/internal/boardfile"
	"github.com/abhisek/quizcal/internal/config"
	"github.com/abhisek/quizcal/internal/interact"
	"github.com/abhisek/quizcal/internal/logging"
	"github.com/abhisek/quizcal/internal/mutation"
	"github.com/abhisek/quizcal/internal/remote"
	"github.com/abhisek/quizcal/internal/store"
)

const (
	// shutdownTimeout bounds how long queued work may keep syncing after
	// the board closes.
	shutdownTimeout = 10 * time.Second

	keepDrafts = 20
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc, err := newService(cfg, st.EventRepo(), log)
	if err != nil {
		return err
	}
	log.Info("starting board",
		zap.String("remote", svc.Name()),
		zap.String("db", dbPath),
		zap.String("timezone", loc.String()))

	q := mutation.New(svc, log)
	b, err := board.New(q, board.Options{
		Location:      loc,
		SlideDuration: cfg.Board.SlideDuration,
		Interact:      cfg.InteractConfig(),
		// The calendar screen sets the real geometry on the first resize.
		Geometry: interact.Geometry{ColumnWidth: 1, ViewportRight: 7},
		Logger:   log,
	}, time.Now())
	if err != nil {
		q.Close()
		return err
	}

	runErr := app.Run(app.Options{Board: b, Lister: svc, Log: log})
	shutdown(cmd.Context(), b, st.DraftRepo(), log)
	return runErr
}

// shutdown gives queued work a bounded chance to reach the server, then
// saves what is left as a draft.
func shutdown(parent context.Context, b *board.Board, drafts store.DraftRepo, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(parent, shutdownTimeout)
	defer cancel()

	q := b.Queue()
	if err := q.Flush(ctx); err != nil {
		log.Warn("flush pending changes", zap.Error(err))
	}
	if err := q.Close(); err != nil {
		log.Warn("close queue", zap.Error(err))
	}

	if err := b.SaveDraft(ctx, drafts); err != nil {
		log.Warn("save draft", zap.Error(err))
		return
	}
	if err := drafts.Prune(ctx, keepDrafts); err != nil {
		log.Warn("prune drafts", zap.Error(err))
	}
}

// newService builds the configured remote backend. The mock backend is
// seeded from a board file when remote.mock_seed is set.
func newService(cfg *config.Config, events store.EventRepo, log *zap.Logger) (remote.Service, error) {
	rc := cfg.RemoteConfig()
	if rc.Kind == "mock" && cfg.Remote.MockSeed != "" {
		seed, err := boardfile.Load(cfg.Remote.MockSeed)
		if err != nil {
			return nil, fmt.Errorf("load mock seed: %w", err)
		}
		rc.MockSeed = seed.Items
	}
	svc, err := remote.New(rc, events, log)
	if err != nil {
		return nil, fmt.Errorf("create remote service: %w", err)
	}
	return svc, nil
}
