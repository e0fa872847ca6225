package remote

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/quizcal/internal/schedule"
	"github.com/abhisek/quizcal/internal/store"
)

// LoggingService is a decorator that records every remote call as a sync
// event and logs it.
type LoggingService struct {
	inner Service
	repo  store.EventRepo
	log   *zap.Logger
}

// WithLogging wraps a Service with sync event recording. repo may be nil.
func WithLogging(s Service, repo store.EventRepo, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingService{inner: s, repo: repo, log: log.Named("remote")}
}

func (l *LoggingService) Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error) {
	start := time.Now()
	it, err := l.inner.Create(ctx, p)
	l.record(ctx, OpCreate, it.ServerID, start, err)
	return it, err
}

func (l *LoggingService) Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error) {
	start := time.Now()
	it, err := l.inner.Edit(ctx, serverID, p)
	l.record(ctx, OpEdit, serverID, start, err)
	return it, err
}

func (l *LoggingService) Delete(ctx context.Context, serverID string) error {
	start := time.Now()
	err := l.inner.Delete(ctx, serverID)
	l.record(ctx, OpDelete, serverID, start, err)
	return err
}

func (l *LoggingService) List(ctx context.Context, from, to time.Time) ([]schedule.Item, error) {
	start := time.Now()
	items, err := l.inner.List(ctx, from, to)
	l.record(ctx, OpList, "", start, err)
	return items, err
}

func (l *LoggingService) Name() string {
	return l.inner.Name()
}

func (l *LoggingService) record(ctx context.Context, op, serverID string, start time.Time, err error) {
	latency := time.Since(start)
	ev := store.SyncEvent{
		Timestamp: start,
		Service:   l.inner.Name(),
		Op:        op,
		ClientID:  ClientIDFrom(ctx),
		ServerID:  serverID,
		LatencyMs: latency.Milliseconds(),
		Success:   err == nil,
		ErrorKind: ErrorKind(err),
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("client_id", ev.ClientID),
		zap.String("server_id", serverID),
		zap.Duration("latency", latency),
	}
	if err != nil {
		l.log.Warn("remote call failed", append(fields, zap.String("kind", ev.ErrorKind), zap.Error(err))...)
	} else {
		l.log.Debug("remote call", fields...)
	}

	if l.repo == nil {
		return
	}
	// Record the event but don't fail the call if recording fails. The
	// call's own context may already be done.
	if recErr := l.repo.AppendSyncEvent(context.WithoutCancel(ctx), ev); recErr != nil {
		l.log.Warn("failed to record sync event", zap.Error(recErr))
	}
}
