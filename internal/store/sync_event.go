package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const syncEventsTable = "sync_events"

var syncEventColumns = []string{
	"sequence", "timestamp_ms", "service", "op", "client_id", "server_id",
	"latency_ms", "success", "error_kind", "error_message",
}

// eventRepo implements EventRepo backed by the ent SQL driver and the
// sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendSyncEvent(ctx context.Context, ev SyncEvent) error {
	if ev.Sequence == 0 {
		seqNum, err := r.seq.Next(ctx)
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		ev.Sequence = seqNum
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Insert(syncEventsTable).
		Columns(syncEventColumns...).
		Values(ev.Sequence, ev.Timestamp.UnixMilli(), ev.Service, ev.Op, ev.ClientID, ev.ServerID,
			ev.LatencyMs, boolToInt(ev.Success), ev.ErrorKind, ev.ErrorMessage).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save sync event: %w", err)
	}
	return nil
}

func (r *eventRepo) ListSyncEvents(ctx context.Context, opts QueryOpts) ([]SyncEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(syncEventColumns...).
		From(entsql.Table(syncEventsTable))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Op != "" {
		preds = append(preds, entsql.EQ("op", opts.Op))
	}
	if opts.ClientID != "" {
		preds = append(preds, entsql.EQ("client_id", opts.ClientID))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp_ms", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp_ms", opts.To.UnixMilli()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("query sync events: %w", err)
	}
	defer rows.Close()

	var out []SyncEvent
	for rows.Next() {
		var (
			ev      SyncEvent
			tsMs    int64
			success int
		)
		if err := rows.Scan(&ev.Sequence, &tsMs, &ev.Service, &ev.Op, &ev.ClientID, &ev.ServerID,
			&ev.LatencyMs, &success, &ev.ErrorKind, &ev.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan sync event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(tsMs)
		ev.Success = success != 0
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) Stats(ctx context.Context) ([]OpStats, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select(
			"op",
			entsql.As(entsql.Count("*"), "calls"),
			entsql.As("SUM(1 - success)", "failures"),
			entsql.As(entsql.Avg("latency_ms"), "avg_latency_ms"),
		).
		From(entsql.Table(syncEventsTable)).
		GroupBy("op").
		OrderBy("op").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("query sync stats: %w", err)
	}
	defer rows.Close()

	var out []OpStats
	for rows.Next() {
		var (
			s   OpStats
			avg sql.NullFloat64
		)
		if err := rows.Scan(&s.Op, &s.Calls, &s.Failures, &avg); err != nil {
			return nil, fmt.Errorf("scan sync stats: %w", err)
		}
		s.AvgLatencyMs = avg.Float64
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync stats: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
