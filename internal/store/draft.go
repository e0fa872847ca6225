package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const draftsTable = "board_drafts"

// draftRepo implements DraftRepo using the ent SQL driver.
type draftRepo struct {
	drv *entsql.Driver
}

func (r *draftRepo) Save(ctx context.Context, d *Draft) error {
	data, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("marshal draft data: %w", err)
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Insert(draftsTable).
		Columns("timestamp_ms", "data").
		Values(d.Timestamp.UnixMilli(), string(data)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("draft id: %w", err)
	}
	d.ID = int(id)
	return nil
}

func (r *draftRepo) Latest(ctx context.Context) (*Draft, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select("id", "timestamp_ms", "data").
		From(entsql.Table(draftsTable)).
		OrderBy(entsql.Desc("timestamp_ms"), entsql.Desc("id")).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("query latest draft: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query latest draft: %w", err)
		}
		return nil, nil
	}

	var (
		d    Draft
		tsMs int64
		raw  string
	)
	if err := rows.Scan(&d.ID, &tsMs, &raw); err != nil {
		return nil, fmt.Errorf("scan draft: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &d.Data); err != nil {
		return nil, fmt.Errorf("unmarshal draft data: %w", err)
	}
	d.Timestamp = time.UnixMilli(tsMs)
	return &d, nil
}

func (r *draftRepo) Prune(ctx context.Context, keep int) error {
	// Find the ID threshold: the newest draft beyond the ones to keep.
	q, args := entsql.Dialect(dialect.SQLite).
		Select("id").
		From(entsql.Table(draftsTable)).
		OrderBy(entsql.Desc("timestamp_ms"), entsql.Desc("id")).
		Limit(1).
		Offset(keep).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return fmt.Errorf("query drafts for prune: %w", err)
	}
	var threshold int
	found := rows.Next()
	if found {
		if err := rows.Scan(&threshold); err != nil {
			rows.Close()
			return fmt.Errorf("scan prune threshold: %w", err)
		}
	}
	rows.Close()
	if !found {
		return nil // fewer than keep drafts exist
	}

	q, args = entsql.Dialect(dialect.SQLite).
		Delete(draftsTable).
		Where(entsql.LTE("id", threshold)).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("prune drafts: %w", err)
	}
	return nil
}
