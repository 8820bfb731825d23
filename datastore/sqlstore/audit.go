// ABOUTME: Audit trail of admin actions persisted next to the model tables
// ABOUTME: Implements datastore.Auditor with newest-first reads

package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/modeladmin/datastore"
)

// Audit timestamps carry nanoseconds so newest-first ordering holds for
// actions recorded within the same second.
var auditDDL = []string{
	`CREATE TABLE IF NOT EXISTS admin_actions (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		model TEXT NOT NULL,
		model_key TEXT NOT NULL,
		summary TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_admin_actions_created ON admin_actions(created_at)`,
}

// RecordAction appends one action row. Missing ids and timestamps are
// filled in.
func (s *Store) RecordAction(ctx context.Context, a *datastore.Action) error {
	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	pb := s.dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"INSERT INTO admin_actions (id, action, model, model_key, summary, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(cp.ID), pb.Add(cp.Action), pb.Add(cp.Model), pb.Add(cp.Key),
		pb.Add(cp.Summary), pb.Add(cp.CreatedAt.UTC().Format(time.RFC3339Nano)))
	if _, err := s.db.ExecContext(ctx, query, pb.Params()...); err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// RecentActions returns up to limit actions, newest first. A limit of
// zero or less returns them all.
func (s *Store) RecentActions(ctx context.Context, limit int) ([]*datastore.Action, error) {
	query := "SELECT id, action, model, model_key, summary, created_at FROM admin_actions ORDER BY created_at DESC"
	pb := s.dialect.NewParamBuilder()
	var args []any
	if limit > 0 {
		query += " LIMIT " + pb.Add(limit)
		args = pb.Params()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	var actions []*datastore.Action
	for rows.Next() {
		var a datastore.Action
		var created string
		if err := rows.Scan(&a.ID, &a.Action, &a.Model, &a.Key, &a.Summary, &created); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing action timestamp %q: %w", created, err)
		}
		a.CreatedAt = ts.UTC()
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return actions, nil
}
