package storage

import (
	"context"
	"fmt"
	"time"
)

// TransferRecord is one row of the import/export history.
type TransferRecord struct {
	ID            int64
	Kind          string // "export", "import" or "seed"
	Path          string
	Groups        int
	Tabs          int
	SkippedGroups int
	SkippedTabs   int
	CreatedAt     time.Time
}

// RecordTransfer appends an import or export to the history.
func (s *Store) RecordTransfer(ctx context.Context, r TransferRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (kind, path, group_count, tab_count, skipped_groups, skipped_tabs)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Kind, r.Path, r.Groups, r.Tabs, r.SkippedGroups, r.SkippedTabs,
	)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	return nil
}

// ListTransfers returns the history, newest first.
func (s *Store) ListTransfers(ctx context.Context, limit int) ([]TransferRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, path, group_count, tab_count, skipped_groups, skipped_tabs, created_at
		 FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []TransferRecord
	for rows.Next() {
		var r TransferRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.Path, &r.Groups, &r.Tabs, &r.SkippedGroups, &r.SkippedTabs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
