package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/types"
	_ "modernc.org/sqlite"
)

// Snapshot keys. Each is stored as one JSON value in the kv table.
const (
	KeyTabs           = "tabs"
	KeyGroups         = "groups"
	KeySpaces         = "spaces"
	KeyActiveSpaceID  = "activeSpaceId"
	KeyInboxAutoGroup = "inboxAutoGroup"
)

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "snapshot key/value table",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "import/export history",
		SQL: `
CREATE TABLE IF NOT EXISTS transfers (
    id              INTEGER PRIMARY KEY,
    kind            TEXT NOT NULL,
    path            TEXT NOT NULL DEFAULT '',
    group_count     INTEGER NOT NULL DEFAULT 0,
    tab_count       INTEGER NOT NULL DEFAULT 0,
    skipped_groups  INTEGER NOT NULL DEFAULT 0,
    skipped_tabs    INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
}

// Store is the persisted snapshot store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, enables WAL mode and runs
// any pending migrations.
func Open(path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OpenDB opens (or creates) a SQLite database at the given path.
// It creates parent directories if needed, enables foreign keys and WAL mode,
// and runs any pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns the default database file path:
// ~/.local/share/seitenleiste/seitenleiste.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "seitenleiste", "seitenleiste.db"), nil
}

// Load reads the persisted snapshot. Missing keys fall back to the defaults
// of an empty sidebar; a value that fails to decode is logged and treated as
// missing.
func (s *Store) Load(ctx context.Context) (types.Snapshot, error) {
	snap := types.DefaultSnapshot()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv")
	if err != nil {
		return snap, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return snap, fmt.Errorf("scan snapshot key: %w", err)
		}
		var target any
		switch key {
		case KeyTabs:
			target = &snap.Tabs
		case KeyGroups:
			target = &snap.Groups
		case KeySpaces:
			target = &snap.Spaces
		case KeyActiveSpaceID:
			target = &snap.ActiveSpaceID
		case KeyInboxAutoGroup:
			target = &snap.InboxAutoGroup
		default:
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			applog.Error("storage.load.decode", err, "key", key)
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate snapshot: %w", err)
	}

	return normalize(snap), nil
}

// normalize repairs values that decoded to zero: nil lists, an empty space
// list and an empty active space id.
func normalize(snap types.Snapshot) types.Snapshot {
	if snap.Tabs == nil {
		snap.Tabs = []types.Tab{}
	}
	if snap.Groups == nil {
		snap.Groups = []types.Group{}
	}
	if len(snap.Spaces) == 0 {
		snap.Spaces = []types.Space{types.DefaultSpace()}
	}
	if snap.ActiveSpaceID == "" {
		snap.ActiveSpaceID = types.DefaultSpaceID
	}
	for i := range snap.Tabs {
		if snap.Tabs[i].GroupID == "" {
			snap.Tabs[i].GroupID = types.InboxID
		}
		if snap.Tabs[i].SpaceID == "" {
			snap.Tabs[i].SpaceID = types.DefaultSpaceID
		}
	}
	for i := range snap.Groups {
		if snap.Groups[i].SpaceID == "" {
			snap.Groups[i].SpaceID = types.DefaultSpaceID
		}
	}
	return snap
}

// Save writes every snapshot key in one transaction.
func (s *Store) Save(ctx context.Context, snap types.Snapshot) error {
	values := map[string]any{
		KeyTabs:           snap.Tabs,
		KeyGroups:         snap.Groups,
		KeySpaces:         snap.Spaces,
		KeyActiveSpaceID:  snap.ActiveSpaceID,
		KeyInboxAutoGroup: snap.InboxAutoGroup,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, key := range []string{KeyTabs, KeyGroups, KeySpaces, KeyActiveSpaceID, KeyInboxAutoGroup} {
		b, err := json.Marshal(values[key])
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(b),
		); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
