package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// migrations is the ordered list of all schema migrations. Every statement
// must be safe to re-run against an initialized database.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: objects and object_history",
		SQL: `
CREATE TABLE IF NOT EXISTS objects (
  id TEXT PRIMARY KEY,
  logical_name TEXT NOT NULL,
  mission_id TEXT NOT NULL,
  sensor TEXT,
  platform TEXT,
  classification TEXT NOT NULL,
  tags TEXT NOT NULL DEFAULT '{}',
  byte_size INTEGER NOT NULL CHECK (byte_size >= 0),
  content_digest TEXT NOT NULL,
  storage_tier TEXT NOT NULL CHECK (storage_tier IN ('HOT', 'COLD')),
  storage_location TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  object_type TEXT,
  content_type TEXT,
  capture_time TEXT,
  pipeline_run_id TEXT
);

CREATE TABLE IF NOT EXISTS object_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  object_id TEXT NOT NULL,
  event TEXT NOT NULL,
  details TEXT NOT NULL DEFAULT '{}',
  at TEXT NOT NULL,
  actor TEXT NOT NULL,
  FOREIGN KEY (object_id) REFERENCES objects(id)
);

CREATE INDEX IF NOT EXISTS idx_objects_mission_created ON objects(mission_id, created_at);
CREATE INDEX IF NOT EXISTS idx_object_history_object ON object_history(object_id, seq);
`,
	},
	{
		Version:     2,
		Description: "append-only history and immutable object columns",
		SQL: `
CREATE TRIGGER IF NOT EXISTS object_history_no_update BEFORE UPDATE ON object_history BEGIN
	SELECT RAISE(ABORT, 'object_history is append-only');
END;

CREATE TRIGGER IF NOT EXISTS object_history_no_delete BEFORE DELETE ON object_history BEGIN
	SELECT RAISE(ABORT, 'object_history is append-only');
END;

CREATE TRIGGER IF NOT EXISTS objects_immutable_columns
BEFORE UPDATE OF id, logical_name, mission_id, sensor, platform, classification, tags,
	byte_size, content_digest, created_at, object_type, content_type, capture_time, pipeline_run_id
ON objects BEGIN
	SELECT RAISE(ABORT, 'object columns are immutable');
END;
`,
	},
	{
		Version:     3,
		Description: "digest and pipeline run lookup indexes",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_objects_content_digest ON objects(content_digest);
CREATE INDEX IF NOT EXISTS idx_objects_pipeline_run ON objects(pipeline_run_id);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// runMigrations applies all pending migrations in order.
func runMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		// INSERT OR IGNORE: a concurrent process may have applied the same step.
		if _, err := tx.Exec("INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
		current = m.Version
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d;", current)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// MigrationPlan returns the current migration status without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	current, err := currentVersion(db)
	if err != nil {
		return nil, err
	}

	sorted := sortedMigrations()
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	var pending []MigrationInfo
	for _, m := range sorted {
		if m.Version > current {
			pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}

	return &MigrationStatus{
		CurrentVersion:   current,
		AvailableVersion: available,
		Pending:          pending,
	}, nil
}
