package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations is the ordered schema history. Append only; never edit a
// released step.
var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS account (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL,
				created_at TEXT NOT NULL,
				failed_logins INTEGER NOT NULL DEFAULT 0,
				locked_until TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS post (
				id INTEGER PRIMARY KEY,
				post_type TEXT NOT NULL,
				title TEXT NOT NULL,
				excerpt TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				author_name TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS post_meta (
				post_id INTEGER NOT NULL,
				meta_key TEXT NOT NULL,
				meta_value TEXT NOT NULL,
				PRIMARY KEY (post_id, meta_key),
				FOREIGN KEY (post_id) REFERENCES post(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS attachment (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL,
				mime_type TEXT NOT NULL DEFAULT '',
				size_bytes INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS course_section (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				course_id INTEGER NOT NULL,
				title TEXT NOT NULL,
				position INTEGER NOT NULL,
				FOREIGN KEY (course_id) REFERENCES post(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS section_material (
				section_id INTEGER NOT NULL,
				material_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (section_id, position),
				FOREIGN KEY (section_id) REFERENCES course_section(id) ON DELETE CASCADE,
				FOREIGN KEY (material_id) REFERENCES post(id)
			)`,
			`CREATE TABLE IF NOT EXISTS enrollment (
				user_id TEXT NOT NULL,
				course_id INTEGER NOT NULL,
				enrolled_at TEXT NOT NULL,
				PRIMARY KEY (user_id, course_id)
			)`,
			`CREATE TABLE IF NOT EXISTS item_grant (
				user_id TEXT NOT NULL,
				course_id INTEGER NOT NULL,
				item_id INTEGER NOT NULL,
				granted_at TEXT NOT NULL,
				PRIMARY KEY (user_id, course_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS subscription (
				user_id TEXT PRIMARY KEY,
				expires_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS quiz_question (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				quiz_id INTEGER NOT NULL,
				prompt TEXT NOT NULL,
				position INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS quiz_attempt (
				id TEXT PRIMARY KEY,
				quiz_id INTEGER NOT NULL,
				course_id INTEGER NOT NULL,
				user_id TEXT NOT NULL,
				grade INTEGER NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS material_progress (
				user_id TEXT NOT NULL,
				course_id INTEGER NOT NULL,
				material_id INTEGER NOT NULL,
				completed_at TEXT NOT NULL,
				PRIMARY KEY (user_id, course_id, material_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_course_section_course ON course_section(course_id, position)`,
			`CREATE INDEX IF NOT EXISTS idx_quiz_attempt_user ON quiz_attempt(quiz_id, user_id, created_at)`,
		},
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the highest applied migration, or 0 for a fresh database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion(), foreign keys enforced
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// timeLayout is fixed width so stored times sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in the single on-disk time layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime accepts the on-disk layout plus the looser forms hand-written
// seed data tends to use.
func ParseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
