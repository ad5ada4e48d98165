package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

type migration struct {
	version     int
	description string
	sql         string
}

// migrations are applied in order; append new versions, never edit released ones
var migrations = []migration{
	{version: 1, description: "runs and provider attempts", sql: schemaSQL},
}

// Migrator manages database schema migrations
type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Migrate applies every migration newer than the recorded version
func (m *Migrator) Migrate() error {
	if err := m.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("create migrations table failed: %w", err)
	}
	current, err := m.Version()
	if err != nil {
		return fmt.Errorf("check schema version failed: %w", err)
	}
	for _, mig := range migrations {
		if mig.version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("apply migration %d failed: %w", mig.version, err)
		}
	}
	return nil
}

func (m *Migrator) ensureMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)`)
	return err
}

func (m *Migrator) apply(mig migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range splitSQLStatements(mig.sql) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("execute statement %d failed: %w\nStatement: %s", i, err, stmt)
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, mig.version, mig.description); err != nil {
		return fmt.Errorf("record migration failed: %w", err)
	}
	return tx.Commit()
}

// splitSQLStatements drops comment lines and splits on semicolons.
// Statements must not contain semicolons inside string literals.
func splitSQLStatements(src string) []string {
	var clean []string
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		clean = append(clean, line)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(clean, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Version returns the highest applied migration, 0 for a fresh database
func (m *Migrator) Version() (int, error) {
	var version sql.NullInt64
	if err := m.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
