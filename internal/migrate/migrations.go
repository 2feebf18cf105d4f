// Package migrate applies the embedded schema of each SQL dialect.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"gmao/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// Step is one numbered schema change, read from NNN_name.sql.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Steps returns the schema changes of the dialect ordered by version.
func Steps(dialect db.Dialect) ([]Step, error) {
	if dialect == "" {
		dialect = db.SQLite
	}
	names, err := fs.Glob(files, path.Join("sql", string(dialect), "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for dialect %s", dialect)
	}
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		base := path.Base(name)
		prefix, _, ok := strings.Cut(base, "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil {
			return nil, fmt.Errorf("migration %s: name must start with a version number", base)
		}
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Version: version, Name: base, SQL: string(body)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}

// Migrate brings the database up to the latest version in one transaction.
// Running it again is a no-op.
func Migrate(conn *sql.DB, dialect db.Dialect) error {
	steps, err := Steps(dialect)
	if err != nil {
		return err
	}
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := schemaVersion(tx, dialect)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if step.Version <= current {
			continue
		}
		if _, err := tx.Exec(step.SQL); err != nil {
			return fmt.Errorf("apply %s: %w", step.Name, err)
		}
		if _, err := tx.Exec(db.Rebind(dialect, `UPDATE schema_version SET version=?`), step.Version); err != nil {
			return fmt.Errorf("record version %d: %w", step.Version, err)
		}
		current = step.Version
	}
	return tx.Commit()
}

func schemaVersion(tx *sql.Tx, dialect db.Dialect) (int, error) {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("schema_version table: %w", err)
	}
	var version int
	err := tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.Exec(db.Rebind(dialect, `INSERT INTO schema_version(version) VALUES (?)`), 0)
		return 0, err
	}
	return version, err
}
