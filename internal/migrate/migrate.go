// Package migrate applies the embedded Postgres schema of the attempt history.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/example/gymbook/internal/db"
)

//go:embed sql/*.sql
var files embed.FS

const versionsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Versions lists the embedded migrations in the order Up applies them.
func Versions() ([]string, error) {
	matches, err := fs.Glob(files, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, path.Base(m))
	}
	sort.Strings(out)
	return out, nil
}

// Up applies every migration missing from schema_migrations and returns the
// versions it applied.
func Up(ctx context.Context, c db.Conn) ([]string, error) {
	if err := c.Exec(ctx, versionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, c)
	if err != nil {
		return nil, err
	}
	versions, err := Versions()
	if err != nil {
		return nil, err
	}

	var done []string
	for _, v := range versions {
		if applied[v] {
			continue
		}
		body, err := files.ReadFile(path.Join("sql", v))
		if err != nil {
			return done, err
		}
		if err := c.Exec(ctx, string(body)); err != nil {
			return done, fmt.Errorf("apply %s: %w", v, err)
		}
		if err := c.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, v); err != nil {
			return done, fmt.Errorf("record %s: %w", v, err)
		}
		done = append(done, v)
	}
	return done, nil
}

func appliedVersions(ctx context.Context, c db.Conn) (map[string]bool, error) {
	rows, err := c.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
