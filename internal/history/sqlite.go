package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteStore struct{ db *sql.DB }

// OpenSQLite opens (creating if needed) a SQLite file and ensures the schema.
func OpenSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between the loop and the CLI
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS booking_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		attempted_at DATETIME NOT NULL,
		weekday TEXT NOT NULL,
		day TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		outcome TEXT NOT NULL,
		slot_id TEXT NOT NULL DEFAULT '',
		slot_time TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		retries_left INTEGER NOT NULL,
		next_run_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_booking_attempts_attempted_at ON booking_attempts(attempted_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) Record(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO booking_attempts(cycle_id,attempted_at,weekday,day,action,outcome,slot_id,slot_time,detail,retries_left,next_run_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.CycleID, a.AttemptedAt.UTC(), a.Weekday, a.Day, a.Action, a.Outcome, a.SlotID, a.SlotTime, a.Detail, a.RetriesLeft, a.NextRunAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id,cycle_id,attempted_at,weekday,day,action,outcome,slot_id,slot_time,detail,retries_left,next_run_at
FROM booking_attempts
ORDER BY attempted_at DESC, id DESC
LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.CycleID, &a.AttemptedAt, &a.Weekday, &a.Day, &a.Action, &a.Outcome,
			&a.SlotID, &a.SlotTime, &a.Detail, &a.RetriesLeft, &a.NextRunAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() { _ = s.db.Close() }
