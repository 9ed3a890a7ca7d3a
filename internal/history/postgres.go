package history

import (
	"context"
	"fmt"

	"github.com/example/gymbook/internal/db"
	"github.com/example/gymbook/internal/migrate"
)

type postgresStore struct {
	conn  db.Conn
	close func()
}

// OpenPostgres connects, pings and applies migrations.
func OpenPostgres(ctx context.Context, url string) (Store, error) {
	pool, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := migrate.Up(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &postgresStore{conn: pool, close: pool.Close}, nil
}

const insertAttempt = `
INSERT INTO booking_attempts(cycle_id,attempted_at,weekday,day,action,outcome,slot_id,slot_time,detail,retries_left,next_run_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

const selectRecent = `
SELECT id,cycle_id,attempted_at,weekday,day,action,outcome,slot_id,slot_time,detail,retries_left,next_run_at
FROM booking_attempts
ORDER BY attempted_at DESC, id DESC
LIMIT $1`

func (s *postgresStore) Record(ctx context.Context, a Attempt) error {
	err := s.conn.Exec(ctx, insertAttempt,
		a.CycleID, a.AttemptedAt, a.Weekday, a.Day, a.Action, a.Outcome, a.SlotID, a.SlotTime, a.Detail, a.RetriesLeft, a.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *postgresStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.conn.Query(ctx, selectRecent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.CycleID, &a.AttemptedAt, &a.Weekday, &a.Day, &a.Action, &a.Outcome,
			&a.SlotID, &a.SlotTime, &a.Detail, &a.RetriesLeft, &a.NextRunAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *postgresStore) Close() {
	if s.close != nil {
		s.close()
	}
}
