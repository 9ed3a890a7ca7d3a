// Package history keeps a write-only log of booking cycles. The scheduler
// never reads it back.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/gymbook/internal/scheduler"
)

type Attempt struct {
	ID          int64
	CycleID     string
	AttemptedAt time.Time
	Weekday     string
	Day         string // target date, YYYY-MM-DD; empty when skipped
	Action      string
	Outcome     string
	SlotID      string
	SlotTime    string
	Detail      string
	RetriesLeft int
	NextRunAt   time.Time
}

// FromReport flattens a cycle report into a row.
func FromReport(r scheduler.Report) Attempt {
	a := Attempt{
		CycleID:     r.ID.String(),
		AttemptedAt: r.StartedAt,
		Weekday:     r.Weekday.String(),
		Action:      string(r.Action),
		Outcome:     r.Outcome(),
		RetriesLeft: r.RetriesLeft,
		NextRunAt:   r.NextRunAt,
	}
	if !r.Skipped() {
		a.Day = r.TargetDay.Format("2006-01-02")
		a.SlotID = r.Result.Slot.ID
		a.SlotTime = r.Result.Slot.StartAtDisplay
		a.Detail = r.Result.Detail()
	}
	return a
}

type Store interface {
	Record(ctx context.Context, a Attempt) error
	Recent(ctx context.Context, limit int) ([]Attempt, error)
	Close()
}

// ErrDisabled is returned by Open when no history URL is configured.
var ErrDisabled = errors.New("history disabled")

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use pgx, sqlite:// or a *.db path uses SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case url == "":
		return nil, ErrDisabled
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasSuffix(url, ".db"):
		return OpenSQLite(url)
	default:
		return nil, fmt.Errorf("unsupported history url %q", url)
	}
}

// Recorder adapts a Store to scheduler.Recorder.
type Recorder struct {
	Store Store
}

func (r Recorder) Record(ctx context.Context, rep scheduler.Report) error {
	return r.Store.Record(ctx, FromReport(rep))
}

const defaultLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
