package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/example/gymbook/internal/domain/booking"
)

// Action is what a cycle decided to do next.
type Action string

const (
	ActionSkip   Action = "skip"
	ActionBooked Action = "booked"
	ActionRetry  Action = "retry"
	ActionGiveUp Action = "give_up"
)

// Report describes one finished cycle.
type Report struct {
	ID          uuid.UUID
	StartedAt   time.Time
	Weekday     time.Weekday
	TargetDay   time.Time // zero when skipped
	Action      Action
	Result      booking.Result
	RetriesLeft int
	NextRunAt   time.Time
}

func (r Report) Skipped() bool { return r.Action == ActionSkip }

// Outcome is the result kind, or "skipped".
func (r Report) Outcome() string {
	if r.Skipped() {
		return "skipped"
	}
	return r.Result.Kind.String()
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := struct {
		ID          string    `json:"id"`
		StartedAt   time.Time `json:"started_at"`
		Weekday     string    `json:"weekday"`
		TargetDay   string    `json:"target_day,omitempty"`
		Action      Action    `json:"action"`
		Outcome     string    `json:"outcome"`
		SlotID      string    `json:"slot_id,omitempty"`
		SlotTime    string    `json:"slot_time,omitempty"`
		Error       string    `json:"error,omitempty"`
		RetriesLeft int       `json:"retries_left"`
		NextRunAt   time.Time `json:"next_run_at"`
	}{
		ID:          r.ID.String(),
		StartedAt:   r.StartedAt,
		Weekday:     r.Weekday.String(),
		Action:      r.Action,
		Outcome:     r.Outcome(),
		SlotID:      r.Result.Slot.ID,
		SlotTime:    r.Result.Slot.StartAtDisplay,
		RetriesLeft: r.RetriesLeft,
		NextRunAt:   r.NextRunAt,
	}
	if !r.TargetDay.IsZero() {
		out.TargetDay = r.TargetDay.Format("2006-01-02")
	}
	if r.Result.Err != nil {
		out.Error = r.Result.Err.Error()
	}
	return json.Marshal(out)
}

// Recorder receives every Report. Errors are logged by the Task and never
// affect scheduling.
type Recorder interface {
	Record(ctx context.Context, r Report) error
}

type RecorderFunc func(ctx context.Context, r Report) error

func (f RecorderFunc) Record(ctx context.Context, r Report) error { return f(ctx, r) }
