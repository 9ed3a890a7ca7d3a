package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/gymbook/internal/domain/booking"
	"github.com/example/gymbook/internal/scheduler"
)

func openTemp(t *testing.T) Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen_Disabled(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/gym")
	assert.Error(t, err)
}

func TestOpen_SQLiteScheme(t *testing.T) {
	s, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "h.sqlite"))
	require.NoError(t, err)
	s.Close()
}

func TestSQLite_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	start := time.Date(2026, 10, 19, 0, 0, 30, 0, time.UTC)

	// Given three cycles recorded a minute apart
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, Attempt{
			CycleID:     fmt.Sprintf("cycle-%d", i),
			AttemptedAt: start.Add(time.Duration(i) * time.Minute),
			Weekday:     "Monday",
			Day:         "2026-10-26",
			Action:      "retry",
			Outcome:     "transport_error",
			Detail:      "book failed (status=500)",
			RetriesLeft: 4 - i,
			NextRunAt:   start.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	// When reading the two most recent
	got, err := s.Recent(ctx, 2)

	// Then they come back newest first
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cycle-2", got[0].CycleID)
	assert.Equal(t, "cycle-1", got[1].CycleID)
	assert.True(t, got[0].AttemptedAt.Equal(start.Add(2*time.Minute)), "attempted_at %v", got[0].AttemptedAt)
	assert.True(t, got[0].NextRunAt.Equal(start.Add(3*time.Minute)))
	assert.Equal(t, 2, got[0].RetriesLeft)
	assert.Equal(t, "transport_error", got[0].Outcome)
	assert.NotZero(t, got[0].ID)
}

func TestSQLite_RecentDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for i := 0; i < defaultLimit+5; i++ {
		require.NoError(t, s.Record(ctx, Attempt{CycleID: "c", AttemptedAt: time.Now(), Weekday: "Monday", Action: "skip", Outcome: "skipped", NextRunAt: time.Now()}))
	}

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, defaultLimit)
}

func TestFromReport(t *testing.T) {
	id := uuid.New()
	started := time.Date(2026, 10, 20, 0, 0, 30, 0, time.UTC)

	booked := FromReport(scheduler.Report{
		ID:          id,
		StartedAt:   started,
		Weekday:     time.Tuesday,
		TargetDay:   started.AddDate(0, 0, 7),
		Action:      scheduler.ActionBooked,
		Result:      booking.BookedResult(booking.Slot{ID: "102", StartAtDisplay: "7:30AM"}),
		RetriesLeft: 5,
		NextRunAt:   started.Add(24 * time.Hour),
	})
	assert.Equal(t, id.String(), booked.CycleID)
	assert.Equal(t, "2026-10-27", booked.Day)
	assert.Equal(t, "booked", booked.Outcome)
	assert.Equal(t, "102", booked.SlotID)
	assert.Equal(t, "7:30AM", booked.SlotTime)

	skipped := FromReport(scheduler.Report{ID: id, StartedAt: started, Weekday: time.Wednesday, Action: scheduler.ActionSkip})
	assert.Equal(t, "skipped", skipped.Outcome)
	assert.Empty(t, skipped.Day)
	assert.Empty(t, skipped.Detail)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	rec := Recorder{Store: s}

	err := rec.Record(ctx, scheduler.Report{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Weekday:   time.Monday,
		TargetDay: time.Now().AddDate(0, 0, 7),
		Action:    scheduler.ActionGiveUp,
		Result:    booking.FailedResult(errors.New("connection refused")),
		NextRunAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "give_up", got[0].Action)
	assert.Equal(t, "connection refused", got[0].Detail)
}

var _ scheduler.Recorder = Recorder{}
