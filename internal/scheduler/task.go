package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/gymbook/internal/domain/booking"
)

// Config is fixed for the lifetime of a Task.
type Config struct {
	ClubID     int
	Weekdays   booking.Weekdays
	TargetTime string // display label, e.g. "7:30AM"
	Studio     string
	DaysAhead  int

	MaxRetries int
	RetryDelay time.Duration
	DayOffset  time.Duration // added to midnight for the daily run
	Location   *time.Location

	Username string
	Password string
}

// State is the mutable schedule state of a Task: the one pending timer and
// the same-day retry budget.
type State struct {
	timer     Timer
	nextRunAt time.Time

	retriesLeft int
	retryDay    string // calendar day the budget was last spent on

	last *Report
}

// Snapshot is a copy of State safe to hand to other goroutines.
type Snapshot struct {
	Pending     bool      `json:"pending"`
	NextRunAt   time.Time `json:"next_run_at"`
	RetriesLeft int       `json:"retries_left"`
	MaxRetries  int       `json:"max_retries"`
	Weekdays    string    `json:"weekdays"`
	TargetTime  string    `json:"target_time"`
	Last        *Report   `json:"last,omitempty"`
}

// Task books the target slot on eligible days and always reschedules itself:
// tomorrow after a success, a skip or a give-up, and after RetryDelay while
// same-day retries remain.
type Task struct {
	cfg       Config
	provider  booking.Provider
	clock     Clock
	logger    *slog.Logger
	recorders []Recorder

	// mu guards state; the loop is the only writer, the status server reads.
	mu    sync.Mutex
	state State

	trigger chan struct{}
}

type Option func(*Task)

func WithClock(c Clock) Option { return func(t *Task) { t.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(t *Task) { t.logger = l } }

func WithRecorders(rs ...Recorder) Option {
	return func(t *Task) { t.recorders = append(t.recorders, rs...) }
}

func New(cfg Config, p booking.Provider, opts ...Option) *Task {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = 7
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	t := &Task{
		cfg:      cfg,
		provider: p,
		clock:    realClock{},
		logger:   slog.Default(),
		trigger:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(t)
	}
	t.logger = t.logger.With("component", "scheduler")
	t.state.retriesLeft = cfg.MaxRetries
	return t
}

// Run executes a cycle immediately and then one cycle each time the pending
// timer fires or Trigger is called, until ctx is done.
func (t *Task) Run(ctx context.Context) error {
	t.logger.Info("scheduler starting",
		"club_id", t.cfg.ClubID,
		"weekdays", t.cfg.Weekdays.String(),
		"target_time", t.cfg.TargetTime,
		"max_retries", t.cfg.MaxRetries,
	)
	t.RunCycle(ctx)

	for {
		var fire <-chan time.Time
		t.mu.Lock()
		if t.state.timer != nil {
			fire = t.state.timer.C()
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			t.cancelPending()
			t.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-fire:
			t.RunCycle(ctx)
		case <-t.trigger:
			t.logger.Info("cycle triggered manually")
			t.RunCycle(ctx)
		}
	}
}

// Trigger asks Run to start a cycle now. The pending timer is replaced by
// whatever that cycle schedules. Triggers that arrive while a cycle is in
// flight are absorbed by it.
func (t *Task) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// RunCycle performs one decide -> attempt -> reschedule pass.
func (t *Task) RunCycle(ctx context.Context) Report {
	t.cancelPending()

	now := t.clock.Now().In(t.cfg.Location)
	rep := Report{ID: uuid.New(), StartedAt: now, Weekday: now.Weekday()}
	log := t.logger.With("cycle_id", rep.ID.String())

	t.resetBudgetIfNewDay(now)

	if !t.cfg.Weekdays.Has(now.Weekday()) {
		rep.Action = ActionSkip
		rep.NextRunAt = t.scheduleTomorrow(now)
		rep.RetriesLeft = t.retriesLeft()
		log.Info("not running today, will try tomorrow",
			"day", now.Format("2006-01-02"),
			"weekday", now.Weekday().String(),
			"next_run_at", rep.NextRunAt,
		)
		t.finish(ctx, log, rep)
		return rep
	}

	rep.TargetDay = now.AddDate(0, 0, t.cfg.DaysAhead)
	rep.Result = t.attempt(ctx, log, rep.TargetDay)

	now = t.clock.Now().In(t.cfg.Location)
	switch left := t.retriesLeft(); {
	case rep.Result.OK():
		t.setRetries(t.cfg.MaxRetries, "")
		rep.Action = ActionBooked
		rep.NextRunAt = t.scheduleTomorrow(now)
		log.Info("booking succeeded",
			"slot", rep.Result.Slot.String(),
			"day", rep.TargetDay.Format("2006-01-02"),
			"next_run_at", rep.NextRunAt,
		)
	case left > 0:
		t.setRetries(left-1, now.Format("2006-01-02"))
		rep.Action = ActionRetry
		rep.NextRunAt = t.schedule(now, t.cfg.RetryDelay)
		log.Warn("booking failed, will retry",
			"kind", rep.Result.Kind.String(),
			"error", rep.Result.Detail(),
			"retries_left", left-1,
			"retry_in", t.cfg.RetryDelay.String(),
		)
	default:
		t.setRetries(t.cfg.MaxRetries, "")
		rep.Action = ActionGiveUp
		rep.NextRunAt = t.scheduleTomorrow(now)
		log.Error("booking failed, out of retries for today",
			"kind", rep.Result.Kind.String(),
			"error", rep.Result.Detail(),
			"next_run_at", rep.NextRunAt,
		)
	}
	rep.RetriesLeft = t.retriesLeft()

	t.finish(ctx, log, rep)
	return rep
}

// Attempt runs the booking transaction for today + DaysAhead without
// touching the schedule state.
func (t *Task) Attempt(ctx context.Context) booking.Result {
	now := t.clock.Now().In(t.cfg.Location)
	return t.attempt(ctx, t.logger, now.AddDate(0, 0, t.cfg.DaysAhead))
}

func (t *Task) attempt(ctx context.Context, log *slog.Logger, day time.Time) booking.Result {
	session, err := t.provider.Authenticate(ctx, t.cfg.Username, t.cfg.Password)
	if err != nil {
		return booking.FailedResult(err)
	}
	log.Info("logged in successfully")

	slots, err := t.provider.ListSlots(ctx, session, t.cfg.ClubID, day, t.cfg.Studio)
	if err != nil {
		return booking.FailedResult(err)
	}
	log.Debug("fetched schedule", "day", day.Format("2006-01-02"), "slots", len(slots))

	slot, err := booking.ChooseSlot(t.cfg.TargetTime, slots)
	if err != nil {
		return booking.FailedResult(err)
	}

	if err := t.provider.Book(ctx, session, t.cfg.ClubID, slot.ID); err != nil {
		return booking.FailedResult(err)
	}
	return booking.BookedResult(slot)
}

func (t *Task) finish(ctx context.Context, log *slog.Logger, rep Report) {
	t.mu.Lock()
	r := rep
	t.state.last = &r
	t.mu.Unlock()

	// a trigger that arrived mid-cycle is answered by this cycle
	select {
	case <-t.trigger:
		log.Debug("dropped trigger received during the cycle")
	default:
	}

	for _, rec := range t.recorders {
		if err := rec.Record(ctx, rep); err != nil {
			log.Warn("recording cycle failed", "error", err)
		}
	}
}

// schedule replaces the pending timer with one firing after d.
func (t *Task) schedule(now time.Time, d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.timer != nil {
		t.state.timer.Stop()
	}
	t.state.timer = t.clock.NewTimer(d)
	t.state.nextRunAt = now.Add(d)
	return t.state.nextRunAt
}

func (t *Task) scheduleTomorrow(now time.Time) time.Time {
	return t.schedule(now, nextDayStart(now, t.cfg.DayOffset).Sub(now))
}

func (t *Task) cancelPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.timer != nil {
		t.state.timer.Stop()
		t.state.timer = nil
		t.state.nextRunAt = time.Time{}
	}
}

// resetBudgetIfNewDay restores the retry budget when a retry crossed midnight.
func (t *Task) resetBudgetIfNewDay(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.retryDay != "" && t.state.retryDay != now.Format("2006-01-02") {
		t.state.retriesLeft = t.cfg.MaxRetries
		t.state.retryDay = ""
	}
}

func (t *Task) retriesLeft() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.retriesLeft
}

func (t *Task) setRetries(n int, day string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.retriesLeft = n
	t.state.retryDay = day
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		Pending:     t.state.timer != nil,
		NextRunAt:   t.state.nextRunAt,
		RetriesLeft: t.state.retriesLeft,
		MaxRetries:  t.cfg.MaxRetries,
		Weekdays:    t.cfg.Weekdays.String(),
		TargetTime:  t.cfg.TargetTime,
	}
	if t.state.last != nil {
		r := *t.state.last
		s.Last = &r
	}
	return s
}
