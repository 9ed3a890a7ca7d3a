package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// dowParser accepts a bare cron day-of-week field: "1,2,4,5", "mon-fri", "*".
var dowParser = cron.NewParser(cron.Dow)

// Weekdays is a set of eligible booking days, bit i set for time.Weekday(i).
type Weekdays uint8

const allDays Weekdays = 1<<7 - 1

func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// ParseWeekdays parses a cron day-of-week expression. 0 and "sun" are Sunday.
func ParseWeekdays(spec string) (Weekdays, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("weekdays: empty")
	}
	sched, err := dowParser.Parse(strings.ReplaceAll(spec, " ", ""))
	if err != nil {
		return 0, fmt.Errorf("weekdays %q: %w", spec, err)
	}
	ss, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return 0, fmt.Errorf("weekdays %q: unsupported expression", spec)
	}
	w := Weekdays(ss.Dow & uint64(allDays))
	if w == 0 {
		return 0, fmt.Errorf("weekdays %q: no days selected", spec)
	}
	return w, nil
}

func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }

func (w Weekdays) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (w Weekdays) String() string {
	var names []string
	for _, d := range w.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}
