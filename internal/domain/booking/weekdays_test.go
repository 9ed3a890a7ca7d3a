package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		spec string
		want []time.Weekday
	}{
		{"1,2,4,5", []time.Weekday{time.Monday, time.Tuesday, time.Thursday, time.Friday}},
		{"MON,TUE,THU,FRI", []time.Weekday{time.Monday, time.Tuesday, time.Thursday, time.Friday}},
		{"mon-fri", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{"0,6", []time.Weekday{time.Sunday, time.Saturday}},
		{"1, 3", []time.Weekday{time.Monday, time.Wednesday}},
		{"*", []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			w, err := ParseWeekdays(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Days())
			assert.Equal(t, NewWeekdays(tt.want...), w)
		})
	}
}

func TestParseWeekdays_Invalid(t *testing.T) {
	for _, spec := range []string{"", "8", "funday", "1 2"} {
		_, err := ParseWeekdays(spec)
		assert.Error(t, err, spec)
	}
}

func TestWeekdays_String(t *testing.T) {
	assert.Equal(t, "Mon,Tue,Thu,Fri", NewWeekdays(time.Friday, time.Monday, time.Thursday, time.Tuesday).String())
	assert.False(t, NewWeekdays(time.Monday).Has(time.Sunday))
}
