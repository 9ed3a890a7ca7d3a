package booking

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSetCookies(t *testing.T) {
	in := []string{
		"ASP.NET_SessionId=abc123; path=/; HttpOnly; SameSite=Lax",
		"secureLoginToken=tok; expires=Fri, 17 Oct 2026 10:00:00 GMT; path=/; secure",
		"member=42; Path=/",
	}

	got := JoinSetCookies(in)

	assert.Equal(t, Session("ASP.NET_SessionId=abc123; secureLoginToken=tok; member=42; "), got)
}

func TestJoinSetCookies_KeepsEveryPairInOrder(t *testing.T) {
	var in []string
	for i := 0; i < 10; i++ {
		in = append(in, fmt.Sprintf("c%d=v%d; Attr1; Attr2", i, i))
	}

	got := string(JoinSetCookies(in))

	last := -1
	for i := 0; i < 10; i++ {
		pair := fmt.Sprintf("c%d=v%d; ", i, i)
		idx := strings.Index(got, pair)
		require.GreaterOrEqual(t, idx, 0, "missing %q", pair)
		assert.Greater(t, idx, last, "pair %q out of order", pair)
		last = idx
	}
	assert.NotContains(t, got, "Attr")
}

func TestJoinSetCookies_NoAttributes(t *testing.T) {
	assert.Equal(t, Session("a=1; b=2; "), JoinSetCookies([]string{"a=1", " ", "b=2"}))
	assert.Equal(t, Session(""), JoinSetCookies(nil))
}

func TestChooseSlot(t *testing.T) {
	slots := []Slot{
		{ID: "1", StartAtDisplay: "6:00AM"},
		{ID: "2", StartAtDisplay: "7:30AM"},
		{ID: "3", StartAtDisplay: "7:30AM"},
		{ID: "4", StartAtDisplay: "7:30 AM"},
	}

	s, err := ChooseSlot("7:30AM", slots)
	require.NoError(t, err)
	assert.Equal(t, "2", s.ID)

	assert.Len(t, MatchingSlots("7:30AM", slots), 2)
}

func TestChooseSlot_NoMatch(t *testing.T) {
	_, err := ChooseSlot("7:30AM", []Slot{{ID: "1", StartAtDisplay: "7:30 am"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingSlot)
	assert.Equal(t, NoMatchingSlot, Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Booked, Classify(nil))
	assert.Equal(t, TransportError, Classify(&HTTPError{Op: "book", Status: 500}))
	assert.Equal(t, TransportError, Classify(errors.New("dial tcp: connection refused")))
	assert.Equal(t, NoMatchingSlot, Classify(fmt.Errorf("list: %w", ErrNoMatchingSlot)))
}

func TestResult(t *testing.T) {
	r := BookedResult(Slot{ID: "9", StartAtDisplay: "7:30AM"})
	assert.True(t, r.OK())
	assert.Equal(t, "7:30AM (id=9)", r.Detail())

	f := FailedResult(&HTTPError{Op: "login", Status: 401})
	assert.False(t, f.OK())
	assert.Equal(t, TransportError, f.Kind)
	assert.Equal(t, "login failed (status=401)", f.Detail())
	assert.Equal(t, "transport_error", f.Kind.String())
}
