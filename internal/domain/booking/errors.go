package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatchingSlot means the schedule was fetched but no slot carries the target label.
	ErrNoMatchingSlot = errors.New("no slot available")

	// ErrNoSession means the login response carried no cookies.
	ErrNoSession = errors.New("login returned no session cookies")
)

// HTTPError is returned when the portal answers with an error status.
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed (status=%d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed (status=%d): %s", e.Op, e.Status, e.Body)
}

// Classify maps an error from a booking transaction to a Result kind.
// Anything that is not the domain "no slot" condition counts as transport.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return Booked
	case errors.Is(err, ErrNoMatchingSlot):
		return NoMatchingSlot
	default:
		return TransportError
	}
}
