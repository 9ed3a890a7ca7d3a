package booking

import "fmt"

// Session is the cookie header value returned by a successful login. It is
// only valid for the cycle that obtained it.
type Session string

// Slot is one bookable time window on the portal.
type Slot struct {
	ID             string
	StartAtDisplay string // e.g. "7:30AM"
}

func (s Slot) String() string {
	return fmt.Sprintf("%s (id=%s)", s.StartAtDisplay, s.ID)
}

// Kind classifies the outcome of one booking transaction.
type Kind int

const (
	Booked Kind = iota
	NoMatchingSlot
	TransportError
)

func (k Kind) String() string {
	switch k {
	case Booked:
		return "booked"
	case NoMatchingSlot:
		return "no_matching_slot"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result is the explicit outcome of authenticate -> list -> book.
// Slot is set when Kind is Booked, Err otherwise.
type Result struct {
	Kind Kind
	Slot Slot
	Err  error
}

func BookedResult(s Slot) Result { return Result{Kind: Booked, Slot: s} }

// FailedResult classifies err into NoMatchingSlot or TransportError.
func FailedResult(err error) Result {
	return Result{Kind: Classify(err), Err: err}
}

func (r Result) OK() bool { return r.Kind == Booked }

func (r Result) Detail() string {
	if r.OK() {
		return r.Slot.String()
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Kind.String()
}
