package booking

import (
	"context"
	"time"
)

// Provider is the remote portal as seen by the scheduler.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) (Session, error)
	ListSlots(ctx context.Context, session Session, clubID int, day time.Time, studio string) ([]Slot, error)
	Book(ctx context.Context, session Session, clubID int, slotID string) error
}
