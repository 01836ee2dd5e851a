// Package poll implements the event-wait multiplexer: a single call that
// waits on a mix of file-descriptor readiness and clock deadlines,
// pulling in a futex short-circuit for lock/condvar subscriptions before
// falling back to a host poll. Issues raw host calls directly, the same
// way the rest of this module's syscall-facing packages do.
package poll

import (
	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
)

// ClockID names one of the two clocks subscriptions can reference.
type ClockID uint8

const (
	ClockMonotonic ClockID = iota
	ClockRealtime
)

// SubscriptionKind discriminates the union held by Subscription.
type SubscriptionKind uint8

const (
	SubscriptionClock SubscriptionKind = iota
	SubscriptionFDRead
	SubscriptionFDWrite
)

// Subscription is one entry of the caller's wait vector.
type Subscription struct {
	UserData uint64
	Kind     SubscriptionKind

	// Valid when Kind == SubscriptionClock.
	Clock     ClockID
	Timeout   uint64 // nanoseconds; relative unless Absolute is set
	Precision uint64
	Absolute  bool

	// Valid when Kind is SubscriptionFDRead/SubscriptionFDWrite.
	FD handle.FD
}

// EventKind discriminates the union held by Event.
type EventKind uint8

const (
	EventClock EventKind = iota
	EventFDReadWrite
)

// Event is one output record. Error is ESUCCESS unless the subscription
// itself failed (e.g. a capability check); Kind is always set, while the
// FD-specific fields are populated only on success.
type Event struct {
	UserData uint64
	Error    errmap.Errno
	Kind     EventKind

	// Valid when Kind == EventFDReadWrite.
	NBytes uint64
	Hangup bool
}
