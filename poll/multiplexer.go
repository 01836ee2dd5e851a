package poll

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// Multiplexer implements the event-wait pipeline: futex short-circuit,
// then a single-clock-sleep fast path, then a general host poll merging
// fd readiness with at most one relative-clock timeout.
type Multiplexer struct {
	engine Engine
	table  *handle.Table
}

// New returns a multiplexer. engine may be nil, in which case the futex
// short-circuit (step 1) is always skipped.
func New(engine Engine, table *handle.Table) *Multiplexer {
	return &Multiplexer{engine: engine, table: table}
}

// Wait runs the full pipeline for one thread's subscription vector and
// returns the resulting events. len(events) never exceeds len(subs).
func (m *Multiplexer) Wait(tid uint32, subs []Subscription) ([]Event, errmap.Errno) {
	if m.engine != nil {
		if out, handled, err := m.engine.Poll(tid, subs); handled {
			if err != nil {
				return nil, errmap.FromHost(err)
			}
			return out, errmap.ESUCCESS
		}
	}

	if len(subs) == 1 && subs[0].Kind == SubscriptionClock {
		return m.singleClockSleep(subs[0])
	}

	return m.generalPoll(subs)
}

// singleClockSleep implements step 2: a host sleep for exactly one clock
// subscription, with no fd component at all.
func (m *Multiplexer) singleClockSleep(sub Subscription) ([]Event, errmap.Errno) {
	if sub.Absolute {
		if sub.Clock == ClockRealtime {
			if err := sleepUntilRealtime(sub.Timeout); err != nil {
				return nil, errmap.FromHost(err)
			}
			return []Event{{UserData: sub.UserData, Kind: EventClock}}, errmap.ESUCCESS
		}
		// The original C emulator returns no-sys for absolute monotonic
		// sleeps. DESIGN.md records the decision to instead implement it
		// as a delta-against-CLOCK_MONOTONIC loop, since Go has no host
		// primitive for "sleep until an absolute monotonic deadline" and
		// looping is strictly more useful than refusing.
		if err := sleepUntilMonotonic(sub.Timeout); err != nil {
			return nil, errmap.FromHost(err)
		}
		return []Event{{UserData: sub.UserData, Kind: EventClock}}, errmap.ESUCCESS
	}

	ts := unix.NsecToTimespec(int64(sub.Timeout))
	for {
		rem := ts
		if err := unix.Nanosleep(&ts, &rem); err != nil {
			if err == unix.EINTR {
				ts = rem
				continue
			}
			return nil, errmap.FromHost(err)
		}
		break
	}
	return []Event{{UserData: sub.UserData, Kind: EventClock}}, errmap.ESUCCESS
}

func sleepUntilRealtime(deadlineNs uint64) error {
	for {
		var now unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_REALTIME, &now); err != nil {
			return err
		}
		nowNs := uint64(now.Sec)*1_000_000_000 + uint64(now.Nsec)
		if nowNs >= deadlineNs {
			return nil
		}
		remaining := deadlineNs - nowNs
		ts := unix.NsecToTimespec(int64(remaining))
		rem := ts
		if err := unix.Nanosleep(&ts, &rem); err != nil && err != unix.EINTR {
			return err
		}
	}
}

func sleepUntilMonotonic(deadlineNs uint64) error {
	for {
		var now unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &now); err != nil {
			return err
		}
		nowNs := uint64(now.Sec)*1_000_000_000 + uint64(now.Nsec)
		if nowNs >= deadlineNs {
			return nil
		}
		remaining := deadlineNs - nowNs
		ts := unix.NsecToTimespec(int64(remaining))
		rem := ts
		if err := unix.Nanosleep(&ts, &rem); err != nil && err != unix.EINTR {
			return err
		}
	}
}

const maxHostPollTimeoutMs = 1<<31 - 1

// generalPoll implements step 3: build parallel pollfd/reference arrays
// under the table's shared lock, release the lock, call host poll, then
// translate results back.
func (m *Multiplexer) generalPoll(subs []Subscription) ([]Event, errmap.Errno) {
	events := make([]Event, len(subs))
	pollFDs := make([]unix.PollFd, 0, len(subs))
	pollIdx := make([]int, 0, len(subs))
	refs := make([]*handle.Object, 0, len(subs))
	defer func() {
		for _, o := range refs {
			o.Release()
		}
	}()

	haveImmediate := false
	var timeoutSub *Subscription
	haveClock := false
	var order []int // indices into events, in the order events were generated

	for i := range subs {
		sub := &subs[i]
		switch sub.Kind {
		case SubscriptionClock:
			if sub.Absolute || haveClock {
				events[i] = Event{UserData: sub.UserData, Error: errmap.ENOSYS, Kind: EventClock}
				order = append(order, i)
				haveImmediate = true
				continue
			}
			haveClock = true
			timeoutSub = sub
		case SubscriptionFDRead, SubscriptionFDWrite:
			obj, _, _, errno := m.table.Get(sub.FD, rights.RightPollFdReadwrite, 0)
			if errno != errmap.ESUCCESS {
				events[i] = Event{UserData: sub.UserData, Error: errno, Kind: EventFDReadWrite}
				order = append(order, i)
				haveImmediate = true
				continue
			}
			var mask int16 = unix.POLLIN
			if sub.Kind == SubscriptionFDWrite {
				mask = unix.POLLOUT
			}
			refs = append(refs, obj)
			pollIdx = append(pollIdx, i)
			pollFDs = append(pollFDs, unix.PollFd{Fd: obj.HostFD(), Events: mask})
		}
	}

	timeoutMs := -1
	if haveImmediate {
		timeoutMs = 0
	} else if timeoutSub != nil {
		ms := int64(timeoutSub.Timeout / 1_000_000)
		if ms > maxHostPollTimeoutMs {
			ms = maxHostPollTimeoutMs
		}
		timeoutMs = int(ms)
	}

	if len(pollFDs) > 0 || timeoutMs >= 0 {
		n, err := unix.Poll(pollFDs, timeoutMs)
		if err != nil && err != unix.EINTR {
			return nil, errmap.FromHost(err)
		}
		_ = n
	}

	anyDescriptorEvent := false
	for k, pfd := range pollFDs {
		i := pollIdx[k]
		sub := &subs[i]
		switch {
		case pfd.Revents == 0:
			continue
		case pfd.Revents&unix.POLLNVAL != 0:
			events[i] = Event{UserData: sub.UserData, Error: errmap.EBADF, Kind: EventFDReadWrite}
			anyDescriptorEvent = true
		case pfd.Revents&unix.POLLERR != 0:
			events[i] = Event{UserData: sub.UserData, Error: errmap.EIO, Kind: EventFDReadWrite}
			anyDescriptorEvent = true
		case pfd.Revents&unix.POLLHUP != 0:
			nbytes := uint64(0)
			if sub.Kind == SubscriptionFDRead {
				nbytes = bytesAvailable(int(pfd.Fd))
			}
			events[i] = Event{UserData: sub.UserData, Kind: EventFDReadWrite, Hangup: true, NBytes: nbytes}
			anyDescriptorEvent = true
		default:
			nbytes := uint64(0)
			if sub.Kind == SubscriptionFDRead {
				nbytes = bytesAvailable(int(pfd.Fd))
			}
			events[i] = Event{UserData: sub.UserData, Kind: EventFDReadWrite, NBytes: nbytes}
			anyDescriptorEvent = true
		}
		order = append(order, i)
	}

	if !anyDescriptorEvent && !haveImmediate && timeoutSub != nil {
		for i := range subs {
			if subs[i].Kind == SubscriptionClock {
				events[i] = Event{UserData: subs[i].UserData, Kind: EventClock}
				order = append(order, i)
			}
		}
	}

	out := make([]Event, 0, len(order))
	for _, i := range order {
		out = append(out, events[i])
	}

	return out, errmap.ESUCCESS
}

// bytesAvailable queries how many bytes are readable without blocking,
// via the host's FIONREAD ioctl.
func bytesAvailable(fd int) uint64 {
	n, err := unix.IoctlGetInt(fd, unix.FIONREAD)
	if err != nil || n < 0 {
		return 0
	}
	return uint64(n)
}
