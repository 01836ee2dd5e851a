package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/poll"
	"github.com/neveragainde/cloudabi-utils/timeutil"
)

// ClockID is an alias of poll.ClockID at the syscall surface, so
// clock_res_get/clock_time_get accept exactly the clocks the multiplexer
// recognizes.
type ClockID = poll.ClockID

// RandomGet fills buf with entropy, matching the posix_random_get entry
// point of the C emulator this surface replaces.
func (s *Surface) RandomGet(buf []byte) errmap.Errno {
	s.RNG.Buf(buf)
	return errmap.ESUCCESS
}

// ClockResGet reports a clock's resolution in nanoseconds.
func (s *Surface) ClockResGet(clock ClockID) (uint64, errmap.Errno) {
	var hostClock int32
	switch clock {
	case poll.ClockMonotonic:
		hostClock = unix.CLOCK_MONOTONIC
	case poll.ClockRealtime:
		hostClock = unix.CLOCK_REALTIME
	default:
		return 0, errmap.EINVAL
	}
	var res unix.Timespec
	if err := unix.ClockGetres(hostClock, &res); err != nil {
		return 0, errmap.FromHost(err)
	}
	return timeutil.FromTimespec(res), errmap.ESUCCESS
}

// ClockTimeGet reports the clock's current value as ABI nanoseconds.
// The round-trip law (non-decreasing across calls on the same thread for
// a given clock) holds here because it's a direct passthrough of the
// host's own monotonic/realtime clocks.
func (s *Surface) ClockTimeGet(clock ClockID) (uint64, errmap.Errno) {
	var hostClock int32
	switch clock {
	case poll.ClockMonotonic:
		hostClock = unix.CLOCK_MONOTONIC
	case poll.ClockRealtime:
		hostClock = unix.CLOCK_REALTIME
	default:
		return 0, errmap.EINVAL
	}
	var ts unix.Timespec
	if err := unix.ClockGettime(hostClock, &ts); err != nil {
		return 0, errmap.FromHost(err)
	}
	return timeutil.FromTimespec(ts), errmap.ESUCCESS
}

// PollOneoff runs the event-wait multiplexer's full pipeline for the
// calling thread's subscription vector.
func (s *Surface) PollOneoff(tid uint32, subs []poll.Subscription) ([]poll.Event, errmap.Errno) {
	return s.Multi.Wait(tid, subs)
}
