package syscall

import (
	"context"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/thread"
)

// ThreadEntry is the guest entry point address thread_create is handed,
// paired with the argument word passed through to it.
type ThreadEntry func(ctx context.Context, argument uint64)

// ThreadCreate allocates a thread id, packages {entry, argument, current
// handle table}, and spawns a detached worker that installs thread-local
// state before invoking entry.
func (s *Surface) ThreadCreate(entry ThreadEntry, argument uint64) (uint32, errmap.Errno) {
	tid := thread.Spawn(s.Threads, s.Table, thread.Entry(entry), argument)
	return tid, errmap.ESUCCESS
}

// ThreadExit releases the supplied lock (so joiners wake) and terminates
// the calling worker.
func (s *Surface) ThreadExit(release func()) errmap.Errno {
	thread.Exit(release)
	return errmap.ESUCCESS // unreachable: Exit never returns
}
