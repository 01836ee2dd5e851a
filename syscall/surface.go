// Package syscall implements the ABI entry points: each one validates
// argument shape, acquires a lease (handle-table get or resolver
// path_get), issues the host call, translates the error through errmap,
// releases the lease, and returns.
//
// Dispatch by syscall name uses the same radix-tree registry shape as a
// filesystem path dispatcher, keyed on the ABI call name instead of a path.
package syscall

import (
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/poll"
	"github.com/neveragainde/cloudabi-utils/rand"
	"github.com/neveragainde/cloudabi-utils/resolve"
	"github.com/neveragainde/cloudabi-utils/thread"
)

// Surface is the process-wide syscall table: a fixed-shape collection
// the guest-side trampoline addresses by name. Every entry point runs
// against s.Table, the one handle table the Surface holds, alongside the
// other process-wide collaborators (resolver mode, rng, thread pool,
// multiplexer).
type Surface struct {
	Table    *handle.Table
	Resolver *resolve.Resolver
	Multi    *poll.Multiplexer
	RNG      rand.Source
	Threads  *thread.Pool

	dispatch *iradix.Tree
}

// New builds a Surface and populates its dispatch table. The dispatch
// table maps entry-point names to function values; unlike a C emulator's
// array of raw function pointers, Go has no single common signature for
// "any syscall", so each slot holds an interface{} the caller type-asserts
// after a name lookup — exactly the shape a guest trampoline needs if it
// addresses entries by name rather than by a statically known struct
// field.
func New(table *handle.Table, resolver *resolve.Resolver, multi *poll.Multiplexer, rng rand.Source, threads *thread.Pool) *Surface {
	s := &Surface{
		Table:    table,
		Resolver: resolver,
		Multi:    multi,
		RNG:      rng,
		Threads:  threads,
	}
	s.dispatch = s.buildDispatch()
	return s
}

// Lookup returns the function value registered under name, if any. The
// boolean mirrors iradix's own "found" return.
func (s *Surface) Lookup(name string) (interface{}, bool) {
	v, ok := s.dispatch.Get([]byte(name))
	return v, ok
}

func (s *Surface) buildDispatch() *iradix.Tree {
	t := iradix.New()
	entries := map[string]interface{}{
		"fd_read":            s.FDRead,
		"fd_write":           s.FDWrite,
		"fd_seek":            s.FDSeek,
		"fd_close":           s.FDClose,
		"fd_sync":            s.FDSync,
		"fd_datasync":        s.FDDatasync,
		"fd_stat_get":        s.FDStatGet,
		"fd_stat_put":        s.FDStatPut,
		"fd_stat_fget":       s.FDStatFget,
		"fd_stat_fput_size":  s.FDStatFputSize,
		"fd_stat_fput_times": s.FDStatFputTimes,
		"path_open":          s.PathOpen,
		"path_unlink":        s.PathUnlink,
		"path_create_dir":    s.PathCreateDirectory,
		"path_rename":        s.PathRename,
		"path_link":          s.PathLink,
		"path_symlink":       s.PathSymlink,
		"path_readlink":      s.PathReadlink,
		"fd_readdir":         s.FDReaddir,
		"mem_map":            s.MemMap,
		"mem_protect":        s.MemProtect,
		"mem_sync":           s.MemSync,
		"mem_unmap":          s.MemUnmap,
		"sock_recv":          s.SockRecv,
		"sock_send":          s.SockSend,
		"sock_shutdown":      s.SockShutdown,
		"proc_raise":         s.ProcRaise,
		"thread_create":      s.ThreadCreate,
		"thread_exit":        s.ThreadExit,
		"random_get":         s.RandomGet,
		"clock_res_get":      s.ClockResGet,
		"clock_time_get":     s.ClockTimeGet,
		"poll_oneoff":        s.PollOneoff,
	}
	for name, fn := range entries {
		t, _, _ = t.Insert([]byte(name), fn)
	}
	return t
}
