package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
)

// Signal is the ABI's closed signal enumeration: ABI signal numbers
// translate through a fixed table, and unknown signals are invalid.
type Signal uint8

const (
	SignalAbort Signal = iota + 1
	SignalAlarm
	SignalBus
	SignalChild
	SignalContinue
	SignalFPE
	SignalHangup
	SignalIll
	SignalInterrupt
	SignalKill
	SignalPipe
	SignalQuit
	SignalSegv
	SignalStop
	SignalTerm
	SignalTrap
	SignalTTIN
	SignalTTOU
	SignalUser1
	SignalUser2
	SignalURG
	SignalVTAlarm
	SignalXCPU
	SignalXFSZ
)

var signalTable = map[Signal]unix.Signal{
	SignalAbort:     unix.SIGABRT,
	SignalAlarm:     unix.SIGALRM,
	SignalBus:       unix.SIGBUS,
	SignalChild:     unix.SIGCHLD,
	SignalContinue:  unix.SIGCONT,
	SignalFPE:       unix.SIGFPE,
	SignalHangup:    unix.SIGHUP,
	SignalIll:       unix.SIGILL,
	SignalInterrupt: unix.SIGINT,
	SignalKill:      unix.SIGKILL,
	SignalPipe:      unix.SIGPIPE,
	SignalQuit:      unix.SIGQUIT,
	SignalSegv:      unix.SIGSEGV,
	SignalStop:      unix.SIGSTOP,
	SignalTerm:      unix.SIGTERM,
	SignalTrap:      unix.SIGTRAP,
	SignalTTIN:      unix.SIGTTIN,
	SignalTTOU:      unix.SIGTTOU,
	SignalUser1:     unix.SIGUSR1,
	SignalUser2:     unix.SIGUSR2,
	SignalURG:       unix.SIGURG,
	SignalVTAlarm:   unix.SIGVTALRM,
	SignalXCPU:      unix.SIGXCPU,
	SignalXFSZ:      unix.SIGXFSZ,
}

// ProcRaise raises sig against the emulating process itself. The ABI
// models this as acting on an implicit "self" capability rather than a
// table slot, so there is no handle to acquire here — the caller's
// right to invoke proc_raise at all is enforced at the syscall surface's
// entry-point gate, not per-call against a handle.
func (s *Surface) ProcRaise(sig Signal) errmap.Errno {
	host, ok := signalTable[sig]
	if !ok {
		return errmap.EINVAL
	}
	return errmap.FromHost(unix.Kill(unix.Getpid(), host))
}
