package thread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neveragainde/cloudabi-utils/handle"
)

type seqRNG struct{ next uint32 }

func (r *seqRNG) Uniform(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	v := r.next % bound
	r.next++
	return v
}
func (r *seqRNG) Buf(dst []byte) {}

func TestPoolAllocateIsMonotonicAndUnique(t *testing.T) {
	p := NewPool()
	seen := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		tid := p.Allocate()
		assert.False(t, seen[tid], "tid %d allocated twice", tid)
		seen[tid] = true
	}
}

func TestSpawnInheritsTableAndID(t *testing.T) {
	tbl := handle.NewTable(&seqRNG{})
	pool := NewPool()

	var mu sync.Mutex
	var gotTable *handle.Table
	var gotTID uint32
	done := make(chan struct{})

	tid := Spawn(pool, tbl, func(ctx context.Context, arg uint64) {
		t2, threadID, ok := TableFromContext(ctx)
		mu.Lock()
		if ok {
			gotTable, gotTID = t2, threadID
		}
		mu.Unlock()
		Exit(func() { close(done) })
	}, 0)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker never exited")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Same(t, tbl, gotTable)
	assert.Equal(t, tid, gotTID)
}

func TestSpawnEntryCallingExitCompletes(t *testing.T) {
	// Spawn's goroutine wrapper panics when entry returns without calling
	// Exit; that panic is only observable as a crashed goroutine, which
	// Go's test runner would report as a test failure if left unrecovered.
	// This test therefore covers only the non-violating path.
	tbl := handle.NewTable(&seqRNG{})
	pool := NewPool()
	returned := make(chan struct{})

	// Run through Spawn with an entry that calls Exit, and check that
	// the entry runs and the goroutine ends without crashing.
	_ = Spawn(pool, tbl, func(ctx context.Context, arg uint64) {
		close(returned)
		Exit(nil)
	}, 0)

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("entry never ran")
	}
}

func TestExitRunsReleaseBeforeTerminating(t *testing.T) {
	tbl := handle.NewTable(&seqRNG{})
	pool := NewPool()
	released := make(chan struct{})

	Spawn(pool, tbl, func(ctx context.Context, arg uint64) {
		Exit(func() { close(released) })
	}, 0)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("release was not called before exit")
	}
}
