package futex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neveragainde/cloudabi-utils/poll"
)

func TestCondvarSignalWakesWaiters(t *testing.T) {
	e := NewLocalEngine()
	done := make(chan struct{})

	go func() {
		e.Wait(100)
		close(done)
	}()

	// Give the waiter a moment to register before signaling.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, e.CondvarSignal(100, poll.ScopePrivate, 1))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestCondvarSignalRespectsCount(t *testing.T) {
	e := NewLocalEngine()
	woken := make(chan int, 3)

	for i := 0; i < 3; i++ {
		i := i
		go func() {
			e.Wait(200)
			woken <- i
		}()
	}
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, e.CondvarSignal(200, poll.ScopePrivate, 2))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, woken, 2)

	require.NoError(t, e.CondvarSignal(200, poll.ScopePrivate, 1))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, woken, 3)
}

func TestLockUnlockWakesExactlyOne(t *testing.T) {
	e := NewLocalEngine()
	woken := make(chan struct{}, 2)

	go func() { e.Wait(300); woken <- struct{}{} }()
	go func() { e.Wait(300); woken <- struct{}{} }()
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, e.LockUnlock(1, 300, poll.ScopePrivate))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, woken, 1)
}

func TestPollAlwaysDeclines(t *testing.T) {
	e := NewLocalEngine()
	out, handled, err := e.Poll(1, []poll.Subscription{{Kind: poll.SubscriptionClock}})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Nil(t, out)
}
