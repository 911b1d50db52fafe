package synch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nanokern/kern/cswitch"
	"nanokern/kern/sched"
)

func bootTest(t *testing.T) *sched.Kernel {
	t.Helper()
	return sched.Boot(sched.Config{Switcher: cswitch.New()})
}

func TestSemaphoreTryDown(t *testing.T) {
	k := bootTest(t)
	sem := NewSemaphore(k, 1)
	require.True(t, sem.TryDown())
	require.False(t, sem.TryDown())
	sem.Up()
	require.True(t, sem.TryDown())
}

func TestSemaphoreWakesByPriority(t *testing.T) {
	k := bootTest(t)
	sem := NewSemaphore(k, 0)

	var order []string
	waiter := func(arg any) {
		sem.Down()
		order = append(order, arg.(string))
	}
	_, err := k.Create("w1", 40, waiter, "w1")
	require.NoError(t, err)
	_, err = k.Create("w2", 45, waiter, "w2")
	require.NoError(t, err)

	// Both waiters preempted the creator, blocked on the semaphore, and
	// handed the CPU back. Each Up releases the best waiter, not the first.
	sem.Up()
	sem.Up()
	require.Equal(t, []string{"w2", "w1"}, order)
	require.False(t, sem.TryDown())
}

func TestMutexUncontended(t *testing.T) {
	k := bootTest(t)
	m := NewMutex(k)

	require.True(t, m.TryAcquire())
	require.Equal(t, k.Current(), m.Holder())
	require.False(t, m.TryAcquire())
	m.Release()
	require.Nil(t, m.Holder())

	m.Acquire()
	require.Equal(t, k.Current(), m.Holder())
	m.Release()
}

func TestMutexDonation(t *testing.T) {
	k := bootTest(t)
	m := NewMutex(k)
	main := k.Current()

	m.Acquire()

	var events []string
	_, err := k.Create("A", 50, func(any) {
		events = append(events, "acquiring")
		m.Acquire()
		events = append(events, "acquired")
		m.Release()
	}, nil)
	require.NoError(t, err)

	// A ran first, blocked on the mutex, and donated its priority.
	require.Equal(t, []string{"acquiring"}, events)
	require.Equal(t, 50, main.Priority())
	require.Equal(t, sched.PriDefault, main.BasePriority())

	// Release reverts the donation and lets A through.
	m.Release()
	require.Equal(t, []string{"acquiring", "acquired"}, events)
	require.Equal(t, sched.PriDefault, main.Priority())
	require.Nil(t, m.Holder())
}

func TestMutexDonationChains(t *testing.T) {
	k := bootTest(t)
	l1 := NewMutex(k)
	l2 := NewMutex(k)
	main := k.Current()

	l2.Acquire()

	var events []string
	btid, err := k.Create("B", 35, func(any) {
		l1.Acquire()
		events = append(events, "B:waiting")
		l2.Acquire()
		events = append(events, "B:locked both")
		l2.Release()
		l1.Release()
	}, nil)
	require.NoError(t, err)
	b := k.ByTID(btid)

	_, err = k.Create("A", 50, func(any) {
		events = append(events, "A:waiting")
		l1.Acquire()
		events = append(events, "A:locked")
		l1.Release()
	}, nil)
	require.NoError(t, err)

	// A waits on B's lock, B waits on main's: the donation flows through
	// the whole chain.
	require.Equal(t, 50, b.Priority())
	require.Equal(t, 50, main.Priority())

	// Releasing l2 unwinds everything in priority order.
	l2.Release()
	require.Equal(t, []string{
		"B:waiting", "A:waiting", "B:locked both", "A:locked",
	}, events)
	require.Equal(t, sched.PriDefault, main.Priority())
	require.Nil(t, k.ByTID(btid))
}
