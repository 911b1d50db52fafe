// Package synch provides the synchronization collaborator the scheduler's
// donation hooks exist for: a counting semaphore that wakes waiters in
// priority order, and a mutex that owns its wait bookkeeping, maintains the
// lock's priority ceiling, and calls the donation hooks at the points the
// engine expects.
package synch

import "nanokern/kern/sched"

// Semaphore is a counting semaphore. Up wakes the highest-priority waiter,
// FIFO among equals.
type Semaphore struct {
	k       *sched.Kernel
	value   int
	waiters []*sched.Thread
}

// NewSemaphore creates a semaphore with initial count n.
func NewSemaphore(k *sched.Kernel, n int) *Semaphore {
	return &Semaphore{k: k, value: n}
}

// Down decrements the count, blocking while it is zero.
func (s *Semaphore) Down() {
	old := s.k.IntrDisable()
	cur := s.k.Current()
	for s.value == 0 {
		s.waiters = append(s.waiters, cur)
		s.k.BlockCurrent()
	}
	s.value--
	s.k.IntrRestore(old)
}

// TryDown decrements the count without blocking, reporting success.
func (s *Semaphore) TryDown() bool {
	old := s.k.IntrDisable()
	ok := s.value > 0
	if ok {
		s.value--
	}
	s.k.IntrRestore(old)
	return ok
}

// Up increments the count and wakes the best waiter, yielding if the woken
// thread outranks the caller.
func (s *Semaphore) Up() {
	old := s.k.IntrDisable()
	s.value++
	cur := s.k.Current()
	woken := s.wake()
	s.k.IntrRestore(old)
	if woken != nil && woken.Priority() > cur.Priority() && !s.k.InHandler() {
		s.k.Yield()
	}
}

// wake unblocks the highest-priority waiter, if any. Gate held.
func (s *Semaphore) wake() *sched.Thread {
	if len(s.waiters) == 0 {
		return nil
	}
	best := 0
	for i, w := range s.waiters {
		if w.Priority() > s.waiters[best].Priority() {
			best = i
		}
	}
	w := s.waiters[best]
	s.waiters = append(s.waiters[:best], s.waiters[best+1:]...)
	s.k.Unblock(w)
	return w
}

// Mutex is a lock with priority donation: while a higher-priority thread
// waits, the holder runs at the waiter's effective priority.
type Mutex struct {
	k       *sched.Kernel
	rec     sched.Lock
	waiters []*sched.Thread
}

// NewMutex creates an unowned mutex.
func NewMutex(k *sched.Kernel) *Mutex {
	return &Mutex{k: k}
}

// Holder returns the thread currently owning the mutex, or nil.
func (m *Mutex) Holder() *sched.Thread { return m.rec.Holder() }

// Acquire takes the mutex, donating the caller's priority to the holder
// while it waits.
func (m *Mutex) Acquire() {
	old := m.k.IntrDisable()
	cur := m.k.Current()
	for m.rec.Holder() != nil {
		m.k.OnWaitBegin(cur, &m.rec)
		m.waiters = append(m.waiters, cur)
		m.k.BlockCurrent()
	}
	m.rec.SetCeiling(m.maxWaiterPriority(cur))
	m.k.OnAcquired(cur, &m.rec)
	m.k.IntrRestore(old)
}

// TryAcquire takes the mutex without blocking, reporting success.
func (m *Mutex) TryAcquire() bool {
	old := m.k.IntrDisable()
	ok := m.rec.Holder() == nil
	if ok {
		cur := m.k.Current()
		m.rec.SetCeiling(m.maxWaiterPriority(cur))
		m.k.OnAcquired(cur, &m.rec)
	}
	m.k.IntrRestore(old)
	return ok
}

// Release drops the mutex, reverting any donated priority, and wakes the
// highest-priority waiter.
func (m *Mutex) Release() {
	old := m.k.IntrDisable()
	cur := m.k.Current()
	m.k.OnReleased(cur, &m.rec)

	var woken *sched.Thread
	if len(m.waiters) > 0 {
		best := 0
		for i, w := range m.waiters {
			if w.Priority() > m.waiters[best].Priority() {
				best = i
			}
		}
		woken = m.waiters[best]
		m.waiters = append(m.waiters[:best], m.waiters[best+1:]...)
		m.k.Unblock(woken)
	}
	m.rec.SetCeiling(m.maxWaiterPriority(nil))

	m.k.IntrRestore(old)
	if woken != nil && woken.Priority() > cur.Priority() && !m.k.InHandler() {
		m.k.Yield()
	}
}

// maxWaiterPriority derives the lock ceiling from the remaining waiters,
// falling back to the prospective owner's base priority. Gate held.
func (m *Mutex) maxWaiterPriority(owner *sched.Thread) int {
	p := sched.PriMin
	if owner != nil {
		p = owner.BasePriority()
	}
	for _, w := range m.waiters {
		if w.Priority() > p {
			p = w.Priority()
		}
	}
	return p
}
