package sched

import "sort"

// donationMaxDepth caps transitive donation. Chains deeper than this stop
// propagating; they under-donate but cannot corrupt state. A cycle (a thread
// waiting on a lock it holds) is fatal.
const donationMaxDepth = 8

// Lock is the donation-relevant view of an external mutual-exclusion
// primitive: who holds it, and the highest effective priority among its
// waiters (the priority ceiling). The owning synchronization collaborator
// keeps its own wait queue and maintains the ceiling from it; the donation
// engine raises the ceiling while a waiter donates.
type Lock struct {
	holder  *Thread
	ceiling int
}

// Holder returns the thread currently owning the lock, or nil.
func (l *Lock) Holder() *Thread { return l.holder }

// Ceiling returns the lock's current priority ceiling.
func (l *Lock) Ceiling() int { return l.ceiling }

// SetCeiling records the highest effective priority among the lock's
// waiters, or the owner's base priority when none wait. Called by the
// owning collaborator with interrupts disabled after its wait queue changes.
func (l *Lock) SetCeiling(p int) { l.ceiling = p }

// OnWaitBegin is called when waiter is about to block on l. It donates the
// waiter's effective priority to the holder, transitively through the chain
// of locks the holders themselves wait on. Interrupts must be disabled.
// Disabled while the feedback scheduler governs priority.
func (k *Kernel) OnWaitBegin(waiter *Thread, l *Lock) {
	k.assertIntrOff("OnWaitBegin")
	if waiter == nil || l == nil {
		k.halt("OnWaitBegin: nil waiter or lock")
	}
	waiter.waitingOn = l
	if k.mlfqs {
		return
	}
	cur := l
	for depth := 0; cur != nil && depth < donationMaxDepth; depth++ {
		h := cur.holder
		if h == waiter {
			k.halt("donation cycle: %q waits on a lock it holds", waiter.name)
		}
		if waiter.priority > cur.ceiling {
			cur.ceiling = waiter.priority
		}
		if h == nil || h.priority >= waiter.priority {
			break
		}
		h.priority = waiter.priority
		sortHeld(h)
		if h.State() == StateReady {
			k.ready.reorder(h)
		}
		cur = h.waitingOn
	}
}

// OnAcquired is called when owner has taken l. The lock joins the owner's
// held set; if the ceiling left by remaining waiters exceeds the owner's
// effective priority, the owner inherits it and yields so the ordering is
// re-examined. Interrupts must be disabled.
func (k *Kernel) OnAcquired(owner *Thread, l *Lock) {
	k.assertIntrOff("OnAcquired")
	if owner == nil || l == nil {
		k.halt("OnAcquired: nil owner or lock")
	}
	if l.holder != nil {
		k.halt("OnAcquired: lock already held by %q", l.holder.name)
	}
	l.holder = owner
	owner.waitingOn = nil
	if k.mlfqs {
		return
	}
	owner.held = append(owner.held, l)
	sortHeld(owner)
	if l.ceiling > owner.priority {
		owner.priority = l.ceiling
		if owner == k.current && !k.inHandler.Load() {
			k.yieldCurrent()
		}
	}
}

// OnReleased is called when owner drops l. The owner's effective priority is
// recomputed from its base and remaining held locks; a lowering deferred by
// SetPriority takes effect here. Interrupts must be disabled.
func (k *Kernel) OnReleased(owner *Thread, l *Lock) {
	k.assertIntrOff("OnReleased")
	if l == nil || l.holder != owner {
		k.halt("OnReleased: lock not held by caller")
	}
	l.holder = nil
	if k.mlfqs {
		return
	}
	for i, o := range owner.held {
		if o == l {
			owner.held = append(owner.held[:i], owner.held[i+1:]...)
			break
		}
	}
	k.recomputeDonated(owner)
}

// recomputeDonated derives effective priority from the base and the held
// locks' ceilings, reordering the thread if it sits in the ready queue.
func (k *Kernel) recomputeDonated(t *Thread) {
	p := t.basePriority
	if len(t.held) > 0 {
		sortHeld(t)
		if c := t.held[0].ceiling; c > p {
			p = c
		}
	}
	if p != t.priority {
		t.priority = p
		if t.State() == StateReady {
			k.ready.reorder(t)
		}
	}
}

func sortHeld(t *Thread) {
	sort.SliceStable(t.held, func(i, j int) bool {
		return t.held[i].ceiling > t.held[j].ceiling
	})
}

// SetPriority sets the current thread's base priority. Raising, or setting
// with no held locks, applies immediately and yields; lowering while the
// thread holds donation-raised locks is deferred until release. A no-op
// under the feedback scheduler, and observably idempotent when the value
// does not change.
func (k *Kernel) SetPriority(p int) {
	if k.mlfqs {
		return
	}
	if p < PriMin || p > PriMax {
		k.halt("SetPriority: %d out of range", p)
	}
	old := k.IntrDisable()
	cur := k.current
	if p == cur.basePriority && p == cur.priority {
		k.IntrRestore(old)
		return
	}
	cur.basePriority = p
	if len(cur.held) == 0 || p > cur.priority {
		cur.priority = p
		k.yieldCurrent()
	}
	k.IntrRestore(old)
}
