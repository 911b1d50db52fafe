package sched

// IntrLevel is the interrupt enable state of the one CPU.
type IntrLevel bool

const (
	// IntrOn means timer and external interrupts may be delivered.
	IntrOn IntrLevel = true
	// IntrOff means the caller owns the CPU exclusively.
	IntrOff IntrLevel = false
)

// IntrDisable turns interrupts off and returns the previous level.
//
// The gate is the kernel's only mutual exclusion: on a single CPU with
// interrupts off no other code can run, so every scheduler operation holds it
// for the duration of its update. Hosted, "holding the gate" is holding the
// kernel's run mutex; the timer driver blocks on the same mutex the way
// hardware holds a pending interrupt.
//
// Only the running thread (or code already inside the gate) may call this;
// that is the single-CPU model, not a limitation the gate can check.
func (k *Kernel) IntrDisable() IntrLevel {
	if k.intrOff.Load() && !k.inHandler.Load() {
		return IntrOff
	}
	k.mu.Lock()
	k.intrOff.Store(true)
	return IntrOn
}

// IntrRestore returns the interrupt level to old, as returned by the
// matching IntrDisable.
func (k *Kernel) IntrRestore(old IntrLevel) {
	if old == IntrOff {
		return
	}
	k.intrOff.Store(false)
	k.mu.Unlock()
}

// InHandler reports whether an interrupt handler is currently executing.
func (k *Kernel) InHandler() bool { return k.inHandler.Load() }

func (k *Kernel) assertIntrOff(op string) {
	if !k.intrOff.Load() {
		k.halt("%s called with interrupts enabled", op)
	}
}
