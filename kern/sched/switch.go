package sched

// Switcher is the context-switch collaborator. The scheduler never touches
// register state itself; it hands over through this interface with
// interrupts disabled.
type Switcher interface {
	// Prepare arms a new thread so that the first Switch to it enters the
	// kernel-thread trampoline. The boot thread is prepared with a nil
	// entry: it is already running on the caller's context.
	Prepare(t *Thread, entry func(prev *Thread))

	// Switch suspends cur and resumes next, returning the thread that was
	// running just before control came back to cur. A Dying cur never
	// resumes; its return value is reclaimed by whoever switches in.
	Switch(cur, next *Thread) (prev *Thread)
}
