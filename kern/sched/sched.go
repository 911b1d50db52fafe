// Package sched is the thread-scheduling core: strict priority scheduling
// with priority donation, an optional multi-level feedback queue scheduler,
// and timed sleep/wake, all over one thread-state model on a single CPU.
//
// The core owns every thread control block and all queues. Mutation happens
// only with interrupts disabled (see intr.go); context switching, frame
// allocation, timer delivery, and lock wait-queue mechanics are external
// collaborators reached through small interfaces and hooks.
package sched

import (
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"nanokern/kern/fixedpt"
)

// Config carries the boot-time scheduler configuration.
type Config struct {
	// MLFQS selects the multi-level feedback queue scheduler. When false
	// the kernel runs strict priority scheduling with donation. Fixed for
	// the life of the system.
	MLFQS bool

	// Switcher performs context switches. Required.
	Switcher Switcher

	// Frames allocates thread frames. Defaults to a 32-frame Arena.
	Frames FrameAllocator

	// Log, when set, receives dispatch and wake traces at Debug level.
	Log *slog.Logger
}

// Kernel is the process-wide scheduler context. It is created once at boot
// and never torn down.
type Kernel struct {
	mu        sync.Mutex
	intrOff   atomic.Bool
	inHandler atomic.Bool
	// switching is set while the CPU is between threads inside a context
	// switch; a tick landing there may advance the clock but must not
	// touch the outgoing or incoming thread.
	switching bool

	sw     Switcher
	frames FrameAllocator
	log    *slog.Logger
	mlfqs  bool

	ready readyQueue
	sleep sleepQueue
	all   []*Thread

	current *Thread
	idle    *Thread
	boot    *Thread

	ticks         int64
	idleTicks     int64
	kernelTicks   int64
	externalTicks int64
	extDepth      int
	sliceTicks    int
	yieldPending  atomic.Bool

	loadAvg fixedpt.Value

	tidMu   sync.Mutex
	nextTID TID
}

// Stats are the scheduler's tick statistics.
type Stats struct {
	Ticks         int64
	IdleTicks     int64
	KernelTicks   int64
	ExternalTicks int64
}

// Boot initializes the scheduler and adopts the calling context as the
// running "main" thread. Call Start before anything may sleep or block.
func Boot(cfg Config) *Kernel {
	if cfg.Switcher == nil {
		panic("sched: Boot requires a Switcher")
	}
	k := &Kernel{
		sw:      cfg.Switcher,
		frames:  cfg.Frames,
		log:     cfg.Log,
		mlfqs:   cfg.MLFQS,
		nextTID: 1,
	}
	if k.frames == nil {
		k.frames = NewArena(32)
	}
	if k.log == nil {
		k.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	boot := k.newThread("main", PriDefault, nil)
	boot.setState(StateRunning)
	k.boot = boot
	k.current = boot
	k.all = append(k.all, boot)
	k.sw.Prepare(boot, nil)
	return k
}

// Start creates the idle thread. Idle never enters the ready queue; the
// dispatcher hands it the CPU whenever nothing else is runnable.
func (k *Kernel) Start() {
	old := k.IntrDisable()
	if k.idle != nil {
		k.halt("Start called twice")
	}
	t, err := k.allocThread("idle", PriMin, k.idleLoop, nil)
	if err != nil {
		k.halt("Start: %v", err)
	}
	k.idle = t
	k.IntrRestore(old)
}

// Create makes a new thread named name running fn(arg) at the given
// priority and puts it on the ready queue. It returns ErrNoFrames when no
// thread frame is available. The creator keeps the CPU unless the new
// thread outranks it.
func (k *Kernel) Create(name string, priority int, fn Func, arg any) (TID, error) {
	if fn == nil {
		k.halt("Create: nil entry function")
	}
	old := k.IntrDisable()
	t, err := k.allocThread(name, priority, fn, arg)
	if err != nil {
		k.IntrRestore(old)
		return 0, err
	}
	k.unblock(t)
	if t.priority > k.current.priority && !k.inHandler.Load() {
		k.yieldCurrent()
	}
	k.IntrRestore(old)
	return t.id, nil
}

// allocThread builds a Blocked thread backed by a fresh frame and arms the
// switcher with its trampoline. Gate held.
func (k *Kernel) allocThread(name string, priority int, fn Func, arg any) (*Thread, error) {
	f, err := k.frames.NewFrame()
	if err != nil {
		return nil, err
	}
	t := k.newThread(name, priority, f)
	k.all = append(k.all, t)
	k.sw.Prepare(t, func(prev *Thread) { k.threadEntry(prev, fn, arg) })
	return t, nil
}

func (k *Kernel) newThread(name string, priority int, f *Frame) *Thread {
	if priority < PriMin || priority > PriMax {
		k.halt("thread priority %d out of range", priority)
	}
	if len(name) > nameMax {
		name = name[:nameMax]
	}
	t := &Thread{
		id:           k.allocTID(),
		name:         name,
		basePriority: priority,
		priority:     priority,
		frame:        f,
	}
	t.setState(StateBlocked)
	return t
}

func (k *Kernel) allocTID() TID {
	k.tidMu.Lock()
	defer k.tidMu.Unlock()
	id := k.nextTID
	k.nextTID++
	return id
}

// threadEntry is the kernel-thread trampoline: finish the switch that
// started this thread, run the entry function with interrupts enabled, and
// exit if it returns.
func (k *Kernel) threadEntry(prev *Thread, fn Func, arg any) {
	k.mu.Lock()
	k.intrOff.Store(true)
	k.switching = false
	k.scheduleTail(prev)
	k.intrOff.Store(false)
	k.mu.Unlock()

	fn(arg)
	k.Exit()
}

// Yield gives up the CPU; the current thread stays runnable and may be
// chosen again immediately.
func (k *Kernel) Yield() {
	old := k.IntrDisable()
	k.yieldCurrent()
	k.IntrRestore(old)
}

func (k *Kernel) yieldCurrent() {
	k.assertIntrOff("yield")
	if k.inHandler.Load() {
		k.halt("yield from interrupt context")
	}
	cur := k.current
	if cur != k.idle {
		k.ready.insert(cur)
	}
	cur.setState(StateReady)
	k.schedule()
}

// BlockCurrent transitions the running thread to Blocked and schedules.
// Interrupts must be disabled; the thread runs again only after Unblock.
func (k *Kernel) BlockCurrent() {
	k.assertIntrOff("BlockCurrent")
	if k.inHandler.Load() {
		k.halt("block from interrupt context")
	}
	k.current.setState(StateBlocked)
	k.schedule()
}

// Unblock moves a blocked thread to the ready queue. It never preempts: a
// caller that disabled interrupts may unblock atomically with other
// updates and decide about yielding itself.
func (k *Kernel) Unblock(t *Thread) {
	old := k.IntrDisable()
	k.unblock(t)
	k.IntrRestore(old)
}

func (k *Kernel) unblock(t *Thread) {
	if t.State() != StateBlocked {
		k.halt("unblock of %q in state %s", t.name, t.State())
	}
	k.ready.insert(t)
	t.setState(StateReady)
}

// SleepUntil parks the current thread until the tick counter reaches
// deadline. A deadline not in the future degrades to a single yield.
func (k *Kernel) SleepUntil(deadline int64) {
	old := k.IntrDisable()
	cur := k.current
	if cur == k.idle {
		k.halt("idle thread cannot sleep")
	}
	if deadline <= k.ticks {
		k.yieldCurrent()
		k.IntrRestore(old)
		return
	}
	cur.wakeTick = deadline
	k.sleep.insert(cur)
	k.BlockCurrent()
	k.IntrRestore(old)
}

// Sleep parks the current thread for d ticks from now.
func (k *Kernel) Sleep(d int64) {
	old := k.IntrDisable()
	deadline := k.ticks + d
	k.IntrRestore(old)
	k.SleepUntil(deadline)
}

// wakeDue unblocks every sleeper whose deadline has arrived. Gate held.
// Cost is proportional to the threads actually woken.
func (k *Kernel) wakeDue(now int64) {
	for {
		t := k.sleep.popDue(now)
		if t == nil {
			return
		}
		t.wakeTick = 0
		k.unblock(t)
		k.log.Debug("wake", "tid", int32(t.id), "name", t.name)
	}
}

// Exit terminates the current thread. It never returns under a real
// switcher; the frame is reclaimed by whichever thread completes the next
// switch, because a thread cannot free the stack it still runs on.
func (k *Kernel) Exit() {
	old := k.IntrDisable()
	cur := k.current
	if cur == k.idle {
		k.halt("idle thread exit")
	}
	k.removeAll(cur)
	cur.setState(StateDying)
	k.schedule()
	// Reached only under a recording test switcher.
	k.IntrRestore(old)
}

func (k *Kernel) removeAll(t *Thread) {
	for i, o := range k.all {
		if o == t {
			k.all = append(k.all[:i], k.all[i+1:]...)
			return
		}
	}
	k.halt("thread %q not in all-threads set", t.name)
}

// schedule picks the next thread and switches to it. Gate held; the current
// thread's state must already have been moved away from Running.
func (k *Kernel) schedule() {
	k.assertIntrOff("schedule")
	cur := k.current
	if cur.State() == StateRunning {
		k.halt("schedule with the running thread still Running")
	}
	next := k.ready.pop()
	if next == nil {
		if k.idle == nil {
			k.halt("nothing runnable and no idle thread; Start not called")
		}
		next = k.idle
	}

	var prev *Thread
	if cur != next {
		k.log.Debug("dispatch", "from", cur.name, "to", next.name)
		k.current = next
		k.switching = true
		k.mu.Unlock()
		prev = k.sw.Switch(cur, next)
		k.mu.Lock()
		k.switching = false
	}
	k.scheduleTail(prev)
}

// scheduleTail finishes a switch on the incoming thread: mark it Running,
// start a fresh time slice, and reclaim a dying predecessor.
func (k *Kernel) scheduleTail(prev *Thread) {
	k.assertIntrOff("scheduleTail")
	cur := k.current
	cur.setState(StateRunning)
	k.sliceTicks = 0
	if prev != nil && prev != cur && prev.State() == StateDying {
		k.reclaim(prev)
	}
}

func (k *Kernel) reclaim(t *Thread) {
	if t.frame != nil {
		k.frames.FreeFrame(t.frame)
		t.frame = nil
	}
	k.log.Debug("reclaimed", "tid", int32(t.id), "name", t.name)
}

// idleLoop runs when the ready set is empty. It blocks itself immediately;
// the dispatcher hands it the CPU again only when nothing else is runnable.
func (k *Kernel) idleLoop(any) {
	for {
		old := k.IntrDisable()
		k.BlockCurrent()
		k.IntrRestore(old)
		// Stand-in for the architecture's wait-for-interrupt instruction:
		// give the timer driver a chance to deliver a tick.
		runtime.Gosched()
	}
}

// OnTick is called by the timer collaborator once per timer interrupt. It
// advances statistics, runs the feedback-scheduler hooks, wakes due
// sleepers, and requests deferred preemption when the slice is consumed or
// a woken thread outranks the running one.
func (k *Kernel) OnTick() {
	k.mu.Lock()
	savedOff := k.intrOff.Load()
	k.intrOff.Store(true)
	k.inHandler.Store(true)

	k.ticks++
	if k.switching {
		// Mid-switch: neither thread owns the CPU. Only the clock and the
		// sleep queue advance.
		k.wakeDue(k.ticks)
	} else {
		cur := k.current
		switch {
		case cur == k.idle:
			k.idleTicks++
		case k.extDepth > 0:
			k.externalTicks++
		default:
			k.kernelTicks++
		}

		if k.mlfqs {
			k.mlfqsTick()
		}
		k.wakeDue(k.ticks)

		k.sliceTicks++
		if k.sliceTicks >= TimeSlice {
			k.yieldPending.Store(true)
		}
		if f := k.ready.front(); f != nil && f.priority > cur.priority {
			k.yieldPending.Store(true)
		}
	}

	k.inHandler.Store(false)
	k.intrOff.Store(savedOff)
	k.mu.Unlock()
}

// OnExternalEnter brackets the start of a non-timer interrupt handler, for
// statistics attribution.
func (k *Kernel) OnExternalEnter() {
	k.mu.Lock()
	k.extDepth++
	k.mu.Unlock()
}

// OnExternalExit brackets the end of a non-timer interrupt handler.
func (k *Kernel) OnExternalExit() {
	k.mu.Lock()
	if k.extDepth == 0 {
		k.mu.Unlock()
		k.halt("OnExternalExit without matching enter")
	}
	k.extDepth--
	k.mu.Unlock()
}

// PreemptPoint is a safe point: if the tick handler requested preemption
// since the last dispatch, the calling thread yields here. Long-running
// thread bodies call it periodically.
func (k *Kernel) PreemptPoint() {
	if k.yieldPending.CompareAndSwap(true, false) {
		k.Yield()
	}
}

// PreemptRequested reports whether the tick handler asked for a yield.
func (k *Kernel) PreemptRequested() bool { return k.yieldPending.Load() }

// Current returns the running thread. Only meaningful to the running
// thread itself or to callers holding the gate.
func (k *Kernel) Current() *Thread { return k.current }

// Ticks returns the timer tick counter.
func (k *Kernel) Ticks() int64 {
	old := k.IntrDisable()
	t := k.ticks
	k.IntrRestore(old)
	return t
}

// ByTID returns the live thread with the given id, or nil.
func (k *Kernel) ByTID(id TID) *Thread {
	old := k.IntrDisable()
	defer k.IntrRestore(old)
	for _, t := range k.all {
		if t.id == id {
			return t
		}
	}
	return nil
}

// ForEach calls fn for every live thread. Interrupts must be disabled.
func (k *Kernel) ForEach(fn func(*Thread)) {
	k.assertIntrOff("ForEach")
	for _, t := range k.all {
		fn(t)
	}
}

// Stats returns the tick statistics.
func (k *Kernel) Stats() Stats {
	old := k.IntrDisable()
	defer k.IntrRestore(old)
	return Stats{
		Ticks:         k.ticks,
		IdleTicks:     k.idleTicks,
		KernelTicks:   k.kernelTicks,
		ExternalTicks: k.externalTicks,
	}
}
