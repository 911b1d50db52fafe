package sched

import (
	"sync/atomic"

	"nanokern/kern/fixedpt"
)

// Priority range. Higher numbers run first.
const (
	PriMin     = 0
	PriMax     = 63
	PriDefault = 31
)

// Niceness range for the feedback scheduler.
const (
	NiceMin = -20
	NiceMax = 20
)

// TimeSlice is the number of ticks a thread may run before the tick handler
// requests preemption.
const TimeSlice = 4

// TimerFreq is the number of timer ticks per second; the feedback scheduler
// recomputes load_avg and recent_cpu on this period.
const TimerFreq = 100

const nameMax = 16

// TID identifies a thread. IDs ascend from 1 and are never reused.
type TID int32

// Func is a thread entry function.
type Func func(arg any)

// State is a thread's scheduling state.
type State int32

const (
	// StateRunning marks the one thread that owns the CPU.
	StateRunning State = iota
	// StateReady marks a runnable thread waiting in the ready queue.
	StateReady
	// StateBlocked marks a thread waiting on a deadline or a primitive.
	StateBlocked
	// StateDying marks a terminated thread awaiting reclamation.
	StateDying
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateBlocked:
		return "blocked"
	case StateDying:
		return "dying"
	default:
		return "invalid"
	}
}

// Thread is a thread control block. The scheduler owns every Thread
// exclusively; all mutation happens with interrupts disabled, and the state
// field is atomic so the context-switch collaborator may inspect it during
// the hand-off window.
type Thread struct {
	id    TID
	name  string
	state atomic.Int32

	// basePriority is the priority set at creation or by SetPriority;
	// priority is the effective value after donation, or the feedback
	// scheduler's output.
	basePriority int
	priority     int

	nice      int
	recentCPU fixedpt.Value

	// wakeTick is the sleep deadline; meaningful only while the thread is
	// parked in the sleep queue.
	wakeTick int64

	// held lists locks owned by this thread, highest ceiling first.
	// waitingOn is the lock this thread is currently blocked on, if any.
	held      []*Lock
	waitingOn *Lock

	// frame is the opaque storage block backing this thread. The boot
	// thread has none; its stack was not obtained from the allocator.
	frame *Frame
}

// ID returns the thread identifier.
func (t *Thread) ID() TID { return t.id }

// Name returns the thread's (bounded) name.
func (t *Thread) Name() string { return t.name }

// State returns the thread's scheduling state.
func (t *Thread) State() State { return State(t.state.Load()) }

func (t *Thread) setState(s State) { t.state.Store(int32(s)) }

// Priority returns the effective priority.
func (t *Thread) Priority() int { return t.priority }

// BasePriority returns the priority before donation.
func (t *Thread) BasePriority() int { return t.basePriority }

// Nice returns the thread's niceness.
func (t *Thread) Nice() int { return t.nice }
