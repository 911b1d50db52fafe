package sched

import (
	"errors"
	"sync"
)

// FrameBytes is the size of the block backing one thread.
const FrameBytes = 4096

// Frame is a zeroed page-sized block holding a thread's stack and register
// save area. The scheduler treats its contents as opaque; they belong to the
// context-switch collaborator.
type Frame struct {
	Data [FrameBytes]byte
}

// ErrNoFrames reports thread-frame exhaustion to a creator. The scheduler
// performs no retry.
var ErrNoFrames = errors.New("sched: out of thread frames")

// FrameAllocator obtains and releases thread frames.
type FrameAllocator interface {
	// NewFrame returns a zeroed frame, or ErrNoFrames.
	NewFrame() (*Frame, error)
	// FreeFrame returns a frame for reuse.
	FreeFrame(*Frame)
}

// Arena is a fixed-capacity FrameAllocator.
type Arena struct {
	mu   sync.Mutex
	free []*Frame
}

// NewArena creates an arena holding n frames.
func NewArena(n int) *Arena {
	a := &Arena{free: make([]*Frame, 0, n)}
	for i := 0; i < n; i++ {
		a.free = append(a.free, &Frame{})
	}
	return a
}

// NewFrame pops a free frame, zeroed.
func (a *Arena) NewFrame() (*Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.free) == 0 {
		return nil, ErrNoFrames
	}
	f := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	*f = Frame{}
	return f, nil
}

// FreeFrame returns a frame to the arena.
func (a *Arena) FreeFrame(f *Frame) {
	if f == nil {
		return
	}
	a.mu.Lock()
	a.free = append(a.free, f)
	a.mu.Unlock()
}

// Free reports how many frames remain.
func (a *Arena) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}
