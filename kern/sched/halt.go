package sched

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// HaltInfo contains details about a fatal scheduler invariant violation.
type HaltInfo struct {
	TID   TID
	Msg   string
	Stack []byte
}

var (
	haltActive atomic.Bool
	haltOnce   sync.Once

	haltHandler atomic.Value // func(HaltInfo)
)

// Halted reports whether the kernel has hit a fatal invariant violation.
func Halted() bool {
	return haltActive.Load()
}

// SetHaltHandler installs a process-wide handler for fatal violations.
//
// The handler is invoked at most once (on the first halt). It must not
// panic; the halt itself still panics afterwards, because a broken scheduler
// invariant cannot be continued past.
func SetHaltHandler(fn func(HaltInfo)) {
	haltHandler.Store(fn)
}

func triggerHalt(info HaltInfo) {
	haltOnce.Do(func() {
		haltActive.Store(true)
		info.Stack = debug.Stack()
		if v := haltHandler.Load(); v != nil {
			if fn, ok := v.(func(HaltInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// halt reports a broken precondition or invariant and stops the kernel.
func (k *Kernel) halt(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	var id TID
	if k != nil && k.current != nil {
		id = k.current.id
	}
	triggerHalt(HaltInfo{TID: id, Msg: msg})
	panic("sched: " + msg)
}
