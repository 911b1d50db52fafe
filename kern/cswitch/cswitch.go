// Package cswitch is a context-switch collaborator for hosted runs. Each
// thread runs on its own goroutine; the CPU is handed over a channel, so
// exactly one thread goroutine executes scheduler-visible code at a time.
// The value sent over the channel is the outgoing thread, which becomes the
// receiver's Switch return value.
package cswitch

import (
	"runtime"
	"sync"

	"nanokern/kern/sched"
)

type threadState struct {
	ch      chan *sched.Thread
	entry   func(prev *sched.Thread)
	started bool
}

// GoSwitcher implements sched.Switcher on goroutines.
type GoSwitcher struct {
	mu     sync.Mutex
	states map[sched.TID]*threadState
}

// New creates a GoSwitcher.
func New() *GoSwitcher {
	return &GoSwitcher{states: make(map[sched.TID]*threadState)}
}

// Prepare arms t so the first Switch to it runs entry on a fresh goroutine.
// A nil entry adopts the caller's goroutine (the boot thread).
func (s *GoSwitcher) Prepare(t *sched.Thread, entry func(prev *sched.Thread)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[t.ID()] = &threadState{
		ch:      make(chan *sched.Thread, 1),
		entry:   entry,
		started: entry == nil,
	}
}

func (s *GoSwitcher) state(t *sched.Thread) *threadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[t.ID()]
}

// Switch hands the CPU from cur to next and parks until cur is dispatched
// again. A Dying cur terminates its goroutine at the hand-off instead.
func (s *GoSwitcher) Switch(cur, next *sched.Thread) *sched.Thread {
	ns := s.state(next)
	if ns == nil {
		panic("cswitch: switch to unprepared thread " + next.Name())
	}
	cs := s.state(cur)

	s.mu.Lock()
	if !ns.started {
		ns.started = true
		entry := ns.entry
		ns.entry = nil
		go func() { entry(<-ns.ch) }()
	}
	s.mu.Unlock()

	dying := cur.State() == sched.StateDying
	ns.ch <- cur
	if dying {
		s.mu.Lock()
		delete(s.states, cur.ID())
		s.mu.Unlock()
		runtime.Goexit()
	}
	return <-cs.ch
}
