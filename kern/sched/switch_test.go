package sched

// stubSwitcher records switches and returns control immediately, so tests
// can drive the scheduler as a pure state machine on one goroutine.
type stubSwitcher struct {
	switches []string
}

func (s *stubSwitcher) Prepare(*Thread, func(prev *Thread)) {}

func (s *stubSwitcher) Switch(cur, next *Thread) *Thread {
	s.switches = append(s.switches, cur.name+"->"+next.name)
	return cur
}

func bootTest() (*Kernel, *stubSwitcher) {
	sw := &stubSwitcher{}
	return Boot(Config{Switcher: sw}), sw
}

func noop(any) {}
