package sched

// sleepQueue holds threads blocked until a deadline tick, earliest deadline
// first, FIFO among equal deadlines. Because the queue is sorted, waking
// scans only the threads actually due, not every sleeper.
type sleepQueue struct {
	q []*Thread
}

func (s *sleepQueue) insert(t *Thread) {
	i := len(s.q)
	for j, o := range s.q {
		if o.wakeTick > t.wakeTick {
			i = j
			break
		}
	}
	s.q = append(s.q, nil)
	copy(s.q[i+1:], s.q[i:])
	s.q[i] = t
}

// popDue removes and returns the earliest sleeper if its deadline has
// arrived, or nil. Callers loop until nil; the first future deadline ends
// the scan.
func (s *sleepQueue) popDue(now int64) *Thread {
	if len(s.q) == 0 || s.q[0].wakeTick > now {
		return nil
	}
	t := s.q[0]
	copy(s.q, s.q[1:])
	s.q[len(s.q)-1] = nil
	s.q = s.q[:len(s.q)-1]
	return t
}

func (s *sleepQueue) len() int { return len(s.q) }
