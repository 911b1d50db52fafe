package sched

import "sort"

// readyQueue holds runnable threads, highest effective priority first.
// Equal priorities keep FIFO insertion order so no thread starves behind
// its peers. O(n) insertion is fine at kernel thread counts.
type readyQueue struct {
	q []*Thread
}

// insert places t behind every resident with priority >= t's.
func (r *readyQueue) insert(t *Thread) {
	i := len(r.q)
	for j, o := range r.q {
		if o.priority < t.priority {
			i = j
			break
		}
	}
	r.q = append(r.q, nil)
	copy(r.q[i+1:], r.q[i:])
	r.q[i] = t
}

// pop removes and returns the highest-priority resident, or nil.
func (r *readyQueue) pop() *Thread {
	if len(r.q) == 0 {
		return nil
	}
	t := r.q[0]
	copy(r.q, r.q[1:])
	r.q[len(r.q)-1] = nil
	r.q = r.q[:len(r.q)-1]
	return t
}

// remove takes t out of the queue, reporting whether it was resident.
func (r *readyQueue) remove(t *Thread) bool {
	for i, o := range r.q {
		if o == t {
			copy(r.q[i:], r.q[i+1:])
			r.q[len(r.q)-1] = nil
			r.q = r.q[:len(r.q)-1]
			return true
		}
	}
	return false
}

// reorder restores ordering after t's priority changed while ready. The
// thread joins the back of its new priority class.
func (r *readyQueue) reorder(t *Thread) {
	if r.remove(t) {
		r.insert(t)
	}
}

// resort restores ordering after a sweep changed many priorities. Stable, so
// FIFO order inside each priority class survives.
func (r *readyQueue) resort() {
	sort.SliceStable(r.q, func(i, j int) bool {
		return r.q[i].priority > r.q[j].priority
	})
}

func (r *readyQueue) len() int { return len(r.q) }

func (r *readyQueue) front() *Thread {
	if len(r.q) == 0 {
		return nil
	}
	return r.q[0]
}
