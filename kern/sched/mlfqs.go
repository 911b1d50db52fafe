package sched

import "nanokern/kern/fixedpt"

// Multi-level feedback queue accounting. Active only when Config.MLFQS was
// set at boot; priorities then derive entirely from measured CPU usage and
// niceness, and manual priorities plus donation are suppressed.

// mlfqsTick runs from the tick handler with the gate held.
func (k *Kernel) mlfqsTick() {
	cur := k.current
	if cur != k.idle {
		cur.recentCPU = cur.recentCPU.AddInt(1)
	}
	switch {
	case k.ticks%TimerFreq == 0:
		k.mlfqsRecomputeAll()
	case k.ticks%TimeSlice == 0 && cur != k.idle:
		k.mlfqsUpdatePriority(cur)
	}
}

// mlfqsUpdatePriority applies priority = PriMax - recent_cpu/4 - 2*nice,
// truncated and clamped into [PriMin, PriMax].
func (k *Kernel) mlfqsUpdatePriority(t *Thread) {
	if t == k.idle {
		return
	}
	p := fixedpt.FromInt(PriMax).
		Sub(t.recentCPU.DivInt(4)).
		SubInt(2 * t.nice).
		Trunc()
	if p < PriMin {
		p = PriMin
	} else if p > PriMax {
		p = PriMax
	}
	t.priority = p
}

// mlfqsRecomputeAll is the once-per-second sweep: update load_avg, decay
// every live thread's recent_cpu, recompute every priority, and restore
// ready-queue order.
func (k *Kernel) mlfqsRecomputeAll() {
	ready := k.ready.len()
	if k.current != k.idle {
		ready++
	}
	// load_avg = (59/60)*load_avg + (1/60)*ready_threads
	k.loadAvg = k.loadAvg.MulInt(59).DivInt(60).Add(fixedpt.Ratio(ready, 60))

	// recent_cpu = (2*load_avg)/(2*load_avg + 1) * recent_cpu + nice
	twice := k.loadAvg.MulInt(2)
	coef := twice.Div(twice.AddInt(1))
	for _, t := range k.all {
		if t == k.idle {
			continue
		}
		t.recentCPU = coef.Mul(t.recentCPU).AddInt(t.nice)
		k.mlfqsUpdatePriority(t)
	}
	k.ready.resort()
}

// SetNice sets the current thread's niceness, clamped into
// [NiceMin, NiceMax], recomputes its priority, and yields if it dropped.
func (k *Kernel) SetNice(n int) {
	if n < NiceMin {
		n = NiceMin
	} else if n > NiceMax {
		n = NiceMax
	}
	old := k.IntrDisable()
	cur := k.current
	cur.nice = n
	if k.mlfqs {
		before := cur.priority
		k.mlfqsUpdatePriority(cur)
		if cur.priority < before {
			k.yieldCurrent()
		}
	}
	k.IntrRestore(old)
}

// LoadAvg100 returns 100 times the system load average, rounded.
func (k *Kernel) LoadAvg100() int {
	old := k.IntrDisable()
	v := k.loadAvg.MulInt(100).Round()
	k.IntrRestore(old)
	return v
}

// RecentCPU100 returns 100 times the current thread's recent_cpu, rounded.
func (k *Kernel) RecentCPU100() int {
	old := k.IntrDisable()
	v := k.current.recentCPU.MulInt(100).Round()
	k.IntrRestore(old)
	return v
}
