package sched

import (
	"testing"

	"nanokern/kern/fixedpt"
)

func bootMLFQS() (*Kernel, *stubSwitcher) {
	sw := &stubSwitcher{}
	return Boot(Config{Switcher: sw, MLFQS: true}), sw
}

func TestMLFQSPriorityFormula(t *testing.T) {
	k, _ := bootMLFQS()
	main := k.Current()

	k.mlfqsUpdatePriority(main)
	if main.Priority() != PriMax {
		t.Fatalf("priority = %d with zero inputs, want %d", main.Priority(), PriMax)
	}

	main.nice = 10
	k.mlfqsUpdatePriority(main)
	if main.Priority() != PriMax-20 {
		t.Fatalf("priority = %d at nice 10, want %d", main.Priority(), PriMax-20)
	}

	main.nice = NiceMax
	main.recentCPU = fixedpt.FromInt(1000)
	k.mlfqsUpdatePriority(main)
	if main.Priority() != PriMin {
		t.Fatal("priority not clamped at the bottom")
	}

	main.nice = NiceMin
	main.recentCPU = 0
	k.mlfqsUpdatePriority(main)
	if main.Priority() != PriMax {
		t.Fatal("priority not clamped at the top")
	}
}

func TestMLFQSRecentCPUAccumulates(t *testing.T) {
	k, _ := bootMLFQS()
	for i := 0; i < TimeSlice; i++ {
		k.OnTick()
	}
	if got := k.RecentCPU100(); got != 400 {
		t.Fatalf("RecentCPU100 = %d after %d ticks, want 400", got, TimeSlice)
	}
	// The slice boundary recomputes the running thread's priority.
	if got := k.Current().Priority(); got != PriMax-1 {
		t.Fatalf("priority = %d, want %d", got, PriMax-1)
	}
}

func TestMLFQSLoadAvgSweep(t *testing.T) {
	k, _ := bootMLFQS()
	for i := 0; i < TimerFreq; i++ {
		k.OnTick()
	}
	// One runnable thread for one second: load_avg = 1/60.
	if got := k.LoadAvg100(); got != 2 {
		t.Fatalf("LoadAvg100 = %d, want 2", got)
	}
	// recent_cpu decayed by (2*la)/(2*la+1) at the sweep.
	if got := k.RecentCPU100(); got != 322 {
		t.Fatalf("RecentCPU100 = %d, want 322", got)
	}
}

func TestSetNice(t *testing.T) {
	k, sw := bootMLFQS()
	k.SetNice(5)
	if k.Current().Nice() != 5 {
		t.Fatalf("nice = %d, want 5", k.Current().Nice())
	}
	if k.Current().Priority() != PriMax-10 {
		t.Fatalf("priority = %d, want %d", k.Current().Priority(), PriMax-10)
	}
	if len(sw.switches) != 0 {
		t.Fatal("raising recomputation caused a switch")
	}

	k.SetNice(NiceMax + 10)
	if k.Current().Nice() != NiceMax {
		t.Fatalf("nice = %d, want clamped %d", k.Current().Nice(), NiceMax)
	}
	if k.Current().Priority() != PriMax-2*NiceMax {
		t.Fatalf("priority = %d, want %d", k.Current().Priority(), PriMax-2*NiceMax)
	}
}

func TestSetPriorityIgnoredUnderMLFQS(t *testing.T) {
	k, _ := bootMLFQS()
	k.SetPriority(1)
	if k.Current().Priority() != PriDefault {
		t.Fatal("SetPriority took effect under the feedback scheduler")
	}
}
