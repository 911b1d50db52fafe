package cswitch

import (
	"strings"
	"testing"

	"nanokern/kern/sched"
)

func TestSwitchRoundTrip(t *testing.T) {
	k := sched.Boot(sched.Config{Switcher: New()})

	var events []string
	_, err := k.Create("worker", 40, func(arg any) {
		events = append(events, "worker:"+arg.(string))
	}, "ran")
	if err != nil {
		t.Fatal(err)
	}

	// The worker outranked the creator, ran to completion, and exited; the
	// CPU is back here.
	if k.Current().Name() != "main" {
		t.Fatalf("current = %q, want main", k.Current().Name())
	}
	if len(events) != 1 || events[0] != "worker:ran" {
		t.Fatalf("events = %v", events)
	}
}

func TestRunsInPriorityOrder(t *testing.T) {
	k := sched.Boot(sched.Config{Switcher: New()})

	var order []string
	body := func(arg any) { order = append(order, arg.(string)) }
	if _, err := k.Create("lo", 10, body, "lo"); err != nil {
		t.Fatal(err)
	}
	if _, err := k.Create("hi", 20, body, "hi"); err != nil {
		t.Fatal(err)
	}

	// Dropping below both hands the CPU over; they drain in priority order
	// before control returns.
	k.SetPriority(5)
	if got := strings.Join(order, ","); got != "hi,lo" {
		t.Fatalf("run order = %q, want hi,lo", got)
	}
	if k.Current().Name() != "main" {
		t.Fatalf("current = %q, want main", k.Current().Name())
	}
}

func TestSleeperWokenByTicks(t *testing.T) {
	k := sched.Boot(sched.Config{Switcher: New()})
	k.Start()

	done := make(chan struct{})
	_, err := k.Create("sleeper", 40, func(any) {
		k.Sleep(3)
		close(done)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
			t.Fatal("sleeper woke before its deadline")
		default:
		}
		k.OnTick()
	}
	if !k.PreemptRequested() {
		t.Fatal("outranking wake did not request preemption")
	}
	k.PreemptPoint()
	<-done
	if k.Current().Name() != "main" {
		t.Fatalf("current = %q, want main", k.Current().Name())
	}
}
