package sched

import (
	"errors"
	"testing"
)

func TestArenaExhaustAndRecycle(t *testing.T) {
	a := NewArena(2)
	f1, err := a.NewFrame()
	if err != nil {
		t.Fatal(err)
	}
	f2, err := a.NewFrame()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.NewFrame(); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("err = %v, want ErrNoFrames", err)
	}

	a.FreeFrame(f1)
	if a.Free() != 1 {
		t.Fatalf("free = %d, want 1", a.Free())
	}

	f2.Data[0] = 7
	a.FreeFrame(f2)
	f3, err := a.NewFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f3.Data[0] != 0 {
		t.Fatal("recycled frame not zeroed")
	}
}

func TestIntrDisableNests(t *testing.T) {
	k, _ := bootTest()
	o1 := k.IntrDisable()
	if o1 != IntrOn {
		t.Fatal("first disable did not report interrupts on")
	}
	o2 := k.IntrDisable()
	if o2 != IntrOff {
		t.Fatal("nested disable did not report interrupts off")
	}
	k.IntrRestore(o2)
	if k.IntrDisable() != IntrOff {
		t.Fatal("inner restore released the gate")
	}
	k.IntrRestore(o1)
}
