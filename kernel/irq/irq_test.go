package irq

import (
	"testing"

	"kestrel/kernel/arch"
)

func TestMaskedLineIsNotTaken(t *testing.T) {
	p := NewPIC()
	p.Raise(Timer)
	if _, ok := p.Take(); ok {
		t.Fatalf("Take on masked line: want nothing")
	}
	p.Enable(Timer)
	l, ok := p.Take()
	if !ok || l != Timer {
		t.Fatalf("Take = %v, %v; want PIT", l, ok)
	}
}

func TestPriorityAndInService(t *testing.T) {
	p := NewPIC()
	p.Enable(Timer)
	p.Enable(Keyboard)
	p.Enable(RTC)
	p.Raise(RTC)
	p.Raise(Keyboard)
	p.Raise(Timer)

	var order []Line
	for {
		l, ok := p.Take()
		if !ok {
			break
		}
		order = append(order, l)
	}
	want := []Line{Timer, Keyboard, RTC}
	if len(order) != len(want) {
		t.Fatalf("order = %v; want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v; want %v", order, want)
		}
	}

	p.Raise(Timer)
	if _, ok := p.Take(); ok {
		t.Fatalf("Take while PIT in service: want nothing")
	}
	p.EOI(Timer)
	if l, ok := p.Take(); !ok || l != Timer {
		t.Fatalf("Take after EOI = %v, %v", l, ok)
	}
}

func TestVectors(t *testing.T) {
	if Timer.Vector() != 0x20 || Keyboard.Vector() != 0x21 || RTC.Vector() != 0x28 {
		t.Fatalf("vectors = %#x %#x %#x", Timer.Vector(), Keyboard.Vector(), RTC.Vector())
	}
}

func TestDispatchChecksDPL(t *testing.T) {
	var idt IDT
	calls := 0
	idt.Set(0x21, func(*arch.Frame) { calls++ }, 0, false)
	idt.Set(SyscallVector, func(*arch.Frame) { calls++ }, 3, true)

	user := arch.UserEntry(0, 0)
	user.Vector = 0x21
	if idt.Dispatch(&user, true) {
		t.Fatalf("user int $0x21 dispatched through a DPL 0 gate")
	}
	user.Vector = SyscallVector
	if !idt.Dispatch(&user, true) {
		t.Fatalf("user int $0x80 rejected")
	}
	hw := arch.Frame{Vector: 0x21, CS: arch.KernelCS}
	if !idt.Dispatch(&hw, false) {
		t.Fatalf("hardware IRQ rejected")
	}
	if calls != 2 {
		t.Fatalf("calls = %d; want 2", calls)
	}
	empty := arch.Frame{Vector: 0x99}
	if idt.Dispatch(&empty, false) {
		t.Fatalf("absent gate dispatched")
	}
}
