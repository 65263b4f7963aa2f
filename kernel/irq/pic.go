// Package irq models the cascaded 8259 PIC pair and the interrupt
// descriptor table.
package irq

import (
	"fmt"
	"sync"
)

// Line is an IRQ line number on the cascaded pair (0..15).
type Line uint8

const (
	Timer    Line = 0
	Keyboard Line = 1
	Cascade  Line = 2
	RTC      Line = 8
	Mouse    Line = 12

	NumLines = 16
)

func (l Line) String() string {
	switch l {
	case Timer:
		return "PIT"
	case Keyboard:
		return "KEYBOARD"
	case Cascade:
		return "CASCADE"
	case RTC:
		return "RTC"
	case Mouse:
		return "MOUSE"
	}
	return fmt.Sprintf("IRQ%d", uint8(l))
}

// Vector offsets programmed into the master and slave.
const (
	MasterBase = 0x20
	SlaveBase  = 0x28
)

// Vector returns the IDT vector line is delivered on.
func (l Line) Vector() uint8 {
	if l < 8 {
		return MasterBase + uint8(l)
	}
	return SlaveBase + uint8(l-8)
}

// PIC tracks the request, in-service and mask registers. Devices raise lines
// from any goroutine; the CPU side takes and acknowledges them.
type PIC struct {
	mu     sync.Mutex
	irr    uint16
	isr    uint16
	imr    uint16
	notify chan struct{}
}

// NewPIC returns a PIC with every line masked.
func NewPIC() *PIC {
	return &PIC{imr: 0xFFFF, notify: make(chan struct{}, 1)}
}

// Enable unmasks l. Lines on the slave also unmask the cascade line.
func (p *PIC) Enable(l Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imr &^= 1 << l
	if l >= 8 {
		p.imr &^= 1 << Cascade
	}
}

// Raise asserts l. Repeated raises before service coalesce.
func (p *PIC) Raise(l Line) {
	p.mu.Lock()
	p.irr |= 1 << l
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Take returns the highest priority requested, unmasked line that is not
// already in service, and moves it to in-service.
func (p *PIC) Take() (Line, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready := p.irr &^ p.imr &^ p.isr
	for l := Line(0); l < NumLines; l++ {
		if l == Cascade {
			continue
		}
		if ready&(1<<l) != 0 {
			p.irr &^= 1 << l
			p.isr |= 1 << l
			return l, true
		}
	}
	return 0, false
}

// EOI acknowledges l.
func (p *PIC) EOI(l Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isr &^= 1 << l
}

// Notify fires after a Raise. It is a hint; Take is authoritative.
func (p *PIC) Notify() <-chan struct{} { return p.notify }
