// Package keyboard turns host key events into the actions the keyboard
// interrupt handler applies to the displayed terminal.
package keyboard

import (
	"fmt"
	"sync"

	"kestrel/hal"
)

// Kind classifies a decoded key.
type Kind uint8

const (
	None Kind = iota
	Char
	Backspace
	Enter
	Interrupt // Ctrl-C
	Clear     // Ctrl-L
	Switch    // Alt+F1..F3
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Char:
		return "char"
	case Backspace:
		return "backspace"
	case Enter:
		return "enter"
	case Interrupt:
		return "interrupt"
	case Clear:
		return "clear"
	case Switch:
		return "switch"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Action is a decoded key.
type Action struct {
	Kind     Kind
	Char     byte
	Terminal int
}

const (
	ctrlC = 0x03
	ctrlL = 0x0C
)

// Decode maps a key event to an action. Releases decode to None.
func Decode(ev hal.KeyEvent) Action {
	if !ev.Press {
		return Action{}
	}
	switch ev.Code {
	case hal.KeyEnter:
		return Action{Kind: Enter}
	case hal.KeyBackspace:
		return Action{Kind: Backspace}
	case hal.KeyTab:
		return Action{Kind: Char, Char: '\t'}
	case hal.KeyF1, hal.KeyF2, hal.KeyF3:
		if ev.Mods&hal.ModAlt != 0 {
			return Action{Kind: Switch, Terminal: int(ev.Code - hal.KeyF1)}
		}
		return Action{}
	}
	switch r := ev.Rune; {
	case r == ctrlC:
		return Action{Kind: Interrupt}
	case r == ctrlL:
		return Action{Kind: Clear}
	case r == '\n' || r == '\r':
		return Action{Kind: Enter}
	case r == '\b' || r == 0x7F:
		return Action{Kind: Backspace}
	case r >= ' ' && r < 0x7F:
		return Action{Kind: Char, Char: byte(r)}
	}
	return Action{}
}

// QueueLen bounds buffered events; further events are dropped.
const QueueLen = 64

// Device is the controller's output buffer: the host pushes events and the
// interrupt handler drains them.
type Device struct {
	mu sync.Mutex
	q  []hal.KeyEvent
}

// Push queues ev, reporting false when the buffer is full.
func (d *Device) Push(ev hal.KeyEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.q) >= QueueLen {
		return false
	}
	d.q = append(d.q, ev)
	return true
}

// Drain removes and returns every queued event.
func (d *Device) Drain() []hal.KeyEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.q
	d.q = nil
	return out
}
