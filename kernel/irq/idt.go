package irq

import "kestrel/kernel/arch"

// Handler services an interrupt with the frame pushed on entry.
type Handler func(f *arch.Frame)

// Gate is one IDT descriptor.
type Gate struct {
	Handler Handler
	DPL     uint8
	Trap    bool // trap gates leave IF unchanged
}

// Present reports whether a handler is installed.
func (g Gate) Present() bool { return g.Handler != nil }

// SyscallVector is the software trap used for system calls.
const SyscallVector = 0x80

// Exception vectors the kernel treats specially.
const (
	DivideError   = 0
	PageFault     = 14
	NumExceptions = 20
)

// ExceptionNames lists the architectural exceptions 0..19.
var ExceptionNames = [NumExceptions]string{
	"Divide Error",
	"Debug",
	"Non-Maskable Interrupt",
	"Breakpoint",
	"Overflow",
	"BOUND Range Exceeded",
	"Invalid Opcode",
	"Device Not Available",
	"Double Fault",
	"Coprocessor Segment Overrun",
	"Invalid TSS",
	"Segment Not Present",
	"Stack-Segment Fault",
	"General Protection",
	"Page Fault",
	"Reserved",
	"x87 Floating-Point Error",
	"Alignment Check",
	"Machine Check",
	"SIMD Floating-Point Exception",
}

// IDT is the 256 entry descriptor table.
type IDT [256]Gate

// Set installs h at vector v.
func (t *IDT) Set(v uint8, h Handler, dpl uint8, trap bool) {
	t[v] = Gate{Handler: h, DPL: dpl, Trap: trap}
}

// Dispatch invokes the gate for f.Vector. It reports false when the gate is
// absent or the caller's privilege level is above the gate's DPL.
func (t *IDT) Dispatch(f *arch.Frame, software bool) bool {
	g := t[uint8(f.Vector)]
	if !g.Present() {
		return false
	}
	if software && uint8(f.CS&3) > g.DPL {
		return false
	}
	g.Handler(f)
	return true
}
