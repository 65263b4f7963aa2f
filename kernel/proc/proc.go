// Package proc is the PCB store: a fixed arena of process slots, the process
// map recording occupancy, running state and owning terminal, and the per
// process file descriptor tables.
package proc

import (
	"errors"
	"fmt"
	"math/bits"

	"kestrel/kernel/mem"
	"kestrel/kernel/signal"
)

const (
	MaxProcesses = 6
	MaxFiles     = 8
	ArgLen       = 128
	TimeLen      = 20
)

// PID identifies a process slot.
type PID int32

// None is the sentinel for "no process".
const None PID = -1

// ErrExhausted is returned by Allocate when every slot is occupied.
var ErrExhausted = errors.New("process table exhausted")

// Continuation is the saved kernel stack position of a switched-out process.
type Continuation struct {
	ESP uint32
	EBP uint32
}

// PCB is a process control block.
type PCB struct {
	PID         PID
	Parent      PID
	Saved       Continuation
	KernelStack uint32

	Files FDTable

	Cmd  [ArgLen]byte
	Args [ArgLen]byte

	Vidmap     bool
	VidmapAddr uint32

	Signals    signal.Set
	AlarmTicks uint32
	Created    [TimeLen]byte
}

// Command returns the command name.
func (p *PCB) Command() string { return cstring(p.Cmd[:]) }

// Argument returns the stored argument, or "".
func (p *PCB) Argument() string { return cstring(p.Args[:]) }

// CreatedAt returns the creation timestamp string.
func (p *PCB) CreatedAt() string { return cstring(p.Created[:]) }

// SetCommand stores cmd and arg, truncating each to its buffer.
func (p *PCB) SetCommand(cmd, arg string) {
	putCString(p.Cmd[:], cmd)
	putCString(p.Args[:], arg)
}

// SetCreated stores the creation timestamp.
func (p *PCB) SetCreated(ts string) { putCString(p.Created[:], ts) }

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func putCString(dst []byte, s string) {
	clear(dst)
	copy(dst[:len(dst)-1], s)
}

// KernelStackTop returns the initial esp0 of pid's kernel stack.
func KernelStackTop(pid PID) uint32 {
	return mem.KernelEnd - mem.KernelStackSz*uint32(pid) - 4
}

// Entry is one process map record.
type Entry struct {
	Occupied bool
	Running  bool
	PID      PID
	Terminal int
}

func (e Entry) String() string {
	if !e.Occupied {
		return "free"
	}
	state := "sleeping"
	if e.Running {
		state = "running"
	}
	return fmt.Sprintf("pid=%d term=%d %s", e.PID, e.Terminal, state)
}

var freeEntry = Entry{PID: None}

// Table owns every process slot.
type Table struct {
	pcbs    [MaxProcesses]PCB
	entries [MaxProcesses]Entry
	used    uint8 // occupancy bitmap
	current PID
}

// NewTable returns an empty table with no current process.
func NewTable() *Table {
	t := &Table{current: None}
	for i := range t.entries {
		t.entries[i] = freeEntry
	}
	return t
}

// Allocate claims the lowest free slot, bound to terminal and not running.
func (t *Table) Allocate(terminal int) (PID, error) {
	free := ^t.used & (1<<MaxProcesses - 1)
	if free == 0 {
		return None, ErrExhausted
	}
	pid := PID(bits.TrailingZeros8(free))
	t.used |= 1 << pid
	t.entries[pid] = Entry{Occupied: true, PID: pid, Terminal: terminal}
	t.pcbs[pid].PID = pid
	return pid, nil
}

// Free releases pid's slot. The PCB contents are left in place.
func (t *Table) Free(pid PID) {
	if !valid(pid) {
		return
	}
	t.used &^= 1 << pid
	t.entries[pid] = freeEntry
}

func valid(pid PID) bool { return pid >= 0 && pid < MaxProcesses }

// Get returns pid's PCB, or nil when pid is out of range.
func (t *Table) Get(pid PID) *PCB {
	if !valid(pid) {
		return nil
	}
	return &t.pcbs[pid]
}

// Current returns the current pid.
func (t *Table) Current() PID { return t.current }

// SetCurrent changes the current pid.
func (t *Table) SetCurrent(pid PID) { t.current = pid }

// CurrentPCB returns the current process's PCB or nil.
func (t *Table) CurrentPCB() *PCB {
	if !t.Occupied(t.current) {
		return nil
	}
	return &t.pcbs[t.current]
}

// Occupied reports whether pid names an allocated slot.
func (t *Table) Occupied(pid PID) bool {
	return valid(pid) && t.used&(1<<pid) != 0
}

// Entry returns pid's process map record.
func (t *Table) Entry(pid PID) Entry {
	if !valid(pid) {
		return freeEntry
	}
	return t.entries[pid]
}

// SetRunning updates pid's running flag.
func (t *Table) SetRunning(pid PID, running bool) {
	if t.Occupied(pid) {
		t.entries[pid].Running = running
	}
}

// OwnerTerminal returns the terminal owning pid. A negative pid maps to
// terminal 0; an out-of-range or free pid returns -1.
func (t *Table) OwnerTerminal(pid PID) int {
	if pid < 0 {
		return 0
	}
	if !t.Occupied(pid) {
		return -1
	}
	return t.entries[pid].Terminal
}

// FindRunning returns the occupied running process bound to terminal.
func (t *Table) FindRunning(terminal int) (PID, bool) {
	for _, e := range t.entries {
		if e.Occupied && e.Running && e.Terminal == terminal {
			return e.PID, true
		}
	}
	return None, false
}

// Snapshot copies the process map.
func (t *Table) Snapshot() [MaxProcesses]Entry { return t.entries }

// Count returns the number of occupied slots.
func (t *Table) Count() int { return bits.OnesCount8(t.used) }
