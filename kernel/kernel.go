// Package kernel is the process, scheduling, paging and signal core. All
// mutable kernel state lives in one Kernel value; exactly one execution
// context (the current process's, or the booting caller's) touches it at a
// time.
package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"kestrel/hal"
	"kestrel/internal/klog"
	"kestrel/kernel/arch"
	"kestrel/kernel/fs"
	"kestrel/kernel/irq"
	"kestrel/kernel/keyboard"
	"kestrel/kernel/mem"
	"kestrel/kernel/paging"
	"kestrel/kernel/proc"
	"kestrel/kernel/rtc"
	"kestrel/kernel/term"
	"kestrel/kernel/vga"
	"kestrel/userland/ulib"
)

const (
	// PhysMemSize covers the kernel and one 4MB frame per pid.
	PhysMemSize = mem.KernelEnd + proc.MaxProcesses*mem.LargePage

	// DefaultAlarmTicks is the timer tick count between ALARM signals.
	DefaultAlarmTicks = 1000

	// ExceptionStatus is what a parent's execute observes when its child
	// was killed by a fault.
	ExceptionStatus = 256

	// InterruptStatus is the exit status of a process killed by Ctrl-C.
	InterruptStatus = 15

	rootShell = "shell"
)

// Config wires the kernel to its collaborators.
type Config struct {
	Logger *slog.Logger
	FS     *fs.FS
	// Programs binds executable symbols to their user code.
	Programs   map[string]ulib.Program
	Clock      func() time.Time
	AlarmTicks uint32
}

var (
	ErrNoFilesystem = errors.New("no filesystem")
	ErrNoShell      = errors.New("cannot start root shell")
)

// Kernel is the single kernel state.
type Kernel struct {
	log      *slog.Logger
	fs       *fs.FS
	programs map[string]ulib.Program
	clock    func() time.Time
	alarmAt  uint32

	phys    *mem.Physical
	mmu     *paging.Manager
	procs   *proc.Table
	terms   *term.Set
	console *vga.Console
	rtc     *rtc.RTC
	pic     *irq.PIC
	idt     irq.IDT
	kbd     keyboard.Device
	tss     arch.TSS

	intr          bool // EFLAGS.IF
	exceptionHalt bool
	ticks         uint64
	rtcPeriods    atomic.Uint32
	ctx           [proc.MaxProcesses]*execCtx
	syscalls      [numSyscalls]syscallFn

	stdin, stdout           proc.Ops
	fileOps, dirOps, rtcOps proc.Ops

	panicState

	switchHook func(from, to proc.PID)
}

// New builds a kernel. Boot starts it.
func New(cfg Config) (*Kernel, error) {
	if cfg.FS == nil {
		return nil, ErrNoFilesystem
	}
	k := &Kernel{
		log:      cfg.Logger,
		fs:       cfg.FS,
		programs: cfg.Programs,
		clock:    cfg.Clock,
		alarmAt:  cfg.AlarmTicks,
		phys:     mem.New(PhysMemSize),
		mmu:      paging.New(proc.MaxProcesses),
		procs:    proc.NewTable(),
		terms:    term.NewSet(),
		rtc:      rtc.New(term.NumTerminals),
		pic:      irq.NewPIC(),
		tss:      arch.TSS{SS0: arch.KernelDS},
	}
	if k.log == nil {
		k.log = klog.Discard()
	}
	if k.clock == nil {
		k.clock = time.Now
	}
	if k.alarmAt == 0 {
		k.alarmAt = DefaultAlarmTicks
	}
	k.console = vga.NewConsole(kernelMemory{k}, mem.VideoMem)
	k.stdin = termIn{k}
	k.stdout = termOut{k}
	k.fileOps = fileOps{k}
	k.dirOps = dirOps{k}
	k.rtcOps = rtcOps{k}
	k.initSyscalls()
	return k, nil
}

// Boot enables paging, installs the interrupt table and starts the root
// shell of terminal 0. It returns once the shell holds the CPU; the caller
// must not touch the kernel afterwards except through the host methods.
func (k *Kernel) Boot() error {
	k.mmu.Init()
	k.installIDT()

	blank := vga.BlankPage()
	_ = k.phys.Write(mem.VideoMem, blank)
	for i := 0; i < term.NumTerminals; i++ {
		_ = k.phys.Write(k.terms.Get(i).VideoBuffer, blank)
	}
	k.pic.Enable(irq.Timer)
	k.pic.Enable(irq.Keyboard)
	k.pic.Enable(irq.RTC)
	k.intr = true

	k.log.Info("boot", "frames", proc.MaxProcesses, "terminals", term.NumTerminals, "files", k.fs.Len())
	if k.execute(nil, rootShell, 0) < 0 {
		return fmt.Errorf("boot: %w", ErrNoShell)
	}
	return nil
}

// RaiseIRQ asserts a device interrupt line. Safe from any goroutine.
func (k *Kernel) RaiseIRQ(l irq.Line) { k.pic.Raise(l) }

// RaiseRTC asserts the RTC line for n hardware periods. Periods that arrive
// while the line is already requested coalesce in the PIC, so the handler
// replays the count. Safe from any goroutine.
func (k *Kernel) RaiseRTC(n uint32) {
	k.rtcPeriods.Add(n)
	k.pic.Raise(irq.RTC)
}

// PushKey delivers a key event to the keyboard controller. Safe from any
// goroutine.
func (k *Kernel) PushKey(ev hal.KeyEvent) {
	if k.kbd.Push(ev) {
		k.pic.Raise(irq.Keyboard)
	}
}

// ReadVideo copies the physical text page into b. Safe from any goroutine.
func (k *Kernel) ReadVideo(b []byte) error {
	return k.phys.Read(mem.VideoMem, b[:min(len(b), vga.PageSize)])
}

// kernelMemory is supervisor access through the MMU.
type kernelMemory struct{ k *Kernel }

func (m kernelMemory) ReadAt(addr uint32, b []byte) error {
	return m.k.access(addr, b, false, false)
}

func (m kernelMemory) WriteAt(addr uint32, b []byte) error {
	return m.k.access(addr, b, false, true)
}

// access copies between b and virtual memory at virt, one page at a time.
func (k *Kernel) access(virt uint32, b []byte, user, write bool) error {
	for len(b) > 0 {
		phys, err := k.mmu.Translate(virt, user, write)
		if err != nil {
			return err
		}
		n := min(len(b), int(mem.PageSize-virt%mem.PageSize))
		if write {
			err = k.phys.Write(phys, b[:n])
		} else {
			err = k.phys.Read(phys, b[:n])
		}
		if err != nil {
			return err
		}
		b = b[n:]
		virt += uint32(n)
	}
	return nil
}

func (k *Kernel) cli() { k.intr = false }
func (k *Kernel) sti() { k.intr = true }
