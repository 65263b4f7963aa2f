package kernel

import (
	"encoding/binary"
	"runtime"

	"kestrel/kernel/arch"
	"kestrel/kernel/irq"
	"kestrel/kernel/proc"
	"kestrel/kernel/signal"
)

// execCtx is the execution context of one pid. Its goroutine runs only
// while holding the CPU, which is handed over by sending on wake.
type execCtx struct {
	pid  proc.PID
	wake chan int32
	user *userProc

	// handoff runs after the goroutine has unwound on halt. It passes the
	// CPU on while this context still owns it.
	handoff func()
}

func (k *Kernel) newContext(pid proc.PID, u *userProc) *execCtx {
	c := &execCtx{pid: pid, wake: make(chan int32, 1), user: u}
	u.ctx = c
	k.ctx[pid] = c
	go k.run(c)
	return c
}

// resume hands the CPU to pid, delivering v as the result of its park.
func (k *Kernel) resume(pid proc.PID, v int32) {
	c := k.ctx[pid]
	if c == nil {
		k.panicf("resume pid %d: no execution context", pid)
	}
	c.wake <- v
}

// park gives up the CPU until pid is resumed.
func (k *Kernel) park(pid proc.PID) int32 {
	return <-k.ctx[pid].wake
}

// continuation is the synthetic kernel stack position recorded for pid.
func continuation(pid proc.PID) proc.Continuation {
	top := proc.KernelStackTop(pid)
	return proc.Continuation{ESP: top - arch.FrameSize - 16, EBP: top - 8}
}

// run is the body of a process goroutine.
func (k *Kernel) run(c *execCtx) {
	defer func() {
		if c.handoff != nil {
			c.handoff()
		}
	}()
	<-c.wake
	u := c.user
	ret, fault := k.enterUser(u)
	// Returning from the program is halt(ret).
	status := int32(uint8(ret))
	if fault != nil {
		k.userFault(u, fault)
		// A handler returned into code that cannot be resumed.
		k.exceptionHalt = true
		status = 255
	}
	k.halt(u, status)
}

// enterUser runs the program until it returns or panics.
func (k *Kernel) enterUser(u *userProc) (status int32, fault any) {
	defer func() {
		if r := recover(); r != nil {
			if u.inKernel {
				k.panicValue(r)
			}
			fault = r
		}
	}()
	return u.prog(u), nil
}

// userFault turns a runtime panic in user code into the matching exception.
func (k *Kernel) userFault(u *userProc, r any) {
	vec := uint32(13)
	if err, ok := r.(runtime.Error); ok && err.Error() == "runtime error: integer divide by zero" {
		vec = irq.DivideError
	}
	k.log.Warn("user fault", "pid", u.pid, "vector", vec, "panic", r)
	k.exception(u, vec, 0)
}

// exception enters the IDT for a fault taken at u's current instruction.
func (k *Kernel) exception(u *userProc, vec, code uint32) {
	f := u.frame()
	f.Vector = vec
	f.ErrCode = code
	k.enter(u, &f)
}

// enter takes an interrupt gate with f and returns through iret.
func (k *Kernel) enter(u *userProc, f *arch.Frame) {
	prev := u.inKernel
	u.inKernel = true
	k.intr = false
	if !k.idt.Dispatch(f, false) {
		k.log.Error("no gate", "vector", f.Vector)
	}
	u.inKernel = prev
	k.iret(u, f)
}

// window services pending interrupts at a user instruction boundary.
func (k *Kernel) window(u *userProc) {
	for k.intr {
		l, ok := k.pic.Take()
		if !ok {
			return
		}
		f := u.frame()
		f.Vector = uint32(l.Vector())
		k.enter(u, &f)
	}
}

// hlt enables interrupts and sleeps until one has been serviced.
func (k *Kernel) hlt(u *userProc) {
	k.intr = true
	for {
		if l, ok := k.pic.Take(); ok {
			f := arch.Frame{
				Vector: uint32(l.Vector()),
				CS:     arch.KernelCS,
				DS:     arch.KernelDS,
				ES:     arch.KernelDS,
				EFlags: arch.EFlagsReserved | arch.EFlagsIF,
				EIP:    hltPC,
			}
			k.enter(u, &f)
			return
		}
		<-k.pic.Notify()
	}
}

// hltPC is the synthetic kernel address of the idle loop.
const hltPC = 0x00401000

// iret returns from an interrupt or trap to f. Pending signals are
// delivered first; a frame redirected to a user handler runs the handler
// and its sigreturn before the return completes.
func (k *Kernel) iret(u *userProc, f *arch.Frame) {
	for {
		k.deliver(u, f)
		k.intr = f.EFlags&arch.EFlagsIF != 0
		if !f.FromUser() {
			return
		}
		if f.EIP == u.pc {
			u.sp = f.UserESP
			return
		}
		k.runHandler(u, f)
	}
}

// runHandler executes the user handler f points at, then the handler's
// ret into the return stub and the stub's sigreturn trap. f is replaced by
// the frame sigreturn restored.
func (k *Kernel) runHandler(u *userProc, f *arch.Frame) {
	h, ok := u.text[f.EIP]
	if !ok {
		k.lostControl(u, f.EIP)
	}
	var w [4]byte
	if err := k.access(f.UserESP+4, w[:], true, false); err != nil {
		k.lostControl(u, f.EIP)
	}
	signum := int32(binary.LittleEndian.Uint32(w[:]))

	saved, prev := u.sp, u.inKernel
	u.sp, u.inKernel = f.UserESP, false
	h(u, signum)
	u.inKernel = prev

	// ret
	sp := u.sp
	u.sp = saved
	if err := k.access(sp, w[:], true, false); err != nil {
		k.lostControl(u, f.EIP)
	}
	ret := binary.LittleEndian.Uint32(w[:])
	sp += 4
	code := make([]byte, len(signal.ReturnStub))
	if err := k.access(ret, code, true, false); err != nil || !signal.IsReturnStub(code) {
		k.lostControl(u, ret)
	}

	g := arch.UserEntry(ret+signal.StubTrapLen, sp)
	g.EAX = signal.SigreturnSyscall
	g.Vector = irq.SyscallVector
	u.inKernel = true
	if !k.idt.Dispatch(&g, true) {
		k.lostControl(u, ret)
	}
	u.inKernel = prev
	*f = g
}

// lostControl kills a process whose user stack no longer leads back to
// code the kernel can run.
func (k *Kernel) lostControl(u *userProc, eip uint32) {
	k.log.Warn("user control flow lost", "pid", u.pid, "eip", eip)
	k.exceptionHalt = true
	k.halt(u, 255)
}

// deliver runs the signal delivery step of a return to f.
func (k *Kernel) deliver(u *userProc, f *arch.Frame) {
	pcb := k.procs.CurrentPCB()
	if pcb == nil || pcb.PID != u.pid {
		return
	}
	sl, ok := pcb.Signals.Next()
	if !ok {
		return
	}
	if sl.Handler != 0 && !f.FromUser() {
		return
	}
	pcb.Signals.Take()
	k.log.Debug("deliver signal", "pid", u.pid, "signal", sl.Kind, "handler", sl.Handler)

	if sl.Handler == 0 {
		k.defaultAction(u, sl.Kind)
		pcb.Signals.UnmaskAll()
		return
	}
	sp, img := signal.Build(*f, sl.Kind)
	if err := k.access(sp, img, true, true); err != nil {
		k.log.Warn("signal frame", "pid", u.pid, "err", err)
		k.exceptionHalt = true
		k.halt(u, 255)
	}
	f.EIP = sl.Handler
	f.UserESP = sp
	f.CS = arch.UserCS
	f.DS, f.ES, f.SS = arch.UserDS, arch.UserDS, arch.UserDS
}

func (k *Kernel) defaultAction(u *userProc, kind signal.Kind) {
	if kind.DefaultAction() == signal.Ignore {
		return
	}
	k.log.Info("signal kill", "pid", u.pid, "signal", kind)
	if kind == signal.Interrupt {
		k.halt(u, InterruptStatus)
	}
	k.exceptionHalt = true
	k.halt(u, 255)
}
