package kernel

import (
	"kestrel/kernel/arch"
	"kestrel/kernel/irq"
	"kestrel/kernel/mem"
	"kestrel/kernel/proc"
	"kestrel/kernel/signal"
	"kestrel/kernel/term"
)

// nextPID picks the running process of the next terminal in round-robin
// order after cur's, skipping terminals with none. It returns cur when no
// other terminal has one.
func (k *Kernel) nextPID(cur proc.PID) proc.PID {
	owner := k.procs.OwnerTerminal(cur)
	if owner < 0 {
		owner = 0
	}
	for step := 1; step < term.NumTerminals; step++ {
		if pid, ok := k.procs.FindRunning((owner + step) % term.NumTerminals); ok {
			return pid
		}
	}
	return cur
}

// switchTo saves the current process and dispatches next. It returns when
// the current process is dispatched again.
func (k *Kernel) switchTo(next proc.PID) {
	cur := k.procs.Current()
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return
	}
	pcb.Saved = continuation(cur)
	k.terms.Get(k.procs.OwnerTerminal(cur)).Cursor = k.console.Cursor()
	if next == cur {
		return
	}
	if !k.procs.Occupied(next) || k.ctx[next] == nil {
		k.panicf("switch %d -> %d: no such process", cur, next)
	}

	k.mmu.MapProcess(int(next))
	k.tss.ESP0 = k.procs.Get(next).KernelStack
	nt := k.procs.OwnerTerminal(next)
	k.console.SetCursor(k.terms.Get(nt).Cursor)
	k.procs.SetCurrent(next)
	k.retargetVideo(nt)
	if k.switchHook != nil {
		k.switchHook(cur, next)
	}
	k.resume(next, 0)
	k.park(cur)
}

// videoTarget is the physical bank backing terminal t's video: VGA memory
// when t is displayed, its buffer otherwise.
func (k *Kernel) videoTarget(t int) uint32 {
	if t == k.terms.Active() {
		return mem.VideoMem
	}
	return k.terms.Get(t).VideoBuffer
}

// retargetVideo points kernel and user video pages at terminal t's bank.
func (k *Kernel) retargetVideo(t int) {
	k.mmu.RetargetVideo(k.videoTarget(t), k.terms.Get(t).Vidmap)
}

func (k *Kernel) timerIRQ(*arch.Frame) {
	k.pic.EOI(irq.Timer)
	k.ticks++
	cur := k.procs.Current()
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return
	}
	pcb.AlarmTicks++
	if pcb.AlarmTicks >= k.alarmAt {
		pcb.AlarmTicks = 0
		k.raise(signal.Alarm)
	}
	k.switchTo(k.nextPID(cur))
}

func (k *Kernel) rtcIRQ(*arch.Frame) {
	k.pic.EOI(irq.RTC)
	n := k.rtcPeriods.Swap(0)
	if n == 0 {
		n = 1
	}
	for ; n > 0; n-- {
		k.rtc.Tick()
	}
}

// raise marks kind pending. INTERRUPT goes to the running process of the
// displayed terminal; every other kind goes to the current process.
func (k *Kernel) raise(kind signal.Kind) {
	pid := k.procs.Current()
	if kind == signal.Interrupt {
		p, ok := k.procs.FindRunning(k.terms.Active())
		if !ok {
			return
		}
		pid = p
	}
	if !k.procs.Occupied(pid) {
		return
	}
	if err := k.procs.Get(pid).Signals.Raise(kind); err != nil {
		k.log.Error("raise", "pid", pid, "err", err)
	}
}

// exceptionGate reports an architectural exception and raises DIV_ZERO for
// vector 0 or SEGFAULT for the rest.
func (k *Kernel) exceptionGate(f *arch.Frame) {
	v := f.Vector
	name := "Unknown"
	if v < irq.NumExceptions {
		name = irq.ExceptionNames[v]
	}
	k.log.Warn("exception", "vector", v, "name", name, "err", f.ErrCode, "eip", f.EIP, "pid", k.procs.Current())
	kind := signal.Segfault
	if v == irq.DivideError {
		kind = signal.DivZero
	}
	k.raise(kind)
}
