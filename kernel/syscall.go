package kernel

import (
	"encoding/binary"

	"kestrel/kernel/arch"
	"kestrel/kernel/irq"
	"kestrel/kernel/mem"
	"kestrel/kernel/proc"
	"kestrel/kernel/signal"
)

// System call numbers, passed in EAX.
const (
	sysHalt       = 1
	sysExecute    = 2
	sysRead       = 3
	sysWrite      = 4
	sysOpen       = 5
	sysClose      = 6
	sysGetArgs    = 7
	sysVidmap     = 8
	sysSetHandler = 9
	sysSigreturn  = signal.SigreturnSyscall
	sysPs         = 11

	numSyscalls = 12
)

// sysArgs carries the EBX/ECX/EDX operands of a trap.
type sysArgs struct {
	status  uint8
	str     string
	fd      int32
	buf     []byte
	addr    uint32
	signum  int32
	handler uint32
}

type syscallFn func(k *Kernel, u *userProc, f *arch.Frame) int32

func (k *Kernel) initSyscalls() {
	k.syscalls = [numSyscalls]syscallFn{
		sysHalt: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.halt(u, int32(u.args.status))
		},
		sysExecute: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.execute(u, u.args.str, k.sessionFor(u))
		},
		sysRead: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.read(u.args.fd, u.args.buf)
		},
		sysWrite: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.write(u.args.fd, u.args.buf)
		},
		sysOpen: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.open(u.args.str)
		},
		sysClose: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.close(u.args.fd)
		},
		sysGetArgs: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.getArgs(u.args.buf)
		},
		sysVidmap: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.vidmap(u.args.addr)
		},
		sysSetHandler: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.setHandler(u.args.signum, u.args.handler)
		},
		sysSigreturn: func(k *Kernel, u *userProc, f *arch.Frame) int32 {
			return k.sigreturn(f)
		},
		sysPs: func(k *Kernel, u *userProc, _ *arch.Frame) int32 {
			return k.ps(u.args.buf)
		},
	}
}

// syscallGate is the handler behind vector 0x80.
func (k *Kernel) syscallGate(f *arch.Frame) {
	c := k.currentCtx()
	nr := f.EAX
	if c == nil || nr >= numSyscalls || k.syscalls[nr] == nil {
		f.EAX = ^uint32(0)
		return
	}
	f.EAX = uint32(k.syscalls[nr](k, c.user, f))
}

func (k *Kernel) currentCtx() *execCtx {
	pid := k.procs.Current()
	if pid < 0 || pid >= proc.MaxProcesses {
		return nil
	}
	return k.ctx[pid]
}

func (k *Kernel) setHandler(signum int32, addr uint32) int32 {
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return -1
	}
	if err := pcb.Signals.SetHandler(signal.Kind(signum), addr); err != nil {
		return -1
	}
	return 0
}

// sigreturn restores the register frame saved below the user stack
// pointer of the trap and returns its EAX.
func (k *Kernel) sigreturn(f *arch.Frame) int32 {
	pcb := k.procs.CurrentPCB()
	if pcb == nil || !f.FromUser() {
		return -1
	}
	b := make([]byte, arch.FrameSize)
	if err := k.access(f.UserESP+signal.SavedOffset, b, true, false); err != nil {
		return -1
	}
	hw, err := signal.DecodeSaved(b)
	if err != nil {
		return -1
	}
	// The saved frame is user memory; it cannot raise privilege.
	hw.CS, hw.SS = arch.UserCS, arch.UserDS
	hw.EFlags |= arch.EFlagsIF
	*f = hw
	pcb.Signals.UnmaskAll()
	return int32(hw.EAX)
}

func (k *Kernel) getArgs(buf []byte) int32 {
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return -1
	}
	arg := pcb.Argument()
	if arg == "" || len(buf) == 0 {
		return -1
	}
	n := copy(buf, arg)
	if n < len(buf) {
		buf[n] = 0
	}
	return 0
}

// vidmap maps the owner terminal's video bank at UserVidmem and stores that
// address at out.
func (k *Kernel) vidmap(out uint32) int32 {
	if out <= mem.UserImage || out >= mem.UserEnd {
		return -1
	}
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return -1
	}
	owner := k.procs.OwnerTerminal(pcb.PID)
	t := k.terms.Get(owner)
	if t == nil {
		return -1
	}
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], mem.UserVidmem)
	if err := k.access(out, w[:], true, true); err != nil {
		return -1
	}
	k.mmu.MapVideoWindow(mem.UserVidmem, k.videoTarget(owner))
	pcb.Vidmap = true
	pcb.VidmapAddr = mem.UserVidmem
	t.Vidmap = true
	k.log.Debug("vidmap", "pid", pcb.PID, "terminal", owner)
	return 0
}

func (k *Kernel) installIDT() {
	for v := 0; v < irq.NumExceptions; v++ {
		k.idt.Set(uint8(v), k.exceptionGate, 0, false)
	}
	k.idt.Set(irq.Timer.Vector(), k.timerIRQ, 0, false)
	k.idt.Set(irq.Keyboard.Vector(), k.keyboardIRQ, 0, false)
	k.idt.Set(irq.RTC.Vector(), k.rtcIRQ, 0, false)
	k.idt.Set(irq.SyscallVector, k.syscallGate, 3, true)
}
