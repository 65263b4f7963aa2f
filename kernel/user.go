package kernel

import (
	"kestrel/kernel/arch"
	"kestrel/kernel/irq"
	"kestrel/kernel/proc"
	"kestrel/userland/ulib"
)

// handlerStride separates the synthetic text addresses of bound handlers.
const handlerStride = 0x10

// userProc is the user-mode side of a process. Its methods are the trap
// instructions a program executes.
type userProc struct {
	k    *Kernel
	pid  proc.PID
	prog ulib.Program
	ctx  *execCtx

	pc uint32 // resume address of the program text
	sp uint32 // user stack pointer

	text     map[uint32]ulib.Handler
	nextText uint32

	inKernel bool
	args     sysArgs
}

func (k *Kernel) newUser(pid proc.PID, prog ulib.Program, entry arch.Frame) *userProc {
	return &userProc{
		k:        k,
		pid:      pid,
		prog:     prog,
		pc:       entry.EIP,
		sp:       entry.UserESP,
		text:     make(map[uint32]ulib.Handler),
		nextText: entry.EIP + handlerStride,
	}
}

// frame is the user-mode frame of the current instruction boundary.
func (u *userProc) frame() arch.Frame {
	return arch.UserEntry(u.pc, u.sp)
}

// bind gives h a text address. nil binds to 0, the default action.
func (u *userProc) bind(h ulib.Handler) uint32 {
	if h == nil {
		return 0
	}
	addr := u.nextText
	u.nextText += handlerStride
	u.text[addr] = h
	return addr
}

// trap executes int $0x80 with nr in EAX.
func (u *userProc) trap(nr uint32, a sysArgs) int32 {
	k := u.k
	k.window(u)
	f := u.frame()
	f.EAX = nr
	f.Vector = irq.SyscallVector
	u.args = a

	prev := u.inKernel
	u.inKernel = true
	if !k.idt.Dispatch(&f, true) {
		u.inKernel = prev
		k.exception(u, 13, uint32(irq.SyscallVector)<<3|2)
		return -1
	}
	u.inKernel = prev
	k.iret(u, &f)
	return int32(f.EAX)
}

func (u *userProc) Halt(status uint8) {
	u.trap(sysHalt, sysArgs{status: status})
}

func (u *userProc) Execute(cmd string) int32 {
	return u.trap(sysExecute, sysArgs{str: cmd})
}

func (u *userProc) Read(fd int32, buf []byte) int32 {
	return u.trap(sysRead, sysArgs{fd: fd, buf: buf})
}

func (u *userProc) Write(fd int32, buf []byte) int32 {
	return u.trap(sysWrite, sysArgs{fd: fd, buf: buf})
}

func (u *userProc) Open(name string) int32 {
	return u.trap(sysOpen, sysArgs{str: name})
}

func (u *userProc) Close(fd int32) int32 {
	return u.trap(sysClose, sysArgs{fd: fd})
}

func (u *userProc) GetArgs(buf []byte) int32 {
	return u.trap(sysGetArgs, sysArgs{buf: buf})
}

func (u *userProc) Vidmap(out uint32) int32 {
	return u.trap(sysVidmap, sysArgs{addr: out})
}

func (u *userProc) SetHandler(signum int32, h ulib.Handler) int32 {
	return u.trap(sysSetHandler, sysArgs{signum: signum, handler: u.bind(h)})
}

func (u *userProc) SigReturn() int32 {
	return u.trap(sysSigreturn, sysArgs{})
}

func (u *userProc) Ps(buf []byte) int32 {
	return u.trap(sysPs, sysArgs{buf: buf})
}

func (u *userProc) Load(addr uint32, buf []byte) bool {
	return u.touch(addr, buf, false)
}

func (u *userProc) Store(addr uint32, buf []byte) bool {
	return u.touch(addr, buf, true)
}

// touch performs a user-mode access. A fault enters the page fault gate;
// when a handler takes the SEGFAULT the access reports false.
func (u *userProc) touch(addr uint32, buf []byte, write bool) bool {
	k := u.k
	k.window(u)
	err := k.access(addr, buf, true, write)
	if err == nil {
		return true
	}
	code := uint32(4)
	if write {
		code |= 2
	}
	if pf, ok := err.(interface{ ErrCode() uint32 }); ok {
		code = pf.ErrCode()
	}
	k.log.Debug("user page fault", "pid", u.pid, "addr", addr, "err", err)
	k.exception(u, irq.PageFault, code)
	return false
}

func (u *userProc) Yield() { u.k.window(u) }
