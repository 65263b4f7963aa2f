package kernel

import (
	"runtime"

	"kestrel/kernel/mem"
	"kestrel/kernel/proc"
)

const rootExitMessage = "DON'T EXIT ROOT SHELL\n"

// halt ends the current process. A child returns status to its parent's
// execute (ExceptionStatus after a fault kill); a root shell is replaced by
// a fresh shell in its terminal. halt returns only when there is no current
// process.
func (k *Kernel) halt(u *userProc, status int32) int32 {
	k.cli()
	pcb := k.procs.CurrentPCB()
	if pcb == nil || pcb.PID != u.pid {
		k.sti()
		return -1
	}
	pid := pcb.PID
	owner := k.procs.OwnerTerminal(pid)
	if k.exceptionHalt {
		k.exceptionHalt = false
		status = ExceptionStatus
	}

	if pcb.Parent == proc.None {
		k.log.Warn("root shell exited", "pid", pid, "terminal", owner, "status", status)
		_, _ = k.console.Write([]byte(rootExitMessage))
		k.release(pcb, owner)
		k.procs.Free(pid)
		t := k.terms.Get(owner)
		t.ShellOpened = false
		t.Cursor = k.console.Cursor()
		u.ctx.handoff = func() {
			if k.execute(nil, rootShell, owner) < 0 {
				k.panicf("terminal %d: cannot restart shell", owner)
			}
		}
		runtime.Goexit()
	}

	parent := pcb.Parent
	if !k.procs.Occupied(parent) || k.ctx[parent] == nil {
		k.panicf("halt pid %d: parent %d is gone", pid, parent)
	}
	k.tss.ESP0 = k.procs.Get(parent).KernelStack
	k.mmu.MapProcess(int(parent))
	k.release(pcb, owner)
	k.procs.Free(pid)
	k.procs.SetRunning(parent, true)
	k.procs.SetCurrent(parent)
	k.log.Info("halt", "pid", pid, "parent", parent, "status", status, "procs", k.procs.Count())
	k.sti()
	u.ctx.handoff = func() { k.resume(parent, status) }
	runtime.Goexit()
	return 0
}

// release closes pcb's descriptors and drops its video window.
func (k *Kernel) release(pcb *proc.PCB, owner int) {
	pcb.Files.Release(proc.Stdin)
	pcb.Files.Release(proc.Stdout)
	for fd := int32(proc.FirstFree); fd < proc.MaxFiles; fd++ {
		d, ok := pcb.Files.Get(fd)
		if !ok {
			continue
		}
		if d.Ops.Close(d) != 0 {
			k.log.Warn("close on halt", "pid", pcb.PID, "fd", fd)
		}
		pcb.Files.Release(fd)
	}
	if pcb.Vidmap {
		t := k.terms.Get(owner)
		t.Vidmap = false
		k.mmu.UnmapVideoWindow(mem.UserVidmem, k.videoTarget(owner))
		pcb.Vidmap = false
		pcb.VidmapAddr = 0
	}
}
