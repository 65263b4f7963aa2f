package kernel

import (
	"errors"
	"fmt"

	"kestrel/kernel/arch"
	"kestrel/kernel/exe"
	"kestrel/kernel/fs"
	"kestrel/kernel/mem"
	"kestrel/kernel/proc"
	"kestrel/userland/ulib"
)

// parseCommand splits a command line into the program name and its
// argument: the first and second runs of non-space bytes. Each is bounded
// to proc.ArgLen-1 bytes. A NUL or newline ends the line.
func parseCommand(line string) (name, arg string) {
	for i := 0; i < len(line); i++ {
		if line[i] == 0 || line[i] == '\n' {
			line = line[:i]
			break
		}
	}
	name, rest := token(line)
	arg, _ = token(rest)
	return name, arg
}

func token(s string) (tok, rest string) {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	j := i
	for j < len(s) && s[j] != ' ' {
		j++
	}
	tok, rest = s[i:j], s[j:]
	if len(tok) > proc.ArgLen-1 {
		tok = tok[:proc.ArgLen-1]
	}
	return tok, rest
}

// sessionFor picks the terminal a new process joins. A process started from
// a terminal that already has a shell forks in its caller's terminal;
// otherwise the new process opens the displayed terminal's session.
func (k *Kernel) sessionFor(caller *userProc) int {
	active := k.terms.Active()
	if caller != nil && k.terms.Get(active).ShellOpened {
		return k.procs.OwnerTerminal(caller.pid)
	}
	return active
}

// checkExecutable verifies that name is a regular file with the executable
// magic.
func (k *Kernel) checkExecutable(name string) (fs.Dentry, error) {
	d, err := k.fs.Lookup(name)
	if err != nil {
		return d, err
	}
	if d.Type != fs.TypeFile {
		return d, fmt.Errorf("%s: %w", name, exe.ErrNotExecutable)
	}
	var magic [len(exe.Magic)]byte
	n, err := k.fs.ReadData(d.Inode, 0, magic[:])
	if err != nil {
		return d, err
	}
	if !exe.CheckMagic(magic[:n]) {
		return d, fmt.Errorf("%s: %w", name, exe.ErrNotExecutable)
	}
	return d, nil
}

var errUnknownProgram = errors.New("no program bound to symbol")

// load copies the image of d to UserImage in the mapped frame and resolves
// its program.
func (k *Kernel) load(d fs.Dentry) (exe.Header, ulib.Program, error) {
	size, err := k.fs.Size(d.Inode)
	if err != nil {
		return exe.Header{}, nil, err
	}
	if size > mem.MaxImageLen {
		return exe.Header{}, nil, fmt.Errorf("image of %d bytes exceeds %d", size, mem.MaxImageLen)
	}
	img := make([]byte, size)
	if _, err := k.fs.ReadData(d.Inode, 0, img); err != nil {
		return exe.Header{}, nil, err
	}
	if err := k.access(mem.UserImage, img, false, true); err != nil {
		return exe.Header{}, nil, err
	}
	hdr, err := exe.Parse(img)
	if err != nil {
		return hdr, nil, err
	}
	prog, ok := k.programs[hdr.Symbol]
	if !ok {
		return hdr, nil, fmt.Errorf("%q: %w", hdr.Symbol, errUnknownProgram)
	}
	return hdr, prog, nil
}

// execute starts cmdline in terminal target. With a live caller it blocks
// until the caller is next dispatched: by the child's halt (returning its
// status) or by the scheduler (returning 0). A nil caller hands the CPU to
// the child and returns 0 at once.
func (k *Kernel) execute(caller *userProc, cmdline string, target int) int32 {
	k.cli()
	name, arg := parseCommand(cmdline)
	if name == "" {
		k.sti()
		return -1
	}
	d, err := k.checkExecutable(name)
	if err != nil {
		k.log.Debug("exec rejected", "cmd", name, "err", err)
		k.sti()
		return -1
	}

	callerPID := proc.None
	if caller != nil {
		callerPID = caller.pid
	}
	fork := caller != nil && k.terms.Get(target).ShellOpened

	pid, err := k.procs.Allocate(target)
	if err != nil {
		k.log.Warn("exec", "cmd", name, "err", err)
		k.sti()
		return -1
	}
	k.mmu.MapProcess(int(pid))
	hdr, prog, err := k.load(d)
	if err != nil {
		k.log.Warn("exec load", "cmd", name, "pid", pid, "err", err)
		if callerPID != proc.None {
			k.mmu.MapProcess(int(callerPID))
		}
		k.procs.Free(pid)
		k.sti()
		return -1
	}
	if name == rootShell {
		k.terms.Get(target).ShellOpened = true
	}

	pcb := k.procs.Get(pid)
	parent := proc.None
	if fork {
		parent = callerPID
	}
	*pcb = proc.PCB{PID: pid, Parent: parent, KernelStack: proc.KernelStackTop(pid)}
	pcb.SetCommand(name, arg)
	pcb.Signals.Reset()
	pcb.Files.Reset(k.stdin, k.stdout)
	pcb.SetCreated(k.clock().Format("15:04:05"))

	if caller != nil {
		k.procs.Get(callerPID).Saved = continuation(callerPID)
	}
	if fork {
		k.procs.SetRunning(callerPID, false)
	}
	k.procs.SetRunning(pid, true)
	if !fork {
		if caller != nil {
			k.terms.Get(k.procs.OwnerTerminal(callerPID)).Cursor = k.console.Cursor()
		}
		k.console.SetCursor(k.terms.Get(target).Cursor)
	}
	k.procs.SetCurrent(pid)
	if !fork {
		k.retargetVideo(target)
	}
	k.tss.ESP0 = pcb.KernelStack

	u := k.newUser(pid, prog, arch.UserEntry(hdr.Entry, mem.UserStack))
	k.newContext(pid, u)
	k.log.Info("exec", "pid", pid, "cmd", name, "arg", arg, "terminal", target, "parent", parent, "procs", k.procs.Count())
	k.sti()
	k.resume(pid, 0)
	if caller == nil {
		return 0
	}
	return k.park(callerPID)
}
