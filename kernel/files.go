package kernel

import (
	"encoding/binary"

	"kestrel/kernel/fs"
	"kestrel/kernel/proc"
)

func (k *Kernel) open(name string) int32 {
	pcb := k.procs.CurrentPCB()
	if pcb == nil || name == "" {
		return -1
	}
	d, err := k.fs.Lookup(name)
	if err != nil {
		return -1
	}
	var ops proc.Ops
	switch d.Type {
	case fs.TypeRTC:
		ops = k.rtcOps
	case fs.TypeDir:
		ops = k.dirOps
	case fs.TypeFile:
		ops = k.fileOps
	default:
		return -1
	}
	fd, ok := pcb.Files.Install(ops, d.Inode)
	if !ok {
		return -1
	}
	if d.Type == fs.TypeRTC {
		k.rtc.Open(k.procs.OwnerTerminal(pcb.PID))
	}
	return fd
}

func (k *Kernel) desc(fd int32) (*proc.Desc, bool) {
	pcb := k.procs.CurrentPCB()
	if pcb == nil {
		return nil, false
	}
	return pcb.Files.Get(fd)
}

func (k *Kernel) read(fd int32, buf []byte) int32 {
	d, ok := k.desc(fd)
	if !ok || buf == nil {
		return -1
	}
	return d.Ops.Read(d, buf)
}

func (k *Kernel) write(fd int32, buf []byte) int32 {
	d, ok := k.desc(fd)
	if !ok || buf == nil {
		return -1
	}
	return d.Ops.Write(d, buf)
}

func (k *Kernel) close(fd int32) int32 {
	d, ok := k.desc(fd)
	if !ok {
		return -1
	}
	if d.Ops.Close(d) != 0 {
		return -1
	}
	k.procs.CurrentPCB().Files.Release(fd)
	return 0
}

// fileOps reads regular files from the descriptor's position.
type fileOps struct{ k *Kernel }

func (o fileOps) Read(d *proc.Desc, buf []byte) int32 {
	n, err := o.k.fs.ReadData(d.Inode, d.Pos, buf)
	if err != nil {
		return -1
	}
	d.Pos += uint32(n)
	return int32(n)
}

func (fileOps) Write(*proc.Desc, []byte) int32 { return -1 }
func (fileOps) Close(*proc.Desc) int32         { return 0 }

// dirOps returns one file name per read, 0 past the last entry.
type dirOps struct{ k *Kernel }

func (o dirOps) Read(d *proc.Desc, buf []byte) int32 {
	e, err := o.k.fs.Entry(d.Pos)
	if err != nil {
		return 0
	}
	d.Pos++
	return int32(copy(buf, e.Name))
}

func (dirOps) Write(*proc.Desc, []byte) int32 { return -1 }
func (dirOps) Close(*proc.Desc) int32         { return 0 }

// rtcOps is the per-terminal virtual clock.
type rtcOps struct{ k *Kernel }

// Read blocks until the next virtual tick of the caller's terminal.
func (o rtcOps) Read(d *proc.Desc, buf []byte) int32 {
	k := o.k
	c := k.currentCtx()
	t := k.procs.OwnerTerminal(c.pid)
	k.rtc.Arm(t)
	for !k.rtc.Ready(t) {
		k.hlt(c.user)
	}
	return 0
}

// Write takes a 4 byte little endian frequency.
func (o rtcOps) Write(d *proc.Desc, buf []byte) int32 {
	if len(buf) != 4 {
		return -1
	}
	k := o.k
	hz := int32(binary.LittleEndian.Uint32(buf))
	if err := k.rtc.SetFrequency(k.procs.OwnerTerminal(k.procs.Current()), hz); err != nil {
		return -1
	}
	return 0
}

func (rtcOps) Close(*proc.Desc) int32 { return 0 }

// termIn is stdin: a line from the owner terminal's keyboard buffer.
type termIn struct{ k *Kernel }

// Read blocks until enter was pressed while the owner terminal is
// displayed, then returns the line including its newline.
func (o termIn) Read(d *proc.Desc, buf []byte) int32 {
	k := o.k
	c := k.currentCtx()
	t := k.terms.Get(k.procs.OwnerTerminal(c.pid))
	for !(t.Enter && k.terms.Active() == t.ID) {
		k.hlt(c.user)
	}
	return int32(t.TakeLine(buf))
}

func (termIn) Write(*proc.Desc, []byte) int32 { return -1 }
func (termIn) Close(*proc.Desc) int32         { return -1 }

// termOut is stdout: the console of the current process's terminal.
type termOut struct{ k *Kernel }

func (termOut) Read(*proc.Desc, []byte) int32 { return -1 }

func (o termOut) Write(d *proc.Desc, buf []byte) int32 {
	n, _ := o.k.console.Write(buf)
	return int32(n)
}

func (termOut) Close(*proc.Desc) int32 { return -1 }
