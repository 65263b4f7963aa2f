package proc

// Ops is the driver operation table bound to an open descriptor.
type Ops interface {
	Read(d *Desc, buf []byte) int32
	Write(d *Desc, buf []byte) int32
	Close(d *Desc) int32
}

// Desc is a file descriptor entry.
type Desc struct {
	Ops   Ops
	Inode uint32
	Pos   uint32
	InUse bool
}

// First descriptor open may hand out; 0 and 1 belong to the terminal.
const (
	Stdin     = 0
	Stdout    = 1
	FirstFree = 2
)

// FDTable is the per-process descriptor array.
type FDTable [MaxFiles]Desc

// Reset clears every descriptor and binds stdin and stdout.
func (t *FDTable) Reset(stdin, stdout Ops) {
	clear(t[:])
	t[Stdin] = Desc{Ops: stdin, InUse: true}
	t[Stdout] = Desc{Ops: stdout, InUse: true}
}

// Get returns the in-use descriptor fd.
func (t *FDTable) Get(fd int32) (*Desc, bool) {
	if fd < 0 || fd >= MaxFiles || !t[fd].InUse {
		return nil, false
	}
	return &t[fd], true
}

// Install binds ops to the first free descriptor at or above FirstFree.
func (t *FDTable) Install(ops Ops, inode uint32) (int32, bool) {
	for fd := FirstFree; fd < MaxFiles; fd++ {
		if !t[fd].InUse {
			t[fd] = Desc{Ops: ops, Inode: inode, InUse: true}
			return int32(fd), true
		}
	}
	return -1, false
}

// Release marks fd free and resets its position and ops.
func (t *FDTable) Release(fd int32) {
	if fd >= 0 && fd < MaxFiles {
		t[fd] = Desc{}
	}
}
