package proc

import (
	"errors"
	"testing"
)

func TestAllocateScansFirstFree(t *testing.T) {
	tab := NewTable()
	for want := PID(0); want < MaxProcesses; want++ {
		pid, err := tab.Allocate(0)
		if err != nil {
			t.Fatalf("Allocate #%d: %v", want, err)
		}
		if pid != want {
			t.Fatalf("Allocate #%d = %d; want %d", want, pid, want)
		}
		e := tab.Entry(pid)
		if !e.Occupied || e.Running {
			t.Fatalf("entry after allocate = %+v; want occupied, not running", e)
		}
	}
	if pid, err := tab.Allocate(0); !errors.Is(err, ErrExhausted) || pid != None {
		t.Fatalf("7th Allocate = %d, %v; want None, ErrExhausted", pid, err)
	}
}

func TestFreeReusesLowestSlot(t *testing.T) {
	tab := NewTable()
	for i := 0; i < 4; i++ {
		_, _ = tab.Allocate(1)
	}
	tab.Get(2).SetCommand("counter", "")
	tab.Free(2)
	if tab.Occupied(2) {
		t.Fatalf("pid 2 still occupied after Free")
	}
	if got := tab.Get(2).Command(); got != "counter" {
		t.Fatalf("PCB wiped on Free: command=%q", got)
	}
	pid, _ := tab.Allocate(2)
	if pid != 2 {
		t.Fatalf("Allocate after Free = %d; want 2", pid)
	}
	if tab.OwnerTerminal(2) != 2 {
		t.Fatalf("OwnerTerminal(2) = %d; want 2", tab.OwnerTerminal(2))
	}
}

func TestOwnerTerminal(t *testing.T) {
	tab := NewTable()
	pid, _ := tab.Allocate(2)
	tests := []struct {
		pid  PID
		want int
	}{
		{None, 0},
		{-7, 0},
		{pid, 2},
		{pid + 1, -1},
		{MaxProcesses, -1},
	}
	for _, tt := range tests {
		if got := tab.OwnerTerminal(tt.pid); got != tt.want {
			t.Fatalf("OwnerTerminal(%d) = %d; want %d", tt.pid, got, tt.want)
		}
	}
}

func TestFindRunning(t *testing.T) {
	tab := NewTable()
	a, _ := tab.Allocate(0)
	b, _ := tab.Allocate(1)
	tab.SetRunning(a, true)
	if _, ok := tab.FindRunning(1); ok {
		t.Fatalf("FindRunning(1) found a sleeping process")
	}
	tab.SetRunning(b, true)
	if pid, ok := tab.FindRunning(1); !ok || pid != b {
		t.Fatalf("FindRunning(1) = %d, %v; want %d", pid, ok, b)
	}
	if _, ok := tab.FindRunning(2); ok {
		t.Fatalf("FindRunning(2) on empty terminal: want none")
	}
}

func TestGetBounds(t *testing.T) {
	tab := NewTable()
	if tab.Get(-1) != nil || tab.Get(MaxProcesses) != nil {
		t.Fatalf("Get out of range: want nil")
	}
	if tab.CurrentPCB() != nil {
		t.Fatalf("CurrentPCB before any exec: want nil")
	}
}

func TestCommandTruncation(t *testing.T) {
	var p PCB
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	p.SetCommand(string(long), "x")
	if n := len(p.Command()); n != ArgLen-1 {
		t.Fatalf("len(Command) = %d; want %d", n, ArgLen-1)
	}
	if p.Argument() != "x" {
		t.Fatalf("Argument = %q", p.Argument())
	}
}

func TestKernelStackTop(t *testing.T) {
	if got := KernelStackTop(0); got != 0x7FFFFC {
		t.Fatalf("KernelStackTop(0) = %#x", got)
	}
	if got := KernelStackTop(3); got != 0x800000-3*0x2000-4 {
		t.Fatalf("KernelStackTop(3) = %#x", got)
	}
}

type nopOps struct{ closed int }

func (o *nopOps) Read(*Desc, []byte) int32  { return 0 }
func (o *nopOps) Write(*Desc, []byte) int32 { return -1 }
func (o *nopOps) Close(*Desc) int32         { o.closed++; return 0 }

func TestFDTable(t *testing.T) {
	var ft FDTable
	term := &nopOps{}
	ft.Reset(term, term)

	if _, ok := ft.Get(MaxFiles); ok {
		t.Fatalf("Get(8): want miss")
	}
	if _, ok := ft.Get(5); ok {
		t.Fatalf("Get(5) before open: want miss")
	}

	file := &nopOps{}
	for want := int32(2); want < MaxFiles; want++ {
		fd, ok := ft.Install(file, 0)
		if !ok || fd != want {
			t.Fatalf("Install = %d, %v; want %d", fd, ok, want)
		}
	}
	if _, ok := ft.Install(file, 0); ok {
		t.Fatalf("Install on full table: want failure")
	}
	d, _ := ft.Get(4)
	d.Pos = 99
	ft.Release(4)
	fd, _ := ft.Install(file, 7)
	if fd != 4 {
		t.Fatalf("Install after Release = %d; want 4", fd)
	}
	d, _ = ft.Get(4)
	if d.Pos != 0 || d.Inode != 7 {
		t.Fatalf("reused descriptor = %+v; want pos 0 inode 7", *d)
	}
}
