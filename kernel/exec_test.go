package kernel

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kestrel/kernel/mem"
	"kestrel/kernel/proc"
	"kestrel/userland/ulib"
)

type execReport struct {
	before, after [proc.MaxProcesses]proc.Entry
	status        int32
	mapped        int
	esp0          uint32
	current       proc.PID
}

func TestExecHaltRestoresProcessMap(t *testing.T) {
	type childView struct {
		pid, parent proc.PID
		terminal    int
		mapped      int
		parentRun   bool
	}
	reports := make(chan execReport, 1)
	children := make(chan childView, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			var r execReport
			r.before = k.procs.Snapshot()
			r.status = sys.Execute("seven")
			r.after = k.procs.Snapshot()
			r.mapped = k.mmu.MappedPID()
			r.esp0 = k.tss.ESP0
			r.current = k.procs.Current()
			reports <- r
			return idle(sys)
		},
		"seven": func(sys ulib.Sys) int32 {
			pid := k.procs.Current()
			pcb := k.procs.Get(pid)
			children <- childView{
				pid:       pid,
				parent:    pcb.Parent,
				terminal:  k.procs.OwnerTerminal(pid),
				mapped:    k.mmu.MappedPID(),
				parentRun: k.procs.Entry(pcb.Parent).Running,
			}
			return 7
		},
	})
	boot(t, k)

	c := recv(t, children)
	if c.pid != 1 || c.parent != 0 || c.terminal != 0 || c.mapped != 1 || c.parentRun {
		t.Fatalf("child view = %+v; want pid 1, parent 0 asleep, terminal 0, frame 1", c)
	}
	r := recv(t, reports)
	if r.status != 7 {
		t.Fatalf("execute = %d; want 7", r.status)
	}
	if r.before != r.after {
		t.Fatalf("process map changed:\nbefore %v\nafter  %v", r.before, r.after)
	}
	if r.mapped != 0 || r.current != 0 || r.esp0 != proc.KernelStackTop(0) {
		t.Fatalf("after halt: mapped %d current %d esp0 %#x; want pid 0 restored", r.mapped, r.current, r.esp0)
	}
}

func TestExecRejectsWithoutSideEffects(t *testing.T) {
	type result struct {
		codes   []int32
		same    bool
		mapped  int
		running bool
	}
	results := make(chan result, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			before := k.procs.Snapshot()
			var r result
			for _, cmd := range []string{"", "   ", "missing", "notes.txt", ".", "rtc", "ghost"} {
				r.codes = append(r.codes, sys.Execute(cmd))
			}
			r.same = before == k.procs.Snapshot()
			r.mapped = k.mmu.MappedPID()
			r.running = k.procs.Entry(0).Running
			results <- r
			return idle(sys)
		},
	}, "ghost")
	boot(t, k)

	r := recv(t, results)
	for i, c := range r.codes {
		if c != -1 {
			t.Fatalf("execute #%d = %d; want -1", i, c)
		}
	}
	if !r.same || r.mapped != 0 || !r.running {
		t.Fatalf("rejected exec left state behind: %+v", r)
	}
}

func TestExecExhaustsProcessTable(t *testing.T) {
	counts := make(chan int, 1)
	results := make(chan int32, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			results <- sys.Execute("deep")
			return idle(sys)
		},
		"deep": func(sys ulib.Sys) int32 {
			st := sys.Execute("deep")
			if st < 0 {
				counts <- k.procs.Count()
				return 1
			}
			return st + 1
		},
	})
	boot(t, k)

	if n := recv(t, counts); n != proc.MaxProcesses {
		t.Fatalf("processes at exhaustion = %d; want %d", n, proc.MaxProcesses)
	}
	if st := recv(t, results); st != proc.MaxProcesses-1 {
		t.Fatalf("nested status = %d; want %d", st, proc.MaxProcesses-1)
	}
}

func TestHaltStatusIsOneByte(t *testing.T) {
	results := make(chan int32, 2)
	k := newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			results <- sys.Execute("explicit")
			results <- sys.Execute("wide")
			return idle(sys)
		},
		"explicit": func(sys ulib.Sys) int32 {
			sys.Halt(42)
			return 0
		},
		"wide": func(sys ulib.Sys) int32 { return 0x1FF },
	})
	boot(t, k)

	if st := recv(t, results); st != 42 {
		t.Fatalf("halt(42) = %d", st)
	}
	if st := recv(t, results); st != 0xFF {
		t.Fatalf("wide status = %#x; want %#x", st, 0xFF)
	}
}

func TestFaultKillReportsExceptionStatus(t *testing.T) {
	results := make(chan int32, 2)
	k := newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			results <- sys.Execute("divzero")
			results <- sys.Execute("segv")
			return idle(sys)
		},
		"divzero": func(sys ulib.Sys) int32 { return 1 / divisor },
		"segv": func(sys ulib.Sys) int32 {
			var b [4]byte
			sys.Load(0, b[:])
			return 0
		},
	})
	boot(t, k)

	for _, name := range []string{"divzero", "segv"} {
		if st := recv(t, results); st != ExceptionStatus {
			t.Fatalf("%s status = %d; want %d", name, st, ExceptionStatus)
		}
	}
}

func TestRootShellRestarts(t *testing.T) {
	type view struct {
		pid    proc.PID
		opened bool
		screen string
	}
	var runs atomic.Int32
	views := make(chan view, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			if runs.Add(1) == 1 {
				return 0
			}
			page := make([]byte, 160)
			_ = k.phys.Read(mem.VideoMem, page)
			var text []byte
			for i := 0; i < len(page); i += 2 {
				text = append(text, page[i])
			}
			views <- view{pid: k.procs.Current(), opened: k.terms.Get(0).ShellOpened, screen: string(text)}
			return idle(sys)
		},
	})
	boot(t, k)

	v := recv(t, views)
	if v.pid != 0 || !v.opened {
		t.Fatalf("restarted shell: %+v", v)
	}
	if !strings.HasPrefix(v.screen, strings.TrimSuffix(rootExitMessage, "\n")) {
		t.Fatalf("screen row 0 = %q", v.screen)
	}
}

func TestGetArgsAndPs(t *testing.T) {
	type result struct {
		arg     string
		short   string
		noArg   int32
		ps      string
		created string
	}
	results := make(chan result, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			sys.Execute("echo   hello   world")
			return idle(sys)
		},
		"echo": func(sys ulib.Sys) int32 {
			var r result
			buf := make([]byte, 32)
			if sys.GetArgs(buf) == 0 {
				r.arg = string(buf[:strings.IndexByte(string(buf), 0)])
			}
			small := make([]byte, 3)
			if sys.GetArgs(small) == 0 {
				r.short = string(small)
			}
			r.noArg = sys.Execute("noarg")
			out := make([]byte, 512)
			r.ps = string(out[:sys.Ps(out)])
			r.created = k.procs.CurrentPCB().CreatedAt()
			results <- r
			return 0
		},
		"noarg": func(sys ulib.Sys) int32 {
			if sys.GetArgs(make([]byte, 8)) == -1 {
				return 1
			}
			return 0
		},
	})
	boot(t, k)

	r := recv(t, results)
	if r.arg != "hello" {
		t.Fatalf("getargs = %q; want %q", r.arg, "hello")
	}
	if r.short != "hel" {
		t.Fatalf("getargs into 3 bytes = %q; want truncated %q", r.short, "hel")
	}
	if r.noArg != 1 {
		t.Fatalf("getargs without argument did not fail (status %d)", r.noArg)
	}
	if r.created != "03:04:05" {
		t.Fatalf("created = %q", r.created)
	}
	for _, want := range []string{"PID", "shell", "echo", "cur", "sleep"} {
		if !strings.Contains(r.ps, want) {
			t.Fatalf("ps output missing %q:\n%s", want, r.ps)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for the kernel goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestExecAndHaltLogProcessCount(t *testing.T) {
	progs := map[string]ulib.Program{
		"child": func(sys ulib.Sys) int32 { return 7 },
	}
	done := make(chan int32, 1)
	progs["shell"] = func(sys ulib.Sys) int32 {
		done <- sys.Execute("child")
		return idle(sys)
	}
	var out syncBuffer
	k, err := New(Config{
		FS:       testImage(t, progs),
		Programs: progs,
		Clock:    func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		Logger:   slog.New(slog.NewTextHandler(&out, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	boot(t, k)

	if st := recv(t, done); st != 7 {
		t.Fatalf("child status = %d; want 7", st)
	}
	lines := strings.Split(out.String(), "\n")
	want := map[string]string{
		"msg=exec pid=0": "procs=1",
		"msg=exec pid=1": "procs=2",
		"msg=halt pid=1": "procs=1",
	}
	for prefix, count := range want {
		found := false
		for _, line := range lines {
			if strings.Contains(line, prefix) {
				found = true
				if !strings.Contains(line, count) {
					t.Fatalf("%q line = %q; want %s", prefix, line, count)
				}
			}
		}
		if !found {
			t.Fatalf("no %q line in log:\n%s", prefix, out.String())
		}
	}
}
