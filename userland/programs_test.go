package userland

import (
	"bytes"
	"strings"
	"testing"

	"kestrel/kernel/exe"
	"kestrel/kernel/fs"
	"kestrel/userland/ulib"
)

func TestShellDispatch(t *testing.T) {
	s := newFakeSys(nil)
	s.exec = map[string]int32{"ok": 0, "boom": exceptionStatus, "bad": 4}
	s.stdin = []string{"", "  ok  arg", "missing", "boom", "bad", "exit"}
	if st := s.run(Shell); st != 0 {
		t.Fatalf("shell status = %d; want 0", st)
	}
	if got, want := strings.Join(s.executed, "|"), "ok  arg|missing|boom|bad"; got != want {
		t.Fatalf("executed %q; want %q", got, want)
	}
	out := s.out.String()
	for _, want := range []string{
		"no such command\n",
		"program terminated by exception\n",
		"program terminated abnormally (4)\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, prompt); n != 6 {
		t.Fatalf("prompts = %d; want 6", n)
	}
}

func TestShellReadFailure(t *testing.T) {
	s := newFakeSys(nil)
	if st := s.run(Shell); st != 3 {
		t.Fatalf("status = %d; want 3", st)
	}
}

func TestLsAndCat(t *testing.T) {
	files := map[string]string{"a.txt": "alpha\n", "b.txt": "beta\n"}
	s := newFakeSys(files)
	if st := s.run(Ls); st != 0 {
		t.Fatalf("ls status = %d", st)
	}
	if got := s.out.String(); got != ".\na.txt\nb.txt\n" {
		t.Fatalf("ls = %q", got)
	}

	tests := []struct {
		args   string
		status int32
		out    string
	}{
		{"a.txt", 0, "alpha\n"},
		{"nope", 2, "file open failed\n"},
		{"", 3, "could not read arguments\n"},
	}
	for _, tt := range tests {
		s := newFakeSys(files)
		s.args = tt.args
		if st := s.run(Cat); st != tt.status || s.out.String() != tt.out {
			t.Fatalf("cat %q = %d %q; want %d %q", tt.args, st, s.out.String(), tt.status, tt.out)
		}
	}
}

func TestGrep(t *testing.T) {
	s := newFakeSys(map[string]string{
		"rtc":   "",
		"one":   "red fish\nblue fish\nno match\n",
		"two":   "fishing",
		"three": "nothing here",
	})
	s.args = "fish"
	if st := s.run(Grep); st != 0 {
		t.Fatalf("status = %d", st)
	}
	want := "one:red fish\none:blue fish\ntwo:fishing\n"
	if got := s.out.String(); got != want {
		t.Fatalf("grep = %q; want %q", got, want)
	}
}

func TestHelloAndTestPrint(t *testing.T) {
	s := newFakeSys(nil)
	s.stdin = []string{"ada"}
	if st := s.run(Hello); st != 0 || !strings.HasSuffix(s.out.String(), "Hello, ada\n") {
		t.Fatalf("hello = %d %q", st, s.out.String())
	}
	s = newFakeSys(nil)
	if st := s.run(TestPrint); st != 0 || !strings.Contains(s.out.String(), "write system call works") {
		t.Fatalf("testprint = %d %q", st, s.out.String())
	}
}

func TestRandomGuessing(t *testing.T) {
	r := rng(4)
	var draws [10]int32
	for i := range draws {
		draws[i] = r.between(0, 100)
		if draws[i] < 0 || draws[i] > 100 {
			t.Fatalf("draw %d = %d out of range", i, draws[i])
		}
	}
	answer := draws[7]

	s := newFakeSys(nil)
	s.stdin = []string{"4", "7", "-1", "101", itoa(answer)}
	if st := s.run(Random); st != 0 {
		t.Fatalf("status = %d; output:\n%s", st, s.out.String())
	}
	out := s.out.String()
	for _, want := range []string{"Higher", "Lower", "You win"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	s = newFakeSys(nil)
	s.stdin = []string{"x"}
	if st := s.run(Random); st != 2 {
		t.Fatalf("bad seed status = %d; want 2", st)
	}
}

func itoa(v int32) string {
	var b []byte
	if v == 0 {
		return "0"
	}
	for ; v > 0; v /= 10 {
		b = append([]byte{byte('0' + v%10)}, b...)
	}
	return string(b)
}

func TestSigTestCatchesPageFault(t *testing.T) {
	s := newFakeSys(nil)
	s.args = "1h"
	if st := s.run(SigTest); st != 0 {
		t.Fatalf("status = %d; output %q", st, s.out.String())
	}
	if out := s.out.String(); !strings.Contains(out, "caught signal 1\n") || !strings.Contains(out, "resumed") {
		t.Fatalf("output = %q", out)
	}

	s = newFakeSys(nil)
	s.args = "9"
	if st := s.run(SigTest); st != 3 {
		t.Fatalf("unknown signal status = %d; want 3", st)
	}
}

func TestDrawFrameSkipsAttributes(t *testing.T) {
	s := newFakeSys(nil)
	const base = 0x08400000
	if !drawFrame(s, base, []byte("ab\nc")) {
		t.Fatalf("drawFrame failed")
	}
	want := map[uint32]byte{base: 'a', base + 2: 'b', base + 160: 'c'}
	if len(s.mem) != len(want) {
		t.Fatalf("wrote %d cells; want %d", len(s.mem), len(want))
	}
	for addr, c := range want {
		if s.mem[addr] != c {
			t.Fatalf("cell %#x = %q; want %q", addr, s.mem[addr], c)
		}
	}
}

func TestImageHoldsEveryProgram(t *testing.T) {
	f, err := OpenImage()
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	if want := 2 + len(Names()) + len(Texts); f.Len() != want {
		t.Fatalf("entries = %d; want %d", f.Len(), want)
	}
	for _, name := range Names() {
		data, err := f.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		}
		h, err := exe.Parse(data)
		if err != nil || h.Symbol != name {
			t.Fatalf("%s header = %+v, %v", name, h, err)
		}
		if All()[h.Symbol] == nil {
			t.Fatalf("%s has no program", name)
		}
	}
	for name, text := range Texts {
		data, err := f.ReadFile(name)
		if err != nil || !bytes.Equal(data, []byte(text)) {
			t.Fatalf("ReadFile(%q) = %d bytes, %v", name, len(data), err)
		}
	}
	d, err := f.Lookup("rtc")
	if err != nil || d.Type != fs.TypeRTC {
		t.Fatalf("rtc dentry = %+v, %v", d, err)
	}
}

func TestAtoiAndArgs(t *testing.T) {
	for in, want := range map[string]int32{"42": 42, "7x": 7, "-3": -3, "": 0, "x": 0} {
		if got := ulib.Atoi(in); got != want {
			t.Fatalf("Atoi(%q) = %d; want %d", in, got, want)
		}
	}
	s := newFakeSys(nil)
	s.args = "file.txt"
	if got, ok := ulib.Args(s, make([]byte, 32)); !ok || got != "file.txt" {
		t.Fatalf("Args = %q, %v", got, ok)
	}
	if _, ok := ulib.Args(s, make([]byte, 4)); ok {
		t.Fatalf("Args into a short buffer succeeded")
	}
}
