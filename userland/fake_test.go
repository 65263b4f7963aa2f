package userland

import (
	"strings"

	"kestrel/userland/ulib"
)

// fakeSys runs a program against an in-memory directory and a scripted
// keyboard. Every call is serialized by the caller, so no locking.
type fakeSys struct {
	files    map[string]string
	order    []string
	stdin    []string
	out      strings.Builder
	args     string
	exec     map[string]int32
	executed []string
	fds      [8]*fakeFile
	mem      map[uint32]byte
	handlers map[int32]ulib.Handler
}

type fakeFile struct {
	name string
	dir  bool
	pos  int
}

func newFakeSys(files map[string]string) *fakeSys {
	s := &fakeSys{
		files:    files,
		order:    []string{"."},
		exec:     map[string]int32{},
		mem:      map[uint32]byte{},
		handlers: map[int32]ulib.Handler{},
	}
	for _, name := range sortedKeys(files) {
		s.order = append(s.order, name)
	}
	return s
}

type haltPanic struct{ status uint8 }

// run calls p and returns its status, honoring Halt.
func (s *fakeSys) run(p ulib.Program) (status int32) {
	defer func() {
		if r := recover(); r != nil {
			h, ok := r.(haltPanic)
			if !ok {
				panic(r)
			}
			status = int32(h.status)
		}
	}()
	return p(s)
}

func (s *fakeSys) Halt(status uint8) { panic(haltPanic{status}) }

func (s *fakeSys) Execute(cmd string) int32 {
	s.executed = append(s.executed, cmd)
	name, _, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	if st, ok := s.exec[name]; ok {
		return st
	}
	return -1
}

func (s *fakeSys) Read(fd int32, buf []byte) int32 {
	if fd == ulib.Stdin {
		if len(s.stdin) == 0 {
			return -1
		}
		line := s.stdin[0] + "\n"
		s.stdin = s.stdin[1:]
		return int32(copy(buf, line))
	}
	f := s.file(fd)
	if f == nil || fd == ulib.Stdout {
		return -1
	}
	if f.dir {
		if f.pos >= len(s.order) {
			return 0
		}
		n := copy(buf, s.order[f.pos])
		f.pos++
		return int32(n)
	}
	data := s.files[f.name]
	n := copy(buf, data[min(f.pos, len(data)):])
	f.pos += n
	return int32(n)
}

func (s *fakeSys) Write(fd int32, buf []byte) int32 {
	if fd != ulib.Stdout {
		return -1
	}
	s.out.Write(buf)
	return int32(len(buf))
}

func (s *fakeSys) Open(name string) int32 {
	_, ok := s.files[name]
	if !ok && name != "." {
		return -1
	}
	for fd := 2; fd < len(s.fds); fd++ {
		if s.fds[fd] == nil {
			s.fds[fd] = &fakeFile{name: name, dir: name == "."}
			return int32(fd)
		}
	}
	return -1
}

func (s *fakeSys) file(fd int32) *fakeFile {
	if fd < 0 || int(fd) >= len(s.fds) {
		return nil
	}
	return s.fds[fd]
}

func (s *fakeSys) Close(fd int32) int32 {
	if fd < 2 || s.file(fd) == nil {
		return -1
	}
	s.fds[fd] = nil
	return 0
}

func (s *fakeSys) GetArgs(buf []byte) int32 {
	if s.args == "" || len(s.args) >= len(buf) {
		return -1
	}
	n := copy(buf, s.args)
	buf[n] = 0
	return 0
}

func (s *fakeSys) Vidmap(out uint32) int32 { return -1 }

func (s *fakeSys) SetHandler(signum int32, h ulib.Handler) int32 {
	if signum < 0 || signum > ulib.SigUser1 {
		return -1
	}
	s.handlers[signum] = h
	return 0
}

func (s *fakeSys) SigReturn() int32 { return 0 }

func (s *fakeSys) Ps(buf []byte) int32 { return int32(copy(buf, "PID TTY STATE CMD\n")) }

func (s *fakeSys) Load(addr uint32, buf []byte) bool {
	if addr < 0x08000000 {
		if h := s.handlers[ulib.SigSegfault]; h != nil {
			h(s, ulib.SigSegfault)
		}
		return false
	}
	for i := range buf {
		buf[i] = s.mem[addr+uint32(i)]
	}
	return true
}

func (s *fakeSys) Store(addr uint32, buf []byte) bool {
	for i, b := range buf {
		s.mem[addr+uint32(i)] = b
	}
	return true
}

func (s *fakeSys) Yield() {}
