// Package ulib is the user side of the system call interface.
package ulib

import "fmt"

// Sys is the trap interface a user program runs against. Buffers are the
// program's own memory; Load and Store reach arbitrary user addresses
// through the MMU.
type Sys interface {
	Halt(status uint8)
	Execute(cmd string) int32
	Read(fd int32, buf []byte) int32
	Write(fd int32, buf []byte) int32
	Open(name string) int32
	Close(fd int32) int32
	GetArgs(buf []byte) int32
	Vidmap(out uint32) int32
	SetHandler(signum int32, h Handler) int32
	SigReturn() int32
	Ps(buf []byte) int32

	// Load and Store access user memory; false means the access faulted.
	Load(addr uint32, buf []byte) bool
	Store(addr uint32, buf []byte) bool
	// Yield marks a preemption point in a long computation.
	Yield()
}

// Program is a user program entry point. The return value is the exit
// status passed to halt.
type Program func(sys Sys) int32

// Handler is a user signal handler.
type Handler func(sys Sys, signum int32)

// Signal numbers.
const (
	SigDivZero   int32 = 0
	SigSegfault  int32 = 1
	SigInterrupt int32 = 2
	SigAlarm     int32 = 3
	SigUser1     int32 = 4
)

// Standard descriptors.
const (
	Stdin  int32 = 0
	Stdout int32 = 1
)

// Scratch is a word of user memory inside the image region, above any
// loaded program text, used for out-parameters such as vidmap's.
const Scratch uint32 = 0x08300000

// Puts writes s to stdout.
func Puts(sys Sys, s string) int32 {
	return sys.Write(Stdout, []byte(s))
}

// Printf formats to stdout.
func Printf(sys Sys, format string, args ...any) int32 {
	return Puts(sys, fmt.Sprintf(format, args...))
}

// ReadLine reads one line from stdin without its newline.
func ReadLine(sys Sys, buf []byte) (string, bool) {
	n := sys.Read(Stdin, buf)
	if n < 0 {
		return "", false
	}
	line := buf[:n]
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == 0) {
		line = line[:len(line)-1]
	}
	return string(line), true
}

// Args returns the program's argument, or false when there is none.
func Args(sys Sys, buf []byte) (string, bool) {
	if sys.GetArgs(buf) != 0 {
		return "", false
	}
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i]), true
		}
	}
	return string(buf), true
}

// Atoi parses a leading run of decimal digits; anything else ends it.
func Atoi(s string) int32 {
	var n int32
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg, s = true, s[1:]
	}
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int32(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
