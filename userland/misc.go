package userland

import (
	"strings"

	"kestrel/userland/ulib"
)

// Hello asks for a name and greets it.
func Hello(sys ulib.Sys) int32 {
	ulib.Puts(sys, "Hi, what's your name? ")
	name, ok := ulib.ReadLine(sys, make([]byte, 128))
	if !ok {
		ulib.Puts(sys, "Can't read name from keyboard.\n")
		return 3
	}
	ulib.Printf(sys, "Hello, %s\n", name)
	return 0
}

// TestPrint writes a fixed line through the write system call.
func TestPrint(sys ulib.Sys) int32 {
	ulib.Puts(sys, "Hi, if this sentence is printed out, the write system call works!\n")
	return 0
}

// Ps prints the process table.
func Ps(sys ulib.Sys) int32 {
	buf := make([]byte, 1024)
	n := sys.Ps(buf)
	if n < 0 {
		ulib.Puts(sys, "Running ps command failed\n")
		return 3
	}
	sys.Write(ulib.Stdout, buf[:n])
	return 0
}

// SysErr calls every system call with arguments it must reject and reports
// each result. It returns the number of failed checks.
func SysErr(sys ulib.Sys) int32 {
	buf := make([]byte, 16)
	checks := []struct {
		name string
		got  int32
	}{
		{"read bad fd", sys.Read(8, buf)},
		{"read negative fd", sys.Read(-1, buf)},
		{"read unopened fd", sys.Read(4, buf)},
		{"read stdout", sys.Read(ulib.Stdout, buf)},
		{"write stdin", sys.Write(ulib.Stdin, buf)},
		{"write bad fd", sys.Write(9, buf)},
		{"open missing file", sys.Open("no such file")},
		{"open empty name", sys.Open("")},
		{"close stdin", sys.Close(ulib.Stdin)},
		{"close stdout", sys.Close(ulib.Stdout)},
		{"close unopened", sys.Close(2)},
		{"execute missing", sys.Execute("no-such-program")},
		{"execute data file", sys.Execute("frame0.txt")},
		{"vidmap null", sys.Vidmap(0)},
		{"vidmap kernel", sys.Vidmap(0x00400000)},
		{"set_handler bad signal", sys.SetHandler(7, nil)},
	}
	var failed int32
	for _, c := range checks {
		status := "PASS"
		if c.got != -1 {
			status = "FAIL"
			failed++
		}
		ulib.Printf(sys, "%-24s %s\n", c.name, status)
	}

	// Exhaust the descriptor table.
	var fds []int32
	for {
		fd := sys.Open(".")
		if fd < 0 {
			break
		}
		fds = append(fds, fd)
	}
	status := "PASS"
	if len(fds) != 6 {
		status = "FAIL"
		failed++
	}
	ulib.Printf(sys, "%-24s %s\n", "descriptor table full", status)
	for _, fd := range fds {
		sys.Close(fd)
	}
	return failed
}

// rng is the linear congruential generator of the guessing game.
type rng uint32

func (r *rng) step() uint32 {
	*r = *r*1103515245 + 12345
	return uint32(*r) >> 16
}

func (r *rng) next() uint32 {
	v := r.step() & 0x07FF
	v = v<<10 | r.step()&0x03FF
	return v<<10 | r.step()&0x03FF
}

func (r *rng) between(lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	return lo + int32(r.next()%uint32(hi-lo+1))
}

func readDigit(sys ulib.Sys, buf []byte) (int32, bool) {
	line, ok := ulib.ReadLine(sys, buf)
	if !ok || line == "" || line[0] < '0' || line[0] > '9' {
		return 0, false
	}
	return int32(line[0] - '0'), true
}

// Random is a number guessing game.
func Random(sys ulib.Sys) int32 {
	buf := make([]byte, lineMax)
	ulib.Puts(sys, "Please input seed from 0-9:\n")
	seed, ok := readDigit(sys, buf)
	if !ok {
		ulib.Puts(sys, "Please input seed from 0-9!\n")
		return 2
	}
	r := rng(seed)

	ulib.Puts(sys, "Start the guessing game from 0 to 100!\n")
	ulib.Puts(sys, "Please input random sequence number (0-9):\n")
	pick, ok := readDigit(sys, buf)
	if !ok {
		ulib.Puts(sys, "Please input sequence number from 0-9!\n")
		return 2
	}
	var draws [10]int32
	for i := range draws {
		draws[i] = r.between(0, 100)
	}
	answer := draws[pick]

	ulib.Puts(sys, "Please input your guess from 0-100!\n")
	for {
		line, ok := ulib.ReadLine(sys, buf)
		if !ok {
			return 3
		}
		switch guess := ulib.Atoi(strings.TrimSpace(line)); {
		case guess < answer:
			ulib.Puts(sys, "Higher, please try again.\n")
		case guess > answer:
			ulib.Puts(sys, "Lower, please try again.\n")
		default:
			ulib.Puts(sys, "Congratulations! You win!\n")
			return 0
		}
	}
}
