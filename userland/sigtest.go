package userland

import (
	"strings"

	"kestrel/userland/ulib"
)

// zero is read at run time so the division in SigTest is not folded.
var zero int32

// SigTest raises one signal. The argument is the signal number, with a
// trailing "h" to install a handler first:
//
//	sigtest 0    divide by zero, killed
//	sigtest 1h   page fault, caught and resumed
//	sigtest 2h   wait for Ctrl-C and catch it
//	sigtest 3h   wait for the alarm and catch it
func SigTest(sys ulib.Sys) int32 {
	arg, ok := ulib.Args(sys, make([]byte, 16))
	if !ok || arg == "" {
		ulib.Puts(sys, "usage: sigtest <0-3>[h]\n")
		return 3
	}
	catch := strings.HasSuffix(arg, "h")
	signum := ulib.Atoi(strings.TrimSuffix(arg, "h"))

	caught := false
	if catch {
		h := func(sys ulib.Sys, n int32) {
			ulib.Printf(sys, "caught signal %d\n", n)
			caught = true
			if n == ulib.SigDivZero {
				// The faulting division cannot be retried.
				sys.Halt(0)
			}
		}
		if sys.SetHandler(signum, h) != 0 {
			ulib.Puts(sys, "set_handler failed\n")
			return 2
		}
	}

	switch signum {
	case ulib.SigDivZero:
		ulib.Puts(sys, "dividing by zero\n")
		ulib.Printf(sys, "%d\n", 1/zero)
	case ulib.SigSegfault:
		ulib.Puts(sys, "reading address 0\n")
		var b [4]byte
		if !sys.Load(0, b[:]) {
			ulib.Puts(sys, "load faulted, resumed\n")
		}
	case ulib.SigInterrupt, ulib.SigAlarm:
		if !catch {
			ulib.Puts(sys, "only the handled form waits\n")
			return 3
		}
		ulib.Puts(sys, "waiting for the signal\n")
		for !caught {
			sys.Yield()
		}
	default:
		ulib.Puts(sys, "no such signal\n")
		return 3
	}
	if catch && !caught {
		return 1
	}
	return 0
}
