// Package userland holds the user programs shipped in the built-in image
// and the builder for that image.
package userland

import (
	"fmt"
	"sort"

	"kestrel/userland/ulib"
)

type program struct {
	Name string
	Desc string
	Run  ulib.Program
}

var programs = map[string]program{}

func register(p program) {
	if p.Name == "" || p.Run == nil {
		panic(fmt.Sprintf("userland: bad program %q", p.Name))
	}
	if _, ok := programs[p.Name]; ok {
		panic(fmt.Sprintf("userland: duplicate program %q", p.Name))
	}
	programs[p.Name] = p
}

func init() {
	register(program{Name: "shell", Desc: "command interpreter", Run: Shell})
	register(program{Name: "ls", Desc: "list directory entries", Run: Ls})
	register(program{Name: "cat", Desc: "print a file", Run: Cat})
	register(program{Name: "grep", Desc: "search every file for a string", Run: Grep})
	register(program{Name: "hello", Desc: "greet the user", Run: Hello})
	register(program{Name: "testprint", Desc: "print a test line", Run: TestPrint})
	register(program{Name: "counter", Desc: "count at 8Hz", Run: Counter})
	register(program{Name: "pingpong", Desc: "bounce a ball across the terminal", Run: PingPong})
	register(program{Name: "fish", Desc: "animate fish through vidmap", Run: Fish})
	register(program{Name: "sigtest", Desc: "raise and catch signals", Run: SigTest})
	register(program{Name: "syserr", Desc: "check system call error returns", Run: SysErr})
	register(program{Name: "ps", Desc: "list processes", Run: Ps})
	register(program{Name: "random", Desc: "number guessing game", Run: Random})
}

// All returns every program keyed by the symbol its image carries.
func All() map[string]ulib.Program {
	out := make(map[string]ulib.Program, len(programs))
	for name, p := range programs {
		out[name] = p.Run
	}
	return out
}

// Names returns the program names in order.
func Names() []string {
	out := make([]string, 0, len(programs))
	for name := range programs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe returns the one line description of name.
func Describe(name string) string {
	return programs[name].Desc
}
