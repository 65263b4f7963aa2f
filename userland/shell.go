package userland

import (
	"strings"

	"kestrel/userland/ulib"
)

const (
	prompt = "391OS> "

	exceptionStatus = 256
	lineMax         = 1024
)

// Shell reads command lines and executes them until "exit".
func Shell(sys ulib.Sys) int32 {
	buf := make([]byte, lineMax)
	for {
		ulib.Puts(sys, prompt)
		line, ok := ulib.ReadLine(sys, buf)
		if !ok {
			ulib.Puts(sys, "read from keyboard failed\n")
			return 3
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit":
			return 0
		case "help":
			for _, name := range Names() {
				ulib.Printf(sys, "%-10s %s\n", name, Describe(name))
			}
			continue
		}
		switch st := sys.Execute(line); {
		case st == -1:
			ulib.Puts(sys, "no such command\n")
		case st == exceptionStatus:
			ulib.Puts(sys, "program terminated by exception\n")
		case st != 0:
			ulib.Printf(sys, "program terminated abnormally (%d)\n", st)
		}
	}
}
