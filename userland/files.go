package userland

import (
	"bytes"

	"kestrel/userland/ulib"
)

const nameMax = 32

// Ls prints one directory entry per line.
func Ls(sys ulib.Sys) int32 {
	fd := sys.Open(".")
	if fd < 0 {
		ulib.Puts(sys, "directory open failed\n")
		return 2
	}
	defer sys.Close(fd)
	buf := make([]byte, nameMax+1)
	for {
		n := sys.Read(fd, buf)
		if n < 0 {
			ulib.Puts(sys, "directory entry read failed\n")
			return 3
		}
		if n == 0 {
			return 0
		}
		buf[n] = '\n'
		if sys.Write(ulib.Stdout, buf[:n+1]) < 0 {
			return 3
		}
	}
}

// Cat copies the named file to stdout.
func Cat(sys ulib.Sys) int32 {
	name, ok := ulib.Args(sys, make([]byte, lineMax))
	if !ok {
		ulib.Puts(sys, "could not read arguments\n")
		return 3
	}
	fd := sys.Open(name)
	if fd < 0 {
		ulib.Puts(sys, "file open failed\n")
		return 2
	}
	defer sys.Close(fd)
	buf := make([]byte, lineMax)
	for {
		n := sys.Read(fd, buf)
		if n < 0 {
			ulib.Puts(sys, "file read failed\n")
			return 3
		}
		if n == 0 {
			return 0
		}
		if sys.Write(ulib.Stdout, buf[:n]) < 0 {
			return 3
		}
	}
}

// Grep prints every line of every regular file that contains its argument,
// prefixed with the file name.
func Grep(sys ulib.Sys) int32 {
	pattern, ok := ulib.Args(sys, make([]byte, lineMax))
	if !ok || pattern == "" {
		ulib.Puts(sys, "usage: grep <string>\n")
		return 3
	}
	dir := sys.Open(".")
	if dir < 0 {
		ulib.Puts(sys, "directory open failed\n")
		return 2
	}
	defer sys.Close(dir)

	name := make([]byte, nameMax)
	for {
		n := sys.Read(dir, name)
		if n <= 0 {
			return 0
		}
		entry := string(name[:n])
		// The directory itself and the clock have no lines.
		if entry == "." || entry == "rtc" {
			continue
		}
		if !grepFile(sys, entry, []byte(pattern)) {
			return 3
		}
	}
}

func grepFile(sys ulib.Sys, name string, pattern []byte) bool {
	fd := sys.Open(name)
	if fd < 0 {
		ulib.Printf(sys, "%s: open failed\n", name)
		return false
	}
	defer sys.Close(fd)

	var data []byte
	buf := make([]byte, lineMax)
	for {
		n := sys.Read(fd, buf)
		if n < 0 {
			ulib.Printf(sys, "%s: read failed\n", name)
			return false
		}
		if n == 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if bytes.Contains(line, pattern) {
			ulib.Printf(sys, "%s:%s\n", name, line)
		}
	}
	return true
}
