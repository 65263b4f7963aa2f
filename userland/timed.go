package userland

import (
	"encoding/binary"
	"strconv"

	"kestrel/userland/ulib"
)

// clock is an open rtc descriptor.
type clock struct {
	sys ulib.Sys
	fd  int32
}

func openClock(sys ulib.Sys, hz uint32) (clock, bool) {
	fd := sys.Open("rtc")
	if fd < 0 {
		return clock{}, false
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], hz)
	if sys.Write(fd, b[:]) != 0 {
		sys.Close(fd)
		return clock{}, false
	}
	return clock{sys: sys, fd: fd}, true
}

// wait blocks until the next virtual tick.
func (c clock) wait() bool {
	var b [4]byte
	return c.sys.Read(c.fd, b[:]) == 0
}

func (c clock) close() { c.sys.Close(c.fd) }

// Counter prints the numbers 1..n at 8Hz; n defaults to 20.
func Counter(sys ulib.Sys) int32 {
	n := int32(20)
	if arg, ok := ulib.Args(sys, make([]byte, 16)); ok {
		if v := ulib.Atoi(arg); v > 0 {
			n = v
		}
	}
	c, ok := openClock(sys, 8)
	if !ok {
		ulib.Puts(sys, "rtc open failed\n")
		return 2
	}
	defer c.close()
	for i := int32(1); i <= n; i++ {
		if !c.wait() {
			return 3
		}
		ulib.Puts(sys, strconv.Itoa(int(i))+"\n")
	}
	return 0
}

const pongWidth = 79

// PingPong bounces a ball across one line at 32Hz for the given number of
// round trips (default 3).
func PingPong(sys ulib.Sys) int32 {
	trips := int32(3)
	if arg, ok := ulib.Args(sys, make([]byte, 16)); ok {
		if v := ulib.Atoi(arg); v > 0 {
			trips = v
		}
	}
	c, ok := openClock(sys, 32)
	if !ok {
		ulib.Puts(sys, "rtc open failed\n")
		return 2
	}
	defer c.close()

	row := make([]byte, pongWidth+1)
	for i := range row {
		row[i] = ' '
	}
	row[pongWidth] = '\n'
	pos, dir := 0, 1
	for trips > 0 {
		row[pos] = '*'
		sys.Write(ulib.Stdout, row)
		row[pos] = ' '
		if !c.wait() {
			return 3
		}
		pos += dir
		if pos == pongWidth-1 || pos == 0 {
			dir = -dir
			if pos == 0 {
				trips--
			}
		}
	}
	return 0
}

// Fish draws frame0.txt and frame1.txt alternately into the video window
// at 4Hz until interrupted.
func Fish(sys ulib.Sys) int32 {
	var frames [2][]byte
	for i, name := range []string{"frame0.txt", "frame1.txt"} {
		data, ok := readAll(sys, name)
		if !ok {
			ulib.Printf(sys, "%s: read failed\n", name)
			return 2
		}
		frames[i] = data
	}
	if sys.Vidmap(ulib.Scratch) != 0 {
		ulib.Puts(sys, "vidmap failed\n")
		return 3
	}
	var w [4]byte
	if !sys.Load(ulib.Scratch, w[:]) {
		return 3
	}
	screen := binary.LittleEndian.Uint32(w[:])

	c, ok := openClock(sys, 4)
	if !ok {
		ulib.Puts(sys, "rtc open failed\n")
		return 2
	}
	defer c.close()
	for i := 0; ; i ^= 1 {
		if !drawFrame(sys, screen, frames[i]) {
			return 3
		}
		if !c.wait() {
			return 3
		}
	}
}

// drawFrame writes the characters of frame into the text page at screen,
// leaving the attribute bytes alone.
func drawFrame(sys ulib.Sys, screen uint32, frame []byte) bool {
	const cols, rows = 80, 25
	row, col := 0, 0
	for _, ch := range frame {
		if ch == '\n' {
			row, col = row+1, 0
			continue
		}
		if row >= rows {
			break
		}
		if col < cols {
			if !sys.Store(screen+uint32(2*(row*cols+col)), []byte{ch}) {
				return false
			}
		}
		col++
	}
	return true
}

func readAll(sys ulib.Sys, name string) ([]byte, bool) {
	fd := sys.Open(name)
	if fd < 0 {
		return nil, false
	}
	defer sys.Close(fd)
	var out []byte
	buf := make([]byte, 256)
	for {
		n := sys.Read(fd, buf)
		if n < 0 {
			return nil, false
		}
		if n == 0 {
			return out, true
		}
		out = append(out, buf[:n]...)
	}
}
