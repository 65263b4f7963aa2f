package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Framebuffer geometry: an 80x25 text page of 8x16 cells.
const (
	ScreenWidth  = 640
	ScreenHeight = 400
)

// HostConfig selects host resources.
type HostConfig struct {
	// DiskPath is the filesystem image. Empty falls back to
	// $KESTREL_FS_PATH; no image means the caller supplies one.
	DiskPath string
}

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	t      *hostTime
	disk   Disk
}

// New returns a host HAL implementation.
func New(cfg HostConfig) HAL {
	logger := &hostLogger{w: os.Stdout}
	h := &hostHAL{
		logger: logger,
		fb:     newHostFramebuffer(ScreenWidth, ScreenHeight),
		kbd:    newHostKeyboard(),
		t:      newHostTime(),
	}
	path := cfg.DiskPath
	if path == "" {
		path = os.Getenv("KESTREL_FS_PATH")
	}
	if path != "" {
		d, err := openHostDisk(path)
		if err != nil {
			logger.WriteLineString(fmt.Sprintf("hal: disk %s: %v", path, err))
		} else {
			h.disk = d
		}
	}
	return h
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Disk() Disk       { return h.disk }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
