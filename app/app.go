package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"kestrel/hal"
	"kestrel/internal/buildinfo"
	"kestrel/internal/klog"
	"kestrel/kernel"
	"kestrel/kernel/fs"
	"kestrel/kernel/irq"
	"kestrel/kernel/rtc"
	"kestrel/kernel/vga"
	"kestrel/userland"
)

// Config is the app configuration. The JSON form is read with config.Load.
type Config struct {
	LogLevel string `json:"log_level"`
	// TimerHz is the PIT rate. The RTC runs at one interrupt per HAL tick.
	TimerHz    int    `json:"timer_hz"`
	AlarmTicks uint32 `json:"alarm_ticks"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{LogLevel: "info", TimerHz: 100, AlarmTicks: kernel.DefaultAlarmTicks}
}

// System is a booted kernel wired to a HAL.
type System struct {
	h      hal.HAL
	log    *slog.Logger
	k      *kernel.Kernel
	render *vga.Renderer
	page   []byte
}

// New mounts the filesystem, boots the kernel and starts the interrupt
// sources. The disk image is used when the HAL has one, the built-in image
// otherwise.
func New(h hal.HAL, cfg Config) (*System, error) {
	level, err := klog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := klog.New(h.Logger(), level)

	files, source, err := mount(h.Disk())
	if err != nil {
		return nil, err
	}
	installPanicHandler(h)

	k, err := kernel.New(kernel.Config{
		Logger:     log,
		FS:         files,
		Programs:   userland.All(),
		AlarmTicks: cfg.AlarmTicks,
	})
	if err != nil {
		return nil, err
	}
	s := &System{h: h, log: log, k: k, page: make([]byte, vga.PageSize)}
	if fb := framebuffer(h); fb != nil {
		s.render = vga.NewRenderer(fb)
	}

	log.Info("kestrel", "version", buildinfo.Short(), "fs", source, "entries", files.Len())
	if err := k.Boot(); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	if t := h.Time(); t != nil {
		if ch := t.Ticks(); ch != nil {
			go s.clock(ch, cfg.TimerHz)
		}
	}
	if in := h.Input(); in != nil {
		if kb := in.Keyboard(); kb != nil {
			go s.keys(kb.Events())
		}
	}
	return s, nil
}

// Start boots a System and returns its per-frame step. A boot failure is
// reported by the first step.
func Start(h hal.HAL, cfg Config) (*System, func() error) {
	s, err := New(h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("kestrel: " + err.Error())
		}
		return nil, func() error { return err }
	}
	return s, s.Step
}

// Step draws the physical text page onto the framebuffer.
func (s *System) Step() error {
	if s.render == nil || s.k.InPanicMode() {
		return nil
	}
	if err := s.k.ReadVideo(s.page); err != nil {
		return err
	}
	return s.render.Render(s.page)
}

// Screen returns the displayed text page, one line per row with trailing
// blanks trimmed.
func (s *System) Screen() string {
	page := make([]byte, vga.PageSize)
	if err := s.k.ReadVideo(page); err != nil {
		return ""
	}
	rows := make([]string, 0, vga.Rows)
	for r := 0; r < vga.Rows; r++ {
		row := make([]byte, vga.Cols)
		for c := range row {
			row[c] = page[2*(r*vga.Cols+c)]
		}
		rows = append(rows, strings.TrimRight(string(row), " \x00"))
	}
	return strings.TrimRight(strings.Join(rows, "\n"), "\n") + "\n"
}

// clock turns the HAL millisecond ticks into RTC and timer interrupts.
func (s *System) clock(ticks <-chan uint64, hz int) {
	if hz <= 0 || hz > 1000 {
		hz = 100
	}
	every := uint64(1000 / hz)
	var pace rtcPacer
	for seq := range ticks {
		if n := pace.periods(); n > 0 {
			s.k.RaiseRTC(n)
		}
		if seq%every == 0 {
			s.k.RaiseIRQ(irq.Timer)
		}
	}
}

// rtcPacer spreads rtc.BaseHz periods over the 1000 ticks of a second.
type rtcPacer struct{ acc uint32 }

// periods returns how many RTC periods elapsed during one millisecond tick.
func (p *rtcPacer) periods() uint32 {
	p.acc += rtc.BaseHz
	n := p.acc / 1000
	p.acc %= 1000
	return n
}

func (s *System) keys(events <-chan hal.KeyEvent) {
	for ev := range events {
		s.k.PushKey(ev)
	}
}

func framebuffer(h hal.HAL) hal.Framebuffer {
	d := h.Display()
	if d == nil {
		return nil
	}
	return d.Framebuffer()
}

// diskReader adapts a HAL disk to io.ReaderAt.
type diskReader struct{ d hal.Disk }

func (r diskReader) ReadAt(p []byte, off int64) (int, error) {
	size := int64(r.d.SizeBytes())
	if off >= size {
		return 0, io.EOF
	}
	n, err := r.d.ReadAt(p[:min(int64(len(p)), size-off)], uint32(off))
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func mount(d hal.Disk) (*fs.FS, string, error) {
	if d == nil {
		f, err := userland.OpenImage()
		if err != nil {
			return nil, "", fmt.Errorf("built-in image: %w", err)
		}
		return f, "built-in", nil
	}
	if d.SizeBytes() < fs.BlockSize {
		return nil, "", errors.New("disk image smaller than one block")
	}
	f, err := fs.Open(diskReader{d})
	if err != nil {
		return nil, "", fmt.Errorf("disk image: %w", err)
	}
	return f, "disk", nil
}
