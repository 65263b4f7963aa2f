package hal

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyDelete
	KeyHome
	KeyEnd
	KeyF1
	KeyF2
	KeyF3
)

// Mod is a set of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
)

// KeyEvent is a keyboard event. Control combinations that map to ASCII
// (Ctrl-C, Ctrl-L) arrive as their control rune.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
	Mods  Mod
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Disk is the read-only boot disk holding the filesystem image.
type Disk interface {
	SizeBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
}

// Time provides a base tick stream of one tick per millisecond.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the kernel and the host.
type HAL interface {
	Logger() Logger
	Display() Display
	Input() Input
	Disk() Disk
	Time() Time
}
