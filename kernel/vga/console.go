// Package vga drives the 80x25 text page: a console that writes character
// cells through the kernel's address space, and a renderer that draws the
// physical page onto a pixel framebuffer.
package vga

import "kestrel/kernel/term"

const (
	Cols     = 80
	Rows     = 25
	PageSize = Cols * Rows * 2
	Attr     = 0x07
)

// Memory is the byte store a console writes into.
type Memory interface {
	ReadAt(addr uint32, b []byte) error
	WriteAt(addr uint32, b []byte) error
}

// Console writes text cells starting at a base address.
type Console struct {
	mem    Memory
	base   uint32
	cursor term.Cursor
}

// NewConsole returns a console whose page starts at base.
func NewConsole(m Memory, base uint32) *Console {
	return &Console{mem: m, base: base}
}

// Cursor returns the current position.
func (c *Console) Cursor() term.Cursor { return c.cursor }

// SetCursor moves the cursor, clamped to the page.
func (c *Console) SetCursor(p term.Cursor) {
	c.cursor.X = min(max(p.X, 0), Cols-1)
	c.cursor.Y = min(max(p.Y, 0), Rows-1)
}

func (c *Console) cell(x, y int) uint32 { return c.base + uint32((y*Cols+x)*2) }

func (c *Console) put(x, y int, ch byte) {
	_ = c.mem.WriteAt(c.cell(x, y), []byte{ch, Attr})
}

// Putc writes one byte, interpreting newline, carriage return, tab and
// backspace.
func (c *Console) Putc(ch byte) {
	switch ch {
	case '\n':
		c.cursor.X = 0
		c.cursor.Y++
	case '\r':
		c.cursor.X = 0
	case '\t':
		for i := 0; i < 4; i++ {
			c.Putc(' ')
		}
		return
	case '\b':
		c.backspace()
		return
	default:
		c.put(c.cursor.X, c.cursor.Y, ch)
		c.cursor.X++
		if c.cursor.X == Cols {
			c.cursor.X = 0
			c.cursor.Y++
		}
	}
	if c.cursor.Y == Rows {
		c.Scroll()
		c.cursor.Y = Rows - 1
	}
}

func (c *Console) backspace() {
	switch {
	case c.cursor.X > 0:
		c.cursor.X--
	case c.cursor.Y > 0:
		c.cursor.Y--
		c.cursor.X = Cols - 1
	default:
		return
	}
	c.put(c.cursor.X, c.cursor.Y, ' ')
}

// Write puts every non-NUL byte of b and returns the count written.
func (c *Console) Write(b []byte) (int, error) {
	n := 0
	for _, ch := range b {
		if ch == 0 {
			continue
		}
		c.Putc(ch)
		n++
	}
	return n, nil
}

// Scroll moves every row up by one and blanks the last row.
func (c *Console) Scroll() {
	page := make([]byte, PageSize)
	if err := c.mem.ReadAt(c.base, page); err != nil {
		return
	}
	copy(page, page[Cols*2:])
	blank(page[(Rows-1)*Cols*2:])
	_ = c.mem.WriteAt(c.base, page)
}

// Clear blanks the page and homes the cursor.
func (c *Console) Clear() {
	page := make([]byte, PageSize)
	blank(page)
	_ = c.mem.WriteAt(c.base, page)
	c.cursor = term.Cursor{}
}

func blank(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i] = ' '
		b[i+1] = Attr
	}
}

// BlankPage returns an empty text page.
func BlankPage() []byte {
	b := make([]byte, PageSize)
	blank(b)
	return b
}
