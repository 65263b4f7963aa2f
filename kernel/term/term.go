// Package term holds the per-terminal session state: keystroke buffer, enter
// flag, video bank, saved cursor and whether a root shell is open.
package term

import "kestrel/kernel/mem"

const (
	NumTerminals = 3
	KeyBufLen    = 128
)

// Cursor is a text cell position.
type Cursor struct {
	X, Y int
}

// Terminal is one virtual console.
type Terminal struct {
	ID          int
	Keys        [KeyBufLen]byte
	KeyLen      int
	Enter       bool
	Vidmap      bool
	VideoBuffer uint32
	Cursor      Cursor
	ShellOpened bool
}

// Push appends c to the line buffer, leaving room for the newline. It
// reports whether c was stored.
func (t *Terminal) Push(c byte) bool {
	if t.KeyLen >= KeyBufLen-1 {
		return false
	}
	t.Keys[t.KeyLen] = c
	t.KeyLen++
	return true
}

// Backspace drops the last buffered character.
func (t *Terminal) Backspace() bool {
	if t.KeyLen == 0 {
		return false
	}
	t.KeyLen--
	t.Keys[t.KeyLen] = 0
	return true
}

// PressEnter terminates the buffered line.
func (t *Terminal) PressEnter() {
	t.Keys[t.KeyLen] = '\n'
	t.KeyLen++
	t.Enter = true
}

// TakeLine copies the buffered line up to and including the newline into
// buf, appending a newline when the line was cut short and buf has room. It
// clears the buffer and the enter flag and returns the byte count.
func (t *Terminal) TakeLine(buf []byte) int {
	n := 0
	for n < t.KeyLen && n < len(buf) && t.Keys[n] != '\n' {
		buf[n] = t.Keys[n]
		n++
	}
	if n < len(buf) {
		buf[n] = '\n'
		n++
	}
	t.Clear()
	return n
}

// Clear drops any buffered input.
func (t *Terminal) Clear() {
	clear(t.Keys[:])
	t.KeyLen = 0
	t.Enter = false
}

// Set is the fixed bank of terminals plus which one is displayed.
type Set struct {
	terms  [NumTerminals]Terminal
	active int
}

// NewSet returns terminals with their background buffers and initial
// cursors, terminal 0 displayed.
func NewSet() *Set {
	s := &Set{}
	for i := range s.terms {
		s.terms[i] = Terminal{ID: i, VideoBuffer: mem.TermBuffer(i)}
	}
	return s
}

// Get returns terminal i, or nil when i is out of range.
func (s *Set) Get(i int) *Terminal {
	if i < 0 || i >= NumTerminals {
		return nil
	}
	return &s.terms[i]
}

// Active returns the displayed terminal id.
func (s *Set) Active() int { return s.active }

// SetActive changes the displayed terminal.
func (s *Set) SetActive(i int) { s.active = i }

// Displayed returns the displayed terminal.
func (s *Set) Displayed() *Terminal { return &s.terms[s.active] }
