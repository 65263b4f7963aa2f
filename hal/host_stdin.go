package hal

import (
	"bufio"
	"errors"
	"io"
)

// stdinEvent maps one input byte to the key event a typist would produce.
func stdinEvent(c byte) (KeyEvent, bool) {
	switch {
	case c == '\n':
		return KeyEvent{Code: KeyEnter, Press: true}, true
	case c == '\r':
		return KeyEvent{}, false
	case c == 0x03 || c == 0x0C:
		return KeyEvent{Press: true, Rune: rune(c), Mods: ModCtrl}, true
	case c == 0x7F || c == '\b':
		return KeyEvent{Code: KeyBackspace, Press: true}, true
	case c >= ' ' && c < 0x7F:
		return KeyEvent{Press: true, Rune: rune(c)}, true
	}
	return KeyEvent{}, false
}

// feed types r into the keyboard until EOF. Events block rather than drop
// so piped scripts arrive intact.
func (k *hostKeyboard) feed(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ev, ok := stdinEvent(c); ok {
			k.ch <- ev
		}
	}
}
