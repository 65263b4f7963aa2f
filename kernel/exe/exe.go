// Package exe reads and writes the executable header: the ELF magic at
// offset 0, the entry point at offset 24 and the program symbol the host
// binds to a Go function.
package exe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var Magic = [4]byte{0x7F, 'E', 'L', 'F'}

const (
	EntryOffset  = 24
	SymbolOffset = 0x40
	SymbolLen    = 32
	HeaderLen    = SymbolOffset + SymbolLen
)

var ErrNotExecutable = errors.New("not an executable")

// Header is the decoded executable header.
type Header struct {
	Entry  uint32
	Symbol string
}

// CheckMagic reports whether b starts with the executable magic.
func CheckMagic(b []byte) bool {
	return len(b) >= len(Magic) && bytes.Equal(b[:len(Magic)], Magic[:])
}

// Parse decodes the header of image.
func Parse(image []byte) (Header, error) {
	if !CheckMagic(image) {
		return Header{}, ErrNotExecutable
	}
	if len(image) < HeaderLen {
		return Header{}, fmt.Errorf("header truncated at %d bytes: %w", len(image), ErrNotExecutable)
	}
	sym := image[SymbolOffset:HeaderLen]
	if i := bytes.IndexByte(sym, 0); i >= 0 {
		sym = sym[:i]
	}
	return Header{
		Entry:  binary.LittleEndian.Uint32(image[EntryOffset:]),
		Symbol: string(sym),
	}, nil
}

// Build returns an image for symbol whose entry point is loadAddr plus the
// header length, followed by payload.
func Build(symbol string, loadAddr uint32, payload []byte) ([]byte, error) {
	if len(symbol) == 0 || len(symbol) >= SymbolLen {
		return nil, fmt.Errorf("build %q: symbol length must be 1..%d", symbol, SymbolLen-1)
	}
	b := make([]byte, HeaderLen+len(payload))
	copy(b, Magic[:])
	b[4] = 1 // ELFCLASS32
	b[5] = 1 // little endian
	b[6] = 1
	binary.LittleEndian.PutUint16(b[16:], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(b[18:], 3) // EM_386
	binary.LittleEndian.PutUint32(b[EntryOffset:], loadAddr+HeaderLen)
	copy(b[SymbolOffset:], symbol)
	copy(b[HeaderLen:], payload)
	return b, nil
}
