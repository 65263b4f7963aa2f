// Package arch holds the x86 protected-mode constants and register layouts
// shared by the kernel packages.
package arch

import (
	"encoding/binary"
	"fmt"
)

// Segment selectors installed in the GDT.
const (
	KernelCS uint32 = 0x0010
	KernelDS uint32 = 0x0018
	UserCS   uint32 = 0x0023
	UserDS   uint32 = 0x002B
)

// EFLAGS bits.
const (
	EFlagsReserved uint32 = 1 << 1
	EFlagsIF       uint32 = 1 << 9
)

// FrameWords is the number of 32-bit words in a Frame.
const FrameWords = 17

// FrameSize is the encoded size of a Frame in bytes.
const FrameSize = FrameWords * 4

// Frame is the register block pushed by the interrupt entry stubs. Field
// order matches the in-memory layout, lowest address first.
type Frame struct {
	EBX     uint32
	ECX     uint32
	EDX     uint32
	ESI     uint32
	EDI     uint32
	EBP     uint32
	EAX     uint32
	DS      uint32
	ES      uint32
	FS      uint32
	Vector  uint32
	ErrCode uint32
	EIP     uint32
	CS      uint32
	EFlags  uint32
	UserESP uint32
	SS      uint32
}

// FromUser reports whether the frame was pushed on a ring 3 to ring 0
// transition. Only such frames carry a valid UserESP/SS pair.
func (f *Frame) FromUser() bool { return f.CS&3 == 3 }

func (f *Frame) words() [FrameWords]*uint32 {
	return [FrameWords]*uint32{
		&f.EBX, &f.ECX, &f.EDX, &f.ESI, &f.EDI, &f.EBP, &f.EAX,
		&f.DS, &f.ES, &f.FS, &f.Vector, &f.ErrCode,
		&f.EIP, &f.CS, &f.EFlags, &f.UserESP, &f.SS,
	}
}

// Encode writes the frame in little-endian order into b.
func (f *Frame) Encode(b []byte) error {
	if len(b) < FrameSize {
		return fmt.Errorf("encode frame: short buffer (%d bytes)", len(b))
	}
	for i, w := range f.words() {
		binary.LittleEndian.PutUint32(b[i*4:], *w)
	}
	return nil
}

// Decode fills the frame from a little-endian encoding.
func (f *Frame) Decode(b []byte) error {
	if len(b) < FrameSize {
		return fmt.Errorf("decode frame: short buffer (%d bytes)", len(b))
	}
	for i, w := range f.words() {
		*w = binary.LittleEndian.Uint32(b[i*4:])
	}
	return nil
}

// UserEntry returns the frame an iret into ring 3 consumes when a process
// starts at eip with stack esp.
func UserEntry(eip, esp uint32) Frame {
	return Frame{
		DS:      UserDS,
		ES:      UserDS,
		FS:      UserDS,
		EIP:     eip,
		CS:      UserCS,
		EFlags:  EFlagsIF | EFlagsReserved,
		UserESP: esp,
		SS:      UserDS,
	}
}

// TSS holds the fields of the task state segment the kernel reprograms.
type TSS struct {
	SS0  uint32
	ESP0 uint32
}
