package signal

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"kestrel/kernel/arch"
)

// SigreturnSyscall is the syscall number the return stub invokes.
const SigreturnSyscall = 10

// ReturnStub is the code copied onto the user stack:
//
//	mov $10, %eax
//	int $0x80
//	nop
var ReturnStub = [8]byte{0xB8, SigreturnSyscall, 0x00, 0x00, 0x00, 0xCD, 0x80, 0x90}

// StubTrapLen is the offset of the instruction after the stub's int $0x80.
const StubTrapLen = 7

// Frame layout on the user stack, lowest address first.
const (
	offRetAddr = 0
	offSignum  = 4
	offHW      = 8
	offStub    = offHW + arch.FrameSize
	FrameSize  = offStub + 8
)

// Trampoline is the block pushed below the interrupted user stack pointer.
type Trampoline struct {
	RetAddr uint32
	Signum  int32
	HW      arch.Frame
	Stub    [8]byte
}

// Build lays out the trampoline for kind k below hw.UserESP. It returns the
// new user stack pointer (the trampoline's address) and its encoding. The
// return address points at the stub inside the trampoline.
func Build(hw arch.Frame, k Kind) (uint32, []byte) {
	sp := hw.UserESP - FrameSize
	t := Trampoline{
		RetAddr: sp + offStub,
		Signum:  int32(k),
		HW:      hw,
		Stub:    ReturnStub,
	}
	return sp, t.Encode()
}

// Encode returns the trampoline's in-memory bytes.
func (t *Trampoline) Encode() []byte {
	b := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(b[offRetAddr:], t.RetAddr)
	binary.LittleEndian.PutUint32(b[offSignum:], uint32(t.Signum))
	_ = t.HW.Encode(b[offHW:])
	copy(b[offStub:], t.Stub[:])
	return b
}

// DecodeSaved reads the saved register frame that sigreturn restores. sp is
// the user stack pointer at the stub's trap, one word above the trampoline
// since the handler's ret popped RetAddr.
func DecodeSaved(b []byte) (arch.Frame, error) {
	var f arch.Frame
	if len(b) < arch.FrameSize {
		return f, fmt.Errorf("sigreturn: short frame (%d bytes)", len(b))
	}
	err := f.Decode(b)
	return f, err
}

// SavedOffset is the distance from the stack pointer at the stub's trap to
// the saved register frame.
const SavedOffset = offHW - 4

// IsReturnStub reports whether code starts with the return stub.
func IsReturnStub(code []byte) bool {
	return len(code) >= len(ReturnStub) && bytes.Equal(code[:len(ReturnStub)], ReturnStub[:])
}
