// Package signal implements the five fixed signal kinds, their per-process
// slots and the user stack trampoline used to run a user handler.
package signal

import (
	"errors"
	"fmt"
)

// Kind is a signal number. Lower kinds are delivered first.
type Kind int32

const (
	DivZero Kind = iota
	Segfault
	Interrupt
	Alarm
	User1

	NumKinds = 5
)

var kindNames = [NumKinds]string{"DIV_ZERO", "SEGFAULT", "INTERRUPT", "ALARM", "USER1"}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return kindNames[k]
}

// Valid reports whether k names one of the five kinds.
func (k Kind) Valid() bool { return k >= 0 && k < NumKinds }

// Action is what the kernel does for a signal with no user handler.
type Action uint8

const (
	Ignore Action = iota
	Kill
)

func (a Action) String() string {
	if a == Kill {
		return "kill"
	}
	return "ignore"
}

// DefaultAction returns the kernel default for k.
func (k Kind) DefaultAction() Action {
	switch k {
	case DivZero, Segfault, Interrupt:
		return Kill
	default:
		return Ignore
	}
}

// ErrBadSignal is returned for a signal number outside the five kinds.
var ErrBadSignal = errors.New("bad signal number")

// Slot is the per-process state of one kind. A zero Handler selects the
// kernel default.
type Slot struct {
	Kind    Kind
	Handler uint32
	Masked  bool
	Pending bool
}

// Set is a process's five slots, indexed by kind.
type Set [NumKinds]Slot

// Reset installs defaults: no handler, unmasked, nothing pending.
func (s *Set) Reset() {
	for i := range s {
		s[i] = Slot{Kind: Kind(i)}
	}
}

// Raise marks k pending.
func (s *Set) Raise(k Kind) error {
	if !k.Valid() {
		return fmt.Errorf("raise %d: %w", k, ErrBadSignal)
	}
	s[k].Pending = true
	return nil
}

// SetHandler installs addr as the handler for k; 0 restores the default.
func (s *Set) SetHandler(k Kind, addr uint32) error {
	if !k.Valid() {
		return fmt.Errorf("set handler %d: %w", k, ErrBadSignal)
	}
	s[k].Handler = addr
	return nil
}

// Next returns the first pending and unmasked slot in kind order.
func (s *Set) Next() (Slot, bool) {
	for _, sl := range s {
		if sl.Pending && !sl.Masked {
			return sl, true
		}
	}
	return Slot{}, false
}

// Take selects the slot Next would return, clears its pending bit and masks
// every slot. Only one signal is taken per call.
func (s *Set) Take() (Slot, bool) {
	sl, ok := s.Next()
	if !ok {
		return Slot{}, false
	}
	s[sl.Kind].Pending = false
	s.MaskAll()
	return sl, true
}

func (s *Set) MaskAll() {
	for i := range s {
		s[i].Masked = true
	}
}

func (s *Set) UnmaskAll() {
	for i := range s {
		s[i].Masked = false
	}
}

// Pending returns the kinds with their pending bit set.
func (s *Set) Pending() []Kind {
	var out []Kind
	for _, sl := range s {
		if sl.Pending {
			out = append(out, sl.Kind)
		}
	}
	return out
}
