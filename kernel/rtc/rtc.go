// Package rtc virtualizes the real-time clock: the hardware interrupts at a
// fixed 1024Hz and every terminal sees its own programmed frequency.
package rtc

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	BaseHz    = 1024
	DefaultHz = 2
	MinHz     = 2
)

var ErrBadFrequency = errors.New("rtc frequency must be a power of two in 2..1024")

type virt struct {
	divisor uint32
	count   uint32
	ready   bool
}

// RTC holds one virtual clock per terminal. Callers serialize access.
type RTC struct {
	v []virt
}

// New returns an RTC with n virtual clocks at DefaultHz.
func New(n int) *RTC {
	r := &RTC{v: make([]virt, n)}
	for i := range r.v {
		r.v[i].divisor = BaseHz / DefaultHz
	}
	return r
}

// Divisor converts hz to the number of hardware ticks per virtual tick.
func Divisor(hz int32) (uint32, error) {
	if hz < MinHz || hz > BaseHz || bits.OnesCount32(uint32(hz)) != 1 {
		return 0, fmt.Errorf("set %dHz: %w", hz, ErrBadFrequency)
	}
	return BaseHz / uint32(hz), nil
}

// Open resets term's clock to DefaultHz.
func (r *RTC) Open(term int) {
	r.v[term] = virt{divisor: BaseHz / DefaultHz}
}

// SetFrequency programs term's virtual frequency.
func (r *RTC) SetFrequency(term int, hz int32) error {
	d, err := Divisor(hz)
	if err != nil {
		return err
	}
	r.v[term].divisor = d
	r.v[term].count = 0
	return nil
}

// Frequency returns term's virtual frequency.
func (r *RTC) Frequency(term int) int32 { return int32(BaseHz / r.v[term].divisor) }

// Tick advances every clock by one hardware interrupt.
func (r *RTC) Tick() {
	for i := range r.v {
		v := &r.v[i]
		v.count++
		if v.count >= v.divisor {
			v.count = 0
			v.ready = true
		}
	}
}

// Arm clears term's ready flag before a read waits on it.
func (r *RTC) Arm(term int) { r.v[term].ready = false }

// Ready reports whether term's clock has ticked since Arm.
func (r *RTC) Ready(term int) bool { return r.v[term].ready }
