package paging

import "strings"

// Flags shared by directory and table entries.
type Flags uint32

const (
	Present Flags = 1 << iota
	Writable
	User
	WriteThrough
	CacheDisable
	Accessed
	Dirty
	LargePage
	Global
)

var flagNames = [...]string{"P", "RW", "US", "PWT", "PCD", "A", "D", "PS", "G"}

func (f Flags) String() string {
	var parts []string
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}

const (
	flagMask  = 0xFFF
	addrMask  = ^uint32(flagMask)
	largeMask = ^uint32(0x3FFFFF)
)

// PDE is a page directory entry.
type PDE uint32

// Flags returns the low control bits.
func (e PDE) Flags() Flags { return Flags(uint32(e) & flagMask) }

// Has reports whether every bit in f is set.
func (e PDE) Has(f Flags) bool { return e.Flags()&f == f }

// Addr returns the physical base: a 4MB frame for large pages, otherwise
// the page table address.
func (e PDE) Addr() uint32 {
	if e.Has(LargePage) {
		return uint32(e) & largeMask
	}
	return uint32(e) & addrMask
}

func makePDE(addr uint32, f Flags) PDE { return PDE(addr&addrMask | uint32(f)) }

// PTE is a page table entry mapping one 4KB page.
type PTE uint32

func (e PTE) Flags() Flags     { return Flags(uint32(e) & flagMask) }
func (e PTE) Has(f Flags) bool { return e.Flags()&f == f }
func (e PTE) Addr() uint32     { return uint32(e) & addrMask }

func makePTE(addr uint32, f Flags) PTE { return PTE(addr&addrMask | uint32(f)) }
