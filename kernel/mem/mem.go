// Package mem models physical memory and the fixed physical/virtual layout.
package mem

import (
	"fmt"
	"sync"
)

const (
	PageSize  = 0x1000
	LargePage = 0x400000
)

// Physical layout.
const (
	VideoMem      uint32 = 0xB8000 // VGA text page
	VideoAlias    uint32 = 0xB7000 // kernel virtual page that always maps VideoMem
	TermBufBase   uint32 = 0xB9000 // background buffer of terminal i at TermBufBase + i*PageSize
	KernelStart   uint32 = 0x400000
	KernelEnd     uint32 = 0x800000
	KernelStackSz uint32 = 0x2000
)

// User virtual layout.
const (
	UserBase    uint32 = 0x08000000
	UserImage   uint32 = 0x08048000
	UserEnd     uint32 = UserBase + LargePage
	UserStack   uint32 = UserEnd - 4
	UserVidmem  uint32 = 0x10000000
	MaxImageLen        = UserEnd - UserImage
)

// TermBuffer returns the physical address of terminal i's background video
// buffer.
func TermBuffer(i int) uint32 { return TermBufBase + uint32(i)*PageSize }

// ProcessFrame returns the physical base of the 4MB frame reserved for pid.
func ProcessFrame(pid int) uint32 { return KernelEnd + uint32(pid)*LargePage }

// Physical is sparse byte-addressed physical memory. Pages are allocated on
// first write; unwritten memory reads as zero.
//
// It is safe for concurrent use: the renderer reads video pages from the host
// goroutine while the kernel writes them.
type Physical struct {
	mu    sync.RWMutex
	pages map[uint32]*[PageSize]byte
	limit uint32
}

// New returns physical memory of the given size in bytes.
func New(size uint32) *Physical {
	return &Physical{pages: make(map[uint32]*[PageSize]byte), limit: size}
}

// Size returns the installed memory size.
func (p *Physical) Size() uint32 { return p.limit }

func (p *Physical) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(p.limit) {
		return fmt.Errorf("physical access %#x+%d beyond %#x", addr, n, p.limit)
	}
	return nil
}

// Read copies len(b) bytes starting at addr into b.
func (p *Physical) Read(addr uint32, b []byte) error {
	if err := p.check(addr, len(b)); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for len(b) > 0 {
		off := addr % PageSize
		n := min(len(b), int(PageSize-off))
		if pg := p.pages[addr/PageSize]; pg != nil {
			copy(b[:n], pg[off:])
		} else {
			clear(b[:n])
		}
		b = b[n:]
		addr += uint32(n)
	}
	return nil
}

// Write copies b into memory starting at addr.
func (p *Physical) Write(addr uint32, b []byte) error {
	if err := p.check(addr, len(b)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(b) > 0 {
		off := addr % PageSize
		n := min(len(b), int(PageSize-off))
		pg := p.pages[addr/PageSize]
		if pg == nil {
			pg = new([PageSize]byte)
			p.pages[addr/PageSize] = pg
		}
		copy(pg[off:], b[:n])
		b = b[n:]
		addr += uint32(n)
	}
	return nil
}

// Copy moves n bytes from src to dst.
func (p *Physical) Copy(dst, src uint32, n int) error {
	buf := make([]byte, n)
	if err := p.Read(src, buf); err != nil {
		return err
	}
	return p.Write(dst, buf)
}

// Fill sets n bytes at addr to the repeating pattern.
func (p *Physical) Fill(addr uint32, n int, pattern ...byte) error {
	if len(pattern) == 0 {
		pattern = []byte{0}
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = pattern[i%len(pattern)]
	}
	return p.Write(addr, buf)
}
