// Package paging owns the kernel page directory, the low video page table
// and the shared user video table, plus a TLB model so that a missing flush
// is observable.
package paging

import (
	"fmt"

	"kestrel/kernel/mem"
)

// Synthetic physical addresses of the statically allocated tables.
const (
	DirAddr      uint32 = 0x00410000
	LowTableAddr uint32 = 0x00411000
	VidTableAddr uint32 = 0x00412000
)

const entries = 1024

// Fault is a page fault raised by Translate.
type Fault struct {
	Addr    uint32
	Present bool // protection violation rather than a missing entry
	Write   bool
	User    bool
}

func (f *Fault) Error() string {
	kind := "not-present"
	if f.Present {
		kind = "protection"
	}
	mode := "supervisor"
	if f.User {
		mode = "user"
	}
	op := "read"
	if f.Write {
		op = "write"
	}
	return fmt.Sprintf("page fault at %#08x (%s %s %s)", f.Addr, kind, mode, op)
}

// ErrCode returns the x86 page fault error code.
func (f *Fault) ErrCode() uint32 {
	var c uint32
	if f.Present {
		c |= 1
	}
	if f.Write {
		c |= 2
	}
	if f.User {
		c |= 4
	}
	return c
}

type tlbEntry struct {
	frame    uint32
	user     bool
	writable bool
}

// Manager is the single shared address space. It is not safe for concurrent
// use; the caller holds the CPU.
type Manager struct {
	dir   [entries]PDE
	low   [entries]PTE
	vid   [entries]PTE
	tlb   map[uint32]tlbEntry
	maxID int

	enabled bool
	flushes uint64
}

// New returns a manager able to map pids in [0, maxPID).
func New(maxPID int) *Manager {
	return &Manager{tlb: make(map[uint32]tlbEntry), maxID: maxPID}
}

// Init clears every entry, identity maps the kernel 4MB page and the low
// video pages, and enables paging.
func (m *Manager) Init() {
	clear(m.dir[:])
	clear(m.low[:])
	clear(m.vid[:])

	m.dir[0] = makePDE(LowTableAddr, Present|Writable)
	m.low[mem.VideoMem>>12] = makePTE(mem.VideoMem, Present|Writable)
	m.low[mem.VideoAlias>>12] = makePTE(mem.VideoMem, Present|Writable)
	for i := 0; i < 3; i++ {
		b := mem.TermBuffer(i)
		m.low[b>>12] = makePTE(b, Present|Writable)
	}
	m.dir[mem.KernelStart>>22] = makePDE(mem.KernelStart, Present|Writable|LargePage|Global)
	m.dir[mem.UserVidmem>>22] = makePDE(VidTableAddr, Present|Writable|User)

	m.enabled = true
	m.FlushTLB()
}

// MapProcess points the user directory entry at pid's frame and flushes.
func (m *Manager) MapProcess(pid int) {
	if pid < 0 || pid >= m.maxID {
		panic(fmt.Sprintf("paging: map_process pid %d out of range [0,%d)", pid, m.maxID))
	}
	m.dir[mem.UserBase>>22] = makePDE(mem.ProcessFrame(pid), Present|Writable|User|LargePage)
	m.FlushTLB()
}

// MappedPID returns the pid whose frame backs the user region, or -1.
func (m *Manager) MappedPID() int {
	e := m.dir[mem.UserBase>>22]
	if !e.Has(Present) {
		return -1
	}
	return int((e.Addr() - mem.KernelEnd) / mem.LargePage)
}

// MapVideoWindow installs a user page at virt targeting phys.
func (m *Manager) MapVideoWindow(virt, phys uint32) {
	m.vid[(virt>>12)&0x3FF] = makePTE(phys, Present|Writable|User)
	m.FlushTLB()
}

// UnmapVideoWindow clears the present bit of the user page at virt. The
// page keeps phys as its target so a later remap lands in the same bank.
func (m *Manager) UnmapVideoWindow(virt, phys uint32) {
	m.vid[(virt>>12)&0x3FF] = makePTE(phys, Writable|User)
	m.FlushTLB()
}

// RetargetVideo points the kernel's VideoMem page and the user video window
// at phys. The window is present only when window is true.
func (m *Manager) RetargetVideo(phys uint32, window bool) {
	m.low[mem.VideoMem>>12] = makePTE(phys, Present|Writable)
	f := Writable | User
	if window {
		f |= Present
	}
	m.vid[(mem.UserVidmem>>12)&0x3FF] = makePTE(phys, f)
	m.FlushTLB()
}

// FlushTLB drops every cached translation.
func (m *Manager) FlushTLB() {
	clear(m.tlb)
	m.flushes++
}

// Flushes returns how many times the TLB has been flushed.
func (m *Manager) Flushes() uint64 { return m.flushes }

// Directory returns a copy of the page directory.
func (m *Manager) Directory() [entries]PDE { return m.dir }

// VideoEntry returns the user video window entry for virt.
func (m *Manager) VideoEntry(virt uint32) PTE { return m.vid[(virt>>12)&0x3FF] }

// KernelVideo returns the physical page currently behind VideoMem.
func (m *Manager) KernelVideo() uint32 { return m.low[mem.VideoMem>>12].Addr() }

func (m *Manager) table(addr uint32) *[entries]PTE {
	switch addr {
	case LowTableAddr:
		return &m.low
	case VidTableAddr:
		return &m.vid
	}
	return nil
}

// Translate resolves virt through the TLB, walking the tables on a miss.
func (m *Manager) Translate(virt uint32, user, write bool) (uint32, error) {
	if !m.enabled {
		return virt, nil
	}
	vpn := virt >> 12
	e, ok := m.tlb[vpn]
	if !ok {
		var err error
		e, err = m.walk(virt, user, write)
		if err != nil {
			return 0, err
		}
		m.tlb[vpn] = e
	}
	if user && (!e.user || write && !e.writable) {
		return 0, &Fault{Addr: virt, Present: true, Write: write, User: user}
	}
	return e.frame | virt&0xFFF, nil
}

func (m *Manager) walk(virt uint32, user, write bool) (tlbEntry, error) {
	notPresent := &Fault{Addr: virt, Write: write, User: user}
	pde := m.dir[virt>>22]
	if !pde.Has(Present) {
		return tlbEntry{}, notPresent
	}
	if pde.Has(LargePage) {
		return tlbEntry{
			frame:    pde.Addr() + virt&0x3FF000,
			user:     pde.Has(User),
			writable: pde.Has(Writable),
		}, nil
	}
	t := m.table(pde.Addr())
	if t == nil {
		return tlbEntry{}, notPresent
	}
	pte := t[(virt>>12)&0x3FF]
	if !pte.Has(Present) {
		return tlbEntry{}, notPresent
	}
	return tlbEntry{
		frame:    pte.Addr(),
		user:     pde.Has(User) && pte.Has(User),
		writable: pde.Has(Writable) && pte.Has(Writable),
	}, nil
}
