package hal

import (
	"fmt"
	"os"
	"sync"
)

type hostDisk struct {
	mu   sync.Mutex
	f    *os.File
	size uint32
}

func openHostDisk(path string) (*hostDisk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() > int64(^uint32(0)) {
		_ = f.Close()
		return nil, fmt.Errorf("disk image %s: %d bytes: %w", path, st.Size(), os.ErrInvalid)
	}
	return &hostDisk{f: f, size: uint32(st.Size())}, nil
}

func (d *hostDisk) SizeBytes() uint32 { return d.size }

func (d *hostDisk) ReadAt(p []byte, off uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if off >= d.size {
		return 0, fmt.Errorf("disk read at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(d.size - off); len(p) > maxN {
		p = p[:maxN]
	}
	return d.f.ReadAt(p, int64(off))
}
