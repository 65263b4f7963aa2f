// Package fs reads the read-only boot filesystem: a boot block of directory
// entries, one block per inode and a run of 4KB data blocks.
package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	BlockSize   = 4096
	MaxNameLen  = 32
	MaxDentries = 63
	dentrySize  = 64
	bootHeader  = 64
	maxBlocks   = BlockSize/4 - 1
)

// FileType is the dentry type field.
type FileType uint32

const (
	TypeRTC FileType = iota
	TypeDir
	TypeFile
)

func (t FileType) String() string {
	switch t {
	case TypeRTC:
		return "rtc"
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	}
	return fmt.Sprintf("FileType(%d)", uint32(t))
}

var (
	ErrNotFound = errors.New("file not found")
	ErrBadInode = errors.New("bad inode")
	ErrCorrupt  = errors.New("corrupt filesystem")
)

// Dentry is a directory entry.
type Dentry struct {
	Name  string
	Type  FileType
	Inode uint32
}

// FS is an opened filesystem image.
type FS struct {
	r        io.ReaderAt
	dentries []Dentry
	inodes   uint32
	blocks   uint32
}

// Open parses the boot block of the image behind r.
func Open(r io.ReaderAt) (*FS, error) {
	boot := make([]byte, BlockSize)
	if _, err := r.ReadAt(boot, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read boot block: %w", err)
	}
	n := binary.LittleEndian.Uint32(boot[0:])
	f := &FS{
		r:      r,
		inodes: binary.LittleEndian.Uint32(boot[4:]),
		blocks: binary.LittleEndian.Uint32(boot[8:]),
	}
	if n > MaxDentries {
		return nil, fmt.Errorf("%d directory entries: %w", n, ErrCorrupt)
	}
	for i := uint32(0); i < n; i++ {
		b := boot[bootHeader+i*dentrySize:]
		name := b[:MaxNameLen]
		for j, c := range name {
			if c == 0 {
				name = name[:j]
				break
			}
		}
		f.dentries = append(f.dentries, Dentry{
			Name:  string(name),
			Type:  FileType(binary.LittleEndian.Uint32(b[32:])),
			Inode: binary.LittleEndian.Uint32(b[36:]),
		})
	}
	return f, nil
}

// Len returns the number of directory entries.
func (f *FS) Len() int { return len(f.dentries) }

// Lookup finds the dentry called name (read_by_name).
func (f *FS) Lookup(name string) (Dentry, error) {
	if name == "" || len(name) > MaxNameLen {
		return Dentry{}, fmt.Errorf("lookup %q: %w", name, ErrNotFound)
	}
	for _, d := range f.dentries {
		if d.Name == name {
			return d, nil
		}
	}
	return Dentry{}, fmt.Errorf("lookup %q: %w", name, ErrNotFound)
}

// Entry returns the dentry at index i (read_by_index).
func (f *FS) Entry(i uint32) (Dentry, error) {
	if i >= uint32(len(f.dentries)) {
		return Dentry{}, fmt.Errorf("entry %d: %w", i, ErrNotFound)
	}
	return f.dentries[i], nil
}

func (f *FS) u32(off int64) (uint32, error) {
	var b [4]byte
	if _, err := f.r.ReadAt(b[:], off); err != nil {
		return 0, fmt.Errorf("read at %d: %w", off, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func inodeOffset(inode uint32) int64 { return int64(1+inode) * BlockSize }

// Size returns the length in bytes of inode's file.
func (f *FS) Size(inode uint32) (uint32, error) {
	if inode >= f.inodes {
		return 0, fmt.Errorf("inode %d: %w", inode, ErrBadInode)
	}
	return f.u32(inodeOffset(inode))
}

// ReadData copies bytes of inode starting at offset into buf (read_bytes).
// It returns 0 at end of file.
func (f *FS) ReadData(inode, offset uint32, buf []byte) (int, error) {
	size, err := f.Size(inode)
	if err != nil {
		return 0, err
	}
	if offset >= size {
		return 0, nil
	}
	want := min(uint32(len(buf)), size-offset)
	dataBase := int64(1+f.inodes) * BlockSize

	var done uint32
	for done < want {
		pos := offset + done
		idx := pos / BlockSize
		if idx >= maxBlocks {
			return int(done), fmt.Errorf("inode %d block %d: %w", inode, idx, ErrCorrupt)
		}
		blk, err := f.u32(inodeOffset(inode) + 4 + int64(idx)*4)
		if err != nil {
			return int(done), err
		}
		if blk >= f.blocks {
			return int(done), fmt.Errorf("inode %d data block %d: %w", inode, blk, ErrCorrupt)
		}
		in := pos % BlockSize
		n := min(want-done, BlockSize-in)
		off := dataBase + int64(blk)*BlockSize + int64(in)
		if _, err := f.r.ReadAt(buf[done:done+n], off); err != nil && !errors.Is(err, io.EOF) {
			return int(done), fmt.Errorf("read data block %d: %w", blk, err)
		}
		done += n
	}
	return int(done), nil
}

// ReadFile returns the whole contents of name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	d, err := f.Lookup(name)
	if err != nil {
		return nil, err
	}
	if d.Type != TypeFile {
		return nil, fmt.Errorf("read %q: %s is not a regular file", name, d.Type)
	}
	size, err := f.Size(d.Inode)
	if err != nil {
		return nil, err
	}
	b := make([]byte, size)
	n, err := f.ReadData(d.Inode, 0, b)
	return b[:n], err
}
