package fs

import (
	"encoding/binary"
	"fmt"
)

type file struct {
	name string
	typ  FileType
	data []byte
}

// Builder assembles a filesystem image.
type Builder struct {
	files []file
}

// Add appends a directory entry. Only regular files carry data.
func (b *Builder) Add(name string, typ FileType, data []byte) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("add %q: name length must be 1..%d", name, MaxNameLen)
	}
	if len(b.files) == MaxDentries {
		return fmt.Errorf("add %q: directory full (%d entries)", name, MaxDentries)
	}
	for _, f := range b.files {
		if f.name == name {
			return fmt.Errorf("add %q: duplicate name", name)
		}
	}
	if typ != TypeFile && len(data) > 0 {
		return fmt.Errorf("add %q: %s entries carry no data", name, typ)
	}
	if len(data) > maxBlocks*BlockSize {
		return fmt.Errorf("add %q: %d bytes exceeds one inode", name, len(data))
	}
	b.files = append(b.files, file{name: name, typ: typ, data: data})
	return nil
}

// Bytes lays out the image.
func (b *Builder) Bytes() []byte {
	var inodes, blocks uint32
	for _, f := range b.files {
		if f.typ == TypeFile {
			inodes++
			blocks += uint32((len(f.data) + BlockSize - 1) / BlockSize)
		}
	}
	img := make([]byte, int(1+inodes+blocks)*BlockSize)
	binary.LittleEndian.PutUint32(img[0:], uint32(len(b.files)))
	binary.LittleEndian.PutUint32(img[4:], inodes)
	binary.LittleEndian.PutUint32(img[8:], blocks)

	var inode, blk uint32
	dataBase := int(1+inodes) * BlockSize
	for i, f := range b.files {
		d := img[bootHeader+i*dentrySize:]
		copy(d[:MaxNameLen], f.name)
		binary.LittleEndian.PutUint32(d[32:], uint32(f.typ))
		if f.typ != TypeFile {
			continue
		}
		binary.LittleEndian.PutUint32(d[36:], inode)

		ib := img[int(1+inode)*BlockSize:]
		binary.LittleEndian.PutUint32(ib, uint32(len(f.data)))
		for j := 0; j*BlockSize < len(f.data); j++ {
			binary.LittleEndian.PutUint32(ib[4+j*4:], blk)
			end := min(len(f.data), (j+1)*BlockSize)
			copy(img[dataBase+int(blk)*BlockSize:], f.data[j*BlockSize:end])
			blk++
		}
		inode++
	}
	return img
}
