package fs

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func buildImage(t *testing.T) *FS {
	t.Helper()
	var b Builder
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	must(b.Add(".", TypeDir, nil))
	must(b.Add("rtc", TypeRTC, nil))
	must(b.Add("frame0.txt", TypeFile, []byte("fish\n")))
	must(b.Add("verylargetextwithverylongname.tx", TypeFile, bytes.Repeat([]byte("0123456789"), 1000)))
	must(b.Add("empty", TypeFile, nil))

	f, err := Open(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return f
}

func TestLookup(t *testing.T) {
	f := buildImage(t)
	d, err := f.Lookup("frame0.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if d.Type != TypeFile {
		t.Fatalf("Type = %v; want file", d.Type)
	}
	if _, err := f.Lookup("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(nope) = %v; want ErrNotFound", err)
	}
	if _, err := f.Lookup("verylargetextwithverylongname.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup of a 33 byte name = %v; want ErrNotFound", err)
	}
	if _, err := f.Lookup("verylargetextwithverylongname.tx"); err != nil {
		t.Fatalf("Lookup of a 32 byte name: %v", err)
	}
}

func TestEntryByIndex(t *testing.T) {
	f := buildImage(t)
	var names []string
	for i := uint32(0); ; i++ {
		d, err := f.Entry(i)
		if err != nil {
			break
		}
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != ".,rtc,frame0.txt,verylargetextwithverylongname.tx,empty" {
		t.Fatalf("names = %s", got)
	}
}

func TestReadDataAcrossBlocks(t *testing.T) {
	f := buildImage(t)
	d, _ := f.Lookup("verylargetextwithverylongname.tx")
	size, _ := f.Size(d.Inode)
	if size != 10000 {
		t.Fatalf("Size = %d; want 10000", size)
	}

	buf := make([]byte, 20)
	n, err := f.ReadData(d.Inode, BlockSize-10, buf)
	if err != nil || n != 20 {
		t.Fatalf("ReadData = %d, %v", n, err)
	}
	// Offset 4086 is 6 mod 10.
	if string(buf) != "67890123456789012345" {
		t.Fatalf("ReadData = %q", buf)
	}

	n, _ = f.ReadData(d.Inode, 9995, buf)
	if n != 5 {
		t.Fatalf("ReadData near end = %d; want 5", n)
	}
	n, _ = f.ReadData(d.Inode, 10000, buf)
	if n != 0 {
		t.Fatalf("ReadData at end = %d; want 0", n)
	}
}

func TestReadFile(t *testing.T) {
	f := buildImage(t)
	b, err := f.ReadFile("frame0.txt")
	if err != nil || string(b) != "fish\n" {
		t.Fatalf("ReadFile = %q, %v", b, err)
	}
	b, err = f.ReadFile("empty")
	if err != nil || len(b) != 0 {
		t.Fatalf("ReadFile(empty) = %q, %v", b, err)
	}
	if _, err := f.ReadFile("rtc"); err == nil {
		t.Fatalf("ReadFile(rtc): want error")
	}
}

func TestBadInode(t *testing.T) {
	f := buildImage(t)
	if _, err := f.ReadData(99, 0, make([]byte, 4)); !errors.Is(err, ErrBadInode) {
		t.Fatalf("ReadData(99) = %v; want ErrBadInode", err)
	}
}

func TestBuilderRejects(t *testing.T) {
	var b Builder
	if err := b.Add("", TypeFile, nil); err == nil {
		t.Fatalf("empty name: want error")
	}
	_ = b.Add("a", TypeFile, nil)
	if err := b.Add("a", TypeFile, nil); err == nil {
		t.Fatalf("duplicate: want error")
	}
	if err := b.Add("rtc", TypeRTC, []byte{1}); err == nil {
		t.Fatalf("rtc with data: want error")
	}
}
