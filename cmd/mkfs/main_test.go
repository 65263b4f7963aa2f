package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"kestrel/kernel/fs"
)

func TestRunWritesMountableImage(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "poem.txt"), []byte("roses\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "fs.img")
	if err := run(src, out); err != nil {
		t.Fatalf("run: %v", err)
	}

	img, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	f, err := fs.Open(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("fs.Open: %v", err)
	}
	data, err := f.ReadFile("poem.txt")
	if err != nil || string(data) != "roses\n" {
		t.Fatalf("poem.txt = %q, %v", data, err)
	}
	if _, err := f.Lookup("sub"); err == nil {
		t.Fatalf("subdirectory was added")
	}
	if _, err := f.Lookup("shell"); err != nil {
		t.Fatalf("shell missing: %v", err)
	}
}

func TestReadDirRejectsLongNames(t *testing.T) {
	src := t.TempDir()
	name := "this-name-is-much-longer-than-the-entry.txt"
	if err := os.WriteFile(filepath.Join(src, name), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readDir(src); err == nil {
		t.Fatalf("readDir accepted %q", name)
	}
}
