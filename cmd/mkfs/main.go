//go:build !tinygo

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"kestrel/kernel/fs"
	"kestrel/userland"
)

const defaultImagePath = "fs.img"

func main() {
	var srcDir string
	var outPath string
	flag.StringVar(&srcDir, "src", "", "Directory of extra files to add next to the built-in programs.")
	flag.StringVar(&outPath, "out", defaultImagePath, "Output filesystem image path.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if err := run(srcDir, outPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(srcDir, outPath string) error {
	extra, err := readDir(srcDir)
	if err != nil {
		return err
	}
	img, err := userland.ImageWith(extra)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, img, 0o644); err != nil {
		return fmt.Errorf("write image %q: %w", outPath, err)
	}
	fmt.Printf("%s: %d bytes, %d programs, %d extra files\n", outPath, len(img), len(userland.Names()), len(extra))
	return nil
}

// readDir returns the regular files directly inside dir. The image has a
// single flat directory, so subdirectories are skipped.
func readDir(dir string) ([]userland.File, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("read src %q: %w", dir, err)
	}
	var out []userland.File
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if len(e.Name()) > fs.MaxNameLen {
			return nil, fmt.Errorf("%q: name longer than %d bytes", e.Name(), fs.MaxNameLen)
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		out = append(out, userland.File{Name: e.Name(), Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
