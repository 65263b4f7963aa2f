package userland

import (
	"bytes"
	"fmt"
	"sort"

	"kestrel/kernel/exe"
	"kestrel/kernel/fs"
	"kestrel/kernel/mem"
)

const frame0 = `/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\
        o
           o    o
       o
             o
  ><>      o
                   o          <><
        ><>
                                        _
                              ><>      / \
        |\   \\\\__     o             / _ \
        | \_/    o \    o            |  |  |
        > _   (( <_  oo              |  |  |
        | / \__+___/                 |  |  |
        |/     |/                    |  |  |
~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
`

const frame1 = `\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
          o
       o     o
         o
               o
     ><>     o
                 o          <><
           ><>
                                        _
                            ><>        / \
          |\   \\\\__   o             / _ \
          | \_/    o \  o            |  |  |
          > _   (( <_ oo             |  |  |
          | / \__+___/               |  |  |
          |/     |/                  |  |  |
~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
`

// Texts are the data files of the built-in image.
var Texts = map[string]string{
	"frame0.txt": frame0,
	"frame1.txt": frame1,
	"readme.txt": "Three terminals: Alt+F1, Alt+F2, Alt+F3.\n" +
		"Ctrl-C interrupts the foreground program, Ctrl-L clears the screen.\n" +
		"Type help for the program list.\n",
	"verylargetextwithverylongname.tx": "very large text file with a very long name\n" +
		"the name fills the directory entry with no terminating NUL\n",
}

// File is an extra data file for the image.
type File struct {
	Name string
	Data []byte
}

// Image builds the built-in filesystem: the directory, the clock, an
// executable per registered program and the text files.
func Image() ([]byte, error) { return ImageWith(nil) }

// ImageWith builds the built-in filesystem followed by extra.
func ImageWith(extra []File) ([]byte, error) {
	var b fs.Builder
	if err := b.Add(".", fs.TypeDir, nil); err != nil {
		return nil, err
	}
	if err := b.Add("rtc", fs.TypeRTC, nil); err != nil {
		return nil, err
	}
	for _, name := range Names() {
		img, err := exe.Build(name, mem.UserImage, nil)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", name, err)
		}
		if err := b.Add(name, fs.TypeFile, img); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(Texts) {
		if err := b.Add(name, fs.TypeFile, []byte(Texts[name])); err != nil {
			return nil, err
		}
	}
	for _, f := range extra {
		if err := b.Add(f.Name, fs.TypeFile, f.Data); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

// OpenImage builds and mounts the built-in filesystem.
func OpenImage() (*fs.FS, error) {
	img, err := Image()
	if err != nil {
		return nil, err
	}
	return fs.Open(bytes.NewReader(img))
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
