package vga

import (
	"image/color"

	"kestrel/hal"

	"tinygo.org/x/drivers"
)

// display adapts an RGB565 framebuffer to drivers.Displayer.
type display struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*display)(nil)

func (d *display) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *display) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	p := hal.RGB565(c.R, c.G, c.B)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

func (d *display) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *display) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	buf := d.fb.Buffer()
	w, h := d.fb.Width(), d.fb.Height()
	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)

	p := hal.RGB565(c.R, c.G, c.B)
	lo, hi := byte(p), byte(p>>8)
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// ScrollUp moves the whole surface up by lines pixels, clearing the
// exposed band with bg.
func (d *display) ScrollUp(lines int16, bg color.RGBA) error {
	if d.fb == nil || lines <= 0 {
		return nil
	}
	buf := d.fb.Buffer()
	w, h := d.fb.Width(), d.fb.Height()
	n := int(lines)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}
	stride := d.fb.StrideBytes()
	src := min(n*stride, len(buf))
	copy(buf, buf[src:])
	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
