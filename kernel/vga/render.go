package vga

import (
	"image/color"

	"kestrel/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Palette is the 16 color text mode palette.
var Palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, {0x00, 0x00, 0xAA, 0xFF}, {0x00, 0xAA, 0x00, 0xFF}, {0x00, 0xAA, 0xAA, 0xFF},
	{0xAA, 0x00, 0x00, 0xFF}, {0xAA, 0x00, 0xAA, 0xFF}, {0xAA, 0x55, 0x00, 0xFF}, {0xAA, 0xAA, 0xAA, 0xFF},
	{0x55, 0x55, 0x55, 0xFF}, {0x55, 0x55, 0xFF, 0xFF}, {0x55, 0xFF, 0x55, 0xFF}, {0x55, 0xFF, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55, 0xFF}, {0xFF, 0x55, 0xFF, 0xFF}, {0xFF, 0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0xFF, 0xFF},
}

// Renderer draws text pages onto a framebuffer one cell at a time. Only
// cells that changed since the previous Render are redrawn.
type Renderer struct {
	d        *display
	font     tinyfont.Fonter
	cellW    int16
	cellH    int16
	baseline int16
	last     []byte
}

// NewRenderer returns a renderer sized to fb: the page fills the
// framebuffer, one cell per fb.Width()/Cols by fb.Height()/Rows pixels.
func NewRenderer(fb hal.Framebuffer) *Renderer {
	r := &Renderer{
		d:    &display{fb: fb},
		font: &proggy.TinySZ8pt7b,
	}
	if fb != nil {
		r.cellW = int16(fb.Width() / Cols)
		r.cellH = int16(fb.Height() / Rows)
	}
	r.baseline = r.cellH - r.cellH/4
	return r
}

// Displayer exposes the pixel surface.
func (r *Renderer) Displayer() drivers.Displayer { return r.d }

// PutPixel sets one pixel.
func (r *Renderer) PutPixel(x, y int16, c color.RGBA) { r.d.SetPixel(x, y, c) }

// DrawChar paints cell (col, row) with ch in the colors of attr.
func (r *Renderer) DrawChar(col, row int, ch, attr byte) {
	if r.cellW <= 0 || r.cellH <= 0 {
		return
	}
	x := int16(col) * r.cellW
	y := int16(row) * r.cellH
	_ = r.d.FillRectangle(x, y, r.cellW, r.cellH, Palette[attr>>4&0x7])
	if ch > ' ' && ch < 0x7F {
		tinyfont.DrawChar(r.d, r.font, x, y+r.baseline, rune(ch), Palette[attr&0xF])
	}
}

// Scroll shifts the pixel surface up by whole text rows.
func (r *Renderer) Scroll(rows int) {
	_ = r.d.ScrollUp(int16(rows)*r.cellH, Palette[0])
	if r.last != nil {
		n := min(rows*Cols*2, len(r.last))
		copy(r.last, r.last[n:])
		blank(r.last[len(r.last)-n:])
	}
}

// Render draws page, a full text page of char/attribute pairs.
func (r *Renderer) Render(page []byte) error {
	if len(page) < PageSize {
		return nil
	}
	first := r.last == nil
	if first {
		r.last = make([]byte, PageSize)
	}
	for i := 0; i < PageSize; i += 2 {
		if !first && page[i] == r.last[i] && page[i+1] == r.last[i+1] {
			continue
		}
		cell := i / 2
		r.DrawChar(cell%Cols, cell/Cols, page[i], page[i+1])
	}
	copy(r.last, page[:PageSize])
	return r.d.Display()
}
