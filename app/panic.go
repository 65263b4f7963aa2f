package app

import (
	"fmt"
	"strings"

	"kestrel/hal"
	"kestrel/kernel"
	"kestrel/kernel/vga"
)

// panicAttr is white on red.
const panicAttr = 0x4F

func installPanicHandler(h hal.HAL) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		lines := panicLines(info)
		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString(line)
			}
		}

		fb := framebuffer(h)
		if fb == nil {
			return
		}
		_ = vga.NewRenderer(fb).Render(panicPage(lines))
		_ = fb.Present()
	})
}

func panicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"Kestrel kernel panic",
		fmt.Sprintf("pid: %d", info.PID),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line != "" {
			lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
		}
	}
	return lines
}

// panicPage lays lines out on a text page, wrapping long lines and
// dropping whatever does not fit.
func panicPage(lines []string) []byte {
	page := make([]byte, vga.PageSize)
	for i := 0; i < len(page); i += 2 {
		page[i], page[i+1] = ' ', panicAttr
	}
	row := 0
	for _, line := range lines {
		for {
			if row == vga.Rows {
				return page
			}
			chunk := line[:min(len(line), vga.Cols)]
			for col := 0; col < len(chunk); col++ {
				page[2*(row*vga.Cols+col)] = chunk[col]
			}
			row++
			line = strings.TrimLeft(line[len(chunk):], " ")
			if line == "" {
				break
			}
		}
	}
	return page
}
