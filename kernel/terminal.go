package kernel

import (
	"kestrel/kernel/arch"
	"kestrel/kernel/irq"
	"kestrel/kernel/keyboard"
	"kestrel/kernel/mem"
	"kestrel/kernel/signal"
	"kestrel/kernel/vga"
)

func (k *Kernel) keyboardIRQ(*arch.Frame) {
	k.pic.EOI(irq.Keyboard)
	for _, ev := range k.kbd.Drain() {
		a := keyboard.Decode(ev)
		t := k.terms.Displayed()
		switch a.Kind {
		case keyboard.Char:
			if !t.Enter && t.Push(a.Char) {
				k.echo(a.Char)
			}
		case keyboard.Backspace:
			if !t.Enter && t.Backspace() {
				k.echo('\b')
			}
		case keyboard.Enter:
			if !t.Enter {
				t.PressEnter()
				k.echo('\n')
			}
		case keyboard.Interrupt:
			k.raise(signal.Interrupt)
		case keyboard.Clear:
			k.withDisplayedConsole((*vga.Console).Clear)
		case keyboard.Switch:
			k.switchTerminal(a.Terminal)
		}
	}
}

func (k *Kernel) echo(ch byte) {
	k.withDisplayedConsole(func(c *vga.Console) { c.Putc(ch) })
}

// withDisplayedConsole runs fn on a console drawing to the displayed
// terminal. When that terminal is not the current process's, the
// VideoAlias page and the terminal's saved cursor are used so the
// current process's video mapping is left alone.
func (k *Kernel) withDisplayedConsole(fn func(*vga.Console)) {
	active := k.terms.Active()
	if k.procs.OwnerTerminal(k.procs.Current()) == active {
		fn(k.console)
		return
	}
	t := k.terms.Get(active)
	c := vga.NewConsole(kernelMemory{k}, mem.VideoAlias)
	c.SetCursor(t.Cursor)
	fn(c)
	t.Cursor = c.Cursor()
}

// switchTerminal displays terminal n, starting its root shell on first
// visit.
func (k *Kernel) switchTerminal(n int) {
	old := k.terms.Active()
	next := k.terms.Get(n)
	if n == old || next == nil {
		return
	}
	k.phys.Copy(k.terms.Get(old).VideoBuffer, mem.VideoMem, vga.PageSize)
	k.phys.Copy(mem.VideoMem, next.VideoBuffer, vga.PageSize)
	k.terms.SetActive(n)
	cur := k.procs.Current()
	k.retargetVideo(k.procs.OwnerTerminal(cur))
	k.log.Info("terminal switch", "from", old, "to", n)
	if next.ShellOpened {
		return
	}
	c := k.currentCtx()
	if c == nil {
		return
	}
	if k.execute(c.user, rootShell, n) < 0 {
		k.log.Error("terminal shell", "terminal", n)
	}
}
