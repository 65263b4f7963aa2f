package kernel

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// ps formats the process map into buf and returns the byte count.
func (k *Kernel) ps(buf []byte) int32 {
	if buf == nil {
		return -1
	}
	var out bytes.Buffer
	w := tabwriter.NewWriter(&out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tTTY\tSTATE\tCMD\tSTART")
	for _, e := range k.procs.Snapshot() {
		if !e.Occupied {
			continue
		}
		pcb := k.procs.Get(e.PID)
		state := "sleep"
		if e.Running {
			state = "run"
		}
		if e.PID == k.procs.Current() {
			state = "cur"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", e.PID, e.Terminal, state, pcb.Command(), pcb.CreatedAt())
	}
	if err := w.Flush(); err != nil {
		return -1
	}
	return int32(copy(buf, out.Bytes()))
}
