package kernel

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"kestrel/kernel/proc"
)

// PanicInfo describes a kernel panic.
type PanicInfo struct {
	PID   proc.PID
	Value any
	Stack []byte
}

var panicHandler atomic.Value // func(PanicInfo)

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once per kernel. It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

type panicState struct {
	panicActive atomic.Bool
	panicOnce   sync.Once
}

// InPanicMode reports whether the kernel has panicked.
func (k *Kernel) InPanicMode() bool {
	return k.panicActive.Load()
}

func (k *Kernel) triggerPanic(info PanicInfo) {
	k.panicOnce.Do(func() {
		k.panicActive.Store(true)
		info.Stack = debug.Stack()
		k.log.Error("kernel panic", "pid", info.PID, "value", info.Value)
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// panicf stops the kernel. The calling context keeps the CPU forever.
func (k *Kernel) panicf(format string, args ...any) {
	k.panicValue(fmt.Sprintf(format, args...))
}

func (k *Kernel) panicValue(v any) {
	k.triggerPanic(PanicInfo{PID: k.procs.Current(), Value: v})
	select {}
}
