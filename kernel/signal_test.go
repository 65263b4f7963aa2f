package kernel

import (
	"testing"
	"time"

	"kestrel/hal"
	"kestrel/kernel/irq"
	"kestrel/kernel/signal"
	"kestrel/userland/ulib"
)

func TestUserHandlerAndSigreturn(t *testing.T) {
	type result struct {
		signums []int32
		loads   []bool
		sum     int32
	}
	results := make(chan result, 1)
	statuses := make(chan int32, 1)
	k := newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			statuses <- sys.Execute("catch")
			return idle(sys)
		},
		"catch": func(sys ulib.Sys) int32 {
			var r result
			if sys.SetHandler(ulib.SigSegfault, func(sys ulib.Sys, signum int32) {
				r.signums = append(r.signums, signum)
			}) != 0 {
				return 1
			}
			var b [4]byte
			r.loads = append(r.loads, sys.Load(0, b[:]))
			r.loads = append(r.loads, sys.Load(0xFFFFF000, b[:]))
			// A syscall result survives the round trip through a handler.
			r.sum = sys.Write(ulib.Stdout, []byte("ok"))
			results <- r
			return 3
		},
	})
	boot(t, k)

	r := recv(t, results)
	if len(r.signums) != 2 || r.signums[0] != ulib.SigSegfault || r.signums[1] != ulib.SigSegfault {
		t.Fatalf("handler saw %v; want two SEGFAULTs", r.signums)
	}
	if r.loads[0] || r.loads[1] {
		t.Fatalf("faulting loads reported success: %v", r.loads)
	}
	if r.sum != 2 {
		t.Fatalf("write = %d; want 2", r.sum)
	}
	if st := recv(t, statuses); st != 3 {
		t.Fatalf("status = %d; want 3", st)
	}
}

func TestSetHandlerRejectsBadSignal(t *testing.T) {
	results := make(chan [3]int32, 1)
	k := newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			results <- [3]int32{
				sys.SetHandler(-1, nil),
				sys.SetHandler(5, nil),
				sys.SetHandler(ulib.SigUser1, nil),
			}
			return idle(sys)
		},
	})
	boot(t, k)

	if got := recv(t, results); got != [3]int32{-1, -1, 0} {
		t.Fatalf("set_handler = %v; want [-1 -1 0]", got)
	}
}

func TestAlarmHandler(t *testing.T) {
	done := make(chan int32, 1)
	k, err := New(Config{
		FS: testImage(t, map[string]ulib.Program{"shell": nil}),
		Programs: map[string]ulib.Program{
			"shell": func(sys ulib.Sys) int32 {
				alarms := 0
				sys.SetHandler(ulib.SigAlarm, func(ulib.Sys, int32) { alarms++ })
				for alarms < 2 {
					sys.Yield()
				}
				done <- int32(alarms)
				return idle(sys)
			},
		},
		AlarmTicks: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	boot(t, k)

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-done:
			if n != 2 {
				t.Fatalf("alarms = %d", n)
			}
			return
		case <-tick.C:
			k.RaiseIRQ(irq.Timer)
		case <-timeout:
			t.Fatalf("alarm handler never ran")
		}
	}
}

func TestCtrlCKillsForegroundProcess(t *testing.T) {
	started := make(chan struct{}, 1)
	statuses := make(chan int32, 1)
	k := newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			statuses <- sys.Execute("spin")
			return idle(sys)
		},
		"spin": func(sys ulib.Sys) int32 {
			started <- struct{}{}
			for {
				sys.Yield()
			}
		},
	})
	boot(t, k)

	recv(t, started)
	k.PushKey(hal.KeyEvent{Press: true, Rune: 0x03, Mods: hal.ModCtrl})
	if st := recv(t, statuses); st != InterruptStatus {
		t.Fatalf("status = %d; want %d", st, InterruptStatus)
	}
}

func TestIgnoredSignalIsDropped(t *testing.T) {
	type result struct {
		pending int
		masked  bool
	}
	results := make(chan result, 1)
	var k *Kernel
	k = newKernel(t, map[string]ulib.Program{
		"shell": func(sys ulib.Sys) int32 {
			k.raise(signal.User1)
			sys.Write(ulib.Stdout, []byte("x"))
			pcb := k.procs.CurrentPCB()
			results <- result{pending: len(pcb.Signals.Pending()), masked: pcb.Signals[signal.User1].Masked}
			return idle(sys)
		},
	})
	boot(t, k)

	if r := recv(t, results); r.pending != 0 || r.masked {
		t.Fatalf("after delivery: %+v; want nothing pending or masked", r)
	}
}
