package syscall

import (
	"bytes"
	"testing"

	"github.com/ringkrnl/ringkrnl/internal/sched"
)

func newTestDispatcher() (*Dispatcher, *bytes.Buffer, *[4096]byte) {
	var mem [4096]byte
	var out bytes.Buffer
	d := &Dispatcher{
		Sched:   sched.New(),
		Console: &out,
		ReadUserBytes: func(addr, length uint32) []byte {
			return mem[addr : addr+length]
		},
	}
	return d, &out, &mem
}

func TestWriteToStdoutReturnsLength(t *testing.T) {
	d, out, mem := newTestDispatcher()
	copy(mem[100:], []byte("hello"))

	got := d.Dispatch(SysWrite, 1, 100, 5, 0)
	if got != 5 {
		t.Errorf("Dispatch(write, fd=1, ...) = %d, want 5", got)
	}
	if out.String() != "hello" {
		t.Errorf("console received %q, want %q", out.String(), "hello")
	}
}

func TestWriteToNonStdoutFdFails(t *testing.T) {
	d, _, _ := newTestDispatcher()
	got := d.Dispatch(SysWrite, 2, 0, 5, 0)
	if got != ErrUnknown {
		t.Errorf("Dispatch(write, fd=2, ...) = %d, want ErrUnknown", got)
	}
}

func TestReservedSyscallsReturnNotImplemented(t *testing.T) {
	d, _, _ := newTestDispatcher()
	reserved := []uint32{SysFork, SysRead, SysOpen, SysClose, SysExec, SysSignal, SysMmap, SysMunmap, SysBrk}
	for _, num := range reserved {
		if got := d.Dispatch(num, 0, 0, 0, 0); got != ErrNotImplemented {
			t.Errorf("Dispatch(%d) = %d, want ErrNotImplemented", num, got)
		}
	}
}

func TestUnknownSyscallNumberReturnsErrUnknown(t *testing.T) {
	d, _, _ := newTestDispatcher()
	if got := d.Dispatch(255, 0, 0, 0, 0); got != ErrUnknown {
		t.Errorf("Dispatch(255) = %d, want ErrUnknown", got)
	}
}

func TestGetpidReturnsCurrentPid(t *testing.T) {
	d, _, _ := newTestDispatcher()
	got := d.Dispatch(SysGetpid, 0, 0, 0, 0)
	if got != 0 {
		t.Errorf("Dispatch(getpid) = %d, want 0 (idle)", got)
	}
}

func TestExitMarksCurrentAndSchedules(t *testing.T) {
	d, _, _ := newTestDispatcher()
	before := d.Sched.Current()
	before.State = sched.StateRunning

	d.Dispatch(SysExit, 3, 0, 0, 0)
	if before.ExitCode != 3 {
		t.Errorf("ExitCode after exit syscall = %d, want 3", before.ExitCode)
	}
}

func TestYieldInvokesScheduler(t *testing.T) {
	d, _, _ := newTestDispatcher()
	d.Dispatch(SysYield, 0, 0, 0, 0)
	// With only the idle process present, yield is a no-op switch but
	// must not panic and must still count as a dispatched call.
	if d.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", d.Calls())
	}
}

func TestKillSetsTargetPendingSignal(t *testing.T) {
	d, _, _ := newTestDispatcher()
	got := d.Dispatch(SysKill, 0, 2, 0, 0)
	if got != 0 {
		t.Errorf("Dispatch(kill, pid=0, sig=2) = %d, want 0", got)
	}
	cur := d.Sched.Current()
	if !cur.Pending.Test(2) {
		t.Errorf("pid 0's pending signal bit 2 not set after kill")
	}
}

func TestKillUnknownPidReturnsErrUnknown(t *testing.T) {
	d, _, _ := newTestDispatcher()
	got := d.Dispatch(SysKill, 17, 2, 0, 0)
	if got != ErrUnknown {
		t.Errorf("Dispatch(kill, pid=17) = %d, want ErrUnknown", got)
	}
}

func TestCallsCounterIncrementsPerDispatch(t *testing.T) {
	d, _, _ := newTestDispatcher()
	d.Dispatch(SysGetpid, 0, 0, 0, 0)
	d.Dispatch(SysGetpid, 0, 0, 0, 0)
	if d.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", d.Calls())
	}
}
