package sched

import (
	"testing"

	"github.com/ringkrnl/ringkrnl/internal/heap"
)

func TestNewInstallsIdleAsRunning(t *testing.T) {
	s := New()
	cur := s.Current()
	if cur == nil {
		t.Fatal("Current() = nil after New()")
	}
	if cur.Pid != 0 || cur.State != StateRunning {
		t.Errorf("idle process = {pid=%d state=%s}, want {pid=0 state=RUNNING}", cur.Pid, cur.State)
	}
}

func TestSpawnAddsReadyProcessToRing(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))

	p, err := s.Spawn(h, "worker", 0x1000)
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if p.State != StateReady {
		t.Errorf("Spawn()'s process state = %s, want READY", p.State)
	}
	if p.ParentPid != 0 {
		t.Errorf("Spawn()'s process ParentPid = %d, want 0 (idle)", p.ParentPid)
	}
}

func TestTimerPreemptionSwitchesAfterQuantum(t *testing.T) {
	// Scenario: two READY processes A (current) and B with quantum=2.
	// After two timer ticks, current should be the other process, the
	// first returned to READY, and exactly one context switch recorded.
	s := New()
	h := heap.New(make([]byte, 64*1024))

	a, err := s.Spawn(h, "a", 0x1000)
	if err != nil {
		t.Fatalf("Spawn(a) error = %v", err)
	}
	// Make a the current RUNNING process, with the idle task parked READY.
	s.procs[0].State = StateReady
	a.State = StateRunning
	a.Quantum = 2
	s.current = a.Pid

	b, err := s.Spawn(h, "b", 0x2000)
	if err != nil {
		t.Fatalf("Spawn(b) error = %v", err)
	}
	b.State = StateReady

	s.Tick()
	if s.Current().Pid != a.Pid {
		t.Fatalf("after 1 tick current = %d, want %d (quantum not yet exhausted)", s.Current().Pid, a.Pid)
	}

	s.Tick()
	if s.Current().Pid == a.Pid {
		t.Fatalf("after 2 ticks current is still %d, want a successor scheduled", a.Pid)
	}
	if a.State != StateReady {
		t.Errorf("a.State = %s after preemption, want READY", a.State)
	}
	if s.Current().State != StateRunning {
		t.Errorf("new current state = %s, want RUNNING", s.Current().State)
	}
	if s.ContextSwitches() != 1 {
		t.Errorf("ContextSwitches() = %d, want 1", s.ContextSwitches())
	}
}

func TestExactlyOneRunningAfterSchedule(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	s.Spawn(h, "a", 0x1000)
	s.Spawn(h, "b", 0x2000)
	s.Spawn(h, "c", 0x3000)

	s.Schedule()

	running := 0
	for i := 0; i < len(s.procs); i++ {
		if !s.used[i] {
			continue
		}
		st := s.procs[i].State
		if st != StateReady && st != StateRunning {
			continue
		}
		if st == StateRunning {
			running++
		}
	}
	if running != 1 {
		t.Errorf("running process count = %d, want exactly 1", running)
	}
}

func TestScheduleStaysOnCurrentWhenNoOtherRunnable(t *testing.T) {
	s := New()
	before := s.Current().Pid
	s.Schedule()
	if s.Current().Pid != before {
		t.Errorf("Schedule() switched away from the only runnable process")
	}
	if s.ContextSwitches() != 0 {
		t.Errorf("ContextSwitches() = %d, want 0", s.ContextSwitches())
	}
}

func TestSleepBlocksThenTickPromotesToReady(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	p, _ := s.Spawn(h, "sleeper", 0x1000)
	p.State = StateRunning
	s.current = p.Pid

	s.Sleep(s.Ticks() + 2)
	if p.State != StateBlocked {
		t.Fatalf("process state after Sleep = %s, want BLOCKED", p.State)
	}

	s.Tick()
	if p.State != StateBlocked {
		t.Fatalf("process state after 1 tick = %s, want still BLOCKED", p.State)
	}
	s.Tick()
	if p.State != StateReady {
		t.Errorf("process state after sleep elapses = %s, want READY", p.State)
	}
}

func TestExitWithLiveParentBecomesZombie(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	p, _ := s.Spawn(h, "child", 0x1000)
	p.State = StateRunning
	s.current = p.Pid

	s.Exit(7)
	if p.State != StateZombie {
		t.Errorf("state after Exit = %s, want ZOMBIE", p.State)
	}
	if p.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", p.ExitCode)
	}
}

func TestExitWakesWaitingParent(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	child, _ := s.Spawn(h, "child", 0x1000)

	// Idle (pid 0, the child's parent) calls wait and blocks.
	parent := s.Current()
	parent.State = StateWaiting

	s.current = child.Pid
	child.State = StateRunning
	s.Exit(0)

	// Woken to READY, then picked by Exit's Schedule as the only
	// runnable successor.
	if parent.State != StateRunning {
		t.Errorf("parent state after child Exit = %s, want RUNNING (woken and scheduled)", parent.State)
	}
	if child.State != StateZombie {
		t.Errorf("child state after Exit = %s, want ZOMBIE", child.State)
	}
}

func TestExitDoesNotWakeParentThatIsNotWaiting(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	child, _ := s.Spawn(h, "child", 0x1000)

	// Parent is blocked on something other than wait.
	parent := s.Current()
	parent.State = StateBlocked

	s.current = child.Pid
	child.State = StateRunning
	s.Exit(0)

	if parent.State != StateBlocked {
		t.Errorf("parent state after child Exit = %s, want unchanged BLOCKED", parent.State)
	}
}

func TestReapTransitionsZombieToTerminated(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	p, _ := s.Spawn(h, "child", 0x1000)
	p.State = StateZombie
	p.ExitCode = 42

	code, ok := s.Reap(p.Pid)
	if !ok {
		t.Fatal("Reap() on a ZOMBIE child returned ok=false")
	}
	if code != 42 {
		t.Errorf("Reap() exit code = %d, want 42", code)
	}
	if _, stillThere := s.Process(p.Pid); stillThere {
		t.Errorf("process slot still reports used after Reap")
	}
}

func TestReapRejectsNonZombie(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	p, _ := s.Spawn(h, "child", 0x1000) // READY, not ZOMBIE

	if _, ok := s.Reap(p.Pid); ok {
		t.Errorf("Reap() on a non-ZOMBIE process returned ok=true")
	}
}

func TestSignalWakesBlockedProcess(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 64*1024))
	p, _ := s.Spawn(h, "waiter", 0x1000)
	p.State = StateBlocked

	if ok := s.Signal(p.Pid, 5); !ok {
		t.Fatal("Signal() returned false")
	}
	if p.State != StateReady {
		t.Errorf("state after Signal = %s, want READY", p.State)
	}
	if !p.Pending.Test(5) {
		t.Errorf("Pending bit 5 not set after Signal")
	}
}

func TestSignalRejectsOutOfRangeBit(t *testing.T) {
	s := New()
	if ok := s.Signal(0, 99); ok {
		t.Errorf("Signal(0, 99) = true, want false (out of the 32-signal range)")
	}
}

func TestSpawnFailsWhenTableFull(t *testing.T) {
	s := New()
	h := heap.New(make([]byte, 1024*1024))

	var lastErr error
	for i := 0; i < 100; i++ {
		_, err := s.Spawn(h, "p", 0x1000)
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr != ErrTableFull {
		t.Errorf("error after exhausting the process table = %v, want ErrTableFull", lastErr)
	}
}
