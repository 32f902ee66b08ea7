// Package sched implements the round-robin process scheduler spec.md
// §3/§4.4 describes: a fixed process table, a ready ring threaded
// through next-pointers, and quantum-driven preemption. It plays the
// role the teacher kernel's page/heap singletons play for memory: one
// more process-wide mutable structure with explicit init, mutated only
// with interrupts disabled by callers that share it with interrupt
// context (see internal/critical).
//
// This package has no hardware dependency by design: every operation
// is pure state-machine bookkeeping over the Process table, so it
// builds and tests on any host. The one exception, Spawn, allocates a
// kernel stack via internal/heap's untagged Alloc (not AllocLocked),
// leaving critical-section discipline to whichever dispatch layer
// wires sched into real interrupt handlers.
package sched

import (
	"errors"
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/bitset"
	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/heap"
)

// State is one node of the process state machine spec.md §3 defines.
type State int

const (
	StateNew State = iota
	StateReady
	StateRunning
	StateBlocked
	StateWaiting
	StateZombie
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateWaiting:
		return "WAITING"
	case StateZombie:
		return "ZOMBIE"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// StackCanary is the sentinel reserved for guarding a process kernel
// stack carved from the heap. It is distinct from
// heap.MagicUsed/heap.MagicFree so a stack canary is never confused
// with a heap header (DESIGN NOTES: the source overloads one sentinel
// for both purposes). Spawn does not write it into the stacks it
// allocates, and nothing in this package checks it.
const StackCanary uint32 = 0xC0FFEE42

const noPid = -1

// Registers is the cold or saved general-purpose register bank a
// context-switch trampoline reads/writes. The actual swap is an
// assembly concern; Go only ever stores and restores the struct.
type Registers struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	EIP, EFlags        uint32
}

// Credentials is a process's owning user/group, per spec.md §3's PCB
// field list.
type Credentials struct {
	UID, GID uint32
}

// Fd is one entry of a process's open-file-descriptor table. Since
// open/read/exec are reserved stubs in this core, Fd only tracks
// whether the slot is live.
type Fd struct {
	Valid bool
}

// Process is the kernel's process control block, per spec.md §3.
type Process struct {
	Pid, ParentPid int
	Name           string

	State State

	Priority, Nice int
	Quantum        int
	CPUTicks       uint64
	StartTick      uint64
	SleepUntil     uint64

	Regs Registers

	KernelStack   unsafe.Pointer // nil until Spawn allocates one
	PageDirectory uintptr

	FirstChild, NextSibling int

	ExitCode int

	// HeapEnd is the current top of this process's heap window, per
	// spec.md §3's PCB field list ("heap window per process"). Present
	// for data-model completeness only: the `brk` syscall that would
	// read/advance it is declared but unimplemented (spec.md:229), the
	// same reserved-number status as fork/exec/open/read/close/mmap/
	// munmap/signal, so nothing in this core ever assigns it yet.
	HeapEnd uint32

	Credentials Credentials
	Files       [config.MaxOpenFiles]Fd
	Cwd         string
	Pending     *bitset.Words
	Blocked     *bitset.Words

	next int // index of the next process in the ready ring, or noPid
}

const signalCount = 32

// Scheduler owns the fixed process table and ready-ring linkage.
type Scheduler struct {
	procs   [config.MaxProcesses]Process
	used    [config.MaxProcesses]bool
	current int
	ticks   uint64

	contextSwitches uint64
}

var (
	// ErrTableFull is returned by Spawn when no process slot is free.
	ErrTableFull = errors.New("sched: process table full")
)

// New returns a Scheduler with pid 0 (the idle task) created and
// installed as current, per spec.md §4.4's init contract.
func New() *Scheduler {
	s := &Scheduler{current: noPid}
	s.procs[0] = Process{
		Pid:     0,
		Name:    "idle",
		State:   StateRunning,
		Quantum: config.QuantumTicks,
		Cwd:     "/",
		Pending: bitset.NewWords(signalCount),
		Blocked: bitset.NewWords(signalCount),
		next:    noPid,
	}
	s.used[0] = true
	s.current = 0
	return s
}

// Current returns the currently RUNNING process.
func (s *Scheduler) Current() *Process {
	if s.current == noPid {
		return nil
	}
	return &s.procs[s.current]
}

// Ticks returns the number of timer ticks observed so far.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// ContextSwitches counts how many times Schedule installed a
// different process as current.
func (s *Scheduler) ContextSwitches() uint64 { return s.contextSwitches }

// Spawn creates a new process admitted directly to READY, threaded
// into the ready ring. It allocates a kernel stack from h and leaves
// Process.Regs as a cold frame at entry, the hand-off point to an
// external context-switch trampoline (spec.md's scope note on
// user-mode context switching).
func (s *Scheduler) Spawn(h *heap.Heap, name string, entry uintptr) (*Process, error) {
	pid := s.allocSlot()
	if pid < 0 {
		return nil, ErrTableFull
	}

	const kernelStackSize = 4096
	stack, err := h.Alloc(kernelStackSize, 0)
	if err != nil {
		return nil, err
	}

	p := &s.procs[pid]
	*p = Process{
		Pid:         pid,
		ParentPid:   s.current,
		Name:        name,
		State:       StateReady,
		Quantum:     config.QuantumTicks,
		StartTick:   s.ticks,
		Cwd:         "/",
		Pending:     bitset.NewWords(signalCount),
		Blocked:     bitset.NewWords(signalCount),
		FirstChild:  noPid,
		NextSibling: noPid,
		next:        noPid,
	}
	p.KernelStack = stack
	p.Regs.EIP = uint32(entry)
	p.Regs.ESP = uint32(entry) // placeholder cold frame; trampoline fixes up

	s.linkIntoReadyRing(pid)
	s.attachChild(p)

	return p, nil
}

func (s *Scheduler) allocSlot() int {
	for i := range s.used {
		if !s.used[i] {
			s.used[i] = true
			return i
		}
	}
	return -1
}

func (s *Scheduler) attachChild(p *Process) {
	if p.ParentPid < 0 {
		return
	}
	parent := &s.procs[p.ParentPid]
	p.NextSibling = parent.FirstChild
	parent.FirstChild = p.Pid
}

func (s *Scheduler) linkIntoReadyRing(pid int) {
	// Insert pid immediately after current in the ring.
	cur := &s.procs[s.current]
	s.procs[pid].next = cur.next
	cur.next = pid
}

// Schedule implements spec.md §4.4's round-robin policy: from
// current, follow next links, skip anything not in {READY, RUNNING},
// wrap to slot 0 on a broken chain, stop on returning to current. If
// nothing else is runnable, current keeps running.
func (s *Scheduler) Schedule() {
	if s.current == noPid {
		return
	}
	start := s.current
	cand := s.procs[start].next
	for {
		if cand == noPid {
			cand = 0
		}
		if cand == start {
			break
		}
		if !s.used[cand] {
			cand = s.procs[cand].next
			continue
		}
		st := s.procs[cand].State
		if st == StateReady || st == StateRunning {
			break
		}
		cand = s.procs[cand].next
	}

	if cand == start {
		return
	}

	if s.procs[start].State == StateRunning {
		s.procs[start].State = StateReady
	}
	s.procs[cand].State = StateRunning
	s.procs[cand].Quantum = config.QuantumTicks
	s.current = cand
	s.contextSwitches++
}

// Tick advances the wall clock by one timer tick: bills the current
// process, decrements its quantum (scheduling a successor at zero),
// and promotes any BLOCKED process whose sleep has elapsed, per
// spec.md §4.4's declared (if previously unwired) sleep contract.
func (s *Scheduler) Tick() {
	s.ticks++

	if s.current != noPid {
		cur := &s.procs[s.current]
		cur.CPUTicks++
		cur.Quantum--
		if cur.Quantum <= 0 {
			s.Schedule()
		}
	}

	for i := range s.procs {
		if !s.used[i] {
			continue
		}
		p := &s.procs[i]
		if p.State == StateBlocked && p.SleepUntil != 0 && s.ticks >= p.SleepUntil {
			p.State = StateReady
			p.SleepUntil = 0
		}
	}
}

// Sleep transitions the current process to BLOCKED until the tick
// count reaches untilTick, then runs the scheduler to pick a
// successor (the `sleep` syscall's admission path).
func (s *Scheduler) Sleep(untilTick uint64) {
	if s.current == noPid {
		return
	}
	cur := &s.procs[s.current]
	cur.State = StateBlocked
	cur.SleepUntil = untilTick
	s.Schedule()
}

// Yield voluntarily relinquishes the remainder of the current
// process's quantum (the `yield` syscall's admission path).
func (s *Scheduler) Yield() {
	if s.current == noPid {
		return
	}
	s.procs[s.current].Quantum = 0
	s.Schedule()
}

// Exit transitions the current process to ZOMBIE with the given exit
// code if its parent hasn't already gone away, or TERMINATED
// otherwise; wakes the parent if it is WAITING (spec.md:44
// "WAITING→READY on child exit"); and schedules a successor (the
// `exit` syscall).
func (s *Scheduler) Exit(code int) {
	if s.current == noPid {
		return
	}
	cur := &s.procs[s.current]
	cur.ExitCode = code
	if cur.ParentPid >= 0 && s.used[cur.ParentPid] {
		cur.State = StateZombie
		s.wakeWaitingParent(cur.ParentPid)
	} else {
		cur.State = StateTerminated
		s.used[cur.Pid] = false
	}
	s.Schedule()
}

// wakeWaitingParent promotes parentPid from WAITING to READY, the
// other half of the `wait` syscall's contract (spec.md:110: "Block
// current in WAITING until any child enters ZOMBIE"). A no-op if the
// parent isn't currently blocked in wait.
func (s *Scheduler) wakeWaitingParent(parentPid int) {
	if parentPid < 0 || !s.used[parentPid] {
		return
	}
	parent := &s.procs[parentPid]
	if parent.State == StateWaiting {
		parent.State = StateReady
	}
}

// Reap transitions a ZOMBIE child of the current process to
// TERMINATED and frees its slot, returning its exit code (the `wait`
// syscall's completion path).
func (s *Scheduler) Reap(childPid int) (exitCode int, ok bool) {
	if childPid < 0 || childPid >= config.MaxProcesses || !s.used[childPid] {
		return 0, false
	}
	child := &s.procs[childPid]
	if child.State != StateZombie {
		return 0, false
	}
	exitCode = child.ExitCode
	child.State = StateTerminated
	s.used[childPid] = false
	return exitCode, true
}

// Process looks up a process by pid. ok is false for an unused slot.
func (s *Scheduler) Process(pid int) (*Process, bool) {
	if pid < 0 || pid >= config.MaxProcesses || !s.used[pid] {
		return nil, false
	}
	return &s.procs[pid], true
}

// Signal marks sig pending for the process at pid, waking it from
// BLOCKED if the signal isn't in its blocked mask.
func (s *Scheduler) Signal(pid int, sig uint) bool {
	if sig >= signalCount {
		return false
	}
	p, ok := s.Process(pid)
	if !ok {
		return false
	}
	p.Pending.Set(sig)
	if p.State == StateBlocked && !p.Blocked.Test(sig) {
		p.State = StateReady
	}
	return true
}
