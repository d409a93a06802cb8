// Package simport implements port.Port on top of goroutines: the
// "baton" concurrency model documented in SPEC_FULL.md. Exactly one
// task goroutine runs at a time; InitStack parks a goroutine running
// the task's entry function on its own channel, and Yield hands the
// baton to whichever goroutine the kernel's scheduler selects next.
//
// This is the idiomatic Go rendition of "initialize a synthetic stack
// frame that looks pre-empted": a parked goroutine blocked on a channel
// receive *is* the suspended execution context, with none of the
// unsafe pointer/stack-frame tricks the original C needs.
package simport

import (
	"sync"
	"time"

	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port"
)

// Selector is implemented by whatever owns scheduling decisions
// (kernel.Scheduler, in practice) — Port calls back into it to advance
// the tick and to pick the next task to run. Kept as a narrow interface
// here, rather than importing the kernel package directly, so simport
// has no dependency cycle with kernel (kernel depends on port).
type Selector interface {
	// NextToken is called whenever simport needs to know which task
	// goroutine should run next; it returns the token that task's
	// InitStack call was given, or nil if none is runnable yet.
	NextToken() any
	// TickOnce advances one tick and reports whether a context switch
	// is due.
	TickOnce() bool
	// SuspendedNesting reports the scheduler's current
	// suspend-nesting count (0 means not suspended); tickLoop uses this
	// to decide whether to call TickOnce or just record a pended tick.
	SuspendedNesting() int
	// PendTick is called instead of TickOnce while suspended.
	PendTick()
}

// Port is the goroutine-backed port.Port implementation.
type Port struct {
	mu       sync.Mutex
	critNest int
	critCh   chan struct{}

	tasks map[any]*parkedTask

	current  *parkedTask
	baton    chan struct{}
	tick     list.Tick
	tickStop chan struct{}
	tickDone chan struct{}

	sel Selector

	// TickInterval paces the simulated tick loop; defaults to 1ms
	// (NewScheduler's Config.TickRateHz default) if zero. Real hardware
	// ports drive TickOnce from a genuine timer interrupt instead.
	TickInterval time.Duration
}

type parkedTask struct {
	resume chan struct{}
	done   chan struct{}
}

// New returns a ready-to-use Port. sel is wired in by the caller after
// construction (see SetSelector) because the kernel.Scheduler that
// implements Selector itself needs a *Port at construction time — the
// two are built in two steps to break the cycle.
func New() *Port {
	return &Port{
		critCh: make(chan struct{}, 1),
		tasks:  make(map[any]*parkedTask),
		baton:  make(chan struct{}, 1),
	}
}

// SetSelector wires the Selector this Port drives. Must be called
// before StartScheduler.
func (p *Port) SetSelector(sel Selector) {
	p.sel = sel
}

var _ port.Port = (*Port)(nil)

// CriticalEnter simulates interrupt masking with a single mutex
// standing in for "interrupts disabled"; nests via critNest so paired
// CriticalEnter/CriticalExit calls compose.
func (p *Port) CriticalEnter() {
	p.mu.Lock()
	if p.critNest == 0 {
		p.mu.Unlock()
		p.critCh <- struct{}{}
		p.mu.Lock()
	}
	p.critNest++
	p.mu.Unlock()
}

// CriticalExit reverses CriticalEnter, releasing the simulated
// interrupt mask only once nesting returns to zero.
func (p *Port) CriticalExit() {
	p.mu.Lock()
	p.critNest--
	n := p.critNest
	p.mu.Unlock()
	if n == 0 {
		<-p.critCh
	}
}

// Yield parks the calling task goroutine and hands the baton to
// whatever the Selector picks next. Must be called from the currently
// running task's own goroutine.
func (p *Port) Yield() {
	p.mu.Lock()
	caller := p.current
	p.mu.Unlock()

	p.advance()

	if caller != nil {
		<-caller.resume
	}
}

// advance asks the Selector for the next token, switches p.current to
// its parked goroutine, and releases it.
func (p *Port) advance() {
	token := p.sel.NextToken()
	if token == nil {
		return
	}
	p.mu.Lock()
	next := p.tasks[token]
	p.current = next
	p.mu.Unlock()
	if next != nil {
		next.resume <- struct{}{}
	}
}

// InitStack spins up a goroutine for entry, parked until this task is
// first selected to run. stackHint is accepted for interface
// conformance and logged nowhere — a goroutine's stack grows
// dynamically, so there is nothing to size here.
func (p *Port) InitStack(stackHint int, entry port.EntryFunc, arg any) (token any) {
	pt := &parkedTask{
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	token = pt
	p.mu.Lock()
	p.tasks[token] = pt
	p.mu.Unlock()

	go func() {
		<-pt.resume
		entry(arg)
		close(pt.done)
	}()

	return token
}

// StartScheduler begins driving the tick loop and performs the initial
// switch onto whichever task the Selector chose. It blocks until
// EndScheduler is called.
func (p *Port) StartScheduler() error {
	p.tickStop = make(chan struct{})
	p.tickDone = make(chan struct{})
	go p.tickLoop()

	p.advance()
	<-p.tickDone
	return nil
}

// EndScheduler stops the tick loop; StartScheduler then returns.
func (p *Port) EndScheduler() {
	if p.tickStop != nil {
		close(p.tickStop)
	}
}

func (p *Port) tickLoop() {
	defer close(p.tickDone)
	interval := p.TickInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.tickStop:
			return
		case <-ticker.C:
		}

		p.CriticalEnter()
		suspended := p.sel.SuspendedNesting() > 0
		if suspended {
			p.sel.PendTick()
		} else {
			// The return value marks a switch as due; per this port's
			// documented concurrency model (SPEC_FULL.md §5 EXPANSION)
			// it cannot be forced onto a running goroutine from here —
			// it takes effect the next time the current task's
			// goroutine itself calls Yield (directly, or as the tail of
			// a blocking kernel call).
			p.sel.TickOnce()
		}
		p.mu.Lock()
		p.tick++
		p.mu.Unlock()
		p.CriticalExit()

		select {
		case <-p.tickStop:
			return
		default:
		}
	}
}

// TickCountAtomic reports true: list.Tick is uint32, read/written only
// under p.mu in this implementation, so "atomic" here really means
// "internally synchronized", which satisfies the same contract from
// the kernel's point of view.
func (p *Port) TickCountAtomic() bool { return true }

// ReadTick returns the last tick this Port's own loop latched.
func (p *Port) ReadTick() list.Tick {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tick
}
