// Package port declares the small interface the scheduler core calls out
// to for everything that is genuinely architecture- or environment-
// specific: interrupt masking, yielding, stack initialisation, and
// starting/stopping the tick timer. The kernel package never imports a
// concrete port, it only depends on this interface.
package port

import "github.com/joeycumines/go-rtoskernel/list"

// EntryFunc is a task's body. arg is whatever was passed to the task's
// creation call; it is threaded through InitStack purely so a concrete
// Port can close over it when building the task's initial execution
// context.
type EntryFunc func(arg any)

// Port is implemented by whatever drives the kernel: real hardware glue
// in a cross-compiled build, or — in this module — the goroutine-based
// simport used for tests and for running the kernel as an ordinary Go
// program. All methods must be safe to call from the task or ISR contexts
// the kernel itself calls them from; Port does not add its own locking
// beyond what CriticalEnter/CriticalExit specify.
type Port interface {
	// CriticalEnter masks interrupts (or, in a simulated port, takes
	// the single lock standing in for them) and increments a nesting
	// counter. It must nest: two calls followed by two CriticalExit
	// calls must leave interrupts exactly as they were found.
	CriticalEnter()

	// CriticalExit decrements the nesting counter, re-enabling
	// interrupts only when it reaches zero.
	CriticalExit()

	// Yield requests an immediate context switch. Calling it from
	// inside a critical section must not deadlock; the switch itself
	// may be deferred until the section is exited, at the port's
	// discretion, as long as it eventually happens.
	Yield()

	// InitStack lays down whatever synthetic initial state is needed so
	// that the first time this task is resumed, it begins executing
	// entry(arg). stackHint is the requested stack depth in Port-defined
	// units (words); a simulated port may ignore it, since it has no
	// real stack to size. InitStack is called once, at task creation,
	// before the task is reachable from any list.
	InitStack(stackHint int, entry EntryFunc, arg any) (token any)

	// StartScheduler arms whatever clock the port uses to call back into
	// the kernel's tick advancement, then transfers control to the
	// first task. It does not return until EndScheduler is called (or
	// the port decides to abort startup, e.g. because no task was
	// created).
	StartScheduler() error

	// EndScheduler stops the tick source and unwinds StartScheduler,
	// which then returns.
	EndScheduler()

	// TickCountAtomic reports whether this port's tick type can be read
	// without entering a critical section. Ports running on a 32-bit-or-
	// wider single core with a native-width Tick should return true.
	TickCountAtomic() bool

	// ReadTick returns the last tick value latched by this port,
	// independent of the kernel's own tick_count. The kernel package
	// does not call it; Scheduler.StartScheduler does not align its
	// counters to the port's clock.
	ReadTick() list.Tick
}
