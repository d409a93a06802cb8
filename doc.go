// Package rtoskernel is a Go port of a preemptive, priority-based
// real-time kernel core: intrusive ordered lists, a tick-driven
// scheduler, tasks, scheduler suspension with deferred work, the
// event-list blocking protocol shared by every synchronization
// primitive, event groups, and software timers run by a daemon task.
//
// # Architecture
//
// [list] implements the intrusive, sentinel-terminated doubly-linked
// list every other package builds on: ready lists, delayed lists, event
// lists, and the timer daemon's active-timer lists are all
// [list.List] instances over a different owner type.
//
// [kernel] is the scheduler core: task lifecycle ([kernel.Scheduler.CreateTask],
// [kernel.Scheduler.DeleteTask]), the tick engine ([kernel.Scheduler.Tick]),
// delay and event-list primitives ([kernel.Scheduler.Delay], [kernel.Scheduler.PlaceOnEventList]),
// and the suspend/resume deferred-work protocol
// ([kernel.Scheduler.SuspendAll], [kernel.Scheduler.ResumeAll]). It
// depends only on [port.Port], an interface covering everything that is
// genuinely architecture-specific.
//
// [port/simport] is a goroutine-based Port: exactly one task goroutine
// runs at a time, handed a single baton token, which lets the whole
// kernel run and be tested as an ordinary Go program without a real
// target or a cross-compiled runtime.
//
// [eventgroup] and [swtimer] are synchronization primitives layered on
// the event-list protocol: event groups are bitmask rendezvous; software
// timers are dispatched by a command queue drained by a daemon task
// created through the same [kernel.Scheduler.CreateTask] every other
// task goes through.
//
// [klog] wraps the structured logger used throughout for scheduler and
// primitive diagnostics.
package rtoskernel
