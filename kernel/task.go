package kernel

import (
	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port"
)

// Priority identifies a ready list. Priority 0 is lowest; higher numbers
// preempt lower ones.
type Priority int

// AllocOrigin records how a Task's storage was obtained: caller-supplied
// versus kernel-allocated. CreateTask validates a new task's origin
// against the owning Scheduler's Config before accepting it.
type AllocOrigin int

const (
	AllocDynamic AllocOrigin = iota
	AllocStatic
)

// taskState is the TCB's position in the scheduling state machine:
// exactly one of these at any time, tracked by which list (if any)
// StateItem currently sits on, plus this explicit tag for states no
// list membership alone could distinguish (Running vs Ready).
type taskState int

const (
	stateReady taskState = iota
	stateRunning
	stateBlocked
	stateSuspended
	stateDeleted
)

func (s taskState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateRunning:
		return "running"
	case stateBlocked:
		return "blocked"
	case stateSuspended:
		return "suspended"
	case stateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Task is the kernel's TCB (task control block). Its two list.Item
// fields are the intrusive links the rest of this package calls the
// state item and the event item: StateItem records which of the
// scheduler's own lists (ready, delayed, suspended, termination) the
// task is on; EventItem records membership on at most one event list
// (a queue's or event group's waiter list) at a time, independent of
// StateItem.
type Task struct {
	// Name is truncated to the owning Scheduler's Config.MaxTaskNameLen
	// at creation.
	Name string

	// Priority is the task's current priority; BasePriority is what it
	// reverts to when priority inheritance (not implemented by this
	// core — see DESIGN.md) would otherwise have elevated it. Kept
	// distinct from Priority so a future inheritance implementation has
	// somewhere to restore to.
	Priority     Priority
	BasePriority Priority

	// StateItem's Key is the task's sort key whenever it is on a
	// time-ordered list (the delayed lists): the tick at which it should
	// wake. On a ready list, Key is unused — InsertEnd is used there, not
	// InsertOrdered.
	StateItem *list.Item[*Task]

	// EventItem's Key is the event-list item value: on an ordered event
	// list this is a priority-derived sort key (so RemoveFromEventList
	// can pick the highest-priority waiter); on an unordered list it
	// carries an application-encoded payload instead.
	EventItem *list.Item[*Task]

	// MutexesHeld is reserved for a future priority-inheritance mutex
	// implementation; this core only ever reads it as zero.
	MutexesHeld int

	// CriticalNesting is reserved: ownership of the real critical-section
	// nesting count belongs to the Port (see port.Port.CriticalEnter),
	// not the TCB, under this module's concurrency model. The field is
	// kept for structural fidelity with the rest of the TCB layout.
	CriticalNesting int

	// DelayAborted is set by AbortDelay and cleared the next time the
	// task blocks (addCurrentToDelayed), so the woken task can
	// distinguish "my timeout expired" from "someone aborted my delay
	// early".
	DelayAborted bool

	// AllocOrigin records whether this Task's storage came from a
	// caller-supplied buffer (AllocStatic) or was allocated internally
	// (AllocDynamic); CreateTask validates this against the owning
	// Scheduler's Config before accepting a task.
	AllocOrigin AllocOrigin

	// Notify and NotifyState realize FreeRTOS's direct-to-task
	// notification array; sized by Config.NotifyArrayEntries. Not yet
	// driven by any operation in this package — reserved surface for
	// notify primitives layered on top, kept here because the TCB is
	// where the original keeps it.
	Notify      []uint32
	NotifyState []notifyState

	state taskState

	// entryToken is whatever the Port returned from InitStack; the
	// kernel never inspects it, only threads it back to the Port when
	// switching onto this task.
	entryToken any

	// delayWakeTick is a copy of the wake tick addCurrentToDelayed last
	// stored in StateItem.Key, kept for diagnostics after the item has
	// left the delayed list; the scheduler itself does not read it.
	delayWakeTick list.Tick
}

// notifyState mirrors the three states a single notification array slot
// can be in.
type notifyState int

const (
	notifyNotWaiting notifyState = iota
	notifyWaitingNotification
	notifyReceivedNotification
)

// newTask builds a detached Task ready for the ready list. priority is
// clamped by the caller, CreateTask, not here.
func newTask(name string, priority Priority, notifyEntries int, origin AllocOrigin, entryToken any) *Task {
	t := &Task{
		Name:         name,
		Priority:     priority,
		BasePriority: priority,
		AllocOrigin:  origin,
		Notify:       make([]uint32, notifyEntries),
		NotifyState:  make([]notifyState, notifyEntries),
		state:        stateReady,
		entryToken:   entryToken,
	}
	t.StateItem = list.NewItem(t)
	t.EventItem = list.NewItem(t)
	return t
}

// State reports the task's current scheduling state.
func (t *Task) State() string {
	return t.state.String()
}

// TaskParams configures CreateTask.
type TaskParams struct {
	Name        string
	Priority    Priority
	StackDepth  int
	Entry       port.EntryFunc
	Arg         any
	AllocOrigin AllocOrigin
}
