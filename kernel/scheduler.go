// Package kernel implements the tick-driven, preemptive priority
// scheduler core: task lifecycle, the delayed/suspended/termination
// lists, scheduler suspension's deferred-work protocol, and the
// event-list protocol that eventgroup and swtimer build on.
package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port"
)

// Scheduler holds all scheduling state for one simulated system: ready
// lists, the delayed/suspended/termination lists, and the
// currently-running task. Unlike a typical embedded kernel's single
// global instance, callers hold their own *Scheduler, so a process can
// run more than one simulated system side by side. Every exported
// method that mutates scheduler state takes the calling task explicitly
// rather than reading a package-global current-task pointer.
type Scheduler struct {
	cfg *Config
	prt port.Port
	log *klog.Logger

	mu sync.Mutex

	readyLists          []*list.List[*Task]
	delayedList         *list.List[*Task]
	overflowDelayedList *list.List[*Task]
	pendingReadyList    *list.List[*Task]
	suspendedList       *list.List[*Task]
	terminationList     *list.List[*Task]

	tickCount     list.Tick
	numOverflows  uint32
	tasksAwaiting int

	currentTask       *Task
	topReadyPriority  Priority
	schedulerRunning  bool
	schedulerSuspend  int
	pendedTicks       list.Tick
	yieldPending      bool
	nextTaskUnblockAt list.Tick
}

// NewScheduler builds a Scheduler over prt using the options in opts.
// logger may be nil, in which case a no-op klog.Logger is used.
func NewScheduler(prt port.Port, logger *klog.Logger, opts ...Option) (*Scheduler, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	if prt == nil {
		return nil, WrapError("NewScheduler", ErrInvalidArgument)
	}
	if logger == nil {
		logger = klog.NewNop()
	}

	s := &Scheduler{
		cfg:                 cfg,
		prt:                 prt,
		log:                 logger,
		delayedList:         list.New[*Task](),
		overflowDelayedList: list.New[*Task](),
		pendingReadyList:    list.New[*Task](),
		suspendedList:       list.New[*Task](),
		terminationList:     list.New[*Task](),
		nextTaskUnblockAt:   list.MaxTick,
	}
	s.readyLists = make([]*list.List[*Task], cfg.MaxPriorities)
	for i := range s.readyLists {
		s.readyLists[i] = list.New[*Task]()
	}
	return s, nil
}

// Config returns the resolved configuration this Scheduler was built
// with.
func (s *Scheduler) Config() *Config { return s.cfg }

// CurrentTask returns the task currently selected to run, or nil before
// the scheduler has started.
func (s *Scheduler) CurrentTask() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTask
}

// TickCount returns the scheduler's own tick counter. Independent of
// the port's clock; advanced only by Tick.
func (s *Scheduler) TickCount() list.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCount
}

// CreateTask allocates a new Task per params and adds it to the ready
// list at params.Priority, after validating AllocOrigin support and the
// priority (a negative priority is rejected; one at or above
// MaxPriorities is clamped to MaxPriorities-1) and truncating the name;
// it is placed on the ready list under critical section.
func (s *Scheduler) CreateTask(params TaskParams) (*Task, error) {
	if params.Priority < 0 {
		return nil, WrapError("CreateTask", ErrInvalidArgument)
	}
	if int(params.Priority) >= s.cfg.MaxPriorities {
		params.Priority = Priority(s.cfg.MaxPriorities - 1)
	}
	if params.Entry == nil {
		return nil, WrapError("CreateTask", ErrInvalidArgument)
	}
	switch params.AllocOrigin {
	case AllocStatic:
		if !s.cfg.SupportStaticAllocation {
			return nil, WrapError("CreateTask", ErrOutOfMemory)
		}
	default:
		if !s.cfg.SupportDynamicAllocation {
			return nil, WrapError("CreateTask", ErrOutOfMemory)
		}
	}

	name := params.Name
	if len(name) > s.cfg.MaxTaskNameLen {
		name = name[:s.cfg.MaxTaskNameLen]
	}
	stackDepth := params.StackDepth
	if stackDepth <= 0 {
		stackDepth = s.cfg.MinStackSize
	}

	token := s.prt.InitStack(stackDepth, params.Entry, params.Arg)
	t := newTask(name, params.Priority, s.cfg.NotifyArrayEntries, params.AllocOrigin, token)

	s.prt.CriticalEnter()
	s.readyLists[t.Priority].InsertEnd(t.StateItem)
	if t.Priority > s.topReadyPriority {
		s.topReadyPriority = t.Priority
	}
	s.prt.CriticalExit()

	s.log.Debug(context.Background(), "task created", "name", t.Name, "priority", fmt.Sprint(t.Priority))
	return t, nil
}

// DeleteTask removes task from scheduling. If task is nil, the calling
// task (Scheduler.CurrentTask()) deletes itself. If the task is the
// running one, or the scheduler is already running, it is moved to the
// termination list for the idle task to reap later; otherwise it is
// dropped immediately. Deleting the current task forces a yield once
// the critical section is released.
func (s *Scheduler) DeleteTask(task *Task) {
	s.prt.CriticalEnter()
	if task == nil {
		task = s.currentTask
	}
	wasReadyHint := task.Priority == s.topReadyPriority

	if task.StateItem.Container() != nil {
		task.StateItem.Remove()
	}
	if task.EventItem.Container() != nil {
		task.EventItem.Remove()
	}

	deferCleanup := task == s.currentTask || s.schedulerRunning
	if deferCleanup {
		task.state = stateDeleted
		s.terminationList.InsertEnd(task.StateItem)
		s.tasksAwaiting++
	}

	if wasReadyHint {
		s.recomputeTopReadyPriority()
	}
	selfDelete := task == s.currentTask
	s.prt.CriticalExit()

	s.log.Debug(context.Background(), "task deleted", "name", task.Name)
	if selfDelete {
		s.prt.Yield()
	}
}

// recomputeTopReadyPriority scans the ready lists from the top down for
// the highest non-empty one. Must be called under critical section.
// This is a plain software scan rather than a port-provided
// priority-bitmap intrinsic, since there is no hardware register to
// call out to under the goroutine-backed port — see DESIGN.md.
func (s *Scheduler) recomputeTopReadyPriority() {
	for p := Priority(len(s.readyLists) - 1); p >= 0; p-- {
		if !s.readyLists[p].Empty() {
			s.topReadyPriority = p
			return
		}
	}
	s.topReadyPriority = 0
}

// SetPriority changes task's priority, repositioning it on its ready
// list if it is currently ready, and yielding if the change could make
// a higher-priority task runnable.
func (s *Scheduler) SetPriority(task *Task, priority Priority) error {
	if priority < 0 || int(priority) >= s.cfg.MaxPriorities {
		return WrapError("SetPriority", ErrInvalidArgument)
	}
	s.prt.CriticalEnter()
	onReady := task.state == stateReady && task.StateItem.Container() == s.readyLists[task.Priority]
	old := task.Priority
	if onReady {
		task.StateItem.Remove()
	}
	task.Priority = priority
	task.BasePriority = priority
	if onReady {
		s.readyLists[priority].InsertEnd(task.StateItem)
		if priority > s.topReadyPriority {
			s.topReadyPriority = priority
		} else if old == s.topReadyPriority {
			s.recomputeTopReadyPriority()
		}
	}
	s.prt.CriticalExit()

	if priority > old {
		s.prt.Yield()
	}
	return nil
}

// StartScheduler runs switchContext once to select the first task, then
// hands control to the port, which begins calling back into Tick and
// dispatches tasks through NextToken. It does not return until the
// port's EndScheduler is invoked.
func (s *Scheduler) StartScheduler() error {
	s.mu.Lock()
	if s.schedulerRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.schedulerRunning = true
	s.mu.Unlock()

	if s.cfg.IdleEntry != nil && s.readyLists[0].Empty() {
		if _, err := s.CreateTask(TaskParams{
			Name:        "idle",
			Priority:    0,
			StackDepth:  s.cfg.MinStackSize,
			Entry:       s.idleLoop,
			AllocOrigin: AllocDynamic,
		}); err != nil {
			s.mu.Lock()
			s.schedulerRunning = false
			s.mu.Unlock()
			return err
		}
	}

	s.switchContext()
	return s.prt.StartScheduler()
}

// idleLoop is the default idle task body when Config.IdleEntry is set:
// reap terminated tasks, then run the user-supplied idle body, then
// yield (or stay put if IdleShouldYield is false and nothing else is
// ready).
func (s *Scheduler) idleLoop(arg any) {
	for {
		s.ReapTerminated()
		s.cfg.IdleEntry(arg)
		s.mu.Lock()
		othersReady := s.topReadyPriority > 0 || s.readyLists[0].Len() > 1
		s.mu.Unlock()
		if s.cfg.IdleShouldYield || othersReady {
			s.prt.Yield()
		}
	}
}

// EndScheduler stops the port's tick source and marks the scheduler not
// running.
func (s *Scheduler) EndScheduler() {
	s.mu.Lock()
	s.schedulerRunning = false
	s.mu.Unlock()
	s.prt.EndScheduler()
}
