package kernel

import (
	"testing"

	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is a minimal port.Port stand-in for unit-testing Scheduler
// logic directly, without the goroutine baton machinery simport adds —
// CriticalEnter/Exit are no-ops (tests drive everything from a single
// goroutine), Yield and InitStack record that they were called, and
// StartScheduler/EndScheduler do nothing.
type fakePort struct {
	yields     int
	nextToken  int
	stackDepth []int
}

func (f *fakePort) CriticalEnter() {}
func (f *fakePort) CriticalExit()  {}
func (f *fakePort) Yield()         { f.yields++ }
func (f *fakePort) InitStack(stackHint int, entry port.EntryFunc, arg any) any {
	f.stackDepth = append(f.stackDepth, stackHint)
	f.nextToken++
	return f.nextToken
}
func (f *fakePort) StartScheduler() error { return nil }
func (f *fakePort) EndScheduler()         {}
func (f *fakePort) TickCountAtomic() bool { return true }
func (f *fakePort) ReadTick() list.Tick   { return 0 }

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *fakePort) {
	t.Helper()
	fp := &fakePort{}
	s, err := NewScheduler(fp, klog.NewNop(), opts...)
	require.NoError(t, err)
	return s, fp
}

func TestCreateTask_AddsToReadyListAtPriority(t *testing.T) {
	s, _ := newTestScheduler(t, WithMaxPriorities(4))
	task, err := s.CreateTask(TaskParams{Name: "worker", Priority: 2, Entry: func(any) {}})
	require.NoError(t, err)

	assert.Equal(t, Priority(2), task.Priority)
	assert.Same(t, s.readyLists[2], task.StateItem.Container())
	assert.Equal(t, Priority(2), s.topReadyPriority)
}

func TestCreateTask_ClampsTooHighPriority(t *testing.T) {
	s, _ := newTestScheduler(t, WithMaxPriorities(4))
	task, err := s.CreateTask(TaskParams{Name: "x", Priority: 9, Entry: func(any) {}})
	require.NoError(t, err)
	assert.Equal(t, Priority(3), task.Priority)
}

func TestCreateTask_RejectsUnsupportedAllocOrigin(t *testing.T) {
	s, _ := newTestScheduler(t, WithAllocation(false, true))
	_, err := s.CreateTask(TaskParams{Name: "x", Priority: 0, Entry: func(any) {}, AllocOrigin: AllocStatic})
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestDeleteTask_MovesToTerminationListWhileRunning(t *testing.T) {
	s, fp := newTestScheduler(t)
	task, err := s.CreateTask(TaskParams{Name: "x", Priority: 0, Entry: func(any) {}})
	require.NoError(t, err)
	s.schedulerRunning = true
	s.currentTask = task
	task.state = stateRunning

	s.DeleteTask(task)

	assert.Equal(t, stateDeleted, task.state)
	assert.Same(t, s.terminationList, task.StateItem.Container())
	assert.Equal(t, 1, s.TasksAwaitingCleanup())
	assert.Equal(t, 1, fp.yields, "deleting the running task must force a yield")
}

// TestTick_WakesDelayedTask realizes property 1/property 3 and scenario
// S1's building block: a task blocked with a finite timeout is woken
// exactly when tick_count reaches its wake time, and
// next_task_unblock_time tracks the delayed list's head.
func TestTick_WakesDelayedTask(t *testing.T) {
	s, _ := newTestScheduler(t, WithMaxPriorities(4))
	task, err := s.CreateTask(TaskParams{Name: "sleeper", Priority: 1, Entry: func(any) {}})
	require.NoError(t, err)

	s.SuspendAll()
	s.addCurrentToDelayed(task, 5, false)
	s.ResumeAll()

	require.Equal(t, stateBlocked, task.state)
	assert.Equal(t, list.Tick(5), s.nextTaskUnblockAt)

	for i := 0; i < 4; i++ {
		yield := s.Tick()
		assert.False(t, yield, "must not wake before its deadline")
	}
	yield := s.Tick()
	assert.True(t, yield, "waking a task should request a yield")
	assert.Equal(t, stateReady, task.state)
	assert.Same(t, s.readyLists[1], task.StateItem.Container())
	assert.Equal(t, list.MaxTick, s.nextTaskUnblockAt)
}

func TestSuspendAll_DefersTickAndPendingReady(t *testing.T) {
	s, fp := newTestScheduler(t, WithMaxPriorities(4))
	low, err := s.CreateTask(TaskParams{Name: "low", Priority: 0, Entry: func(any) {}})
	require.NoError(t, err)
	s.currentTask = low
	low.state = stateRunning
	low.StateItem.Remove()

	high, err := s.CreateTask(TaskParams{Name: "high", Priority: 3, Entry: func(any) {}})
	require.NoError(t, err)
	s.SuspendAll()
	s.addCurrentToDelayed(high, list.MaxTick, true)
	s.PendTick()

	shouldYield := s.ResumeFromISR(high)
	assert.True(t, shouldYield)
	assert.Same(t, s.suspendedList, high.StateItem.Container(), "state item untouched while suspended")
	assert.Same(t, s.pendingReadyList, high.EventItem.Container())
	assert.Equal(t, list.Tick(0), s.TickCount(), "the tick is pended, not applied, while suspended")

	yielded := s.ResumeAll()
	assert.True(t, yielded)
	assert.Equal(t, list.Tick(1), s.TickCount(), "the pended tick is applied on resume")
	assert.Equal(t, stateReady, high.state)
	assert.Same(t, s.readyLists[3], high.StateItem.Container())
	assert.Equal(t, 1, fp.yields)
}

func TestAbortDelay_WakesBlockedTaskEarly(t *testing.T) {
	s, _ := newTestScheduler(t, WithMaxPriorities(2))
	task, err := s.CreateTask(TaskParams{Name: "x", Priority: 0, Entry: func(any) {}})
	require.NoError(t, err)

	s.SuspendAll()
	s.addCurrentToDelayed(task, 100, false)
	s.ResumeAll()

	s.AbortDelay(task)
	assert.True(t, task.DelayAborted)
	assert.Equal(t, stateReady, task.state)
	assert.Same(t, s.readyLists[0], task.StateItem.Container())
}

func TestSetPriority_RepositionsReadyTaskAndYieldsIfRaised(t *testing.T) {
	s, fp := newTestScheduler(t, WithMaxPriorities(4))
	task, err := s.CreateTask(TaskParams{Name: "x", Priority: 1, Entry: func(any) {}})
	require.NoError(t, err)
	task.state = stateReady

	require.NoError(t, s.SetPriority(task, 3))
	assert.Equal(t, Priority(3), task.Priority)
	assert.Same(t, s.readyLists[3], task.StateItem.Container())
	assert.Equal(t, Priority(3), s.topReadyPriority)
	assert.Equal(t, 1, fp.yields)
}
