package swtimer

import (
	"testing"

	"github.com/joeycumines/go-rtoskernel/kernel"
	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPort struct{}

func (stubPort) CriticalEnter()                         {}
func (stubPort) CriticalExit()                          {}
func (stubPort) Yield()                                 {}
func (stubPort) InitStack(int, port.EntryFunc, any) any { return new(int) }
func (stubPort) StartScheduler() error                  { return nil }
func (stubPort) EndScheduler()                          {}
func (stubPort) TickCountAtomic() bool                  { return true }
func (stubPort) ReadTick() list.Tick                    { return 0 }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	sched, err := kernel.NewScheduler(stubPort{}, klog.NewNop(), kernel.WithMaxPriorities(4))
	require.NoError(t, err)
	m, err := New(sched, nil)
	require.NoError(t, err)
	return m
}

func TestStartLocked_InsertsIntoCurrentList(t *testing.T) {
	m := newTestManager(t)
	fired := false
	tmr := m.NewTimer("t1", 10, false, func(*Timer) { fired = true }, nil)

	m.startLocked(tmr, 5)
	assert.True(t, tmr.Active())
	assert.Equal(t, list.Tick(15), tmr.item.Key)
	assert.Equal(t, 1, m.current.Len())
	assert.False(t, fired)
}

func TestStartLocked_OverflowsToOverflowListOnWrap(t *testing.T) {
	m := newTestManager(t)
	tmr := m.NewTimer("t1", 10, false, nil, nil)

	// now close to max, period pushes expiry past the wrap point.
	m.startLocked(tmr, list.MaxTick-2)
	assert.Equal(t, 0, m.current.Len())
	assert.Equal(t, 1, m.overflow.Len())
}

func TestStopLocked_RemovesAndMarksInactive(t *testing.T) {
	m := newTestManager(t)
	tmr := m.NewTimer("t1", 10, false, nil, nil)
	m.startLocked(tmr, 0)
	require.True(t, tmr.Active())

	m.stopLocked(tmr)
	assert.False(t, tmr.Active())
	assert.Equal(t, 0, m.current.Len())
}

func TestStopLocked_OnInactiveTimer_IsNoop(t *testing.T) {
	m := newTestManager(t)
	tmr := m.NewTimer("t1", 10, false, nil, nil)
	assert.NotPanics(t, func() { m.stopLocked(tmr) })
	assert.False(t, tmr.Active())
}

func TestProcessExpired_FiresAndReinsertsAutoReload(t *testing.T) {
	m := newTestManager(t)
	var fireCount int
	tmr := m.NewTimer("auto", 5, true, func(*Timer) { fireCount++ }, nil)
	m.startLocked(tmr, 0) // expiry = 5

	for range 5 {
		m.sched.Tick()
	}
	m.mu.Lock()
	m.lastSeenNow = 5
	m.mu.Unlock()

	m.processExpired()

	assert.Equal(t, 1, fireCount)
	assert.True(t, tmr.Active(), "auto-reload timer should be reinserted")
	assert.Equal(t, 1, m.current.Len())
}

func TestProcessExpired_OneShotGoesDormant(t *testing.T) {
	m := newTestManager(t)
	var fireCount int
	tmr := m.NewTimer("once", 5, false, func(*Timer) { fireCount++ }, nil)
	m.startLocked(tmr, 0)

	for range 5 {
		m.sched.Tick()
	}
	m.mu.Lock()
	m.lastSeenNow = 5
	m.mu.Unlock()

	m.processExpired()

	assert.Equal(t, 1, fireCount)
	assert.False(t, tmr.Active())
	assert.Equal(t, 0, m.current.Len())
}

func TestDispatch_ChangePeriod_ReinsertsIfActive(t *testing.T) {
	m := newTestManager(t)
	tmr := m.NewTimer("t1", 10, false, nil, nil)
	m.startLocked(tmr, 0)

	m.dispatch(command{kind: cmdChangePeriod, timer: tmr, newPeriod: 20, now: 1})
	assert.Equal(t, list.Tick(20), tmr.Period)
	assert.Equal(t, list.Tick(21), tmr.item.Key)
}

func TestDispatch_ExecuteCallback_InvokesFn(t *testing.T) {
	m := newTestManager(t)
	var gotA, gotB any
	m.dispatch(command{
		kind: cmdExecuteCallback,
		fn:   func(a, b any) { gotA, gotB = a, b },
		arg1: "x", arg2: 42,
	})
	assert.Equal(t, "x", gotA)
	assert.Equal(t, 42, gotB)
}

func TestSend_QueueFull_ReturnsQueueFullError(t *testing.T) {
	m := newTestManager(t)
	m.commands = make(chan command, 1)
	require.NoError(t, m.send(command{kind: cmdStop}))

	err := m.send(command{kind: cmdStop})
	var qfe *kernel.QueueFullError
	assert.ErrorAs(t, err, &qfe)
}
