package rtoskernel_test

import (
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-rtoskernel/eventgroup"
	"github.com/joeycumines/go-rtoskernel/kernel"
	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
	"github.com/joeycumines/go-rtoskernel/port/simport"
	"github.com/joeycumines/go-rtoskernel/swtimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPriorityScheduling_HighRunsBeforeLow wires a real simport.Port to
// a kernel.Scheduler and checks that, of two tasks made ready before
// the scheduler starts, the higher-priority one runs to its first block
// point before the lower-priority one gets a look in — the ordering
// half of scenario S1.
func TestPriorityScheduling_HighRunsBeforeLow(t *testing.T) {
	prt := simport.New()
	sched, err := kernel.NewScheduler(prt, klog.NewNop(), kernel.WithMaxPriorities(3))
	require.NoError(t, err)
	prt.SetSelector(sched)

	var mu sync.Mutex
	var trace []string
	record := func(s string) {
		mu.Lock()
		trace = append(trace, s)
		mu.Unlock()
	}

	g := eventgroup.New(sched, nil)
	done := make(chan struct{})

	var lowTask *kernel.Task

	_, err = sched.CreateTask(kernel.TaskParams{
		Name:     "high",
		Priority: 2,
		Entry: func(any) {
			record("high-start")
			_, serr := g.SetBits(0x1)
			assert.NoError(t, serr)
			sched.DeleteTask(nil)
		},
	})
	require.NoError(t, err)

	lowTask, err = sched.CreateTask(kernel.TaskParams{
		Name:     "low",
		Priority: 1,
		Entry: func(any) {
			record("low-start")
			_, werr := g.WaitBits(lowTask, 0x1, false, false, list.MaxTick)
			assert.NoError(t, werr)
			record("low-woken")
			close(done)
			sched.DeleteTask(nil)
		},
	})
	require.NoError(t, err)

	go func() {
		_ = sched.StartScheduler()
	}()
	t.Cleanup(sched.EndScheduler)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the low-priority task to observe the event group bit")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high-start", "low-start", "low-woken"}, trace)
}

// TestSoftwareTimer_FiresThroughDaemonTask exercises the full path a
// real ISR-to-daemon handoff takes: a task posts StartFromISR, the
// command is queued rather than applied inline, and the timer daemon —
// itself just another task, scheduled like any other — eventually pops
// the command and fires the callback. The pended function call
// (ExecuteCallbackFromISR) travels through this same command queue; this
// test sends a timer start, not a pended function call.
func TestSoftwareTimer_FiresThroughDaemonTask(t *testing.T) {
	prt := simport.New()
	prt.TickInterval = time.Millisecond
	sched, err := kernel.NewScheduler(prt, klog.NewNop(),
		kernel.WithMaxPriorities(3),
		kernel.WithTickRateHz(1000),
		kernel.WithTimers(2, 4, 256),
	)
	require.NoError(t, err)
	prt.SetSelector(sched)

	mgr, err := swtimer.New(sched, nil)
	require.NoError(t, err)

	fired := make(chan struct{})
	tmr := mgr.NewTimer("probe", 5, false, func(*swtimer.Timer) { close(fired) }, nil)

	_, err = sched.CreateTask(kernel.TaskParams{
		Name:     "producer",
		Priority: 1,
		Entry: func(any) {
			require.NoError(t, mgr.StartFromISR(tmr))
			for {
				sched.Yield()
			}
		},
	})
	require.NoError(t, err)

	go func() {
		_ = sched.StartScheduler()
	}()
	t.Cleanup(sched.EndScheduler)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the software timer callback to run")
	}
}
