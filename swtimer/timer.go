// Package swtimer implements software timers dispatched by a daemon
// task: a command queue accepts start/stop/change-period/reset/delete
// requests (plus a generic deferred-callback command used to move ISR
// work into task context), and the daemon applies them against two
// active-timer lists that swap on tick wraparound.
package swtimer

import (
	"sync"

	"github.com/joeycumines/go-rtoskernel/kernel"
	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
)

// Callback is a timer's expiry handler.
type Callback func(t *Timer)

// Timer is one software timer.
type Timer struct {
	Name       string
	Period     list.Tick
	AutoReload bool
	ID         any
	callback   Callback

	active bool
	item   *list.Item[*Timer]
}

func newTimer(name string, period list.Tick, autoReload bool, cb Callback, id any) *Timer {
	t := &Timer{Name: name, Period: period, AutoReload: autoReload, callback: cb, ID: id}
	t.item = list.NewItem(t)
	return t
}

// Active reports whether the timer is currently running (present on an
// active list).
func (t *Timer) Active() bool { return t.active }

// commandKind tags a Manager command. Values below commandISRThreshold
// are task-originated; at or above it, ISR-originated — the distinction
// exists purely so the same queue can be sent to safely from both
// contexts. This Go port has no real ISR context, but keeps the
// distinction so *FromISR methods are visibly a separate,
// non-blocking-send code path, matching a typical embedded API shape.
type commandKind int

const commandISRThreshold commandKind = 100

const (
	cmdStart commandKind = iota
	cmdStop
	cmdChangePeriod
	cmdReset
	cmdDelete
	cmdExecuteCallback
)

const (
	cmdStartFromISR           = cmdStart + commandISRThreshold
	cmdStopFromISR            = cmdStop + commandISRThreshold
	cmdChangePeriodFromISR    = cmdChangePeriod + commandISRThreshold
	cmdResetFromISR           = cmdReset + commandISRThreshold
	cmdExecuteCallbackFromISR = cmdExecuteCallback + commandISRThreshold
)

type command struct {
	kind       commandKind
	timer      *Timer
	now        list.Tick
	newPeriod  list.Tick
	fn         func(arg1, arg2 any)
	arg1, arg2 any
}

func (c command) isISR() bool { return c.kind >= commandISRThreshold }

// Manager owns the two active-timer lists and the daemon task that
// drains the command queue.
type Manager struct {
	sched *kernel.Scheduler
	log   *klog.Logger
	task  *kernel.Task

	mu          sync.Mutex
	current     *list.List[*Timer]
	overflow    *list.List[*Timer]
	lastSeenNow list.Tick

	commands chan command
}
