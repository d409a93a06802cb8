package swtimer

import (
	"context"

	"github.com/joeycumines/go-rtoskernel/kernel"
	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
)

// New builds a Manager and, if sched.Config().UseTimers is true,
// creates its daemon task at Config.TimerTaskPriority with a command
// queue of Config.TimerQueueLength.
func New(sched *kernel.Scheduler, logger *klog.Logger) (*Manager, error) {
	if logger == nil {
		logger = klog.NewNop()
	}
	cfg := sched.Config()
	m := &Manager{
		sched:    sched,
		log:      logger,
		current:  list.New[*Timer](),
		overflow: list.New[*Timer](),
		commands: make(chan command, max(1, cfg.TimerQueueLength)),
	}

	if cfg.UseTimers {
		task, err := sched.CreateTask(kernel.TaskParams{
			Name:       "tmrsvc",
			Priority:   kernel.Priority(cfg.TimerTaskPriority),
			StackDepth: cfg.TimerStackDepth,
			Entry:      func(arg any) { m.daemonLoop() },
		})
		if err != nil {
			return nil, kernel.WrapError("swtimer.New", err)
		}
		m.task = task
	}

	return m, nil
}

// NewTimer creates a detached, inactive Timer. Call Start (or Reset) to
// arm it.
func (m *Manager) NewTimer(name string, period list.Tick, autoReload bool, cb Callback, id any) *Timer {
	return newTimer(name, period, autoReload, cb, id)
}

// send enqueues cmd and, if the daemon task exists, aborts whatever
// delay it is currently sleeping on so it wakes up and processes the
// command immediately rather than waiting out the next timer's expiry.
func (m *Manager) send(cmd command) error {
	select {
	case m.commands <- cmd:
	default:
		return kernel.WrapError("swtimer: send", &kernel.QueueFullError{})
	}
	if m.task != nil {
		m.sched.AbortDelay(m.task)
	}
	return nil
}

// Start arms t, computing its expiry as now+Period. now is read from the
// scheduler when the command is sent, not when the daemon applies it,
// and travels in the command, so the same command shape serves both
// Start and the from-ISR variant.
func (m *Manager) Start(t *Timer) error {
	return m.send(command{kind: cmdStart, timer: t, now: m.sched.TickCount()})
}

// StartFromISR is Start's non-blocking, ISR-safe counterpart.
func (m *Manager) StartFromISR(t *Timer) error {
	return m.send(command{kind: cmdStartFromISR, timer: t, now: m.sched.TickCount()})
}

// Stop removes t from whichever active list it's on.
func (m *Manager) Stop(t *Timer) error {
	return m.send(command{kind: cmdStop, timer: t})
}

// StopFromISR is Stop's ISR-safe counterpart.
func (m *Manager) StopFromISR(t *Timer) error {
	return m.send(command{kind: cmdStopFromISR, timer: t})
}

// ChangePeriod updates t's period; if t is currently active its expiry
// is recomputed from now and it is reinserted.
func (m *Manager) ChangePeriod(t *Timer, newPeriod list.Tick) error {
	return m.send(command{kind: cmdChangePeriod, timer: t, newPeriod: newPeriod, now: m.sched.TickCount()})
}

// ChangePeriodFromISR is ChangePeriod's ISR-safe counterpart.
func (m *Manager) ChangePeriodFromISR(t *Timer, newPeriod list.Tick) error {
	return m.send(command{kind: cmdChangePeriodFromISR, timer: t, newPeriod: newPeriod, now: m.sched.TickCount()})
}

// Reset is Start's semantics applied to an already-active timer:
// recompute expiry from now and reinsert.
func (m *Manager) Reset(t *Timer) error {
	return m.send(command{kind: cmdReset, timer: t, now: m.sched.TickCount()})
}

// ResetFromISR is Reset's ISR-safe counterpart.
func (m *Manager) ResetFromISR(t *Timer) error {
	return m.send(command{kind: cmdResetFromISR, timer: t, now: m.sched.TickCount()})
}

// Delete removes t and marks it permanently inactive; it must not be
// reused after this call.
func (m *Manager) Delete(t *Timer) error {
	return m.send(command{kind: cmdDelete, timer: t})
}

// ExecuteCallback is the "pended function call" mechanism: it schedules
// fn(arg1, arg2) to run on the daemon task rather than in the caller's
// context, which is how an ISR defers work into task context.
func (m *Manager) ExecuteCallback(fn func(arg1, arg2 any), arg1, arg2 any) error {
	return m.send(command{kind: cmdExecuteCallback, fn: fn, arg1: arg1, arg2: arg2})
}

// ExecuteCallbackFromISR is ExecuteCallback's ISR-safe counterpart.
func (m *Manager) ExecuteCallbackFromISR(fn func(arg1, arg2 any), arg1, arg2 any) error {
	return m.send(command{kind: cmdExecuteCallbackFromISR, fn: fn, arg1: arg1, arg2: arg2})
}

// daemonLoop is the timer daemon task's body, run at
// Config.TimerTaskPriority: drain any pending command, fire whatever is
// already due, and otherwise block on the next expiry via the same
// Delay every task uses — never a real channel/timer wait, which would
// hold the task ready (or worse, block its goroutine outside the
// scheduler entirely) and starve anything at a lower priority. send
// cuts the delay short with AbortDelay whenever a command arrives.
func (m *Manager) daemonLoop() {
	for {
		select {
		case cmd := <-m.commands:
			m.dispatch(cmd)
			continue
		default:
		}

		if m.dueNow() {
			m.processExpired()
			continue
		}

		m.sched.Delay(m.task, m.ticksUntilDue())
	}
}

// dueNow reports whether the head of the current active list has
// reached its expiry, compared against the scheduler's own tick count.
func (m *Manager) dueNow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.FrontKey() <= m.sched.TickCount()
}

// ticksUntilDue returns how many ticks remain until the next timer
// expiry, or list.MaxTick if no timer is active.
func (m *Manager) ticksUntilDue() list.Tick {
	m.mu.Lock()
	head := m.current.FrontKey()
	m.mu.Unlock()

	if head == list.MaxTick {
		return list.MaxTick
	}
	now := m.sched.TickCount()
	if head <= now {
		return 1
	}
	return head - now
}

// processExpired pops and fires every timer at the head of the current
// list whose expiry has passed, reinserting auto-reload timers at
// expiry+period (into the overflow list if that wraps past now).
func (m *Manager) processExpired() {
	m.mu.Lock()
	now := m.sched.TickCount()
	m.detectWrapLocked(now)

	var fired []*Timer
	for m.current.FrontKey() <= now && !m.current.Empty() {
		head := m.current.FrontItem()
		t := head.Owner
		expiry := head.Key
		head.Remove()
		t.active = false
		fired = append(fired, t)

		if t.AutoReload {
			newExpiry := expiry + t.Period
			t.active = true
			if newExpiry >= expiry {
				t.item.Key = newExpiry
				m.current.InsertOrdered(t.item)
			} else {
				t.item.Key = newExpiry
				m.overflow.InsertOrdered(t.item)
			}
		}
	}
	m.mu.Unlock()

	for _, t := range fired {
		if t.callback != nil {
			t.callback(t)
		}
	}
}

// detectWrapLocked swaps current/overflow when now has wrapped relative
// to the last-seen tick. Must be called with m.mu held.
func (m *Manager) detectWrapLocked(now list.Tick) {
	if now < m.lastSeenNow {
		m.current, m.overflow = m.overflow, m.current
	}
	m.lastSeenNow = now
}

// dispatch applies a single command against the active-timer lists.
func (m *Manager) dispatch(cmd command) {
	switch cmd.kind {
	case cmdStart, cmdStartFromISR, cmdReset, cmdResetFromISR:
		m.startLocked(cmd.timer, cmd.now)
	case cmdStop, cmdStopFromISR:
		m.stopLocked(cmd.timer)
	case cmdChangePeriod, cmdChangePeriodFromISR:
		m.mu.Lock()
		cmd.timer.Period = cmd.newPeriod
		wasActive := cmd.timer.active
		m.mu.Unlock()
		if wasActive {
			m.startLocked(cmd.timer, cmd.now)
		}
	case cmdDelete:
		m.stopLocked(cmd.timer)
	case cmdExecuteCallback, cmdExecuteCallbackFromISR:
		if cmd.fn != nil {
			cmd.fn(cmd.arg1, cmd.arg2)
		}
	}
	m.log.Debug(context.Background(), "timer command dispatched")
}

func (m *Manager) startLocked(t *Timer, now list.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.active {
		t.item.Remove()
	}
	expiry := now + t.Period
	t.item.Key = expiry
	t.active = true
	if expiry >= now {
		m.current.InsertOrdered(t.item)
	} else {
		m.overflow.InsertOrdered(t.item)
	}
}

func (m *Manager) stopLocked(t *Timer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.active {
		t.item.Remove()
		t.active = false
	}
}
