package kernel

import "github.com/joeycumines/go-rtoskernel/list"

// addCurrentToDelayed moves task off whatever state list it is on and
// onto the appropriate delayed (or suspended, for an indefinite block)
// list. Must be called with the scheduler suspended.
func (s *Scheduler) addCurrentToDelayed(task *Task, ticks list.Tick, canBlockIndefinitely bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.DelayAborted = false
	if task.StateItem.Container() != nil {
		wasTop := task.Priority == s.topReadyPriority
		task.StateItem.Remove()
		if wasTop {
			s.recomputeTopReadyPriority()
		}
	}

	if ticks == list.MaxTick && canBlockIndefinitely {
		task.state = stateSuspended
		s.suspendedList.InsertEnd(task.StateItem)
		return
	}

	wake := s.tickCount + ticks
	task.StateItem.Key = wake
	task.delayWakeTick = wake
	task.state = stateBlocked

	if wake >= s.tickCount {
		s.delayedList.InsertOrdered(task.StateItem)
		if wake < s.nextTaskUnblockAt {
			s.nextTaskUnblockAt = wake
		}
	} else {
		s.overflowDelayedList.InsertOrdered(task.StateItem)
	}
}

// Delay blocks task for the given number of ticks. ticks==0 yields
// without blocking.
func (s *Scheduler) Delay(task *Task, ticks list.Tick) {
	if ticks == 0 {
		s.prt.Yield()
		return
	}
	s.SuspendAll()
	s.addCurrentToDelayed(task, ticks, false)
	yielded := s.ResumeAll()
	if !yielded {
		s.prt.Yield()
	}
}

// DelayUntil blocks task until prevWake+increment, accounting for tick
// wraparound, and reports whether it actually blocked (false means the
// wake time had already passed). *prevWake is updated to the new wake
// time unconditionally.
func (s *Scheduler) DelayUntil(task *Task, prevWake *list.Tick, increment list.Tick) (blocked bool) {
	wake := *prevWake + increment
	now := s.TickCount()

	// Strictly-in-the-future test on the circular tick axis: wake is in
	// the future relative to now iff wake-now, interpreted as a signed
	// delta, is positive and not itself an overflow artifact — mirrored
	// by comparing whether wake overflowed past now by less than half
	// the tick space.
	shouldBlock := (wake > now && wake-now <= list.MaxTick/2) ||
		(wake < now && now-wake > list.MaxTick/2)

	*prevWake = wake
	if !shouldBlock {
		return false
	}

	s.SuspendAll()
	s.addCurrentToDelayed(task, wake-now, false)
	yielded := s.ResumeAll()
	if !yielded {
		s.prt.Yield()
	}
	return true
}

// AbortDelay forcibly wakes task if it is currently Blocked (on a
// delayed list, or on the suspended list because it was indefinitely
// blocked on an event). Sets task.DelayAborted.
func (s *Scheduler) AbortDelay(task *Task) {
	s.SuspendAll()
	s.mu.Lock()

	blocked := task.state == stateBlocked ||
		(task.state == stateSuspended && task.EventItem.Container() != nil)

	if blocked {
		if task.StateItem.Container() != nil {
			task.StateItem.Remove()
		}
		if task.EventItem.Container() != nil {
			task.EventItem.Remove()
		}
		task.DelayAborted = true
		task.state = stateReady
		s.readyLists[task.Priority].InsertEnd(task.StateItem)
		if task.Priority > s.topReadyPriority {
			s.topReadyPriority = task.Priority
		}
		if s.currentTask == nil || task.Priority > s.currentTask.Priority {
			s.yieldPending = true
		}
	}
	s.mu.Unlock()
	s.ResumeAll()
}

// SuspendTask removes task from scheduling entirely (onto the suspended
// list), independent of any timeout. If task is nil, the calling task
// (CurrentTask) suspends itself.
func (s *Scheduler) SuspendTask(task *Task) {
	s.prt.CriticalEnter()
	if task == nil {
		task = s.currentTask
	}
	wasTop := task.Priority == s.topReadyPriority

	if task.StateItem.Container() != nil {
		task.StateItem.Remove()
	}
	if task.EventItem.Container() != nil {
		task.EventItem.Remove()
	}
	for i := range task.NotifyState {
		if task.NotifyState[i] == notifyWaitingNotification {
			task.NotifyState[i] = notifyNotWaiting
		}
	}
	task.state = stateSuspended
	s.suspendedList.InsertEnd(task.StateItem)

	if wasTop {
		s.recomputeTopReadyPriority()
	}

	isRunning := task == s.currentTask
	schedulerRunning := s.schedulerRunning
	s.prt.CriticalExit()

	if isRunning && schedulerRunning {
		s.prt.Yield()
	} else if isRunning && !schedulerRunning {
		s.mu.Lock()
		s.currentTask = nil
		s.mu.Unlock()
	}
}

// ResumeTask moves task from the suspended list back to ready, provided
// it is genuinely there (its event item not already on pendingReadyList,
// and no notification slot in the waiting state).
func (s *Scheduler) ResumeTask(task *Task) {
	s.prt.CriticalEnter()
	onSuspended := task.state == stateSuspended &&
		task.StateItem.Container() == s.suspendedList &&
		task.EventItem.Container() != s.pendingReadyList
	for _, ns := range task.NotifyState {
		if ns == notifyWaitingNotification {
			onSuspended = false
		}
	}
	if onSuspended {
		task.StateItem.Remove()
		task.state = stateReady
		s.readyLists[task.Priority].InsertEnd(task.StateItem)
		if task.Priority > s.topReadyPriority {
			s.topReadyPriority = task.Priority
		}
	}
	shouldYield := onSuspended && (s.currentTask == nil || task.Priority > s.currentTask.Priority)
	s.prt.CriticalExit()

	if shouldYield {
		s.prt.Yield()
	}
}

// ResumeFromISR is the interrupt-context counterpart of ResumeTask: if
// the scheduler is not suspended it readies task directly; otherwise it
// defers the readying by attaching task's event item to
// pendingReadyList, to be drained by ResumeAll. Returns true iff task
// outranks the currently running task.
func (s *Scheduler) ResumeFromISR(task *Task) (shouldYield bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	suspended := s.schedulerSuspend > 0
	outranks := s.currentTask == nil || task.Priority > s.currentTask.Priority

	if !suspended {
		if task.StateItem.Container() != nil {
			task.StateItem.Remove()
		}
		task.state = stateReady
		s.readyLists[task.Priority].InsertEnd(task.StateItem)
		if task.Priority > s.topReadyPriority {
			s.topReadyPriority = task.Priority
		}
	} else {
		if task.EventItem.Container() == nil {
			s.pendingReadyList.InsertEnd(task.EventItem)
		}
	}

	if outranks {
		s.yieldPending = true
	}
	return outranks
}
