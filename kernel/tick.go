package kernel

import "github.com/joeycumines/go-rtoskernel/list"

// Tick advances the scheduler's tick counter by one and reports whether
// a context switch is now required. Callers (a port's tick ISR
// simulation) must invoke this only when the scheduler is not
// suspended; while suspended, call PendTick instead.
func (s *Scheduler) Tick() (yieldRequired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

func (s *Scheduler) tickLocked() (yieldRequired bool) {
	s.tickCount++
	if s.tickCount == 0 {
		s.delayedList, s.overflowDelayedList = s.overflowDelayedList, s.delayedList
		s.numOverflows++
		s.nextTaskUnblockAt = s.delayedList.FrontKey()
	}

	for s.tickCount >= s.nextTaskUnblockAt {
		if s.delayedList.Empty() {
			s.nextTaskUnblockAt = list.MaxTick
			break
		}
		head := s.delayedList.Front()
		if head.StateItem.Key > s.tickCount {
			s.nextTaskUnblockAt = head.StateItem.Key
			break
		}
		head.StateItem.Remove()
		if head.EventItem.Container() != nil {
			head.EventItem.Remove()
		}
		head.state = stateReady
		s.readyLists[head.Priority].InsertEnd(head.StateItem)
		if head.Priority > s.topReadyPriority {
			s.topReadyPriority = head.Priority
		}
		if s.cfg.UsePreemption && (s.currentTask == nil || head.Priority > s.currentTask.Priority) {
			yieldRequired = true
		}
		s.nextTaskUnblockAt = s.delayedList.FrontKey()
	}

	if s.cfg.UseTimeSlicing && s.currentTask != nil && s.readyLists[s.currentTask.Priority].Len() > 1 {
		yieldRequired = true
	}

	if s.yieldPending {
		s.yieldPending = false
		yieldRequired = true
	}

	return yieldRequired
}

// PendTick is called instead of Tick while the scheduler is suspended:
// it records that a tick occurred without running the advancement
// algorithm.
func (s *Scheduler) PendTick() {
	s.mu.Lock()
	s.pendedTicks++
	s.mu.Unlock()
}

// SuspendAll increments the nestable scheduler-suspend counter. Must not
// be called from an ISR-equivalent context (the port's Tick callback).
func (s *Scheduler) SuspendAll() {
	s.prt.CriticalEnter()
	s.schedulerSuspend++
	s.prt.CriticalExit()
}

// ResumeAll decrements the suspend counter; on the transition to zero it
// drains pendingReadyList, applies any ticks that occurred while
// suspended, and performs a yield if one became due. Returns true iff a
// yield was performed here.
func (s *Scheduler) ResumeAll() (alreadyYielded bool) {
	s.prt.CriticalEnter()
	s.schedulerSuspend--
	if s.schedulerSuspend < 0 {
		s.schedulerSuspend = 0
	}
	transitioned := s.schedulerSuspend == 0
	var doYield bool
	if transitioned {
		s.mu.Lock()

		for it := s.pendingReadyList.FrontItem(); it != nil; it = s.pendingReadyList.FrontItem() {
			task := it.Owner
			it.Remove() // it is task.EventItem; see ResumeFromISR
			if task.StateItem.Container() != nil {
				task.StateItem.Remove()
			}
			task.state = stateReady
			s.readyLists[task.Priority].InsertEnd(task.StateItem)
			if task.Priority > s.topReadyPriority {
				s.topReadyPriority = task.Priority
			}
			if s.currentTask == nil || task.Priority > s.currentTask.Priority {
				s.yieldPending = true
			}
		}

		for s.pendedTicks > 0 {
			s.pendedTicks--
			if s.tickLocked() {
				s.yieldPending = true
			}
		}

		if s.yieldPending {
			s.yieldPending = false
			doYield = true
		}
		s.mu.Unlock()
	}
	s.prt.CriticalExit()

	if doYield {
		s.prt.Yield()
	}
	return doYield
}
