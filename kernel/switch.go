package kernel

// switchContext selects the next task to run. If the scheduler is
// suspended it only records that a switch is owed (yieldPending) and
// returns without changing currentTask — the actual switch happens once
// ResumeAll drains back to zero. Otherwise it scans ready lists from
// topReadyPriority downward (see DESIGN.md re: no priority-bitmap port
// intrinsic) and rotates the chosen list's round-robin cursor.
func (s *Scheduler) switchContext() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedulerSuspend > 0 {
		s.yieldPending = true
		return s.currentTask
	}
	s.yieldPending = false

	for p := s.topReadyPriority; p >= 0; p-- {
		rl := s.readyLists[p]
		if rl.Empty() {
			continue
		}
		next := rl.NextRoundRobin()
		if s.currentTask != nil && s.currentTask.state == stateRunning {
			s.currentTask.state = stateReady
		}
		next.state = stateRunning
		s.currentTask = next
		return next
	}

	// Invariant: the idle task is always ready, so this is unreachable
	// once StartScheduler has created it.
	return s.currentTask
}

// Yield requests an immediate context switch via the underlying port.
// Exported so packages built on top of the event-list protocol
// (eventgroup, swtimer) can force the same "if resume did not yield,
// yield anyway" pattern kernel's own Delay uses internally.
func (s *Scheduler) Yield() {
	s.prt.Yield()
}

// NextToken implements simport.Selector: it runs switchContext and
// returns the chosen task's port-level token. If no task is ready it
// returns the current task's token, or nil when there is no current
// task (which should not happen once the idle task exists).
func (s *Scheduler) NextToken() any {
	t := s.switchContext()
	if t == nil {
		return nil
	}
	return t.entryToken
}

// TickOnce implements simport.Selector.
func (s *Scheduler) TickOnce() bool { return s.Tick() }

// SuspendedNesting implements simport.Selector.
func (s *Scheduler) SuspendedNesting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedulerSuspend
}

// ReapTerminated frees (drops all references to) tasks on the
// termination list, decrementing tasksAwaiting. Intended to be called
// from the idle task's loop body, which frees a deleted task's
// resources once it is safe to do so.
func (s *Scheduler) ReapTerminated() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	freed := 0
	for it := s.terminationList.FrontItem(); it != nil; it = s.terminationList.FrontItem() {
		it.Remove()
		freed++
		s.tasksAwaiting--
	}
	return freed
}

// TasksAwaitingCleanup reports how many deleted tasks are still on the
// termination list.
func (s *Scheduler) TasksAwaitingCleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksAwaiting
}
