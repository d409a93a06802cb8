package kernel

import "github.com/joeycumines/go-rtoskernel/list"

// eventItemInUseBit marks an event item's sort key as holding an
// application-encoded value (set by PlaceOnUnorderedEventList) rather
// than the priority-derived key ordinary event lists use. Kept in the
// same bit position FreeRTOS uses — the top bit of the tick-width key.
const eventItemInUseBit list.Tick = 1 << 31

// eventKeyForPriority returns the event-item sort key a task at
// priority p should carry while on an ordinary (priority-ordered) event
// list: higher priority sorts first, so the key is MAX_PRIORITIES-p.
func (s *Scheduler) eventKeyForPriority(p Priority) list.Tick {
	return list.Tick(s.cfg.MaxPriorities) - list.Tick(p)
}

// PlaceOnEventList inserts task's event item into evList in priority
// order (highest priority first) and then blocks task for ticks via
// addCurrentToDelayed. Must be called with the scheduler suspended and
// the owning primitive's own critical section held.
func (s *Scheduler) PlaceOnEventList(evList *list.List[*Task], task *Task, ticks list.Tick) {
	s.mu.Lock()
	task.EventItem.Key = s.eventKeyForPriority(task.Priority)
	s.mu.Unlock()
	evList.InsertOrdered(task.EventItem)
	s.addCurrentToDelayed(task, ticks, true)
}

// PlaceOnUnorderedEventList is PlaceOnEventList's counterpart for event
// lists that sort by an application-defined value (event group wait
// masks): task's event item is appended at the tail with its key set to
// encodedValue with eventItemInUseBit set, so the scheduler never
// clobbers it on a priority change.
func (s *Scheduler) PlaceOnUnorderedEventList(evList *list.List[*Task], task *Task, encodedValue list.Tick, ticks list.Tick) {
	task.EventItem.Key = encodedValue | eventItemInUseBit
	evList.InsertEnd(task.EventItem)
	s.addCurrentToDelayed(task, ticks, true)
}

// RemoveFromEventList takes the highest-priority waiter off evList
// (its head, by construction) and makes it ready — or pending-ready if
// the scheduler is currently suspended. Returns true iff the unblocked
// task outranks the running task, and records that in yieldPending.
func (s *Scheduler) RemoveFromEventList(evList *list.List[*Task]) (shouldYield bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := evList.FrontItem()
	if head == nil {
		return false
	}
	task := head.Owner
	head.Remove()

	if s.schedulerSuspend > 0 {
		// task.StateItem is left on whatever delayed/suspended list it's
		// on; ResumeAll's drain detaches it from there once resumed.
		s.pendingReadyList.InsertEnd(task.EventItem)
		outranks := s.currentTask == nil || task.Priority > s.currentTask.Priority
		if outranks {
			s.yieldPending = true
		}
		return outranks
	}

	if task.StateItem.Container() != nil {
		task.StateItem.Remove()
	}
	task.state = stateReady
	s.readyLists[task.Priority].InsertEnd(task.StateItem)
	if task.Priority > s.topReadyPriority {
		s.topReadyPriority = task.Priority
	}

	outranks := s.currentTask == nil || task.Priority > s.currentTask.Priority
	if outranks {
		s.yieldPending = true
	}
	return outranks
}

// RemoveFromUnorderedEventList writes newEncodedValue (with
// eventItemInUseBit set) into item, detaches it from its event list and
// detaches the owning task's state item, and makes the task ready,
// yielding if it outranks the running task.
func (s *Scheduler) RemoveFromUnorderedEventList(item *list.Item[*Task], newEncodedValue list.Tick) (shouldYield bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := item.Owner
	item.Key = newEncodedValue | eventItemInUseBit
	if item.Container() != nil {
		item.Remove()
	}
	if task.StateItem.Container() != nil {
		task.StateItem.Remove()
	}
	task.state = stateReady
	s.readyLists[task.Priority].InsertEnd(task.StateItem)
	if task.Priority > s.topReadyPriority {
		s.topReadyPriority = task.Priority
	}

	outranks := s.currentTask == nil || task.Priority > s.currentTask.Priority
	if outranks {
		s.yieldPending = true
	}
	return outranks
}

// ResetEventItemValue restores task's event item key to the
// priority-derived value used by ordinary (ordered) event lists, so it
// can be reused the next time task blocks on one. Called by a woken
// task after it was unblocked via RemoveFromUnorderedEventList.
func (s *Scheduler) ResetEventItemValue(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.EventItem.Key = s.eventKeyForPriority(task.Priority)
}

// EventItemValue returns the raw value most recently written to task's
// event item, with eventItemInUseBit masked off — used by callers that
// decode an application value (event group bits) out of it after a
// wake via RemoveFromUnorderedEventList.
func EventItemValue(task *Task) list.Tick {
	return task.EventItem.Key &^ eventItemInUseBit
}
