// Package eventgroup implements bitmask rendezvous on top of kernel's
// event-list protocol: a Group is a shared set of bits any task can
// wait for (any-of or all-of, optionally clearing on exit) or set.
package eventgroup

import (
	"context"

	"github.com/joeycumines/go-rtoskernel/kernel"
	"github.com/joeycumines/go-rtoskernel/klog"
	"github.com/joeycumines/go-rtoskernel/list"
)

// Bits is the event group's bit vector. Width matches list.Tick; the
// top 8 bits are reserved control flags.
type Bits list.Tick

const (
	controlShift = 24

	// ClearOnExit requests that, after unblocking by a bit match, the
	// matched bits are cleared.
	ClearOnExit Bits = 1 << (controlShift + 0)
	// WaitForAll requests an all-of match instead of the default any-of.
	WaitForAll Bits = 1 << (controlShift + 1)
	// unblockedDueToBitSet is the response flag eventgroup writes into
	// a waiter's event item so it can distinguish a real match from a
	// timeout on wakeup.
	unblockedDueToBitSet Bits = 1 << (controlShift + 2)

	// controlMask reserves the full top byte, not just the three flags
	// above: the event item's Key also carries the kernel's own
	// eventItemInUseBit (the top bit of that byte), and waitMask
	// extraction in setBitsLocked must strip that too or an all-of
	// waiter's mask can never match g.bits.
	controlMask Bits = 0xff << controlShift
)

// Group is a single event group: bits plus the list of tasks currently
// blocked on it (an unordered event list).
type Group struct {
	sched   *kernel.Scheduler
	log     *klog.Logger
	bits    Bits
	waiters *list.List[*kernel.Task]
}

// New creates an empty Group (all bits clear) bound to sched.
func New(sched *kernel.Scheduler, logger *klog.Logger) *Group {
	if logger == nil {
		logger = klog.NewNop()
	}
	return &Group{
		sched:   sched,
		log:     logger,
		waiters: list.New[*kernel.Task](),
	}
}

func match(bits, waitMask Bits, waitAll bool) bool {
	if waitAll {
		return bits&waitMask == waitMask
	}
	return bits&waitMask != 0
}

// WaitBits blocks the calling task until waitMask is satisfied (any-of,
// or all-of if waitAll), or ticks elapse. waitMask must not set any
// control bit and must be non-zero.
func (g *Group) WaitBits(task *kernel.Task, waitMask Bits, clearOnExit, waitAll bool, ticks list.Tick) (Bits, error) {
	if waitMask == 0 || waitMask&controlMask != 0 {
		return 0, kernel.WrapError("WaitBits", kernel.ErrInvalidArgument)
	}

	g.sched.SuspendAll()
	current := g.bits
	if match(current, waitMask, waitAll) {
		if clearOnExit {
			g.bits &^= waitMask
		}
		g.sched.ResumeAll()
		return current, nil
	}

	if ticks == 0 {
		g.sched.ResumeAll()
		return current, &kernel.TimeoutError{Message: "eventgroup: WaitBits timed out", Snapshot: current}
	}

	encoded := waitMask
	if clearOnExit {
		encoded |= ClearOnExit
	}
	if waitAll {
		encoded |= WaitForAll
	}
	g.sched.PlaceOnUnorderedEventList(g.waiters, task, list.Tick(encoded), ticks)
	yielded := g.sched.ResumeAll()
	if !yielded {
		g.sched.Yield()
	}

	observed := Bits(kernel.EventItemValue(task))
	g.sched.ResetEventItemValue(task)

	if observed&unblockedDueToBitSet != 0 {
		return observed &^ controlMask, nil
	}

	g.sched.SuspendAll()
	current = g.bits
	var err error
	if match(current, waitMask, waitAll) {
		if clearOnExit {
			g.bits &^= waitMask
		}
	} else {
		err = &kernel.TimeoutError{Message: "eventgroup: WaitBits timed out", Snapshot: current}
	}
	g.sched.ResumeAll()
	return current, err
}

// SetBits ORs setMask into the group's bits, wakes every waiter whose
// condition is now satisfied, and returns the resulting bits. setMask
// must not set any control bit.
func (g *Group) SetBits(setMask Bits) (Bits, error) {
	if setMask&controlMask != 0 {
		return 0, kernel.WrapError("SetBits", kernel.ErrInvalidArgument)
	}
	g.sched.SuspendAll()
	defer g.sched.ResumeAll()
	result := g.setBitsLocked(setMask)
	g.log.Debug(context.Background(), "event group bits set")
	return result, nil
}

// ClearBits ANDs clearMask's complement into the group's bits and
// returns the bits as they were before clearing. clearMask must not set
// any control bit. Like SetBits, this runs under a scheduler suspend
// (the Group has no critical section of its own); clearing never wakes
// a waiter.
func (g *Group) ClearBits(clearMask Bits) (Bits, error) {
	if clearMask&controlMask != 0 {
		return 0, kernel.WrapError("ClearBits", kernel.ErrInvalidArgument)
	}
	g.sched.SuspendAll()
	defer g.sched.ResumeAll()

	prior := g.bits
	g.bits &^= clearMask
	return prior, nil
}

// Sync implements rendezvous: OR setMask into the bits, and if the
// resulting bits already satisfy waitMask, clear waitMask and return
// immediately; otherwise block (respecting ticks) until every other
// participant has arrived.
func (g *Group) Sync(task *kernel.Task, setMask, waitMask Bits, ticks list.Tick) (Bits, error) {
	if waitMask == 0 || waitMask&controlMask != 0 || setMask&controlMask != 0 {
		return 0, kernel.WrapError("Sync", kernel.ErrInvalidArgument)
	}

	g.sched.SuspendAll()
	original := g.bits
	afterSet := g.setBitsLocked(setMask)

	// Match against original|setMask, not afterSet: setBitsLocked may
	// have already woken and cleared other ClearOnExit waiters whose
	// match happened to complete this same rendezvous, which would
	// otherwise make the completing caller's own bits look cleared
	// before it gets a chance to see the match it just caused.
	if (original|setMask)&waitMask == waitMask {
		g.bits &^= waitMask
		result := original | setMask
		g.sched.ResumeAll()
		return result, nil
	}

	if ticks == 0 {
		g.sched.ResumeAll()
		return afterSet, &kernel.TimeoutError{Message: "eventgroup: Sync timed out", Snapshot: afterSet}
	}

	encoded := waitMask | ClearOnExit | WaitForAll
	g.sched.PlaceOnUnorderedEventList(g.waiters, task, list.Tick(encoded), ticks)
	yielded := g.sched.ResumeAll()
	if !yielded {
		g.sched.Yield()
	}

	observed := Bits(kernel.EventItemValue(task))
	g.sched.ResetEventItemValue(task)
	if observed&unblockedDueToBitSet != 0 {
		return observed &^ controlMask, nil
	}

	g.sched.SuspendAll()
	current := g.bits
	g.sched.ResumeAll()
	return current, &kernel.TimeoutError{Message: "eventgroup: Sync timed out", Snapshot: current}
}

// setBitsLocked is SetBits's waiter-wake loop, reused by Sync, which
// must run it while already holding the same scheduler-suspend
// obligation rather than nesting a second SuspendAll/ResumeAll pair.
func (g *Group) setBitsLocked(setMask Bits) Bits {
	g.bits |= setMask
	var pendingClear Bits

	for it := g.waiters.FrontItem(); it != nil; {
		next := g.waiters.ItemAfter(it)
		raw := Bits(it.Key)
		waitMask := raw &^ controlMask
		waitAll := raw&WaitForAll != 0
		clearOnExit := raw&ClearOnExit != 0

		if match(g.bits, waitMask, waitAll) {
			if clearOnExit {
				pendingClear |= waitMask
			}
			payload := list.Tick(g.bits | unblockedDueToBitSet)
			g.sched.RemoveFromUnorderedEventList(it, payload)
		}

		it = next
	}

	if pendingClear != 0 {
		g.bits &^= pendingClear
	}
	return g.bits
}

// Delete wakes every waiter with a zero-bits payload (so each observes
// unblockedDueToBitSet with no bits set, signaling the group was
// deleted out from under it). The Group's bits are left as they were.
func (g *Group) Delete() {
	g.sched.SuspendAll()
	for it := g.waiters.FrontItem(); it != nil; it = g.waiters.FrontItem() {
		g.sched.RemoveFromUnorderedEventList(it, list.Tick(unblockedDueToBitSet))
	}
	g.sched.ResumeAll()
	g.log.Debug(context.Background(), "event group deleted")
}

// CurrentBits returns the group's current bits, under scheduler
// suspension so the read can't race a concurrent SetBits/ClearBits.
func (g *Group) CurrentBits() Bits {
	g.sched.SuspendAll()
	defer g.sched.ResumeAll()
	return g.bits
}
