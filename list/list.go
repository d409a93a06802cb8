// Package list implements the intrusive, sentinel-terminated ordered list
// that the scheduler, event groups, and software timers all build on. A
// [List] never allocates on behalf of its items — ownership of the backing
// storage is the caller's; the list only links and unlinks nodes that are
// already embedded in some other structure (a task, a timer).
package list

import "math"

// Tick is the kernel's monotonic time unit, and also the sort key type
// used by every list in this package. It is fixed at 32 bits; see
// SPEC_FULL.md's Open Questions for why a variable-width tick was not
// implemented.
type Tick uint32

// MaxTick is the largest representable Tick, used both as "block forever"
// and as the sentinel's sort key so ordered insertion always terminates
// against it.
const MaxTick Tick = math.MaxUint32

// Item is one node of an intrusive list. T is the type of the item's
// owner (e.g. *kernel.Task or *swtimer.Timer) — the list never looks
// inside T, it only remembers it so callers can recover the owning
// object from a bare *Item[T].
type Item[T any] struct {
	// Key orders the item within whichever List it currently belongs to.
	Key Tick

	// Owner is the object this item is embedded in. It is set once, at
	// construction, and never mutated by the list.
	Owner T

	next, prev *Item[T]
	container  *List[T]
}

// NewItem returns a detached item owned by owner.
func NewItem[T any](owner T) *Item[T] {
	return &Item[T]{Owner: owner}
}

// Container returns the List this item currently belongs to, or nil if
// the item is detached.
func (it *Item[T]) Container() *List[T] {
	return it.container
}

// List is a doubly-linked, sentinel-terminated ordered list. The zero
// value is not usable; call [New] or [List.Init].
type List[T any] struct {
	sentinel Item[T]
	size     int
	cursor   *Item[T]
}

// New returns an initialised, empty list.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.Init()
	return l
}

// Init (re)initialises l to the empty state. The sentinel links to
// itself and carries [MaxTick] as its sort key, so ordered insertion
// always terminates against it.
func (l *List[T]) Init() {
	l.sentinel.next = &l.sentinel
	l.sentinel.prev = &l.sentinel
	l.sentinel.Key = MaxTick
	l.sentinel.container = nil
	l.size = 0
	l.cursor = &l.sentinel
}

// Len returns the number of items currently in the list (excluding the
// sentinel).
func (l *List[T]) Len() int {
	return l.size
}

// Empty reports whether the list holds no items.
func (l *List[T]) Empty() bool {
	return l.size == 0
}

// Front returns the owner of the head (lowest-key) item, or the zero
// value of T if the list is empty.
func (l *List[T]) Front() T {
	var zero T
	if l.size == 0 {
		return zero
	}
	return l.sentinel.next.Owner
}

// FrontItem returns the head item itself, or nil if the list is empty.
func (l *List[T]) FrontItem() *Item[T] {
	if l.size == 0 {
		return nil
	}
	return l.sentinel.next
}

// FrontKey returns the sort key of the head item, or [MaxTick] if the
// list is empty. This is the cache FreeRTOS calls xNextTaskUnblockTime.
func (l *List[T]) FrontKey() Tick {
	return l.sentinel.next.Key
}

// InsertEnd inserts item at the logical tail, in O(1), without regard to
// its Key. This is used for ready lists (equal-priority round robin) and
// for unordered event lists. item must be detached.
func (l *List[T]) InsertEnd(item *Item[T]) {
	index := &l.sentinel
	item.next = index
	item.prev = index.prev
	index.prev.next = item
	index.prev = item
	item.container = l
	l.size++
}

// InsertOrdered inserts item in ascending Key order, walking forward from
// the sentinel while the next node's Key is <= item.Key, so ties break
// toward the tail. That tie-breaking is what gives equal-priority ready
// tasks round-robin fairness: the newest arrival at a given priority
// always lands after existing ones.
//
// If item.Key == MaxTick it is inserted directly before the sentinel
// (i.e. at the tail) rather than walked there one comparison at a time,
// matching FreeRTOS's own special case for the "block forever" value.
// item must be detached. O(n) in the list's length.
func (l *List[T]) InsertOrdered(item *Item[T]) {
	if item.Key == MaxTick {
		l.InsertEnd(item)
		return
	}

	iter := &l.sentinel
	for iter.next.Key <= item.Key {
		iter = iter.next
	}

	item.next = iter.next
	item.next.prev = item
	item.prev = iter
	iter.next = item
	item.container = l
	l.size++
}

// Remove unlinks item from whatever list it is on (item.container) and
// returns that list's new size. If the list's round-robin cursor pointed
// at item, the cursor is stepped back one so the next
// [List.NextRoundRobin] call doesn't skip a node. Removing an already
// detached item is a programming error and panics, mirroring the
// original's reliance on the item genuinely being on the list it claims.
func (it *Item[T]) Remove() int {
	l := it.container
	if l == nil {
		panic("list: remove of a detached item")
	}

	it.next.prev = it.prev
	it.prev.next = it.next

	if l.cursor == it {
		l.cursor = it.prev
	}

	it.container = nil
	it.next = nil
	it.prev = nil
	l.size--
	return l.size
}

// NextRoundRobin advances the list's internal cursor one step (wrapping
// past the sentinel) and returns the owner it now points to. This is the
// round-robin rotor the scheduler uses to pick the next task to run among
// those at the same priority; repeated calls visit every item in turn.
//
// Calling this on an empty list returns the zero value of T — callers
// must not call it without first checking [List.Empty].
func (l *List[T]) NextRoundRobin() T {
	l.cursor = l.cursor.next
	if l.cursor == &l.sentinel {
		l.cursor = l.cursor.next
	}
	return l.cursor.Owner
}

// ItemAfter returns the item following it in list order, or nil if it
// is the last item. Used by callers that must walk a list while
// removing items they've already visited — a "save next before
// removal" pattern that is otherwise unsafe with a plain forward walk.
// it must currently belong to l.
func (l *List[T]) ItemAfter(it *Item[T]) *Item[T] {
	next := it.next
	if next == &l.sentinel {
		return nil
	}
	return next
}
