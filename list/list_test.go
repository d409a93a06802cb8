package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_InitEmpty(t *testing.T) {
	l := New[string]()
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Empty())
	assert.Equal(t, MaxTick, l.FrontKey())
	assert.Nil(t, l.FrontItem())
}

func TestList_InsertEnd_OrderPreserved(t *testing.T) {
	l := New[string]()
	a := NewItem("a")
	b := NewItem("b")
	c := NewItem("c")

	l.InsertEnd(a)
	l.InsertEnd(b)
	l.InsertEnd(c)

	require.Equal(t, 3, l.Len())
	assert.Equal(t, "a", l.Front())
	assert.Same(t, l, a.Container())

	got := []string{}
	for range 3 {
		got = append(got, l.NextRoundRobin())
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestList_InsertOrdered_TiesBreakTail(t *testing.T) {
	l := New[string]()
	a := &Item[string]{Key: 5, Owner: "a"}
	b := &Item[string]{Key: 5, Owner: "b"}
	c := &Item[string]{Key: 1, Owner: "c"}
	d := &Item[string]{Key: 9, Owner: "d"}

	l.InsertOrdered(a)
	l.InsertOrdered(b)
	l.InsertOrdered(c)
	l.InsertOrdered(d)

	require.Equal(t, 4, l.Len())
	order := []string{}
	for item := l.sentinel.next; item != &l.sentinel; item = item.next {
		order = append(order, item.Owner)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, order)
}

func TestList_InsertOrdered_MaxTickGoesToTail(t *testing.T) {
	l := New[string]()
	a := &Item[string]{Key: 5, Owner: "a"}
	forever := &Item[string]{Key: MaxTick, Owner: "forever"}

	l.InsertOrdered(forever)
	l.InsertOrdered(a)

	assert.Equal(t, "a", l.Front())
	order := []string{}
	for item := l.sentinel.next; item != &l.sentinel; item = item.next {
		order = append(order, item.Owner)
	}
	assert.Equal(t, []string{"a", "forever"}, order)
}

func TestItem_Remove_UpdatesSizeAndCursor(t *testing.T) {
	l := New[int]()
	items := make([]*Item[int], 4)
	for i := range items {
		items[i] = NewItem(i)
		l.InsertEnd(items[i])
	}

	// advance cursor onto items[1]
	assert.Equal(t, 0, l.NextRoundRobin())
	assert.Equal(t, 1, l.NextRoundRobin())

	size := items[1].Remove()
	assert.Equal(t, 3, size)
	assert.Equal(t, 3, l.Len())
	assert.Nil(t, items[1].Container())

	// cursor should have rewound to items[0], so the next rotor step
	// lands on items[2] (items[1] is gone).
	assert.Equal(t, 2, l.NextRoundRobin())
}

func TestItem_Remove_Detached_Panics(t *testing.T) {
	it := NewItem("x")
	assert.Panics(t, func() { it.Remove() })
}

func TestList_NextRoundRobin_WrapsAroundSentinel(t *testing.T) {
	l := New[int]()
	a, b := NewItem(1), NewItem(2)
	l.InsertEnd(a)
	l.InsertEnd(b)

	seen := []int{}
	for range 5 {
		seen = append(seen, l.NextRoundRobin())
	}
	assert.Equal(t, []int{1, 2, 1, 2, 1}, seen)
}

func TestList_Reachability_MatchesSize(t *testing.T) {
	l := New[int]()
	n := 50
	for i := range n {
		it := &Item[int]{Key: Tick(n - i), Owner: i}
		l.InsertOrdered(it)
	}
	count := 0
	for item := l.sentinel.next; item != &l.sentinel; item = item.next {
		count++
		require.LessOrEqual(t, count, l.Len()+1, "traversal exceeded size+1 steps")
	}
	assert.Equal(t, l.Len(), count)
}
