// Package pqueue implements a binary min-heap whose elements carry a cookie
// recording their position in the heap.
//
// The cookie gives O(log n) removal of an arbitrary element and O(log n)
// re-heapification after the caller changed an element's key in place,
// where a plain heap would need an O(n) search first.
//
// Misuse (pushing an element that is already queued, popping an empty queue,
// removing a non-member) is a programming error and panics: continuing with
// a corrupted heap would silently break deterministic ordering.
package pqueue

import (
	"container/heap"
	"fmt"
)

// Cookie is embedded in (or owned by) every queued element.
// The zero value means "not queued".
type Cookie struct {
	owner any
	pos   int
}

// InQueue reports whether the element is a member of some queue.
func (c *Cookie) InQueue() bool {
	return c.owner != nil
}

// Item is implemented by queue elements.
type Item interface {
	Cookie() *Cookie
}

// Queue is a min-heap ordered by less. less must be a strict weak ordering
// and must not depend on element identity.
type Queue[T Item] struct {
	h items[T]
}

// New creates an empty queue ordered by less.
func New[T Item](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{h: items[T]{less: less}}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return len(q.h.elems)
}

// Empty reports whether the queue has no elements.
func (q *Queue[T]) Empty() bool {
	return len(q.h.elems) == 0
}

// Contains reports whether it is a member of this queue.
func (q *Queue[T]) Contains(it T) bool {
	return it.Cookie().owner == q
}

// Push inserts it. it must not already be queued anywhere.
func (q *Queue[T]) Push(it T) {
	c := it.Cookie()
	if c.owner != nil {
		panic(fmt.Sprintf("pqueue: push of element already queued at position %d", c.pos))
	}
	c.owner = q
	heap.Push(&q.h, it)
}

// Top returns the minimum element without removing it. Panics if empty.
func (q *Queue[T]) Top() T {
	if len(q.h.elems) == 0 {
		panic("pqueue: top of empty queue")
	}
	return q.h.elems[0]
}

// Pop removes and returns the minimum element. Panics if empty.
func (q *Queue[T]) Pop() T {
	if len(q.h.elems) == 0 {
		panic("pqueue: pop of empty queue")
	}
	it := heap.Pop(&q.h).(T)
	*it.Cookie() = Cookie{}
	return it
}

// Remove removes it from the queue. Panics if it is not a member.
func (q *Queue[T]) Remove(it T) {
	c := q.member(it, "remove")
	heap.Remove(&q.h, c.pos)
	*c = Cookie{}
}

// DecreaseKey restores heap order after its key was lowered in place.
func (q *Queue[T]) DecreaseKey(it T) {
	c := q.member(it, "decrease key")
	q.h.up(c.pos)
}

// IncreaseKey restores heap order after its key was raised in place.
func (q *Queue[T]) IncreaseKey(it T) {
	c := q.member(it, "increase key")
	q.h.down(c.pos)
}

// Fix restores heap order after its key changed in either direction.
func (q *Queue[T]) Fix(it T) {
	c := q.member(it, "fix")
	heap.Fix(&q.h, c.pos)
}

// Drain pops every element in order and passes it to fn.
func (q *Queue[T]) Drain(fn func(T)) {
	for !q.Empty() {
		fn(q.Pop())
	}
}

func (q *Queue[T]) member(it T, op string) *Cookie {
	c := it.Cookie()
	if c.owner != q {
		panic("pqueue: " + op + " of element that is not a member")
	}
	return c
}

// items adapts the element slice to container/heap and keeps cookies current.
type items[T Item] struct {
	elems []T
	less  func(a, b T) bool
}

func (h *items[T]) Len() int           { return len(h.elems) }
func (h *items[T]) Less(i, j int) bool { return h.less(h.elems[i], h.elems[j]) }

func (h *items[T]) Swap(i, j int) {
	h.elems[i], h.elems[j] = h.elems[j], h.elems[i]
	h.elems[i].Cookie().pos = i
	h.elems[j].Cookie().pos = j
}

func (h *items[T]) Push(x any) {
	it := x.(T)
	it.Cookie().pos = len(h.elems)
	h.elems = append(h.elems, it)
}

func (h *items[T]) Pop() any {
	n := len(h.elems) - 1
	it := h.elems[n]
	var zero T
	h.elems[n] = zero
	h.elems = h.elems[:n]
	return it
}

// up and down mirror container/heap's unexported helpers; DecreaseKey and
// IncreaseKey know the direction and skip the probe heap.Fix performs.
func (h *items[T]) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h *items[T]) down(i int) {
	n := h.Len()
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
}
