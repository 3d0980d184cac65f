package queueing

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a caller passes a malformed value, such
// as a nil comparator or a non-positive capacity.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidState is returned when an operation's precondition has been
// broken by earlier mutation, such as extracting from an empty queue.
var ErrInvalidState = errors.New("invalid state")

const (
	defaultCapacity = 11

	// The backing array grows by a fixed number of slots rather than by a
	// factor, which bounds the unused tail.
	growIncrement = 4

	trimThreshold = 0.9
)

// Comparator orders two items. It returns a negative number when a should
// leave the queue before b, a positive number when b should leave first, and
// zero when they have the same priority.
type Comparator[T any] func(a, b T) int

type node[T any] struct {
	item T
	seq  uint64
}

// A PriorityQueue is an array-backed binary heap. The item that compares
// lowest is always at the front. Items with equal priority leave the queue in
// the order they were inserted.
//
// PriorityQueue is not safe for concurrent use.
type PriorityQueue[T any] struct {
	cmp     Comparator[T]
	heap    []node[T]
	n       int
	nextSeq uint64
	version uint64
}

// New creates an empty PriorityQueue with the default capacity.
func New[T any](cmp Comparator[T]) (*PriorityQueue[T], error) {
	return NewWithCapacity(defaultCapacity, cmp)
}

// NewWithCapacity creates an empty PriorityQueue that can hold capacity items
// before it needs to grow. A capacity of zero or less is rejected.
func NewWithCapacity[T any](
	capacity int,
	cmp Comparator[T],
) (*PriorityQueue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf(
			"queueing: capacity must be positive, got %d: %w",
			capacity, ErrInvalidArgument)
	}

	if cmp == nil {
		return nil, fmt.Errorf(
			"queueing: comparator is nil: %w", ErrInvalidArgument)
	}

	q := &PriorityQueue[T]{
		cmp:  cmp,
		heap: make([]node[T], capacity),
	}

	return q, nil
}

// NewFromSlice creates a PriorityQueue holding all the items. Items that
// compare equal keep their slice order. A nil slice is rejected; an empty one
// is not.
func NewFromSlice[T any](
	items []T,
	cmp Comparator[T],
) (*PriorityQueue[T], error) {
	if items == nil {
		return nil, fmt.Errorf(
			"queueing: source slice is nil: %w", ErrInvalidArgument)
	}

	capacity := len(items)
	if capacity < defaultCapacity {
		capacity = defaultCapacity
	}

	q, err := NewWithCapacity(capacity, cmp)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		q.Insert(item)
	}

	return q, nil
}

// Count returns the number of items in the queue.
func (q *PriorityQueue[T]) Count() int {
	return q.n
}

// Capacity returns the number of items the queue can hold before the backing
// array grows.
func (q *PriorityQueue[T]) Capacity() int {
	return len(q.heap)
}

// Insert adds an item to the queue.
func (q *PriorityQueue[T]) Insert(item T) {
	if q.n == len(q.heap) {
		q.setCapacity(q.n + growIncrement)
	}

	q.heap[q.n] = node[T]{item: item, seq: q.nextSeq}
	q.nextSeq++
	q.n++
	q.swim(q.n - 1)
	q.version++
}

// ExtractMin removes and returns the item at the front of the queue.
func (q *PriorityQueue[T]) ExtractMin() (T, error) {
	if q.n == 0 {
		var zero T
		return zero, fmt.Errorf(
			"queueing: extract from empty queue: %w", ErrInvalidState)
	}

	item := q.heap[0].item

	q.n--
	q.heap[0] = q.heap[q.n]
	q.heap[q.n] = node[T]{}
	q.sink(0)
	q.version++

	return item, nil
}

// PeekMin returns the item at the front of the queue without removing it.
func (q *PriorityQueue[T]) PeekMin() (T, error) {
	if q.n == 0 {
		var zero T
		return zero, fmt.Errorf(
			"queueing: peek into empty queue: %w", ErrInvalidState)
	}

	return q.heap[0].item, nil
}

// TrimToFit shrinks the backing array to the number of items, unless the
// queue is already more than 90% full.
func (q *PriorityQueue[T]) TrimToFit() {
	if float64(q.n) > trimThreshold*float64(len(q.heap)) {
		return
	}

	q.setCapacity(q.n)
}

// Iterator returns an iterator that visits a snapshot of the queue in
// priority order. Inserting into or extracting from the queue invalidates the
// iterator.
func (q *PriorityQueue[T]) Iterator() *Iterator[T] {
	heap := make([]node[T], q.n)
	copy(heap, q.heap[:q.n])

	return &Iterator[T]{
		source:  q,
		version: q.version,
		copy: &PriorityQueue[T]{
			cmp:  q.cmp,
			heap: heap,
			n:    q.n,
		},
	}
}

func (q *PriorityQueue[T]) setCapacity(capacity int) {
	heap := make([]node[T], capacity)
	copy(heap, q.heap[:q.n])
	q.heap = heap
}

// before tells if the i-th node must leave the queue before the j-th node.
func (q *PriorityQueue[T]) before(i, j int) bool {
	c := q.cmp(q.heap[i].item, q.heap[j].item)
	if c != 0 {
		return c < 0
	}

	return q.heap[i].seq < q.heap[j].seq
}

func (q *PriorityQueue[T]) swim(k int) {
	for k > 0 {
		parent := (k - 1) / 2
		if !q.before(k, parent) {
			break
		}

		q.heap[k], q.heap[parent] = q.heap[parent], q.heap[k]
		k = parent
	}
}

func (q *PriorityQueue[T]) sink(k int) {
	for {
		j := 2*k + 1
		if j >= q.n {
			return
		}

		if j+1 < q.n && q.before(j+1, j) {
			j++
		}

		if !q.before(j, k) {
			return
		}

		q.heap[k], q.heap[j] = q.heap[j], q.heap[k]
		k = j
	}
}

// An Iterator walks a PriorityQueue snapshot in priority order.
//
//	it := q.Iterator()
//	for it.Next() {
//	    use(it.Item())
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type Iterator[T any] struct {
	source  *PriorityQueue[T]
	version uint64
	copy    *PriorityQueue[T]
	current T
	err     error
}

// Next advances to the next item. It returns false when the snapshot is
// exhausted or when the source queue has been mutated since the iterator was
// created.
func (it *Iterator[T]) Next() bool {
	if it.err != nil {
		return false
	}

	if it.source.version != it.version {
		it.err = fmt.Errorf(
			"queueing: queue modified during iteration: %w", ErrInvalidState)
		return false
	}

	item, err := it.copy.ExtractMin()
	if err != nil {
		var zero T
		it.current = zero
		return false
	}

	it.current = item

	return true
}

// Item returns the item at the current position. It returns the zero value
// before the first successful Next.
func (it *Iterator[T]) Item() T {
	return it.current
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}
