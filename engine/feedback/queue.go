package feedback

// CircularQueue is a fixed-capacity FIFO ring buffer.
type CircularQueue[T any] struct {
	items []T
	head  int
	size  int
}

// NewCircularQueue creates an empty queue.
//
// Parameters:
//   - capacity: the maximum number of queued items, at least 1
//
// Returns:
//   - *CircularQueue[T]: the queue
func NewCircularQueue[T any](capacity int) *CircularQueue[T] {
	return &CircularQueue[T]{items: make([]T, max(capacity, 1))}
}

// Push appends v at the tail. It reports false and leaves the queue unchanged when the queue is full.
func (q *CircularQueue[T]) Push(v T) bool {
	if q.Full() {
		return false
	}
	q.items[(q.head+q.size)%len(q.items)] = v
	q.size++
	return true
}

// Top returns the head without removing it.
func (q *CircularQueue[T]) Top() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Pop removes and returns the head.
func (q *CircularQueue[T]) Pop() (T, bool) {
	v, ok := q.Top()
	if !ok {
		return v, false
	}
	var zero T
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return v, true
}

func (q *CircularQueue[T]) Len() int { return q.size }

func (q *CircularQueue[T]) Cap() int { return len(q.items) }

func (q *CircularQueue[T]) Full() bool { return q.size == len(q.items) }

func (q *CircularQueue[T]) Empty() bool { return q.size == 0 }

// Available returns the number of items that can still be pushed.
func (q *CircularQueue[T]) Available() int { return len(q.items) - q.size }
