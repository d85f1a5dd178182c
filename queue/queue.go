package queue

// An array-based fixed-length queue implementation, supposedly faster than a LinkedList implementation.
// Used to buffer messages received by subscribers.

type Queue[T any] struct {
	// tracking the length separately in l, because calculating it from (front, back)
	// is difficult in some cases (especially rollover)
	front, back, l int
	queue          []T
}

func NewQueue[T any](len int) *Queue[T] {
	return &Queue[T]{queue: make([]T, len)}
}

func (q *Queue[T]) Len() int {
	return q.l
}

func (q *Queue[T]) Cap() int {
	return len(q.queue)
}

// Append to the back. Returns false if queue is full.
func (q *Queue[T]) Push(e T) bool {
	if q.l < len(q.queue) {
		q.queue[q.back] = e
		q.back = (q.back + 1) % len(q.queue)
		q.l++
		return true
	}
	return false
}

// Append to the back, evicting the front element if the queue is full.
// Returns true if an element was evicted.
func (q *Queue[T]) PushEvict(e T) bool {
	if len(q.queue) == 0 {
		return false
	}
	evicted := false
	if q.l == len(q.queue) {
		q.Pop()
		evicted = true
	}
	q.Push(e)
	return evicted
}

// Get from the front. ok is false if the queue is empty.
func (q *Queue[T]) Pop() (e T, ok bool) {
	if q.l > 0 {
		var zero T
		e = q.queue[q.front]
		q.queue[q.front] = zero
		q.front = (q.front + 1) % len(q.queue)
		q.l--
		return e, true
	}
	return e, false
}

// Returns the front element without removing it.
func (q *Queue[T]) Peek() (e T, ok bool) {
	if q.l > 0 {
		return q.queue[q.front], true
	}
	return e, false
}

// Drain removes and returns all queued elements in FIFO order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, q.l)
	for q.l > 0 {
		e, _ := q.Pop()
		out = append(out, e)
	}
	return out
}
