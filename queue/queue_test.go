package queue

import "testing"
import "container/list"

func TestPush(t *testing.T) {
	q := NewQueue[int](3)

	a, b, c := q.Push(3), q.Push(4), q.Push(5)

	if !(a && b && c) {
		t.Fatal("Could not Push three elements")
	}
}

func TestPushLimit(t *testing.T) {
	q := NewQueue[int](2)

	a, b, c := q.Push(3), q.Push(4), q.Push(5)

	if !(a && b) || c {
		t.Fatal("Could Push last element:", a, b, c)
	}
}

func TestPopEmpty(t *testing.T) {
	q := NewQueue[int](10)

	if _, ok := q.Pop(); ok {
		t.Fatal("Could Pop from empty queue")
	}
}

func TestPop(t *testing.T) {
	q := NewQueue[int](10)

	q.Push(1)
	q.Push(2)
	q.Push(3)

	a, _ := q.Pop()
	b, _ := q.Pop()
	c, _ := q.Pop()

	if a != 1 || b != 2 || c != 3 {
		t.Fatal("Bad contents:", a, b, c)
	}

	if _, ok := q.Pop(); ok {
		t.Fatal("Yields element past end")
	}
}

func TestLen(t *testing.T) {
	q := NewQueue[int](3)
	q.Push(2)
	q.Push(3)
	q.Push(4)
	q.Pop()
	q.Pop()
	q.Push(5)
	if q.Len() != 2 {
		t.Fatal("Wrong length", q.Len())
	}
	if q.Cap() != 3 {
		t.Fatal("Wrong capacity", q.Cap())
	}
	q.Pop()
	if e, _ := q.Pop(); e != 5 {
		t.Fatal("Unexpected value", e)
	}
}

func TestPeek(t *testing.T) {
	q := NewQueue[int](10)
	q.Push(2)

	if e, ok := q.Peek(); !ok || e != 2 {
		t.Fatal("Wrong element:", e)
	}
	if q.Len() != 1 {
		t.Fatal("Peek removed element")
	}
}

func TestPushEvict(t *testing.T) {
	q := NewQueue[string](2)

	q.PushEvict("a")
	q.PushEvict("b")
	if !q.PushEvict("c") {
		t.Fatal("Expected eviction on full queue")
	}

	got := q.Drain()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatal("Bad contents after eviction:", got)
	}
	if q.Len() != 0 {
		t.Fatal("Drain left elements behind", q.Len())
	}
}

// Benches time for Pushing, then Popping 10 elements from a long queue
func BenchmarkQueue(b *testing.B) {
	q := NewQueue[int](1000)

	for i := 0; i < b.N; i++ {
		for j := 0; j < 10; j++ {
			if !q.Push(j) {
				b.Fatal("couldn't Push")
			}
		}
		for j := 0; j < 10; j++ {
			if _, ok := q.Pop(); !ok {
				b.Fatal("got nothing", i, j)
			}
		}
	}
}

// Compare with linked list performance
func BenchmarkQueueLinkedList(b *testing.B) {
	l := list.New()

	for i := 0; i < b.N; i++ {
		for j := 0; j < 10; j++ {
			if nil == l.PushBack(i) {
				b.Fatal("couldn't Push")
			}
		}
		for j := 0; j < 10; j++ {
			if nil == l.Remove(l.Front()) {
				b.Fatal("got nil", i, j)
			}
		}
	}
}
