package feedback

import (
	"testing"

	"go.viam.com/test"
)

func TestCircularQueue(t *testing.T) {
	q := NewCircularQueue[int](3)
	test.That(t, q.Empty(), test.ShouldBeTrue)
	test.That(t, q.Cap(), test.ShouldEqual, 3)
	_, ok := q.Top()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = q.Pop()
	test.That(t, ok, test.ShouldBeFalse)

	for i := 1; i <= 3; i++ {
		test.That(t, q.Push(i), test.ShouldBeTrue)
	}
	test.That(t, q.Full(), test.ShouldBeTrue)
	test.That(t, q.Push(4), test.ShouldBeFalse)
	test.That(t, q.Available(), test.ShouldEqual, 0)

	v, _ := q.Pop()
	test.That(t, v, test.ShouldEqual, 1)
	test.That(t, q.Push(4), test.ShouldBeTrue)

	// The tail has wrapped around; order is preserved.
	var got []int
	for !q.Empty() {
		v, _ := q.Pop()
		got = append(got, v)
	}
	test.That(t, got, test.ShouldResemble, []int{2, 3, 4})
	test.That(t, q.Available(), test.ShouldEqual, 3)
}

func TestCircularQueueMinimumCapacity(t *testing.T) {
	q := NewCircularQueue[string](0)
	test.That(t, q.Cap(), test.ShouldEqual, 1)
	test.That(t, q.Push("a"), test.ShouldBeTrue)
	test.That(t, q.Push("b"), test.ShouldBeFalse)
}
