package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"go.viam.com/test"
)

func TestKeys(t *testing.T) {
	s := NewState()
	s.Press(common.KeyW)
	s.Press(common.KeyA)
	s.Release(common.KeyA)

	f := s.Consume(1)
	test.That(t, f.Pressed(common.KeyW), test.ShouldBeTrue)
	test.That(t, f.Pressed(common.KeyA), test.ShouldBeFalse)

	s.Release(common.KeyW)
	test.That(t, f.Pressed(common.KeyW), test.ShouldBeTrue)
	test.That(t, s.Consume(1).Pressed(common.KeyW), test.ShouldBeFalse)
}

func TestMouseIgnoredUntilCaptured(t *testing.T) {
	s := NewState()
	s.MoveMouse(10, 10)
	s.MoveMouse(20, 30)
	test.That(t, s.Consume(1).MouseDelta, test.ShouldResemble, [2]float64{})

	s.SetCaptured(true)
	test.That(t, s.Captured(), test.ShouldBeTrue)
	s.MoveMouse(100, 100)
	s.MoveMouse(104, 97)
	s.MoveMouse(106, 99)
	test.That(t, s.Consume(1).MouseDelta, test.ShouldResemble, [2]float64{6, -1})
	test.That(t, s.Consume(1).MouseDelta, test.ShouldResemble, [2]float64{})
	test.That(t, s.Last().MouseDelta, test.ShouldResemble, [2]float64{})
}

func TestMouseSmoothing(t *testing.T) {
	s := NewState()
	s.SetCaptured(true)
	s.MoveMouse(0, 0)
	s.MoveMouse(8, 0)

	test.That(t, s.Consume(4).MouseDelta, test.ShouldResemble, [2]float64{2, 0})
	test.That(t, s.Consume(4).MouseDelta, test.ShouldResemble, [2]float64{1.5, 0})
}
