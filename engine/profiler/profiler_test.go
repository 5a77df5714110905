package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.viam.com/test"
)

func TestTickSummarizesInterval(t *testing.T) {
	mock := clock.NewMock()
	stats := renderer.Stats{Dispatches: 10, Draws: 3}
	p := NewProfiler(
		WithClock(mock),
		WithLogger(zap.NewNop().Sugar()),
		WithInterval(time.Second),
		WithStats(func() renderer.Stats { return stats }),
	)

	for range 3 {
		mock.Add(250 * time.Millisecond)
		test.That(t, p.Tick(2*time.Millisecond, 1), test.ShouldBeFalse)
	}
	stats.Dispatches += 4
	stats.Draws += 4
	mock.Add(250 * time.Millisecond)
	test.That(t, p.Tick(6*time.Millisecond, 0), test.ShouldBeTrue)

	s := p.Last()
	test.That(t, s.FPS, test.ShouldAlmostEqual, 4.0)
	test.That(t, s.FrameTime, test.ShouldEqual, 3*time.Millisecond)
	test.That(t, s.Commands.Dispatches, test.ShouldEqual, 4)
	test.That(t, s.Commands.Draws, test.ShouldEqual, 4)
	test.That(t, s.Samples, test.ShouldEqual, 3)

	// The next interval starts from zero.
	mock.Add(time.Second)
	test.That(t, p.Tick(time.Millisecond, 0), test.ShouldBeTrue)
	test.That(t, p.Last().Commands, test.ShouldResemble, renderer.Stats{})
	test.That(t, p.Last().Samples, test.ShouldEqual, 0)
}

func TestTickWithoutStats(t *testing.T) {
	mock := clock.NewMock()
	p := NewProfiler(WithClock(mock), WithInterval(-1))
	mock.Add(time.Second)
	test.That(t, p.Tick(0, 0), test.ShouldBeTrue)
	test.That(t, p.Last().FPS, test.ShouldAlmostEqual, 1.0)
}
