package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/engine/ecs"
	"github.com/Carmen-Shannon/oxy-planet/engine/input"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/benbjohnson/clock"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

type recordingSystem struct {
	name     string
	priority int
	calls    *[]string
	dts      []float64
	update   func(n int) error
}

func (s *recordingSystem) Name() string  { return s.name }
func (s *recordingSystem) Priority() int { return s.priority }

func (s *recordingSystem) Update(_ *ecs.Store, dt float64) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	s.dts = append(s.dts, dt)
	if s.update != nil {
		return s.update(len(s.dts))
	}
	return nil
}

type fakeWindow struct {
	onResize   func(width, height int)
	onKeyDown  func(uint32)
	onKeyUp    func(uint32)
	onMove     func(x, y int32)
	onButton   func(window.MouseButton, bool)
	captured   bool
	closeCalls int
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(func())                     {}
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(uint32))           { w.onKeyDown = cb }
func (w *fakeWindow) SetKeyUpCallback(cb func(uint32))             { w.onKeyUp = cb }
func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y int32))     { w.onMove = cb }
func (w *fakeWindow) SetCursorCaptured(c bool)                     { w.captured = c }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor   { return nil }
func (w *fakeWindow) IsRunning() bool                              { return true }
func (w *fakeWindow) ProcessMessages()                             {}
func (w *fakeWindow) Width() int                                   { return 0 }
func (w *fakeWindow) Height() int                                  { return 0 }

func (w *fakeWindow) SetMouseButtonCallback(cb func(window.MouseButton, bool)) {
	w.onButton = cb
}

func (w *fakeWindow) Close() error {
	w.closeCalls++
	return nil
}

func TestSystemsRunInPriorityOrder(t *testing.T) {
	var calls []string
	e := NewEngine(WithSystems(
		&recordingSystem{name: "render", priority: 30, calls: &calls},
		&recordingSystem{name: "input", priority: 0, calls: &calls},
	))
	e.AddSystem(&recordingSystem{name: "camera", priority: 10, calls: &calls})
	e.AddSystem(&recordingSystem{name: "late input", priority: 0, calls: &calls})

	names := []string{}
	for _, s := range e.Systems() {
		names = append(names, s.Name())
	}
	test.That(t, names, test.ShouldResemble, []string{"input", "late input", "camera", "render"})

	test.That(t, e.Step(0.5), test.ShouldBeNil)
	test.That(t, calls, test.ShouldResemble, names)
	test.That(t, e.Frames(), test.ShouldEqual, 1)
}

func TestStepStopsAtFirstError(t *testing.T) {
	var calls []string
	e := NewEngine(WithSystems(
		&recordingSystem{name: "boom", priority: 0, calls: &calls, update: func(int) error { return errors.New("bad frame") }},
		&recordingSystem{name: "after", priority: 1, calls: &calls},
	))
	err := e.Step(0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldEqual, "boom system: bad frame")
	test.That(t, calls, test.ShouldResemble, []string{"boom"})
	test.That(t, e.Frames(), test.ShouldEqual, 0)
}

func TestRunFramesTimesWithClock(t *testing.T) {
	mock := clock.NewMock()
	sys := &recordingSystem{name: "tick", update: func(int) error {
		mock.Add(20 * time.Millisecond)
		return nil
	}}
	e := NewEngine(WithClock(mock), WithSystems(sys), WithRenderFrameLimit(60), WithProfiling(true))

	test.That(t, e.RunFrames(3), test.ShouldBeNil)
	test.That(t, sys.dts, test.ShouldResemble, []float64{0, 0.02, 0.02})
	test.That(t, e.Frames(), test.ShouldEqual, 3)
}

func TestRunUntilQuit(t *testing.T) {
	mock := clock.NewMock()
	var e Engine
	sys := &recordingSystem{name: "quitter", update: func(n int) error {
		mock.Add(time.Millisecond)
		if n == 3 {
			e.Quit()
		}
		return nil
	}}
	e = NewEngine(WithClock(mock), WithSystems(sys))

	test.That(t, e.Run(), test.ShouldBeNil)
	test.That(t, e.Frames(), test.ShouldEqual, 3)
	e.Quit()
}

func TestRunStopsOnSystemError(t *testing.T) {
	sys := &recordingSystem{name: "flaky", update: func(n int) error {
		if n == 2 {
			return errors.New("device lost")
		}
		return nil
	}}
	e := NewEngine(WithClock(clock.NewMock()), WithSystems(sys))

	err := e.Run()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "device lost")
	test.That(t, e.Frames(), test.ShouldEqual, 1)
}

func TestWindowEventsFeedStore(t *testing.T) {
	store := ecs.NewStore()
	singletons := store.Create()
	store.SetViewer(singletons, scene.NewState())
	in := input.NewState()
	store.SetInput(singletons, in)

	win := &fakeWindow{}
	dev := renderertest.NewDevice()
	e := NewEngine(WithWindow(win), WithStore(store), WithDevice(dev), WithClock(clock.NewMock()))
	test.That(t, e.Window(), test.ShouldEqual, win)
	test.That(t, e.Store(), test.ShouldEqual, store)

	win.onKeyDown(common.KeyW)
	win.onButton(window.MouseButtonLeft, true)
	test.That(t, win.captured, test.ShouldBeTrue)
	test.That(t, in.Captured(), test.ShouldBeTrue)
	win.onMove(10, 10)
	win.onMove(13, 11)

	win.onResize(640, 480)
	win.onResize(800, 600)
	test.That(t, e.Step(0), test.ShouldBeNil)
	view, err := ecs.GetOne(store, ecs.Viewers)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, view.WindowSize, test.ShouldResemble, [2]int{800, 600})

	f := in.Consume(1)
	test.That(t, f.Pressed(common.KeyW), test.ShouldBeTrue)
	test.That(t, f.MouseDelta, test.ShouldResemble, [2]float64{3, 1})

	win.onKeyUp(common.KeyW)
	win.onButton(window.MouseButtonRight, true)
	test.That(t, win.captured, test.ShouldBeFalse)
	test.That(t, in.Consume(1).Pressed(common.KeyW), test.ShouldBeFalse)

	test.That(t, e.Close(), test.ShouldBeNil)
	test.That(t, win.closeCalls, test.ShouldEqual, 1)
}
