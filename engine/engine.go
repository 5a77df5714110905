package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-planet/engine/ecs"
	"github.com/Carmen-Shannon/oxy-planet/engine/profiler"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/systems"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Runs the frame loop on its own goroutine while the window message loop owns the calling thread.
type engine struct {
	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	device renderer.Device
	store  *ecs.Store
	clock  clock.Clock
	logger *zap.SugaredLogger

	systems []systems.System
	render  *systems.RenderSystem

	profiler         *profiler.Profiler
	profilingEnabled bool

	resize   chan [2]int
	errMu    *sync.Mutex
	frameErr error
	frames   int

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the entity store and runs its systems once per frame, lowest priority first.
type Engine interface {
	// Window returns the underlying window, nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Store returns the entity store the systems run over.
	//
	// Returns:
	//   - *ecs.Store: the store
	Store() *ecs.Store

	// AddSystem registers a system. Systems of equal priority run in registration order.
	//
	// Parameters:
	//   - s: the system
	AddSystem(s systems.System)

	// Systems returns the registered systems in run order.
	//
	// Returns:
	//   - []systems.System: the systems
	Systems() []systems.System

	// EnableProfiler enables periodic performance summaries in the log.
	EnableProfiler()

	// DisableProfiler disables performance summaries.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Step runs every system once.
	//
	// Parameters:
	//   - dt: the frame duration in seconds
	//
	// Returns:
	//   - error: the first system error
	Step(dt float64) error

	// RunFrames runs n frames back to back on the calling goroutine, timing them with the engine clock.
	//
	// Parameters:
	//   - n: the number of frames
	//
	// Returns:
	//   - error: the first system error
	RunFrames(n int) error

	// Run runs frames until Quit is called, the window closes or a system fails. With a window the calling
	// goroutine runs the window message loop and frames run on their own goroutine.
	//
	// Returns:
	//   - error: the system error that stopped the loop, if any
	Run() error

	// Frames returns the number of frames run so far.
	Frames() int

	// Quit signals the frame loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close releases the device and the window.
	//
	// Returns:
	//   - error: every release error combined
	Close() error
}

// NewEngine creates a new Engine instance with the provided options.
// When a window and an input record are both present the window's callbacks are bound to the record.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		store:       ecs.NewStore(),
		clock:       clock.New(),
		logger:      zap.NewNop().Sugar(),
		resize:      make(chan [2]int, 1),
		errMu:       &sync.Mutex{},
	}

	for _, opt := range options {
		opt(e)
	}

	e.profiler = profiler.NewProfiler(
		profiler.WithClock(e.clock),
		profiler.WithLogger(e.logger),
		profiler.WithStats(e.stats),
	)

	if e.window != nil {
		e.bindWindow()
	}
	return e
}

// bindWindow routes window events into the store. Callbacks run on the window thread, so resizes are
// handed to the frame loop through a channel and input goes through the input record's lock.
func (e *engine) bindWindow() {
	e.window.SetResizeCallback(func(width, height int) {
		select {
		case <-e.resize:
		default:
		}
		e.resize <- [2]int{width, height}
	})

	in, err := ecs.GetOne(e.store, ecs.Inputs)
	if err != nil {
		return
	}
	e.window.SetKeyDownCallback(in.Press)
	e.window.SetKeyUpCallback(in.Release)
	e.window.SetMouseMoveCallback(in.MoveMouse)
	e.window.SetMouseButtonCallback(func(button window.MouseButton, pressed bool) {
		if !pressed {
			return
		}
		switch button {
		case window.MouseButtonLeft:
			in.SetCaptured(true)
			e.window.SetCursorCaptured(true)
		case window.MouseButtonRight:
			in.SetCaptured(false)
			e.window.SetCursorCaptured(false)
		}
	})
}

func (e *engine) stats() renderer.Stats {
	if e.device == nil {
		return renderer.Stats{}
	}
	return e.device.Stats()
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Store() *ecs.Store {
	return e.store
}

func (e *engine) AddSystem(s systems.System) {
	e.systems = append(e.systems, s)
	sort.SliceStable(e.systems, func(i, j int) bool {
		return e.systems[i].Priority() < e.systems[j].Priority()
	})
	if r, ok := s.(*systems.RenderSystem); ok {
		e.render = r
	}
}

func (e *engine) Systems() []systems.System {
	return append([]systems.System(nil), e.systems...)
}

func (e *engine) Frames() int {
	return e.frames
}

func (e *engine) Step(dt float64) error {
	start := e.clock.Now()
	e.applyResize()

	for _, s := range e.systems {
		if err := s.Update(e.store, dt); err != nil {
			return errors.Wrapf(err, "%s system", s.Name())
		}
	}
	e.frames++

	if e.profilingEnabled {
		samples := 0
		if e.render != nil {
			samples = e.render.TakeSamples()
		}
		e.profiler.Tick(e.clock.Since(start), samples)
	}
	return nil
}

func (e *engine) applyResize() {
	select {
	case size := <-e.resize:
		if view, err := ecs.GetOne(e.store, ecs.Viewers); err == nil {
			view.WindowSize = size
		}
		if e.device != nil {
			e.device.Resize(size[0], size[1])
		}
	default:
	}
}

func (e *engine) RunFrames(n int) error {
	last := e.clock.Now()
	for range n {
		now := e.clock.Now()
		dt := now.Sub(last).Seconds()
		last = now
		if err := e.Step(dt); err != nil {
			return err
		}
		e.limit(now)
	}
	return nil
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.wg.Add(1)
	go e.handleFrames()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			if !e.running.Load() {
				_ = e.window.Close()
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
	}

	e.wg.Wait()
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.frameErr
}

// handleFrames runs the frame loop until the quit channel is closed or a system fails.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer e.running.Store(false)

	last := e.clock.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := e.clock.Now()
		dt := now.Sub(last).Seconds()
		last = now
		if err := e.Step(dt); err != nil {
			e.logger.Errorw("frame failed", "frame", e.frames, "error", err)
			e.errMu.Lock()
			e.frameErr = err
			e.errMu.Unlock()
			e.signalQuit()
			return
		}
		e.limit(now)
	}
}

// limit sleeps out the rest of the frame when a frame limit is set.
func (e *engine) limit(frameStart time.Time) {
	if e.renderFrameLimit <= 0 {
		return
	}
	if remaining := e.renderFrameLimit - e.clock.Since(frameStart); remaining > 0 {
		e.clock.Sleep(remaining)
	}
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() error {
	var err error
	if e.device != nil {
		err = multierr.Append(err, e.device.Close())
	}
	if e.window != nil && e.window.IsRunning() {
		err = multierr.Append(err, e.window.Close())
	}
	return err
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the frame loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
