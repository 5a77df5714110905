// Package renderer is the device capability the planet pass drives: layered elevation images, float
// buffers, compute dispatches, barriers, fences and readback, plus the hand-off of per-frame draw lists.
package renderer

import (
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Device is the backend-independent device capability.
//
// Commands execute in issue order. A Fence becomes ready once every command issued before it has
// completed; the Device never blocks the caller waiting for completion.
type Device interface {
	RendererBackend

	// Backend reports which implementation executes the commands.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Backend() RendererBackendType

	// Stats returns the number of commands accepted so far.
	//
	// Returns:
	//   - Stats: cumulative command counts
	Stats() Stats
}

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	stats       Stats
	logger      *zap.SugaredLogger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	msaa                 MSAASampleCount
	field                terrain.Field
	workers              int
	queueDepth           int
}

var _ Device = &device{}

// NewDevice creates a Device with the specified backend.
//
// Parameters:
//   - backendType: the backend to create
//   - win: the window whose surface receives presented frames, or nil for an offscreen device
//   - options: builder options
//
// Returns:
//   - Device: the device
//   - error: an error if the backend could not be created
func NewDevice(backendType RendererBackendType, win window.Window, options ...DeviceBuilderOption) (Device, error) {
	d := &device{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      zap.NewNop().Sugar(),
		msaa:        MSAAOff,
		workers:     runtime.NumCPU(),
		queueDepth:  256,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(d)
	}

	switch backendType {
	case BackendTypeSoftware:
		if d.field == nil {
			return nil, errors.New("software backend requires an elevation field")
		}
		d.backend = newSoftwareRendererBackend(d.field, d.workers, d.queueDepth, d.logger)
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(win, d.field, d.forceFallbackAdapter, d.msaa, d.logger)
		if err != nil {
			return nil, errors.Wrap(err, "creating wgpu backend")
		}
		if d.pendingPresentMode != nil {
			b.SetPresentMode(*d.pendingPresentMode)
		}
		if win != nil {
			b.Resize(win.Width(), win.Height())
		}
		d.backend = b
	default:
		return nil, errors.Errorf("unknown backend type %d", backendType)
	}

	d.logger.Infow("device created", "backend", backendType.String())
	return d, nil
}

func (d *device) Backend() RendererBackendType {
	return d.backendType
}

func (d *device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *device) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

func (d *device) CreateLayeredImage(label string, size, layers int) (Image, error) {
	img, err := d.backend.CreateLayeredImage(label, size, layers)
	if err != nil {
		return nil, errors.Wrapf(err, "creating layered image %q (%d layers of %d²)", label, layers, size)
	}
	return img, nil
}

func (d *device) CreateOffsetStore(label string, slots int) (Buffer, error) {
	buf, err := d.backend.CreateOffsetStore(label, slots)
	if err != nil {
		return nil, errors.Wrapf(err, "creating offset store %q", label)
	}
	return buf, nil
}

func (d *device) CreateReadbackBuffer(label string, floats int) (Buffer, error) {
	buf, err := d.backend.CreateReadbackBuffer(label, floats)
	if err != nil {
		return nil, errors.Wrapf(err, "creating readback buffer %q", label)
	}
	return buf, nil
}

func (d *device) UploadMesh(label string, vertices []float32, indices []uint32) error {
	return errors.Wrapf(d.backend.UploadMesh(label, vertices, indices), "uploading mesh %q", label)
}

func (d *device) DispatchInitialize(job InitializeJob) error {
	d.count(func(s *Stats) { s.Dispatches++ })
	return errors.Wrap(d.backend.DispatchInitialize(job), "dispatching atlas initialization")
}

func (d *device) DispatchDetail(job DetailJob) error {
	d.count(func(s *Stats) { s.Dispatches++ })
	return errors.Wrapf(d.backend.DispatchDetail(job), "dispatching detail for slot %d", job.Target)
}

func (d *device) Barrier() {
	d.count(func(s *Stats) { s.Barriers++ })
	d.backend.Barrier()
}

func (d *device) CopyTexel(src Image, layer, x, y int, dst Buffer, index int) error {
	d.count(func(s *Stats) { s.Copies++ })
	return d.backend.CopyTexel(src, layer, x, y, dst, index)
}

func (d *device) CopyOffset(src Buffer, slot int, dst Buffer, index int) error {
	d.count(func(s *Stats) { s.Copies++ })
	return d.backend.CopyOffset(src, slot, dst, index)
}

func (d *device) Fence(readback Buffer) (Fence, error) {
	d.count(func(s *Stats) { s.Fences++ })
	return d.backend.Fence(readback)
}

func (d *device) ReadBuffer(buf Buffer) ([]float32, error) {
	return d.backend.ReadBuffer(buf)
}

func (d *device) SubmitDraw(draw DrawList) error {
	d.count(func(s *Stats) { s.Draws++ })
	return d.backend.SubmitDraw(draw)
}

func (d *device) Resize(width, height int) {
	d.backend.Resize(width, height)
}

func (d *device) Close() error {
	return d.backend.Close()
}
