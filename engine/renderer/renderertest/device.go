// Package renderertest provides a recording renderer.Device whose fences are signaled by the test.
package renderertest

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/pkg/errors"
)

// Image is a layered image that holds no data.
type Image struct {
	label  string
	size   int
	layers int
}

func (i *Image) Label() string { return i.label }
func (i *Image) Size() int     { return i.size }
func (i *Image) Layers() int   { return i.layers }

// Buffer is a float buffer the test can inspect and seed.
type Buffer struct {
	label string
	Data  []float32
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Len() int      { return len(b.Data) }

// Fence stays pending until Signal is called.
type Fence struct {
	ready atomic.Bool
}

// Signal marks the fence ready.
func (f *Fence) Signal() { f.ready.Store(true) }

func (f *Fence) IsReady() bool { return f.ready.Load() }

// Device records every command it receives. Copies complete immediately; fences complete when signaled,
// or at once when AutoSignal is set.
type Device struct {
	mu *sync.Mutex

	// Texel supplies the value CopyTexel reads. It defaults to zero.
	Texel func(layer, x, y int) float32
	// AutoSignal makes every new fence ready on creation.
	AutoSignal bool
	// Fail makes the named operation return an error.
	Fail string

	Ops         []string
	Details     []renderer.DetailJob
	Initializes []renderer.InitializeJob
	Draws       []renderer.DrawList
	Fences      []*Fence
	Meshes      map[string]int
	Images      []*Image
	Buffers     []*Buffer

	stats renderer.Stats
}

var _ renderer.Device = &Device{}

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	return &Device{
		mu:     &sync.Mutex{},
		Meshes: make(map[string]int),
	}
}

func (d *Device) record(op string) error {
	d.Ops = append(d.Ops, op)
	if d.Fail == op {
		return errors.Errorf("%s failed", op)
	}
	return nil
}

// Reset forgets the recorded commands and counters, keeping the resources.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Ops = nil
	d.Details = nil
	d.Initializes = nil
	d.Draws = nil
	d.Fences = nil
	d.stats = renderer.Stats{}
}

func (d *Device) Backend() renderer.RendererBackendType {
	return renderer.BackendTypeSoftware
}

func (d *Device) Stats() renderer.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) CreateLayeredImage(label string, size, layers int) (renderer.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CreateLayeredImage"); err != nil {
		return nil, err
	}
	img := &Image{label: label, size: size, layers: layers}
	d.Images = append(d.Images, img)
	return img, nil
}

func (d *Device) CreateOffsetStore(label string, slots int) (renderer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CreateOffsetStore"); err != nil {
		return nil, err
	}
	buf := &Buffer{label: label, Data: make([]float32, 2*slots)}
	d.Buffers = append(d.Buffers, buf)
	return buf, nil
}

func (d *Device) CreateReadbackBuffer(label string, floats int) (renderer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CreateReadbackBuffer"); err != nil {
		return nil, err
	}
	buf := &Buffer{label: label, Data: make([]float32, floats)}
	d.Buffers = append(d.Buffers, buf)
	return buf, nil
}

func (d *Device) UploadMesh(label string, vertices []float32, indices []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("UploadMesh"); err != nil {
		return err
	}
	d.Meshes[label] = len(indices)
	return nil
}

func (d *Device) DispatchInitialize(job renderer.InitializeJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("DispatchInitialize"); err != nil {
		return err
	}
	d.stats.Dispatches++
	d.Initializes = append(d.Initializes, job)
	return nil
}

func (d *Device) DispatchDetail(job renderer.DetailJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("DispatchDetail"); err != nil {
		return err
	}
	d.stats.Dispatches++
	d.Details = append(d.Details, job)
	return nil
}

func (d *Device) Barrier() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Ops = append(d.Ops, "Barrier")
	d.stats.Barriers++
}

func (d *Device) CopyTexel(src renderer.Image, layer, x, y int, dst renderer.Buffer, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CopyTexel"); err != nil {
		return err
	}
	d.stats.Copies++
	var v float32
	if d.Texel != nil {
		v = d.Texel(layer, x, y)
	}
	dst.(*Buffer).Data[index] = v
	return nil
}

func (d *Device) CopyOffset(src renderer.Buffer, slot int, dst renderer.Buffer, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CopyOffset"); err != nil {
		return err
	}
	d.stats.Copies++
	from := src.(*Buffer).Data
	to := dst.(*Buffer).Data
	to[index], to[index+1] = from[2*slot], from[2*slot+1]
	return nil
}

func (d *Device) Fence(readback renderer.Buffer) (renderer.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("Fence"); err != nil {
		return nil, err
	}
	d.stats.Fences++
	f := &Fence{}
	if d.AutoSignal {
		f.Signal()
	}
	d.Fences = append(d.Fences, f)
	return f, nil
}

func (d *Device) ReadBuffer(buf renderer.Buffer) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("ReadBuffer"); err != nil {
		return nil, err
	}
	return append([]float32(nil), buf.(*Buffer).Data...), nil
}

func (d *Device) SubmitDraw(draw renderer.DrawList) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("SubmitDraw"); err != nil {
		return err
	}
	d.stats.Draws++
	draw.Instances = append([]renderer.InstanceAttributes(nil), draw.Instances...)
	d.Draws = append(d.Draws, draw)
	return nil
}

func (d *Device) Resize(int, int) {}

func (d *Device) Close() error { return nil }
