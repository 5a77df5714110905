package renderer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type softImage struct {
	label string
	size  int
	data  [][]float32
}

func (i *softImage) Label() string { return i.label }
func (i *softImage) Size() int     { return i.size }
func (i *softImage) Layers() int   { return len(i.data) }

type softBuffer struct {
	label string
	data  []float32
}

func (b *softBuffer) Label() string { return b.label }
func (b *softBuffer) Len() int      { return len(b.data) }

type softFence struct {
	ready atomic.Bool
}

func (f *softFence) IsReady() bool { return f.ready.Load() }

// softwareRendererBackendImpl executes commands in issue order on a single executor goroutine, which stands
// in for the device queue. Every command completes before the next starts, so barriers need no work, and a
// fence is a flag the executor sets when it reaches it.
type softwareRendererBackendImpl struct {
	mu *sync.Mutex
	// sendMu orders sends on commands against Close closing it.
	sendMu *sync.RWMutex

	field    terrain.Field
	pool     worker.DynamicWorkerPool
	commands chan func()
	done     chan struct{}
	closed   atomic.Bool
	logger   *zap.SugaredLogger

	lastDraw DrawList
	meshes   map[string]int
	taskID   atomic.Int64
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(field terrain.Field, workers, queueDepth int, logger *zap.SugaredLogger) *softwareRendererBackendImpl {
	b := &softwareRendererBackendImpl{
		mu:       &sync.Mutex{},
		sendMu:   &sync.RWMutex{},
		field:    field,
		pool:     worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		commands: make(chan func(), queueDepth),
		done:     make(chan struct{}),
		logger:   logger,
		meshes:   make(map[string]int),
	}
	go b.execute()
	return b
}

func (b *softwareRendererBackendImpl) execute() {
	defer close(b.done)
	for cmd := range b.commands {
		cmd()
	}
}

func (b *softwareRendererBackendImpl) enqueue(cmd func()) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed.Load() {
		return errors.New("software device is closed")
	}
	b.commands <- cmd
	return nil
}

// WaitIdle blocks until every command issued so far has completed.
func (b *softwareRendererBackendImpl) WaitIdle() {
	idle := make(chan struct{})
	if err := b.enqueue(func() { close(idle) }); err != nil {
		return
	}
	<-idle
}

// parallelRows runs fn for every row in [0, rows) on the worker pool and waits for all of them.
func (b *softwareRendererBackendImpl) parallelRows(rows int, fn func(y int)) {
	var wg sync.WaitGroup
	for y := 0; y < rows; y++ {
		wg.Add(1)
		row := y
		b.pool.SubmitTask(worker.Task{
			ID: int(b.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				fn(row)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (b *softwareRendererBackendImpl) CreateLayeredImage(label string, size, layers int) (Image, error) {
	if size <= 0 || layers <= 0 {
		return nil, errors.Errorf("invalid image dimensions %dx%d", size, layers)
	}
	img := &softImage{label: label, size: size, data: make([][]float32, layers)}
	for i := range img.data {
		img.data[i] = make([]float32, size*size)
	}
	return img, nil
}

func (b *softwareRendererBackendImpl) CreateOffsetStore(label string, slots int) (Buffer, error) {
	if slots <= 0 {
		return nil, errors.Errorf("invalid slot count %d", slots)
	}
	return &softBuffer{label: label, data: make([]float32, 2*slots)}, nil
}

func (b *softwareRendererBackendImpl) CreateReadbackBuffer(label string, floats int) (Buffer, error) {
	if floats <= 0 {
		return nil, errors.Errorf("invalid readback length %d", floats)
	}
	return &softBuffer{label: label, data: make([]float32, floats)}, nil
}

func (b *softwareRendererBackendImpl) UploadMesh(label string, vertices []float32, indices []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meshes[label] = len(indices)
	return nil
}

func (b *softwareRendererBackendImpl) images(image Image, offsets Buffer) (*softImage, *softBuffer, error) {
	img, ok := image.(*softImage)
	if !ok {
		return nil, nil, errors.Errorf("image %T does not belong to the software device", image)
	}
	off, ok := offsets.(*softBuffer)
	if !ok {
		return nil, nil, errors.Errorf("buffer %T does not belong to the software device", offsets)
	}
	if off.Len() < 2*img.Layers() {
		return nil, nil, errors.Errorf("offset store %q holds %d slots, image has %d layers", off.label, off.Len()/2, img.Layers())
	}
	return img, off, nil
}

func (b *softwareRendererBackendImpl) DispatchInitialize(job InitializeJob) error {
	img, off, err := b.images(job.Image, job.Offsets)
	if err != nil {
		return err
	}
	if img.Layers() < cubesphere.FaceCount {
		return errors.Errorf("image %q has %d layers, need %d", img.label, img.Layers(), cubesphere.FaceCount)
	}

	return b.enqueue(func() {
		size := img.size
		whole := terrain.Tile{SnapSize: 2}
		for f := cubesphere.Face(0); f < cubesphere.FaceCount; f++ {
			layer := img.data[f]
			face := f
			b.parallelRows(size, func(y int) {
				for x := 0; x < size; x++ {
					dir := cubesphere.Spherize(whole.Point(x, y, size), face)
					layer[y*size+x] = float32(b.field.Elevation(dir))
				}
			})
			off.data[2*int(f)] = 0
			off.data[2*int(f)+1] = 0
		}
	})
}

func (b *softwareRendererBackendImpl) DispatchDetail(job DetailJob) error {
	img, off, err := b.images(job.Image, job.Offsets)
	if err != nil {
		return err
	}
	if job.Target < 0 || job.Target >= img.Layers() || job.Parent < 0 || job.Parent >= img.Layers() {
		return errors.Errorf("slots %d/%d out of range for %d layers", job.Target, job.Parent, img.Layers())
	}
	if job.Target == job.Parent {
		return errors.Errorf("slot %d cannot be its own parent", job.Target)
	}
	if job.Tile.SnapSize <= 0 || img.size%job.Tile.SnapSize != 0 {
		return errors.Errorf("image size %d is not a multiple of snap size %d", img.size, job.Tile.SnapSize)
	}

	return b.enqueue(func() {
		size := img.size
		target := img.data[job.Target]
		parent := img.data[job.Parent]

		if job.Prev == nil {
			px, py := job.ParentTile.Texel(job.Tile.Center(), size)
			off.data[2*job.Target] = off.data[2*job.Parent] + off.data[2*job.Parent+1]
			off.data[2*job.Target+1] = parent[py*size+px]
		}
		base := float64(off.data[2*job.Target]) + float64(off.data[2*job.Target+1])

		b.parallelRows(size, func(y int) {
			for x := 0; x < size; x++ {
				if job.Prev != nil && job.Tile.Retains(*job.Prev, x, y, size) {
					continue
				}
				dir := cubesphere.Spherize(job.Tile.Point(x, y, size), job.Face)
				target[y*size+x] = float32(b.field.Elevation(dir) - base)
			}
		})
	})
}

func (b *softwareRendererBackendImpl) Barrier() {}

func (b *softwareRendererBackendImpl) CopyTexel(src Image, layer, x, y int, dst Buffer, index int) error {
	img, ok := src.(*softImage)
	if !ok {
		return errors.Errorf("image %T does not belong to the software device", src)
	}
	out, ok := dst.(*softBuffer)
	if !ok {
		return errors.Errorf("buffer %T does not belong to the software device", dst)
	}
	if layer < 0 || layer >= img.Layers() || x < 0 || x >= img.size || y < 0 || y >= img.size || index < 0 || index >= out.Len() {
		return errors.Errorf("texel copy (%d, %d, %d) -> %d out of bounds", layer, x, y, index)
	}
	return b.enqueue(func() {
		out.data[index] = img.data[layer][y*img.size+x]
	})
}

func (b *softwareRendererBackendImpl) CopyOffset(src Buffer, slot int, dst Buffer, index int) error {
	store, ok := src.(*softBuffer)
	if !ok {
		return errors.Errorf("buffer %T does not belong to the software device", src)
	}
	out, ok := dst.(*softBuffer)
	if !ok {
		return errors.Errorf("buffer %T does not belong to the software device", dst)
	}
	if slot < 0 || 2*slot+1 >= store.Len() || index < 0 || index+1 >= out.Len() {
		return errors.Errorf("offset copy %d -> %d out of bounds", slot, index)
	}
	return b.enqueue(func() {
		out.data[index] = store.data[2*slot]
		out.data[index+1] = store.data[2*slot+1]
	})
}

func (b *softwareRendererBackendImpl) Fence(readback Buffer) (Fence, error) {
	f := &softFence{}
	if err := b.enqueue(func() { f.ready.Store(true) }); err != nil {
		return nil, err
	}
	return f, nil
}

func (b *softwareRendererBackendImpl) ReadBuffer(buf Buffer) ([]float32, error) {
	sb, ok := buf.(*softBuffer)
	if !ok {
		return nil, errors.Errorf("buffer %T does not belong to the software device", buf)
	}
	out := make([]float32, len(sb.data))
	copy(out, sb.data)
	return out, nil
}

func (b *softwareRendererBackendImpl) SubmitDraw(draw DrawList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	draw.Instances = append([]InstanceAttributes(nil), draw.Instances...)
	b.lastDraw = draw
	return nil
}

// LastDraw returns the most recent draw list handed to the device.
func (b *softwareRendererBackendImpl) LastDraw() DrawList {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDraw
}

func (b *softwareRendererBackendImpl) Resize(int, int) {}

func (b *softwareRendererBackendImpl) Close() error {
	b.sendMu.Lock()
	if b.closed.Swap(true) {
		b.sendMu.Unlock()
		return nil
	}
	close(b.commands)
	b.sendMu.Unlock()
	<-b.done
	b.logger.Debug("software device closed")
	return nil
}
