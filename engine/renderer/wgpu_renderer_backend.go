package renderer

import (
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// bytesPerRowAlignment is the row pitch WebGPU requires for texture to buffer copies.
	bytesPerRowAlignment = 256
)

type wgpuImage struct {
	label   string
	size    int
	layers  int
	texture *wgpu.Texture
	// array is the write-only storage view of every layer, used by the initialization pass.
	array *wgpu.TextureView
	// storage and sampled hold one single-layer view per layer, so a detail pass can write one layer
	// while reading another.
	storage []*wgpu.TextureView
	sampled []*wgpu.TextureView
}

func (i *wgpuImage) Label() string { return i.label }
func (i *wgpuImage) Size() int     { return i.size }
func (i *wgpuImage) Layers() int   { return i.layers }

type wgpuBuffer struct {
	label  string
	floats int
	buffer *wgpu.Buffer
	mapped atomic.Bool
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Len() int      { return b.floats }

type wgpuFence struct {
	device *wgpu.Device
	ready  atomic.Bool
}

// IsReady polls the device without waiting, which lets pending map callbacks fire.
func (f *wgpuFence) IsReady() bool {
	if !f.ready.Load() {
		f.device.Poll(false, nil)
	}
	return f.ready.Load()
}

// initParams mirrors InitParams in terrain_init.wgsl.
type initParams struct {
	Seed [4]float32
	Dims [4]uint32
}

// detailParams mirrors DetailParams in terrain_detail.wgsl.
type detailParams struct {
	Center [4]float32
	Fx     [4]float32
	Fy     [4]float32
	Fxx    [4]float32
	Fxy    [4]float32
	Fyy    [4]float32
	Parent [4]float32
	Seed   [4]float32
	Shift  [4]int32
	Prev   [4]int32
	Slots  [4]uint32
}

type wgpuMesh struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount int
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.SugaredLogger

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount

	// encoder collects copies and passes until the next flush.
	encoder *wgpu.CommandEncoder

	seed    [4]float32
	octaves uint32

	initShader     shader.Shader
	detailShader   shader.Shader
	initLayout     *wgpu.BindGroupLayout
	initPipeline   *wgpu.ComputePipeline
	initUniforms   *wgpu.Buffer
	detailLayout   *wgpu.BindGroupLayout
	detailPipeline *wgpu.ComputePipeline
	basePipeline   *wgpu.ComputePipeline
	detailUniforms *wgpu.Buffer

	meshes    map[string]*wgpuMesh
	instances *wgpu.Buffer
	uniforms  *wgpu.Buffer
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend requests an adapter and device and builds the terrain compute pipelines.
//
// Parameters:
//   - win: the window to present to, or nil for an offscreen device
//   - field: the elevation field whose seed and octave count drive the GPU noise
//   - forceFallbackAdapter: request the software adapter
//   - sampleCount: the MSAA sample count of the presented pass
//   - logger: the logger
//
// Returns:
//   - *wgpuRendererBackendImpl: the backend
//   - error: an error if no adapter or device is available or a pipeline fails to build
func newWGPURendererBackend(
	win window.Window,
	field terrain.Field,
	forceFallbackAdapter bool,
	sampleCount MSAASampleCount,
	logger *zap.SugaredLogger,
) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		logger:      logger,
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		octaves:     1,
		meshes:      make(map[string]*wgpuMesh),
	}
	if nf, ok := field.(*terrain.NoiseField); ok {
		b.seed = seedOffset(nf.Seed())
		b.octaves = uint32(nf.Octaves())
	}

	if win != nil {
		if desc := win.SurfaceDescriptor(); desc != nil {
			b.surface = b.instance.CreateSurface(desc)
		}
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, errors.Wrap(err, "requesting adapter")
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Planet Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "requesting device")
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.buildPipelines(); err != nil {
		return nil, err
	}
	return b, nil
}

// seedOffset turns an integer seed into a translation of the noise domain.
func seedOffset(seed int64) [4]float32 {
	r := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	return [4]float32{r.Float32() * 256, r.Float32() * 256, r.Float32() * 256, 0}
}

func (b *wgpuRendererBackendImpl) buildPipelines() error {
	var err error
	if b.initShader, err = shader.TerrainInit(); err != nil {
		return err
	}
	if b.detailShader, err = shader.TerrainDetail(); err != nil {
		return err
	}

	b.initLayout, err = b.bindGroupLayout(b.initShader, shader.AnnotationArgInitParams, len(common.StructToBytes(&initParams{})))
	if err != nil {
		return err
	}
	b.detailLayout, err = b.bindGroupLayout(b.detailShader, shader.AnnotationArgDetailParams, len(common.StructToBytes(&detailParams{})))
	if err != nil {
		return err
	}

	b.initPipeline, err = b.computePipeline(b.initShader, shader.EntryInit, b.initLayout)
	if err != nil {
		return err
	}
	b.detailPipeline, err = b.computePipeline(b.detailShader, shader.EntryDetail, b.detailLayout)
	if err != nil {
		return err
	}
	b.basePipeline, err = b.computePipeline(b.detailShader, shader.EntryBase, b.detailLayout)
	if err != nil {
		return err
	}

	b.initUniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Terrain Init Params",
		Size:  uint64(len(common.StructToBytes(&initParams{}))),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "creating init params buffer")
	}
	b.detailUniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Terrain Detail Params",
		Size:  uint64(len(common.StructToBytes(&detailParams{}))),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "creating detail params buffer")
	}
	return nil
}

// bindGroupLayout creates the layout of group 0 as parsed from the shader, after checking that the
// Go mirror of its uniform block has the size the shader declares.
func (b *wgpuRendererBackendImpl) bindGroupLayout(sh shader.Shader, block shader.AnnotationArg, hostSize int) (*wgpu.BindGroupLayout, error) {
	desc := sh.BindGroupLayoutDescriptor(0)
	_, binding, ok := sh.Binding(block)
	if !ok {
		return nil, errors.Errorf("%s declares no %s binding", sh.Key(), block)
	}
	for _, e := range desc.Entries {
		if e.Binding == binding && e.Buffer.MinBindingSize != uint64(hostSize) {
			return nil, errors.Errorf("%s declares %s as %d bytes, the host writes %d",
				sh.Key(), block, e.Buffer.MinBindingSize, hostSize)
		}
	}
	desc.Label = sh.Key() + " Layout"
	layout, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s bind group layout", sh.Key())
	}
	return layout, nil
}

func (b *wgpuRendererBackendImpl) computePipeline(sh shader.Shader, entry string, layout *wgpu.BindGroupLayout) (*wgpu.ComputePipeline, error) {
	label := sh.Key()
	module, err := b.device.CreateShaderModule(sh.Module())
	if err != nil {
		return nil, errors.Wrapf(err, "compiling %s shader", label)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s pipeline layout", label)
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + " " + entry,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s pipeline", label)
	}
	return created, nil
}

// bindEntry returns the entry for a named resource at the binding the shader declared it.
func bindEntry(sh shader.Shader, resource shader.AnnotationArg, entry wgpu.BindGroupEntry) wgpu.BindGroupEntry {
	_, entry.Binding, _ = sh.Binding(resource)
	return entry
}

// workgroups returns how many workgroups cover n invocations along one axis of an entry point.
func workgroups(sh shader.Shader, entry string, axis, n int) uint32 {
	size, _ := sh.WorkgroupSize(entry)
	w := max(int(size[axis]), 1)
	return uint32((n + w - 1) / w)
}

// Resize reconfigures the surface. It is a no-op for an offscreen device.
func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	storeOp := wgpu.StoreOpStore
	b.msaaTextureView = nil
	if count > 1 {
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			b.logger.Errorw("creating msaa texture", "error", err)
			return
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			b.logger.Errorw("creating msaa view", "error", err)
			return
		}
		storeOp = wgpu.StoreOpDiscard
	}

	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.msaaTextureView, // nil when MSAA is off; set per frame
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
				ClearValue: wgpu.Color{
					R: 0.02, G: 0.02, B: 0.05, A: 1.0,
				},
			},
		},
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// pending returns the open command encoder, creating one if needed. Callers hold mu.
func (b *wgpuRendererBackendImpl) pending() (*wgpu.CommandEncoder, error) {
	if b.encoder != nil {
		return b.encoder, nil
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating command encoder")
	}
	b.encoder = encoder
	return encoder, nil
}

// flush submits the open command encoder. Callers hold mu.
func (b *wgpuRendererBackendImpl) flush() error {
	if b.encoder == nil {
		return nil
	}
	encoder := b.encoder
	b.encoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finishing command encoder")
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) CreateLayeredImage(label string, size, layers int) (Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: uint32(layers),
		},
		Format:        wgpu.TextureFormatR32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	img := &wgpuImage{
		label:   label,
		size:    size,
		layers:  layers,
		texture: tex,
		storage: make([]*wgpu.TextureView, layers),
		sampled: make([]*wgpu.TextureView, layers),
	}
	img.array, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " Array View",
		Format:          wgpu.TextureFormatR32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: uint32(layers),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}
	for layer := range layers {
		desc := &wgpu.TextureViewDescriptor{
			Label:           label + " Layer View",
			Format:          wgpu.TextureFormatR32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(layer),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		}
		if img.storage[layer], err = tex.CreateView(desc); err != nil {
			return nil, err
		}
		if img.sampled[layer], err = tex.CreateView(desc); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (b *wgpuRendererBackendImpl) CreateOffsetStore(label string, slots int) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(slots * 2 * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: label, floats: slots * 2, buffer: buf}, nil
}

func (b *wgpuRendererBackendImpl) CreateReadbackBuffer(label string, floats int) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(max(floats*4, bytesPerRowAlignment)),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: label, floats: floats, buffer: buf}, nil
}

// UploadMesh creates the vertex and index buffers of a mesh. Uploading under an existing label replaces it.
func (b *wgpuRendererBackendImpl) UploadMesh(label string, vertices []float32, indices []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mesh := &wgpuMesh{indexCount: len(indices)}
	if len(vertices) > 0 {
		data := common.SliceToBytes(vertices)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Vertex Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, data)
		mesh.vertices = buf
	}
	if len(indices) > 0 {
		data := common.SliceToBytes(indices)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Index Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, data)
		mesh.indices = buf
	}

	if old, ok := b.meshes[label]; ok {
		if old.vertices != nil {
			old.vertices.Release()
		}
		if old.indices != nil {
			old.indices.Release()
		}
	}
	b.meshes[label] = mesh
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchInitialize(job InitializeJob) error {
	img, ok := job.Image.(*wgpuImage)
	if !ok {
		return errors.Errorf("image %q was not created by the wgpu backend", job.Image.Label())
	}
	offsets, ok := job.Offsets.(*wgpuBuffer)
	if !ok {
		return errors.Errorf("buffer %q was not created by the wgpu backend", job.Offsets.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	params := initParams{
		Seed: b.seed,
		Dims: [4]uint32{uint32(img.size), b.octaves},
	}
	b.queue.WriteBuffer(b.initUniforms, 0, common.StructToBytes(&params))

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Terrain Init Bind Group",
		Layout: b.initLayout,
		Entries: []wgpu.BindGroupEntry{
			bindEntry(b.initShader, shader.AnnotationArgInitParams, wgpu.BindGroupEntry{Buffer: b.initUniforms, Size: wgpu.WholeSize}),
			bindEntry(b.initShader, shader.AnnotationArgAtlas, wgpu.BindGroupEntry{TextureView: img.array}),
			bindEntry(b.initShader, shader.AnnotationArgBaseOffset, wgpu.BindGroupEntry{Buffer: offsets.buffer, Size: wgpu.WholeSize}),
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.pending()
	if err != nil {
		return err
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.initPipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(
		workgroups(b.initShader, shader.EntryInit, 0, img.size),
		workgroups(b.initShader, shader.EntryInit, 1, img.size),
		workgroups(b.initShader, shader.EntryInit, 2, 6))
	pass.End()

	// The uniform block is shared by every dispatch, so each one is submitted before the next write.
	return b.flush()
}

func (b *wgpuRendererBackendImpl) DispatchDetail(job DetailJob) error {
	img, ok := job.Image.(*wgpuImage)
	if !ok {
		return errors.Errorf("image %q was not created by the wgpu backend", job.Image.Label())
	}
	offsets, ok := job.Offsets.(*wgpuBuffer)
	if !ok {
		return errors.Errorf("buffer %q was not created by the wgpu backend", job.Offsets.Label())
	}
	if job.Target < 0 || job.Target >= img.layers || job.Parent < 0 || job.Parent >= img.layers {
		return errors.Errorf("slot %d or parent %d out of range for %d layers", job.Target, job.Parent, img.layers)
	}
	if job.Target == job.Parent {
		return errors.Errorf("slot %d cannot be its own parent", job.Target)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	params := detailJobParams(job, img.size, b.seed, b.octaves)
	b.queue.WriteBuffer(b.detailUniforms, 0, common.StructToBytes(&params))

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Terrain Detail Bind Group",
		Layout: b.detailLayout,
		Entries: []wgpu.BindGroupEntry{
			bindEntry(b.detailShader, shader.AnnotationArgDetailParams, wgpu.BindGroupEntry{Buffer: b.detailUniforms, Size: wgpu.WholeSize}),
			bindEntry(b.detailShader, shader.AnnotationArgTargetLayer, wgpu.BindGroupEntry{TextureView: img.storage[job.Target]}),
			bindEntry(b.detailShader, shader.AnnotationArgParentLayer, wgpu.BindGroupEntry{TextureView: img.sampled[job.Parent]}),
			bindEntry(b.detailShader, shader.AnnotationArgBaseOffset, wgpu.BindGroupEntry{Buffer: offsets.buffer, Size: wgpu.WholeSize}),
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.pending()
	if err != nil {
		return err
	}
	if job.Prev == nil {
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(b.basePipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.DispatchWorkgroups(1, 1, 1)
		pass.End()
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.detailPipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(
		workgroups(b.detailShader, shader.EntryDetail, 0, img.size),
		workgroups(b.detailShader, shader.EntryDetail, 1, img.size),
		1)
	pass.End()

	return b.flush()
}

// detailJobParams packs a detail job into the shader's uniform block.
func detailJobParams(job DetailJob, size int, seed [4]float32, octaves uint32) detailParams {
	center := job.Tile.Center()
	parentCenter := job.ParentTile.Center()
	pos := cubesphere.Spherize(center, job.Face)

	vec := func(x, y, z, w float64) [4]float32 {
		return [4]float32{float32(x), float32(y), float32(z), float32(w)}
	}
	p := detailParams{
		Center: vec(pos.X, pos.Y, pos.Z, job.Tile.Scale()),
		Fx:     vec(job.Derivatives.Fx.X, job.Derivatives.Fx.Y, job.Derivatives.Fx.Z, 0),
		Fy:     vec(job.Derivatives.Fy.X, job.Derivatives.Fy.Y, job.Derivatives.Fy.Z, 0),
		Fxx:    vec(job.Curvature.Fxx.X, job.Curvature.Fxx.Y, job.Curvature.Fxx.Z, 0),
		Fxy:    vec(job.Curvature.Fxy.X, job.Curvature.Fxy.Y, job.Curvature.Fxy.Z, 0),
		Fyy:    vec(job.Curvature.Fyy.X, job.Curvature.Fyy.Y, job.Curvature.Fyy.Z, 0),
		Parent: vec(center.X-parentCenter.X, center.Y-parentCenter.Y, job.ParentTile.Scale(), 0),
		Seed:   seed,
		Slots:  [4]uint32{uint32(job.Target), uint32(job.Parent), uint32(size), octaves},
	}

	shift := job.Tile.TexelShift(size)
	parentShift := job.ParentTile.TexelShift(size)
	p.Shift = [4]int32{int32(shift[0]), int32(shift[1]), int32(parentShift[0]), int32(parentShift[1])}
	if job.Prev != nil {
		d := job.Tile.TexelDelta(*job.Prev, size)
		p.Prev = [4]int32{int32(d[0]), int32(d[1]), 1, 0}
	}
	return p
}

func (b *wgpuRendererBackendImpl) Barrier() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flush(); err != nil {
		b.logger.Errorw("barrier flush failed", "error", err)
	}
}

func (b *wgpuRendererBackendImpl) CopyTexel(src Image, layer, x, y int, dst Buffer, index int) error {
	img, ok := src.(*wgpuImage)
	if !ok {
		return errors.Errorf("image %q was not created by the wgpu backend", src.Label())
	}
	buf, ok := dst.(*wgpuBuffer)
	if !ok {
		return errors.Errorf("buffer %q was not created by the wgpu backend", dst.Label())
	}
	if layer < 0 || layer >= img.layers || x < 0 || x >= img.size || y < 0 || y >= img.size {
		return errors.Errorf("texel (%d, %d) of layer %d is outside %q", x, y, layer, img.label)
	}
	if index < 0 || index >= buf.floats {
		return errors.Errorf("index %d is outside %q", index, buf.label)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.pending()
	if err != nil {
		return err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  img.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y), Z: uint32(layer)},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Layout: wgpu.TextureDataLayout{
				Offset:       uint64(index * 4),
				BytesPerRow:  bytesPerRowAlignment,
				RowsPerImage: 1,
			},
			Buffer: buf.buffer,
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) CopyOffset(src Buffer, slot int, dst Buffer, index int) error {
	from, ok := src.(*wgpuBuffer)
	if !ok {
		return errors.Errorf("buffer %q was not created by the wgpu backend", src.Label())
	}
	to, ok := dst.(*wgpuBuffer)
	if !ok {
		return errors.Errorf("buffer %q was not created by the wgpu backend", dst.Label())
	}
	if slot < 0 || 2*slot+2 > from.floats || index < 0 || index+2 > to.floats {
		return errors.Errorf("offset copy of slot %d into index %d is out of range", slot, index)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.pending()
	if err != nil {
		return err
	}
	encoder.CopyBufferToBuffer(from.buffer, uint64(slot*8), to.buffer, uint64(index*4), 8)
	return nil
}

// Fence submits everything issued so far and maps the readback buffer once it completes.
func (b *wgpuRendererBackendImpl) Fence(readback Buffer) (Fence, error) {
	buf, ok := readback.(*wgpuBuffer)
	if !ok {
		return nil, errors.Errorf("buffer %q was not created by the wgpu backend", readback.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.flush(); err != nil {
		return nil, err
	}

	f := &wgpuFence{device: b.device}
	buf.buffer.MapAsync(wgpu.MapModeRead, 0, buf.buffer.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			b.logger.Warnw("readback map failed", "buffer", buf.label, "status", status)
		} else {
			buf.mapped.Store(true)
		}
		f.ready.Store(true)
	})
	return f, nil
}

// ReadBuffer returns the contents of a mapped readback buffer and unmaps it for reuse.
func (b *wgpuRendererBackendImpl) ReadBuffer(buf Buffer) ([]float32, error) {
	rb, ok := buf.(*wgpuBuffer)
	if !ok {
		return nil, errors.Errorf("buffer %q was not created by the wgpu backend", buf.Label())
	}
	if !rb.mapped.Load() {
		return nil, errors.Errorf("buffer %q is not mapped", rb.label)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	raw := rb.buffer.GetMappedRange(0, uint(rb.floats*4))
	out := append([]float32(nil), common.BytesToFloat32s(raw)...)
	rb.buffer.Unmap()
	rb.mapped.Store(false)
	return out, nil
}

// SubmitDraw uploads the instance attributes and draw uniforms, then clears and presents the surface when
// there is one. Shading the terrain is left to the rasterization stage that consumes these buffers.
func (b *wgpuRendererBackendImpl) SubmitDraw(draw DrawList) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(draw.Instances) > 0 {
		data := common.SliceToBytes(draw.Instances)
		if b.instances == nil || b.instances.GetSize() < uint64(len(data)) {
			if b.instances != nil {
				b.instances.Release()
			}
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: draw.Label + " Instance Buffer",
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return err
			}
			b.instances = buf
		}
		b.queue.WriteBuffer(b.instances, 0, data)
	}

	uniforms := common.StructToBytes(&draw.Uniforms)
	if b.uniforms == nil {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Draw Uniforms",
			Size:  uint64(len(uniforms)),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.uniforms = buf
	}
	b.queue.WriteBuffer(b.uniforms, 0, uniforms)

	if b.surface == nil || b.renderPassDescriptor == nil {
		return b.flush()
	}
	return b.present()
}

// present clears the next surface image and presents it. Callers hold mu.
func (b *wgpuRendererBackendImpl) present() error {
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return errors.Wrap(err, "acquiring surface texture")
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return errors.Wrap(err, "creating surface view")
	}
	defer view.Release()

	// When MSAA is enabled the MSAA texture is the color attachment and the swapchain view is resolved into.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	encoder, err := b.pending()
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	pass.End()
	if err := b.flush(); err != nil {
		return err
	}
	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder != nil {
		b.encoder.Release()
		b.encoder = nil
	}
	for label, mesh := range b.meshes {
		if mesh.vertices != nil {
			mesh.vertices.Release()
		}
		if mesh.indices != nil {
			mesh.indices.Release()
		}
		delete(b.meshes, label)
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
	return nil
}
