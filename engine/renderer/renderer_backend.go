package renderer

// RendererBackendType identifies the backend implementation used by the Device.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU backend. It needs no window and evaluates the elevation field
	// with a worker pool, which makes it suitable for headless runs and tests.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	}
	return "unknown"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend is the set of operations every backend implements. The Device wraps one and adds
// bookkeeping.
type RendererBackend interface {
	CreateLayeredImage(label string, size, layers int) (Image, error)
	CreateOffsetStore(label string, slots int) (Buffer, error)
	CreateReadbackBuffer(label string, floats int) (Buffer, error)
	UploadMesh(label string, vertices []float32, indices []uint32) error

	DispatchInitialize(job InitializeJob) error
	DispatchDetail(job DetailJob) error
	Barrier()

	CopyTexel(src Image, layer, x, y int, dst Buffer, index int) error
	CopyOffset(src Buffer, slot int, dst Buffer, index int) error
	Fence(readback Buffer) (Fence, error)
	ReadBuffer(buf Buffer) ([]float32, error)

	SubmitDraw(draw DrawList) error
	Resize(width, height int)
	Close() error
}
