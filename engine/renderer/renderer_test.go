package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-planet/common"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/cogentcore/webgpu/wgpu"
	"go.viam.com/test"
)

func TestNewDeviceSoftwareNeedsField(t *testing.T) {
	_, err := NewDevice(BackendTypeSoftware, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewDevice(RendererBackendType(9), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDeviceCountsCommands(t *testing.T) {
	d, err := NewDevice(BackendTypeSoftware, nil, WithElevationField(terrain.FlatField(0.5)), WithWorkers(2))
	test.That(t, err, test.ShouldBeNil)
	defer d.Close()
	test.That(t, d.Backend(), test.ShouldEqual, BackendTypeSoftware)
	test.That(t, d.Backend().String(), test.ShouldEqual, "software")

	img, err := d.CreateLayeredImage("atlas", 8, 7)
	test.That(t, err, test.ShouldBeNil)
	off, err := d.CreateOffsetStore("offsets", 7)
	test.That(t, err, test.ShouldBeNil)
	readback, err := d.CreateReadbackBuffer("readback", 3)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, d.DispatchInitialize(InitializeJob{Image: img, Offsets: off}), test.ShouldBeNil)
	d.Barrier()
	test.That(t, d.CopyTexel(img, 0, 1, 1, readback, 0), test.ShouldBeNil)
	test.That(t, d.CopyOffset(off, 0, readback, 1), test.ShouldBeNil)
	fence, err := d.Fence(readback)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.SubmitDraw(DrawList{Label: "planet"}), test.ShouldBeNil)

	d.(*device).backend.(*softwareRendererBackendImpl).WaitIdle()
	test.That(t, fence.IsReady(), test.ShouldBeTrue)
	test.That(t, d.Stats(), test.ShouldResemble, Stats{Dispatches: 1, Barriers: 1, Copies: 2, Fences: 1, Draws: 1})

	values, err := d.ReadBuffer(readback)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, values[0], test.ShouldEqual, float32(0.5))
}

func TestDeviceWrapsErrors(t *testing.T) {
	d, err := NewDevice(BackendTypeSoftware, nil, WithElevationField(terrain.FlatField(0)))
	test.That(t, err, test.ShouldBeNil)
	defer d.Close()

	_, err = d.CreateLayeredImage("atlas", 0, 6)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"atlas"`)

	img, err := d.CreateLayeredImage("atlas", 8, 7)
	test.That(t, err, test.ShouldBeNil)
	off, err := d.CreateOffsetStore("offsets", 7)
	test.That(t, err, test.ShouldBeNil)
	err = d.DispatchDetail(DetailJob{Image: img, Offsets: off, Target: 6, Parent: 6})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "slot 6")
}

func TestDetailJobParams(t *testing.T) {
	const size = 16
	tile := terrain.Tile{Lod: 1, Snap: [2]int64{1, -1}, SnapSize: 4}
	prev := terrain.Tile{Lod: 1, Snap: [2]int64{0, -1}, SnapSize: 4}
	job := DetailJob{
		Target:     6,
		Parent:     int(cubesphere.FaceNegY),
		Face:       cubesphere.FaceNegY,
		Tile:       tile,
		ParentTile: terrain.Tile{SnapSize: 4},
	}

	p := detailJobParams(job, size, [4]float32{1, 2, 3, 0}, 5)
	test.That(t, p.Slots, test.ShouldResemble, [4]uint32{6, 3, size, 5})
	test.That(t, p.Shift, test.ShouldResemble, [4]int32{4, 12, 0, 0})
	test.That(t, p.Prev, test.ShouldResemble, [4]int32{})
	test.That(t, p.Parent, test.ShouldResemble, [4]float32{0.25, -0.25, 1, 0})
	test.That(t, p.Center[3], test.ShouldEqual, float32(0.5))
	test.That(t, p.Seed, test.ShouldResemble, [4]float32{1, 2, 3, 0})

	want := cubesphere.Spherize(tile.Center(), cubesphere.FaceNegY)
	test.That(t, float64(p.Center[0]), test.ShouldAlmostEqual, want.X, 1e-6)
	test.That(t, float64(p.Center[1]), test.ShouldAlmostEqual, want.Y, 1e-6)
	test.That(t, float64(p.Center[2]), test.ShouldAlmostEqual, want.Z, 1e-6)

	job.Prev = &prev
	p = detailJobParams(job, size, [4]float32{}, 5)
	test.That(t, p.Prev, test.ShouldResemble, [4]int32{4, 0, 1, 0})
}

func TestUniformBlockSizes(t *testing.T) {
	test.That(t, len(common.StructToBytes(&initParams{})), test.ShouldEqual, 32)
	test.That(t, len(common.StructToBytes(&detailParams{})), test.ShouldEqual, 176)
	test.That(t, len(common.StructToBytes(&InstanceAttributes{})), test.ShouldEqual, 48)
	test.That(t, seedOffset(11), test.ShouldResemble, seedOffset(11))
}

func TestShaderParamsMatchHostLayout(t *testing.T) {
	for _, tc := range []struct {
		load  func() (shader.Shader, error)
		block shader.AnnotationArg
		size  int
	}{
		{shader.TerrainInit, shader.AnnotationArgInitParams, len(common.StructToBytes(&initParams{}))},
		{shader.TerrainDetail, shader.AnnotationArgDetailParams, len(common.StructToBytes(&detailParams{}))},
	} {
		sh, err := tc.load()
		test.That(t, err, test.ShouldBeNil)
		group, binding, ok := sh.Binding(tc.block)
		test.That(t, ok, test.ShouldBeTrue)
		entries := sh.BindGroupLayoutDescriptor(group).Entries
		test.That(t, entries[binding].Binding, test.ShouldEqual, binding)
		test.That(t, entries[binding].Buffer.MinBindingSize, test.ShouldEqual, uint64(tc.size))
	}
}

func TestWorkgroupsCoverTexture(t *testing.T) {
	sh, err := shader.TerrainDetail()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, workgroups(sh, shader.EntryDetail, 0, 256), test.ShouldEqual, uint32(16))
	test.That(t, workgroups(sh, shader.EntryDetail, 1, 257), test.ShouldEqual, uint32(17))
	test.That(t, workgroups(sh, shader.EntryBase, 0, 256), test.ShouldEqual, uint32(256))
	test.That(t, workgroups(sh, "missing", 0, 5), test.ShouldEqual, uint32(5))

	e := bindEntry(sh, shader.AnnotationArgParentLayer, wgpu.BindGroupEntry{})
	test.That(t, e.Binding, test.ShouldEqual, uint32(2))
}
