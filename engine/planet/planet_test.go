package planet

import (
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

const earthRadius int64 = 6_371_000_000_000

func newEarth() State {
	return NewState(earthRadius, WithLabel("Earth"), WithTerrainFactor(0.0001))
}

// viewerAt places the viewer at offset millimeters from the origin, looking along +x with +z up.
func viewerAt(offset coords.Int3) scene.State {
	return scene.NewState(
		scene.WithPosition(coords.New(coords.Int3{}, offset)),
		scene.WithLook(r3.Vector{X: 1}),
		scene.WithUp(r3.Vector{Z: 1}),
	)
}

func TestNewState(t *testing.T) {
	s := NewState(10, WithLabel(""), WithPosition(coords.New(coords.Int3{1, 2, 3}, coords.Int3{})), WithRotationAngle(1))
	test.That(t, s.Label, test.ShouldEqual, "Planet")
	test.That(t, s.Radius, test.ShouldEqual, int64(10))
	test.That(t, s.TerrainFactor, test.ShouldEqual, 0.0001)
	test.That(t, s.RotationAngle, test.ShouldEqual, 1.0)
	test.That(t, s.InRange(coords.New(coords.Int3{1, 2, 3}, coords.Int3{5, 5, 5})), test.ShouldBeTrue)
	test.That(t, s.InRange(coords.New(coords.Int3{1, 2, 4}, coords.Int3{})), test.ShouldBeFalse)

	s.PlayerTerrainHeight = 7
	body := s.Body()
	test.That(t, body.Radius, test.ShouldEqual, int64(10))
	test.That(t, body.TerrainHeight, test.ShouldEqual, int64(7))
	test.That(t, body.Position, test.ShouldResemble, s.Position)
}

func TestRotate(t *testing.T) {
	s := NewState(1)
	s.Rotate(0.5, 2)
	test.That(t, s.RotationAngle, test.ShouldAlmostEqual, 1.0)
	s.Rotate(1, -2)
	test.That(t, s.RotationAngle, test.ShouldAlmostEqual, 2*math.Pi-1)

	s.RotationAngle = math.Pi / 2
	v := s.ToLocal(r3.Vector{X: 1})
	test.That(t, v.Sub(r3.Vector{Y: -1}).Norm(), test.ShouldBeLessThan, 1e-12)
}

func TestGridMesh(t *testing.T) {
	vertices, indices := GridMesh(2)
	test.That(t, len(vertices), test.ShouldEqual, 18)
	test.That(t, len(indices), test.ShouldEqual, 24)
	test.That(t, vertices[:2], test.ShouldResemble, []float32{-1, -1})
	test.That(t, vertices[8:10], test.ShouldResemble, []float32{0, 0})
	test.That(t, vertices[16:], test.ShouldResemble, []float32{1, 1})
	test.That(t, indices[:6], test.ShouldResemble, []uint32{0, 1, 4, 0, 4, 3})
	for _, i := range indices {
		test.That(t, i, test.ShouldBeLessThan, uint32(9))
	}

	vertices, indices = GridMesh(0)
	test.That(t, vertices, test.ShouldBeNil)
	test.That(t, indices, test.ShouldBeNil)
}

func TestFrameCulledPlanetDoesNoWork(t *testing.T) {
	dev := renderertest.NewDevice()
	pass := NewPass(dev, config.Default())
	earth := NewState(earthRadius, WithPosition(coords.New(coords.Int3{1, 0, 0}, coords.Int3{})))

	report, err := pass.Frame(&earth, viewerAt(coords.Int3{0, 0, earthRadius + 10_000_000}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Culled, test.ShouldBeTrue)
	test.That(t, dev.Ops, test.ShouldBeNil)
	test.That(t, dev.Stats(), test.ShouldResemble, renderer.Stats{})
	test.That(t, earth.Atlas, test.ShouldBeNil)
	test.That(t, earth.Feedback, test.ShouldBeNil)
}

func TestFrameEarthScenario(t *testing.T) {
	dev := renderertest.NewDevice()
	params := config.Default()
	pass := NewPass(dev, params)
	earth := newEarth()
	view := viewerAt(coords.Int3{0, 0, earthRadius + 10_000_000})

	report, err := pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Culled, test.ShouldBeFalse)
	test.That(t, report.View.Face, test.ShouldEqual, cubesphere.FacePosZ)
	test.That(t, report.Requested, test.ShouldEqual, 19)
	test.That(t, report.Levels, test.ShouldEqual, 2)
	test.That(t, report.Instances, test.ShouldEqual, 7)
	test.That(t, report.Update, test.ShouldNotBeNil)
	test.That(t, report.Update.Index, test.ShouldEqual, 6)
	test.That(t, report.Issued, test.ShouldBeTrue)

	test.That(t, dev.Meshes["Earth Grid"], test.ShouldEqual, 6*params.GridSize*params.GridSize)
	test.That(t, dev.Images[0].Label(), test.ShouldEqual, "Earth Atlas")
	test.That(t, len(dev.Initializes), test.ShouldEqual, 1)

	draw := dev.Draws[0]
	test.That(t, draw.Label, test.ShouldEqual, "Earth")
	test.That(t, draw.Uniforms.Viewer[2], test.ShouldEqual, float32(cubesphere.FacePosZ))
	test.That(t, float64(draw.Uniforms.Viewer[3]), test.ShouldAlmostEqual, 1.0, 1e-5)
	test.That(t, draw.Uniforms.Terrain[0], test.ShouldEqual, float32(0.0001))
	test.That(t, draw.Instances[6].Slot, test.ShouldEqual, uint32(6))
	for f := 0; f < cubesphere.FaceCount; f++ {
		test.That(t, draw.Instances[f].Slot, test.ShouldEqual, uint32(f))
		test.That(t, draw.Instances[f].Scale, test.ShouldEqual, float32(1))
	}

	// One level is created per frame, coarsest first, each from the one above it.
	for frame := 2; frame <= 18; frame++ {
		report, err = pass.Frame(&earth, view)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, report.Levels, test.ShouldEqual, frame+1)
		test.That(t, report.Update, test.ShouldNotBeNil)
		test.That(t, report.Update.Lod, test.ShouldEqual, frame)
		test.That(t, len(dev.Details), test.ShouldEqual, frame)
		test.That(t, report.Issued, test.ShouldEqual, frame <= params.NumPbos)
	}
	test.That(t, dev.Details[0].Parent, test.ShouldEqual, int(cubesphere.FacePosZ))
	for i := 1; i < len(dev.Details); i++ {
		test.That(t, dev.Details[i].Parent, test.ShouldEqual, dev.Details[i-1].Target)
	}
	test.That(t, report.Levels, test.ShouldEqual, report.Requested)
	test.That(t, report.Instances, test.ShouldEqual, 1+params.MaxRenderLods)
	test.That(t, len(earth.SnapNumbers), test.ShouldEqual, 19)

	// Nothing is dirty once every level exists.
	report, err = pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Update, test.ShouldBeNil)
	test.That(t, len(dev.Details), test.ShouldEqual, 18)
	test.That(t, len(dev.Draws), test.ShouldEqual, 19)
}

func TestFrameMovingViewerUpdatesOneLevel(t *testing.T) {
	dev := renderertest.NewDevice()
	pass := NewPass(dev, config.Default())
	earth := newEarth()
	view := viewerAt(coords.Int3{0, 0, earthRadius + 10_000_000})
	for range 18 {
		_, err := pass.Frame(&earth, view)
		test.That(t, err, test.ShouldBeNil)
	}
	before := len(dev.Details)

	// Moving 0.3 rad around the planet at the same altitude dirties every level at once.
	r := float64(earthRadius + 10_000_000)
	view.Position = coords.New(coords.Int3{}, coords.Int3{int64(r * math.Sin(0.3)), 0, int64(r * math.Cos(0.3))})
	for range 3 {
		report, err := pass.Frame(&earth, view)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, report.Update, test.ShouldNotBeNil)
	}
	test.That(t, len(dev.Details), test.ShouldEqual, before+3)
	test.That(t, dev.Details[before].Tile.Lod, test.ShouldEqual, 1)
	test.That(t, dev.Details[before+1].Tile.Lod, test.ShouldEqual, 2)
	test.That(t, dev.Details[before+2].Tile.Lod, test.ShouldEqual, 3)
	test.That(t, dev.Details[before].Prev, test.ShouldNotBeNil)
}

func TestFrameFeedbackUpdatesGroundHeight(t *testing.T) {
	dev := renderertest.NewDevice()
	dev.Texel = func(layer, x, y int) float32 { return 0.5 }
	pass := NewPass(dev, config.Default())
	earth := newEarth()
	// 0.2 radii above the surface keeps a single detail level.
	view := viewerAt(coords.Int3{0, 0, earthRadius + earthRadius/5})

	report, err := pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Requested, test.ShouldEqual, 2)
	test.That(t, report.Issued, test.ShouldBeTrue)

	offsets := earth.Atlas.Offsets().(*renderertest.Buffer)
	offsets.Data[12], offsets.Data[13] = 0.25, 0.125

	report, err = pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Issued, test.ShouldBeTrue)
	test.That(t, earth.Feedback.Len(), test.ShouldEqual, 2)

	// The second sample completes first and must wait for the first.
	dev.Fences[1].Signal()
	report, err = pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Samples, test.ShouldEqual, 0)
	test.That(t, earth.PlayerTerrainHeight, test.ShouldEqual, int64(0))

	dev.Fences[0].Signal()
	report, err = pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Samples, test.ShouldEqual, 2)
	test.That(t, earth.BaseOffsetUV, test.ShouldResemble, [2]float64{0.25, 0.125})
	test.That(t, earth.BaseHeight, test.ShouldEqual, int64(238_912_500))
	test.That(t, earth.PlayerTerrainHeight, test.ShouldEqual, int64(557_462_500))
	test.That(t, dev.Draws[len(dev.Draws)-1].Uniforms.Terrain[1], test.ShouldEqual, float32(0))
}

func TestFrameQueueNotServicedWhileCulled(t *testing.T) {
	dev := renderertest.NewDevice()
	dev.Texel = func(layer, x, y int) float32 { return 0.5 }
	pass := NewPass(dev, config.Default())
	earth := newEarth()
	view := viewerAt(coords.Int3{0, 0, earthRadius + earthRadius/5})

	_, err := pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	dev.Fences[0].Signal()
	dev.Reset()

	away := view
	away.Position.Coarse = coords.Int3{0, 0, 1}
	report, err := pass.Frame(&earth, away)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Culled, test.ShouldBeTrue)
	test.That(t, dev.Ops, test.ShouldBeNil)
	test.That(t, earth.Feedback.Len(), test.ShouldEqual, 1)
	test.That(t, earth.PlayerTerrainHeight, test.ShouldEqual, int64(0))

	report, err = pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Samples, test.ShouldEqual, 1)
	test.That(t, earth.PlayerTerrainHeight, test.ShouldEqual, int64(318_550_000))
}

func TestFrameRotatedPlanet(t *testing.T) {
	dev := renderertest.NewDevice()
	pass := NewPass(dev, config.Default())
	earth := NewState(earthRadius, WithRotationAngle(math.Pi/2))

	report, err := pass.Frame(&earth, viewerAt(coords.Int3{earthRadius + earthRadius/5, 0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.View.Face, test.ShouldEqual, cubesphere.FaceNegY)
}

func TestFrameAtlasFailureKeepsSnapRecord(t *testing.T) {
	dev := renderertest.NewDevice()
	pass := NewPass(dev, config.Default())
	earth := newEarth()
	view := viewerAt(coords.Int3{0, 0, earthRadius + 10_000_000})

	dev.Fail = "DispatchDetail"
	_, err := pass.Frame(&earth, view)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Earth level 1")
	test.That(t, earth.SnapNumbers, test.ShouldBeNil)

	dev.Fail = ""
	report, err := pass.Frame(&earth, view)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Update.Lod, test.ShouldEqual, 1)
	test.That(t, len(dev.Initializes), test.ShouldEqual, 1)
}

func TestFrameInitializeFailure(t *testing.T) {
	dev := renderertest.NewDevice()
	dev.Fail = "CreateLayeredImage"
	pass := NewPass(dev, config.Default())
	earth := newEarth()

	_, err := pass.Frame(&earth, viewerAt(coords.Int3{0, 0, earthRadius * 2}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "initializing Earth")
	test.That(t, dev.Draws, test.ShouldBeNil)
}

func TestFrameCrossingFaceSeamThenLanding(t *testing.T) {
	dev := renderertest.NewDevice()
	dev.AutoSignal = true
	params := config.Default()
	pass := NewPass(dev, params)
	earth := newEarth()

	run := func(view scene.State, frames int) Report {
		t.Helper()
		var report Report
		for i := 0; i < frames; i++ {
			var err error
			report, err = pass.Frame(&earth, view)
			test.That(t, err, test.ShouldBeNil)
		}
		return report
	}

	const high = 10_000_000_000
	report := run(viewerAt(coords.Int3{0, 0, earthRadius + high}), 40)
	test.That(t, report.View.Face, test.ShouldEqual, cubesphere.FacePosZ)
	test.That(t, report.Levels, test.ShouldEqual, report.Requested)

	report = run(viewerAt(coords.Int3{earthRadius + high, 0, 0}), 40)
	test.That(t, report.View.Face, test.ShouldEqual, cubesphere.FacePosX)
	test.That(t, report.Levels, test.ShouldEqual, report.Requested)

	// Landing needs every detail layer for +x, so +z's layers are taken over.
	report = run(viewerAt(coords.Int3{earthRadius + 2_000, 0, 0}), 40)
	test.That(t, report.Requested, test.ShouldEqual, params.MaxLods+1)
	test.That(t, report.Levels, test.ShouldEqual, report.Requested)
	test.That(t, report.Update, test.ShouldBeNil)
	for level := 1; level <= params.MaxLods; level++ {
		slot, ok := earth.Atlas.SlotFor(level, cubesphere.FacePosX)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, slot.Resident, test.ShouldBeTrue)
	}
	_, ok := earth.Atlas.SlotFor(1, cubesphere.FacePosZ)
	test.That(t, ok, test.ShouldBeFalse)
}

// poleField rises towards +z and is exactly 0.75 at the pole.
type poleField struct{}

func (poleField) Elevation(dir r3.Vector) float64 {
	return 0.5 + 0.25*dir.Z
}

func TestFrameGroundHeightConvergesOnSoftwareDevice(t *testing.T) {
	params := config.Default()
	params.TerrainTextureSize = 32
	dev, err := renderer.NewDevice(renderer.BackendTypeSoftware, nil, renderer.WithElevationField(poleField{}))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, dev.Close(), test.ShouldBeNil) }()

	pass := NewPass(dev, params)
	earth := newEarth()
	view := viewerAt(coords.Int3{0, 0, earthRadius + 1_000_000_000})

	scale := earth.TerrainFactor * float64(earthRadius)
	want := int64(math.Round(0.75 * scale))
	converged := func(report Report) bool {
		return report.Update == nil && report.Levels == report.Requested &&
			math.Abs(float64(earth.PlayerTerrainHeight-want)) <= 10
	}

	var report Report
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		report, err = pass.Frame(&earth, view)
		test.That(t, err, test.ShouldBeNil)
		if converged(report) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	test.That(t, converged(report), test.ShouldBeTrue)
	test.That(t, report.Levels, test.ShouldBeGreaterThan, 10)
	test.That(t, earth.BaseHeight, test.ShouldBeGreaterThan, int64(0))
	sample := float64(earth.PlayerTerrainHeight-earth.BaseHeight) / scale
	test.That(t, sample, test.ShouldAlmostEqual, 0.75-earth.BaseOffsetUV[0]-earth.BaseOffsetUV[1], 1e-6)
}
