package atlas

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/lod"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer/renderertest"
	"go.viam.com/test"
)

func testParams(count int) config.Parameters {
	p := config.Default()
	p.TerrainTextureSize = 32
	p.TerrainTextureCount = count
	return p
}

func newInitialized(t *testing.T, count int) (*renderertest.Device, Atlas) {
	t.Helper()
	dev := renderertest.NewDevice()
	a := NewAtlas(dev, testParams(count))
	test.That(t, a.Initialize(), test.ShouldBeNil)
	dev.Reset()
	return dev, a
}

func TestInitialize(t *testing.T) {
	dev := renderertest.NewDevice()
	a := NewAtlas(dev, testParams(36), WithLabel("Earth"))
	test.That(t, a.Initialized(), test.ShouldBeFalse)
	test.That(t, a.Image(), test.ShouldBeNil)

	test.That(t, a.Initialize(), test.ShouldBeNil)
	test.That(t, dev.Ops, test.ShouldResemble, []string{"CreateLayeredImage", "CreateOffsetStore", "DispatchInitialize", "Barrier"})
	test.That(t, a.Image().Label(), test.ShouldEqual, "Earth")
	test.That(t, a.Image().Layers(), test.ShouldEqual, 36)
	test.That(t, a.Offsets().Len(), test.ShouldEqual, 72)
	test.That(t, a.Size(), test.ShouldEqual, 32)

	for f := cubesphere.Face(0); f < cubesphere.FaceCount; f++ {
		s, ok := a.SlotFor(0, f)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, s.Index, test.ShouldEqual, int(f))
		test.That(t, s.Resident, test.ShouldBeTrue)
		test.That(t, s.Scale(), test.ShouldEqual, 1.0)
	}
	test.That(t, a.Slots()[6].Resident, test.ShouldBeFalse)

	// A second call is a no-op.
	test.That(t, a.Initialize(), test.ShouldBeNil)
	test.That(t, len(dev.Ops), test.ShouldEqual, 4)
}

func TestInitializeFailures(t *testing.T) {
	dev := renderertest.NewDevice()
	test.That(t, NewAtlas(dev, testParams(6)).Initialize(), test.ShouldNotBeNil)

	dev.Fail = "DispatchInitialize"
	a := NewAtlas(dev, testParams(36))
	test.That(t, a.Initialize(), test.ShouldNotBeNil)
	test.That(t, a.Initialized(), test.ShouldBeFalse)
}

func TestRequestUpdateBindsSlotsAndBarriers(t *testing.T) {
	dev, a := newInitialized(t, 36)

	slot, err := a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FacePosZ, Next: [2]int64{1, -1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 6)
	test.That(t, slot.Parent, test.ShouldEqual, int(cubesphere.FacePosZ))
	test.That(t, slot.Tile.Snap, test.ShouldResemble, [2]int64{1, -1})
	test.That(t, slot.Align().X, test.ShouldEqual, 0.25)
	test.That(t, slot.Align().Y, test.ShouldEqual, 0.75)
	test.That(t, dev.Ops, test.ShouldResemble, []string{"DispatchDetail", "Barrier"})

	job := dev.Details[0]
	test.That(t, job.Target, test.ShouldEqual, 6)
	test.That(t, job.Parent, test.ShouldEqual, 4)
	test.That(t, job.Prev, test.ShouldBeNil)
	test.That(t, job.ParentTile.Lod, test.ShouldEqual, 0)
	want := cubesphere.FirstDerivatives(job.Tile.Center(), cubesphere.FacePosZ)
	test.That(t, job.Derivatives, test.ShouldResemble, want)

	// Moving the same level reuses the slot and keeps the texels still inside the window.
	prev := lod.Level{Snap: [2]int64{1, -1}, Face: cubesphere.FacePosZ}
	slot, err = a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FacePosZ, Prev: &prev, Next: [2]int64{2, -1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 6)
	test.That(t, dev.Details[1].Prev, test.ShouldNotBeNil)
	test.That(t, dev.Details[1].Prev.Snap, test.ShouldResemble, [2]int64{1, -1})

	// A child needs the parent's committed snap.
	_, err = a.RequestUpdate(lod.Update{Lod: 2, Face: cubesphere.FacePosZ, Next: [2]int64{4, -2}, ParentSnap: [2]int64{1, -1}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(dev.Details), test.ShouldEqual, 2)

	slot, err = a.RequestUpdate(lod.Update{Lod: 2, Face: cubesphere.FacePosZ, Next: [2]int64{4, -2}, ParentSnap: [2]int64{2, -1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 7)
	test.That(t, slot.Parent, test.ShouldEqual, 6)
	test.That(t, dev.Details[2].ParentTile.Snap, test.ShouldResemble, [2]int64{2, -1})
}

func TestRequestUpdateRejectsBadRequests(t *testing.T) {
	dev := renderertest.NewDevice()
	a := NewAtlas(dev, testParams(36))
	_, err := a.RequestUpdate(lod.Update{Lod: 1})
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, a.Initialize(), test.ShouldBeNil)
	_, err = a.RequestUpdate(lod.Update{Lod: 0})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = a.RequestUpdate(lod.Update{Lod: 3, Face: cubesphere.FacePosX})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not resident")
}

func TestFaceChangeRegeneratesFully(t *testing.T) {
	dev, a := newInitialized(t, 36)
	_, err := a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FacePosZ})
	test.That(t, err, test.ShouldBeNil)

	// The stale record names another face, so nothing can be kept.
	prev := lod.Level{Face: cubesphere.FacePosX}
	slot, err := a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FacePosX, Prev: &prev})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 7)
	test.That(t, dev.Details[1].Prev, test.ShouldBeNil)
}

func TestExhaustedAtlasRebindsSameLevel(t *testing.T) {
	dev, a := newInitialized(t, 8)

	_, err := a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FacePosZ})
	test.That(t, err, test.ShouldBeNil)
	_, err = a.RequestUpdate(lod.Update{Lod: 2, Face: cubesphere.FacePosZ})
	test.That(t, err, test.ShouldBeNil)

	slot, err := a.RequestUpdate(lod.Update{Lod: 1, Face: cubesphere.FaceNegX})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 6)
	test.That(t, slot.Face, test.ShouldEqual, cubesphere.FaceNegX)
	test.That(t, dev.Details[2].Prev, test.ShouldBeNil)

	_, ok := a.SlotFor(1, cubesphere.FacePosZ)
	test.That(t, ok, test.ShouldBeFalse)

	// Two detail layers cannot hold three levels of one face.
	_, err = a.RequestUpdate(lod.Update{Lod: 2, Face: cubesphere.FaceNegX})
	test.That(t, err, test.ShouldBeNil)
	_, err = a.RequestUpdate(lod.Update{Lod: 3, Face: cubesphere.FaceNegX})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExhaustedAtlasRebindsFinestLevelOfAnotherFace(t *testing.T) {
	_, a := newInitialized(t, 10)

	for _, face := range []cubesphere.Face{cubesphere.FacePosZ, cubesphere.FaceNegX} {
		for level := 1; level <= 2; level++ {
			_, err := a.RequestUpdate(lod.Update{Lod: level, Face: face})
			test.That(t, err, test.ShouldBeNil)
		}
	}

	// -x goes deeper than +z ever did: +z's finest layer goes first, then its coarser one.
	slot, err := a.RequestUpdate(lod.Update{Lod: 3, Face: cubesphere.FaceNegX})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 7)
	test.That(t, slot.Lod, test.ShouldEqual, 3)
	test.That(t, slot.Face, test.ShouldEqual, cubesphere.FaceNegX)
	test.That(t, slot.Parent, test.ShouldEqual, 9)

	slot, err = a.RequestUpdate(lod.Update{Lod: 4, Face: cubesphere.FaceNegX})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slot.Index, test.ShouldEqual, 6)

	_, ok := a.SlotFor(1, cubesphere.FacePosZ)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = a.SlotFor(2, cubesphere.FacePosZ)
	test.That(t, ok, test.ShouldBeFalse)
	root, ok := a.SlotFor(0, cubesphere.FacePosZ)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, root.Index, test.ShouldEqual, int(cubesphere.FacePosZ))
}

func TestMinimumAtlasNeverRunsOut(t *testing.T) {
	const maxLods = 5
	_, a := newInitialized(t, maxLods+cubesphere.FaceCount)

	visits := []struct {
		face  cubesphere.Face
		depth int
	}{
		{cubesphere.FacePosZ, 2},
		{cubesphere.FacePosX, maxLods},
		{cubesphere.FaceNegY, 3},
		{cubesphere.FacePosZ, maxLods},
		{cubesphere.FaceNegX, 1},
		{cubesphere.FacePosX, maxLods},
	}
	for _, v := range visits {
		for level := 1; level <= v.depth; level++ {
			_, err := a.RequestUpdate(lod.Update{Lod: level, Face: v.face})
			test.That(t, err, test.ShouldBeNil)
		}
	}

	for level := 1; level <= maxLods; level++ {
		slot, ok := a.SlotFor(level, cubesphere.FacePosX)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, slot.Face, test.ShouldEqual, cubesphere.FacePosX)
		test.That(t, slot.Resident, test.ShouldBeTrue)
	}
}
