package lod

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestLevelsOfDetailBounds(t *testing.T) {
	p := config.Default()
	last := p.MaxLods + 1
	for e := -60.0; e <= 20; e += 0.25 {
		n := LevelsOfDetail(math.Pow(2, e), p)
		test.That(t, n, test.ShouldBeGreaterThanOrEqualTo, 1)
		test.That(t, n, test.ShouldBeLessThanOrEqualTo, p.MaxLods+1)
		test.That(t, n, test.ShouldBeLessThanOrEqualTo, last)
		last = n
	}

	test.That(t, LevelsOfDetail(0, p), test.ShouldEqual, p.MaxLods+1)
	test.That(t, LevelsOfDetail(-1e-3, p), test.ShouldEqual, p.MaxLods+1)
	test.That(t, LevelsOfDetail(math.Inf(1), p), test.ShouldEqual, 1)
	test.That(t, LevelsOfDetail(math.NaN(), p), test.ShouldEqual, 1)
	test.That(t, LevelsOfDetail(1e-12, p), test.ShouldEqual, p.MaxLods+1)
}

func TestLevelsOfDetailEarthScenario(t *testing.T) {
	p := config.Default()
	const radius = 6371000000000.0
	d := 10000000.0 / radius
	test.That(t, d, test.ShouldAlmostEqual, 1.5696e-6, 1e-9)
	test.That(t, math.Ilogb(d), test.ShouldEqual, -20)
	test.That(t, LevelsOfDetail(d, p), test.ShouldEqual, 19)
}

// converge runs Select until no update is issued, returning the final selection and the number of frames.
func converge(t *testing.T, view cubesphere.Coordinate, d float64, prev []Level, p config.Parameters) (Selection, []Level, int) {
	t.Helper()
	for frame := 1; frame <= p.MaxLods+2; frame++ {
		sel := Select(view, d, prev, p)
		prev = sel.Snaps
		if sel.Update == nil {
			return sel, prev, frame
		}
	}
	t.Fatal("selection did not converge")
	return Selection{}, nil, 0
}

func TestSelectCreatesOneLevelPerFrame(t *testing.T) {
	p := config.Default()
	view := cubesphere.Coordinate{Pos: r2.Point{X: 0.1, Y: -0.2}, Face: cubesphere.FacePosZ}
	const d = 0.04

	first := Select(view, d, nil, p)
	test.That(t, first.Requested, test.ShouldEqual, 4)
	test.That(t, first.Levels, test.ShouldEqual, 2)
	test.That(t, first.Update, test.ShouldNotBeNil)
	test.That(t, first.Update.Lod, test.ShouldEqual, 1)
	test.That(t, first.Update.Prev, test.ShouldBeNil)
	test.That(t, first.Update.Next, test.ShouldResemble, [2]int64{0, -1})
	test.That(t, first.Higher, test.ShouldHaveLength, 1)

	second := Select(view, d, first.Snaps, p)
	test.That(t, second.Update.Lod, test.ShouldEqual, 2)
	test.That(t, second.Update.ParentSnap, test.ShouldResemble, [2]int64{0, -1})
	test.That(t, second.Levels, test.ShouldEqual, 3)

	sel, _, frames := converge(t, view, d, nil, p)
	test.That(t, frames, test.ShouldEqual, 4)
	test.That(t, sel.Levels, test.ShouldEqual, 4)
	test.That(t, sel.Higher, test.ShouldHaveLength, 3)
}

func TestSelectInstancesAndDiscardRegions(t *testing.T) {
	p := config.Default()
	view := cubesphere.Coordinate{Pos: r2.Point{X: 0.1, Y: -0.2}, Face: cubesphere.FacePosZ}
	sel, _, _ := converge(t, view, 0.04, nil, p)

	face := sel.Faces[cubesphere.FacePosZ]
	test.That(t, face.Offset, test.ShouldResemble, r2.Point{X: -0.1, Y: 0.2})
	test.That(t, face.Discard, test.ShouldResemble, Region{Min: r2.Point{X: -0.5, Y: -0.75}, Max: r2.Point{X: 0.5, Y: 0.25}})
	test.That(t, sel.Faces[cubesphere.FaceNegX].Discard.Empty(), test.ShouldBeTrue)
	test.That(t, sel.Faces[cubesphere.FaceNegX].Offset, test.ShouldResemble, r2.Point{})

	lod1 := sel.Higher[0]
	test.That(t, lod1.Center, test.ShouldResemble, r2.Point{X: 0, Y: -0.25})
	test.That(t, lod1.Scale, test.ShouldEqual, 0.5)
	test.That(t, lod1.Offset.X, test.ShouldAlmostEqual, -0.1, 1e-15)
	test.That(t, lod1.Offset.Y, test.ShouldAlmostEqual, -0.05, 1e-15)
	// level 2 snaps to (1, -2), one cell right of twice level 1's (0, -1)
	test.That(t, lod1.Discard, test.ShouldResemble, Region{Min: r2.Point{X: -0.25, Y: -0.5}, Max: r2.Point{X: 0.75, Y: 0.5}})

	finest, ok := sel.Finest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, finest.Lod, test.ShouldEqual, 3)
	test.That(t, finest.Discard.Empty(), test.ShouldBeTrue)
}

func TestSelectThrottlesToCoarsestDirtyLevel(t *testing.T) {
	p := config.Default()
	view := cubesphere.Coordinate{Pos: r2.Point{X: 0.1, Y: -0.2}, Face: cubesphere.FacePosZ}
	_, prev, _ := converge(t, view, 0.04, nil, p)

	view.Pos = r2.Point{X: 0.4, Y: 0.3}
	sel := Select(view, 0.04, prev, p)
	test.That(t, sel.Update, test.ShouldNotBeNil)
	test.That(t, sel.Update.Lod, test.ShouldEqual, 1)
	test.That(t, *sel.Update.Prev, test.ShouldResemble, prev[1])
	test.That(t, sel.Levels, test.ShouldEqual, 4)
	test.That(t, sel.Snaps[1].Snap, test.ShouldResemble, [2]int64{2, 1})
	test.That(t, sel.Snaps[2], test.ShouldResemble, prev[2])
	test.That(t, sel.Snaps[3], test.ShouldResemble, prev[3])
}

func TestSelectNeverRendersAheadOfParent(t *testing.T) {
	p := config.Default()
	rng := rand.New(rand.NewSource(3))
	view := cubesphere.Coordinate{Face: cubesphere.FacePosY}
	var prev []Level

	for frame := 0; frame < 500; frame++ {
		view.Pos.X = clampToFace(view.Pos.X + (rng.Float64()-0.5)*0.02)
		view.Pos.Y = clampToFace(view.Pos.Y + (rng.Float64()-0.5)*0.02)
		d := math.Pow(2, -float64(rng.Intn(12)))

		sel := Select(view, d, prev, p)
		test.That(t, sel.Levels, test.ShouldBeLessThanOrEqualTo, sel.Requested)
		test.That(t, sel.Higher, test.ShouldHaveLength, sel.Levels-1)

		changed := 0
		for l := 1; l < len(sel.Snaps); l++ {
			if l >= len(prev) || sel.Snaps[l] != prev[l] {
				changed++
				test.That(t, sel.Update, test.ShouldNotBeNil)
				test.That(t, sel.Update.Lod, test.ShouldEqual, l)
			}
		}
		test.That(t, changed, test.ShouldBeLessThanOrEqualTo, 1)
		if sel.Update != nil {
			for l := 1; l < sel.Update.Lod; l++ {
				test.That(t, sel.Snaps[l], test.ShouldResemble, prev[l])
			}
		}
		prev = sel.Snaps
	}
}

func clampToFace(v float64) float64 {
	return math.Max(-0.99, math.Min(0.99, v))
}

func TestSelectRegeneratesAfterFaceChange(t *testing.T) {
	p := config.Default()
	view := cubesphere.Coordinate{Pos: r2.Point{X: 0.99, Y: 0}, Face: cubesphere.FacePosZ}
	_, prev, _ := converge(t, view, 0.04, nil, p)

	view = cubesphere.Coordinate{Pos: r2.Point{X: 0, Y: -0.99}, Face: cubesphere.FacePosX}
	sel := Select(view, 0.04, prev, p)
	test.That(t, sel.Update.Lod, test.ShouldEqual, 1)
	test.That(t, sel.Update.Prev, test.ShouldBeNil)
	test.That(t, sel.Update.Face, test.ShouldEqual, cubesphere.FacePosX)
	test.That(t, sel.Levels, test.ShouldEqual, 2)
}

func TestRenderedCap(t *testing.T) {
	p := config.Default()
	view := cubesphere.Coordinate{Pos: r2.Point{X: 0.1, Y: -0.2}, Face: cubesphere.FacePosZ}
	sel, _, _ := converge(t, view, 0.04, nil, p)

	all := sel.Rendered(view.Face, 10)
	test.That(t, all, test.ShouldHaveLength, cubesphere.FaceCount+3)

	capped := sel.Rendered(view.Face, 2)
	test.That(t, capped, test.ShouldHaveLength, 3)
	test.That(t, capped[0].Face, test.ShouldEqual, cubesphere.FacePosZ)
	test.That(t, capped[0].Scale, test.ShouldEqual, 1.0)
	test.That(t, capped[1].Lod, test.ShouldEqual, 2)
	test.That(t, capped[2].Lod, test.ShouldEqual, 3)
	test.That(t, capped[0].Discard, test.ShouldResemble, Region{
		Min: r2.Point{X: -0.125, Y: -0.5},
		Max: r2.Point{X: 0.375, Y: 0},
	})
	// capping never touches the selection itself
	test.That(t, sel.Higher, test.ShouldHaveLength, 3)
}
