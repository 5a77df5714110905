package planet

import (
	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/atlas"
	"github.com/Carmen-Shannon/oxy-planet/engine/camera"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/feedback"
	"github.com/Carmen-Shannon/oxy-planet/engine/lod"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Report summarizes the work one frame did for one planet.
type Report struct {
	// Culled is set when the viewer is in another coarse cell and nothing was done.
	Culled bool
	// View is the viewer's cube coordinate in the planet frame.
	View cubesphere.Coordinate
	// Requested and Levels are the level counts asked for and drawn.
	Requested int
	Levels    int
	// Update is the slot regenerated this frame, or nil.
	Update *atlas.Slot
	// Instances is the number of tiles drawn.
	Instances int
	// Samples is the number of feedback samples drained.
	Samples int
	// Issued reports whether a feedback sample was queued.
	Issued bool
}

// Pass runs the per-frame planet work against a device.
type Pass struct {
	device renderer.Device
	params config.Parameters
	camera camera.Camera
	logger *zap.SugaredLogger
}

// NewPass creates a planet pass.
//
// Parameters:
//   - device: the device every planet allocates its atlas and feedback buffers on
//   - params: the tuning parameters
//   - options: builder options
//
// Returns:
//   - *Pass: the pass
func NewPass(device renderer.Device, params config.Parameters, options ...PassBuilderOption) *Pass {
	p := &Pass{
		device: device,
		params: params,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.camera == nil {
		p.camera = camera.NewCamera()
	}
	return p
}

// Camera returns the camera the pass builds view-projections with.
func (p *Pass) Camera() camera.Camera {
	return p.camera
}

// Frame runs one frame for one planet: voxel cull, lazy setup, level selection, the single atlas update,
// the draw list, then feedback drain and issue. It never waits on the device.
//
// Parameters:
//   - planet: the planet record, updated in place
//   - view: the viewer record
//
// Returns:
//   - Report: what the frame did
//   - error: a device error; the planet's snap record is left unchanged when the atlas update fails
func (p *Pass) Frame(planet *State, view scene.State) (Report, error) {
	rel := view.Position.Sub(planet.Position)
	if !rel.Coarse.IsZero() {
		return Report{Culled: true}, nil
	}
	if err := p.ensure(planet); err != nil {
		return Report{}, err
	}

	offset := planet.ToLocal(rel.FineVector())
	dir := offset
	if dir.Norm() == 0 {
		dir = planet.ToLocal(view.Up)
	}
	cube := cubesphere.Cubize(dir.Normalize())
	d := planet.Altitude(offset)

	sel := lod.Select(cube, d, planet.SnapNumbers, p.params)
	report := Report{View: cube, Requested: sel.Requested, Levels: sel.Levels}

	if sel.Update != nil {
		slot, err := planet.Atlas.RequestUpdate(*sel.Update)
		if err != nil {
			return report, errors.Wrapf(err, "updating %s level %d", planet.Label, sel.Update.Lod)
		}
		report.Update = &slot
	}
	planet.SnapNumbers = sel.Snaps
	if sel.Levels < sel.Requested {
		p.logger.Debugw("delayed lod creation", "planet", planet.Label, "levels", sel.Levels, "requested", sel.Requested)
	}

	instances, err := p.instances(planet, sel.Rendered(cube.Face, p.params.MaxRenderLods))
	if err != nil {
		return report, err
	}
	report.Instances = len(instances)

	draw := renderer.DrawList{
		Label:     planet.Label,
		Atlas:     planet.Atlas.Image(),
		Offsets:   planet.Atlas.Offsets(),
		Uniforms:  p.uniforms(planet, view, offset, cube),
		Instances: instances,
	}
	if err := p.device.SubmitDraw(draw); err != nil {
		return report, errors.Wrapf(err, "drawing %s", planet.Label)
	}

	samples, err := planet.Feedback.Drain()
	if err != nil {
		return report, errors.Wrapf(err, "draining %s feedback", planet.Label)
	}
	for _, s := range samples {
		planet.apply(s)
	}
	report.Samples = len(samples)

	finest, ok := sel.Finest()
	if !ok || planet.Feedback.Full() {
		return report, nil
	}
	slot, ok := planet.Atlas.SlotFor(finest.Lod, finest.Face)
	if !ok || !slot.Resident {
		return report, nil
	}
	x, y := slot.Tile.Texel(cube.Pos, planet.Atlas.Size())
	issued, err := planet.Feedback.Issue(planet.Atlas.Image(), planet.Atlas.Offsets(), slot.Index, x, y)
	if err != nil {
		return report, errors.Wrapf(err, "sampling %s ground height", planet.Label)
	}
	report.Issued = issued
	return report, nil
}

// ensure creates and fills the planet's atlas, grid mesh and feedback queue on first use.
func (p *Pass) ensure(planet *State) error {
	if planet.Atlas == nil {
		planet.Atlas = atlas.NewAtlas(p.device, p.params,
			atlas.WithLogger(p.logger),
			atlas.WithLabel(planet.Label+" Atlas"),
		)
	}
	if !planet.Atlas.Initialized() {
		if err := planet.Atlas.Initialize(); err != nil {
			return errors.Wrapf(err, "initializing %s", planet.Label)
		}
		vertices, indices := GridMesh(p.params.GridSize)
		if err := p.device.UploadMesh(planet.Label+" Grid", vertices, indices); err != nil {
			return errors.Wrapf(err, "uploading %s grid", planet.Label)
		}
	}
	if planet.Feedback == nil {
		fb, err := feedback.NewPipeline(p.device, p.params.NumPbos,
			feedback.WithLogger(p.logger),
			feedback.WithLabel(planet.Label+" Height Feedback"),
		)
		if err != nil {
			return errors.Wrapf(err, "creating %s feedback", planet.Label)
		}
		planet.Feedback = fb
	}
	return nil
}

func (p *Pass) instances(planet *State, rendered []lod.Instance) ([]renderer.InstanceAttributes, error) {
	out := make([]renderer.InstanceAttributes, 0, len(rendered))
	for _, inst := range rendered {
		slot := int(inst.Face)
		if inst.Lod > 0 {
			s, ok := planet.Atlas.SlotFor(inst.Lod, inst.Face)
			if !ok {
				return nil, errors.Errorf("%s level %d on face %s has no atlas slot", planet.Label, inst.Lod, inst.Face)
			}
			slot = s.Index
		}
		out = append(out, renderer.InstanceAttributes{
			Offset: [2]float32{float32(inst.Offset.X), float32(inst.Offset.Y)},
			Scale:  float32(inst.Scale),
			Face:   uint32(inst.Face),
			Discard: [4]float32{
				float32(inst.Discard.Min.X), float32(inst.Discard.Min.Y),
				float32(inst.Discard.Max.X), float32(inst.Discard.Max.Y),
			},
			Slot: uint32(slot),
		})
	}
	return out, nil
}

func (p *Pass) uniforms(planet *State, view scene.State, offset r3.Vector, cube cubesphere.Coordinate) renderer.DrawUniforms {
	radius := float64(planet.Radius)
	p.camera.SetAspect(view.Aspect())
	vp := p.camera.ViewProjection(
		offset.Mul(1/radius),
		planet.ToLocal(view.Look),
		planet.ToLocal(view.Up),
	)

	fd := cubesphere.FirstDerivatives(cube.Pos, cube.Face)
	sd := cubesphere.SecondDerivatives(cube.Pos, cube.Face)
	return renderer.DrawUniforms{
		ViewProjection: vp,
		Fx:             vec4(fd.Fx),
		Fy:             vec4(fd.Fy),
		Fxx:            vec4(sd.Fxx),
		Fxy:            vec4(sd.Fxy),
		Fyy:            vec4(sd.Fyy),
		Viewer: [4]float32{
			float32(cube.Pos.X), float32(cube.Pos.Y), float32(cube.Face), float32(offset.Norm() / radius),
		},
		Terrain: [4]float32{
			float32(planet.TerrainFactor),
			float32(float64(planet.PlayerTerrainHeight) / radius),
			float32(float64(planet.BaseHeight) / radius),
		},
	}
}

func vec4(v r3.Vector) [4]float32 {
	return [4]float32{float32(v.X), float32(v.Y), float32(v.Z), 0}
}
