// Package atlas manages the layered elevation image of one planet: which layer holds which tile, and the
// dispatches that fill them.
package atlas

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/cubesphere"
	"github.com/Carmen-Shannon/oxy-planet/engine/lod"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NoParent marks a slot without a parent layer.
const NoParent = -1

// Slot is the bookkeeping record of one atlas layer.
type Slot struct {
	Index  int
	Lod    int
	Face   cubesphere.Face
	Parent int
	// Tile is the window the layer currently holds.
	Tile terrain.Tile
	// Resident reports whether the layer holds data.
	Resident bool
}

// Scale returns the half-width of the slot's tile in face units.
func (s Slot) Scale() float64 {
	return s.Tile.Scale()
}

// Align returns the toroidal alignment offset of the slot's window.
func (s Slot) Align() r2.Point {
	return s.Tile.Align()
}

type slotKey struct {
	lod  int
	face cubesphere.Face
}

// Atlas owns the layered elevation image and the per-slot base offset store of one planet.
//
// Layers 0..5 hold the six whole faces. Every other layer is bound to one (level, face) pair the first time
// that pair needs data and keeps it until the atlas runs out of layers and another face needs one.
type Atlas interface {
	// Initialize allocates the image and offset store and fills the six face layers. It issues a full
	// barrier, so every later command observes the faces.
	//
	// Returns:
	//   - error: an error if a resource cannot be created or the dispatch fails
	Initialize() error

	// Initialized reports whether Initialize has completed.
	Initialized() bool

	// RequestUpdate issues the single regeneration of this frame followed by a full barrier.
	//
	// Parameters:
	//   - update: the level to regenerate, as selected by lod.Select
	//
	// Returns:
	//   - Slot: the slot written, with its new tile
	//   - error: an error if the parent level is not committed or the dispatch fails
	RequestUpdate(update lod.Update) (Slot, error)

	// SlotFor returns the slot bound to a level of a face.
	//
	// Parameters:
	//   - level: the detail level, 0 for a whole face
	//   - face: the face
	//
	// Returns:
	//   - Slot: the slot record
	//   - bool: false when the pair has no slot yet
	SlotFor(level int, face cubesphere.Face) (Slot, bool)

	// Slots returns a copy of every slot record, indexed by layer.
	Slots() []Slot

	// Image returns the layered elevation image, nil before Initialize.
	Image() renderer.Image

	// Offsets returns the base offset store, nil before Initialize.
	Offsets() renderer.Buffer

	// Size returns the edge length of a layer in texels.
	Size() int
}

type atlas struct {
	device renderer.Device
	logger *zap.SugaredLogger
	label  string

	size     int
	count    int
	snapSize int

	image   renderer.Image
	offsets renderer.Buffer
	slots   []Slot
	bound   map[slotKey]int
	next    int
}

var _ Atlas = &atlas{}

// NewAtlas creates an atlas. No device resources are allocated until Initialize.
//
// Parameters:
//   - device: the device that owns the image
//   - params: the tuning parameters; TerrainTextureSize, TerrainTextureCount and SnapSize are used
//   - options: builder options
//
// Returns:
//   - Atlas: the atlas
func NewAtlas(device renderer.Device, params config.Parameters, options ...AtlasBuilderOption) Atlas {
	a := &atlas{
		device:   device,
		logger:   zap.NewNop().Sugar(),
		label:    "Terrain Atlas",
		size:     params.TerrainTextureSize,
		count:    params.TerrainTextureCount,
		snapSize: params.SnapSize,
		bound:    make(map[slotKey]int),
		next:     cubesphere.FaceCount,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *atlas) Initialize() error {
	if a.Initialized() {
		return nil
	}
	if a.count < cubesphere.FaceCount+1 {
		return errors.Errorf("atlas needs at least %d layers, got %d", cubesphere.FaceCount+1, a.count)
	}

	img, err := a.device.CreateLayeredImage(a.label, a.size, a.count)
	if err != nil {
		return err
	}
	offsets, err := a.device.CreateOffsetStore(a.label+" Offsets", a.count)
	if err != nil {
		return err
	}
	if err := a.device.DispatchInitialize(renderer.InitializeJob{Image: img, Offsets: offsets}); err != nil {
		return err
	}
	a.device.Barrier()

	a.slots = make([]Slot, a.count)
	for i := range a.slots {
		a.slots[i] = Slot{Index: i, Parent: NoParent}
	}
	for f := cubesphere.Face(0); f < cubesphere.FaceCount; f++ {
		a.slots[f] = Slot{
			Index:    int(f),
			Face:     f,
			Parent:   NoParent,
			Tile:     terrain.Tile{SnapSize: a.snapSize},
			Resident: true,
		}
		a.bound[slotKey{0, f}] = int(f)
	}
	a.image, a.offsets = img, offsets

	a.logger.Infow("atlas allocated", "label", a.label, "layers", a.count, "size", a.size)
	return nil
}

func (a *atlas) Initialized() bool {
	return a.image != nil
}

// bind returns the slot for (level, face), binding a free layer on first use. When every layer is taken, a
// detail layer bound to another face is rebound: the same level if one exists, otherwise the finest level,
// lowest layer first. A face needs at most one layer per level, so with at least maxLods detail layers
// some other face always holds one.
func (a *atlas) bind(level int, face cubesphere.Face) (int, error) {
	key := slotKey{level, face}
	if idx, ok := a.bound[key]; ok {
		return idx, nil
	}
	if a.next < a.count {
		idx := a.next
		a.next++
		a.bound[key] = idx
		a.slots[idx] = Slot{Index: idx, Lod: level, Face: face, Parent: NoParent}
		return idx, nil
	}

	victim, found := slotKey{}, false
	for k, idx := range a.bound {
		if k.lod == 0 || k.face == face {
			continue
		}
		if !found || evicts(k, idx, victim, a.bound[victim], level) {
			victim, found = k, true
		}
	}
	if !found {
		return 0, errors.Errorf("no atlas layer available for lod %d on %s", level, face)
	}

	idx := a.bound[victim]
	delete(a.bound, victim)
	a.bound[key] = idx
	a.slots[idx] = Slot{Index: idx, Lod: level, Face: face, Parent: NoParent}
	a.logger.Warnw("atlas exhausted, rebinding slot",
		"slot", idx,
		"from_lod", victim.lod,
		"from", victim.face.String(),
		"lod", level,
		"to", face.String(),
	)
	return idx, nil
}

// evicts reports whether candidate k at layer idx is a better rebinding victim than cur at layer curIdx.
func evicts(k slotKey, idx int, cur slotKey, curIdx int, level int) bool {
	if (k.lod == level) != (cur.lod == level) {
		return k.lod == level
	}
	if k.lod != cur.lod {
		return k.lod > cur.lod
	}
	return idx < curIdx
}

func (a *atlas) RequestUpdate(update lod.Update) (Slot, error) {
	if !a.Initialized() {
		return Slot{}, errors.New("atlas is not initialized")
	}
	if update.Lod < 1 {
		return Slot{}, errors.Errorf("lod %d cannot be updated, level 0 is written by Initialize", update.Lod)
	}

	parent, ok := a.SlotFor(update.Lod-1, update.Face)
	if !ok || !parent.Resident {
		return Slot{}, errors.Errorf("parent of lod %d on %s is not resident", update.Lod, update.Face)
	}
	if update.Lod > 1 && parent.Tile.Snap != update.ParentSnap {
		return Slot{}, errors.Errorf("parent of lod %d on %s holds snap %v, update expects %v",
			update.Lod, update.Face, parent.Tile.Snap, update.ParentSnap)
	}

	idx, err := a.bind(update.Lod, update.Face)
	if err != nil {
		return Slot{}, err
	}
	slot := a.slots[idx]
	tile := update.Tile(a.snapSize)
	center := tile.Center()

	job := renderer.DetailJob{
		Image:       a.image,
		Offsets:     a.offsets,
		Target:      idx,
		Parent:      parent.Index,
		Face:        update.Face,
		Tile:        tile,
		ParentTile:  parent.Tile,
		Derivatives: cubesphere.FirstDerivatives(center, update.Face),
		Curvature:   cubesphere.SecondDerivatives(center, update.Face),
	}
	if update.Prev != nil && slot.Resident && slot.Face == update.Face && slot.Tile.Snap == update.Prev.Snap {
		prev := slot.Tile
		job.Prev = &prev
	}

	if err := a.device.DispatchDetail(job); err != nil {
		return Slot{}, err
	}
	a.device.Barrier()

	slot.Parent = parent.Index
	slot.Tile = tile
	slot.Resident = true
	a.slots[idx] = slot

	a.logger.Debugw("lod update",
		"lod", update.Lod,
		"face", update.Face.String(),
		"slot", idx,
		"snap", fmt.Sprint(update.Next),
		"incremental", job.Prev != nil,
	)
	return slot, nil
}

func (a *atlas) SlotFor(level int, face cubesphere.Face) (Slot, bool) {
	idx, ok := a.bound[slotKey{level, face}]
	if !ok {
		return Slot{}, false
	}
	return a.slots[idx], true
}

func (a *atlas) Slots() []Slot {
	return append([]Slot(nil), a.slots...)
}

func (a *atlas) Image() renderer.Image {
	return a.image
}

func (a *atlas) Offsets() renderer.Buffer {
	return a.offsets
}

func (a *atlas) Size() int {
	return a.size
}
