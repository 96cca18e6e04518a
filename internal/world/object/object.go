// Package object implements detached voxel clusters simulated as dynamic
// rigid bodies.
package object

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/world/connectivity"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// ID identifies an object for the lifetime of the process.
type ID uint64

var ErrEmpty = errors.New("object: no voxels")

// Physics is the part of the physics world an object needs.
type Physics interface {
	CreateDynamicCompound(voxels []coord.Vec3i, voxelSize float32, mat material.ID, origin physics.Pose) (physics.BodyID, mgl32.Vec3)
	UpdateDynamicCompound(id physics.BodyID, voxels []coord.Vec3i, voxelSize float32, mat material.ID, oldCOM mgl32.Vec3) (physics.BodyID, mgl32.Vec3)
	RemoveBody(id physics.BodyID)
	State(id physics.BodyID) (physics.BodyState, bool)
}

// Outcome describes what a voxel removal did to an object.
type Outcome uint8

const (
	// Missing means no voxel was present at the coordinate.
	Missing Outcome = iota
	// Rebuilt means the object shrank and its shape was rebuilt.
	Rebuilt
	// Split means the object fell apart; it is disposed and Parts holds the
	// pieces to respawn.
	Split
	// Emptied means the last voxel is gone and the object awaits removal.
	Emptied
)

// Removal is the result of RemoveVoxel.
type Removal struct {
	Outcome Outcome
	Parts   [][]coord.Vec3i
	// Last is the body state just before a split, used to place the parts.
	Last physics.BodyState
}

// Object is a dynamic cluster of unit voxels forming one body.
//
// Voxel coordinates are local: voxel v occupies [v, v+1) × VoxelSize in the
// object frame, whose origin sits at Pose.Position - Pose.Orientation*COM.
type Object struct {
	ID        ID
	Material  material.ID
	VoxelSize float32

	voxels   map[coord.Vec3i]struct{}
	body     physics.BodyID
	com      mgl32.Vec3
	pose     physics.Pose
	lo, hi   coord.Vec3i
	emptied  bool
	disposed bool
	onEmpty  func(*Object)
}

// New creates an unspawned object. onEmpty runs once when the last voxel is
// removed; it may be nil.
func New(id ID, voxels []coord.Vec3i, mat material.ID, voxelSize float32, onEmpty func(*Object)) (*Object, error) {
	if len(voxels) == 0 {
		return nil, ErrEmpty
	}
	o := &Object{
		ID:        id,
		Material:  mat,
		VoxelSize: voxelSize,
		voxels:    make(map[coord.Vec3i]struct{}, len(voxels)),
		onEmpty:   onEmpty,
	}
	for _, v := range voxels {
		o.voxels[v] = struct{}{}
	}
	o.recomputeBounds()
	return o, nil
}

// Spawn registers the object with phys, placing its local origin at origin.
func (o *Object) Spawn(phys Physics, origin physics.Pose) bool {
	if o.disposed || o.body != 0 {
		return false
	}
	id, com := phys.CreateDynamicCompound(o.Voxels(), o.VoxelSize, o.Material, origin)
	if id == 0 {
		return false
	}
	o.body, o.com = id, com
	o.pose = physics.Pose{
		Position:    origin.Position.Add(origin.Orientation.Rotate(com)),
		Orientation: origin.Orientation,
	}
	return true
}

// RemoveVoxel deletes the voxel at local and updates the body.
func (o *Object) RemoveVoxel(phys Physics, local coord.Vec3i) Removal {
	if o.disposed || o.emptied {
		return Removal{Outcome: Missing}
	}
	if _, ok := o.voxels[local]; !ok {
		return Removal{Outcome: Missing}
	}
	delete(o.voxels, local)

	if len(o.voxels) == 0 {
		o.emptied = true
		if o.onEmpty != nil {
			o.onEmpty(o)
		}
		return Removal{Outcome: Emptied}
	}

	parts := connectivity.Components(o.Voxels())
	if len(parts) > 1 {
		last, _ := phys.State(o.body)
		o.Dispose(phys)
		return Removal{Outcome: Split, Parts: parts, Last: last}
	}

	o.Rebuild(phys)
	return Removal{Outcome: Rebuilt}
}

// Rebuild recreates the compound shape, centre of mass and bounds from the
// current voxel set. Emptied or disposed objects are left alone.
func (o *Object) Rebuild(phys Physics) bool {
	if o.disposed || o.emptied || len(o.voxels) == 0 {
		return false
	}
	o.recomputeBounds()
	if o.body == 0 {
		return false
	}
	id, com := phys.UpdateDynamicCompound(o.body, o.Voxels(), o.VoxelSize, o.Material, o.com)
	o.body, o.com = id, com
	if id == 0 {
		return false
	}
	o.SyncPose(phys)
	return true
}

// SyncPose copies the current pose from the physics world.
func (o *Object) SyncPose(phys Physics) bool {
	if o.body == 0 {
		return false
	}
	st, ok := phys.State(o.body)
	if !ok {
		return false
	}
	o.pose = st.Pose
	return true
}

// Dispose removes the body. It is safe to call more than once.
func (o *Object) Dispose(phys Physics) {
	if o.disposed {
		return
	}
	o.disposed = true
	if o.body != 0 {
		phys.RemoveBody(o.body)
		o.body = 0
	}
}

// Voxels returns the voxel set sorted by Z, Y, X.
func (o *Object) Voxels() []coord.Vec3i {
	out := make([]coord.Vec3i, 0, len(o.voxels))
	for v := range o.voxels {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// Has reports whether local is occupied.
func (o *Object) Has(local coord.Vec3i) bool {
	_, ok := o.voxels[local]
	return ok
}

func (o *Object) Len() int             { return len(o.voxels) }
func (o *Object) Body() physics.BodyID { return o.body }
func (o *Object) COM() mgl32.Vec3      { return o.com }
func (o *Object) Pose() physics.Pose   { return o.pose }
func (o *Object) Disposed() bool       { return o.disposed }
func (o *Object) Emptied() bool        { return o.emptied }

// Bounds returns the inclusive local voxel bounds.
func (o *Object) Bounds() (lo, hi coord.Vec3i) { return o.lo, o.hi }

// Origin returns the world pose of the local voxel origin.
func (o *Object) Origin() physics.Pose {
	return physics.Pose{
		Position:    o.pose.Position.Sub(o.pose.Orientation.Rotate(o.com)),
		Orientation: o.pose.Orientation,
	}
}

// WorldToLocal maps a world point to the local voxel containing it.
func (o *Object) WorldToLocal(p mgl32.Vec3) coord.Vec3i {
	local := o.pose.Orientation.Inverse().Rotate(p.Sub(o.pose.Position)).Add(o.com)
	return coord.Vec3i{
		X: int(math.Floor(float64(local.X() / o.VoxelSize))),
		Y: int(math.Floor(float64(local.Y() / o.VoxelSize))),
		Z: int(math.Floor(float64(local.Z() / o.VoxelSize))),
	}
}

// LocalToWorld returns the world position of a local voxel's centre.
func (o *Object) LocalToWorld(v coord.Vec3i) mgl32.Vec3 {
	c := mgl32.Vec3{float32(v.X) + 0.5, float32(v.Y) + 0.5, float32(v.Z) + 0.5}.Mul(o.VoxelSize)
	return o.pose.Position.Add(o.pose.Orientation.Rotate(c.Sub(o.com)))
}

func (o *Object) recomputeBounds() {
	first := true
	for v := range o.voxels {
		if first {
			o.lo, o.hi, first = v, v, false
			continue
		}
		o.lo.X, o.hi.X = min(o.lo.X, v.X), max(o.hi.X, v.X)
		o.lo.Y, o.hi.Y = min(o.lo.Y, v.Y), max(o.hi.Y, v.Y)
		o.lo.Z, o.hi.Z = min(o.lo.Z, v.Z), max(o.hi.Z, v.Z)
	}
}

// Rebase shifts voxels so their minimum corner is the origin and moves
// origin to match, keeping every voxel at the same world position.
func Rebase(voxels []coord.Vec3i, origin physics.Pose, voxelSize float32) ([]coord.Vec3i, physics.Pose) {
	lo, _, ok := coord.Bounds(voxels)
	if !ok {
		return voxels, origin
	}
	out := make([]coord.Vec3i, len(voxels))
	for i, v := range voxels {
		out[i] = v.Sub(lo)
	}
	shift := mgl32.Vec3{float32(lo.X), float32(lo.Y), float32(lo.Z)}.Mul(voxelSize)
	return out, physics.Pose{
		Position:    origin.Position.Add(origin.Orientation.Rotate(shift)),
		Orientation: origin.Orientation,
	}
}
