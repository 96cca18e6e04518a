// Package physics is the boundary to the rigid-body solver. World serialises
// every call into a Backend and advances it with a fixed timestep.
package physics

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/world/collider"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// BodyID identifies a body. Zero is never a valid body.
type BodyID uint64

var (
	ErrUnknownBody = errors.New("physics: unknown body")
	ErrEmptyShape  = errors.New("physics: empty shape")
)

// Pose is a rigid transform.
type Pose struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

// Identity returns a pose at position with no rotation.
func Identity(position mgl32.Vec3) Pose {
	return Pose{Position: position, Orientation: mgl32.QuatIdent()}
}

// BodyState is the full kinematic state of a dynamic body.
type BodyState struct {
	Pose
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
}

// Compound describes a dynamic body made of unit voxel boxes.
type Compound struct {
	Voxels    []coord.Vec3i
	VoxelSize float32
	Material  material.ID
	// Origin is the world pose of the voxel grid's local origin, the
	// minimum corner of voxel (0,0,0).
	Origin Pose
}

// Hit is one ray intersection.
type Hit struct {
	Body     BodyID
	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

// Backend is the solver capability. Implementations need not be safe for
// concurrent use; World holds a lock around every call.
type Backend interface {
	AddStatic(origin mgl32.Vec3, boxes []collider.Box) (BodyID, error)
	// AddCompound creates a dynamic body. The returned offset is the centre
	// of mass in the compound's local voxel frame; the body pose is placed at
	// the centre of mass.
	AddCompound(c Compound) (BodyID, mgl32.Vec3, error)
	Remove(id BodyID) error
	State(id BodyID) (BodyState, bool)
	SetState(id BodyID, s BodyState) error
	// Raycast calls visit for candidate hits until visit returns false.
	Raycast(origin, dir mgl32.Vec3, maxDist float32, visit func(Hit) bool)
	Step(dt float32) error
}
