// Package chunk holds the static voxel world: fixed-size cubes of material
// ids and the store that owns them.
package chunk

import (
	"sync"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// State is the load state of a chunk.
type State uint8

const (
	StateGenerating State = iota
	StateLoaded
	StateUnloading
)

// PhysicsState tracks the static collider of a loaded chunk.
type PhysicsState uint8

const (
	PhysicsNone PhysicsState = iota
	PhysicsPending
	PhysicsUrgent
	PhysicsAttached
)

// Chunk is a cube of Size³ voxels at grid position Pos.
//
// The voxel buffer and solid count are guarded by mu and may be read from
// build workers. State, Physics, Body and AppliedRevision belong to the
// orchestrating goroutine and are not locked.
type Chunk struct {
	Pos  coord.Vec3i
	Size int

	mu       sync.RWMutex
	voxels   []material.ID
	solid    int
	revision uint64
	disposed bool

	State           State
	Physics         PhysicsState
	Body            physics.BodyID
	AppliedRevision uint64
}

// New allocates an empty chunk.
func New(pos coord.Vec3i, size int) *Chunk {
	return &Chunk{
		Pos:    pos,
		Size:   size,
		voxels: make([]material.ID, size*size*size),
		State:  StateGenerating,
	}
}

// Volume returns the number of voxels in a chunk of side size.
func Volume(size int) int { return size * size * size }

// SetFromGrid replaces the voxel contents with grid and marks the chunk
// loaded. grid must have length Size³; shorter input is ignored.
func (c *Chunk) SetFromGrid(grid []material.ID) bool {
	if len(grid) != len(c.voxels) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	copy(c.voxels, grid)
	c.solid = 0
	for _, m := range c.voxels {
		if m != material.Air {
			c.solid++
		}
	}
	c.revision++
	c.State = StateLoaded
	return true
}

// ReadVoxels calls fn with the voxel buffer under the read lock. fn must not
// retain the slice. Returns false on a disposed chunk.
func (c *Chunk) ReadVoxels(fn func(voxels []material.ID)) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return false
	}
	fn(c.voxels)
	return true
}

// VoxelsCopy copies the voxel buffer into dst, growing it if needed, and
// returns it with the revision it was taken at. A disposed chunk returns
// (nil, 0).
func (c *Chunk) VoxelsCopy(dst []material.ID) ([]material.ID, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return nil, 0
	}
	if cap(dst) < len(c.voxels) {
		dst = make([]material.ID, len(c.voxels))
	}
	dst = dst[:len(c.voxels)]
	copy(dst, c.voxels)
	return dst, c.revision
}

// RemoveVoxel clears the voxel at local. It returns the removed material and
// whether a voxel was actually present.
func (c *Chunk) RemoveVoxel(local coord.Vec3i) (material.ID, bool) {
	if !coord.InCube(local, c.Size) {
		return material.Air, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return material.Air, false
	}
	i := coord.Index(local, c.Size)
	m := c.voxels[i]
	if m == material.Air {
		return material.Air, false
	}
	c.voxels[i] = material.Air
	c.solid--
	c.revision++
	return m, true
}

// RemoveVoxels clears every listed voxel under a single write lock and
// returns how many were present.
func (c *Chunk) RemoveVoxels(locals []coord.Vec3i) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return 0
	}
	removed := 0
	for _, l := range locals {
		if !coord.InCube(l, c.Size) {
			continue
		}
		i := coord.Index(l, c.Size)
		if c.voxels[i] != material.Air {
			c.voxels[i] = material.Air
			removed++
		}
	}
	if removed > 0 {
		c.solid -= removed
		c.revision++
	}
	return removed
}

// MaterialAt returns the material at local, or Air when out of range or
// disposed.
func (c *Chunk) MaterialAt(local coord.Vec3i) material.ID {
	if !coord.InCube(local, c.Size) {
		return material.Air
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return material.Air
	}
	return c.voxels[coord.Index(local, c.Size)]
}

// IsSolidAt reports whether a non-air voxel occupies local.
func (c *Chunk) IsSolidAt(local coord.Vec3i) bool {
	return c.MaterialAt(local) != material.Air
}

// SolidCount returns the number of non-air voxels.
func (c *Chunk) SolidCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.solid
}

// Revision increases on every write to the voxel buffer.
func (c *Chunk) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Dispose marks the chunk as torn down. Later calls are no-ops.
func (c *Chunk) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.State = StateUnloading
}

// Disposed reports whether Dispose has been called.
func (c *Chunk) Disposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Origin returns the world voxel coordinate of the chunk's minimum corner.
func (c *Chunk) Origin() coord.Vec3i {
	return c.Pos.Scale(c.Size)
}
