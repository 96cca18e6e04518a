package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

// Observer receives world changes. Calls are made synchronously on the
// orchestrating goroutine, in the order the changes happen, once per change.
// Implementations must not call back into the Manager.
type Observer interface {
	ChunkLoaded(c *chunk.Chunk)
	ChunkModified(c *chunk.Chunk)
	ChunkUnloaded(pos coord.Vec3i)
	// VoxelDestroyed reports the world-space centre of a removed voxel.
	VoxelDestroyed(pos mgl32.Vec3)
	ObjectSpawned(o *object.Object)
	ObjectRemoved(o *object.Object)
}

// NopObserver ignores every notification. Embed it to implement only some
// methods.
type NopObserver struct{}

func (NopObserver) ChunkLoaded(*chunk.Chunk)     {}
func (NopObserver) ChunkModified(*chunk.Chunk)   {}
func (NopObserver) ChunkUnloaded(coord.Vec3i)    {}
func (NopObserver) VoxelDestroyed(mgl32.Vec3)    {}
func (NopObserver) ObjectSpawned(*object.Object) {}
func (NopObserver) ObjectRemoved(*object.Object) {}

// Events fans notifications out to observers in registration order.
type Events struct {
	observers []Observer
}

func (e *Events) Add(o Observer) { e.observers = append(e.observers, o) }

func (e *Events) ChunkLoaded(c *chunk.Chunk) {
	for _, o := range e.observers {
		o.ChunkLoaded(c)
	}
}

func (e *Events) ChunkModified(c *chunk.Chunk) {
	for _, o := range e.observers {
		o.ChunkModified(c)
	}
}

func (e *Events) ChunkUnloaded(pos coord.Vec3i) {
	for _, o := range e.observers {
		o.ChunkUnloaded(pos)
	}
}

func (e *Events) VoxelDestroyed(pos mgl32.Vec3) {
	for _, o := range e.observers {
		o.VoxelDestroyed(pos)
	}
}

func (e *Events) ObjectSpawned(obj *object.Object) {
	for _, o := range e.observers {
		o.ObjectSpawned(obj)
	}
}

func (e *Events) ObjectRemoved(obj *object.Object) {
	for _, o := range e.observers {
		o.ObjectRemoved(obj)
	}
}
