package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

// spawn creates an object whose local origin sits at origin and gives it
// velocity. It returns nil when the physics world refuses the body.
func (m *Manager) spawn(voxels []coord.Vec3i, mat material.ID, origin physics.Pose, velocity mgl32.Vec3) *object.Object {
	m.nextObjectID++
	o, err := object.New(m.nextObjectID, voxels, mat, m.cfg.VoxelSize, m.queueRemoval)
	if err != nil {
		m.log.Warn("create object", "error", err)
		return nil
	}
	if !o.Spawn(m.phys, origin) {
		m.log.Warn("spawn object", "object", o.ID, "voxels", o.Len())
		return nil
	}
	if velocity != (mgl32.Vec3{}) {
		m.phys.SetVelocity(o.Body(), velocity)
	}
	m.objects[o.ID] = o
	m.byBody[o.Body()] = o
	m.events.ObjectSpawned(o)
	return o
}

// SpawnObject places a new dynamic object in the world.
func (m *Manager) SpawnObject(voxels []coord.Vec3i, mat material.ID, origin physics.Pose) (*object.Object, bool) {
	if m.closed {
		return nil, false
	}
	o := m.spawn(voxels, mat, origin, mgl32.Vec3{})
	return o, o != nil
}

// queueRemoval schedules o for removal at the end of the frame. It is the
// empty hook of every object the manager creates.
func (m *Manager) queueRemoval(o *object.Object) {
	if _, ok := m.removing[o.ID]; ok {
		return
	}
	m.removing[o.ID] = struct{}{}
	m.removals = append(m.removals, o)
}

func (m *Manager) processRemovals() {
	for _, o := range m.removals {
		delete(m.removing, o.ID)
		if _, ok := m.objects[o.ID]; !ok {
			continue
		}
		delete(m.objects, o.ID)
		delete(m.byBody, o.Body())
		o.Dispose(m.phys)
		m.events.ObjectRemoved(o)
	}
	m.removals = m.removals[:0]
}

// syncObjects mirrors physics poses and queues objects that fell out of
// the world.
func (m *Manager) syncObjects() {
	for _, o := range m.objects {
		if !o.SyncPose(m.phys) {
			continue
		}
		if o.Pose().Position.Y() < m.cfg.ObjectKillY {
			m.queueRemoval(o)
		}
	}
}
