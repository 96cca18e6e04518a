package world

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/connectivity"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

// DestroyVoxelAt removes the voxel behind a surface hit. hit is the body the
// ray struck, point the world hit point and normal the surface normal. It
// reports whether a voxel was removed.
func (m *Manager) DestroyVoxelAt(hit physics.BodyID, point, normal mgl32.Vec3) bool {
	if m.closed {
		return false
	}
	inner := point.Sub(normal.Mul(m.cfg.VoxelSize * 0.5))
	if o, ok := m.byBody[hit]; ok {
		return m.destroyObjectVoxel(o, inner)
	}
	return m.destroyStaticVoxel(m.voxelAt(inner))
}

// DestroyVoxelByRay casts a ray and destroys the first voxel it hits.
func (m *Manager) DestroyVoxelByRay(origin, dir mgl32.Vec3, maxDist float32) bool {
	if dir.Len() == 0 {
		return false
	}
	hit, ok := m.phys.Raycast(origin, dir.Normalize(), maxDist, 0)
	if !ok {
		return false
	}
	return m.DestroyVoxelAt(hit.Body, hit.Point, hit.Normal)
}

// destroyStaticVoxel clears a world voxel, schedules the urgent collider
// rebuild and detaches any region that lost support.
func (m *Manager) destroyStaticVoxel(v coord.Vec3i) bool {
	cp, local := coord.Split(v, m.cfg.ChunkSize)
	c, ok := m.chunks.Get(cp)
	if !ok || c.State != chunk.StateLoaded {
		return false
	}
	if _, removed := c.RemoveVoxel(local); !removed {
		return false
	}
	m.destroyed++
	m.events.VoxelDestroyed(m.voxelCenter(v))
	m.rebuildUrgent(c)
	m.events.ChunkModified(c)

	m.detachUnsupported(v)
	return true
}

func (m *Manager) rebuildUrgent(c *chunk.Chunk) {
	if m.build.EnqueueUrgent(c) {
		c.Physics = chunk.PhysicsUrgent
	}
}

// detachUnsupported floods from each solid neighbour of a removed voxel and
// turns every cluster that no longer reaches the ground into an object.
func (m *Manager) detachUnsupported(removed coord.Vec3i) {
	probe, lim := m.support()
	visited := make(map[coord.Vec3i]struct{})
	for _, n := range removed.Neighbors6() {
		if _, ok := visited[n]; ok {
			continue
		}
		cluster, grounded := connectivity.Support(n, probe, lim, visited)
		if grounded || len(cluster) == 0 {
			continue
		}
		m.extract(cluster)
	}
}

// extract removes cluster from the static chunks and respawns it as an
// object at the same place.
func (m *Manager) extract(cluster []coord.Vec3i) {
	size := m.cfg.ChunkSize
	byChunk := make(map[coord.Vec3i][]coord.Vec3i)
	mats := make([]material.ID, 0, len(cluster))
	for _, v := range cluster {
		cp, local := coord.Split(v, size)
		c, ok := m.chunks.Get(cp)
		if !ok {
			continue
		}
		mats = append(mats, c.MaterialAt(local))
		byChunk[cp] = append(byChunk[cp], local)
	}

	var touched []*chunk.Chunk
	for cp, locals := range byChunk {
		c, _ := m.chunks.Get(cp)
		if c.RemoveVoxels(locals) > 0 {
			touched = append(touched, c)
		}
	}
	sortChunks(touched)
	for _, c := range touched {
		m.rebuildUrgent(c)
		m.events.ChunkModified(c)
	}

	voxels, origin := object.Rebase(cluster, physics.Identity(mgl32.Vec3{}), m.cfg.VoxelSize)
	if o := m.spawn(voxels, material.Majority(mats), origin, mgl32.Vec3{}); o != nil {
		m.detached++
		m.log.Debug("cluster detached", "object", o.ID, "voxels", o.Len())
	}
}

// destroyObjectVoxel removes one voxel from a dynamic object and handles a
// resulting split or emptying.
func (m *Manager) destroyObjectVoxel(o *object.Object, inner mgl32.Vec3) bool {
	local := o.WorldToLocal(inner)
	center := o.LocalToWorld(local)
	oldBody := o.Body()

	res := o.RemoveVoxel(m.phys, local)
	switch res.Outcome {
	case object.Missing:
		return false
	case object.Rebuilt:
		m.reindex(o, oldBody)
		if o.Body() == 0 {
			m.queueRemoval(o)
		}
	case object.Split:
		delete(m.byBody, oldBody)
		delete(m.objects, o.ID)
		m.events.ObjectRemoved(o)

		pose := res.Last.Pose
		origin := physics.Pose{
			Position:    pose.Position.Sub(pose.Orientation.Rotate(o.COM())),
			Orientation: pose.Orientation,
		}
		for _, part := range res.Parts {
			voxels, at := object.Rebase(part, origin, o.VoxelSize)
			m.spawn(voxels, o.Material, at, res.Last.LinearVelocity)
		}
	case object.Emptied:
		// The empty hook already queued the removal.
	}
	m.destroyed++
	m.events.VoxelDestroyed(center)
	return true
}

func (m *Manager) reindex(o *object.Object, oldBody physics.BodyID) {
	if o.Body() == oldBody {
		return
	}
	delete(m.byBody, oldBody)
	if o.Body() != 0 {
		m.byBody[o.Body()] = o
	}
}

func sortChunks(cs []*chunk.Chunk) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i].Pos, cs[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
}
