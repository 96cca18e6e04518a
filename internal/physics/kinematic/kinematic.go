// Package kinematic is a small reference physics backend: gravity, damping,
// a floor plane, vertical push-out against static boxes, and exact ray
// queries against every box. It is not a contact solver.
package kinematic

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/world/collider"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// Options configures the backend.
type Options struct {
	Gravity  mgl32.Vec3
	FloorY   float32
	Damping  float32 // fraction of velocity lost per second
	Friction float32 // velocity kept on ground contact, per step
}

// DefaultOptions returns earth-like gravity and a floor at y = 0.
func DefaultOptions() Options {
	return Options{
		Gravity:  mgl32.Vec3{0, -9.81, 0},
		Damping:  0.05,
		Friction: 0.8,
	}
}

type aabb struct {
	lo, hi mgl32.Vec3
}

type body struct {
	static bool
	// Static boxes are in world space. Dynamic boxes are relative to the
	// centre of mass.
	boxes  []aabb
	bounds aabb
	state  physics.BodyState
	mass   float32
}

// Backend implements physics.Backend.
type Backend struct {
	opts   Options
	next   physics.BodyID
	bodies map[physics.BodyID]*body
}

// New creates an empty Backend.
func New(opts Options) *Backend {
	return &Backend{opts: opts, bodies: make(map[physics.BodyID]*body)}
}

// Len returns the number of bodies.
func (b *Backend) Len() int { return len(b.bodies) }

func (b *Backend) add(bd *body) physics.BodyID {
	b.next++
	b.bodies[b.next] = bd
	return b.next
}

func (b *Backend) AddStatic(origin mgl32.Vec3, boxes []collider.Box) (physics.BodyID, error) {
	if len(boxes) == 0 {
		return 0, physics.ErrEmptyShape
	}
	bd := &body{static: true, boxes: make([]aabb, len(boxes))}
	for i, bx := range boxes {
		bd.boxes[i] = aabb{lo: origin.Add(bx.Min()), hi: origin.Add(bx.Max())}
	}
	bd.bounds = union(bd.boxes)
	bd.state.Pose = physics.Identity(origin)
	return b.add(bd), nil
}

func (b *Backend) AddCompound(c physics.Compound) (physics.BodyID, mgl32.Vec3, error) {
	if len(c.Voxels) == 0 {
		return 0, mgl32.Vec3{}, physics.ErrEmptyShape
	}
	vs := c.VoxelSize
	if vs <= 0 {
		vs = 1
	}

	var com mgl32.Vec3
	for _, v := range c.Voxels {
		com = com.Add(voxelCenter(v.X, v.Y, v.Z, vs))
	}
	com = com.Mul(1 / float32(len(c.Voxels)))

	half := mgl32.Vec3{vs / 2, vs / 2, vs / 2}
	bd := &body{boxes: make([]aabb, len(c.Voxels))}
	for i, v := range c.Voxels {
		center := voxelCenter(v.X, v.Y, v.Z, vs).Sub(com)
		bd.boxes[i] = aabb{lo: center.Sub(half), hi: center.Add(half)}
	}
	bd.bounds = union(bd.boxes)

	density := material.Lookup(c.Material).Density
	if density <= 0 {
		density = 1
	}
	bd.mass = density * float32(len(c.Voxels))

	orient := c.Origin.Orientation
	if orient == (mgl32.Quat{}) {
		orient = mgl32.QuatIdent()
	}
	bd.state.Pose = physics.Pose{
		Position:    c.Origin.Position.Add(orient.Rotate(com)),
		Orientation: orient,
	}
	return b.add(bd), com, nil
}

func (b *Backend) Remove(id physics.BodyID) error {
	if _, ok := b.bodies[id]; !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownBody, id)
	}
	delete(b.bodies, id)
	return nil
}

func (b *Backend) State(id physics.BodyID) (physics.BodyState, bool) {
	bd, ok := b.bodies[id]
	if !ok {
		return physics.BodyState{}, false
	}
	return bd.state, true
}

func (b *Backend) SetState(id physics.BodyID, s physics.BodyState) error {
	bd, ok := b.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownBody, id)
	}
	if bd.static {
		return fmt.Errorf("kinematic: body %d is static", id)
	}
	bd.state = s
	return nil
}

func (b *Backend) Step(dt float32) error {
	keep := 1 - b.opts.Damping*dt
	if keep < 0 {
		keep = 0
	}
	for _, bd := range b.bodies {
		if bd.static {
			continue
		}
		st := &bd.state
		st.LinearVelocity = st.LinearVelocity.Add(b.opts.Gravity.Mul(dt)).Mul(keep)
		st.AngularVelocity = st.AngularVelocity.Mul(keep)
		st.Position = st.Position.Add(st.LinearVelocity.Mul(dt))
		st.Orientation = integrate(st.Orientation, st.AngularVelocity, dt)

		b.resolveGround(bd)
	}
	return nil
}

// resolveGround lifts bd out of the floor plane and out of static boxes it
// rests on, killing downward velocity.
func (b *Backend) resolveGround(bd *body) {
	st := &bd.state
	lo, hi := worldBounds(bd)

	lift := float32(0)
	if lo.Y() < b.opts.FloorY {
		lift = b.opts.FloorY - lo.Y()
	}
	for _, other := range b.bodies {
		if !other.static || !overlaps(aabb{lo, hi}, other.bounds) {
			continue
		}
		for _, box := range other.boxes {
			if !overlaps(aabb{lo, hi}, box) {
				continue
			}
			// Only push up when the body is mostly above the box.
			if (lo.Y()+hi.Y())/2 > (box.lo.Y()+box.hi.Y())/2 {
				lift = max(lift, box.hi.Y()-lo.Y())
			}
		}
	}
	if lift <= 0 {
		return
	}
	st.Position = st.Position.Add(mgl32.Vec3{0, lift, 0})
	if st.LinearVelocity.Y() < 0 {
		st.LinearVelocity[1] = 0
	}
	st.LinearVelocity[0] *= b.opts.Friction
	st.LinearVelocity[2] *= b.opts.Friction
	st.AngularVelocity = st.AngularVelocity.Mul(b.opts.Friction)
}

func (b *Backend) Raycast(origin, dir mgl32.Vec3, maxDist float32, visit func(physics.Hit) bool) {
	for id, bd := range b.bodies {
		o, d := origin, dir
		if !bd.static {
			inv := bd.state.Orientation.Inverse()
			o = inv.Rotate(origin.Sub(bd.state.Position))
			d = inv.Rotate(dir)
		}
		if _, _, ok := slab(bd.bounds, o, d, maxDist); !ok {
			continue
		}
		bestT := float32(math.MaxFloat32)
		var bestN mgl32.Vec3
		for _, box := range bd.boxes {
			if t, n, ok := slab(box, o, d, maxDist); ok && t < bestT {
				bestT, bestN = t, n
			}
		}
		if bestT > maxDist {
			continue
		}
		if !bd.static {
			bestN = bd.state.Orientation.Rotate(bestN)
		}
		hit := physics.Hit{
			Body:     id,
			Distance: bestT,
			Point:    origin.Add(dir.Mul(bestT)),
			Normal:   bestN,
		}
		if !visit(hit) {
			return
		}
	}
}

// slab intersects a ray with box and returns the entry distance and the
// face normal. Rays starting inside the box report t = 0.
func slab(box aabb, o, d mgl32.Vec3, maxDist float32) (float32, mgl32.Vec3, bool) {
	tmin, tmax := float32(0), maxDist
	var normal mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		if d[axis] == 0 {
			if o[axis] < box.lo[axis] || o[axis] > box.hi[axis] {
				return 0, normal, false
			}
			continue
		}
		inv := 1 / d[axis]
		t1 := (box.lo[axis] - o[axis]) * inv
		t2 := (box.hi[axis] - o[axis]) * inv
		sign := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tmin {
			tmin = t1
			normal = mgl32.Vec3{}
			normal[axis] = sign
		}
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, normal, false
		}
	}
	return tmin, normal, true
}

func worldBounds(bd *body) (lo, hi mgl32.Vec3) {
	st := bd.state
	first := true
	for _, box := range bd.boxes {
		for i := 0; i < 8; i++ {
			p := st.Position.Add(st.Orientation.Rotate(corner(box, i)))
			if first {
				lo, hi, first = p, p, false
				continue
			}
			for a := 0; a < 3; a++ {
				lo[a] = min(lo[a], p[a])
				hi[a] = max(hi[a], p[a])
			}
		}
	}
	return lo, hi
}

func corner(box aabb, i int) mgl32.Vec3 {
	c := box.lo
	if i&1 != 0 {
		c[0] = box.hi[0]
	}
	if i&2 != 0 {
		c[1] = box.hi[1]
	}
	if i&4 != 0 {
		c[2] = box.hi[2]
	}
	return c
}

func integrate(q mgl32.Quat, w mgl32.Vec3, dt float32) mgl32.Quat {
	if w.Len() == 0 {
		return q
	}
	spin := mgl32.Quat{W: 0, V: w}.Mul(q).Scale(dt / 2)
	return q.Add(spin).Normalize()
}

func union(boxes []aabb) aabb {
	out := boxes[0]
	for _, b := range boxes[1:] {
		for a := 0; a < 3; a++ {
			out.lo[a] = min(out.lo[a], b.lo[a])
			out.hi[a] = max(out.hi[a], b.hi[a])
		}
	}
	return out
}

func overlaps(a, b aabb) bool {
	for i := 0; i < 3; i++ {
		if a.hi[i] <= b.lo[i] || b.hi[i] <= a.lo[i] {
			return false
		}
	}
	return true
}

func voxelCenter(x, y, z int, vs float32) mgl32.Vec3 {
	return mgl32.Vec3{(float32(x) + 0.5) * vs, (float32(y) + 0.5) * vs, (float32(z) + 0.5) * vs}
}
