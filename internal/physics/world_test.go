package physics_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/physics/kinematic"
	"github.com/OCharnyshevich/voxelworld/internal/world/collider"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type countingBackend struct {
	*kinematic.Backend
	steps int
}

func (c *countingBackend) Step(dt float32) error {
	c.steps++
	return c.Backend.Step(dt)
}

func TestFixedTimestepAccumulator(t *testing.T) {
	be := &countingBackend{Backend: kinematic.New(kinematic.DefaultOptions())}
	w := physics.NewWorld(be, physics.Config{Timestep: 0.25, MaxDelta: 1}, discard())

	if n := w.Update(0.625); n != 2 {
		t.Errorf("Update(0.625) took %d steps, want 2", n)
	}
	if n := w.Update(0.125); n != 1 {
		t.Errorf("carry-over should complete a step, got %d", n)
	}
	if n := w.Update(5); n != 4 {
		t.Errorf("large dt should clamp to 4 steps, got %d", n)
	}
	if be.steps != 7 || w.Steps() != 7 {
		t.Errorf("backend stepped %d times (world says %d), want 7", be.steps, w.Steps())
	}
}

func TestUpdateCompoundKeepsVelocityAndOrientation(t *testing.T) {
	w := physics.NewWorld(kinematic.New(kinematic.Options{}), physics.Config{}, discard())
	rot := mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0})
	id, com := w.CreateDynamicCompound([]coord.Vec3i{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}, 1, material.Stone, physics.Pose{Position: mgl32.Vec3{0, 10, 0}, Orientation: rot})
	if id == 0 {
		t.Fatal("create failed")
	}
	w.SetVelocity(id, mgl32.Vec3{1, 2, 3})

	newID, newCOM := w.UpdateDynamicCompound(id, []coord.Vec3i{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}, 1, material.Stone, com)
	if newID == 0 || newID == id {
		t.Fatalf("update returned id %d", newID)
	}
	st, ok := w.State(newID)
	if !ok {
		t.Fatal("new body missing")
	}
	if !st.LinearVelocity.ApproxEqual(mgl32.Vec3{1, 2, 3}) {
		t.Errorf("velocity = %v", st.LinearVelocity)
	}
	if !st.Orientation.ApproxEqual(rot) {
		t.Errorf("orientation = %v, want %v", st.Orientation, rot)
	}
	// The local origin must not move in world space.
	origin := st.Position.Sub(st.Orientation.Rotate(newCOM))
	if !origin.ApproxEqualThreshold(mgl32.Vec3{0, 10, 0}, 1e-4) {
		t.Errorf("origin moved to %v", origin)
	}
	if _, ok := w.State(id); ok {
		t.Error("old body should be removed")
	}
}

func TestRaycastNearestAndIgnore(t *testing.T) {
	w := physics.NewWorld(kinematic.New(kinematic.DefaultOptions()), physics.Config{}, discard())
	box := []collider.Box{{Center: mgl32.Vec3{0.5, 0.5, 0.5}, HalfExtent: mgl32.Vec3{0.5, 0.5, 0.5}}}
	near := w.AddStaticBody(mgl32.Vec3{0, 0, 3}, box)
	far := w.AddStaticBody(mgl32.Vec3{0, 0, 8}, box)

	hit, ok := w.Raycast(mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec3{0, 0, 2}, 50, 0)
	if !ok || hit.Body != near {
		t.Fatalf("Raycast = %+v, %v, want body %d", hit, ok, near)
	}
	hit, ok = w.Raycast(mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec3{0, 0, 1}, 50, near)
	if !ok || hit.Body != far {
		t.Fatalf("ignoring near body should hit %d, got %+v", far, hit)
	}
	if _, ok := w.Raycast(mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec3{0, 0, 1}, 2, 0); ok {
		t.Error("short ray should miss")
	}
	if id := w.AddStaticBody(mgl32.Vec3{}, nil); id != 0 {
		t.Error("empty static body should not be created")
	}
}

type panickyBackend struct{ *kinematic.Backend }

func (panickyBackend) Raycast(mgl32.Vec3, mgl32.Vec3, float32, func(physics.Hit) bool) {
	panic("broken tree")
}

func (panickyBackend) Step(float32) error { panic("solver exploded") }

func TestBackendPanicsAreAbsorbed(t *testing.T) {
	w := physics.NewWorld(panickyBackend{kinematic.New(kinematic.DefaultOptions())}, physics.Config{}, discard())
	if _, ok := w.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 10, 0); ok {
		t.Error("panicking raycast should report no hit")
	}
	if n := w.Update(0.05); n != 0 {
		t.Errorf("panicking step reported %d steps", n)
	}
	w.RemoveBody(99)
}
