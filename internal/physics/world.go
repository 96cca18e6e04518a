package physics

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/world/collider"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

const (
	DefaultTimestep = float32(1.0 / 60.0)
	DefaultMaxDelta = float32(0.1)
)

// Config tunes the fixed-step driver.
type Config struct {
	Timestep float32
	MaxDelta float32
	// MaxSubsteps bounds the steps taken in one Update.
	MaxSubsteps int
}

// World owns a Backend. One mutex guards the whole backend, so body
// mutation, queries and stepping never overlap.
type World struct {
	log *slog.Logger
	cfg Config

	mu          sync.Mutex
	backend     Backend
	accumulator float32
	steps       uint64
}

// NewWorld wraps backend.
func NewWorld(backend Backend, cfg Config, log *slog.Logger) *World {
	if cfg.Timestep <= 0 {
		cfg.Timestep = DefaultTimestep
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	if cfg.MaxSubsteps <= 0 {
		cfg.MaxSubsteps = int(cfg.MaxDelta/cfg.Timestep) + 1
	}
	return &World{log: log, cfg: cfg, backend: backend}
}

// guard runs fn under the lock and converts a backend panic into an error.
func (w *World) guard(op string, fn func() error) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("physics %s: panic: %v", op, r)
		}
	}()
	return fn()
}

// Update advances the simulation by dt seconds in fixed increments and
// returns the number of steps taken. dt is clamped to MaxDelta; leftover
// time carries to the next call.
func (w *World) Update(dt float32) int {
	if dt < 0 {
		dt = 0
	}
	dt = min(dt, w.cfg.MaxDelta)

	steps := 0
	err := w.guard("step", func() error {
		w.accumulator += dt
		for w.accumulator >= w.cfg.Timestep && steps < w.cfg.MaxSubsteps {
			if err := w.backend.Step(w.cfg.Timestep); err != nil {
				return err
			}
			w.accumulator -= w.cfg.Timestep
			steps++
			w.steps++
		}
		if steps == w.cfg.MaxSubsteps {
			w.accumulator = 0
		}
		return nil
	})
	if err != nil {
		w.log.Error("simulation step failed", "error", err)
		w.mu.Lock()
		w.accumulator = 0
		w.mu.Unlock()
	}
	return steps
}

// Steps returns the total number of fixed steps simulated.
func (w *World) Steps() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps
}

// AddStaticBody inserts a static compound of boxes placed at worldOrigin.
// An empty box list creates no body and returns 0.
func (w *World) AddStaticBody(worldOrigin mgl32.Vec3, boxes []collider.Box) BodyID {
	if len(boxes) == 0 {
		return 0
	}
	var id BodyID
	err := w.guard("add static", func() error {
		var err error
		id, err = w.backend.AddStatic(worldOrigin, boxes)
		return err
	})
	if err != nil {
		w.log.Error("add static body", "boxes", len(boxes), "error", err)
		return 0
	}
	return id
}

// RemoveStaticBody removes a static body. A zero id is ignored.
func (w *World) RemoveStaticBody(id BodyID) { w.RemoveBody(id) }

// RemoveBody removes any body. Unknown ids are logged and ignored.
func (w *World) RemoveBody(id BodyID) {
	if id == 0 {
		return
	}
	if err := w.guard("remove", func() error { return w.backend.Remove(id) }); err != nil {
		w.log.Warn("remove body", "body", id, "error", err)
	}
}

// CreateDynamicCompound spawns a dynamic body of unit voxel boxes whose
// local origin sits at origin. It returns the body and its local centre of
// mass. On failure the id is zero.
func (w *World) CreateDynamicCompound(voxels []coord.Vec3i, voxelSize float32, mat material.ID, origin Pose) (BodyID, mgl32.Vec3) {
	if len(voxels) == 0 {
		return 0, mgl32.Vec3{}
	}
	var (
		id  BodyID
		com mgl32.Vec3
	)
	err := w.guard("add compound", func() error {
		var err error
		id, com, err = w.backend.AddCompound(Compound{Voxels: voxels, VoxelSize: voxelSize, Material: mat, Origin: origin})
		return err
	})
	if err != nil {
		w.log.Error("create dynamic compound", "voxels", len(voxels), "error", err)
		return 0, mgl32.Vec3{}
	}
	return id, com
}

// UpdateDynamicCompound replaces the shape of a dynamic body. The body is
// removed and recreated; orientation and linear and angular velocity carry
// over. The new body keeps the old local origin in world space. On failure
// it returns (0, zero) and the old body is gone.
func (w *World) UpdateDynamicCompound(id BodyID, voxels []coord.Vec3i, voxelSize float32, mat material.ID, oldCOM mgl32.Vec3) (BodyID, mgl32.Vec3) {
	if len(voxels) == 0 {
		w.RemoveBody(id)
		return 0, mgl32.Vec3{}
	}
	var (
		newID BodyID
		com   mgl32.Vec3
	)
	err := w.guard("update compound", func() error {
		st, ok := w.backend.State(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownBody, id)
		}
		if err := w.backend.Remove(id); err != nil {
			return err
		}
		origin := Pose{
			Position:    st.Position.Sub(st.Orientation.Rotate(oldCOM)),
			Orientation: st.Orientation,
		}
		var err error
		newID, com, err = w.backend.AddCompound(Compound{Voxels: voxels, VoxelSize: voxelSize, Material: mat, Origin: origin})
		if err != nil {
			return err
		}
		next, _ := w.backend.State(newID)
		next.LinearVelocity = st.LinearVelocity
		next.AngularVelocity = st.AngularVelocity
		return w.backend.SetState(newID, next)
	})
	if err != nil {
		w.log.Error("update dynamic compound", "body", id, "error", err)
		return 0, mgl32.Vec3{}
	}
	return newID, com
}

// State returns the kinematic state of a body.
func (w *World) State(id BodyID) (BodyState, bool) {
	var (
		st BodyState
		ok bool
	)
	err := w.guard("state", func() error {
		st, ok = w.backend.State(id)
		return nil
	})
	if err != nil {
		w.log.Warn("query body state", "body", id, "error", err)
		return BodyState{}, false
	}
	return st, ok
}

// Pose returns the position and orientation of a body.
func (w *World) Pose(id BodyID) (Pose, bool) {
	st, ok := w.State(id)
	return st.Pose, ok
}

// SetVelocity overwrites the linear velocity of a dynamic body.
func (w *World) SetVelocity(id BodyID, v mgl32.Vec3) bool {
	err := w.guard("set velocity", func() error {
		st, ok := w.backend.State(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownBody, id)
		}
		st.LinearVelocity = v
		return w.backend.SetState(id, st)
	})
	return err == nil
}

// Raycast returns the nearest hit within maxDist, skipping ignore.
// Backend failures count as a miss.
func (w *World) Raycast(origin, dir mgl32.Vec3, maxDist float32, ignore BodyID) (Hit, bool) {
	if dir.Len() == 0 || maxDist <= 0 {
		return Hit{}, false
	}
	dir = dir.Normalize()

	var (
		best Hit
		got  bool
	)
	err := w.guard("raycast", func() error {
		w.backend.Raycast(origin, dir, maxDist, func(h Hit) bool {
			if h.Body == ignore || h.Distance < 0 || h.Distance > maxDist {
				return true
			}
			if !got || h.Distance < best.Distance {
				best, got = h, true
			}
			return true
		})
		return nil
	})
	if err != nil {
		w.log.Warn("raycast failed", "error", err)
		return Hit{}, false
	}
	return best, got
}
