// Package world orchestrates chunk streaming, collider attachment,
// destruction and detached voxel objects.
package world

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/config"
	"github.com/OCharnyshevich/voxelworld/internal/gpu"
	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/pipeline"
	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/connectivity"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/gen"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

// Options wires a Manager to its collaborators. Physics and Generator are
// required; GPU may be nil for headless runs without voxel storage.
type Options struct {
	Config    *config.Config
	Generator gen.Generator
	Physics   *physics.World
	GPU       *gpu.Allocator
	Observers []Observer
}

// Manager owns the chunk store and drives every chunk through
// generation, collider attachment and unloading. All methods must be called
// from one goroutine.
type Manager struct {
	cfg      config.Config
	settings *config.Settings
	log      *slog.Logger

	phys   *physics.World
	gen    *pipeline.Generation
	build  *pipeline.PhysicsBuild
	gpu    *gpu.Allocator
	events Events

	chunks       *chunk.Store
	inProgress   map[coord.Vec3i]struct{}
	wanted       map[coord.Vec3i]struct{}
	staticBodies map[physics.BodyID]coord.Vec3i

	objects      map[object.ID]*object.Object
	byBody       map[physics.BodyID]*object.Object
	removals     []*object.Object
	removing     map[object.ID]struct{}
	nextObjectID object.ID

	center     coord.Vec3i
	haveCenter bool
	recompute  bool
	closed     bool

	destroyed uint64
	detached  uint64
}

// New validates cfg and starts the worker pipelines.
func New(opts Options, log *slog.Logger) (*Manager, error) {
	if opts.Config == nil || opts.Generator == nil || opts.Physics == nil {
		return nil, fmt.Errorf("world: config, generator and physics are required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	log = log.With("component", "world")
	m := &Manager{
		cfg:          *opts.Config,
		log:          log,
		phys:         opts.Physics,
		gpu:          opts.GPU,
		chunks:       chunk.NewStore(),
		inProgress:   make(map[coord.Vec3i]struct{}),
		wanted:       make(map[coord.Vec3i]struct{}),
		staticBodies: make(map[physics.BodyID]coord.Vec3i),
		objects:      make(map[object.ID]*object.Object),
		byBody:       make(map[physics.BodyID]*object.Object),
		removing:     make(map[object.ID]struct{}),
	}
	m.settings = config.NewSettings(&m.cfg)
	if m.gpu != nil {
		m.events.Add(m.gpu)
	}
	for _, o := range opts.Observers {
		m.events.Add(o)
	}
	m.gen = pipeline.NewGeneration(opts.Generator, m.cfg.ChunkSize, m.cfg.GenerationWorkers, log)
	m.build = pipeline.NewPhysicsBuild(m.cfg.ChunkSize, m.cfg.VoxelSize, m.cfg.PhysicsWorkers, log)
	return m, nil
}

// AddObserver registers o for every later notification.
func (m *Manager) AddObserver(o Observer) { m.events.Add(o) }

// Update advances the world by one frame: physics, object poses, streaming
// around playerPos, pipeline result drains and GPU uploads.
func (m *Manager) Update(dt float32, playerPos mgl32.Vec3) {
	if m.closed {
		return
	}
	m.phys.Update(dt)
	m.syncObjects()

	center := m.ChunkAt(playerPos)
	if !m.haveCenter || center != m.center || m.recompute {
		m.center, m.haveCenter, m.recompute = center, true, false
		m.stream(center)
	}

	m.drainGeneration(time.Now().Add(m.cfg.GenerationBudget))
	m.drainPhysics(time.Now().Add(m.cfg.PhysicsBudget))
	m.processRemovals()

	if m.gpu != nil {
		m.gpu.Drain(m.settings.UploadBudget())
	}
}

// ChunkAt returns the chunk position containing a world point.
func (m *Manager) ChunkAt(p mgl32.Vec3) coord.Vec3i {
	c, _ := coord.Split(m.voxelAt(p), m.cfg.ChunkSize)
	return c
}

func (m *Manager) voxelAt(p mgl32.Vec3) coord.Vec3i {
	s := m.cfg.VoxelSize
	return coord.Vec3i{
		X: int(math.Floor(float64(p.X() / s))),
		Y: int(math.Floor(float64(p.Y() / s))),
		Z: int(math.Floor(float64(p.Z() / s))),
	}
}

func (m *Manager) voxelCenter(v coord.Vec3i) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X) + 0.5, float32(v.Y) + 0.5, float32(v.Z) + 0.5}.Mul(m.cfg.VoxelSize)
}

func (m *Manager) chunkOrigin(c *chunk.Chunk) mgl32.Vec3 {
	o := c.Origin()
	return mgl32.Vec3{float32(o.X), float32(o.Y), float32(o.Z)}.Mul(m.cfg.VoxelSize)
}

// stream recomputes the wanted set around center, unloads what fell out of
// it and requests what is missing. Requests no worker has started are taken
// back and merged with the new loads so the queue stays nearest-first.
func (m *Manager) stream(center coord.Vec3i) {
	required := RequiredChunks(center, m.settings.RenderDistance(), m.cfg.HeightChunks)
	m.wanted = make(map[coord.Vec3i]struct{}, len(required))
	for _, p := range required {
		m.wanted[p] = struct{}{}
	}

	for _, p := range m.gen.Pending() {
		delete(m.inProgress, p)
	}
	active := m.chunks.Positions()
	for p := range m.inProgress {
		active = append(active, p)
	}

	loads, unloads := Plan(center, required, active)
	for _, p := range unloads {
		if _, ok := m.inProgress[p]; ok {
			// Started generation is discarded when its result arrives.
			continue
		}
		m.unloadChunk(p)
	}
	for _, p := range loads {
		if err := m.gen.Request(p); err != nil {
			m.log.Warn("request chunk", "chunk", p, "error", err)
			continue
		}
		m.inProgress[p] = struct{}{}
	}
	m.log.Debug("streaming", "center", center, "loads", len(loads), "unloads", len(unloads))
}

func (m *Manager) drainGeneration(deadline time.Time) {
	for time.Now().Before(deadline) {
		r, ok := m.gen.TryResult()
		if !ok {
			return
		}
		delete(m.inProgress, r.Pos)
		if _, ok := m.wanted[r.Pos]; !ok {
			m.gen.Release(r.Grid)
			continue
		}
		if _, ok := m.chunks.Get(r.Pos); ok {
			m.gen.Release(r.Grid)
			continue
		}

		c := chunk.New(r.Pos, m.cfg.ChunkSize)
		c.SetFromGrid(r.Grid)
		m.gen.Release(r.Grid)
		m.chunks.Add(c)
		m.events.ChunkLoaded(c)

		if c.SolidCount() > 0 && m.build.Enqueue(c) {
			c.Physics = chunk.PhysicsPending
		}
	}
}

func (m *Manager) drainPhysics(deadline time.Time) {
	for time.Now().Before(deadline) {
		r, ok := m.build.TryResult()
		if !ok {
			return
		}
		c, ok := m.chunks.Get(r.Pos)
		if !ok || c.Disposed() || r.Revision < c.Revision() {
			continue
		}
		m.attach(c, r)
	}
}

// attach swaps the chunk's static body for one built from r.
func (m *Manager) attach(c *chunk.Chunk, r pipeline.Built) {
	m.detachStatic(c)
	c.AppliedRevision = r.Revision
	if len(r.Boxes) == 0 {
		c.Physics = chunk.PhysicsNone
		return
	}
	id := m.phys.AddStaticBody(m.chunkOrigin(c), r.Boxes)
	if id == 0 {
		c.Physics = chunk.PhysicsNone
		return
	}
	c.Body = id
	c.Physics = chunk.PhysicsAttached
	m.staticBodies[id] = c.Pos
}

func (m *Manager) detachStatic(c *chunk.Chunk) {
	if c.Body == 0 {
		return
	}
	m.phys.RemoveStaticBody(c.Body)
	delete(m.staticBodies, c.Body)
	c.Body = 0
}

func (m *Manager) unloadChunk(pos coord.Vec3i) {
	c, ok := m.chunks.Remove(pos)
	if !ok {
		return
	}
	c.State = chunk.StateUnloading
	m.detachStatic(c)
	c.Dispose()
	m.events.ChunkUnloaded(pos)
}

// Chunk returns the loaded chunk at pos.
func (m *Manager) Chunk(pos coord.Vec3i) (*chunk.Chunk, bool) { return m.chunks.Get(pos) }

// Chunks returns the store of loaded chunks.
func (m *Manager) Chunks() *chunk.Store { return m.chunks }

// Object returns the live object with the given id.
func (m *Manager) Object(id object.ID) (*object.Object, bool) {
	o, ok := m.objects[id]
	return o, ok
}

// Stats is a snapshot of the manager for logging.
type Stats struct {
	Chunks       int
	InProgress   int
	StaticBodies int
	Objects      int
	Destroyed    uint64
	Detached     uint64
	Generation   pipeline.Stats
	Physics      pipeline.Stats
	FreeSlots    int
	UsedSlots    int
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Chunks:       m.chunks.Len(),
		InProgress:   len(m.inProgress),
		StaticBodies: len(m.staticBodies),
		Objects:      len(m.objects),
		Destroyed:    m.destroyed,
		Detached:     m.detached,
		Generation:   m.gen.Stats(),
		Physics:      m.build.Stats(),
	}
	if m.gpu != nil {
		s.FreeSlots, s.UsedSlots = m.gpu.FreeSlots(), m.gpu.AllocatedSlots()
	}
	return s
}

// Close stops the pipelines and releases every body. Observers are told
// about each unloaded chunk and removed object.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.gen.Close()
	m.build.Close()
	for _, o := range m.objects {
		m.queueRemoval(o)
	}
	m.processRemovals()
	for _, p := range m.chunks.Positions() {
		m.unloadChunk(p)
	}
}

// support returns the probe and limits used by structural checks.
func (m *Manager) support() (connectivity.Probe, connectivity.Limits) {
	size := m.cfg.ChunkSize
	probe := func(p coord.Vec3i) connectivity.Cell {
		if p.Y < 0 || p.Y >= m.cfg.HeightChunks*size {
			return connectivity.Empty
		}
		cp, local := coord.Split(p, size)
		c, ok := m.chunks.Get(cp)
		if !ok || c.State != chunk.StateLoaded {
			return connectivity.Unknown
		}
		if c.IsSolidAt(local) {
			return connectivity.Solid
		}
		return connectivity.Empty
	}
	return probe, connectivity.Limits{
		GroundY:         0,
		MaxCluster:      m.cfg.MaxClusterSize,
		UnknownIsGround: m.cfg.UnloadedIsGround,
	}
}
