// Package engine wires the voxel world together and drives it with a
// fixed-rate frame loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/config"
	"github.com/OCharnyshevich/voxelworld/internal/feed"
	"github.com/OCharnyshevich/voxelworld/internal/gpu"
	"github.com/OCharnyshevich/voxelworld/internal/physics"
	"github.com/OCharnyshevich/voxelworld/internal/physics/kinematic"
	"github.com/OCharnyshevich/voxelworld/internal/world"
	"github.com/OCharnyshevich/voxelworld/internal/world/gen"
)

const (
	statsInterval   = 5 * time.Second
	destroyInterval = 500 * time.Millisecond
	rayLength       = 64
)

// Engine owns the world manager and its collaborators.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	gen    gen.Generator
	phys   *physics.World
	device *gpu.MemoryDevice
	alloc  *gpu.Allocator
	feed   *feed.Feed
	world  *world.Manager
	walker *walker

	sinceDestroy time.Duration
	sinceStats   time.Duration
}

// New creates an Engine from cfg.
func New(cfg *config.Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	worldHeight := cfg.HeightChunks * cfg.ChunkSize
	generator := gen.New(cfg.GeneratorType, cfg.Seed, worldHeight)

	opts := kinematic.DefaultOptions()
	opts.Gravity = mgl32.Vec3{0, cfg.Gravity, 0}
	opts.FloorY = cfg.ObjectKillY - 1
	phys := physics.NewWorld(kinematic.New(opts), physics.Config{}, log)

	device := gpu.NewMemoryDevice()
	alloc, err := gpu.NewAllocator(device,
		gpu.LayoutFor(cfg.RenderDistance, cfg.HeightChunks, cfg.ChunkSize, cfg.SlotsPerBank, cfg.MaxBanks), log)
	if err != nil {
		return nil, fmt.Errorf("create allocator: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		log:    log,
		gen:    generator,
		phys:   phys,
		device: device,
		alloc:  alloc,
		walker: newWalker(generator, cfg.VoxelSize, float32(cfg.ChunkSize)*2),
	}

	var observers []world.Observer
	if cfg.FeedAddr != "" {
		e.feed, err = feed.New(log)
		if err != nil {
			return nil, fmt.Errorf("create feed: %w", err)
		}
		observers = append(observers, e.feed)
	}

	e.world, err = world.New(world.Options{
		Config:    cfg,
		Generator: generator,
		Physics:   phys,
		GPU:       alloc,
		Observers: observers,
	}, log)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// World returns the world manager.
func (e *Engine) World() *world.Manager { return e.world }

// Player returns the current walker position.
func (e *Engine) Player() mgl32.Vec3 { return e.walker.pos }

// Run drives frames at the configured tick rate and blocks until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.Close()

	feedErr := make(chan error, 1)
	if e.feed != nil {
		go func() { feedErr <- e.feed.Serve(ctx, e.cfg.FeedAddr) }()
	}

	e.log.Info("engine started",
		"generator", e.cfg.GeneratorType,
		"seed", e.cfg.Seed,
		"chunkSize", e.cfg.ChunkSize,
		"renderDistance", e.cfg.RenderDistance,
		"tickRate", e.cfg.TickRate,
	)

	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine shutting down")
			return nil
		case err := <-feedErr:
			if err != nil {
				return fmt.Errorf("feed: %w", err)
			}
		case now := <-ticker.C:
			e.Step(now.Sub(last))
			last = now
		}
	}
}

// Step advances one frame of length dt.
func (e *Engine) Step(dt time.Duration) {
	seconds := float32(dt.Seconds())
	player := e.walker.advance(seconds)
	e.world.Update(seconds, player)

	e.sinceDestroy += dt
	if e.sinceDestroy >= destroyInterval {
		e.sinceDestroy = 0
		e.world.DestroyVoxelByRay(player, e.walker.aim(), rayLength*e.cfg.VoxelSize)
	}

	e.sinceStats += dt
	if e.sinceStats >= statsInterval {
		e.sinceStats = 0
		st := e.world.Stats()
		e.log.Info("world",
			"chunks", st.Chunks,
			"inProgress", st.InProgress,
			"staticBodies", st.StaticBodies,
			"objects", st.Objects,
			"destroyed", st.Destroyed,
			"detached", st.Detached,
			"genQueued", st.Generation.Queued,
			"physicsQueued", st.Physics.Queued,
			"freeSlots", st.FreeSlots,
			"usedSlots", st.UsedSlots,
			"physicsSteps", e.phys.Steps(),
		)
	}
}

// Close stops the world and releases storage.
func (e *Engine) Close() {
	e.world.Close()
	e.alloc.Close()
	if e.feed != nil {
		e.feed.Close()
	}
}

// walker circles the origin at eye height above the terrain.
type walker struct {
	gen       gen.Generator
	voxelSize float32
	radius    float32
	angle     float64
	pos       mgl32.Vec3
}

func newWalker(g gen.Generator, voxelSize, radius float32) *walker {
	w := &walker{gen: g, voxelSize: voxelSize, radius: radius}
	w.advance(0)
	return w
}

const walkSpeed = 4 // voxels per second

func (w *walker) advance(dt float32) mgl32.Vec3 {
	if w.radius > 0 {
		w.angle += float64(walkSpeed*dt) / float64(w.radius)
	}
	x := float32(math.Cos(w.angle)) * w.radius
	z := float32(math.Sin(w.angle)) * w.radius
	ground := w.gen.HeightAt(int(math.Floor(float64(x))), int(math.Floor(float64(z))))
	w.pos = mgl32.Vec3{x, float32(ground) + 2.5, z}.Mul(w.voxelSize)
	return w.pos
}

// aim points down and slightly ahead along the walk direction.
func (w *walker) aim() mgl32.Vec3 {
	ahead := mgl32.Vec3{float32(-math.Sin(w.angle)), 0, float32(math.Cos(w.angle))}
	return ahead.Mul(0.5).Add(mgl32.Vec3{0, -1, 0}).Normalize()
}
