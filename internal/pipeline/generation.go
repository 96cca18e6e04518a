package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/gen"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

var ErrClosed = errors.New("pipeline: closed")

// Stats counts work through a stage.
type Stats struct {
	Workers      int
	Queued       int
	UrgentQueued int
	Results      int
	Completed    uint64
	Failed       uint64
}

// Generated is a finished chunk grid. Grid is rented from the stage and must
// be handed back with Release.
type Generated struct {
	Pos  coord.Vec3i
	Grid []material.ID
}

// Generation fills chunk grids from a Generator on worker goroutines.
type Generation struct {
	gen  gen.Generator
	size int
	log  *slog.Logger

	requests *Queue[coord.Vec3i]
	results  *Queue[Generated]
	grids    *SlicePool[material.ID]
	group    *workerGroup

	closed    atomic.Bool
	completed atomic.Uint64
	failed    atomic.Uint64
}

func NewGeneration(g gen.Generator, chunkSize, workers int, log *slog.Logger) *Generation {
	s := &Generation{
		gen:      g,
		size:     chunkSize,
		log:      log.With("stage", "generation"),
		requests: NewQueue[coord.Vec3i](),
		results:  NewQueue[Generated](),
		grids:    NewSlicePool[material.ID](chunk.Volume(chunkSize), 4*max(workers, 1)),
	}
	s.group = newWorkerGroup("generation", s.log, s.work)
	s.group.start(workers)
	return s
}

// Request queues pos for generation.
func (s *Generation) Request(pos coord.Vec3i) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.requests.Push(pos)
	return nil
}

// Pending removes and returns every request no worker has started.
func (s *Generation) Pending() []coord.Vec3i { return s.requests.Drain() }

// Drop discards unstarted requests rejected by keep and returns them.
func (s *Generation) Drop(keep func(coord.Vec3i) bool) []coord.Vec3i {
	return s.requests.Retain(keep)
}

// TryResult returns a finished grid without blocking.
func (s *Generation) TryResult() (Generated, bool) {
	r, _, ok := s.results.TryPop()
	return r, ok
}

// Release returns a result grid to the stage pool.
func (s *Generation) Release(grid []material.ID) { s.grids.Return(grid) }

// Resize restarts the workers with n goroutines. Started tasks finish;
// queued requests stay queued.
func (s *Generation) Resize(n int) bool { return s.group.restart(n) }

// Close stops the workers and returns every queued result grid to the pool.
func (s *Generation) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.group.stop()
	s.requests.Drain()
	for _, r := range s.results.Drain() {
		s.grids.Return(r.Grid)
	}
}

func (s *Generation) Stats() Stats {
	return Stats{
		Workers:   s.group.workers(),
		Queued:    s.requests.Len(),
		Results:   s.results.Len(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Generation) work(ctx context.Context, worker int) {
	for {
		pos, urgent, ok := s.requests.Wait(ctx, PollTimeout)
		if ctx.Err() != nil {
			if ok {
				s.requests.PushFront(pos, urgent)
			}
			return
		}
		if !ok {
			continue
		}

		grid := s.grids.Rent()
		err := runTask(func() error {
			s.gen.Generate(pos, s.size, grid)
			return nil
		})
		if err != nil {
			s.failed.Add(1)
			s.grids.Return(grid)
			s.log.Error("generate chunk", "worker", worker, "chunk", pos, "error", err)
			continue
		}
		s.completed.Add(1)
		s.results.Push(Generated{Pos: pos, Grid: grid})
	}
}
