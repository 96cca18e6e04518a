package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/collider"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// BuildTask is an immutable voxel snapshot of one chunk.
type BuildTask struct {
	Pos      coord.Vec3i
	Revision uint64
	Voxels   []material.ID
}

// Built carries the colliders for a chunk at the given revision.
type Built struct {
	Pos      coord.Vec3i
	Revision uint64
	Boxes    []collider.Box
}

// PhysicsBuild turns chunk snapshots into box colliders on worker
// goroutines. Urgent tasks are always built before normal ones.
type PhysicsBuild struct {
	size      int
	voxelSize float32
	log       *slog.Logger

	tasks     *Queue[BuildTask]
	results   *Queue[Built]
	snapshots *SlicePool[material.ID]
	group     *workerGroup

	closed    atomic.Bool
	completed atomic.Uint64
	failed    atomic.Uint64
}

func NewPhysicsBuild(chunkSize int, voxelSize float32, workers int, log *slog.Logger) *PhysicsBuild {
	s := &PhysicsBuild{
		size:      chunkSize,
		voxelSize: voxelSize,
		log:       log.With("stage", "physics"),
		tasks:     NewQueue[BuildTask](),
		results:   NewQueue[Built](),
		snapshots: NewSlicePool[material.ID](chunk.Volume(chunkSize), 4*max(workers, 1)),
	}
	s.group = newWorkerGroup("physics", s.log, s.work)
	s.group.start(workers)
	return s
}

// Snapshot copies c's voxels into a pooled buffer. It fails on a disposed
// chunk.
func (s *PhysicsBuild) Snapshot(c *chunk.Chunk) (BuildTask, bool) {
	buf := s.snapshots.Rent()
	voxels, rev := c.VoxelsCopy(buf)
	if voxels == nil {
		s.snapshots.Return(buf)
		return BuildTask{}, false
	}
	return BuildTask{Pos: c.Pos, Revision: rev, Voxels: voxels}, true
}

// Enqueue snapshots c and queues it on the normal lane.
func (s *PhysicsBuild) Enqueue(c *chunk.Chunk) bool { return s.enqueue(c, false) }

// EnqueueUrgent snapshots c and queues it ahead of all normal work.
func (s *PhysicsBuild) EnqueueUrgent(c *chunk.Chunk) bool { return s.enqueue(c, true) }

func (s *PhysicsBuild) enqueue(c *chunk.Chunk, urgent bool) bool {
	if s.closed.Load() {
		return false
	}
	task, ok := s.Snapshot(c)
	if !ok {
		return false
	}
	if urgent {
		s.tasks.PushUrgent(task)
	} else {
		s.tasks.Push(task)
	}
	return true
}

func (s *PhysicsBuild) TryResult() (Built, bool) {
	r, _, ok := s.results.TryPop()
	return r, ok
}

func (s *PhysicsBuild) Resize(n int) bool { return s.group.restart(n) }

func (s *PhysicsBuild) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.group.stop()
	for _, t := range s.tasks.Drain() {
		s.snapshots.Return(t.Voxels)
	}
	s.results.Drain()
}

func (s *PhysicsBuild) Stats() Stats {
	return Stats{
		Workers:      s.group.workers(),
		Queued:       s.tasks.Len(),
		UrgentQueued: s.tasks.UrgentLen(),
		Results:      s.results.Len(),
		Completed:    s.completed.Load(),
		Failed:       s.failed.Load(),
	}
}

func (s *PhysicsBuild) work(ctx context.Context, worker int) {
	scratch := collider.NewScratch(s.size)
	for {
		task, urgent, ok := s.tasks.Wait(ctx, PollTimeout)
		if ctx.Err() != nil {
			if ok {
				s.tasks.PushFront(task, urgent)
			}
			return
		}
		if !ok {
			continue
		}

		var boxes []collider.Box
		err := runTask(func() error {
			built := collider.Build(task.Voxels, s.size, s.voxelSize, scratch)
			boxes = make([]collider.Box, len(built))
			copy(boxes, built)
			return nil
		})
		s.snapshots.Return(task.Voxels)
		if err != nil {
			s.failed.Add(1)
			s.log.Error("build colliders", "worker", worker, "chunk", task.Pos, "error", err)
			continue
		}
		s.completed.Add(1)
		s.results.Push(Built{Pos: task.Pos, Revision: task.Revision, Boxes: boxes})
	}
}
