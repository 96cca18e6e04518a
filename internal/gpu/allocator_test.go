package gpu

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

const testChunkSize = 2

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newAllocator(t *testing.T, slotsPerBank, maxBanks int) (*Allocator, *MemoryDevice) {
	t.Helper()
	dev := NewMemoryDevice()
	a, err := NewAllocator(dev, LayoutFor(4, 4, testChunkSize, slotsPerBank, maxBanks), discard())
	if err != nil {
		t.Fatal(err)
	}
	return a, dev
}

func loaded(pos coord.Vec3i, m material.ID) *chunk.Chunk {
	c := chunk.New(pos, testChunkSize)
	grid := make([]material.ID, chunk.Volume(testChunkSize))
	grid[0] = m
	c.SetFromGrid(grid)
	return c
}

func TestInvalidLayout(t *testing.T) {
	if _, err := NewAllocator(NewMemoryDevice(), Layout{}, discard()); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("err = %v, want ErrInvalidLayout", err)
	}
}

func TestBankExpansion(t *testing.T) {
	a, dev := newAllocator(t, 2, 3)
	if a.TotalCapacity() != 0 {
		t.Fatalf("capacity before any load = %d", a.TotalCapacity())
	}
	for i := 0; i < 5; i++ {
		if err := a.NotifyLoaded(loaded(coord.Vec3i{X: i}, material.Stone)); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if a.Banks() != 3 || len(dev.Banks) != 3 || a.TotalCapacity() != 6 {
		t.Fatalf("banks=%d device=%d capacity=%d", a.Banks(), len(dev.Banks), a.TotalCapacity())
	}
	if a.FreeSlots() != 1 || a.AllocatedSlots() != 5 {
		t.Fatalf("free=%d allocated=%d", a.FreeSlots(), a.AllocatedSlots())
	}

	a.NotifyLoaded(loaded(coord.Vec3i{X: 5}, material.Stone))
	err := a.NotifyLoaded(loaded(coord.Vec3i{Z: 1}, material.Stone))
	if !errors.Is(err, ErrStorageFull) {
		t.Fatalf("err = %v, want ErrStorageFull", err)
	}
	if _, ok := a.SlotOf(coord.Vec3i{Z: 1}); ok {
		t.Fatal("chunk mapped despite full storage")
	}
	if a.Entry(coord.Vec3i{Z: 1}) != EntryUnmapped {
		t.Fatal("page table entry written for an unmapped chunk")
	}

	a.Unload(coord.Vec3i{X: 0})
	if err := a.NotifyLoaded(loaded(coord.Vec3i{Z: 1}, material.Stone)); err != nil {
		t.Fatalf("load after unload: %v", err)
	}
}

func TestRefusedChunkMappedWhenSlotFrees(t *testing.T) {
	a, dev := newAllocator(t, 1, 1)
	first, second := coord.Vec3i{X: 0}, coord.Vec3i{X: 1}
	if err := a.NotifyLoaded(loaded(first, material.Stone)); err != nil {
		t.Fatal(err)
	}
	if err := a.NotifyLoaded(loaded(second, material.Stone)); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("err = %v, want ErrStorageFull", err)
	}
	a.Drain(4)
	if a.Unmapped() != 1 {
		t.Fatalf("unmapped = %d, want 1", a.Unmapped())
	}

	a.Unload(first)
	writes := dev.Writes
	a.Drain(4)
	slot, ok := a.SlotOf(second)
	if !ok {
		t.Fatalf("chunk %v still unmapped after a slot freed: free=%d", second, a.FreeSlots())
	}
	if a.Entry(second) != slot || dev.PageTable[a.layout.wrap(second)] != slot {
		t.Fatalf("page table entry = %d, want slot %d", a.Entry(second), slot)
	}
	if dev.Writes != writes+1 || a.Unmapped() != 0 {
		t.Fatalf("writes=%d unmapped=%d", dev.Writes-writes, a.Unmapped())
	}
}

func TestUnloadForgetsRefusedChunk(t *testing.T) {
	a, _ := newAllocator(t, 1, 1)
	first, second := coord.Vec3i{X: 0}, coord.Vec3i{X: 1}
	a.NotifyLoaded(loaded(first, material.Stone))
	a.NotifyLoaded(loaded(second, material.Stone))
	a.Unload(second)
	a.Unload(first)
	a.Drain(4)
	if _, ok := a.SlotOf(second); ok {
		t.Fatal("unloaded chunk was mapped")
	}
	if a.Unmapped() != 0 || a.FreeSlots() != 1 {
		t.Fatalf("unmapped=%d free=%d", a.Unmapped(), a.FreeSlots())
	}
}

func TestIdempotentUnload(t *testing.T) {
	a, _ := newAllocator(t, 4, 1)
	pos := coord.Vec3i{X: 1, Y: 1}
	a.NotifyLoaded(loaded(pos, material.Dirt))
	if !a.Unload(pos) {
		t.Fatal("first unload released nothing")
	}
	free := a.FreeSlots()
	if a.Unload(pos) {
		t.Fatal("second unload reported a release")
	}
	if a.FreeSlots() != free {
		t.Fatalf("free slots %d -> %d after second unload", free, a.FreeSlots())
	}
}

func TestEmptyChunkGetsNoSlot(t *testing.T) {
	a, _ := newAllocator(t, 4, 1)
	air := loaded(coord.Vec3i{}, material.Air)
	if err := a.NotifyLoaded(air); err != nil {
		t.Fatal(err)
	}
	if a.AllocatedSlots() != 0 || a.Banks() != 0 {
		t.Fatalf("allocated=%d banks=%d for an air chunk", a.AllocatedSlots(), a.Banks())
	}
	if a.Entry(air.Pos) != EntryEmpty {
		t.Fatalf("entry = %x, want EntryEmpty", a.Entry(air.Pos))
	}

	// A mapped chunk that loses its last voxel gives its slot back.
	c := loaded(coord.Vec3i{X: 1}, material.Stone)
	a.NotifyLoaded(c)
	c.RemoveVoxel(coord.Vec3i{})
	a.ChunkModified(c)
	if a.AllocatedSlots() != 0 || a.Entry(c.Pos) != EntryEmpty {
		t.Fatalf("allocated=%d entry=%x", a.AllocatedSlots(), a.Entry(c.Pos))
	}
}

func TestDrainBudgetAndSingleFlush(t *testing.T) {
	a, dev := newAllocator(t, 8, 1)
	chunks := []*chunk.Chunk{
		loaded(coord.Vec3i{X: 0}, material.Stone),
		loaded(coord.Vec3i{X: 1}, material.Grass),
		loaded(coord.Vec3i{X: 2}, material.Sand),
	}
	for _, c := range chunks {
		a.NotifyLoaded(c)
	}
	a.NotifyLoaded(chunks[0])
	if a.PendingUploads() != 3 {
		t.Fatalf("pending = %d, want 3 after duplicate notify", a.PendingUploads())
	}

	if n := a.Drain(2); n != 2 {
		t.Fatalf("first drain uploaded %d, want 2", n)
	}
	if dev.Flushes != 1 || dev.Writes != 2 {
		t.Fatalf("flushes=%d writes=%d", dev.Flushes, dev.Writes)
	}
	if n := a.Drain(2); n != 1 {
		t.Fatalf("second drain uploaded %d, want 1", n)
	}
	if dev.Flushes != 1 {
		t.Fatalf("page table flushed without changes: %d", dev.Flushes)
	}

	slot, _ := a.SlotOf(chunks[1].Pos)
	offset := int(slot%8) * chunk.Volume(testChunkSize)
	if got := material.ID(dev.Banks[0][offset]); got != material.Grass {
		t.Fatalf("uploaded voxel = %v, want grass", got)
	}
	if dev.PageTable[a.layout.wrap(chunks[1].Pos)] != slot {
		t.Fatal("page table does not point at the slot")
	}
}

func TestUnloadDropsPendingUpload(t *testing.T) {
	a, dev := newAllocator(t, 4, 1)
	c := loaded(coord.Vec3i{}, material.Stone)
	a.NotifyLoaded(c)
	a.Unload(c.Pos)
	if n := a.Drain(10); n != 0 || dev.Writes != 0 {
		t.Fatalf("uploaded %d chunks after unload", n)
	}
}

func TestWrapCollisionEvicts(t *testing.T) {
	a, _ := newAllocator(t, 4, 1)
	e := a.layout.Extent
	old := loaded(coord.Vec3i{}, material.Stone)
	next := loaded(coord.Vec3i{X: e}, material.Stone)
	a.NotifyLoaded(old)
	a.NotifyLoaded(next)
	if _, ok := a.SlotOf(old.Pos); ok {
		t.Fatal("evicted chunk still holds a slot")
	}
	if a.AllocatedSlots()+a.FreeSlots() != a.TotalCapacity() {
		t.Fatal("slot accounting broken by eviction")
	}
}

func TestSlotAccounting(t *testing.T) {
	a, _ := newAllocator(t, 3, 4)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		pos := coord.Vec3i{X: rng.Intn(5), Y: rng.Intn(4), Z: rng.Intn(5)}
		switch rng.Intn(3) {
		case 0, 1:
			m := material.Stone
			if rng.Intn(4) == 0 {
				m = material.Air
			}
			a.NotifyLoaded(loaded(pos, m))
		case 2:
			a.Unload(pos)
		}
		if rng.Intn(5) == 0 {
			a.Drain(3)
		}

		if a.FreeSlots()+a.AllocatedSlots() != a.TotalCapacity() {
			t.Fatalf("step %d: free %d + allocated %d != capacity %d",
				i, a.FreeSlots(), a.AllocatedSlots(), a.TotalCapacity())
		}
		seen := make(map[uint32]coord.Vec3i)
		for p, s := range a.slots {
			if q, dup := seen[s]; dup {
				t.Fatalf("step %d: slot %d held by %v and %v", i, s, p, q)
			}
			seen[s] = p
		}
		for _, s := range a.free {
			if p, dup := seen[s]; dup {
				t.Fatalf("step %d: slot %d both free and held by %v", i, s, p)
			}
		}
		for p := range a.unmapped {
			if _, ok := a.slots[p]; ok {
				t.Fatalf("step %d: %v both mapped and waiting for storage", i, p)
			}
		}
	}
}

func TestReallocate(t *testing.T) {
	a, dev := newAllocator(t, 2, 2)
	a.NotifyLoaded(loaded(coord.Vec3i{}, material.Stone))
	if err := a.Reallocate(LayoutFor(8, 4, testChunkSize, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if dev.Releases != 1 || a.TotalCapacity() != 0 || a.AllocatedSlots() != 0 {
		t.Fatalf("releases=%d capacity=%d allocated=%d", dev.Releases, a.TotalCapacity(), a.AllocatedSlots())
	}
	if a.Layout().Extent != 19 {
		t.Fatalf("extent = %d", a.Layout().Extent)
	}
	if err := a.NotifyLoaded(loaded(coord.Vec3i{}, material.Stone)); err != nil {
		t.Fatal(err)
	}
	if a.TotalCapacity() != 4 {
		t.Fatalf("capacity = %d", a.TotalCapacity())
	}
}
