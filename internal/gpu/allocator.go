package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

// Page table entries that are not slot indices.
const (
	EntryUnmapped uint32 = 0xFFFFFFFF
	EntryEmpty    uint32 = 0xFFFFFFFE
)

var (
	ErrStorageFull   = errors.New("gpu: voxel storage full")
	ErrInvalidLayout = errors.New("gpu: invalid layout")
)

// Layout sizes the page table and slot storage.
type Layout struct {
	// Extent is the page table width along X and Z, ExtentY along Y.
	Extent, ExtentY int
	ChunkSize       int
	SlotsPerBank    int
	MaxBanks        int
}

// LayoutFor sizes a page table that holds a streaming disc of the given
// radius without two resident chunks wrapping onto the same entry.
func LayoutFor(renderDistance, heightChunks, chunkSize, slotsPerBank, maxBanks int) Layout {
	return Layout{
		Extent:       2*renderDistance + 3,
		ExtentY:      heightChunks,
		ChunkSize:    chunkSize,
		SlotsPerBank: slotsPerBank,
		MaxBanks:     maxBanks,
	}
}

func (l Layout) validate() error {
	if l.Extent <= 0 || l.ExtentY <= 0 || l.ChunkSize <= 0 || l.SlotsPerBank <= 0 || l.MaxBanks <= 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidLayout, l)
	}
	return nil
}

func (l Layout) entries() int { return l.Extent * l.Extent * l.ExtentY }

func (l Layout) wrap(pos coord.Vec3i) int {
	return coord.Mod(pos.X, l.Extent) + l.Extent*(coord.Mod(pos.Y, l.ExtentY)+l.ExtentY*coord.Mod(pos.Z, l.Extent))
}

type entryOwner struct {
	pos coord.Vec3i
	set bool
}

// Allocator assigns storage slots to resident chunks and streams their
// voxels to a Device. It is driven from a single goroutine and does no
// locking.
type Allocator struct {
	dev    Device
	layout Layout
	log    *slog.Logger

	table  []uint32
	owners []entryOwner
	slots  map[coord.Vec3i]uint32
	free   []uint32
	banks  int

	pending    []coord.Vec3i
	queued     map[coord.Vec3i]*chunk.Chunk
	waiting    []coord.Vec3i
	unmapped   map[coord.Vec3i]*chunk.Chunk
	payload    []byte
	dirty      bool
	fullNotice rate.Sometimes
}

func NewAllocator(dev Device, layout Layout, log *slog.Logger) (*Allocator, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	a := &Allocator{dev: dev, log: log.With("component", "gpu")}
	a.reset(layout)
	return a, nil
}

func (a *Allocator) reset(layout Layout) {
	a.layout = layout
	a.table = make([]uint32, layout.entries())
	for i := range a.table {
		a.table[i] = EntryUnmapped
	}
	a.owners = make([]entryOwner, layout.entries())
	a.slots = make(map[coord.Vec3i]uint32)
	a.free = a.free[:0]
	a.banks = 0
	a.pending = a.pending[:0]
	a.queued = make(map[coord.Vec3i]*chunk.Chunk)
	a.waiting = a.waiting[:0]
	a.unmapped = make(map[coord.Vec3i]*chunk.Chunk)
	a.payload = make([]byte, chunk.Volume(layout.ChunkSize))
	a.dirty = true
	a.fullNotice = rate.Sometimes{First: 1}
}

// NotifyLoaded maps c and queues its voxels for upload. A chunk without
// solid voxels gets an empty marker and no slot. A chunk refused for lack of
// storage is remembered and mapped by a later Drain once a slot frees up.
func (a *Allocator) NotifyLoaded(c *chunk.Chunk) error {
	idx := a.layout.wrap(c.Pos)
	if o := a.owners[idx]; o.set && o.pos != c.Pos {
		a.Unload(o.pos)
	}

	if c.SolidCount() == 0 {
		a.release(c.Pos)
		a.setEntry(idx, c.Pos, EntryEmpty)
		return nil
	}

	if _, ok := a.slots[c.Pos]; !ok {
		slot, err := a.take()
		if err != nil {
			if _, ok := a.unmapped[c.Pos]; !ok {
				a.waiting = append(a.waiting, c.Pos)
			}
			a.unmapped[c.Pos] = c
			a.fullNotice.Do(func() {
				a.log.Warn("voxel storage full, chunk left unmapped",
					"chunk", c.Pos, "slots", a.TotalCapacity(), "error", err)
			})
			return err
		}
		delete(a.unmapped, c.Pos)
		a.slots[c.Pos] = slot
		a.setEntry(idx, c.Pos, slot)
	}

	if _, ok := a.queued[c.Pos]; !ok {
		a.pending = append(a.pending, c.Pos)
	}
	a.queued[c.Pos] = c
	return nil
}

// Unload frees the slot of pos and clears its page table entry. Calling it
// for an unmapped position does nothing.
func (a *Allocator) Unload(pos coord.Vec3i) bool {
	released := a.release(pos)
	idx := a.layout.wrap(pos)
	if o := a.owners[idx]; o.set && o.pos == pos {
		a.owners[idx] = entryOwner{}
		a.table[idx] = EntryUnmapped
		a.dirty = true
		released = true
	}
	return released
}

func (a *Allocator) release(pos coord.Vec3i) bool {
	delete(a.queued, pos)
	delete(a.unmapped, pos)
	slot, ok := a.slots[pos]
	if !ok {
		return false
	}
	delete(a.slots, pos)
	a.free = append(a.free, slot)
	return true
}

func (a *Allocator) setEntry(idx int, pos coord.Vec3i, v uint32) {
	a.owners[idx] = entryOwner{pos: pos, set: true}
	if a.table[idx] != v {
		a.table[idx] = v
		a.dirty = true
	}
}

// take pops a free slot, adding a bank when the pool is empty.
func (a *Allocator) take() (uint32, error) {
	if len(a.free) == 0 {
		if err := a.grow(); err != nil {
			return 0, err
		}
	}
	slot := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	return slot, nil
}

func (a *Allocator) grow() error {
	if a.banks >= a.layout.MaxBanks {
		return ErrStorageFull
	}
	bytes := a.layout.SlotsPerBank * chunk.Volume(a.layout.ChunkSize)
	if err := a.dev.CreateBank(a.banks, bytes); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFull, err)
	}
	base := uint32(a.banks * a.layout.SlotsPerBank)
	for i := a.layout.SlotsPerBank - 1; i >= 0; i-- {
		a.free = append(a.free, base+uint32(i))
	}
	a.banks++
	a.log.Debug("voxel bank added", "bank", a.banks-1, "slots", a.TotalCapacity())
	return nil
}

// Drain uploads up to budget pending chunks and flushes the page table at
// most once. It returns the number of chunks uploaded.
func (a *Allocator) Drain(budget int) int {
	a.remap()
	uploaded := 0
	for uploaded < budget && len(a.pending) > 0 {
		pos := a.pending[0]
		a.pending = a.pending[1:]
		c, ok := a.queued[pos]
		if !ok {
			continue
		}
		delete(a.queued, pos)
		slot, ok := a.slots[pos]
		if !ok {
			continue
		}
		if !c.ReadVoxels(func(v []material.ID) { packVoxels(a.payload, v) }) {
			continue
		}
		bank := int(slot) / a.layout.SlotsPerBank
		offset := (int(slot) % a.layout.SlotsPerBank) * len(a.payload)
		if err := a.dev.WriteBank(bank, offset, a.payload); err != nil {
			a.log.Error("upload chunk", "chunk", pos, "slot", slot, "error", err)
			continue
		}
		uploaded++
	}
	if len(a.pending) == 0 {
		a.pending = nil
	}

	if a.dirty {
		if err := a.dev.WritePageTable(a.table); err != nil {
			a.log.Error("flush page table", "error", err)
		} else {
			a.dirty = false
		}
	}
	return uploaded
}

// remap retries chunks refused for lack of storage, oldest first, while a
// slot is free or a bank can still be added.
func (a *Allocator) remap() {
	if len(a.unmapped) == 0 {
		a.waiting = nil
		return
	}
	for len(a.waiting) > 0 && (len(a.free) > 0 || a.banks < a.layout.MaxBanks) {
		c, ok := a.unmapped[a.waiting[0]]
		if ok && a.NotifyLoaded(c) != nil {
			return
		}
		a.waiting = a.waiting[1:]
	}
}

// Reallocate tears down all storage and starts over with layout. Every
// resident chunk must be notified again.
func (a *Allocator) Reallocate(layout Layout) error {
	if err := layout.validate(); err != nil {
		return err
	}
	a.dev.Release()
	a.reset(layout)
	a.log.Info("voxel storage reallocated", "extent", layout.Extent, "maxSlots", layout.MaxBanks*layout.SlotsPerBank)
	return nil
}

// Close releases the device storage.
func (a *Allocator) Close() { a.dev.Release() }

func packVoxels(dst []byte, voxels []material.ID) {
	for i, m := range voxels {
		dst[i] = byte(m)
	}
}

func (a *Allocator) Layout() Layout      { return a.layout }
func (a *Allocator) FreeSlots() int      { return len(a.free) }
func (a *Allocator) AllocatedSlots() int { return len(a.slots) }
func (a *Allocator) Banks() int          { return a.banks }
func (a *Allocator) PendingUploads() int { return len(a.queued) }
func (a *Allocator) Unmapped() int       { return len(a.unmapped) }

// TotalCapacity is the slot count of the banks created so far.
func (a *Allocator) TotalCapacity() int { return a.banks * a.layout.SlotsPerBank }

// SlotOf returns the slot mapped to pos.
func (a *Allocator) SlotOf(pos coord.Vec3i) (uint32, bool) {
	s, ok := a.slots[pos]
	return s, ok
}

// Entry returns the page table entry pos wraps onto.
func (a *Allocator) Entry(pos coord.Vec3i) uint32 { return a.table[a.layout.wrap(pos)] }

func (a *Allocator) ChunkLoaded(c *chunk.Chunk)    { _ = a.NotifyLoaded(c) }
func (a *Allocator) ChunkModified(c *chunk.Chunk)  { _ = a.NotifyLoaded(c) }
func (a *Allocator) ChunkUnloaded(pos coord.Vec3i) { a.Unload(pos) }
func (a *Allocator) VoxelDestroyed(mgl32.Vec3)     {}
func (a *Allocator) ObjectSpawned(*object.Object)  {}
func (a *Allocator) ObjectRemoved(*object.Object)  {}
