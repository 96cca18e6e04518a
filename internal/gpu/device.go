// Package gpu maps resident chunks onto slots of GPU voxel storage through a
// toroidal page table.
package gpu

import (
	"fmt"
)

// Device is the GPU-side storage the allocator writes to.
type Device interface {
	// CreateBank allocates bank index with the given size in bytes.
	CreateBank(index, bytes int) error
	// WriteBank copies payload into bank at offset.
	WriteBank(bank, offset int, payload []byte) error
	// WritePageTable uploads the full page table.
	WritePageTable(entries []uint32) error
	// Release frees every bank and the page table.
	Release()
}

// MemoryDevice keeps banks in host memory. It backs headless runs and tests.
type MemoryDevice struct {
	Banks     [][]byte
	PageTable []uint32
	Writes    int
	Flushes   int
	Releases  int
	MaxBytes  int // zero means unlimited
	allocated int
}

func NewMemoryDevice() *MemoryDevice { return &MemoryDevice{} }

func (d *MemoryDevice) CreateBank(index, bytes int) error {
	if d.MaxBytes > 0 && d.allocated+bytes > d.MaxBytes {
		return fmt.Errorf("create bank %d: %d bytes exceeds device limit", index, bytes)
	}
	for len(d.Banks) <= index {
		d.Banks = append(d.Banks, nil)
	}
	d.Banks[index] = make([]byte, bytes)
	d.allocated += bytes
	return nil
}

func (d *MemoryDevice) WriteBank(bank, offset int, payload []byte) error {
	if bank < 0 || bank >= len(d.Banks) || d.Banks[bank] == nil {
		return fmt.Errorf("write bank %d: no such bank", bank)
	}
	if offset < 0 || offset+len(payload) > len(d.Banks[bank]) {
		return fmt.Errorf("write bank %d: range [%d,%d) out of bounds", bank, offset, offset+len(payload))
	}
	copy(d.Banks[bank][offset:], payload)
	d.Writes++
	return nil
}

func (d *MemoryDevice) WritePageTable(entries []uint32) error {
	d.PageTable = append(d.PageTable[:0], entries...)
	d.Flushes++
	return nil
}

func (d *MemoryDevice) Release() {
	d.Banks = nil
	d.PageTable = nil
	d.allocated = 0
	d.Releases++
}
