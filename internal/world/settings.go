package world

import (
	"github.com/OCharnyshevich/voxelworld/internal/config"
	"github.com/OCharnyshevich/voxelworld/internal/gpu"
	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
)

// SetRenderDistance changes the streaming radius. Chunks outside the new
// radius are unloaded first, then the GPU allocator is rebuilt for the new
// page table extent and every remaining resident chunk is notified again.
func (m *Manager) SetRenderDistance(n int) error {
	changed, err := m.settings.SetRenderDistance(n)
	if err != nil || !changed {
		return err
	}
	if m.haveCenter {
		m.stream(m.center)
	} else {
		m.recompute = true
	}
	if m.gpu == nil {
		return nil
	}
	layout := gpu.LayoutFor(n, m.cfg.HeightChunks, m.cfg.ChunkSize, m.cfg.SlotsPerBank, m.cfg.MaxBanks)
	if err := m.gpu.Reallocate(layout); err != nil {
		return err
	}
	m.chunks.Range(func(c *chunk.Chunk) bool {
		if _, ok := m.wanted[c.Pos]; ok {
			_ = m.gpu.NotifyLoaded(c)
		}
		return true
	})
	return nil
}

// SetGenerationWorkers restarts the generation pool with n workers.
func (m *Manager) SetGenerationWorkers(n int) error {
	changed, err := m.settings.SetGenerationWorkers(n)
	if err != nil || !changed {
		return err
	}
	m.gen.Resize(n)
	m.recompute = true
	return nil
}

// SetPhysicsWorkers restarts the collider pool with n workers.
func (m *Manager) SetPhysicsWorkers(n int) error {
	changed, err := m.settings.SetPhysicsWorkers(n)
	if err != nil || !changed {
		return err
	}
	m.build.Resize(n)
	return nil
}

// SetUploadBudget changes how many chunks are uploaded per frame.
func (m *Manager) SetUploadBudget(n int) error {
	_, err := m.settings.SetUploadBudget(n)
	return err
}

// Settings returns the current runtime settings.
func (m *Manager) Settings() *config.Settings { return m.settings }
