package gen

import (
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// TerrainGenerator builds rolling hills from two layers of gradient noise.
type TerrainGenerator struct {
	seed        int64
	base        *Noise
	detail      *Noise
	worldHeight int
	shoreLevel  int
}

// NewTerrain creates a TerrainGenerator. Heights are clamped to
// [1, worldHeight-1] voxels.
func NewTerrain(seed int64, worldHeight int) *TerrainGenerator {
	return &TerrainGenerator{
		seed:        seed,
		base:        NewNoise(seed),
		detail:      NewNoise(seed + 1),
		worldHeight: worldHeight,
		shoreLevel:  worldHeight / 4,
	}
}

func (g *TerrainGenerator) Generate(pos coord.Vec3i, size int, dst []material.ID) {
	fillColumns(pos, size, dst, g.HeightAt, g.pick)
}

// HeightAt returns the surface height of the world column.
func (g *TerrainGenerator) HeightAt(wx, wz int) int {
	base := g.base.Fractal(float64(wx)/96, float64(wz)/96, 5, 0.5)
	detail := g.detail.Fractal(float64(wx)/24, float64(wz)/24, 3, 0.5)

	mid := float64(g.worldHeight) * 0.35
	amp := float64(g.worldHeight) * 0.25
	h := int(mid + base*amp + detail*3)
	return max(1, min(h, g.worldHeight-1))
}

func (g *TerrainGenerator) pick(wx, wy, wz, top int) material.ID {
	switch {
	case wy < 0:
		return material.Air
	case wy <= top-3:
		return material.Stone
	case wy < top:
		return material.Dirt
	case wy == top:
		if top <= g.shoreLevel {
			return material.Sand
		}
		return material.Grass
	case wy == top+1 && top > g.shoreLevel && hash2(g.seed, wx, wz)%23 == 0:
		return material.Leaves
	}
	return material.Air
}
