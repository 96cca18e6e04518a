package gen

import (
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// FlatGenerator produces a layered flat world: stone up to height-2,
// one dirt layer, grass on top.
type FlatGenerator struct {
	height int
}

// NewFlat creates a FlatGenerator whose grass layer sits at y = height.
func NewFlat(height int) *FlatGenerator {
	return &FlatGenerator{height: max(height, 1)}
}

func (g *FlatGenerator) Generate(pos coord.Vec3i, size int, dst []material.ID) {
	fillColumns(pos, size, dst, g.HeightAt, func(_, wy, _, top int) material.ID {
		switch {
		case wy < 0:
			return material.Air
		case wy < top-1:
			return material.Stone
		case wy == top-1:
			return material.Dirt
		case wy == top:
			return material.Grass
		}
		return material.Air
	})
}

func (g *FlatGenerator) HeightAt(_, _ int) int {
	return g.height
}
