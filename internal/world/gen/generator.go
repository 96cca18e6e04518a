// Package gen produces chunk material grids from a seed.
package gen

import (
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// Generator fills chunk grids deterministically. Implementations must be safe
// for concurrent use: workers call Generate in parallel with their own dst.
type Generator interface {
	// Generate writes the material grid of the chunk at pos into dst,
	// which has length size³ and is laid out as coord.Index.
	Generate(pos coord.Vec3i, size int, dst []material.ID)
	// HeightAt returns the top solid voxel y at world column (wx, wz).
	HeightAt(wx, wz int) int
}

// New returns the generator registered under kind ("terrain" or "flat").
func New(kind string, seed int64, worldHeight int) Generator {
	switch kind {
	case "flat":
		return NewFlat(worldHeight / 4)
	default:
		return NewTerrain(seed, worldHeight)
	}
}

// fillColumns clears dst and then asks pick for the material of every voxel
// of the chunk, passing world coordinates and the column's surface height.
func fillColumns(pos coord.Vec3i, size int, dst []material.ID, height func(wx, wz int) int, pick func(wx, wy, wz, top int) material.ID) {
	clear(dst)
	baseY := pos.Y * size
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			wx := pos.X*size + x
			wz := pos.Z*size + z
			top := height(wx, wz)
			for y := 0; y < size; y++ {
				wy := baseY + y
				if m := pick(wx, wy, wz, top); m != material.Air {
					dst[coord.Index(coord.Vec3i{X: x, Y: y, Z: z}, size)] = m
				}
			}
		}
	}
}
