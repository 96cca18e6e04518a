// Package collider merges the solid voxels of a chunk into axis-aligned boxes.
package collider

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

// Box is an axis-aligned collider, positioned relative to the chunk origin
// in world units.
type Box struct {
	Center     mgl32.Vec3
	HalfExtent mgl32.Vec3
}

// Scratch holds the reusable buffers of one builder. A Scratch must not be
// shared between goroutines.
type Scratch struct {
	visited []bool
	boxes   []Box
}

// NewScratch preallocates buffers for chunks of side size.
func NewScratch(size int) *Scratch {
	n := size * size * size
	return &Scratch{
		visited: make([]bool, n),
		boxes:   make([]Box, 0, n/8),
	}
}

// Build greedily merges the physics-solid voxels of grid into boxes.
//
// Voxels are scanned with Z outermost. Each unvisited solid voxel seeds a box
// that grows along X, then along Y while the whole X row is solid and
// unvisited, then along Z while the whole X×Y slab is. Every physics-solid
// voxel ends up in exactly one box. The returned slice aliases s and is valid
// until the next Build with the same Scratch.
func Build(grid []material.ID, size int, voxelSize float32, s *Scratch) []Box {
	n := size * size * size
	if len(grid) < n {
		return nil
	}
	if cap(s.visited) < n {
		s.visited = make([]bool, n)
	}
	visited := s.visited[:n]
	clear(visited)
	s.boxes = s.boxes[:0]

	open := func(x, y, z int) bool {
		i := coord.Index(coord.Vec3i{X: x, Y: y, Z: z}, size)
		return !visited[i] && material.IsPhysicsSolid(grid[i])
	}

	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				if !open(x, y, z) {
					continue
				}

				w := 1
				for x+w < size && open(x+w, y, z) {
					w++
				}

				h := 1
			growY:
				for y+h < size {
					for dx := 0; dx < w; dx++ {
						if !open(x+dx, y+h, z) {
							break growY
						}
					}
					h++
				}

				d := 1
			growZ:
				for z+d < size {
					for dy := 0; dy < h; dy++ {
						for dx := 0; dx < w; dx++ {
							if !open(x+dx, y+dy, z+d) {
								break growZ
							}
						}
					}
					d++
				}

				for dz := 0; dz < d; dz++ {
					for dy := 0; dy < h; dy++ {
						for dx := 0; dx < w; dx++ {
							visited[coord.Index(coord.Vec3i{X: x + dx, Y: y + dy, Z: z + dz}, size)] = true
						}
					}
				}

				half := mgl32.Vec3{float32(w), float32(h), float32(d)}.Mul(voxelSize / 2)
				lo := mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(voxelSize)
				s.boxes = append(s.boxes, Box{Center: lo.Add(half), HalfExtent: half})
			}
		}
	}
	return s.boxes
}

// Min returns the minimum corner of b.
func (b Box) Min() mgl32.Vec3 { return b.Center.Sub(b.HalfExtent) }

// Max returns the maximum corner of b.
func (b Box) Max() mgl32.Vec3 { return b.Center.Add(b.HalfExtent) }
