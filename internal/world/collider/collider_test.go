package collider

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

func TestSolidCubeIsOneBox(t *testing.T) {
	const size = 4
	grid := make([]material.ID, size*size*size)
	for i := range grid {
		grid[i] = material.Stone
	}

	boxes := Build(grid, size, 1, NewScratch(size))
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if want := (mgl32.Vec3{2, 2, 2}); boxes[0].HalfExtent != want {
		t.Errorf("HalfExtent = %v, want %v", boxes[0].HalfExtent, want)
	}
	if want := (mgl32.Vec3{2, 2, 2}); boxes[0].Center != want {
		t.Errorf("Center = %v, want %v", boxes[0].Center, want)
	}
}

func TestVoxelSizeScalesBoxes(t *testing.T) {
	const size = 4
	grid := make([]material.ID, size*size*size)
	grid[coord.Index(coord.Vec3i{X: 1, Y: 0, Z: 0}, size)] = material.Dirt

	boxes := Build(grid, size, 0.5, NewScratch(size))
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if want := (mgl32.Vec3{0.75, 0.25, 0.25}); !boxes[0].Center.ApproxEqual(want) {
		t.Errorf("Center = %v, want %v", boxes[0].Center, want)
	}
	if want := (mgl32.Vec3{0.25, 0.25, 0.25}); !boxes[0].HalfExtent.ApproxEqual(want) {
		t.Errorf("HalfExtent = %v, want %v", boxes[0].HalfExtent, want)
	}
}

func TestEmptyAndDecorativeGridsHaveNoBoxes(t *testing.T) {
	const size = 4
	grid := make([]material.ID, size*size*size)
	if n := len(Build(grid, size, 1, NewScratch(size))); n != 0 {
		t.Errorf("air grid produced %d boxes", n)
	}
	for i := range grid {
		grid[i] = material.Leaves
	}
	if n := len(Build(grid, size, 1, NewScratch(size))); n != 0 {
		t.Errorf("leaves grid produced %d boxes", n)
	}
}

// voxelsOf returns the voxel cells covered by b, with unit voxel size.
func voxelsOf(t *testing.T, b Box) []coord.Vec3i {
	t.Helper()
	lo, hi := b.Min(), b.Max()
	var out []coord.Vec3i
	for z := int(math.Round(float64(lo.Z()))); z < int(math.Round(float64(hi.Z()))); z++ {
		for y := int(math.Round(float64(lo.Y()))); y < int(math.Round(float64(hi.Y()))); y++ {
			for x := int(math.Round(float64(lo.X()))); x < int(math.Round(float64(hi.X()))); x++ {
				out = append(out, coord.Vec3i{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func TestRandomGridsCoveredExactlyOnce(t *testing.T) {
	const size = 8
	rng := rand.New(rand.NewSource(1))
	scratch := NewScratch(size)
	palette := []material.ID{material.Air, material.Stone, material.Dirt, material.Leaves}

	for round := 0; round < 50; round++ {
		grid := make([]material.ID, size*size*size)
		solid := 0
		for i := range grid {
			grid[i] = palette[rng.Intn(len(palette))]
			if material.IsPhysicsSolid(grid[i]) {
				solid++
			}
		}

		boxes := Build(grid, size, 1, scratch)
		if len(boxes) > solid {
			t.Fatalf("round %d: %d boxes for %d solid voxels", round, len(boxes), solid)
		}

		covered := make([]int, len(grid))
		for _, b := range boxes {
			for _, v := range voxelsOf(t, b) {
				if !coord.InCube(v, size) {
					t.Fatalf("round %d: box %v leaves the chunk", round, b)
				}
				covered[coord.Index(v, size)]++
			}
		}
		for i, n := range covered {
			want := 0
			if material.IsPhysicsSolid(grid[i]) {
				want = 1
			}
			if n != want {
				t.Fatalf("round %d: voxel %v covered %d times, want %d", round, coord.Unindex(i, size), n, want)
			}
		}
	}
}

func TestSlabMergesAlongX(t *testing.T) {
	const size = 4
	grid := make([]material.ID, size*size*size)
	for x := 0; x < size; x++ {
		grid[coord.Index(coord.Vec3i{X: x, Y: 0, Z: 0}, size)] = material.Stone
		grid[coord.Index(coord.Vec3i{X: x, Y: 0, Z: 2}, size)] = material.Stone
	}
	boxes := Build(grid, size, 1, NewScratch(size))
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	for _, b := range boxes {
		if b.HalfExtent != (mgl32.Vec3{2, 0.5, 0.5}) {
			t.Errorf("HalfExtent = %v, want (2, .5, .5)", b.HalfExtent)
		}
	}
}
