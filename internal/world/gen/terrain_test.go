package gen

import (
	"sync"
	"testing"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
)

func TestTerrainHeightClamped(t *testing.T) {
	g := NewTerrain(7, 64)
	for x := -200; x < 200; x += 7 {
		for z := -200; z < 200; z += 11 {
			h := g.HeightAt(x, z)
			if h < 1 || h > 63 {
				t.Fatalf("HeightAt(%d,%d) = %d, want within [1,63]", x, z, h)
			}
		}
	}
}

func TestTerrainColumnsMatchHeight(t *testing.T) {
	const size = 16
	g := NewTerrain(99, 64)
	grid := make([]material.ID, size*size*size)
	g.Generate(coord.Vec3i{X: 2, Y: 0, Z: -3}, size, grid)

	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			top := g.HeightAt(2*size+x, -3*size+z)
			for y := 0; y < size; y++ {
				m := grid[coord.Index(coord.Vec3i{X: x, Y: y, Z: z}, size)]
				if y <= top && !material.IsPhysicsSolid(m) {
					t.Fatalf("voxel (%d,%d,%d) below height %d is %v", x, y, z, top, m)
				}
				if y > top+1 && m != material.Air {
					t.Fatalf("voxel (%d,%d,%d) above height %d is %v", x, y, z, top, m)
				}
			}
		}
	}
}

func TestTerrainDeterministicAcrossGoroutines(t *testing.T) {
	const size = 8
	g := NewTerrain(3, 32)
	want := make([]material.ID, size*size*size)
	g.Generate(coord.Vec3i{X: 1, Y: 1, Z: 1}, size, want)

	var wg sync.WaitGroup
	errs := make(chan coord.Vec3i, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := make([]material.ID, size*size*size)
			g.Generate(coord.Vec3i{X: 1, Y: 1, Z: 1}, size, got)
			for j := range got {
				if got[j] != want[j] {
					errs <- coord.Unindex(j, size)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for p := range errs {
		t.Errorf("concurrent generation diverged at %v", p)
	}
}

func TestFlatGeneratorLayers(t *testing.T) {
	const size = 8
	g := NewFlat(4)
	grid := make([]material.ID, size*size*size)
	g.Generate(coord.Vec3i{}, size, grid)

	want := map[int]material.ID{0: material.Stone, 2: material.Stone, 3: material.Dirt, 4: material.Grass, 5: material.Air}
	for y, m := range want {
		if got := grid[coord.Index(coord.Vec3i{X: 1, Y: y, Z: 1}, size)]; got != m {
			t.Errorf("flat y=%d = %v, want %v", y, got, m)
		}
	}

	g.Generate(coord.Vec3i{Y: -1}, size, grid)
	for i, m := range grid {
		if m != material.Air {
			t.Fatalf("chunk below ground has %v at %v", m, coord.Unindex(i, size))
		}
	}
}
