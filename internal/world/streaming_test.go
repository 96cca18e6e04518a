package world

import (
	"testing"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
)

func TestPlanFortyLoads(t *testing.T) {
	center := coord.Vec3i{}
	var required []coord.Vec3i
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			for y := 0; y < 2; y++ {
				required = append(required, coord.Vec3i{X: x, Y: y, Z: z})
			}
		}
	}
	if len(required) != 50 {
		t.Fatalf("required = %d", len(required))
	}
	active := required[20:30]

	loads, unloads := Plan(center, required, active)
	if len(loads) != 40 || len(unloads) != 0 {
		t.Fatalf("loads=%d unloads=%d, want 40 and 0", len(loads), len(unloads))
	}
	for i := 1; i < len(loads); i++ {
		if loads[i].DistSq(center) < loads[i-1].DistSq(center) {
			t.Fatalf("loads not sorted at %d: %v before %v", i, loads[i-1], loads[i])
		}
	}
	for _, p := range loads {
		for _, a := range active {
			if p == a {
				t.Fatalf("active chunk %v scheduled for load", p)
			}
		}
	}
}

func TestPlanUnloads(t *testing.T) {
	required := []coord.Vec3i{{X: 0}, {X: 1}}
	active := []coord.Vec3i{{X: 1}, {X: 5}, {X: 9}}
	loads, unloads := Plan(coord.Vec3i{}, required, active)
	if len(loads) != 1 || loads[0] != (coord.Vec3i{}) {
		t.Fatalf("loads = %v", loads)
	}
	if len(unloads) != 2 || unloads[0].X != 5 || unloads[1].X != 9 {
		t.Fatalf("unloads = %v", unloads)
	}
}

func TestRequiredChunks(t *testing.T) {
	center := coord.Vec3i{X: 10, Z: -3}
	got := RequiredChunks(center, 1, 2)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0] != (coord.Vec3i{X: 10, Z: -3}) {
		t.Fatalf("nearest = %v", got[0])
	}
	for _, p := range got {
		dx, dz := p.X-center.X, p.Z-center.Z
		if dx*dx+dz*dz > 1 || p.Y < 0 || p.Y > 1 {
			t.Fatalf("%v outside the cylinder", p)
		}
	}
}
