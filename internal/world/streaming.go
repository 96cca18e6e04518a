package world

import (
	"sort"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
)

// RequiredChunks returns the cylinder of chunk positions within radius of
// center on the XZ plane, spanning every chunk row from 0 to heightChunks-1,
// sorted nearest-first.
func RequiredChunks(center coord.Vec3i, radius, heightChunks int) []coord.Vec3i {
	var out []coord.Vec3i
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			for y := 0; y < heightChunks; y++ {
				out = append(out, coord.Vec3i{X: center.X + dx, Y: y, Z: center.Z + dz})
			}
		}
	}
	sortByDistance(center, out)
	return out
}

// Plan diffs the required set against the active one. loads holds required
// positions that are not active, nearest to center first; unloads holds
// active positions that are no longer required.
func Plan(center coord.Vec3i, required, active []coord.Vec3i) (loads, unloads []coord.Vec3i) {
	want := make(map[coord.Vec3i]struct{}, len(required))
	for _, p := range required {
		want[p] = struct{}{}
	}
	have := make(map[coord.Vec3i]struct{}, len(active))
	for _, p := range active {
		have[p] = struct{}{}
		if _, ok := want[p]; !ok {
			unloads = append(unloads, p)
		}
	}
	for p := range want {
		if _, ok := have[p]; !ok {
			loads = append(loads, p)
		}
	}
	sortByDistance(center, loads)
	sortByDistance(center, unloads)
	return loads, unloads
}

func sortByDistance(center coord.Vec3i, ps []coord.Vec3i) {
	sort.Slice(ps, func(i, j int) bool {
		di, dj := ps[i].DistSq(center), ps[j].DistSq(center)
		if di != dj {
			return di < dj
		}
		a, b := ps[i], ps[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
}
