// Package connectivity partitions voxel sets into face-connected components
// and probes whether a region of the static world is still supported.
package connectivity

import "github.com/OCharnyshevich/voxelworld/internal/world/coord"

// Components splits coords into 6-connected components. Only listed
// coordinates are nodes; duplicates are collapsed. Component order and the
// order of coordinates inside a component are unspecified.
func Components(coords []coord.Vec3i) [][]coord.Vec3i {
	pool := make(map[coord.Vec3i]struct{}, len(coords))
	for _, c := range coords {
		pool[c] = struct{}{}
	}

	var out [][]coord.Vec3i
	queue := make([]coord.Vec3i, 0, len(pool))
	for _, seed := range coords {
		if _, ok := pool[seed]; !ok {
			continue
		}
		delete(pool, seed)

		queue = append(queue[:0], seed)
		for head := 0; head < len(queue); head++ {
			for _, n := range queue[head].Neighbors6() {
				if _, ok := pool[n]; ok {
					delete(pool, n)
					queue = append(queue, n)
				}
			}
		}
		comp := make([]coord.Vec3i, len(queue))
		copy(comp, queue)
		out = append(out, comp)
	}
	return out
}

// Cell is the answer of a Probe for one world voxel.
type Cell uint8

const (
	Empty Cell = iota
	Solid
	// Unknown marks a voxel whose chunk is not loaded.
	Unknown
)

// Probe reports the occupancy of a world voxel.
type Probe func(pos coord.Vec3i) Cell

// Limits bound a support search.
type Limits struct {
	// GroundY is the highest voxel y that counts as ground contact.
	GroundY int
	// MaxCluster caps how many voxels are visited before the cluster is
	// assumed to be supported.
	MaxCluster int
	// UnknownIsGround treats voxels in unloaded chunks as supported.
	UnknownIsGround bool
}

// Support floods outward from seed through solid voxels. It returns the
// visited cluster and whether the cluster is grounded. A grounded result stops
// early, so its cluster is partial and must not be used for extraction.
// visited, if non-nil, records every voxel touched so callers can skip
// seeds already covered by an earlier search.
func Support(seed coord.Vec3i, probe Probe, lim Limits, visited map[coord.Vec3i]struct{}) (cluster []coord.Vec3i, grounded bool) {
	if probe(seed) != Solid {
		return nil, false
	}
	seen := map[coord.Vec3i]struct{}{seed: {}}
	mark := func(p coord.Vec3i) {
		if visited != nil {
			visited[p] = struct{}{}
		}
	}
	mark(seed)

	cluster = append(cluster, seed)
	for head := 0; head < len(cluster); head++ {
		p := cluster[head]
		if p.Y <= lim.GroundY {
			return cluster, true
		}
		if lim.MaxCluster > 0 && len(cluster) > lim.MaxCluster {
			return cluster, true
		}
		for _, n := range p.Neighbors6() {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			switch probe(n) {
			case Solid:
				mark(n)
				cluster = append(cluster, n)
			case Unknown:
				if lim.UnknownIsGround {
					return cluster, true
				}
			}
		}
	}
	return cluster, false
}
