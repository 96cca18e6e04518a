// Package coord holds integer grid coordinates shared by chunks, voxels and objects.
package coord

// Vec3i is an integer grid coordinate. It is used for chunk positions,
// chunk-local voxel positions and world voxel positions alike.
type Vec3i struct {
	X, Y, Z int
}

// Faces are the six axis-aligned unit offsets.
var Faces = [6]Vec3i{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3i) Scale(s int) Vec3i { return Vec3i{v.X * s, v.Y * s, v.Z * s} }

// DistSq returns the squared euclidean distance between v and o.
func (v Vec3i) DistSq(o Vec3i) int {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// Neighbors6 returns the six face-adjacent coordinates of v.
func (v Vec3i) Neighbors6() [6]Vec3i {
	var out [6]Vec3i
	for i, f := range Faces {
		out[i] = v.Add(f)
	}
	return out
}

// Adjacent reports whether a and b share a face.
func Adjacent(a, b Vec3i) bool {
	d := a.Sub(b)
	return abs(d.X)+abs(d.Y)+abs(d.Z) == 1
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod returns a modulo b in [0, b).
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Split converts a world voxel coordinate into its chunk position and the
// local coordinate inside that chunk.
func Split(voxel Vec3i, size int) (chunk, local Vec3i) {
	chunk = Vec3i{FloorDiv(voxel.X, size), FloorDiv(voxel.Y, size), FloorDiv(voxel.Z, size)}
	local = Vec3i{Mod(voxel.X, size), Mod(voxel.Y, size), Mod(voxel.Z, size)}
	return chunk, local
}

// Join is the inverse of Split.
func Join(chunk, local Vec3i, size int) Vec3i {
	return chunk.Scale(size).Add(local)
}

// Bounds returns the inclusive min and max corners of coords.
// ok is false for an empty input.
func Bounds(coords []Vec3i) (lo, hi Vec3i, ok bool) {
	if len(coords) == 0 {
		return lo, hi, false
	}
	lo, hi = coords[0], coords[0]
	for _, c := range coords[1:] {
		lo.X, hi.X = min(lo.X, c.X), max(hi.X, c.X)
		lo.Y, hi.Y = min(lo.Y, c.Y), max(hi.Y, c.Y)
		lo.Z, hi.Z = min(lo.Z, c.Z), max(hi.Z, c.Z)
	}
	return lo, hi, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Index flattens a chunk-local coordinate into a voxel buffer index.
// X varies fastest and Z slowest.
func Index(local Vec3i, size int) int {
	return local.X + size*(local.Y+size*local.Z)
}

// Unindex is the inverse of Index.
func Unindex(i, size int) Vec3i {
	return Vec3i{X: i % size, Y: (i / size) % size, Z: i / (size * size)}
}

// InCube reports whether local lies inside a cube of side size.
func InCube(local Vec3i, size int) bool {
	return local.X >= 0 && local.Y >= 0 && local.Z >= 0 &&
		local.X < size && local.Y < size && local.Z < size
}
