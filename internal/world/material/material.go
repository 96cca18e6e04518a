// Package material defines voxel material ids and their static properties.
package material

// ID identifies a voxel material. Air is always zero.
type ID uint8

const (
	Air ID = iota
	Dirt
	Grass
	Stone
	Wood
	Sand
	Leaves

	count
)

// Properties describes how a material behaves for rendering and physics.
type Properties struct {
	Name         string
	RenderSolid  bool
	PhysicsSolid bool
	Density      float32 // mass per unit voxel
}

var table = [count]Properties{
	Air:    {Name: "air"},
	Dirt:   {Name: "dirt", RenderSolid: true, PhysicsSolid: true, Density: 1.5},
	Grass:  {Name: "grass", RenderSolid: true, PhysicsSolid: true, Density: 1.4},
	Stone:  {Name: "stone", RenderSolid: true, PhysicsSolid: true, Density: 2.6},
	Wood:   {Name: "wood", RenderSolid: true, PhysicsSolid: true, Density: 0.7},
	Sand:   {Name: "sand", RenderSolid: true, PhysicsSolid: true, Density: 1.6},
	Leaves: {Name: "leaves", RenderSolid: true, Density: 0.2},
}

// Lookup returns the properties of id. Unknown ids behave like Air.
func Lookup(id ID) Properties {
	if id >= count {
		return table[Air]
	}
	return table[id]
}

// IsPhysicsSolid reports whether id takes part in collision geometry.
func IsPhysicsSolid(id ID) bool { return Lookup(id).PhysicsSolid }

// IsSolid reports whether id occupies its voxel at all.
func IsSolid(id ID) bool { return id != Air }

func (id ID) String() string { return Lookup(id).Name }

// Majority returns the most common non-air material in ids, or Air.
// Ties resolve to the lower id.
func Majority(ids []ID) ID {
	var counts [count]int
	for _, id := range ids {
		if id != Air && id < count {
			counts[id]++
		}
	}
	best := Air
	for id := Air + 1; id < count; id++ {
		if counts[id] > counts[best] {
			best = id
		}
	}
	return best
}
