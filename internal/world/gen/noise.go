package gen

// Seeded 2D simplex noise. Values are in [-1, 1].

var grad2 = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{0.70710678, 0.70710678}, {-0.70710678, 0.70710678},
	{0.70710678, -0.70710678}, {-0.70710678, -0.70710678},
}

// Noise is a seeded simplex noise source. The permutation table is written
// once in NewNoise and only read afterwards, so a Noise may be shared by any
// number of goroutines.
type Noise struct {
	perm [512]uint8
}

// NewNoise builds the permutation table for seed.
func NewNoise(seed int64) *Noise {
	n := &Noise{}

	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}

	state := uint64(seed)
	for i := 255; i > 0; i-- {
		j := int(splitmix64(&state) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}

	for i := range n.perm {
		n.perm[i] = p[i&255]
	}
	return n
}

// At samples the noise field at (x, y).
func (n *Noise) At(x, y float64) float64 {
	const (
		f2 = 0.36602540378443864676 // (sqrt(3) - 1) / 2
		g2 = 0.21132486540518711775 // (3 - sqrt(3)) / 6
	)

	s := (x + y) * f2
	i := floor(x + s)
	j := floor(y + s)

	t := float64(i+j) * g2
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}

	x1 := x0 - float64(i1) + g2
	y1 := y0 - float64(j1) + g2
	x2 := x0 - 1 + 2*g2
	y2 := y0 - 1 + 2*g2

	ii := i & 255
	jj := j & 255

	c0 := corner(n.gradient(ii, jj), x0, y0)
	c1 := corner(n.gradient(ii+i1, jj+j1), x1, y1)
	c2 := corner(n.gradient(ii+1, jj+1), x2, y2)

	v := 70 * (c0 + c1 + c2)
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Fractal sums octaves of noise, doubling frequency each octave and scaling
// amplitude by persistence. The result is normalised back to [-1, 1].
func (n *Noise) Fractal(x, y float64, octaves int, persistence float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		total += n.At(x*freq, y*freq) * amp
		norm += amp
		amp *= persistence
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return total / norm
}

func (n *Noise) gradient(i, j int) [2]float64 {
	return grad2[n.perm[i+int(n.perm[j&255])]&7]
}

func corner(g [2]float64, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

func floor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// hash2 is a cheap deterministic per-column hash used for decoration.
func hash2(seed int64, x, z int) uint64 {
	state := uint64(seed) ^ uint64(int64(x))*0x9E3779B1 ^ uint64(int64(z))*0x85EBCA77
	return splitmix64(&state)
}
