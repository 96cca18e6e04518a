package coord

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	tests := []struct {
		a, b, div, mod int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, tt := range tests {
		if got := FloorDiv(tt.a, tt.b); got != tt.div {
			t.Errorf("FloorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.div)
		}
		if got := Mod(tt.a, tt.b); got != tt.mod {
			t.Errorf("Mod(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.mod)
		}
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	for _, v := range []Vec3i{{0, 0, 0}, {-1, 5, 33}, {-16, -17, 47}} {
		c, l := Split(v, 16)
		if l.X < 0 || l.X >= 16 || l.Y < 0 || l.Y >= 16 || l.Z < 0 || l.Z >= 16 {
			t.Fatalf("Split(%v) local %v out of range", v, l)
		}
		if got := Join(c, l, 16); got != v {
			t.Errorf("Join(Split(%v)) = %v", v, got)
		}
	}
}

func TestAdjacent(t *testing.T) {
	if !Adjacent(Vec3i{0, 0, 0}, Vec3i{0, 0, 1}) {
		t.Error("face neighbours should be adjacent")
	}
	if Adjacent(Vec3i{0, 0, 0}, Vec3i{1, 1, 0}) {
		t.Error("edge neighbours should not be adjacent")
	}
}

func TestBounds(t *testing.T) {
	lo, hi, ok := Bounds([]Vec3i{{1, 2, 3}, {-1, 5, 0}, {4, -2, 1}})
	if !ok {
		t.Fatal("expected bounds")
	}
	if lo != (Vec3i{-1, -2, 0}) || hi != (Vec3i{4, 5, 3}) {
		t.Errorf("Bounds = %v..%v", lo, hi)
	}
	if _, _, ok := Bounds(nil); ok {
		t.Error("empty input should report !ok")
	}
}

func TestIndexUnindex(t *testing.T) {
	const size = 4
	seen := make(map[int]bool)
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := Vec3i{x, y, z}
				i := Index(v, size)
				if seen[i] {
					t.Fatalf("index %d produced twice", i)
				}
				seen[i] = true
				if got := Unindex(i, size); got != v {
					t.Fatalf("Unindex(%d) = %v, want %v", i, got, v)
				}
			}
		}
	}
	if len(seen) != size*size*size {
		t.Errorf("got %d indices, want %d", len(seen), size*size*size)
	}
}
