package material

import "testing"

func TestPhysicsSolidLookup(t *testing.T) {
	tests := []struct {
		id   ID
		want bool
	}{
		{Air, false},
		{Stone, true},
		{Dirt, true},
		{Leaves, false},
		{ID(200), false},
	}
	for _, tt := range tests {
		if got := IsPhysicsSolid(tt.id); got != tt.want {
			t.Errorf("IsPhysicsSolid(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if !Lookup(Leaves).RenderSolid {
		t.Error("leaves should render")
	}
}

func TestMajority(t *testing.T) {
	if got := Majority([]ID{Stone, Dirt, Stone, Air, Air, Air}); got != Stone {
		t.Errorf("Majority = %v, want stone", got)
	}
	if got := Majority(nil); got != Air {
		t.Errorf("Majority(nil) = %v, want air", got)
	}
	if got := Majority([]ID{Wood, Dirt}); got != Dirt {
		t.Errorf("tie should resolve to lower id, got %v", got)
	}
}
