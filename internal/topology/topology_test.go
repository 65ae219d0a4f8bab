package topology

import (
	"errors"
	"testing"
)

func TestBuild_Offsets(t *testing.T) {
	d, err := Build([]Link{
		{Parent: -1, Dofs: 1, PosVars: 1},
		{Parent: 0, Dofs: 3, PosVars: 4},
		{Parent: 0, Dofs: 0, PosVars: 0},
		{Parent: 1, Dofs: 1, PosVars: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.NumDofs != 5 {
		t.Errorf("expected 5 dofs, got %d", d.NumDofs)
	}
	if d.NumPosVars != 6 {
		t.Errorf("expected 6 position vars, got %d", d.NumPosVars)
	}

	wantDof := []int{0, 1, 4, 4}
	wantPos := []int{0, 1, 5, 5}
	for i := range wantDof {
		if d.DofOffset[i] != wantDof[i] {
			t.Errorf("link %d: expected dof offset %d, got %d", i, wantDof[i], d.DofOffset[i])
		}
		if d.PosOffset[i] != wantPos[i] {
			t.Errorf("link %d: expected pos offset %d, got %d", i, wantPos[i], d.PosOffset[i])
		}
	}

	if len(d.Children[0]) != 2 || d.Children[0][0] != 1 || d.Children[0][1] != 2 {
		t.Errorf("unexpected children of link 0: %v", d.Children[0])
	}
	if got := d.Depth(3); got != 3 {
		t.Errorf("expected depth 3, got %d", got)
	}
}

func TestBuild_OrderIsParentFirst(t *testing.T) {
	d, err := Build([]Link{
		{Parent: -1, Dofs: 1, PosVars: 1},
		{Parent: -1, Dofs: 1, PosVars: 1},
		{Parent: 1, Dofs: 1, PosVars: 1},
		{Parent: 0, Dofs: 1, PosVars: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[int]bool)
	for _, link := range d.Order {
		if p := d.Parent[link]; p >= 0 && !seen[p] {
			t.Errorf("link %d visited before its parent %d", link, p)
		}
		seen[link] = true
	}
	if len(d.Order) != 4 {
		t.Errorf("expected 4 links in order, got %d", len(d.Order))
	}
}

func TestBuild_InvalidParent(t *testing.T) {
	tests := []struct {
		name  string
		links []Link
	}{
		{"self parent", []Link{{Parent: 0, Dofs: 1, PosVars: 1}}},
		{"forward parent", []Link{{Parent: -1}, {Parent: 2}, {Parent: 0}}},
		{"below base", []Link{{Parent: -2}}},
		{"pos vars short", []Link{{Parent: -1, Dofs: 3, PosVars: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.links)
			if !errors.Is(err, ErrInvalidTree) {
				t.Errorf("expected ErrInvalidTree, got %v", err)
			}
		})
	}
}

func TestIsParentChild(t *testing.T) {
	d, err := Build([]Link{
		{Parent: -1, Dofs: 1, PosVars: 1},
		{Parent: 0, Dofs: 1, PosVars: 1},
		{Parent: 1, Dofs: 1, PosVars: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !d.IsParentChild(0, 1) || !d.IsParentChild(2, 1) || !d.IsParentChild(-1, 0) {
		t.Error("expected adjacent links to be parent/child")
	}
	if d.IsParentChild(0, 2) {
		t.Error("links 0 and 2 are not adjacent")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	d, err := Build([]Link{
		{Parent: -1, Dofs: 1, PosVars: 1},
		{Parent: 0, Dofs: 1, PosVars: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := d.Clone()
	if !c.Equal(d) {
		t.Fatal("clone should equal the original")
	}
	c.Parent[1] = -1
	if d.Parent[1] != 0 {
		t.Error("mutating the clone changed the original")
	}
}
