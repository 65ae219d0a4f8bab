// Package topology holds the integer description of a kinematic tree that
// the forward and inverse dynamics trees share: parent indices, DOF and
// position offsets, children, and a parent-before-child order.
package topology

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var ErrInvalidTree = errors.New("topology: invalid tree")

// Descriptor is never written after Build. Trees that must own their copy
// call Clone.
type Descriptor struct {
	Parent     []int
	Children   [][]int
	DofOffset  []int
	DofCount   []int
	PosOffset  []int
	PosCount   []int
	Order      []int
	NumDofs    int
	NumPosVars int
}

// Link is the minimal per-link input to Build.
type Link struct {
	Parent  int
	Dofs    int
	PosVars int
}

// Build validates the parent list and lays out the flat DOF and position
// buffers. Node 0 of the graph is the base and link i is node i+1.
func Build(links []Link) (Descriptor, error) {
	n := len(links)
	g := simple.NewDirectedGraph()
	g.AddNode(simple.Node(0))
	for i := range links {
		g.AddNode(simple.Node(i + 1))
	}

	d := Descriptor{
		Parent:    make([]int, n),
		Children:  make([][]int, n),
		DofOffset: make([]int, n),
		DofCount:  make([]int, n),
		PosOffset: make([]int, n),
		PosCount:  make([]int, n),
	}

	for i, l := range links {
		if l.Parent < -1 || l.Parent >= i {
			return Descriptor{}, fmt.Errorf("%w: link %d has parent %d", ErrInvalidTree, i, l.Parent)
		}
		if l.Dofs < 0 || l.PosVars < l.Dofs {
			return Descriptor{}, fmt.Errorf("%w: link %d has %d dofs and %d position vars", ErrInvalidTree, i, l.Dofs, l.PosVars)
		}
		g.SetEdge(g.NewEdge(simple.Node(l.Parent+1), simple.Node(i+1)))

		d.Parent[i] = l.Parent
		if l.Parent >= 0 {
			d.Children[l.Parent] = append(d.Children[l.Parent], i)
		}
		d.DofOffset[i] = d.NumDofs
		d.DofCount[i] = l.Dofs
		d.PosOffset[i] = d.NumPosVars
		d.PosCount[i] = l.PosVars
		d.NumDofs += l.Dofs
		d.NumPosVars += l.PosVars
	}

	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	d.Order = make([]int, 0, n)
	for _, node := range sorted {
		if id := int(node.ID()); id > 0 {
			d.Order = append(d.Order, id-1)
		}
	}
	return d, nil
}

func (d Descriptor) NumLinks() int {
	return len(d.Parent)
}

// Roots returns links attached directly to the base.
func (d Descriptor) Roots() []int {
	var roots []int
	for i, p := range d.Parent {
		if p < 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Depth is the number of joints between the link and the base.
func (d Descriptor) Depth(link int) int {
	depth := 1
	for p := d.Parent[link]; p >= 0; p = d.Parent[p] {
		depth++
	}
	return depth
}

// IsParentChild reports whether a and b are directly connected, treating
// -1 as the base.
func (d Descriptor) IsParentChild(a, b int) bool {
	if a >= 0 && d.Parent[a] == b {
		return true
	}
	return b >= 0 && d.Parent[b] == a
}

// Equal reports whether two descriptors describe the same tree.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.NumDofs != o.NumDofs || d.NumPosVars != o.NumPosVars || len(d.Parent) != len(o.Parent) {
		return false
	}
	for i := range d.Parent {
		if d.Parent[i] != o.Parent[i] || d.DofOffset[i] != o.DofOffset[i] || d.DofCount[i] != o.DofCount[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Parent = append([]int(nil), d.Parent...)
	c.DofOffset = append([]int(nil), d.DofOffset...)
	c.DofCount = append([]int(nil), d.DofCount...)
	c.PosOffset = append([]int(nil), d.PosOffset...)
	c.PosCount = append([]int(nil), d.PosCount...)
	c.Order = append([]int(nil), d.Order...)
	c.Children = make([][]int, len(d.Children))
	for i, ch := range d.Children {
		c.Children[i] = append([]int(nil), ch...)
	}
	return c
}
