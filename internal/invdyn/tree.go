// Package invdyn computes joint forces from desired accelerations with the
// recursive Newton-Euler algorithm.
//
// A Tree is built once from a finalized MultiBody and owns its own copies of
// the link parameters. The two trees share only the integer topology
// descriptor, so the tree can be evaluated at any state without touching the
// simulated body.
package invdyn

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/spatial"
	"github.com/san-kum/featherstone/internal/topology"
)

// BaseIndex addresses the floating base in AddUserForce and AddUserMoment.
const BaseIndex = multibody.BaseIndex

type link struct {
	joint    joint.Joint
	subspace []spatial.MotionVector
	mass     float64
	inertia  mgl64.Vec3
}

type Tree struct {
	topo        topology.Descriptor
	links       []link
	fixedBase   bool
	baseMass    float64
	baseInertia mgl64.Vec3
	basePose    spatial.Pose
	useGyro     bool
	linDamping  float64
	angDamping  float64
	gravity     mgl64.Vec3

	userForce  []mgl64.Vec3
	userMoment []mgl64.Vec3
	baseForce  mgl64.Vec3
	baseMoment mgl64.Vec3

	vel   []spatial.MotionVector
	acc   []spatial.MotionVector
	force []spatial.ForceVector
	rot   []mgl64.Quat
	xform []spatial.Transform
}

// CreateFromMultiBody mirrors a finalized MultiBody. Spherical joints are not
// supported.
func CreateFromMultiBody(mb *multibody.MultiBody) (*Tree, error) {
	if mb == nil || !mb.Finalized() {
		return nil, fmt.Errorf("%w: %w", multibody.ErrTreeConstruction, multibody.ErrNotFinalized)
	}

	n := mb.NumLinks()
	opts := mb.Options()
	t := &Tree{
		topo:        mb.Topology().Clone(),
		links:       make([]link, n),
		fixedBase:   mb.HasFixedBase(),
		baseMass:    opts.BaseMass,
		baseInertia: opts.BaseInertia,
		basePose:    mb.BasePose(),
		useGyro:     opts.UseGyroTerm,
		linDamping:  opts.LinearDamping,
		angDamping:  opts.AngularDamping,
		userForce:   make([]mgl64.Vec3, n),
		userMoment:  make([]mgl64.Vec3, n),
		vel:         make([]spatial.MotionVector, n),
		acc:         make([]spatial.MotionVector, n),
		force:       make([]spatial.ForceVector, n),
		rot:         make([]mgl64.Quat, n),
		xform:       make([]spatial.Transform, n),
	}

	for i := 0; i < n; i++ {
		l, err := mb.Link(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", multibody.ErrTreeConstruction, err)
		}
		if l.Joint.Type == joint.Spherical {
			return nil, fmt.Errorf("%w: link %d: %w: %v", multibody.ErrTreeConstruction, i, multibody.ErrUnsupportedJointType, l.Joint.Type)
		}
		t.links[i] = link{
			joint:    l.Joint,
			subspace: l.Subspace(),
			mass:     l.Mass,
			inertia:  l.Inertia,
		}
	}
	return t, nil
}

func (t *Tree) NumLinks() int                 { return len(t.links) }
func (t *Tree) NumDofs() int                  { return t.topo.NumDofs }
func (t *Tree) HasFixedBase() bool            { return t.fixedBase }
func (t *Tree) Topology() topology.Descriptor { return t.topo }
func (t *Tree) Gravity() mgl64.Vec3           { return t.gravity }
func (t *Tree) SetGravity(g mgl64.Vec3)       { t.gravity = g }
func (t *Tree) SetBasePose(p spatial.Pose)    { t.basePose = p }

// NumFullDofs is the length of every array passed to
// CalculateInverseDynamics.
func (t *Tree) NumFullDofs() int {
	if t.fixedBase {
		return t.topo.NumDofs
	}
	return t.topo.NumDofs + 6
}

// AddUserForce adds a world-frame force at a link's centre of mass for the
// next calculation only.
func (t *Tree) AddUserForce(linkIndex int, f mgl64.Vec3) error {
	if linkIndex == BaseIndex {
		t.baseForce = t.baseForce.Add(f)
		return nil
	}
	if linkIndex < 0 || linkIndex >= len(t.links) {
		return fmt.Errorf("%w: link %d not in [0, %d)", multibody.ErrIndexOutOfRange, linkIndex, len(t.links))
	}
	t.userForce[linkIndex] = t.userForce[linkIndex].Add(f)
	return nil
}

// AddUserMoment adds a world-frame moment to a link for the next
// calculation only.
func (t *Tree) AddUserMoment(linkIndex int, moment mgl64.Vec3) error {
	if linkIndex == BaseIndex {
		t.baseMoment = t.baseMoment.Add(moment)
		return nil
	}
	if linkIndex < 0 || linkIndex >= len(t.links) {
		return fmt.Errorf("%w: link %d not in [0, %d)", multibody.ErrIndexOutOfRange, linkIndex, len(t.links))
	}
	t.userMoment[linkIndex] = t.userMoment[linkIndex].Add(moment)
	return nil
}

// ClearUserForces drops every pending user force and moment.
func (t *Tree) ClearUserForces() {
	for i := range t.userForce {
		t.userForce[i] = mgl64.Vec3{}
		t.userMoment[i] = mgl64.Vec3{}
	}
	t.baseForce = mgl64.Vec3{}
	t.baseMoment = mgl64.Vec3{}
}

// CalculateInverseDynamics writes into jointForce the generalized forces
// that produce qddot at state (q, qdot). For a floating base every array
// carries six leading base entries: positions are the base rotation vector
// and world position, velocities and accelerations are angular then linear
// in the base frame, and the forces are the base wrench in the base frame.
// User forces are consumed by the call whether or not it succeeds.
func (t *Tree) CalculateInverseDynamics(hasFixedBase bool, q, qdot, qddot, jointForce []float64) error {
	defer t.ClearUserForces()

	if hasFixedBase != t.fixedBase {
		return fmt.Errorf("%w: fixed base flag %v, tree built with %v", multibody.ErrDimensionMismatch, hasFixedBase, t.fixedBase)
	}
	if err := t.checkLengths(q, qdot, qddot, jointForce); err != nil {
		return err
	}
	t.rnea(q, qdot, qddot, jointForce, true)
	return nil
}

// CalculateMassMatrix returns the joint-space mass matrix at q, including
// the base block for a floating base.
func (t *Tree) CalculateMassMatrix(q []float64) (*mat.SymDense, error) {
	n := t.NumFullDofs()
	if len(q) != n {
		return nil, fmt.Errorf("%w: q: expected %d, got %d", multibody.ErrDimensionMismatch, n, len(q))
	}

	zero := make([]float64, n)
	unit := make([]float64, n)
	column := make([]float64, n)
	m := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		unit[j] = 1
		t.rnea(q, zero, unit, column, false)
		unit[j] = 0
		for i := 0; i <= j; i++ {
			m.SetSym(i, j, column[i])
		}
	}
	return m, nil
}

func (t *Tree) checkLengths(q, qdot, qddot, jointForce []float64) error {
	n := t.NumFullDofs()
	for _, v := range []struct {
		name string
		buf  []float64
	}{
		{"q", q},
		{"qdot", qdot},
		{"qddot", qddot},
		{"joint force", jointForce},
	} {
		if len(v.buf) != n {
			return fmt.Errorf("%w: %s: expected %d, got %d", multibody.ErrDimensionMismatch, v.name, n, len(v.buf))
		}
	}
	return nil
}
