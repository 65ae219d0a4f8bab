// Package multibody models a kinematic tree of rigid links and simulates it
// with Featherstone's articulated-body algorithm.
//
// A MultiBody is built once with AddLink calls, locked with Finalize, and then
// stepped: forces are accumulated, accelerations computed, and velocities and
// positions advanced with semi-implicit Euler. Link frames sit at the link
// centre of mass. A base mass of zero pins the base in place and removes its
// six degrees of freedom.
package multibody

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/spatial"
	"github.com/san-kum/featherstone/internal/topology"
)

const BaseIndex = -1

type Options struct {
	// NumLinks, when positive, is checked against the links present at Finalize.
	NumLinks       int
	BaseMass       float64
	BaseInertia    mgl64.Vec3
	CanSleep       bool
	SelfCollision  bool
	UseGyroTerm    bool
	LinearDamping  float64
	AngularDamping float64
}

func DefaultOptions() Options {
	return Options{
		UseGyroTerm:    true,
		LinearDamping:  0.04,
		AngularDamping: 0.04,
	}
}

// LinkSpec describes a link to add. ZeroRot defaults to the identity.
type LinkSpec struct {
	Parent        int
	Type          joint.Type
	Mass          float64
	Inertia       mgl64.Vec3
	ParentToPivot mgl64.Vec3
	PivotToCom    mgl64.Vec3
	Axis          mgl64.Vec3
	ZeroRot       mgl64.Quat
}

type Link struct {
	Parent   int
	Joint    joint.Joint
	Mass     float64
	Inertia  mgl64.Vec3
	Collider *Collider

	subspace []spatial.MotionVector
	x        spatial.Transform
	pose     spatial.Pose
	force    mgl64.Vec3
	torque   mgl64.Vec3
}

// Subspace returns a copy of the link's motion subspace columns.
func (l Link) Subspace() []spatial.MotionVector {
	return append([]spatial.MotionVector(nil), l.subspace...)
}

type MultiBody struct {
	opts      Options
	links     []Link
	finalized bool
	topo      topology.Descriptor

	basePose      spatial.Pose
	baseVel       spatial.MotionVector
	baseAcc       spatial.MotionVector
	baseForce     mgl64.Vec3
	baseTorque    mgl64.Vec3
	baseCollider  *Collider
	q             []float64
	qd            []float64
	qdd           []float64
	jointTorques  []float64
	constraintTau []float64

	awake      bool
	sleepTimer float64
}

func New(opts Options) (*MultiBody, error) {
	if opts.BaseMass < 0 || opts.NumLinks < 0 || opts.LinearDamping < 0 || opts.AngularDamping < 0 {
		return nil, fmt.Errorf("%w: negative base mass, link count or damping", ErrInvalidTopology)
	}
	if opts.BaseMass > 0 && (opts.BaseInertia[0] <= 0 || opts.BaseInertia[1] <= 0 || opts.BaseInertia[2] <= 0) {
		return nil, fmt.Errorf("%w: floating base needs positive inertia, got %v", ErrInvalidTopology, opts.BaseInertia)
	}
	return &MultiBody{
		opts:     opts,
		basePose: spatial.IdentityPose(),
		awake:    true,
	}, nil
}

// AddLink appends a link with an identity zero-pose rotation and returns its
// index.
func (m *MultiBody) AddLink(parent int, typ joint.Type, mass float64, inertia, parentToPivot, pivotToCom, axis mgl64.Vec3) (int, error) {
	return m.AddLinkSpec(LinkSpec{
		Parent:        parent,
		Type:          typ,
		Mass:          mass,
		Inertia:       inertia,
		ParentToPivot: parentToPivot,
		PivotToCom:    pivotToCom,
		Axis:          axis,
	})
}

func (m *MultiBody) AddLinkSpec(spec LinkSpec) (int, error) {
	index := len(m.links)
	reject := func(reason string, err error) (int, error) {
		return -1, &TopologyError{Link: index, Parent: spec.Parent, Reason: reason, Err: err}
	}

	if m.finalized {
		return reject("cannot add link", ErrFinalizedTopology)
	}
	if spec.Parent < BaseIndex || spec.Parent >= index {
		return reject("parent must precede the link", ErrInvalidTopology)
	}
	if !spec.Type.Valid() {
		return reject(fmt.Sprintf("joint type %v", spec.Type), ErrInvalidTopology)
	}
	if spec.Mass < 0 || spec.Inertia[0] < 0 || spec.Inertia[1] < 0 || spec.Inertia[2] < 0 {
		return reject("negative mass or inertia", ErrInvalidTopology)
	}
	if spec.Type.RequiresAxis() {
		if spec.Axis.Len() < 1e-9 {
			return reject(spec.Type.String()+" joint needs an axis", ErrInvalidTopology)
		}
		spec.Axis = spec.Axis.Normalize()
	}

	zero := spec.ZeroRot
	if zero == (mgl64.Quat{}) {
		zero = mgl64.QuatIdent()
	}

	m.links = append(m.links, Link{
		Parent: spec.Parent,
		Joint: joint.Joint{
			Type:          spec.Type,
			Axis:          spec.Axis,
			ZeroRot:       zero.Normalize(),
			ParentToPivot: spec.ParentToPivot,
			PivotToCom:    spec.PivotToCom,
		},
		Mass:    spec.Mass,
		Inertia: spec.Inertia,
	})
	return index, nil
}

// Finalize locks the topology, lays out the state buffers and computes the
// zero-pose kinematics.
func (m *MultiBody) Finalize() error {
	if m.finalized {
		return ErrFinalizedTopology
	}
	if m.opts.NumLinks > 0 && m.opts.NumLinks != len(m.links) {
		return fmt.Errorf("%w: expected %d links, have %d", ErrInvalidTopology, m.opts.NumLinks, len(m.links))
	}

	specs := make([]topology.Link, len(m.links))
	for i := range m.links {
		l := &m.links[i]
		l.subspace = l.Joint.MotionSubspace()
		if len(l.subspace) != l.Joint.Type.DOFs() {
			return &TopologyError{Link: i, Parent: l.Parent, Reason: "motion subspace does not match joint DOFs", Err: ErrInvalidTopology}
		}
		specs[i] = topology.Link{Parent: l.Parent, Dofs: l.Joint.Type.DOFs(), PosVars: l.Joint.Type.PosVars()}
	}

	desc, err := topology.Build(specs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}

	m.topo = desc
	m.q = make([]float64, desc.NumPosVars)
	m.qd = make([]float64, desc.NumDofs)
	m.qdd = make([]float64, desc.NumDofs)
	m.jointTorques = make([]float64, desc.NumDofs)
	m.constraintTau = make([]float64, desc.NumDofs)
	for i := range m.links {
		m.links[i].Joint.Reset(m.posSlice(i))
	}
	m.finalized = true
	m.UpdateKinematics()
	return nil
}

func (m *MultiBody) Finalized() bool         { return m.finalized }
func (m *MultiBody) HasFixedBase() bool      { return m.opts.BaseMass == 0 }
func (m *MultiBody) NumLinks() int           { return len(m.links) }
func (m *MultiBody) NumDofs() int            { return m.topo.NumDofs }
func (m *MultiBody) NumPosVars() int         { return m.topo.NumPosVars }
func (m *MultiBody) Options() Options        { return m.opts }
func (m *MultiBody) CanSleep() bool          { return m.opts.CanSleep }
func (m *MultiBody) SelfCollision() bool     { return m.opts.SelfCollision }
func (m *MultiBody) UseGyroTerm() bool       { return m.opts.UseGyroTerm }
func (m *MultiBody) LinearDamping() float64  { return m.opts.LinearDamping }
func (m *MultiBody) AngularDamping() float64 { return m.opts.AngularDamping }

// Topology returns the shared integer descriptor. It is only valid after
// Finalize.
func (m *MultiBody) Topology() topology.Descriptor {
	return m.topo
}

// NumFullDofs counts the six base DOFs when the base is floating.
func (m *MultiBody) NumFullDofs() int {
	if m.HasFixedBase() {
		return m.topo.NumDofs
	}
	return m.topo.NumDofs + 6
}

func (m *MultiBody) Link(i int) (Link, error) {
	if i < 0 || i >= len(m.links) {
		return Link{}, indexError("link", i, len(m.links))
	}
	return m.links[i], nil
}

func (m *MultiBody) posSlice(link int) []float64 {
	off := m.topo.PosOffset[link]
	return m.q[off : off+m.topo.PosCount[link]]
}

func (m *MultiBody) dofSlice(buf []float64, link int) []float64 {
	off := m.topo.DofOffset[link]
	return buf[off : off+m.topo.DofCount[link]]
}

// locate maps a global DOF index to its link and the DOF within the link.
func (m *MultiBody) locate(dof int) (int, int, error) {
	if !m.finalized {
		return 0, 0, ErrNotFinalized
	}
	if dof < 0 || dof >= m.topo.NumDofs {
		return 0, 0, indexError("dof", dof, m.topo.NumDofs)
	}
	for i := range m.links {
		off := m.topo.DofOffset[i]
		if dof < off+m.topo.DofCount[i] {
			return i, dof - off, nil
		}
	}
	return 0, 0, indexError("dof", dof, m.topo.NumDofs)
}

// LinkDof returns the global DOF index of DOF k of a link.
func (m *MultiBody) LinkDof(link, k int) (int, error) {
	if !m.finalized {
		return 0, ErrNotFinalized
	}
	if link < 0 || link >= len(m.links) {
		return 0, indexError("link", link, len(m.links))
	}
	if k < 0 || k >= m.topo.DofCount[link] {
		return 0, indexError("link dof", k, m.topo.DofCount[link])
	}
	return m.topo.DofOffset[link] + k, nil
}

// JointPosition reads the position of one DOF. Spherical joints report the
// components of their rotation vector.
func (m *MultiBody) JointPosition(dof int) (float64, error) {
	link, k, err := m.locate(dof)
	if err != nil {
		return 0, err
	}
	return m.links[link].Joint.Coordinate(m.posSlice(link), k), nil
}

func (m *MultiBody) SetJointPosition(dof int, value float64) error {
	link, k, err := m.locate(dof)
	if err != nil {
		return err
	}
	m.links[link].Joint.SetCoordinate(m.posSlice(link), k, value)
	m.UpdateKinematics()
	return nil
}

func (m *MultiBody) JointVelocity(dof int) (float64, error) {
	if _, _, err := m.locate(dof); err != nil {
		return 0, err
	}
	return m.qd[dof], nil
}

func (m *MultiBody) SetJointVelocity(dof int, value float64) error {
	if _, _, err := m.locate(dof); err != nil {
		return err
	}
	m.qd[dof] = value
	m.WakeUp()
	return nil
}

func (m *MultiBody) JointAcceleration(dof int) (float64, error) {
	if _, _, err := m.locate(dof); err != nil {
		return 0, err
	}
	return m.qdd[dof], nil
}

// Positions returns a copy of the raw position variables. Spherical joints
// occupy four entries (x, y, z, w).
func (m *MultiBody) Positions() []float64     { return append([]float64(nil), m.q...) }
func (m *MultiBody) Velocities() []float64    { return append([]float64(nil), m.qd...) }
func (m *MultiBody) Accelerations() []float64 { return append([]float64(nil), m.qdd...) }

// SetPositions overwrites the raw position variables.
func (m *MultiBody) SetPositions(q []float64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if len(q) != len(m.q) {
		return fmt.Errorf("%w: positions: expected %d, got %d", ErrDimensionMismatch, len(m.q), len(q))
	}
	copy(m.q, q)
	for i, l := range m.links {
		if l.Joint.Type == joint.Spherical {
			p := m.posSlice(i)
			joint.SetSphericalQuat(p, joint.SphericalQuat(p).Normalize())
		}
	}
	m.UpdateKinematics()
	return nil
}

func (m *MultiBody) SetVelocities(qd []float64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if len(qd) != len(m.qd) {
		return fmt.Errorf("%w: velocities: expected %d, got %d", ErrDimensionMismatch, len(m.qd), len(qd))
	}
	copy(m.qd, qd)
	m.WakeUp()
	return nil
}

func (m *MultiBody) BasePose() spatial.Pose { return m.basePose }

func (m *MultiBody) SetBasePose(p spatial.Pose) {
	p.Rotation = p.Rotation.Normalize()
	m.basePose = p
	if m.finalized {
		m.UpdateKinematics()
	}
}

// BaseVelocity is expressed in the base frame, angular part first.
func (m *MultiBody) BaseVelocity() spatial.MotionVector     { return m.baseVel }
func (m *MultiBody) BaseAcceleration() spatial.MotionVector { return m.baseAcc }

// SetBaseVelocity is ignored for a fixed base.
func (m *MultiBody) SetBaseVelocity(v spatial.MotionVector) {
	if m.HasFixedBase() {
		return
	}
	m.baseVel = v
	m.WakeUp()
}

// LinkPose returns the world pose of a link frame, or of the base for
// BaseIndex.
func (m *MultiBody) LinkPose(link int) (spatial.Pose, error) {
	if link == BaseIndex {
		return m.basePose, nil
	}
	if link < 0 || link >= len(m.links) {
		return spatial.Pose{}, indexError("link", link, len(m.links))
	}
	return m.links[link].pose, nil
}

// LinkTransform returns the cached parent-to-link transform.
func (m *MultiBody) LinkTransform(link int) (spatial.Transform, error) {
	if link < 0 || link >= len(m.links) {
		return spatial.Transform{}, indexError("link", link, len(m.links))
	}
	return m.links[link].x, nil
}

// UpdateKinematics recomputes the parent-to-link transforms and world poses
// from the current positions.
func (m *MultiBody) UpdateKinematics() {
	if !m.finalized {
		return
	}
	for _, i := range m.topo.Order {
		l := &m.links[i]
		rot, r := l.Joint.Kinematics(m.posSlice(i))
		l.x = spatial.NewTransform(rot, r)

		parent := m.basePose
		if l.Parent >= 0 {
			parent = m.links[l.Parent].pose
		}
		world := parent.Rotation.Mul(rot.Conjugate()).Normalize()
		l.pose = spatial.Pose{
			Position: parent.Position.Add(world.Rotate(r)),
			Rotation: world,
		}
	}
}
