package multibody

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/featherstone/internal/spatial"
)

// jointSolve is the per-link result of the inward pass reused by the
// outward pass: U = Iᴬ·S, D⁻¹ and u = τ − Sᵀ·pᴬ.
type jointSolve struct {
	u    []spatial.ForceVector
	dinv *mat.Dense
	tau  []float64
}

// ComputeAccelerations runs the articulated-body algorithm with the current
// state, gravity, the user accumulators and the constraint forces, and
// stores the resulting joint and base accelerations.
func (m *MultiBody) ComputeAccelerations(gravity mgl64.Vec3) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	tau := make([]float64, len(m.jointTorques))
	for i := range tau {
		tau[i] = m.jointTorques[i] + m.constraintTau[i]
	}
	qdd, baseAcc, err := m.articulatedBody(tau, gravity, true)
	if err != nil {
		return err
	}
	copy(m.qdd, qdd)
	m.baseAcc = baseAcc
	return nil
}

// AccelerationDeltas returns M⁻¹·force: the joint accelerations produced by
// a generalized force alone, with zero velocity and no gravity.
func (m *MultiBody) AccelerationDeltas(force []float64) ([]float64, error) {
	if !m.finalized {
		return nil, ErrNotFinalized
	}
	if len(force) != m.topo.NumDofs {
		return nil, fmt.Errorf("%w: force: expected %d, got %d", ErrDimensionMismatch, m.topo.NumDofs, len(force))
	}
	qdd, _, err := m.articulatedBody(force, mgl64.Vec3{}, false)
	return qdd, err
}

// articulatedBody is the three-pass ABA. With loads false every velocity
// product, gravity and external force is dropped.
func (m *MultiBody) articulatedBody(tau []float64, gravity mgl64.Vec3, loads bool) ([]float64, spatial.MotionVector, error) {
	n := len(m.links)
	fixed := m.HasFixedBase()
	vel := make([]spatial.MotionVector, n)
	bias := make([]spatial.MotionVector, n)
	ia := make([]spatial.Mat6, n)
	pa := make([]spatial.ForceVector, n)
	solves := make([]jointSolve, n)

	baseIA := spatial.RigidInertia(m.opts.BaseMass, m.opts.BaseInertia)
	var baseVel spatial.MotionVector
	var basePA spatial.ForceVector
	if loads && !fixed {
		baseVel = m.baseVel
		basePA = m.baseBias(gravity)
	}

	// Outward: velocities, velocity-product accelerations and rigid-body
	// inertias.
	for _, i := range m.topo.Order {
		l := &m.links[i]
		parentVel := baseVel
		if l.Parent >= 0 {
			parentVel = vel[l.Parent]
		}
		var vJ spatial.MotionVector
		if loads {
			qd := m.dofSlice(m.qd, i)
			for k, s := range l.subspace {
				vJ = vJ.Add(s.Scale(qd[k]))
			}
		}
		vel[i] = l.x.Motion(parentVel).Add(vJ)
		bias[i] = vel[i].Cross(vJ)
		ia[i] = spatial.RigidInertia(l.Mass, l.Inertia)
		if loads {
			pa[i] = m.linkBias(i, vel[i], gravity)
		}
	}

	// Inward: articulated inertias and bias forces.
	for idx := n - 1; idx >= 0; idx-- {
		i := m.topo.Order[idx]
		l := &m.links[i]
		iaI, paI := ia[i], pa[i]

		if dofs := len(l.subspace); dofs > 0 {
			js, err := solveJoint(l.subspace, ia[i], pa[i], m.dofSlice(tau, i))
			if err != nil {
				return nil, spatial.MotionVector{}, fmt.Errorf("%w: link %d: %w", ErrSingularInertia, i, err)
			}
			solves[i] = js
			for r := 0; r < dofs; r++ {
				coef := 0.0
				for c := 0; c < dofs; c++ {
					iaI = iaI.Sub(spatial.Outer(js.u[r], js.u[c]).Scale(js.dinv.At(r, c)))
					coef += js.dinv.At(r, c) * js.tau[c]
				}
				paI = paI.Add(js.u[r].Scale(coef))
			}
		}
		paI = paI.Add(iaI.MulMotion(bias[i]))

		toParentI := l.x.InertiaToParent(iaI)
		toParentP := l.x.InverseForce(paI)
		if l.Parent >= 0 {
			ia[l.Parent] = ia[l.Parent].Add(toParentI)
			pa[l.Parent] = pa[l.Parent].Add(toParentP)
		} else {
			baseIA = baseIA.Add(toParentI)
			basePA = basePA.Add(toParentP)
		}
	}

	var baseAcc spatial.MotionVector
	if !fixed {
		a, err := baseIA.Solve(basePA.Scale(-1))
		if err != nil {
			return nil, spatial.MotionVector{}, fmt.Errorf("%w: base: %w", ErrSingularInertia, err)
		}
		baseAcc = a
	}

	// Outward: accelerations.
	acc := make([]spatial.MotionVector, n)
	qdd := make([]float64, m.topo.NumDofs)
	for _, i := range m.topo.Order {
		l := &m.links[i]
		parentAcc := baseAcc
		if l.Parent >= 0 {
			parentAcc = acc[l.Parent]
		}
		a := l.x.Motion(parentAcc).Add(bias[i])

		js := solves[i]
		out := m.dofSlice(qdd, i)
		for r := range out {
			for c := range out {
				out[r] += js.dinv.At(r, c) * (js.tau[c] - js.u[c].Dot(a))
			}
		}
		for k, s := range l.subspace {
			a = a.Add(s.Scale(out[k]))
		}
		acc[i] = a
	}
	return qdd, baseAcc, nil
}

func solveJoint(subspace []spatial.MotionVector, ia spatial.Mat6, pa spatial.ForceVector, tau []float64) (jointSolve, error) {
	dofs := len(subspace)
	js := jointSolve{
		u:   make([]spatial.ForceVector, dofs),
		tau: make([]float64, dofs),
	}
	for k, s := range subspace {
		js.u[k] = ia.MulMotion(s)
		js.tau[k] = tau[k] - s.Dot(pa)
	}

	d := mat.NewDense(dofs, dofs, nil)
	for r, s := range subspace {
		for c := range subspace {
			d.Set(r, c, s.Dot(js.u[c]))
		}
	}
	var dinv mat.Dense
	if err := dinv.Inverse(d); err != nil {
		return jointSolve{}, err
	}
	js.dinv = &dinv
	return js, nil
}

// linkBias is the velocity-product force of a link minus its external
// forces (gravity and user loads), in the link frame.
func (m *MultiBody) linkBias(i int, v spatial.MotionVector, gravity mgl64.Vec3) spatial.ForceVector {
	l := &m.links[i]
	toLocal := l.pose.Rotation.Conjugate()
	ext := spatial.ForceVector{
		Moment: toLocal.Rotate(l.torque),
		Force:  toLocal.Rotate(l.force.Add(gravity.Mul(l.Mass))),
	}
	return m.rigidBias(l.Mass, l.Inertia, v).Add(m.damping(l.Mass, l.Inertia, v)).Sub(ext)
}

// baseBias is linkBias for a floating base.
func (m *MultiBody) baseBias(gravity mgl64.Vec3) spatial.ForceVector {
	mass, inertia := m.opts.BaseMass, m.opts.BaseInertia
	toLocal := m.basePose.Rotation.Conjugate()
	ext := spatial.ForceVector{
		Moment: toLocal.Rotate(m.baseTorque),
		Force:  toLocal.Rotate(m.baseForce.Add(gravity.Mul(mass))),
	}
	return m.rigidBias(mass, inertia, m.baseVel).Add(m.damping(mass, inertia, m.baseVel)).Sub(ext)
}

// damping resists a body's own velocity, weighted by its mass and inertia.
func (m *MultiBody) damping(mass float64, inertia mgl64.Vec3, v spatial.MotionVector) spatial.ForceVector {
	return spatial.ForceVector{
		Moment: spatial.Diag(inertia).Mul3x1(v.Angular).Mul(m.opts.AngularDamping),
		Force:  v.Linear.Mul(m.opts.LinearDamping * mass),
	}
}

// rigidBias is v ×* I·v for a body frame at the centre of mass. The
// gyroscopic moment is only included when enabled.
func (m *MultiBody) rigidBias(mass float64, inertia mgl64.Vec3, v spatial.MotionVector) spatial.ForceVector {
	var f spatial.ForceVector
	if m.opts.UseGyroTerm {
		f.Moment = v.Angular.Cross(spatial.Diag(inertia).Mul3x1(v.Angular))
	}
	f.Force = v.Angular.Cross(v.Linear).Mul(mass)
	return f
}

// linkVelocities returns the spatial velocity of every link in its own frame.
func (m *MultiBody) linkVelocities() []spatial.MotionVector {
	vel := make([]spatial.MotionVector, len(m.links))
	for _, i := range m.topo.Order {
		l := &m.links[i]
		parentVel := m.baseVel
		if l.Parent >= 0 {
			parentVel = vel[l.Parent]
		}
		qd := m.dofSlice(m.qd, i)
		v := l.x.Motion(parentVel)
		for k, s := range l.subspace {
			v = v.Add(s.Scale(qd[k]))
		}
		vel[i] = v
	}
	return vel
}

// LinkVelocity returns a link's spatial velocity in its own frame.
func (m *MultiBody) LinkVelocity(link int) (spatial.MotionVector, error) {
	if !m.finalized {
		return spatial.MotionVector{}, ErrNotFinalized
	}
	if link < 0 || link >= len(m.links) {
		return spatial.MotionVector{}, indexError("link", link, len(m.links))
	}
	return m.linkVelocities()[link], nil
}

func (m *MultiBody) KineticEnergy() float64 {
	if !m.finalized {
		return 0
	}
	energy := 0.0
	if !m.HasFixedBase() {
		in := spatial.RigidInertia(m.opts.BaseMass, m.opts.BaseInertia)
		energy += 0.5 * m.baseVel.Dot(in.MulMotion(m.baseVel))
	}
	for i, v := range m.linkVelocities() {
		in := spatial.RigidInertia(m.links[i].Mass, m.links[i].Inertia)
		energy += 0.5 * v.Dot(in.MulMotion(v))
	}
	return energy
}

// LinearMomentum is the total world-frame linear momentum of the base and
// links.
func (m *MultiBody) LinearMomentum() mgl64.Vec3 {
	if !m.finalized {
		return mgl64.Vec3{}
	}
	var p mgl64.Vec3
	if !m.HasFixedBase() {
		p = m.basePose.Rotation.Rotate(m.baseVel.Linear).Mul(m.opts.BaseMass)
	}
	for i, v := range m.linkVelocities() {
		l := &m.links[i]
		p = p.Add(l.pose.Rotation.Rotate(v.Linear).Mul(l.Mass))
	}
	return p
}

// PotentialEnergy is measured from the world origin along gravity.
func (m *MultiBody) PotentialEnergy(gravity mgl64.Vec3) float64 {
	energy := -m.opts.BaseMass * gravity.Dot(m.basePose.Position)
	for _, l := range m.links {
		energy -= l.Mass * gravity.Dot(l.pose.Position)
	}
	return energy
}

// GeneralizedPositions returns the full position layout: for a floating
// base the base rotation vector and world position come first, followed by
// one scalar coordinate per joint DOF.
func (m *MultiBody) GeneralizedPositions() []float64 {
	out := make([]float64, 0, m.NumFullDofs())
	if !m.HasFixedBase() {
		rv := spatial.RotationVector(m.basePose.Rotation)
		p := m.basePose.Position
		out = append(out, rv[0], rv[1], rv[2], p[0], p[1], p[2])
	}
	for i, l := range m.links {
		for k := 0; k < m.topo.DofCount[i]; k++ {
			out = append(out, l.Joint.Coordinate(m.posSlice(i), k))
		}
	}
	return out
}

// GeneralizedVelocities returns the base velocity (base frame, angular
// first) for a floating base followed by the joint velocities.
func (m *MultiBody) GeneralizedVelocities() []float64 {
	out := make([]float64, 0, m.NumFullDofs())
	if !m.HasFixedBase() {
		v := m.baseVel.Array()
		out = append(out, v[:]...)
	}
	return append(out, m.qd...)
}

func (m *MultiBody) GeneralizedAccelerations() []float64 {
	out := make([]float64, 0, m.NumFullDofs())
	if !m.HasFixedBase() {
		a := m.baseAcc.Array()
		out = append(out, a[:]...)
	}
	return append(out, m.qdd...)
}
