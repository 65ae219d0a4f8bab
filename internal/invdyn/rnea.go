package invdyn

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/spatial"
)

// rnea runs the two Newton-Euler passes. With loads false gravity, user
// forces and damping are ignored, which leaves M·qddot for zero velocity.
func (t *Tree) rnea(q, qdot, qddot, out []float64, loads bool) {
	base := t.basePose
	var baseVel, baseAcc spatial.MotionVector
	off := 0
	if !t.fixedBase {
		base = spatial.Pose{
			Rotation: spatial.FromRotationVector(mgl64.Vec3{q[0], q[1], q[2]}),
			Position: mgl64.Vec3{q[3], q[4], q[5]},
		}
		baseVel = spatial.MotionFromSlice(qdot[0:6])
		baseAcc = spatial.MotionFromSlice(qddot[0:6])
		off = 6
	}

	// Outward: velocities, accelerations and the force each body needs.
	for _, i := range t.topo.Order {
		l := &t.links[i]
		dof := off + t.topo.DofOffset[i]
		nd := t.topo.DofCount[i]

		pos := off + t.topo.PosOffset[i]
		rot, r := l.joint.Kinematics(q[pos : pos+t.topo.PosCount[i]])
		x := spatial.NewTransform(rot, r)
		t.xform[i] = x

		parentVel, parentAcc, parentRot := baseVel, baseAcc, base.Rotation
		if p := t.topo.Parent[i]; p >= 0 {
			parentVel, parentAcc, parentRot = t.vel[p], t.acc[p], t.rot[p]
		}
		t.rot[i] = parentRot.Mul(rot.Conjugate()).Normalize()

		var vJ, aJ spatial.MotionVector
		for k := 0; k < nd; k++ {
			vJ = vJ.Add(l.subspace[k].Scale(qdot[dof+k]))
			aJ = aJ.Add(l.subspace[k].Scale(qddot[dof+k]))
		}
		v := x.Motion(parentVel).Add(vJ)
		a := x.Motion(parentAcc).Add(aJ).Add(v.Cross(vJ))
		t.vel[i], t.acc[i] = v, a

		in := spatial.RigidInertia(l.mass, l.inertia)
		f := in.MulMotion(a).Add(t.bias(l.mass, l.inertia, v))
		if loads {
			f = f.Add(t.damping(l.mass, l.inertia, v))
			f = f.Sub(t.external(t.rot[i], l.mass, t.userMoment[i], t.userForce[i]))
		}
		t.force[i] = f
	}

	var baseForce spatial.ForceVector
	if !t.fixedBase {
		in := spatial.RigidInertia(t.baseMass, t.baseInertia)
		baseForce = in.MulMotion(baseAcc).Add(t.bias(t.baseMass, t.baseInertia, baseVel))
		if loads {
			baseForce = baseForce.Add(t.damping(t.baseMass, t.baseInertia, baseVel))
			baseForce = baseForce.Sub(t.external(base.Rotation, t.baseMass, t.baseMoment, t.baseForce))
		}
	}

	// Inward: project onto the joint axes and pass the rest to the parent.
	for idx := len(t.topo.Order) - 1; idx >= 0; idx-- {
		i := t.topo.Order[idx]
		l := &t.links[i]
		dof := off + t.topo.DofOffset[i]
		for k := 0; k < t.topo.DofCount[i]; k++ {
			out[dof+k] = l.subspace[k].Dot(t.force[i])
		}

		toParent := t.xform[i].InverseForce(t.force[i])
		if p := t.topo.Parent[i]; p >= 0 {
			t.force[p] = t.force[p].Add(toParent)
		} else {
			baseForce = baseForce.Add(toParent)
		}
	}

	if !t.fixedBase {
		wrench := baseForce.Array()
		copy(out[0:6], wrench[:])
	}
}

func (t *Tree) bias(mass float64, inertia mgl64.Vec3, v spatial.MotionVector) spatial.ForceVector {
	var f spatial.ForceVector
	if t.useGyro {
		f.Moment = v.Angular.Cross(spatial.Diag(inertia).Mul3x1(v.Angular))
	}
	f.Force = v.Angular.Cross(v.Linear).Mul(mass)
	return f
}

func (t *Tree) damping(mass float64, inertia mgl64.Vec3, v spatial.MotionVector) spatial.ForceVector {
	return spatial.ForceVector{
		Moment: spatial.Diag(inertia).Mul3x1(v.Angular).Mul(t.angDamping),
		Force:  v.Linear.Mul(t.linDamping * mass),
	}
}

// external maps world-frame loads plus gravity into a body frame whose
// world rotation is rot.
func (t *Tree) external(rot mgl64.Quat, mass float64, moment, force mgl64.Vec3) spatial.ForceVector {
	toLocal := rot.Conjugate()
	return spatial.ForceVector{
		Moment: toLocal.Rotate(moment),
		Force:  toLocal.Rotate(force.Add(t.gravity.Mul(mass))),
	}
}
