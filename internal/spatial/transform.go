package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the Plücker transform from a parent frame to a child frame.
// Rot maps parent coordinates to child coordinates and R is the child origin
// relative to the parent origin, in child coordinates.
type Transform struct {
	Rot mgl64.Mat3
	R   mgl64.Vec3
}

func NewTransform(rot mgl64.Quat, r mgl64.Vec3) Transform {
	return Transform{Rot: rot.Mat4().Mat3(), R: r}
}

func IdentityTransform() Transform {
	return Transform{Rot: mgl64.Ident3()}
}

// Motion maps a parent-frame motion vector into the child frame.
func (x Transform) Motion(m MotionVector) MotionVector {
	w := x.Rot.Mul3x1(m.Angular)
	return MotionVector{
		Angular: w,
		Linear:  x.Rot.Mul3x1(m.Linear).Sub(x.R.Cross(w)),
	}
}

// InverseMotion maps a child-frame motion vector into the parent frame.
func (x Transform) InverseMotion(m MotionVector) MotionVector {
	et := x.Rot.Transpose()
	return MotionVector{
		Angular: et.Mul3x1(m.Angular),
		Linear:  et.Mul3x1(m.Linear.Add(x.R.Cross(m.Angular))),
	}
}

// Force maps a parent-frame force vector into the child frame.
func (x Transform) Force(f ForceVector) ForceVector {
	fc := x.Rot.Mul3x1(f.Force)
	return ForceVector{
		Moment: x.Rot.Mul3x1(f.Moment).Sub(x.R.Cross(fc)),
		Force:  fc,
	}
}

// InverseForce maps a child-frame force vector into the parent frame (Xᵀ·f).
func (x Transform) InverseForce(f ForceVector) ForceVector {
	et := x.Rot.Transpose()
	return ForceVector{
		Moment: et.Mul3x1(f.Moment.Add(x.R.Cross(f.Force))),
		Force:  et.Mul3x1(f.Force),
	}
}

// Matrix returns the 6×6 motion transform.
func (x Transform) Matrix() Mat6 {
	return Mat6{
		TL: x.Rot,
		BL: Skew(x.R).Mul3(x.Rot).Mul(-1),
		BR: x.Rot,
	}
}

// InertiaToParent expresses a child-frame inertia in the parent frame: Xᵀ·I·X.
func (x Transform) InertiaToParent(in Mat6) Mat6 {
	xm := x.Matrix()
	return xm.Transpose().Mul(in).Mul(xm)
}

// Pose is the world placement of a body frame. Rotation maps body
// coordinates to world coordinates.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// Apply maps a body-frame point into world coordinates.
func (p Pose) Apply(local mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(p.Rotation.Rotate(local))
}

// ToLocal rotates a world-frame vector into the body frame.
func (p Pose) ToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return p.Rotation.Conjugate().Rotate(v)
}

const smallAngle = 1e-12

// RotationVector returns the axis-angle vector of q, angle in [0, π].
func RotationVector(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < smallAngle {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}

// FromRotationVector is the inverse of RotationVector.
func FromRotationVector(v mgl64.Vec3) mgl64.Quat {
	angle := v.Len()
	if angle < smallAngle {
		return mgl64.Quat{W: 1, V: v.Mul(0.5)}.Normalize()
	}
	return mgl64.QuatRotate(angle, v.Mul(1/angle))
}

// IntegrateRotation advances q by a body-frame angular velocity over dt and
// renormalizes the result.
func IntegrateRotation(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	return q.Mul(FromRotationVector(omega.Mul(dt))).Normalize()
}
