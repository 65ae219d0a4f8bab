// Package joint describes how a link moves relative to its parent.
//
// A joint is a tagged variant: every operation switches on [Type] once and
// returns plain data, so the dynamics passes never dispatch per element.
package joint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/spatial"
)

type Type int

const (
	Fixed Type = iota
	Revolute
	Prismatic
	Spherical
)

var ErrUnknownType = errors.New("joint: unknown joint type")

var typeNames = map[Type]string{
	Fixed:     "fixed",
	Revolute:  "revolute",
	Prismatic: "prismatic",
	Spherical: "spherical",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return Fixed, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// DOFs is the number of velocity variables the joint contributes.
func (t Type) DOFs() int {
	switch t {
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 3
	}
	return 0
}

// PosVars is the number of position variables. Spherical joints store a
// quaternion as x, y, z, w.
func (t Type) PosVars() int {
	switch t {
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 4
	}
	return 0
}

func (t Type) RequiresAxis() bool {
	return t == Revolute || t == Prismatic
}

// Joint holds the constant geometry of a link's connection to its parent.
// ParentToPivot is expressed in the parent frame, PivotToCom in the link
// frame. ZeroRot maps parent coordinates to link coordinates at q = 0.
type Joint struct {
	Type          Type
	Axis          mgl64.Vec3
	ZeroRot       mgl64.Quat
	ParentToPivot mgl64.Vec3
	PivotToCom    mgl64.Vec3
}

// MotionSubspace returns the columns of S in the link frame.
func (j Joint) MotionSubspace() []spatial.MotionVector {
	switch j.Type {
	case Revolute:
		return []spatial.MotionVector{{Angular: j.Axis, Linear: j.Axis.Cross(j.PivotToCom)}}
	case Prismatic:
		return []spatial.MotionVector{{Linear: j.Axis}}
	case Spherical:
		s := make([]spatial.MotionVector, 3)
		for k := range s {
			var e mgl64.Vec3
			e[k] = 1
			s[k] = spatial.MotionVector{Angular: e, Linear: e.Cross(j.PivotToCom)}
		}
		return s
	}
	return nil
}

// Kinematics returns the parent-to-link rotation and the link origin
// relative to the parent origin in link coordinates, for positions q.
func (j Joint) Kinematics(q []float64) (mgl64.Quat, mgl64.Vec3) {
	rot := j.ZeroRot
	switch j.Type {
	case Revolute:
		rot = mgl64.QuatRotate(-q[0], j.Axis).Mul(j.ZeroRot)
	case Spherical:
		rot = SphericalQuat(q).Conjugate().Mul(j.ZeroRot)
	}

	r := j.PivotToCom.Add(rot.Rotate(j.ParentToPivot))
	if j.Type == Prismatic {
		r = r.Add(j.Axis.Mul(q[0]))
	}
	return rot, r
}

// Transform is Kinematics packed as a Plücker transform.
func (j Joint) Transform(q []float64) spatial.Transform {
	rot, r := j.Kinematics(q)
	return spatial.NewTransform(rot, r)
}

// Integrate advances the position variables q by velocities qd over dt.
func (j Joint) Integrate(q, qd []float64, dt float64) {
	switch j.Type {
	case Revolute, Prismatic:
		q[0] += dt * qd[0]
	case Spherical:
		next := spatial.IntegrateRotation(SphericalQuat(q), mgl64.Vec3{qd[0], qd[1], qd[2]}, dt)
		SetSphericalQuat(q, next)
	}
}

// Reset writes the zero pose into q.
func (j Joint) Reset(q []float64) {
	for i := range q {
		q[i] = 0
	}
	if j.Type == Spherical {
		q[3] = 1
	}
}

// Coordinate reads position coordinate k. Spherical joints report the
// rotation vector of their quaternion so every DOF has a scalar position.
func (j Joint) Coordinate(q []float64, k int) float64 {
	if j.Type == Spherical {
		return spatial.RotationVector(SphericalQuat(q))[k]
	}
	return q[k]
}

// SetCoordinate is the inverse of Coordinate.
func (j Joint) SetCoordinate(q []float64, k int, value float64) {
	if j.Type != Spherical {
		q[k] = value
		return
	}
	v := spatial.RotationVector(SphericalQuat(q))
	v[k] = value
	SetSphericalQuat(q, spatial.FromRotationVector(v))
}

func SphericalQuat(q []float64) mgl64.Quat {
	return mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}
}

func SetSphericalQuat(q []float64, quat mgl64.Quat) {
	q[0], q[1], q[2], q[3] = quat.V[0], quat.V[1], quat.V[2], quat.W
}
