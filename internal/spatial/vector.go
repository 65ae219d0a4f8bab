package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
)

// MotionVector is a spatial velocity or acceleration.
type MotionVector struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

// ForceVector is a spatial force (wrench) or momentum.
type ForceVector struct {
	Moment mgl64.Vec3
	Force  mgl64.Vec3
}

func (m MotionVector) Add(other MotionVector) MotionVector {
	return MotionVector{m.Angular.Add(other.Angular), m.Linear.Add(other.Linear)}
}

func (m MotionVector) Sub(other MotionVector) MotionVector {
	return MotionVector{m.Angular.Sub(other.Angular), m.Linear.Sub(other.Linear)}
}

func (m MotionVector) Scale(c float64) MotionVector {
	return MotionVector{m.Angular.Mul(c), m.Linear.Mul(c)}
}

// Dot is the power pairing between a motion and a force.
func (m MotionVector) Dot(f ForceVector) float64 {
	return m.Angular.Dot(f.Moment) + m.Linear.Dot(f.Force)
}

// Cross is the motion cross product m ×ₘ other.
func (m MotionVector) Cross(other MotionVector) MotionVector {
	return MotionVector{
		Angular: m.Angular.Cross(other.Angular),
		Linear:  m.Angular.Cross(other.Linear).Add(m.Linear.Cross(other.Angular)),
	}
}

// CrossForce is the force cross product m ×* f.
func (m MotionVector) CrossForce(f ForceVector) ForceVector {
	return ForceVector{
		Moment: m.Angular.Cross(f.Moment).Add(m.Linear.Cross(f.Force)),
		Force:  m.Angular.Cross(f.Force),
	}
}

func (m MotionVector) IsZero() bool {
	return m.Angular == (mgl64.Vec3{}) && m.Linear == (mgl64.Vec3{})
}

// Array flattens the vector as [ωx ωy ωz vx vy vz].
func (m MotionVector) Array() [6]float64 {
	return [6]float64{m.Angular[0], m.Angular[1], m.Angular[2], m.Linear[0], m.Linear[1], m.Linear[2]}
}

func MotionFromSlice(s []float64) MotionVector {
	return MotionVector{
		Angular: mgl64.Vec3{s[0], s[1], s[2]},
		Linear:  mgl64.Vec3{s[3], s[4], s[5]},
	}
}

func (f ForceVector) Add(other ForceVector) ForceVector {
	return ForceVector{f.Moment.Add(other.Moment), f.Force.Add(other.Force)}
}

func (f ForceVector) Sub(other ForceVector) ForceVector {
	return ForceVector{f.Moment.Sub(other.Moment), f.Force.Sub(other.Force)}
}

func (f ForceVector) Scale(c float64) ForceVector {
	return ForceVector{f.Moment.Mul(c), f.Force.Mul(c)}
}

func (f ForceVector) Dot(m MotionVector) float64 {
	return m.Dot(f)
}

// Array flattens the vector as [nx ny nz fx fy fz].
func (f ForceVector) Array() [6]float64 {
	return [6]float64{f.Moment[0], f.Moment[1], f.Moment[2], f.Force[0], f.Force[1], f.Force[2]}
}

func ForceFromSlice(s []float64) ForceVector {
	return ForceVector{
		Moment: mgl64.Vec3{s[0], s[1], s[2]},
		Force:  mgl64.Vec3{s[3], s[4], s[5]},
	}
}
