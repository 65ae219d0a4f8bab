package spatial

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Mat6 is a 6×6 matrix stored as four 3×3 blocks:
//
//	| TL TR |
//	| BL BR |
//
// As an inertia it maps a MotionVector to a ForceVector.
type Mat6 struct {
	TL, TR, BL, BR mgl64.Mat3
}

// RigidInertia returns the spatial inertia of a body expressed at its
// centre of mass with principal inertia diag.
func RigidInertia(mass float64, diag mgl64.Vec3) Mat6 {
	return Mat6{
		TL: Diag(diag),
		BR: mgl64.Ident3().Mul(mass),
	}
}

func (m Mat6) Add(o Mat6) Mat6 {
	return Mat6{m.TL.Add(o.TL), m.TR.Add(o.TR), m.BL.Add(o.BL), m.BR.Add(o.BR)}
}

func (m Mat6) Sub(o Mat6) Mat6 {
	return Mat6{m.TL.Sub(o.TL), m.TR.Sub(o.TR), m.BL.Sub(o.BL), m.BR.Sub(o.BR)}
}

func (m Mat6) Scale(c float64) Mat6 {
	return Mat6{m.TL.Mul(c), m.TR.Mul(c), m.BL.Mul(c), m.BR.Mul(c)}
}

func (m Mat6) Mul(o Mat6) Mat6 {
	return Mat6{
		TL: m.TL.Mul3(o.TL).Add(m.TR.Mul3(o.BL)),
		TR: m.TL.Mul3(o.TR).Add(m.TR.Mul3(o.BR)),
		BL: m.BL.Mul3(o.TL).Add(m.BR.Mul3(o.BL)),
		BR: m.BL.Mul3(o.TR).Add(m.BR.Mul3(o.BR)),
	}
}

func (m Mat6) Transpose() Mat6 {
	return Mat6{
		TL: m.TL.Transpose(),
		TR: m.BL.Transpose(),
		BL: m.TR.Transpose(),
		BR: m.BR.Transpose(),
	}
}

// MulMotion applies the matrix to a motion vector, e.g. momentum = I·v.
func (m Mat6) MulMotion(v MotionVector) ForceVector {
	return ForceVector{
		Moment: m.TL.Mul3x1(v.Angular).Add(m.TR.Mul3x1(v.Linear)),
		Force:  m.BL.Mul3x1(v.Angular).Add(m.BR.Mul3x1(v.Linear)),
	}
}

// At returns element (row, col) of the full 6×6 matrix.
func (m Mat6) At(row, col int) float64 {
	var b mgl64.Mat3
	switch {
	case row < 3 && col < 3:
		b = m.TL
	case row < 3:
		b = m.TR
	case col < 3:
		b = m.BL
	default:
		b = m.BR
	}
	return b.At(row%3, col%3)
}

// Dense copies the matrix into a gonum dense matrix.
func (m Mat6) Dense() *mat.Dense {
	data := make([]float64, 36)
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			data[r*6+c] = m.At(r, c)
		}
	}
	return mat.NewDense(6, 6, data)
}

// Solve returns x with m·x = f, treating m as an inertia.
func (m Mat6) Solve(f ForceVector) (MotionVector, error) {
	b := f.Array()
	var x mat.VecDense
	if err := x.SolveVec(m.Dense(), mat.NewVecDense(6, b[:])); err != nil {
		return MotionVector{}, fmt.Errorf("spatial: singular inertia: %w", err)
	}
	return MotionFromSlice(x.RawVector().Data), nil
}

// Outer returns a·bᵀ for two force vectors, the building block of U·D⁻¹·Uᵀ.
func Outer(a, b ForceVector) Mat6 {
	return Mat6{
		TL: OuterProduct(a.Moment, b.Moment),
		TR: OuterProduct(a.Moment, b.Force),
		BL: OuterProduct(a.Force, b.Moment),
		BR: OuterProduct(a.Force, b.Force),
	}
}

// Skew returns the matrix [v]× with [v]×·x = v × x.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

func Diag(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		v[0], 0, 0,
		0, v[1], 0,
		0, 0, v[2],
	}
}

// OuterProduct returns a·bᵀ. mgl64 matrices are column-major.
func OuterProduct(a, b mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		a[0] * b[0], a[1] * b[0], a[2] * b[0],
		a[0] * b[1], a[1] * b[1], a[2] * b[1],
		a[0] * b[2], a[1] * b[2], a[2] * b[2],
	}
}
