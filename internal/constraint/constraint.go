// Package constraint implements joint-space multibody constraints and a
// sequential-impulse solver for them.
//
// Every constraint produces scalar rows acting on a single DOF. The solver
// finds clamped impulses that drive each row's DOF velocity to its target
// and hands them back to the body as generalized constraint forces.
package constraint

import (
	"errors"

	"github.com/san-kum/featherstone/internal/multibody"
)

const (
	DefaultMaxImpulse = 100.0
	// DefaultERP is the fraction of a limit violation corrected per step.
	DefaultERP = 0.2
)

var ErrInvalidLimits = errors.New("constraint: lower limit above upper limit")

// Row is one scalar constraint on a DOF of a body.
type Row struct {
	Body           *multibody.MultiBody
	Dof            int
	TargetVelocity float64
	LowerImpulse   float64
	UpperImpulse   float64

	// Impulse is filled in by the solver.
	Impulse float64

	Owner Constraint
	Index int
}

type Constraint interface {
	Body() *multibody.MultiBody
	Rows(dt float64) ([]Row, error)
	SetAppliedImpulse(row int, impulse float64)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
