package constraint

import (
	"fmt"

	"github.com/san-kum/featherstone/internal/multibody"
)

// JointLimit keeps a single-DOF joint between lower and upper with two
// one-sided rows.
type JointLimit struct {
	body         *multibody.MultiBody
	link         int
	dof          int
	lower, upper float64
	maxImpulse   float64
	erp          float64
	applied      [2]float64
}

func NewJointLimit(mb *multibody.MultiBody, link int, lower, upper float64) (*JointLimit, error) {
	if mb == nil {
		return nil, fmt.Errorf("%w: nil body", multibody.ErrIndexOutOfRange)
	}
	if lower > upper {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidLimits, lower, upper)
	}
	l, err := mb.Link(link)
	if err != nil {
		return nil, err
	}
	if l.Joint.Type.DOFs() != 1 {
		return nil, fmt.Errorf("%w: limits need a single-DOF joint, link %d is %v", multibody.ErrUnsupportedJointType, link, l.Joint.Type)
	}
	dof, err := mb.LinkDof(link, 0)
	if err != nil {
		return nil, err
	}
	return &JointLimit{
		body:       mb,
		link:       link,
		dof:        dof,
		lower:      lower,
		upper:      upper,
		maxImpulse: DefaultMaxImpulse,
		erp:        DefaultERP,
	}, nil
}

func (l *JointLimit) Body() *multibody.MultiBody { return l.body }
func (l *JointLimit) Link() int                  { return l.link }
func (l *JointLimit) Lower() float64             { return l.lower }
func (l *JointLimit) Upper() float64             { return l.upper }

func (l *JointLimit) SetMaxImpulse(v float64) { l.maxImpulse = v }

// AppliedImpulse returns the last lower and upper row impulses.
func (l *JointLimit) AppliedImpulse() (float64, float64) {
	return l.applied[0], l.applied[1]
}

func (l *JointLimit) Rows(dt float64) ([]Row, error) {
	if dt <= 0 {
		return nil, nil
	}
	q, err := l.body.JointPosition(l.dof)
	if err != nil {
		return nil, err
	}

	lowerRhs := (l.lower - q) / dt
	if q < l.lower {
		lowerRhs *= l.erp
	}
	upperRhs := (l.upper - q) / dt
	if q > l.upper {
		upperRhs *= l.erp
	}

	return []Row{
		{Body: l.body, Dof: l.dof, TargetVelocity: lowerRhs, LowerImpulse: 0, UpperImpulse: l.maxImpulse, Owner: l, Index: 0},
		{Body: l.body, Dof: l.dof, TargetVelocity: upperRhs, LowerImpulse: -l.maxImpulse, UpperImpulse: 0, Owner: l, Index: 1},
	}, nil
}

func (l *JointLimit) SetAppliedImpulse(row int, impulse float64) {
	if row >= 0 && row < len(l.applied) {
		l.applied[row] = impulse
	}
}
