package constraint

import (
	"fmt"

	"github.com/san-kum/featherstone/internal/multibody"
)

// JointMotor drives one DOF toward a target velocity and, with a non-zero
// kp, a target position. The velocity target is
//
//	kp·(pTarget − q)/dt + v + kd·(vTarget − v)
//
// and each step's impulse is clamped to ±maxImpulse.
type JointMotor struct {
	body    *multibody.MultiBody
	link    int
	linkDof int
	dof     int

	desiredVelocity float64
	desiredPosition float64
	kp, kd          float64
	maxImpulse      float64
	applied         float64
}

func NewJointMotor(mb *multibody.MultiBody, link, linkDof int, desiredVelocity, maxImpulse float64) (*JointMotor, error) {
	if mb == nil {
		return nil, fmt.Errorf("%w: nil body", multibody.ErrIndexOutOfRange)
	}
	dof, err := mb.LinkDof(link, linkDof)
	if err != nil {
		return nil, err
	}
	return &JointMotor{
		body:            mb,
		link:            link,
		linkDof:         linkDof,
		dof:             dof,
		desiredVelocity: desiredVelocity,
		kd:              1,
		maxImpulse:      maxImpulse,
	}, nil
}

func (m *JointMotor) Body() *multibody.MultiBody { return m.body }
func (m *JointMotor) Link() int                  { return m.link }
func (m *JointMotor) LinkDof() int               { return m.linkDof }
func (m *JointMotor) Dof() int                   { return m.dof }
func (m *JointMotor) MaxImpulse() float64        { return m.maxImpulse }
func (m *JointMotor) AppliedImpulse() float64    { return m.applied }

func (m *JointMotor) SetMaxImpulse(v float64) {
	m.maxImpulse = v
}

// SetVelocityTarget retargets the motor and wakes its body.
func (m *JointMotor) SetVelocityTarget(v, kd float64) {
	m.desiredVelocity = v
	m.kd = kd
	m.body.WakeUp()
}

func (m *JointMotor) SetPositionTarget(p, kp float64) {
	m.desiredPosition = p
	m.kp = kp
	m.body.WakeUp()
}

func (m *JointMotor) Rows(dt float64) ([]Row, error) {
	q, err := m.body.JointPosition(m.dof)
	if err != nil {
		return nil, err
	}
	v, err := m.body.JointVelocity(m.dof)
	if err != nil {
		return nil, err
	}

	rhs := v + m.kd*(m.desiredVelocity-v)
	if dt > 0 {
		rhs += m.kp * (m.desiredPosition - q) / dt
	}
	return []Row{{
		Body:           m.body,
		Dof:            m.dof,
		TargetVelocity: rhs,
		LowerImpulse:   -m.maxImpulse,
		UpperImpulse:   m.maxImpulse,
		Owner:          m,
	}}, nil
}

func (m *JointMotor) SetAppliedImpulse(_ int, impulse float64) {
	m.applied = impulse
}
