package multibody

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// AddJointTorque accumulates a generalized force on one DOF for the next
// step.
func (m *MultiBody) AddJointTorque(dof int, value float64) error {
	if _, _, err := m.locate(dof); err != nil {
		return err
	}
	m.jointTorques[dof] += value
	if value != 0 {
		m.WakeUp()
	}
	return nil
}

// AddJointTorques accumulates one generalized force per DOF.
func (m *MultiBody) AddJointTorques(tau []float64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if len(tau) != len(m.jointTorques) {
		return fmt.Errorf("%w: joint torques: expected %d, got %d", ErrDimensionMismatch, len(m.jointTorques), len(tau))
	}
	for i, v := range tau {
		m.jointTorques[i] += v
		if v != 0 {
			m.WakeUp()
		}
	}
	return nil
}

func (m *MultiBody) JointTorque(dof int) (float64, error) {
	if _, _, err := m.locate(dof); err != nil {
		return 0, err
	}
	return m.jointTorques[dof], nil
}

// AddLinkForce applies a world-frame force at the link centre of mass.
func (m *MultiBody) AddLinkForce(link int, f mgl64.Vec3) error {
	if link < 0 || link >= len(m.links) {
		return indexError("link", link, len(m.links))
	}
	m.links[link].force = m.links[link].force.Add(f)
	m.wakeOn(f)
	return nil
}

// AddLinkTorque applies a world-frame torque to a link.
func (m *MultiBody) AddLinkTorque(link int, t mgl64.Vec3) error {
	if link < 0 || link >= len(m.links) {
		return indexError("link", link, len(m.links))
	}
	m.links[link].torque = m.links[link].torque.Add(t)
	m.wakeOn(t)
	return nil
}

// AddBaseForce applies a world-frame force at the base centre of mass. It
// has no effect on a fixed base.
func (m *MultiBody) AddBaseForce(f mgl64.Vec3) {
	m.baseForce = m.baseForce.Add(f)
	m.wakeOn(f)
}

func (m *MultiBody) AddBaseTorque(t mgl64.Vec3) {
	m.baseTorque = m.baseTorque.Add(t)
	m.wakeOn(t)
}

func (m *MultiBody) LinkForce(link int) (mgl64.Vec3, mgl64.Vec3, error) {
	if link < 0 || link >= len(m.links) {
		return mgl64.Vec3{}, mgl64.Vec3{}, indexError("link", link, len(m.links))
	}
	return m.links[link].force, m.links[link].torque, nil
}

// ClearForces zeroes the user accumulators: joint torques, link and base
// forces and torques.
func (m *MultiBody) ClearForces() {
	for i := range m.jointTorques {
		m.jointTorques[i] = 0
	}
	for i := range m.links {
		m.links[i].force = mgl64.Vec3{}
		m.links[i].torque = mgl64.Vec3{}
	}
	m.baseForce = mgl64.Vec3{}
	m.baseTorque = mgl64.Vec3{}
}

// AddConstraintTorque accumulates a constraint generalized force. Constraint
// forces live apart from user torques and are cleared at the start of every
// step.
func (m *MultiBody) AddConstraintTorque(dof int, value float64) error {
	if _, _, err := m.locate(dof); err != nil {
		return err
	}
	m.constraintTau[dof] += value
	return nil
}

func (m *MultiBody) ConstraintTorque(dof int) (float64, error) {
	if _, _, err := m.locate(dof); err != nil {
		return 0, err
	}
	return m.constraintTau[dof], nil
}

func (m *MultiBody) ClearConstraintForces() {
	for i := range m.constraintTau {
		m.constraintTau[i] = 0
	}
}

func (m *MultiBody) wakeOn(v mgl64.Vec3) {
	if v != (mgl64.Vec3{}) {
		m.WakeUp()
	}
}
