package multibody

import (
	"github.com/san-kum/featherstone/internal/spatial"
)

const (
	// SleepEpsilon bounds the sum of squared velocities of a resting body.
	SleepEpsilon = 0.05
	// SleepTimeout is how long a body must rest before it sleeps.
	SleepTimeout = 2.0
)

// StepVelocities advances velocities with the last computed accelerations.
func (m *MultiBody) StepVelocities(dt float64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	for i := range m.qd {
		m.qd[i] += dt * m.qdd[i]
	}
	if !m.HasFixedBase() {
		m.baseVel = m.baseVel.Add(m.baseAcc.Scale(dt))
	}
	return nil
}

// StepPositions advances positions with the current velocities and refreshes
// the cached kinematics. Quaternion coordinates are renormalized.
func (m *MultiBody) StepPositions(dt float64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if !m.HasFixedBase() {
		rot := m.basePose.Rotation
		m.basePose.Position = m.basePose.Position.Add(rot.Rotate(m.baseVel.Linear).Mul(dt))
		m.basePose.Rotation = spatial.IntegrateRotation(rot, m.baseVel.Angular, dt)
	}
	for i := range m.links {
		m.links[i].Joint.Integrate(m.posSlice(i), m.dofSlice(m.qd, i), dt)
	}
	m.UpdateKinematics()
	return nil
}

func (m *MultiBody) IsAwake() bool {
	return m.awake
}

func (m *MultiBody) WakeUp() {
	m.awake = true
	m.sleepTimer = 0
}

// GoToSleep zeroes every velocity and acceleration.
func (m *MultiBody) GoToSleep() {
	m.awake = false
	m.sleepTimer = 0
	for i := range m.qd {
		m.qd[i] = 0
		m.qdd[i] = 0
	}
	m.baseVel = spatial.MotionVector{}
	m.baseAcc = spatial.MotionVector{}
}

// CheckSleep sends a resting body to sleep once it has stayed below
// SleepEpsilon for SleepTimeout. Bodies that cannot sleep are always awake.
func (m *MultiBody) CheckSleep(dt float64) {
	if !m.opts.CanSleep {
		m.WakeUp()
		return
	}
	if !m.awake {
		return
	}

	motion := m.baseVel.Angular.Dot(m.baseVel.Angular) + m.baseVel.Linear.Dot(m.baseVel.Linear)
	for _, v := range m.qd {
		motion += v * v
	}
	if motion >= SleepEpsilon {
		m.sleepTimer = 0
		return
	}
	m.sleepTimer += dt
	if m.sleepTimer > SleepTimeout {
		m.GoToSleep()
	}
}
