package control

import (
	"github.com/san-kum/featherstone/internal/sim"
)

// PD applies kd·(qd' − qdot) + kp·(qd − q) directly as joint torque.
type PD struct {
	Gains  Gains
	Target Target
	dofs   int
}

func NewPD(dofs int, gains Gains, target Target) *PD {
	return &PD{Gains: gains, Target: target, dofs: dofs}
}

func (p *PD) Compute(x sim.State, t float64) (sim.Control, error) {
	q, qdot, err := jointState(x, p.dofs)
	if err != nil {
		return nil, err
	}
	return p.Gains.feedback(p.Target, q, qdot), nil
}

func (p *PD) GetParams() map[string]float64 {
	return p.Gains.params()
}

func (p *PD) SetParam(name string, value float64) error {
	return p.Gains.set(name, value)
}
