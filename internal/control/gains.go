package control

import (
	"errors"
	"fmt"
)

var ErrUnknownParam = errors.New("control: unknown parameter")

// Gains are the PD feedback gains shared by every joint.
type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Kd float64 `yaml:"kd" json:"kd"`
}

func DefaultGains() Gains {
	return Gains{Kp: 10 * 10, Kd: 2 * 10}
}

// Target holds the desired joint trajectory sample, one entry per joint DOF.
type Target struct {
	Position     []float64
	Velocity     []float64
	Acceleration []float64
}

func NewTarget(dofs int) Target {
	return Target{
		Position:     make([]float64, dofs),
		Velocity:     make([]float64, dofs),
		Acceleration: make([]float64, dofs),
	}
}

func (t Target) at(buf []float64, i int) float64 {
	if i < len(buf) {
		return buf[i]
	}
	return 0
}

// feedback returns kd·(qd' − qdot) + kp·(qd − q) for every joint DOF.
func (g Gains) feedback(target Target, q, qdot []float64) []float64 {
	out := make([]float64, len(q))
	for i := range q {
		out[i] = g.Kd*(target.at(target.Velocity, i)-qdot[i]) + g.Kp*(target.at(target.Position, i)-q[i])
	}
	return out
}

func (g Gains) params() map[string]float64 {
	return map[string]float64{"Kp": g.Kp, "Kd": g.Kd}
}

func (g *Gains) set(name string, value float64) error {
	switch name {
	case "Kp":
		g.Kp = value
	case "Kd":
		g.Kd = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

// jointState splits a generalized state into its joint-space parts,
// dropping the six leading base entries of a floating base.
func jointState(x []float64, dofs int) (q, qdot []float64, err error) {
	full := len(x) / 2
	if len(x)%2 != 0 || full < dofs {
		return nil, nil, fmt.Errorf("control: state of length %d cannot hold %d joint DOFs", len(x), dofs)
	}
	off := full - dofs
	return x[off:full], x[full+off:], nil
}
