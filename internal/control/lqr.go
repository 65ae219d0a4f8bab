package control

import (
	"fmt"

	"github.com/san-kum/featherstone/internal/sim"
)

// LQR applies u = −K·(x − target) on the full generalized state.
type LQR struct {
	K      [][]float64
	Target sim.State
}

func NewLQR(k [][]float64, target sim.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x sim.State, t float64) (sim.Control, error) {
	u := make(sim.Control, len(l.K))
	for i := range u {
		if len(l.K[i]) != len(x) {
			return nil, fmt.Errorf("control: gain row %d has %d entries, state has %d", i, len(l.K[i]), len(x))
		}
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			u[i] -= l.K[i][j] * (x[j] - target)
		}
	}
	return u, nil
}

// NewJointLQR builds a diagonal gain matrix for a fixed-base body with the
// given joint DOFs: each joint is fed back on its own angle and rate.
func NewJointLQR(dofs int, gains Gains, target sim.State) *LQR {
	k := make([][]float64, dofs)
	for i := range k {
		k[i] = make([]float64, 2*dofs)
		k[i][i] = gains.Kp
		k[i][dofs+i] = gains.Kd
	}
	return NewLQR(k, target)
}
