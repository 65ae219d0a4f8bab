package control

import (
	"fmt"

	"github.com/san-kum/featherstone/internal/sim"
)

// Manual returns a control vector set from outside the loop, such as key
// presses in the live view.
type Manual struct {
	u sim.Control
}

func NewManual(dofs int) *Manual {
	return &Manual{u: make(sim.Control, dofs)}
}

func (c *Manual) SetControl(u []float64) error {
	if len(u) != len(c.u) {
		return fmt.Errorf("control: manual vector of length %d, expected %d", len(u), len(c.u))
	}
	copy(c.u, u)
	return nil
}

// Nudge adds delta to one DOF.
func (c *Manual) Nudge(dof int, delta float64) {
	if dof >= 0 && dof < len(c.u) {
		c.u[dof] += delta
	}
}

func (c *Manual) Release() {
	clear(c.u)
}

func (c *Manual) Compute(x sim.State, t float64) (sim.Control, error) {
	return append(sim.Control(nil), c.u...), nil
}
