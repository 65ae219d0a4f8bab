package control

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/invdyn"
	"github.com/san-kum/featherstone/internal/sim"
)

// ComputedTorque feeds the desired acceleration qd'' + PD feedback through
// an inverse dynamics model and applies the resulting joint forces. With
// UseInverseModel off it degrades to plain PD.
type ComputedTorque struct {
	Gains           Gains
	Target          Target
	UseInverseModel bool
	// UserForces are world-frame forces added to the model at each link COM
	// before every inverse dynamics call.
	UserForces map[int]mgl64.Vec3

	tree *invdyn.Tree
}

func NewComputedTorque(tree *invdyn.Tree, gains Gains, target Target) *ComputedTorque {
	return &ComputedTorque{
		Gains:           gains,
		Target:          target,
		UseInverseModel: true,
		tree:            tree,
	}
}

func (c *ComputedTorque) Tree() *invdyn.Tree { return c.tree }

func (c *ComputedTorque) Compute(x sim.State, t float64) (sim.Control, error) {
	dofs := c.tree.NumDofs()
	q, qdot, err := jointState(x, dofs)
	if err != nil {
		return nil, err
	}
	pd := c.Gains.feedback(c.Target, q, qdot)
	if !c.UseInverseModel {
		return pd, nil
	}

	n := c.tree.NumFullDofs()
	if len(x) != 2*n {
		return nil, fmt.Errorf("control: state of length %d, inverse model expects %d", len(x), 2*n)
	}
	off := n - dofs
	nu := make([]float64, n)
	for i := range pd {
		nu[off+i] = c.Target.at(c.Target.Acceleration, i) + pd[i]
	}

	for link, f := range c.UserForces {
		if err := c.tree.AddUserForce(link, f); err != nil {
			return nil, err
		}
	}

	force := make([]float64, n)
	if err := c.tree.CalculateInverseDynamics(c.tree.HasFixedBase(), x[:n], x[n:], nu, force); err != nil {
		return nil, fmt.Errorf("control: inverse dynamics: %w", err)
	}
	return force[off:], nil
}

func (c *ComputedTorque) GetParams() map[string]float64 {
	return c.Gains.params()
}

func (c *ComputedTorque) SetParam(name string, value float64) error {
	return c.Gains.set(name, value)
}
