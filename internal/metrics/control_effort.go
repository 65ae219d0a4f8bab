package metrics

import (
	"github.com/san-kum/featherstone/internal/sim"
)

// ControlEffort is the time average of the squared torque norm, ∫‖u‖² dt / T.
type ControlEffort struct {
	name     string
	integral float64
	prev     float64
	start    float64
	last     float64
	samples  int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	sq := 0.0
	for _, val := range u {
		sq += val * val
	}
	if c.samples == 0 {
		c.start = t
	} else {
		c.integral += c.prev * (t - c.last)
	}
	c.prev = sq
	c.last = t
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	span := c.last - c.start
	if c.samples < 2 || span <= 0 {
		return c.prev
	}
	return c.integral / span
}

func (c *ControlEffort) Reset() {
	*c = ControlEffort{name: c.name}
}
