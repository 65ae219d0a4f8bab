package metrics

import (
	"math"

	"github.com/san-kum/featherstone/internal/sim"
)

// EnergySource reports the total mechanical energy of the simulated body.
// *sim.Simulator implements it.
type EnergySource interface {
	Energy() float64
}

// Energy is the mean total energy over the observed samples.
type Energy struct {
	name    string
	source  EnergySource
	samples int
	total   float64
}

func NewEnergy(source EnergySource) *Energy {
	return &Energy{
		name:   "energy",
		source: source,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x sim.State, u sim.Control, t float64) {
	e.total += e.source.Energy()
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// energy.
type EnergyDrift struct {
	name          string
	source        EnergySource
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(source EnergySource) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		source: source,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x sim.State, u sim.Control, t float64) {
	energy := e.source.Energy()
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
