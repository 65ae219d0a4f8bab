package metrics

import (
	"math"

	"github.com/san-kum/featherstone/internal/sim"
)

// TrackingError is the RMS joint position error against fixed targets.
// Base entries of a floating-base state are ignored.
type TrackingError struct {
	name    string
	target  []float64
	sumSq   float64
	samples int
}

func NewTrackingError(target []float64) *TrackingError {
	return &TrackingError{
		name:   "tracking_error",
		target: append([]float64(nil), target...),
	}
}

func (m *TrackingError) Name() string { return m.name }

func (m *TrackingError) Observe(x sim.State, u sim.Control, t float64) {
	q, _ := x.Split()
	n := len(m.target)
	if len(q) < n {
		return
	}
	joints := q[len(q)-n:]
	for i, want := range m.target {
		d := wrapAngle(joints[i] - want)
		m.sumSq += d * d
	}
	m.samples += n
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// Stability is the fraction of samples whose joint speed norm stayed below
// a threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.State, u sim.Control, t float64) {
	s.samples++
	_, qd := x.Split()
	if sim.State(qd).Norm() > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func wrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
