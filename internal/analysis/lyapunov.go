package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/sim"
)

// renormalizeAbove bounds the separation so the twin stays in the linear
// neighbourhood of the reference trajectory.
const renormalizeAbove = 1e-3

// LyapunovExponent estimates the largest finite-time Lyapunov exponent.
// Two simulators are built from the same seed; the second starts with its
// first joint displaced by perturbation. Separation is measured in joint
// coordinates and renormalized whenever it grows past a small bound.
func LyapunovExponent(ctx context.Context, build sim.Builder, perturbation, dt, duration float64) (float64, error) {
	if perturbation <= 0 || dt <= 0 || duration <= 0 {
		return 0, errors.New("analysis: perturbation, dt and duration must be positive")
	}
	ref, err := build(0)
	if err != nil {
		return 0, err
	}
	defer ref.World().Close()
	twin, err := build(0)
	if err != nil {
		return 0, err
	}
	defer twin.World().Close()

	a, b := ref.Body(), twin.Body()
	if a.NumPosVars() != a.NumDofs() {
		return 0, fmt.Errorf("analysis: lyapunov needs one position variable per DOF, got %d for %d", a.NumPosVars(), a.NumDofs())
	}
	if a.NumDofs() == 0 {
		return 0, errors.New("analysis: body has no joint DOFs")
	}
	q, _ := b.JointPosition(0)
	if err := b.SetJointPosition(0, q+perturbation); err != nil {
		return 0, err
	}

	sumLog, t := 0.0, 0.0
	d0 := perturbation
	for t < duration {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		if err := stepOnce(ref, t, dt); err != nil {
			return 0, err
		}
		if err := stepOnce(twin, t, dt); err != nil {
			return 0, err
		}
		t += dt

		sep := separation(a, b)
		if math.IsNaN(sep) || math.IsInf(sep, 0) {
			return 0, fmt.Errorf("analysis: separation diverged at t=%.4f", t)
		}
		if sep > renormalizeAbove {
			sumLog += math.Log(sep / d0)
			if err := pullTowards(a, b, d0/sep); err != nil {
				return 0, err
			}
		}
	}
	sumLog += math.Log(math.Max(separation(a, b), math.SmallestNonzeroFloat64) / d0)
	return sumLog / t, nil
}

func stepOnce(s *sim.Simulator, t, dt float64) error {
	u, err := s.Controller().Compute(sim.StateOf(s.Body()), t)
	if err != nil {
		return err
	}
	return s.Advance(u, dt)
}

func separation(a, b *multibody.MultiBody) float64 {
	qa, qb := a.Positions(), b.Positions()
	va, vb := a.Velocities(), b.Velocities()
	sum := 0.0
	for i := range qa {
		d := qb[i] - qa[i]
		sum += d * d
	}
	for i := range va {
		d := vb[i] - va[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// pullTowards moves b along the separation so its distance from a is scaled
// by f.
func pullTowards(a, b *multibody.MultiBody, f float64) error {
	qa, qb := a.Positions(), b.Positions()
	va, vb := a.Velocities(), b.Velocities()
	for i := range qb {
		qb[i] = qa[i] + (qb[i]-qa[i])*f
	}
	for i := range vb {
		vb[i] = va[i] + (vb[i]-va[i])*f
	}
	if err := b.SetPositions(qb); err != nil {
		return err
	}
	return b.SetVelocities(vb)
}
