package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/constraint"
	"github.com/san-kum/featherstone/internal/multibody"
)

// Phase is the position of the world inside a step.
type Phase int

const (
	Idle Phase = iota
	ForcesApplied
	ConstraintsSolved
	DynamicsIntegrated
	TransformsSynced
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ForcesApplied:
		return "forces_applied"
	case ConstraintsSolved:
		return "constraints_solved"
	case DynamicsIntegrated:
		return "dynamics_integrated"
	case TransformsSynced:
		return "transforms_synced"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (w *World) enter(p Phase, dt float64) {
	w.phase = p
	for _, o := range w.observers {
		o.OnPhase(p, dt)
	}
}

// Step advances every awake body by dt. Bodies that fail are skipped and
// returned as *BodyError values joined into one error.
func (w *World) Step(dt float64) error {
	if w.closed {
		return ErrClosed
	}
	if dt <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTimeStep, dt)
	}

	var errs []error
	skip := func(i int, err error) {
		w.logger.Debug("body skipped", zap.Int("index", i), zap.Error(err))
		errs = append(errs, &BodyError{Index: i, Err: err})
	}

	active := make(map[*multibody.MultiBody]int, len(w.bodies))
	for i, mb := range w.bodies {
		if !mb.Finalized() {
			skip(i, multibody.ErrNotFinalized)
			continue
		}
		mb.ClearConstraintForces()
		if mb.IsAwake() {
			active[mb] = i
		}
	}

	// Gravity and user loads enter through the unconstrained dynamics.
	for i, mb := range w.bodies {
		if _, ok := active[mb]; !ok {
			continue
		}
		if err := mb.ComputeAccelerations(w.cfg.Gravity); err != nil {
			skip(i, err)
			delete(active, mb)
		}
	}
	w.enter(ForcesApplied, dt)

	for _, err := range w.solveConstraints(active, dt) {
		w.logger.Debug("body skipped", zap.Int("index", err.Index), zap.Error(err.Err))
		errs = append(errs, err)
	}
	w.enter(ConstraintsSolved, dt)

	for i, mb := range w.bodies {
		if _, ok := active[mb]; !ok {
			continue
		}
		if err := integrate(mb, dt); err != nil {
			skip(i, err)
			delete(active, mb)
			continue
		}
		mb.CheckSleep(dt)
	}
	w.enter(DynamicsIntegrated, dt)

	for _, mb := range w.bodies {
		if _, ok := active[mb]; ok {
			w.syncColliders(mb)
		}
	}
	w.enter(TransformsSynced, dt)

	if !w.cfg.PreserveForces {
		for _, mb := range w.bodies {
			if mb.Finalized() {
				mb.ClearForces()
			}
		}
	}

	w.time += dt
	w.steps++
	w.enter(Idle, dt)
	return errors.Join(errs...)
}

// solveConstraints gathers the rows of every constraint on an active body
// and solves them body by body, then recomputes the dynamics of each
// constrained body. A body whose constraints fail is dropped from active
// and reported; the others are unaffected.
func (w *World) solveConstraints(active map[*multibody.MultiBody]int, dt float64) []*BodyError {
	rows := make(map[*multibody.MultiBody][]constraint.Row)
	var errs []*BodyError
	fail := func(mb *multibody.MultiBody, err error) {
		if idx, ok := active[mb]; ok {
			errs = append(errs, &BodyError{Index: idx, Err: err})
			delete(active, mb)
		}
	}

	for _, c := range w.constraints {
		mb := c.Body()
		if _, ok := active[mb]; !ok {
			continue
		}
		r, err := c.Rows(dt)
		if err != nil {
			fail(mb, fmt.Errorf("world: constraint rows: %w", err))
			continue
		}
		rows[mb] = append(rows[mb], r...)
	}

	for _, mb := range w.bodies {
		r, ok := rows[mb]
		if _, live := active[mb]; !ok || !live || len(r) == 0 {
			continue
		}
		if err := w.solver.Solve(r, dt); err != nil {
			fail(mb, fmt.Errorf("world: constraint solve: %w", err))
			continue
		}
		if err := mb.ComputeAccelerations(w.cfg.Gravity); err != nil {
			fail(mb, err)
		}
	}
	return errs
}

func integrate(mb *multibody.MultiBody, dt float64) error {
	if err := mb.StepVelocities(dt); err != nil {
		return err
	}
	return mb.StepPositions(dt)
}

// StepSimulation advances the world in fixed sub-steps. With maxSubSteps of
// zero it takes a single step of timeStep. Otherwise timeStep is added to an
// accumulator that is drained in steps of fixedTimeStep, at most
// maxSubSteps at a time. It returns the number of steps taken. A negative
// maxSubSteps is rejected without touching the accumulator.
func (w *World) StepSimulation(timeStep float64, maxSubSteps int, fixedTimeStep float64) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if maxSubSteps < 0 {
		return 0, fmt.Errorf("%w: max sub-steps %d", ErrInvalidTimeStep, maxSubSteps)
	}
	if maxSubSteps == 0 {
		if err := w.Step(timeStep); err != nil {
			return 1, err
		}
		return 1, nil
	}
	if timeStep < 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidTimeStep, timeStep)
	}
	if fixedTimeStep <= 0 {
		fixedTimeStep = w.cfg.FixedTimeStep
	}

	w.accumulator += timeStep
	n := int(w.accumulator / fixedTimeStep)
	w.accumulator -= float64(n) * fixedTimeStep
	if n > maxSubSteps {
		w.logger.Debug("sub-steps clamped", zap.Int("wanted", n), zap.Int("max", maxSubSteps))
		n = maxSubSteps
	}

	var errs []error
	for i := 0; i < n; i++ {
		if err := w.Step(fixedTimeStep); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}
