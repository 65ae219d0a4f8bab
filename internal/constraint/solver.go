package constraint

import (
	"errors"
	"fmt"

	"github.com/san-kum/featherstone/internal/multibody"
)

const DefaultIterations = 10

// SequentialImpulse is a projected Gauss-Seidel solver over joint-space rows.
// It expects each body's unconstrained accelerations to be current.
type SequentialImpulse struct {
	Iterations int
}

func NewSequentialImpulse() *SequentialImpulse {
	return &SequentialImpulse{Iterations: DefaultIterations}
}

type bodyState struct {
	predicted []float64
	delta     []float64
}

type rowState struct {
	body    *bodyState
	column  []float64
	invMass float64
	skip    bool
}

// Solve computes row impulses and applies impulse/dt to each row's DOF as a
// constraint force. Rows are updated in place. A malformed row is left with
// a zero impulse and reported; the remaining rows are still solved.
func (s *SequentialImpulse) Solve(rows []Row, dt float64) error {
	if len(rows) == 0 || dt <= 0 {
		return nil
	}

	var errs []error
	bodies := make(map[*multibody.MultiBody]*bodyState)
	states := make([]rowState, len(rows))
	for i := range rows {
		r := &rows[i]
		r.Impulse = 0
		st, err := prepareRow(r, bodies, dt)
		if err != nil {
			errs = append(errs, fmt.Errorf("constraint: row %d: %w", i, err))
			st.skip = true
		}
		states[i] = st
	}

	iterations := s.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	for it := 0; it < iterations; it++ {
		for i := range rows {
			r, st := &rows[i], &states[i]
			if st.skip {
				continue
			}
			vel := st.body.predicted[r.Dof] + st.body.delta[r.Dof]
			next := clamp(r.Impulse+(r.TargetVelocity-vel)/st.invMass, r.LowerImpulse, r.UpperImpulse)
			applied := next - r.Impulse
			r.Impulse = next
			if applied == 0 {
				continue
			}
			for k, c := range st.column {
				st.body.delta[k] += c * applied
			}
		}
	}

	for i := range rows {
		r := &rows[i]
		if states[i].skip {
			continue
		}
		if err := r.Body.AddConstraintTorque(r.Dof, r.Impulse/dt); err != nil {
			errs = append(errs, fmt.Errorf("constraint: row %d: %w", i, err))
			continue
		}
		if r.Owner != nil {
			r.Owner.SetAppliedImpulse(r.Index, r.Impulse)
		}
	}
	return errors.Join(errs...)
}

// prepareRow predicts the row body's unconstrained velocities once per body
// and computes the row's column of the inverse mass matrix.
func prepareRow(r *Row, bodies map[*multibody.MultiBody]*bodyState, dt float64) (rowState, error) {
	if r.Body == nil {
		return rowState{}, errors.New("no body")
	}
	bs, ok := bodies[r.Body]
	if !ok {
		qd := r.Body.Velocities()
		qdd := r.Body.Accelerations()
		for k := range qd {
			qd[k] += dt * qdd[k]
		}
		bs = &bodyState{predicted: qd, delta: make([]float64, len(qd))}
		bodies[r.Body] = bs
	}

	if r.Dof < 0 || r.Dof >= len(bs.delta) {
		return rowState{}, fmt.Errorf("%w: dof %d", multibody.ErrIndexOutOfRange, r.Dof)
	}
	unit := make([]float64, len(bs.delta))
	unit[r.Dof] = 1
	col, err := r.Body.AccelerationDeltas(unit)
	if err != nil {
		return rowState{}, err
	}
	if col[r.Dof] <= 0 {
		return rowState{}, multibody.ErrSingularInertia
	}
	return rowState{body: bs, column: col, invMass: col[r.Dof]}, nil
}
