package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/world"
)

// StateOf reads the generalized positions and velocities of a body.
func StateOf(mb *multibody.MultiBody) State {
	return append(State(mb.GeneralizedPositions()), mb.GeneralizedVelocities()...)
}

// Simulator drives one controlled body inside a world. The controller's
// output is applied as joint torques before every world step.
type Simulator struct {
	world      *world.World
	body       *multibody.MultiBody
	controller Controller
	metrics    []Metric
	observers  []Observer
	logger     *zap.Logger
}

func New(w *world.World, body *multibody.MultiBody, controller Controller) *Simulator {
	return &Simulator{
		world:      w,
		body:       body,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Simulator) World() *world.World        { return s.world }
func (s *Simulator) Body() *multibody.MultiBody { return s.body }
func (s *Simulator) Controller() Controller     { return s.controller }

// Energy is the body's kinetic plus potential energy under the world's
// gravity.
func (s *Simulator) Energy() float64 {
	return s.body.KineticEnergy() + s.body.PotentialEnergy(s.world.Gravity())
}

// Run steps the world for cfg.Duration. Controller and step errors are
// recorded in the result and the run continues; an invalid state stops it.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	subSteps := max(cfg.SubSteps, 1)
	h := cfg.Dt / float64(subSteps)
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := StateOf(s.body)
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.Energy()
	s.logger.Debug("run started",
		zap.Int("steps", steps),
		zap.Int("sub_steps", subSteps),
		zap.Float64("energy", initialEnergy),
	)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u, err := s.controller.Compute(x, t)
		if err != nil {
			s.logger.Debug("controller failed", zap.Int("step", i), zap.Error(err))
			result.Errors = append(result.Errors, &SimError{Time: t, Step: i, Message: err.Error()})
			u = make(Control, s.body.NumDofs())
		}

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		for k := 0; k < subSteps; k++ {
			if err := s.applyControl(u); err != nil {
				result.Errors = append(result.Errors, err)
			}
			if err := s.world.Step(h); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("step %d: %w", i, err))
			}
		}

		x = StateOf(s.body)
		t += cfg.Dt
		result.StepsTaken++

		if cfg.ValidateState && !x.IsValid() {
			result.Errors = append(result.Errors, &SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(s.Energy()-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("run finished",
		zap.Int("steps_taken", result.StepsTaken),
		zap.Int("errors", len(result.Errors)),
		zap.Float64("energy_drift", result.EnergyDrift),
	)
	return result, nil
}

// RunWithCallback steps until the duration elapses or callback returns
// false. It is used by the live view.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(State, Control, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	t := 0.0
	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		x := StateOf(s.body)
		u, err := s.controller.Compute(x, t)
		if err != nil {
			return fmt.Errorf("controller at t=%.4f: %w", t, err)
		}
		if !callback(x, u, t) {
			return nil
		}
		if err := s.Advance(u, cfg.Dt); err != nil {
			return err
		}
		t += cfg.Dt

		if cfg.ValidateState && !StateOf(s.body).IsValid() {
			return fmt.Errorf("invalid state at t=%.4f", t)
		}
	}
	return nil
}

// Advance applies u and steps the world once by dt.
func (s *Simulator) Advance(u Control, dt float64) error {
	if err := s.applyControl(u); err != nil {
		return err
	}
	return s.world.Step(dt)
}

func (s *Simulator) applyControl(u Control) error {
	if len(u) == 0 {
		return nil
	}
	return s.body.AddJointTorques(u)
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.SubSteps < 0 {
		return fmt.Errorf("sub-steps must not be negative, got %d", cfg.SubSteps)
	}
	if s.world == nil || s.body == nil || s.controller == nil {
		return errors.New("simulator needs a world, a body and a controller")
	}
	if !s.body.Finalized() {
		return multibody.ErrNotFinalized
	}
	return nil
}
