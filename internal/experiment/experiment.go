package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/constraint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/sim"
	"github.com/san-kum/featherstone/internal/world"
)

var ErrNotSetup = errors.New("experiment not setup")

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func WithCollisionHost(h world.CollisionHost) Option {
	return func(e *Experiment) { e.host = h }
}

// Experiment owns one world with one controlled body built from a
// scenario configuration.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	host     world.CollisionHost
	logger   *zap.Logger

	world     *world.World
	body      *multibody.MultiBody
	simulator *sim.Simulator
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

func (e *Experiment) Config() *config.Config     { return e.cfg }
func (e *Experiment) World() *world.World        { return e.world }
func (e *Experiment) Body() *multibody.MultiBody { return e.body }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Setup builds the world, the body, its constraints, the controller and the
// default metrics. A failed setup leaves nothing behind.
func (e *Experiment) Setup() (err error) {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	build, err := e.registry.GetScenario(e.cfg.Scenario)
	if err != nil {
		return err
	}
	newController, err := e.registry.GetController(e.cfg.Controller)
	if err != nil {
		return err
	}

	w := world.New(world.Config{
		Gravity:        mgl64.Vec3(e.cfg.Gravity),
		PreserveForces: e.cfg.PreserveForces,
		FixedTimeStep:  e.cfg.Dt,
	}, world.WithLogger(e.logger), world.WithCollisionHost(e.host))
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	mb, err := build(e.cfg.Body)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", e.cfg.Scenario, err)
	}
	if err := w.AddMultiBody(mb); err != nil {
		return err
	}
	if err := e.addConstraints(w, mb); err != nil {
		return err
	}

	ctrl, err := newController(mb, e.cfg)
	if err != nil {
		return fmt.Errorf("controller %s: %w", e.cfg.Controller, err)
	}

	s := sim.New(w, mb, ctrl)
	s.SetLogger(e.logger)
	for _, m := range e.registry.DefaultMetrics(s, e.cfg) {
		s.AddMetric(m)
	}

	e.world, e.body, e.simulator = w, mb, s
	e.logger.Debug("experiment ready",
		zap.String("scenario", e.cfg.Scenario),
		zap.String("controller", e.cfg.Controller),
		zap.Int("links", mb.NumLinks()),
		zap.Int("dofs", mb.NumDofs()),
		zap.Bool("fixed_base", mb.HasFixedBase()),
	)
	return nil
}

func (e *Experiment) addConstraints(w *world.World, mb *multibody.MultiBody) error {
	for i, mc := range e.cfg.Motors {
		motor, err := constraint.NewJointMotor(mb, mc.Link, 0, mc.Velocity, mc.MaxImpulse)
		if err != nil {
			return fmt.Errorf("motor %d: %w", i, err)
		}
		if mc.Kd > 0 {
			motor.SetVelocityTarget(mc.Velocity, mc.Kd)
		}
		if mc.Kp > 0 {
			motor.SetPositionTarget(mc.Position, mc.Kp)
		}
		if err := w.AddConstraint(motor); err != nil {
			return err
		}
	}
	for i, lc := range e.cfg.Limits {
		limit, err := constraint.NewJointLimit(mb, lc.Link, lc.Lower, lc.Upper)
		if err != nil {
			return fmt.Errorf("limit %d: %w", i, err)
		}
		if err := w.AddConstraint(limit); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) simConfig() sim.Config {
	return sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		SubSteps:      e.cfg.SubSteps,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	return e.simulator.Run(ctx, e.simConfig())
}

// Close tears the world down. It is safe on an experiment that was never
// set up.
func (e *Experiment) Close() error {
	if e == nil || e.world == nil {
		return nil
	}
	err := e.world.Close()
	e.world, e.body, e.simulator = nil, nil, nil
	return err
}

// Builder returns a sim.Builder that sets up a fresh experiment from cfg
// for every seed. Each simulator owns its world.
func Builder(cfg *config.Config, opts ...Option) sim.Builder {
	return func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Seed = seed
		e := New(c, opts...)
		if err := e.Setup(); err != nil {
			return nil, err
		}
		return e.GetSimulator(), nil
	}
}

// Ensemble runs n copies of the experiment concurrently, each with its own
// world and the initial angle perturbed by up to ±spread radians.
func Ensemble(ctx context.Context, cfg *config.Config, n int, spread float64, opts ...Option) ([]*sim.Result, error) {
	build := func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		rng := rand.New(rand.NewSource(seed))
		c.Body.InitialAngle += spread * (2*rng.Float64() - 1)
		return Builder(c, opts...)(seed)
	}
	runner := New(cfg, opts...)
	return sim.NewEnsemble(build, n, cfg.Seed).Run(ctx, runner.simConfig())
}
