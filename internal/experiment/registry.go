package experiment

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/control"
	"github.com/san-kum/featherstone/internal/invdyn"
	"github.com/san-kum/featherstone/internal/metrics"
	"github.com/san-kum/featherstone/internal/models"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/sim"
)

// ScenarioFunc builds a finalized body from its configuration.
type ScenarioFunc func(cfg config.BodyConfig) (*multibody.MultiBody, error)

// ControllerFunc builds a controller for a finalized body.
type ControllerFunc func(mb *multibody.MultiBody, cfg *config.Config) (sim.Controller, error)

type Registry struct {
	scenarios   map[string]ScenarioFunc
	controllers map[string]ControllerFunc
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios:   make(map[string]ScenarioFunc),
		controllers: make(map[string]ControllerFunc),
	}

	r.scenarios["inverted_pendulum"] = func(b config.BodyConfig) (*multibody.MultiBody, error) {
		p := models.NewInvertedPendulum()
		p.FixedBase = b.FixedBase
		p.Spherical = b.Spherical
		p.Damping = b.Damping
		p.LinearDamping = b.LinearDamping
		p.AngularDamping = b.AngularDamping
		p.Gyro = b.UseGyroTerm
		p.CanSleep = b.CanSleep
		p.SelfCollision = b.SelfCollision
		p.InitialAngle = b.InitialAngle
		if b.Radius > 0 {
			p.Radius = b.Radius
		}
		if b.BaseMass > 0 {
			p.BaseMass = b.BaseMass
		}
		return p.Build()
	}
	r.scenarios["chain"] = func(b config.BodyConfig) (*multibody.MultiBody, error) {
		links := b.Links
		if links == 0 {
			links = config.DefaultLinks
		}
		c := models.NewChain(links)
		c.Prismatic = b.Prismatic
		c.SelfCollision = b.SelfCollision
		c.CanSleep = b.CanSleep
		c.Damping = max(b.LinearDamping, b.AngularDamping)
		c.InitialAngle = b.InitialAngle
		if !b.FixedBase {
			c.BaseMass = max(b.BaseMass, 1)
		}
		return c.Build()
	}

	r.controllers["none"] = func(mb *multibody.MultiBody, cfg *config.Config) (sim.Controller, error) {
		return control.NewNone(mb.NumDofs()), nil
	}
	r.controllers["pd"] = func(mb *multibody.MultiBody, cfg *config.Config) (sim.Controller, error) {
		return control.NewPD(mb.NumDofs(), gains(cfg), target(mb, cfg)), nil
	}
	r.controllers["computed_torque"] = func(mb *multibody.MultiBody, cfg *config.Config) (sim.Controller, error) {
		tree, err := invdyn.CreateFromMultiBody(mb)
		if err != nil {
			return nil, err
		}
		tree.SetGravity(mgl64.Vec3(cfg.Gravity))
		tree.SetBasePose(mb.BasePose())

		ct := control.NewComputedTorque(tree, gains(cfg), target(mb, cfg))
		ct.UseInverseModel = cfg.Control.UseInverseModel
		if f := mgl64.Vec3(cfg.Control.UserForce); f != (mgl64.Vec3{}) {
			ct.UserForces = make(map[int]mgl64.Vec3, mb.NumLinks())
			for i := 0; i < mb.NumLinks(); i++ {
				ct.UserForces[i] = f
			}
		}
		return ct, nil
	}
	r.controllers["lqr"] = func(mb *multibody.MultiBody, cfg *config.Config) (sim.Controller, error) {
		if !mb.HasFixedBase() {
			return nil, fmt.Errorf("lqr needs a fixed base")
		}
		n := mb.NumDofs()
		goal := make(sim.State, 2*n)
		copy(goal, target(mb, cfg).Position)
		return control.NewJointLQR(n, gains(cfg), goal), nil
	}

	return r
}

func gains(cfg *config.Config) control.Gains {
	return control.Gains{Kp: cfg.Control.Kp, Kd: cfg.Control.Kd}
}

func target(mb *multibody.MultiBody, cfg *config.Config) control.Target {
	t := control.NewTarget(mb.NumDofs())
	copy(t.Position, cfg.Control.Target)
	return t
}

func (r *Registry) Register(name string, fn ScenarioFunc) {
	r.scenarios[name] = fn
}

func (r *Registry) RegisterController(name string, fn ControllerFunc) {
	r.controllers[name] = fn
}

func (r *Registry) GetScenario(name string) (ScenarioFunc, error) {
	fn, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetController(name string) (ControllerFunc, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListScenarios() []string {
	return sortedKeys(r.scenarios)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are attached to every experiment run.
func (r *Registry) DefaultMetrics(s *sim.Simulator, cfg *config.Config) []sim.Metric {
	goal := make([]float64, s.Body().NumDofs())
	copy(goal, cfg.Control.Target)
	return []sim.Metric{
		metrics.NewEnergy(s),
		metrics.NewEnergyDrift(s),
		metrics.NewTrackingError(goal),
		metrics.NewStability(50.0),
		metrics.NewControlEffort(),
	}
}
