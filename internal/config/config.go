package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1e-3
	DefaultDuration = 5.0
	DefaultSubSteps = 1
	DefaultGravity  = -9.81
	DefaultKp       = 100.0
	DefaultKd       = 20.0
	DefaultLinks    = 3
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Scenario   string        `yaml:"scenario"`
	Controller string        `yaml:"controller"`
	Dt         float64       `yaml:"dt"`
	Duration   float64       `yaml:"duration"`
	SubSteps   int           `yaml:"sub_steps"`
	Seed       int64         `yaml:"seed"`
	Gravity    [3]float64    `yaml:"gravity,flow"`
	Body       BodyConfig    `yaml:"body"`
	Control    ControlConfig `yaml:"control"`
	Motors     []MotorConfig `yaml:"motors,omitempty"`
	Limits     []LimitConfig `yaml:"limits,omitempty"`
	// PreserveForces keeps user forces across world steps.
	PreserveForces bool `yaml:"preserve_forces,omitempty"`
}

// BodyConfig mirrors multibody.Options plus the scenario shape switches.
type BodyConfig struct {
	Links          int     `yaml:"links,omitempty"`
	FixedBase      bool    `yaml:"fixed_base"`
	BaseMass       float64 `yaml:"base_mass,omitempty"`
	Spherical      bool    `yaml:"spherical,omitempty"`
	Prismatic      bool    `yaml:"prismatic,omitempty"`
	Radius         float64 `yaml:"radius,omitempty"`
	InitialAngle   float64 `yaml:"initial_angle"`
	CanSleep       bool    `yaml:"can_sleep,omitempty"`
	SelfCollision  bool    `yaml:"self_collision,omitempty"`
	UseGyroTerm    bool    `yaml:"use_gyro_term,omitempty"`
	Damping        bool    `yaml:"damping,omitempty"`
	LinearDamping  float64 `yaml:"linear_damping,omitempty"`
	AngularDamping float64 `yaml:"angular_damping,omitempty"`
}

type ControlConfig struct {
	Kp              float64    `yaml:"kp"`
	Kd              float64    `yaml:"kd"`
	UseInverseModel bool       `yaml:"use_inverse_model"`
	Target          []float64  `yaml:"target,flow,omitempty"`
	UserForce       [3]float64 `yaml:"user_force,flow,omitempty"`
}

type MotorConfig struct {
	Link       int     `yaml:"link"`
	Velocity   float64 `yaml:"velocity"`
	Position   float64 `yaml:"position,omitempty"`
	Kp         float64 `yaml:"kp,omitempty"`
	Kd         float64 `yaml:"kd,omitempty"`
	MaxImpulse float64 `yaml:"max_impulse"`
}

type LimitConfig struct {
	Link  int     `yaml:"link"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:   "inverted_pendulum",
		Controller: "computed_torque",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		SubSteps:   DefaultSubSteps,
		Gravity:    [3]float64{0, DefaultGravity, 0},
		Body: BodyConfig{
			Links:        DefaultLinks,
			Radius:       1,
			InitialAngle: 3.141592653589793,
		},
		Control: ControlConfig{
			Kp:              DefaultKp,
			Kd:              DefaultKd,
			UseInverseModel: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes yaml over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration))
	}
	if c.SubSteps < 0 {
		errs = append(errs, fmt.Errorf("%w: sub_steps must not be negative, got %d", ErrInvalidConfig, c.SubSteps))
	}
	if c.Body.BaseMass < 0 || c.Body.LinearDamping < 0 || c.Body.AngularDamping < 0 {
		errs = append(errs, fmt.Errorf("%w: base mass and damping must not be negative", ErrInvalidConfig))
	}
	if c.Control.Kp < 0 || c.Control.Kd < 0 {
		errs = append(errs, fmt.Errorf("%w: gains must not be negative", ErrInvalidConfig))
	}
	for i, m := range c.Motors {
		if m.MaxImpulse <= 0 {
			errs = append(errs, fmt.Errorf("%w: motor %d needs a positive max_impulse", ErrInvalidConfig, i))
		}
	}
	for i, l := range c.Limits {
		if l.Lower > l.Upper {
			errs = append(errs, fmt.Errorf("%w: limit %d has lower %g above upper %g", ErrInvalidConfig, i, l.Lower, l.Upper))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy, so presets can be overridden by flags.
func (c *Config) Clone() *Config {
	out := *c
	out.Control.Target = append([]float64(nil), c.Control.Target...)
	out.Motors = append([]MotorConfig(nil), c.Motors...)
	out.Limits = append([]LimitConfig(nil), c.Limits...)
	return &out
}
