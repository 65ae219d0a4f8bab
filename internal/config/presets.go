package config

import (
	"math"
	"sort"
)

var Presets = map[string]map[string]*Config{
	"inverted_pendulum": {
		// Reference demo: floating base, no gravity, upside-down start.
		"demo": {
			Scenario: "inverted_pendulum", Controller: "computed_torque", Dt: 1e-3, Duration: 5.0, SubSteps: 1,
			Body:    BodyConfig{Radius: 1, InitialAngle: math.Pi},
			Control: ControlConfig{Kp: 100, Kd: 20, UseInverseModel: true},
		},
		"pd": {
			Scenario: "inverted_pendulum", Controller: "pd", Dt: 1e-3, Duration: 5.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{FixedBase: true, Radius: 1, InitialAngle: math.Pi},
			Control: ControlConfig{Kp: 100, Kd: 20},
		},
		"fixed_base": {
			Scenario: "inverted_pendulum", Controller: "computed_torque", Dt: 1e-3, Duration: 5.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{FixedBase: true, Radius: 1, InitialAngle: math.Pi},
			Control: ControlConfig{Kp: 100, Kd: 20, UseInverseModel: true, UserForce: [3]float64{0, 1, 1}},
		},
		"spherical": {
			Scenario: "inverted_pendulum", Controller: "none", Dt: 1e-3, Duration: 3.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{FixedBase: true, Spherical: true, Radius: 1, InitialAngle: math.Pi},
		},
		"free_fall": {
			Scenario: "inverted_pendulum", Controller: "none", Dt: 1e-3, Duration: 2.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{Radius: 1, InitialAngle: math.Pi, Damping: true},
		},
	},
	"chain": {
		"swing": {
			Scenario: "chain", Controller: "none", Dt: 1e-3, Duration: 10.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{Links: 3, FixedBase: true, InitialAngle: 1.2},
		},
		"hold": {
			Scenario: "chain", Controller: "computed_torque", Dt: 1e-3, Duration: 5.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{Links: 4, FixedBase: true, InitialAngle: 0.8},
			Control: ControlConfig{Kp: 100, Kd: 20, UseInverseModel: true},
		},
		"motor": {
			Scenario: "chain", Controller: "none", Dt: 1e-3, Duration: 5.0, SubSteps: 1,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{Links: 2, FixedBase: true},
			Motors:  []MotorConfig{{Link: 0, Velocity: 1.0, MaxImpulse: 10}},
			Limits:  []LimitConfig{{Link: 1, Lower: -0.5, Upper: 0.5}},
		},
		"slider": {
			Scenario: "chain", Controller: "pd", Dt: 1e-3, Duration: 5.0, SubSteps: 4,
			Gravity: [3]float64{0, -9.81, 0},
			Body:    BodyConfig{Links: 2, FixedBase: true, Prismatic: true},
			Control: ControlConfig{Kp: 50, Kd: 10, Target: []float64{0.2, -0.1}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListScenarios() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
