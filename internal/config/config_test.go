package config

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scenario != "inverted_pendulum" {
		t.Errorf("expected scenario inverted_pendulum, got %s", cfg.Scenario)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
scenario: chain
controller: pd
dt: 0.002
gravity: [0, 0, -9.8]
body:
  links: 5
  fixed_base: true
control:
  kp: 30
  kd: 4
  target: [0.1, 0.2]
limits:
  - {link: 0, lower: -1, upper: 1}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Scenario != "chain" || cfg.Body.Links != 5 {
		t.Errorf("unexpected scenario %s with %d links", cfg.Scenario, cfg.Body.Links)
	}
	if cfg.Gravity != [3]float64{0, 0, -9.8} {
		t.Errorf("unexpected gravity %v", cfg.Gravity)
	}
	if cfg.Duration != DefaultDuration {
		t.Errorf("expected default duration, got %f", cfg.Duration)
	}
	if len(cfg.Control.Target) != 2 || len(cfg.Limits) != 1 {
		t.Errorf("expected target and limit to decode, got %v and %v", cfg.Control.Target, cfg.Limits)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"negative sub-steps", func(c *Config) { c.SubSteps = -1 }},
		{"negative damping", func(c *Config) { c.Body.LinearDamping = -0.1 }},
		{"negative gain", func(c *Config) { c.Control.Kp = -1 }},
		{"motor without impulse", func(c *Config) { c.Motors = []MotorConfig{{Link: 0}} }},
		{"inverted limit", func(c *Config) { c.Limits = []LimitConfig{{Lower: 1, Upper: -1}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	cfg := GetPreset("chain", "motor")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Scenario != "chain" || len(loaded.Motors) != 1 || loaded.Motors[0].MaxImpulse != 10 {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("inverted_pendulum", "demo")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Body.InitialAngle != math.Pi {
		t.Errorf("expected initial angle π, got %f", cfg.Body.InitialAngle)
	}
	if cfg.Gravity != [3]float64{} {
		t.Errorf("expected the demo to run without gravity, got %v", cfg.Gravity)
	}

	cfg.Control.Kp = 1
	if Presets["inverted_pendulum"]["demo"].Control.Kp != 100 {
		t.Error("GetPreset returned a shared config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("inverted_pendulum", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "demo"); cfg != nil {
		t.Error("expected nil for nonexistent scenario")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("chain")
	if len(presets) == 0 {
		t.Fatal("expected presets for chain")
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("expected sorted names, got %v", presets)
		}
	}

	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent scenario")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, scenario := range ListScenarios() {
		for _, name := range ListPresets(scenario) {
			if err := GetPreset(scenario, name).Validate(); err != nil {
				t.Errorf("%s/%s: %v", scenario, name, err)
			}
		}
	}
}
