package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/multibody"
)

func setup(t *testing.T, cfg *config.Config) *Experiment {
	t.Helper()
	e := New(cfg)
	require.NoError(t, e.Setup())
	t.Cleanup(func() { assert.NoError(t, e.Close()) })
	return e
}

func TestSetup_Default(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 0.05
	e := setup(t, cfg)

	require.NotNil(t, e.Body())
	assert.False(t, e.Body().HasFixedBase())
	assert.Equal(t, 1, e.World().NumBodies())

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 50, result.StepsTaken)
	for _, name := range []string{"energy", "energy_drift", "tracking_error", "stability", "control_effort"} {
		assert.Contains(t, result.Metrics, name)
	}
}

func TestComputedTorque_HoldsChainAtTarget(t *testing.T) {
	cfg := config.GetPreset("chain", "hold")
	cfg.Duration = 2
	e := setup(t, cfg)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	for dof := 0; dof < e.Body().NumDofs(); dof++ {
		q, err := e.Body().JointPosition(dof)
		require.NoError(t, err)
		assert.InDelta(t, 0, q, 1e-2, "dof %d", dof)
	}
}

func TestMotorPreset(t *testing.T) {
	cfg := config.GetPreset("chain", "motor")
	cfg.Duration = 0.5
	e := setup(t, cfg)

	assert.Len(t, e.World().Constraints(), 2)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	v, err := e.Body().JointVelocity(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0.05)
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		target error
	}{
		{"unknown scenario", func(c *config.Config) { c.Scenario = "cartpole" }, nil},
		{"unknown controller", func(c *config.Config) { c.Controller = "mpc" }, nil},
		{"invalid config", func(c *config.Config) { c.Dt = 0 }, config.ErrInvalidConfig},
		{"spherical inverse model", func(c *config.Config) { c.Body.Spherical = true }, multibody.ErrTreeConstruction},
		{"lqr on a floating base", func(c *config.Config) { c.Controller = "lqr" }, nil},
		{"motor on a missing link", func(c *config.Config) {
			c.Motors = []config.MotorConfig{{Link: 9, MaxImpulse: 1}}
		}, multibody.ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			e := New(cfg)
			err := e.Setup()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Nil(t, e.World())
			assert.NoError(t, e.Close())
		})
	}
}

func TestRun_NotSetup(t *testing.T) {
	_, err := New(config.DefaultConfig()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestClose_NilSafe(t *testing.T) {
	var e *Experiment
	assert.NoError(t, e.Close())

	cfg := config.DefaultConfig()
	e = New(cfg)
	require.NoError(t, e.Setup())
	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
	assert.Nil(t, e.GetSimulator())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"chain", "inverted_pendulum"}, r.ListScenarios())
	assert.Equal(t, []string{"computed_torque", "lqr", "none", "pd"}, r.ListControllers())

	_, err := r.GetScenario("nope")
	assert.Error(t, err)
	_, err = r.GetController("nope")
	assert.Error(t, err)
}

func TestEnsemble(t *testing.T) {
	cfg := config.GetPreset("chain", "swing")
	cfg.Duration = 0.05
	cfg.Seed = 7

	results, err := Ensemble(context.Background(), cfg, 3, 0.2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := map[float64]bool{}
	for _, r := range results {
		q, _ := r.States[0].Split()
		assert.InDelta(t, 1.2, q[0], 0.2)
		seen[q[0]] = true
	}
	assert.Len(t, seen, 3)
	assert.False(t, math.IsNaN(results[0].EnergyDrift))
}

func TestBuilder(t *testing.T) {
	build := Builder(config.GetPreset("chain", "hold"))
	s, err := build(11)
	require.NoError(t, err)
	defer s.World().Close()

	assert.Equal(t, 4, s.Body().NumDofs())
	require.NoError(t, s.Advance(make([]float64, 4), 1e-3))
	assert.Equal(t, 1, s.World().StepCount())

	bad := config.GetPreset("chain", "hold")
	bad.Controller = "nope"
	_, err = Builder(bad)(1)
	assert.Error(t, err)
}
