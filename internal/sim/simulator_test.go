package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/world"
)

func buildPendulum(finalize bool) (*multibody.MultiBody, error) {
	mb, err := multibody.New(multibody.Options{})
	if err != nil {
		return nil, err
	}
	_, err = mb.AddLink(multibody.BaseIndex, joint.Revolute, 1, mgl64.Vec3{0.01, 0.01, 0.01},
		mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0})
	if err != nil || !finalize {
		return mb, err
	}
	if err := mb.Finalize(); err != nil {
		return nil, err
	}
	return mb, mb.SetJointPosition(0, 0.3)
}

func newPendulum(t *testing.T, finalize bool) *multibody.MultiBody {
	t.Helper()
	mb, err := buildPendulum(finalize)
	if err != nil {
		t.Fatalf("build pendulum: %v", err)
	}
	return mb
}

func newSimulator(t *testing.T, ctrl Controller) *Simulator {
	t.Helper()
	w := world.New(world.DefaultConfig())
	mb := newPendulum(t, true)
	if err := w.AddMultiBody(mb); err != nil {
		t.Fatalf("add body: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return New(w, mb, ctrl)
}

type zeroController struct{}

func (zeroController) Compute(x State, t float64) (Control, error) {
	return Control{0}, nil
}

type failingController struct{}

func (failingController) Compute(x State, t float64) (Control, error) {
	return nil, errors.New("no estimate")
}

type constantController struct{ torque float64 }

func (c constantController) Compute(x State, t float64) (Control, error) {
	return Control{c.torque}, nil
}

func TestSimulatorRun(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	cfg := Config{Dt: 1e-3, Duration: 0.5, SubSteps: 1}
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 501 {
		t.Errorf("expected 501 states, got %d", len(result.States))
	}
	if len(result.Times) != 501 {
		t.Errorf("expected 501 times, got %d", len(result.Times))
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	q0, _ := result.States[0].Split()
	q1, _ := result.States[len(result.States)-1].Split()
	if q1[0] >= q0[0] {
		t.Errorf("expected pendulum to swing back from %.3f, got %.3f", q0[0], q1[0])
	}
	if result.EnergyDrift > 0.05 {
		t.Errorf("expected energy drift below 5%%, got %.4f", result.EnergyDrift)
	}
}

func TestSimulatorSubSteps(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	cfg := Config{Dt: 0.01, Duration: 0.1, SubSteps: 4}
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}
	if got := sim.World().StepCount(); got != 40 {
		t.Errorf("expected 40 world steps, got %d", got)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative sub-steps", Config{Dt: 0.1, Duration: 1.0, SubSteps: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorUnfinalizedBody(t *testing.T) {
	w := world.New(world.DefaultConfig())
	defer w.Close()

	sim := New(w, newPendulum(t, false), zeroController{})
	_, err := sim.Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if !errors.Is(err, multibody.ErrNotFinalized) {
		t.Errorf("expected ErrNotFinalized, got %v", err)
	}
}

func TestSimulatorControllerErrors(t *testing.T) {
	sim := newSimulator(t, failingController{})

	result, err := sim.Run(context.Background(), Config{Dt: 0.01, Duration: 0.05})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 5 {
		t.Errorf("expected run to continue for 5 steps, got %d", result.StepsTaken)
	}
	if len(result.Errors) != 5 {
		t.Fatalf("expected 5 recorded errors, got %d", len(result.Errors))
	}
	var simErr *SimError
	if !errors.As(result.Errors[0], &simErr) || simErr.Step != 0 {
		t.Errorf("expected SimError at step 0, got %v", result.Errors[0])
	}
}

func TestSimulatorAppliesControl(t *testing.T) {
	passive := newSimulator(t, zeroController{})
	driven := newSimulator(t, constantController{torque: 5})

	cfg := Config{Dt: 0.01, Duration: 0.1}
	a, err := passive.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	b, err := driven.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	_, va := a.States[len(a.States)-1].Split()
	_, vb := b.States[len(b.States)-1].Split()
	if vb[0] <= va[0] {
		t.Errorf("expected positive torque to raise joint velocity, got %.4f vs %.4f", vb[0], va[0])
	}
}

func TestSimulatorCancel(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, Config{Dt: 0.01, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", result.StepsTaken)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x State, u Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	metric := &testMetric{}
	sim.AddMetric(metric)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestSimulatorRunWithCallback(t *testing.T) {
	sim := newSimulator(t, zeroController{})

	calls := 0
	err := sim.RunWithCallback(context.Background(), Config{Dt: 0.01, Duration: 1}, func(x State, u Control, t float64) bool {
		calls++
		return calls < 3
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected callback to stop the run after 3 calls, got %d", calls)
	}
	if got := sim.World().StepCount(); got != 2 {
		t.Errorf("expected 2 world steps, got %d", got)
	}
}

func TestEnsembleRun(t *testing.T) {
	build := func(seed int64) (*Simulator, error) {
		w := world.New(world.DefaultConfig())
		mb, err := buildPendulum(true)
		if err != nil {
			return nil, err
		}
		if err := mb.SetJointPosition(0, 0.1*float64(seed)); err != nil {
			return nil, err
		}
		if err := w.AddMultiBody(mb); err != nil {
			return nil, err
		}
		return New(w, mb, zeroController{}), nil
	}

	results, err := NewEnsemble(build, 3, 1).Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		q, _ := r.States[0].Split()
		want := 0.1 * float64(i+1)
		if q[0] != want {
			t.Errorf("run %d: expected initial angle %.1f, got %.4f", i, want, q[0])
		}
	}
}

func TestEnsembleBuildError(t *testing.T) {
	build := func(seed int64) (*Simulator, error) {
		return nil, errors.New("broken model")
	}
	if _, err := NewEnsemble(build, 2, 0).Run(context.Background(), Config{Dt: 0.01, Duration: 0.1}); err == nil {
		t.Error("expected error, got nil")
	}
}
