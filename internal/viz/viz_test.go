package viz

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/control"
	"github.com/san-kum/featherstone/internal/models"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/sim"
	"github.com/san-kum/featherstone/internal/world"
)

func TestCanvas_SetAndClear(t *testing.T) {
	c := NewCanvas(4, 2)
	w, h := c.PixelSize()
	if w != 8 || h != 8 {
		t.Fatalf("expected 8x8 pixels, got %dx%d", w, h)
	}

	c.Set(0, 0)
	c.Set(7, 7)
	c.Set(-1, 3)
	c.Set(8, 0)
	if !c.IsSet(0, 0) || !c.IsSet(7, 7) {
		t.Error("expected corner dots to be set")
	}
	if c.IsSet(1, 0) {
		t.Error("expected neighbouring dot to stay clear")
	}

	rows := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if []rune(rows[0])[0] != brailleBlank+0x1 {
		t.Errorf("expected dot 1 in first cell, got %U", []rune(rows[0])[0])
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("expected clear canvas")
	}
}

func TestCanvas_DrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	for i := 0; i < 20; i++ {
		if !c.IsSet(i, i) {
			t.Fatalf("expected diagonal dot at %d", i)
		}
	}
}

func TestCamera_Project(t *testing.T) {
	cam := NewCamera(1)
	cam.Pitch = 0

	x, y, _, ok := cam.Project(mgl64.Vec3{}, 100, 100)
	if !ok || x != 50 || y != 50 {
		t.Errorf("expected target at centre, got (%d, %d, %v)", x, y, ok)
	}

	_, below, _, ok := cam.Project(mgl64.Vec3{0, -0.5, 0}, 100, 100)
	if !ok || below <= 50 {
		t.Errorf("expected -y below the centre, got %d", below)
	}

	// Looking along x, a point on the x axis stays at the centre.
	x, _, _, _ = cam.Project(mgl64.Vec3{0.5, 0, 0}, 100, 100)
	if x != 50 {
		t.Errorf("expected x axis to project to the centre column, got %d", x)
	}

	cam.ZoomIn()
	_, zoomed, _, _ := cam.Project(mgl64.Vec3{0, -0.5, 0}, 100, 100)
	if zoomed <= below {
		t.Errorf("expected zoom to push the point outward, got %d <= %d", zoomed, below)
	}
}

func TestCamera_Limits(t *testing.T) {
	cam := NewCamera(0)
	if cam.Reach != 1 {
		t.Errorf("expected default reach 1, got %f", cam.Reach)
	}
	for i := 0; i < 50; i++ {
		cam.ZoomIn()
		cam.Orbit(0, 0.2)
	}
	if cam.Zoom != maxZoom {
		t.Errorf("expected zoom clamp %v, got %f", maxZoom, cam.Zoom)
	}
	if cam.Pitch != math.Pi/2 {
		t.Errorf("expected pitch clamp, got %f", cam.Pitch)
	}
}

func TestSkeleton_Chain(t *testing.T) {
	mb, err := models.NewChain(3).Build()
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	s := Skeleton(mb)
	if len(s.Segments) != 6 || len(s.Coms) != 3 || len(s.Joints) != 3 {
		t.Fatalf("unexpected scene sizes: %d segments, %d coms, %d joints", len(s.Segments), len(s.Coms), len(s.Joints))
	}

	wantJoints := []float64{0, -0.5, -1.0}
	wantComs := []float64{-0.25, -0.75, -1.25}
	for i := range wantComs {
		if math.Abs(s.Joints[i].Y()-wantJoints[i]) > 1e-9 {
			t.Errorf("joint %d: expected y %f, got %f", i, wantJoints[i], s.Joints[i].Y())
		}
		if math.Abs(s.Coms[i].Y()-wantComs[i]) > 1e-9 {
			t.Errorf("com %d: expected y %f, got %f", i, wantComs[i], s.Coms[i].Y())
		}
	}
	if s.Tip() != s.Coms[2] {
		t.Error("expected tip at the last centre of mass")
	}
	if r := Reach(mb); math.Abs(r-1.25) > 1e-9 {
		t.Errorf("expected reach 1.25, got %f", r)
	}
}

func TestRender_DrawsBody(t *testing.T) {
	mb, err := models.NewChain(2).Build()
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	c := NewCanvas(40, 20)
	Render(c, NewCamera(Reach(mb)), Skeleton(mb))

	lit := 0
	w, h := c.PixelSize()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if c.IsSet(x, y) {
				lit++
			}
		}
	}
	if lit < 10 {
		t.Errorf("expected the chain to light dots, got %d", lit)
	}
}

func TestPlot(t *testing.T) {
	if out := Plot("empty", 20, 4); out != "" {
		t.Errorf("expected empty plot, got %q", out)
	}

	values := make([]float64, 500)
	for i := range values {
		values[i] = math.Sin(float64(i) / 50)
	}
	out := Plot("angle", 40, 5, Series{Name: "q0", Values: values}, Series{Name: "q1", Values: values[:100]})
	if !strings.Contains(out, "angle") {
		t.Errorf("expected caption in plot, got %q", out)
	}
}

func TestDownsample(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := Downsample(values, 4)
	if len(got) != 4 || got[0] != 0 || got[3] != 9 {
		t.Errorf("unexpected downsample %v", got)
	}
	if len(Downsample(values, 20)) != 10 {
		t.Error("expected short series unchanged")
	}
}

func TestThemes(t *testing.T) {
	names := ThemeNames()
	if len(names) != len(Themes) {
		t.Fatalf("expected %d names, got %d", len(Themes), len(names))
	}
	if GetTheme("missing").Name != names[0] {
		t.Error("expected fallback to the first theme")
	}
	if NextTheme(names[len(names)-1]).Name != names[0] {
		t.Error("expected theme cycling to wrap")
	}
}

func TestParamBar(t *testing.T) {
	if got := ParamBar("Kp", 100, 100, 10); !strings.Contains(got, "[=====-----]") {
		t.Errorf("expected half bar, got %q", got)
	}
	if got := ParamBar("Kp", 500, 100, 4); !strings.Contains(got, "[====]") {
		t.Errorf("expected full bar, got %q", got)
	}
}

func chainBuilder(t *testing.T) sim.Builder {
	return func(seed int64) (*sim.Simulator, error) {
		c := models.NewChain(2)
		c.InitialAngle = 0.4
		mb, err := c.Build()
		if err != nil {
			return nil, err
		}
		w := world.New(world.DefaultConfig())
		if err := w.AddMultiBody(mb); err != nil {
			return nil, err
		}
		ctrl := control.NewPD(mb.NumDofs(), control.DefaultGains(), control.NewTarget(mb.NumDofs()))
		return sim.New(w, mb, ctrl), nil
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	m, err := NewModel(chainBuilder(t), 1, 1e-3, "chain")
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func press(m Model, key tea.KeyMsg) Model {
	next, _ := m.Update(key)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_TickAdvances(t *testing.T) {
	m := newModel(t)
	next, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Error("expected another tick to be scheduled")
	}
	m = next.(Model)
	if m.Time() <= 0 {
		t.Fatalf("expected time to advance, got %f", m.Time())
	}
	if m.Err() != nil {
		t.Fatalf("unexpected error: %v", m.Err())
	}
	if !strings.Contains(m.View(), "CHAIN") {
		t.Error("expected title in view")
	}
}

func TestModel_Pause(t *testing.T) {
	m := newModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.Running() {
		t.Fatal("expected paused model")
	}
	next, _ := m.Update(TickMsg(time.Now()))
	if next.(Model).Time() != 0 {
		t.Error("expected paused model to hold time")
	}
	if !strings.Contains(next.(Model).View(), "PAUSED") {
		t.Error("expected paused status in view")
	}
}

func TestModel_TuneGains(t *testing.T) {
	m := newModel(t)
	if len(m.Params()) != 2 {
		t.Fatalf("expected Kp and Kd, got %v", m.Params())
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})

	if got := m.Params()["Kp"]; math.Abs(got-105) > 1e-9 {
		t.Errorf("expected Kp 105, got %f", got)
	}
	ctrl := m.Simulator().Controller().(*control.PD)
	if math.Abs(ctrl.Gains.Kp-105) > 1e-9 {
		t.Errorf("expected controller Kp 105, got %f", ctrl.Gains.Kp)
	}
}

func TestModel_NudgeAndReset(t *testing.T) {
	m := newModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	m = press(m, runes("n"))
	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})

	push, _ := m.manual.Compute(nil, 0)
	if push[0] != nudgeStep || push[1] != -nudgeStep {
		t.Errorf("unexpected push %v", push)
	}

	m = press(m, runes("c"))
	push, _ = m.manual.Compute(nil, 0)
	if push[0] != 0 || push[1] != 0 {
		t.Errorf("expected release, got %v", push)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	first := m.Simulator()
	m = press(m, runes("r"))
	if m.Time() != 0 {
		t.Errorf("expected reset time, got %f", m.Time())
	}
	if m.Simulator() == first {
		t.Error("expected a fresh simulator after reset")
	}
	if !errors.Is(first.World().Step(0.01), world.ErrClosed) {
		t.Error("expected the old world to be closed")
	}
	if m.Err() != nil {
		t.Errorf("unexpected teardown error %v", m.Err())
	}
}

func TestModel_Errors(t *testing.T) {
	if _, err := NewModel(chainBuilder(t), 1, 0, "chain"); err == nil {
		t.Error("expected error for zero dt")
	}
	failing := func(int64) (*sim.Simulator, error) { return nil, multibody.ErrNotFinalized }
	if _, err := NewModel(failing, 1, 1e-3, "broken"); !errors.Is(err, multibody.ErrNotFinalized) {
		t.Errorf("expected builder error, got %v", err)
	}
}

func TestModel_Quit(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
