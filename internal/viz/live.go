package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/featherstone/internal/control"
	"github.com/san-kum/featherstone/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 600
	trailCapacity   = 240
	frameRate       = 60
	nudgeStep       = 0.5
	maxJointRows    = 6
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a simulator in real time and draws the body's skeleton. Key
// presses tune the controller gains and push joints by hand.
type Model struct {
	build         sim.Builder
	seed          int64
	title         string
	dt            float64
	stepsPerFrame int

	sim    *sim.Simulator
	manual *control.Manual
	u      sim.Control
	t      float64
	steps  int
	err    error

	canvas *Canvas
	camera *Camera
	theme  Theme
	styles styles

	trail         []mgl64.Vec3
	energyHistory []float64
	angleHistory  []float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	nudgeDof      int

	running  bool
	showHelp bool
}

// NewModel builds the first simulator with build(seed). The model owns
// every simulator it builds; call Close when the program exits.
func NewModel(build sim.Builder, seed int64, dt float64, title string) (Model, error) {
	if dt <= 0 {
		return Model{}, fmt.Errorf("viz: time step must be positive, got %f", dt)
	}
	theme := Themes[0]
	m := Model{
		build:         build,
		seed:          seed,
		title:         title,
		dt:            dt,
		stepsPerFrame: max(1, int(math.Round(1/(frameRate*dt)))),
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		theme:         theme,
		styles:        newStyles(theme),
		running:       true,
	}
	if err := m.load(); err != nil {
		return Model{}, err
	}
	m.camera = NewCamera(Reach(m.sim.Body()))
	return m, nil
}

func (m *Model) load() error {
	s, err := m.build(m.seed)
	if err != nil {
		return err
	}
	m.sim = s
	m.manual = control.NewManual(s.Body().NumDofs())
	m.u = make(sim.Control, s.Body().NumDofs())
	m.t, m.steps, m.err = 0, 0, nil
	m.trail = make([]mgl64.Vec3, 0, trailCapacity)
	m.energyHistory = make([]float64, 0, historyCapacity)
	m.angleHistory = make([]float64, 0, historyCapacity)
	m.nudgeDof = 0

	m.params = make(map[string]float64)
	m.initialParams = make(map[string]float64)
	m.paramKeys = m.paramKeys[:0]
	if c, ok := s.Controller().(sim.Configurable); ok {
		for k, v := range c.GetParams() {
			m.params[k] = v
			m.initialParams[k] = v
			m.paramKeys = append(m.paramKeys, k)
		}
	}
	sort.Strings(m.paramKeys)
	m.selected = min(m.selected, max(len(m.paramKeys)-1, 0))
	return nil
}

// Simulator returns the simulator currently on screen.
func (m Model) Simulator() *sim.Simulator { return m.sim }

func (m Model) Time() float64 { return m.t }

func (m Model) Params() map[string]float64 { return m.params }

func (m Model) Running() bool { return m.running }

func (m Model) Err() error { return m.err }

// Close releases the current simulator's world.
func (m Model) Close() error {
	if m.sim == nil {
		return nil
	}
	return m.sim.World().Close()
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "left":
			m.manual.Nudge(m.nudgeDof, -nudgeStep)
		case "right":
			m.manual.Nudge(m.nudgeDof, nudgeStep)
		case "n":
			if dofs := m.sim.Body().NumDofs(); dofs > 0 {
				m.nudgeDof = (m.nudgeDof + 1) % dofs
			}
		case "c":
			m.manual.Release()
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "x":
			m.camera.Orbit(0, 0.1)
		case "X":
			m.camera.Orbit(0, -0.1)
		case "y":
			m.camera.Orbit(0.1, 0)
		case "Y":
			m.camera.Orbit(-0.1, 0)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs one frame's worth of steps. A step error or an invalid
// state pauses the view.
func (m *Model) advance() {
	body := m.sim.Body()
	for k := 0; k < m.stepsPerFrame; k++ {
		x := sim.StateOf(body)
		u, err := m.sim.Controller().Compute(x, m.t)
		if err != nil {
			m.err = err
			u = make(sim.Control, body.NumDofs())
		}
		push, _ := m.manual.Compute(x, m.t)
		for i := range u {
			if i < len(push) {
				u[i] += push[i]
			}
		}
		m.u = u

		if err := m.sim.Advance(u, m.dt); err != nil {
			m.err = err
			m.running = false
			return
		}
		m.t += m.dt
		m.steps++
	}

	if !sim.StateOf(body).IsValid() {
		m.err = fmt.Errorf("invalid state at t=%.3f", m.t)
		m.running = false
		return
	}

	m.energyHistory = appendBounded(m.energyHistory, m.sim.Energy(), historyCapacity)
	if body.NumDofs() > 0 {
		q, _ := body.JointPosition(0)
		m.angleHistory = appendBounded(m.angleHistory, q, historyCapacity)
	}
	m.trail = appendBounded(m.trail, Skeleton(body).Tip(), trailCapacity)
}

func appendBounded[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	c, ok := m.sim.Controller().(sim.Configurable)
	if !ok {
		return
	}
	key := m.paramKeys[m.selected]
	v := m.params[key] * factor
	if err := c.SetParam(key, v); err != nil {
		m.err = err
		return
	}
	m.params[key] = v
}

// reset rebuilds the simulator from scratch, restoring the initial pose
// and gains.
func (m *Model) reset() {
	old := m.sim
	if err := m.load(); err != nil {
		m.err = err
		m.running = false
		return
	}
	if old != nil {
		if err := old.World().Close(); err != nil {
			m.err = err
		}
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.canvas.Clear()
	RenderTrail(m.canvas, m.camera, m.trail)
	Render(m.canvas, m.camera, Skeleton(m.sim.Body()))
	canvasView := m.styles.canvas.Render(m.canvas.String())

	st := m.styles
	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(st.err.Render("ERROR "+m.err.Error()) + "\n\n")
	case !m.running:
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	default:
		s.WriteString("RUNNING\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if len(m.angleHistory) > 1 {
		chart := asciigraph.Plot(m.angleHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Joint 0"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	body := m.sim.Body()
	s.WriteString(st.row("Time", fmt.Sprintf("%.2fs", m.t)))
	s.WriteString(st.row("Steps", fmt.Sprintf("%d", m.steps)))
	s.WriteString(st.row("Energy", fmt.Sprintf("%.4f", m.sim.Energy())))
	s.WriteString(st.row("Awake", fmt.Sprintf("%v", body.IsAwake())))
	if body.NumDofs() > 0 {
		push, _ := m.manual.Compute(nil, m.t)
		s.WriteString(st.row("Push", fmt.Sprintf("dof %d  %+.2f", m.nudgeDof, push[m.nudgeDof])))
	}

	s.WriteString("\nJOINTS\n")
	for dof := 0; dof < min(body.NumDofs(), maxJointRows); dof++ {
		q, _ := body.JointPosition(dof)
		qd, _ := body.JointVelocity(dof)
		tau := 0.0
		if dof < len(m.u) {
			tau = m.u[dof]
		}
		s.WriteString(st.row(fmt.Sprintf("  q%d", dof), fmt.Sprintf("%+.3f  %+.3f  %+.2f", q, qd, tau)))
	}

	s.WriteString("\nGAINS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := ParamBar(k, m.params[k], m.initialParams[k], 10)
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit T:Theme\n←→:Push N:Dof C:Release ↑↓:Tune ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space    pause or resume
  R        rebuild from the initial pose
  Q        quit
  Tab      select gain
  Up/K     raise gain 5%
  Down/J   lower gain 5%
  Left     push selected joint negative
  Right    push selected joint positive
  N        select next joint DOF
  C        release pushes
  X/Y      orbit camera
  +/-      zoom
  T        cycle theme
  ?        toggle this help
`
