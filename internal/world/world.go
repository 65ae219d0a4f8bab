// Package world steps a set of multibodies through a fixed pipeline:
// forces, constraints, forward dynamics and integration, then collider
// transform sync.
//
// Stepping is single-threaded. A body that cannot be stepped is skipped and
// reported; the others still advance.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/constraint"
	"github.com/san-kum/featherstone/internal/multibody"
)

var (
	ErrClosed          = errors.New("world: closed")
	ErrInvalidTimeStep = errors.New("world: time step must be positive")
	ErrBodyNotFound    = errors.New("world: body not in world")
	ErrDuplicateBody   = errors.New("world: body already in world")
)

// BodyError reports a body that was skipped during a step.
type BodyError struct {
	Index int
	Err   error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("world: body %d skipped: %v", e.Index, e.Err)
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

// Collision filter groups, matching the usual broadphase bit layout.
const (
	DefaultFilter   = 1
	StaticFilter    = 2
	KinematicFilter = 4
	DebrisFilter    = 8
	SensorTrigger   = 16
	CharacterFilter = 32
	AllFilter       = -1
)

// CollisionHost owns collision detection. The world only registers,
// unregisters and moves colliders.
type CollisionHost interface {
	AddCollisionObject(c *multibody.Collider, group, mask int)
	RemoveCollisionObject(c *multibody.Collider)
	UpdateCollisionObject(c *multibody.Collider)
}

// ConstraintSolver resolves constraint rows into constraint forces on the
// rows' bodies.
type ConstraintSolver interface {
	Solve(rows []constraint.Row, dt float64) error
}

// PhaseObserver is notified after every phase transition of a step.
type PhaseObserver interface {
	OnPhase(phase Phase, dt float64)
}

type Config struct {
	Gravity mgl64.Vec3
	// PreserveForces keeps user forces across steps instead of clearing
	// them once consumed.
	PreserveForces bool
	// FixedTimeStep is the StepSimulation default when none is given.
	FixedTimeStep float64
}

func DefaultConfig() Config {
	return Config{
		Gravity:       mgl64.Vec3{0, -9.81, 0},
		FixedTimeStep: 1.0 / 60.0,
	}
}

type Option func(*World)

func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithCollisionHost(h CollisionHost) Option {
	return func(w *World) { w.host = h }
}

func WithSolver(s ConstraintSolver) Option {
	return func(w *World) {
		if s != nil {
			w.solver = s
		}
	}
}

type World struct {
	cfg         Config
	bodies      []*multibody.MultiBody
	constraints []constraint.Constraint
	host        CollisionHost
	solver      ConstraintSolver
	observers   []PhaseObserver
	logger      *zap.Logger

	phase       Phase
	time        float64
	accumulator float64
	steps       int
	closed      bool
}

func New(cfg Config, opts ...Option) *World {
	if cfg.FixedTimeStep <= 0 {
		cfg.FixedTimeStep = DefaultConfig().FixedTimeStep
	}
	w := &World{
		cfg:    cfg,
		solver: constraint.NewSequentialImpulse(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) AddObserver(o PhaseObserver) { w.observers = append(w.observers, o) }

func (w *World) Config() Config               { return w.cfg }
func (w *World) Gravity() mgl64.Vec3          { return w.cfg.Gravity }
func (w *World) SetGravity(g mgl64.Vec3)      { w.cfg.Gravity = g }
func (w *World) Phase() Phase                 { return w.phase }
func (w *World) Time() float64                { return w.time }
func (w *World) StepCount() int               { return w.steps }
func (w *World) NumBodies() int               { return len(w.bodies) }
func (w *World) CollisionHost() CollisionHost { return w.host }

func (w *World) Bodies() []*multibody.MultiBody {
	return slices.Clone(w.bodies)
}

func (w *World) Constraints() []constraint.Constraint {
	return slices.Clone(w.constraints)
}

// AddMultiBody registers a body and its colliders.
func (w *World) AddMultiBody(mb *multibody.MultiBody) error {
	if w.closed {
		return ErrClosed
	}
	if mb == nil {
		return fmt.Errorf("%w: nil body", ErrBodyNotFound)
	}
	if slices.Contains(w.bodies, mb) {
		return ErrDuplicateBody
	}
	w.bodies = append(w.bodies, mb)
	if w.host != nil {
		for _, c := range mb.Colliders() {
			w.host.AddCollisionObject(c, c.Group, c.Mask)
		}
	}
	w.logger.Debug("body added",
		zap.Int("index", len(w.bodies)-1),
		zap.Int("links", mb.NumLinks()),
		zap.Bool("fixed_base", mb.HasFixedBase()),
	)
	return nil
}

// RemoveMultiBody detaches the body's colliders and every constraint acting
// on it, then drops the body.
func (w *World) RemoveMultiBody(mb *multibody.MultiBody) error {
	idx := slices.Index(w.bodies, mb)
	if idx < 0 {
		return ErrBodyNotFound
	}

	w.constraints = slices.DeleteFunc(w.constraints, func(c constraint.Constraint) bool {
		return c.Body() == mb
	})
	for _, c := range mb.DetachColliders() {
		if w.host != nil {
			w.host.RemoveCollisionObject(c)
		}
	}
	w.bodies = slices.Delete(w.bodies, idx, idx+1)
	w.logger.Debug("body removed", zap.Int("index", idx))
	return nil
}

// AddConstraint registers a constraint whose body is already in the world.
func (w *World) AddConstraint(c constraint.Constraint) error {
	if w.closed {
		return ErrClosed
	}
	if c == nil || !slices.Contains(w.bodies, c.Body()) {
		return ErrBodyNotFound
	}
	w.constraints = append(w.constraints, c)
	return nil
}

func (w *World) RemoveConstraint(c constraint.Constraint) bool {
	idx := slices.Index(w.constraints, c)
	if idx < 0 {
		return false
	}
	w.constraints = slices.Delete(w.constraints, idx, idx+1)
	return true
}

// ClearForces drops the user forces of every body.
func (w *World) ClearForces() {
	for _, mb := range w.bodies {
		mb.ClearForces()
	}
}

// ForwardKinematics refreshes every body's world poses and pushes collider
// transforms to the collision host.
func (w *World) ForwardKinematics() {
	for _, mb := range w.bodies {
		mb.UpdateKinematics()
		w.syncColliders(mb)
	}
}

func (w *World) syncColliders(mb *multibody.MultiBody) {
	for _, c := range mb.SyncColliders() {
		if w.host != nil {
			w.host.UpdateCollisionObject(c)
		}
	}
}

// Close tears the world down in reverse creation order: constraints first,
// then bodies with their colliders. It is safe on a nil or closed world.
func (w *World) Close() error {
	if w == nil || w.closed {
		return nil
	}
	for i := len(w.constraints) - 1; i >= 0; i-- {
		w.RemoveConstraint(w.constraints[i])
	}
	var errs []error
	for i := len(w.bodies) - 1; i >= 0; i-- {
		if err := w.RemoveMultiBody(w.bodies[i]); err != nil {
			errs = append(errs, err)
		}
	}
	w.observers = nil
	w.closed = true
	w.logger.Debug("world closed", zap.Int("steps", w.steps))
	return errors.Join(errs...)
}
