package models

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/spatial"
	"github.com/san-kum/featherstone/internal/world"
)

var (
	pendulumLinkHalfExtents = mgl64.Vec3{0.05, 0.37, 0.1}
	pendulumBaseHalfExtents = mgl64.Vec3{0.04, 0.35, 0.08}
)

// InvertedPendulum is a box link on a hinge about x carrying a sphere on a
// fixed joint, started upside down. The Spherical variant replaces both
// joints with ball joints. Positive LinearDamping and AngularDamping
// override the Damping preset.
type InvertedPendulum struct {
	Radius         float64
	LinkMass       float64
	BaseMass       float64
	FixedBase      bool
	Spherical      bool
	Damping        bool
	LinearDamping  float64
	AngularDamping float64
	Gyro           bool
	CanSleep       bool
	SelfCollision  bool
	InitialAngle   float64
	BasePose       spatial.Pose
}

func NewInvertedPendulum() *InvertedPendulum {
	return &InvertedPendulum{
		Radius:       1,
		LinkMass:     1,
		BaseMass:     10,
		InitialAngle: math.Pi,
		BasePose:     spatial.IdentityPose(),
	}
}

func (p *InvertedPendulum) options() multibody.Options {
	opts := multibody.Options{
		NumLinks:      2,
		CanSleep:      p.CanSleep,
		SelfCollision: p.SelfCollision,
		UseGyroTerm:   p.Gyro,
	}
	if !p.FixedBase {
		opts.BaseMass = p.BaseMass
		opts.BaseInertia = Box{HalfExtents: pendulumBaseHalfExtents}.LocalInertia(p.BaseMass)
	}
	if p.Damping {
		opts.LinearDamping = 0.1
		opts.AngularDamping = 0.9
	}
	if p.LinearDamping > 0 {
		opts.LinearDamping = p.LinearDamping
	}
	if p.AngularDamping > 0 {
		opts.AngularDamping = p.AngularDamping
	}
	return opts
}

// Build creates and finalizes the body, attaches its colliders and sets the
// initial angle.
func (p *InvertedPendulum) Build() (*multibody.MultiBody, error) {
	if p.Radius <= 0 || p.LinkMass <= 0 {
		return nil, fmt.Errorf("inverted pendulum: radius and link mass must be positive")
	}
	mb, err := multibody.New(p.options())
	if err != nil {
		return nil, err
	}
	mb.SetBasePose(p.BasePose)

	hinge := mgl64.Vec3{1, 0, 0}
	shapes := []Shape{
		Box{HalfExtents: pendulumLinkHalfExtents},
		Sphere{Radius: p.Radius},
	}

	// Each link hangs below its parent along -y.
	parentComToCom := mgl64.Vec3{0, -pendulumLinkHalfExtents[1] * 2, 0}
	pivotToCom := mgl64.Vec3{0, -pendulumLinkHalfExtents[1], 0}
	for i, shape := range shapes {
		spec := multibody.LinkSpec{
			Parent:  i - 1,
			Type:    joint.Revolute,
			Mass:    p.LinkMass,
			Inertia: shape.LocalInertia(p.LinkMass),
			Axis:    hinge,
			ZeroRot: mgl64.QuatIdent(),
		}
		switch {
		case p.Spherical:
			spec.Type = joint.Spherical
		case i > 0:
			spec.Type = joint.Fixed
			parentComToCom = mgl64.Vec3{0, -p.Radius * 2, 0}
			pivotToCom = mgl64.Vec3{0, -p.Radius, 0}
		}
		spec.ParentToPivot = parentComToCom.Sub(pivotToCom)
		spec.PivotToCom = pivotToCom
		if _, err := mb.AddLinkSpec(spec); err != nil {
			return nil, fmt.Errorf("inverted pendulum link %d: %w", i, err)
		}
	}

	if err := mb.Finalize(); err != nil {
		return nil, err
	}
	if err := p.setInitialAngle(mb); err != nil {
		return nil, err
	}

	baseGroup, baseMask := world.StaticFilter, world.AllFilter^world.StaticFilter
	if !mb.HasFixedBase() {
		baseGroup, baseMask = world.DefaultFilter, world.AllFilter
	}
	mb.SetBaseCollider(&multibody.Collider{
		Shape: Box{HalfExtents: pendulumBaseHalfExtents},
		Group: baseGroup,
		Mask:  baseMask,
	})
	for i, shape := range shapes {
		c := &multibody.Collider{Shape: shape, Group: world.DefaultFilter, Mask: world.AllFilter}
		if err := mb.SetLinkCollider(i, c); err != nil {
			return nil, err
		}
	}
	mb.SyncColliders()
	return mb, nil
}

func (p *InvertedPendulum) setInitialAngle(mb *multibody.MultiBody) error {
	if !p.Spherical {
		return mb.SetJointPosition(0, p.InitialAngle)
	}
	axis := mgl64.Vec3{1, 1, 0}.Normalize()
	q := mb.Positions()
	joint.SetSphericalQuat(q[0:4], mgl64.QuatRotate(p.InitialAngle, axis))
	return mb.SetPositions(q)
}
